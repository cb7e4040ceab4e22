package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
)

const authCookieName = "auth"

func generateAuthToken(username, secretKey string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(username))
	signature := mac.Sum(nil)
	return base64.StdEncoding.EncodeToString([]byte(username)) + "|" + base64.StdEncoding.EncodeToString(signature)
}

// parseAuthToken returns the signed username when the token is valid.
func parseAuthToken(token, secretKey string) (string, bool) {
	parts := strings.Split(token, "|")
	if len(parts) != 2 {
		return "", false
	}
	usernameBytes, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(usernameBytes) == 0 {
		return "", false
	}
	expectedMac, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", false
	}

	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write(usernameBytes)
	if !hmac.Equal(expectedMac, mac.Sum(nil)) {
		return "", false
	}
	return string(usernameBytes), true
}

func isAuthenticated(r *http.Request, secretKey string) bool {
	cookie, err := r.Cookie(authCookieName)
	if err != nil {
		return false
	}
	_, ok := parseAuthToken(cookie.Value, secretKey)
	return ok
}
