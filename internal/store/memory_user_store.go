package store

import (
	"context"
	"errors"
	"sync"

	"github.com/RezaEskandarii/driveq/types"
	"golang.org/x/crypto/bcrypt"
)

// MemoryUserStore keeps bcrypt hashed users in memory. It backs the
// dashboard when no database is configured.
type MemoryUserStore struct {
	mu     sync.RWMutex
	users  map[string]types.User
	lastID int64
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]types.User)}
}

func (s *MemoryUserStore) Create(_ context.Context, username, password string) (int64, error) {
	if username == "" || password == "" {
		return 0, errors.New("username and password are required")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	s.users[username] = types.User{ID: s.lastID, Username: username, Password: string(hashed)}
	return s.lastID, nil
}

func (s *MemoryUserStore) Find(_ context.Context, username, password string) (*types.User, error) {
	s.mu.RLock()
	user, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrNotFound
	}
	user.Password = ""
	return &user, nil
}

func (s *MemoryUserStore) FindByUsername(_ context.Context, username string) (*types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[username]
	if !ok {
		return nil, nil
	}
	user.Password = ""
	return &user, nil
}

func (s *MemoryUserStore) Delete(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		return errors.New("no user found to delete")
	}
	delete(s.users, username)
	return nil
}
