package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/RezaEskandarii/driveq/internal/state"
	"github.com/RezaEskandarii/driveq/internal/store"
	"github.com/RezaEskandarii/driveq/types"
)

const shutdownTimeout = 5 * time.Second

// Scheduler is the part of the job scheduler the dashboard reads and controls.
type Scheduler interface {
	ListJobs() []types.JobInfo
	GetJob(id types.JobID) (types.JobInfo, bool)
	QueueInfo() []types.QueueInfo
	Connectivity() types.ConnectionType
	Cancel(id types.JobID)
	CancelAll()
}

type Server struct {
	scheduler Scheduler
	history   store.JobHistoryStore
	userStore store.UserStore
	metrics   http.Handler
	logger    *slog.Logger

	secretKey string
	useAuth   bool
	port      uint
}

// NewServer builds the dashboard. history and metrics may be nil, in which
// case their routes answer 404.
func NewServer(
	scheduler Scheduler,
	history store.JobHistoryStore,
	userStore store.UserStore,
	metrics http.Handler,
	secretKey string,
	useAuth bool,
	port uint,
	logger *slog.Logger,
) *Server {
	return &Server{
		scheduler: scheduler,
		history:   history,
		userStore: userStore,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "web")),
		secretKey: secretKey,
		useAuth:   useAuth,
		port:      port,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.authMiddleware(s.handleIndex))
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)
	mux.HandleFunc("/api/jobs", s.authMiddleware(s.handleJobs))
	mux.HandleFunc("/api/jobs/cancel", s.authMiddleware(s.handleCancel))
	mux.HandleFunc("/api/queues", s.authMiddleware(s.handleQueues))
	mux.HandleFunc("/api/history", s.authMiddleware(s.handleHistory))
	mux.HandleFunc("/api/history/counts", s.authMiddleware(s.handleHistoryCounts))
	if s.metrics != nil {
		mux.HandleFunc("/metrics", s.authMiddleware(s.metrics.ServeHTTP))
	}
	return mux
}

// Serve listens until ctx is done and then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		printBanner(addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	render(w, "jobs", map[string]any{
		"Connection": s.scheduler.Connectivity().String(),
		"Queues":     s.scheduler.QueueInfo(),
		"Jobs":       s.scheduler.ListJobs(),
	})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if idParam := r.URL.Query().Get("id"); idParam != "" {
		id, err := parseJobID(idParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		job, ok := s.scheduler.GetJob(id)
		if !ok {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeJSON(w, http.StatusOK, job)
		return
	}

	jobs := s.scheduler.ListJobs()
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		filtered := jobs[:0]
		for _, job := range jobs {
			if string(job.Status) == status {
				filtered = append(filtered, job)
			}
		}
		jobs = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"connection": s.scheduler.Connectivity().String(),
		"jobs":       jobs,
	})
}

// handleCancel cancels one job by id, or every job when all=true.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}

	if r.FormValue("all") == "true" {
		s.scheduler.CancelAll()
		s.logger.Info("cancel all requested from dashboard")
		writeJSON(w, http.StatusAccepted, map[string]any{"cancelled": "all"})
		return
	}

	id, err := parseJobID(r.FormValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := s.scheduler.GetJob(id); !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.scheduler.Cancel(id)
	s.logger.Info("cancel requested from dashboard", "job_id", id)
	writeJSON(w, http.StatusAccepted, map[string]any{"cancelled": id})
}

func (s *Server) handleQueues(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.scheduler.QueueInfo())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "job history is not enabled")
		return
	}
	ctx := r.Context()

	if idParam := r.URL.Query().Get("job_id"); idParam != "" {
		id, err := parseJobID(idParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		record, err := s.history.FindByJobID(ctx, r.URL.Query().Get("instance"), id)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		if err != nil {
			s.logger.Error("failed to find history record", "job_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to fetch history")
			return
		}
		writeJSON(w, http.StatusOK, record)
		return
	}

	status := state.JobStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	if status != "" && !status.IsTerminal() {
		writeError(w, http.StatusBadRequest, "status must be succeeded, failed or cancelled")
		return
	}
	records, err := s.history.List(ctx, getPageNumber(r), getPageSize(r), status)
	if err != nil {
		s.logger.Error("failed to list history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch history")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleHistoryCounts(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "job history is not enabled")
		return
	}
	counts, err := s.history.CountByStatus(r.Context())
	if err != nil {
		s.logger.Error("failed to count history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to count history")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.useAuth || s.userStore == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	switch r.Method {
	case http.MethodGet:
		warning := ""
		if c, err := r.Cookie("warning"); err == nil {
			warning, _ = url.QueryUnescape(c.Value)
		}
		render(w, "login", map[string]any{"Warning": warning})
	case http.MethodPost:
		username := r.FormValue("username")
		password := r.FormValue("password")

		user, err := s.userStore.Find(r.Context(), username, password)
		if err != nil || user == nil {
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				s.logger.Error("failed to look up dashboard user", "error", err)
			}
			http.SetCookie(w, &http.Cookie{
				Name:   "warning",
				Value:  url.QueryEscape("invalid username or password"),
				Path:   "/",
				MaxAge: 5,
			})
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     authCookieName,
			Value:    generateAuthToken(user.Username, s.secretKey),
			Path:     "/",
			MaxAge:   3600,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, "/", http.StatusSeeOther)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   authCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func parseJobID(raw string) (types.JobID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", raw)
	}
	return types.JobID(id), nil
}
