// Package history persists terminal job outcomes in batches.
package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/RezaEskandarii/driveq/internal/observer"
	"github.com/RezaEskandarii/driveq/internal/store"
	"github.com/RezaEskandarii/driveq/types"
)

const (
	flushTimeout = 10 * time.Second

	// maxBufferedBatches bounds the buffer while the store is unavailable.
	maxBufferedBatches = 10
)

// Recorder is a scheduler observer. OnJobDone only appends to an in-memory
// buffer; Run writes the buffer to the store when it reaches the batch size
// or when the flush interval elapses.
type Recorder struct {
	store         store.JobHistoryStore
	instance      string
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	now           func() time.Time

	mu      sync.Mutex
	pending []types.JobRecord
	full    chan struct{}
}

var _ observer.Listener = (*Recorder)(nil)

func NewRecorder(s store.JobHistoryStore, instance string, batchSize int, flushInterval time.Duration, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:         s,
		instance:      instance,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger.With(slog.String("component", "history")),
		now:           time.Now,
		full:          make(chan struct{}, 1),
	}
}

func (r *Recorder) OnJobAdded(types.JobInfo)   {}
func (r *Recorder) OnJobUpdated(types.JobInfo) {}

func (r *Recorder) OnJobDone(info types.JobInfo, err error) {
	record := types.NewJobRecord(r.instance, info, err, r.now())

	r.mu.Lock()
	r.pending = append(r.pending, record)
	reached := len(r.pending) >= r.batchSize
	dropped := r.trimLocked()
	r.mu.Unlock()

	if dropped > 0 {
		r.logger.Warn("history buffer full, dropping oldest records", "dropped", dropped)
	}

	if reached {
		select {
		case r.full <- struct{}{}:
		default:
		}
	}
}

// Pending reports how many records wait for the next flush.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Run flushes until ctx is done, then flushes once more.
func (r *Recorder) Run(ctx context.Context) {
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			r.Flush(flushCtx)
			cancel()
			r.logger.Info("history recorder stopped")
			return
		case <-ticker.C:
			r.Flush(ctx)
		case <-r.full:
			r.Flush(ctx)
		}
	}
}

// Capacity is the most records kept in memory. Older records are dropped
// first once it is exceeded.
func (r *Recorder) Capacity() int {
	return max(r.batchSize, 1) * maxBufferedBatches
}

// trimLocked drops the oldest records beyond Capacity and reports how many
// went. r.mu must be held.
func (r *Recorder) trimLocked() int {
	over := len(r.pending) - r.Capacity()
	if over <= 0 {
		return 0
	}
	r.pending = append([]types.JobRecord(nil), r.pending[over:]...)
	return over
}

// Flush writes everything buffered so far. On failure the batch is put
// back in front of newer records and retried on the next flush, within
// Capacity.
func (r *Recorder) Flush(ctx context.Context) {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()

	for len(batch) > 0 {
		n := min(len(batch), r.batchSize)
		if err := r.store.BulkInsert(ctx, batch[:n]); err != nil {
			r.logger.Error("failed to insert history batch", "records", len(batch), "error", err)
			r.mu.Lock()
			r.pending = append(batch, r.pending...)
			dropped := r.trimLocked()
			r.mu.Unlock()
			if dropped > 0 {
				r.logger.Warn("history buffer full, dropping oldest records", "dropped", dropped)
			}
			return
		}
		r.logger.Debug("inserted history batch", "records", n)
		batch = batch[n:]
	}
}
