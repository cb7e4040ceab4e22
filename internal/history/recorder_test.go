package history

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RezaEskandarii/driveq/internal/logging"
	"github.com/RezaEskandarii/driveq/internal/mocks"
	"github.com/RezaEskandarii/driveq/internal/state"
	"github.com/RezaEskandarii/driveq/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_FlushSplitsIntoBatches(t *testing.T) {
	s := &mocks.MockJobHistoryStore{}
	r := NewRecorder(s, "svc", 2, time.Hour, logging.Discard())

	for i := 1; i <= 5; i++ {
		r.OnJobDone(types.JobInfo{ID: types.JobID(i), Status: state.StatusSucceeded}, nil)
	}
	r.OnJobDone(types.JobInfo{ID: 6, Status: state.StatusFailed}, errors.New("boom"))
	r.Flush(context.Background())

	batches := s.Batches()
	require.Len(t, batches, 3)
	assert.Equal(t, 6, s.Inserted())
	last := batches[2][1]
	assert.Equal(t, "svc", last.Instance)
	assert.Equal(t, types.JobID(6), last.JobID)
	require.NotNil(t, last.LastError)
	assert.Equal(t, "boom", *last.LastError)
	assert.Equal(t, 0, r.Pending())
}

func TestRecorder_AddedAndUpdatedAreIgnored(t *testing.T) {
	s := &mocks.MockJobHistoryStore{}
	r := NewRecorder(s, "svc", 10, time.Hour, logging.Discard())

	r.OnJobAdded(types.JobInfo{ID: 1})
	r.OnJobUpdated(types.JobInfo{ID: 1, Status: state.StatusRunning})
	assert.Equal(t, 0, r.Pending())
}

func TestRecorder_FailedFlushKeepsRecords(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	s := &mocks.MockJobHistoryStore{
		BulkInsertFunc: func(context.Context, []types.JobRecord) error {
			if failing.Load() {
				return errors.New("db down")
			}
			return nil
		},
	}
	r := NewRecorder(s, "svc", 10, time.Hour, logging.Discard())

	r.OnJobDone(types.JobInfo{ID: 1, Status: state.StatusCancelled}, nil)
	r.Flush(context.Background())
	assert.Equal(t, 1, r.Pending())

	r.OnJobDone(types.JobInfo{ID: 2, Status: state.StatusSucceeded}, nil)
	failing.Store(false)
	r.Flush(context.Background())

	batches := s.Batches()
	require.Len(t, batches, 1)
	assert.Equal(t, types.JobID(1), batches[0][0].JobID)
	assert.Equal(t, types.JobID(2), batches[0][1].JobID)
}

func TestRecorder_RunFlushesOnBatchSizeAndShutdown(t *testing.T) {
	s := &mocks.MockJobHistoryStore{}
	r := NewRecorder(s, "svc", 2, time.Hour, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(stopped)
	}()

	r.OnJobDone(types.JobInfo{ID: 1}, nil)
	r.OnJobDone(types.JobInfo{ID: 2}, nil)
	require.Eventually(t, func() bool { return s.Inserted() == 2 }, time.Second, 5*time.Millisecond)

	r.OnJobDone(types.JobInfo{ID: 3}, nil)
	cancel()
	<-stopped
	assert.Equal(t, 3, s.Inserted())
}

func TestRecorder_RunFlushesOnInterval(t *testing.T) {
	s := &mocks.MockJobHistoryStore{}
	r := NewRecorder(s, "svc", 100, 10*time.Millisecond, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	r.OnJobDone(types.JobInfo{ID: 1}, nil)
	require.Eventually(t, func() bool { return s.Inserted() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRecorder_BufferDropsOldestWhileStoreIsDown(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	s := &mocks.MockJobHistoryStore{
		BulkInsertFunc: func(context.Context, []types.JobRecord) error {
			if failing.Load() {
				return errors.New("db down")
			}
			return nil
		},
	}
	r := NewRecorder(s, "svc", 2, time.Hour, logging.Discard())
	require.Equal(t, 20, r.Capacity())

	for i := 1; i <= 25; i++ {
		r.OnJobDone(types.JobInfo{ID: types.JobID(i), Status: state.StatusSucceeded}, nil)
	}
	assert.Equal(t, 20, r.Pending())

	r.Flush(context.Background())
	assert.Equal(t, 20, r.Pending())

	for i := 26; i <= 28; i++ {
		r.OnJobDone(types.JobInfo{ID: types.JobID(i), Status: state.StatusSucceeded}, nil)
	}
	r.Flush(context.Background())
	assert.Equal(t, 20, r.Pending())

	failing.Store(false)
	r.Flush(context.Background())
	assert.Equal(t, 0, r.Pending())
	assert.Equal(t, 20, s.Inserted())

	batches := s.Batches()
	require.NotEmpty(t, batches)
	assert.Equal(t, types.JobID(9), batches[0][0].JobID)
	last := batches[len(batches)-1]
	assert.Equal(t, types.JobID(28), last[len(last)-1].JobID)
}
