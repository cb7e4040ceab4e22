package mocks

import (
	"context"
	"sync"

	"github.com/RezaEskandarii/driveq/internal/state"
	"github.com/RezaEskandarii/driveq/internal/store"
	"github.com/RezaEskandarii/driveq/types"
)

// MockJobHistoryStore is a mock implementation of store.JobHistoryStore for testing.
// Successful bulk inserts are kept in Batches.
type MockJobHistoryStore struct {
	BulkInsertFunc    func(ctx context.Context, records []types.JobRecord) error
	ListFunc          func(ctx context.Context, page, pageSize int, status state.JobStatus) (*types.PaginationResult[types.JobRecord], error)
	FindByJobIDFunc   func(ctx context.Context, instance string, jobID types.JobID) (*types.JobRecord, error)
	CountByStatusFunc func(ctx context.Context) (map[state.JobStatus]int, error)
	CloseFunc         func() error

	mu      sync.Mutex
	batches [][]types.JobRecord
}

var _ store.JobHistoryStore = (*MockJobHistoryStore)(nil)

func (m *MockJobHistoryStore) BulkInsert(ctx context.Context, records []types.JobRecord) error {
	if m.BulkInsertFunc != nil {
		if err := m.BulkInsertFunc(ctx, records); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.batches = append(m.batches, append([]types.JobRecord(nil), records...))
	m.mu.Unlock()
	return nil
}

func (m *MockJobHistoryStore) List(ctx context.Context, page, pageSize int, status state.JobStatus) (*types.PaginationResult[types.JobRecord], error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, page, pageSize, status)
	}
	return store.NewPaginationResult[types.JobRecord](nil, 0, page, pageSize), nil
}

func (m *MockJobHistoryStore) FindByJobID(ctx context.Context, instance string, jobID types.JobID) (*types.JobRecord, error) {
	if m.FindByJobIDFunc != nil {
		return m.FindByJobIDFunc(ctx, instance, jobID)
	}
	return nil, store.ErrNotFound
}

func (m *MockJobHistoryStore) CountByStatus(ctx context.Context) (map[state.JobStatus]int, error) {
	if m.CountByStatusFunc != nil {
		return m.CountByStatusFunc(ctx)
	}
	return map[state.JobStatus]int{}, nil
}

func (m *MockJobHistoryStore) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *MockJobHistoryStore) Batches() [][]types.JobRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]types.JobRecord(nil), m.batches...)
}

// Inserted counts records across every batch.
func (m *MockJobHistoryStore) Inserted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}
