package store

import (
	"context"
	"errors"

	"github.com/RezaEskandarii/driveq/internal/state"
	"github.com/RezaEskandarii/driveq/types"
)

var ErrNotFound = errors.New("not found")

// JobHistoryStore keeps terminal job outcomes for the dashboard.
type JobHistoryStore interface {
	// BulkInsert writes a batch of records. An empty batch is a no-op.
	BulkInsert(ctx context.Context, records []types.JobRecord) error

	// List returns records newest first. An empty status matches every status.
	List(ctx context.Context, page, pageSize int, status state.JobStatus) (*types.PaginationResult[types.JobRecord], error)

	// FindByJobID returns ErrNotFound when the instance never recorded the job.
	FindByJobID(ctx context.Context, instance string, jobID types.JobID) (*types.JobRecord, error)

	// CountByStatus includes every terminal status, with zero for those never seen.
	CountByStatus(ctx context.Context) (map[state.JobStatus]int, error)

	Close() error
}

// NewPaginationResult fills the page bookkeeping fields shared by every store.
func NewPaginationResult[T any](items []T, totalItems, page, pageSize int) *types.PaginationResult[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (totalItems + pageSize - 1) / pageSize
	}
	return &types.PaginationResult[T]{
		Items:           items,
		TotalItems:      totalItems,
		Page:            page,
		PageSize:        pageSize,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}

// TerminalStatuses are the statuses a history record can carry.
var TerminalStatuses = []state.JobStatus{
	state.StatusSucceeded,
	state.StatusFailed,
	state.StatusCancelled,
}
