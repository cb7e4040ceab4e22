package types

import (
	"time"

	"github.com/RezaEskandarii/driveq/internal/state"
)

// JobRecord is the persisted outcome of a finished job.
type JobRecord struct {
	ID         int64           `json:"id"`
	Instance   string          `json:"instance"`
	JobID      JobID           `json:"job_id"`
	Type       string          `json:"type"`
	Queue      string          `json:"queue"`
	Priority   string          `json:"priority"`
	Status     state.JobStatus `json:"status"`
	Attempts   int             `json:"attempts"`
	LastError  *string         `json:"last_error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt time.Time       `json:"finished_at"`
}

// NewJobRecord builds the record for a job that just reached a terminal status.
func NewJobRecord(instance string, info JobInfo, err error, finishedAt time.Time) JobRecord {
	record := JobRecord{
		Instance:   instance,
		JobID:      info.ID,
		Type:       info.Type.String(),
		Queue:      info.Class.String(),
		Priority:   info.Priority.String(),
		Status:     info.Status,
		Attempts:   info.Attempts,
		CreatedAt:  info.CreatedAt,
		StartedAt:  info.StartedAt,
		FinishedAt: finishedAt,
	}
	if err != nil {
		msg := err.Error()
		record.LastError = &msg
	}
	return record
}
