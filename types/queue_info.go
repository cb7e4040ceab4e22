package types

import (
	"fmt"
	"time"
)

// QueueInfo is a diagnostic snapshot of one queue class.
type QueueInfo struct {
	Class        QueueClass    `json:"-"`
	Name         string        `json:"queue"`
	Pending      int           `json:"pending"`
	Running      int           `json:"running"`
	Cap          int           `json:"cap"`
	FailureCount int           `json:"failure_count"`
	ThrottleWait time.Duration `json:"throttle_wait_ns"`
}

func (q QueueInfo) String() string {
	return fmt.Sprintf("%s: pending: %d, running: %d", q.Name, q.Pending, q.Running)
}
