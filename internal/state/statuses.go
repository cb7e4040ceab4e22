package state

type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusRetrying  JobStatus = "retrying"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal reports whether a job in this status has left the scheduler.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

var AllStatuses = []JobStatus{
	StatusQueued,
	StatusRunning,
	StatusRetrying,
	StatusSucceeded,
	StatusFailed,
	StatusCancelled,
}

type Transition struct {
	From JobStatus
	To   JobStatus
}

var ValidTransitions = []Transition{
	{From: StatusQueued, To: StatusRunning},
	{From: StatusQueued, To: StatusCancelled},
	{From: StatusRunning, To: StatusSucceeded},
	{From: StatusRunning, To: StatusFailed},
	{From: StatusRunning, To: StatusCancelled},
	{From: StatusRunning, To: StatusRetrying},
	{From: StatusRetrying, To: StatusQueued},
}

func IsValidTransition(from, to JobStatus) bool {
	for _, t := range ValidTransitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}
