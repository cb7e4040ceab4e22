package types

import (
	"context"
	"time"

	"github.com/RezaEskandarii/driveq/internal/state"
	"github.com/RezaEskandarii/driveq/remote"
)

// JobID identifies a job for as long as the scheduler lives. Zero is never assigned.
type JobID int64

type JobType int

const (
	GetAboutResource JobType = iota
	GetAppList
	GetAllResourceList
	GetResourceListInDirectory
	Search
	GetChangeList
	ContinueGetResourceList
	GetResourceEntry
	DeleteResource
	CopyHostedDocument
	RenameResource
	AddResourceToDirectory
	RemoveResourceFromDirectory
	AddNewDirectory
	CreateFile
	DownloadFile
	UploadNewFile
	UploadExistingFile
)

var jobTypeNames = [...]string{
	GetAboutResource:            "GET_ABOUT_RESOURCE",
	GetAppList:                  "GET_APP_LIST",
	GetAllResourceList:          "GET_ALL_RESOURCE_LIST",
	GetResourceListInDirectory:  "GET_RESOURCE_LIST_IN_DIRECTORY",
	Search:                      "SEARCH",
	GetChangeList:               "GET_CHANGE_LIST",
	ContinueGetResourceList:     "CONTINUE_GET_RESOURCE_LIST",
	GetResourceEntry:            "GET_RESOURCE_ENTRY",
	DeleteResource:              "DELETE_RESOURCE",
	CopyHostedDocument:          "COPY_HOSTED_DOCUMENT",
	RenameResource:              "RENAME_RESOURCE",
	AddResourceToDirectory:      "ADD_RESOURCE_TO_DIRECTORY",
	RemoveResourceFromDirectory: "REMOVE_RESOURCE_FROM_DIRECTORY",
	AddNewDirectory:             "ADD_NEW_DIRECTORY",
	CreateFile:                  "CREATE_FILE",
	DownloadFile:                "DOWNLOAD_FILE",
	UploadNewFile:               "UPLOAD_NEW_FILE",
	UploadExistingFile:          "UPLOAD_EXISTING_FILE",
}

func (t JobType) String() string {
	if t < 0 || int(t) >= len(jobTypeNames) {
		return "UNKNOWN"
	}
	return jobTypeNames[t]
}

// QueueClass maps transfers to the file queue and everything else to the metadata queue.
func (t JobType) QueueClass() QueueClass {
	switch t {
	case DownloadFile, UploadNewFile, UploadExistingFile:
		return FileQueue
	default:
		return MetadataQueue
	}
}

type QueueClass int

const (
	MetadataQueue QueueClass = iota
	FileQueue
)

// QueueClasses lists every class in dispatch order.
var QueueClasses = []QueueClass{MetadataQueue, FileQueue}

func (c QueueClass) String() string {
	switch c {
	case MetadataQueue:
		return "METADATA_QUEUE"
	case FileQueue:
		return "FILE_QUEUE"
	default:
		return "UNKNOWN_QUEUE"
	}
}

// Priority orders jobs inside a queue. Lower values run first.
type Priority int

const (
	PriorityForeground Priority = iota
	PriorityBackground
)

func (p Priority) String() string {
	switch p {
	case PriorityForeground:
		return "foreground"
	case PriorityBackground:
		return "background"
	default:
		return "unknown"
	}
}

// JobInfo is a read-only snapshot of a job handed to callers and observers.
type JobInfo struct {
	ID              JobID           `json:"id"`
	Type            JobType         `json:"-"`
	TypeName        string          `json:"type"`
	Class           QueueClass      `json:"-"`
	ClassName       string          `json:"queue"`
	Status          state.JobStatus `json:"status"`
	Priority        Priority        `json:"-"`
	PriorityName    string          `json:"priority"`
	ProgressCurrent int64           `json:"progress_current"`
	ProgressTotal   int64           `json:"progress_total"`
	Attempts        int             `json:"attempts"`
	CreatedAt       time.Time       `json:"created_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
}

type ProgressFunc = remote.ProgressFunc

// Task performs one attempt of a job. It must honour ctx cancellation and
// may report progress at any time while it runs.
type Task func(ctx context.Context, progress ProgressFunc) (any, error)

// Result is the terminal outcome delivered to the submitter.
type Result struct {
	Kind    remote.ErrorKind
	Payload any
	Err     error
}

func (r Result) Succeeded() bool {
	return r.Kind == remote.KindSuccess
}

type DoneFunc func(Result)
