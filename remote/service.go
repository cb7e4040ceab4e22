// Package remote describes the backend the scheduler talks to. The scheduler
// never speaks a wire protocol itself; it only runs these calls and
// classifies their errors.
package remote

import (
	"context"
	"time"
)

// ProgressFunc receives transfer progress in bytes.
type ProgressFunc func(current, total int64)

// AboutResource describes the account quota and the latest changestamp.
type AboutResource struct {
	LargestChangestamp int64
	QuotaBytesTotal    int64
	QuotaBytesUsed     int64
	RootFolderID       string
}

// App is an application registered to open drive files.
type App struct {
	ID   string
	Name string
}

// AppList is the list of installed apps.
type AppList struct {
	Items []App
}

// ResourceEntry is a single file or directory on the backend.
type ResourceEntry struct {
	ResourceID  string
	ParentID    string
	Title       string
	ETag        string
	ContentType string
	IsDirectory bool
	FileSize    int64
	Changestamp int64
	UpdatedAt   time.Time
}

// ResourceList is one page of entries. NextLink is empty on the last page.
type ResourceList struct {
	Entries            []ResourceEntry
	NextLink           string
	LargestChangestamp int64
}

// Service is the set of metadata and download calls the scheduler can queue.
type Service interface {
	GetAboutResource(ctx context.Context) (*AboutResource, error)
	GetAppList(ctx context.Context) (*AppList, error)
	GetAllResourceList(ctx context.Context) (*ResourceList, error)
	GetResourceListInDirectory(ctx context.Context, directoryResourceID string) (*ResourceList, error)
	Search(ctx context.Context, query string) (*ResourceList, error)
	GetChangeList(ctx context.Context, startChangestamp int64) (*ResourceList, error)
	ContinueGetResourceList(ctx context.Context, nextLink string) (*ResourceList, error)
	GetResourceEntry(ctx context.Context, resourceID string) (*ResourceEntry, error)
	DeleteResource(ctx context.Context, resourceID string, etag string) error
	CopyHostedDocument(ctx context.Context, resourceID string, newTitle string) (*ResourceEntry, error)
	RenameResource(ctx context.Context, resourceID string, newTitle string) error
	AddResourceToDirectory(ctx context.Context, parentResourceID string, resourceID string) error
	RemoveResourceFromDirectory(ctx context.Context, parentResourceID string, resourceID string) error
	AddNewDirectory(ctx context.Context, parentResourceID string, title string) (*ResourceEntry, error)
	// DownloadFile writes the content behind downloadURL to localPath and
	// returns the path actually written.
	DownloadFile(ctx context.Context, localPath string, downloadURL string, progress ProgressFunc) (string, error)
}

// UploadRequest is the input of both upload calls. ResourceID and ETag are
// only used when replacing an existing file.
type UploadRequest struct {
	ParentResourceID string
	ResourceID       string
	DrivePath        string
	LocalPath        string
	Title            string
	ContentType      string
	ETag             string
}

// Uploader performs content uploads.
type Uploader interface {
	UploadNewFile(ctx context.Context, req UploadRequest, progress ProgressFunc) (*ResourceEntry, error)
	UploadExistingFile(ctx context.Context, req UploadRequest, progress ProgressFunc) (*ResourceEntry, error)
}
