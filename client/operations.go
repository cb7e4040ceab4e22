package client

import (
	"context"
	"os"

	"github.com/RezaEskandarii/driveq/remote"
	"github.com/RezaEskandarii/driveq/types"
)

// Operations submits typed remote calls through a JobScheduler. Callbacks
// receive the decoded payload and the terminal error, nil on success.
// Operations that carry no priority argument run in the foreground.
type Operations struct {
	scheduler *JobScheduler
	service   remote.Service
	uploader  remote.Uploader
}

func NewOperations(scheduler *JobScheduler, service remote.Service, uploader remote.Uploader) *Operations {
	return &Operations{
		scheduler: scheduler,
		service:   service,
		uploader:  uploader,
	}
}

func (o *Operations) Scheduler() *JobScheduler {
	return o.scheduler
}

func submitTyped[T any](
	s *JobScheduler,
	jobType types.JobType,
	priority types.Priority,
	task func(ctx context.Context, progress types.ProgressFunc) (T, error),
	done func(T, error),
) types.JobID {
	return s.Submit(jobType, priority,
		func(ctx context.Context, progress types.ProgressFunc) (any, error) {
			return task(ctx, progress)
		},
		func(res types.Result) {
			if done == nil {
				return
			}
			var payload T
			if v, ok := res.Payload.(T); ok && res.Err == nil {
				payload = v
			}
			done(payload, res.Err)
		})
}

func submitAction(s *JobScheduler, jobType types.JobType, priority types.Priority, action func(ctx context.Context) error, done func(error)) types.JobID {
	return submitTyped(s, jobType, priority,
		func(ctx context.Context, _ types.ProgressFunc) (struct{}, error) {
			return struct{}{}, action(ctx)
		},
		func(_ struct{}, err error) {
			if done != nil {
				done(err)
			}
		})
}

func (o *Operations) GetAboutResource(done func(*remote.AboutResource, error)) types.JobID {
	return submitTyped(o.scheduler, types.GetAboutResource, types.PriorityForeground,
		func(ctx context.Context, _ types.ProgressFunc) (*remote.AboutResource, error) {
			return o.service.GetAboutResource(ctx)
		}, done)
}

func (o *Operations) GetAppList(done func(*remote.AppList, error)) types.JobID {
	return submitTyped(o.scheduler, types.GetAppList, types.PriorityForeground,
		func(ctx context.Context, _ types.ProgressFunc) (*remote.AppList, error) {
			return o.service.GetAppList(ctx)
		}, done)
}

func (o *Operations) GetAllResourceList(done func(*remote.ResourceList, error)) types.JobID {
	return submitTyped(o.scheduler, types.GetAllResourceList, types.PriorityForeground,
		func(ctx context.Context, _ types.ProgressFunc) (*remote.ResourceList, error) {
			return o.service.GetAllResourceList(ctx)
		}, done)
}

func (o *Operations) GetResourceListInDirectory(directoryResourceID string, done func(*remote.ResourceList, error)) types.JobID {
	return submitTyped(o.scheduler, types.GetResourceListInDirectory, types.PriorityForeground,
		func(ctx context.Context, _ types.ProgressFunc) (*remote.ResourceList, error) {
			return o.service.GetResourceListInDirectory(ctx, directoryResourceID)
		}, done)
}

func (o *Operations) Search(query string, done func(*remote.ResourceList, error)) types.JobID {
	return submitTyped(o.scheduler, types.Search, types.PriorityForeground,
		func(ctx context.Context, _ types.ProgressFunc) (*remote.ResourceList, error) {
			return o.service.Search(ctx, query)
		}, done)
}

// GetChangeList takes a priority so that periodic polling can run in the background.
func (o *Operations) GetChangeList(startChangestamp int64, priority types.Priority, done func(*remote.ResourceList, error)) types.JobID {
	return submitTyped(o.scheduler, types.GetChangeList, priority,
		func(ctx context.Context, _ types.ProgressFunc) (*remote.ResourceList, error) {
			return o.service.GetChangeList(ctx, startChangestamp)
		}, done)
}

func (o *Operations) ContinueGetResourceList(nextLink string, done func(*remote.ResourceList, error)) types.JobID {
	return submitTyped(o.scheduler, types.ContinueGetResourceList, types.PriorityForeground,
		func(ctx context.Context, _ types.ProgressFunc) (*remote.ResourceList, error) {
			return o.service.ContinueGetResourceList(ctx, nextLink)
		}, done)
}

func (o *Operations) GetResourceEntry(resourceID string, priority types.Priority, done func(*remote.ResourceEntry, error)) types.JobID {
	return submitTyped(o.scheduler, types.GetResourceEntry, priority,
		func(ctx context.Context, _ types.ProgressFunc) (*remote.ResourceEntry, error) {
			return o.service.GetResourceEntry(ctx, resourceID)
		}, done)
}

func (o *Operations) DeleteResource(resourceID, etag string, done func(error)) types.JobID {
	return submitAction(o.scheduler, types.DeleteResource, types.PriorityForeground,
		func(ctx context.Context) error {
			return o.service.DeleteResource(ctx, resourceID, etag)
		}, done)
}

func (o *Operations) CopyHostedDocument(resourceID, newTitle string, done func(*remote.ResourceEntry, error)) types.JobID {
	return submitTyped(o.scheduler, types.CopyHostedDocument, types.PriorityForeground,
		func(ctx context.Context, _ types.ProgressFunc) (*remote.ResourceEntry, error) {
			return o.service.CopyHostedDocument(ctx, resourceID, newTitle)
		}, done)
}

func (o *Operations) RenameResource(resourceID, newTitle string, done func(error)) types.JobID {
	return submitAction(o.scheduler, types.RenameResource, types.PriorityForeground,
		func(ctx context.Context) error {
			return o.service.RenameResource(ctx, resourceID, newTitle)
		}, done)
}

func (o *Operations) AddResourceToDirectory(parentResourceID, resourceID string, done func(error)) types.JobID {
	return submitAction(o.scheduler, types.AddResourceToDirectory, types.PriorityForeground,
		func(ctx context.Context) error {
			return o.service.AddResourceToDirectory(ctx, parentResourceID, resourceID)
		}, done)
}

func (o *Operations) RemoveResourceFromDirectory(parentResourceID, resourceID string, done func(error)) types.JobID {
	return submitAction(o.scheduler, types.RemoveResourceFromDirectory, types.PriorityForeground,
		func(ctx context.Context) error {
			return o.service.RemoveResourceFromDirectory(ctx, parentResourceID, resourceID)
		}, done)
}

func (o *Operations) AddNewDirectory(parentResourceID, title string, done func(*remote.ResourceEntry, error)) types.JobID {
	return submitTyped(o.scheduler, types.AddNewDirectory, types.PriorityForeground,
		func(ctx context.Context, _ types.ProgressFunc) (*remote.ResourceEntry, error) {
			return o.service.AddNewDirectory(ctx, parentResourceID, title)
		}, done)
}

// CreateFile creates an empty file by uploading the null device. It is a
// metadata job even though it goes through the uploader.
func (o *Operations) CreateFile(parentResourceID, drivePath, title, contentType string, priority types.Priority, done func(*remote.ResourceEntry, error)) types.JobID {
	req := remote.UploadRequest{
		ParentResourceID: parentResourceID,
		DrivePath:        drivePath,
		LocalPath:        os.DevNull,
		Title:            title,
		ContentType:      contentType,
	}
	return submitTyped(o.scheduler, types.CreateFile, priority,
		func(ctx context.Context, _ types.ProgressFunc) (*remote.ResourceEntry, error) {
			return o.uploader.UploadNewFile(ctx, req, nil)
		}, done)
}

// DownloadFile returns the local path the content was written to.
func (o *Operations) DownloadFile(localPath, downloadURL string, priority types.Priority, done func(string, error)) types.JobID {
	return submitTyped(o.scheduler, types.DownloadFile, priority,
		func(ctx context.Context, progress types.ProgressFunc) (string, error) {
			return o.service.DownloadFile(ctx, localPath, downloadURL, progress)
		}, done)
}

func (o *Operations) UploadNewFile(req remote.UploadRequest, priority types.Priority, done func(*remote.ResourceEntry, error)) types.JobID {
	return submitTyped(o.scheduler, types.UploadNewFile, priority,
		func(ctx context.Context, progress types.ProgressFunc) (*remote.ResourceEntry, error) {
			return o.uploader.UploadNewFile(ctx, req, progress)
		}, done)
}

func (o *Operations) UploadExistingFile(req remote.UploadRequest, priority types.Priority, done func(*remote.ResourceEntry, error)) types.JobID {
	return submitTyped(o.scheduler, types.UploadExistingFile, priority,
		func(ctx context.Context, progress types.ProgressFunc) (*remote.ResourceEntry, error) {
			return o.uploader.UploadExistingFile(ctx, req, progress)
		}, done)
}
