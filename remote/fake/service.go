// Package fake is an in-memory remote.Service used by tests and the demo
// binary. Failures can be scripted per operation.
package fake

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/RezaEskandarii/driveq/remote"
)

const RootResourceID = "fake_root"

// Service keeps resources in memory and counts calls per operation name.
type Service struct {
	mu          sync.Mutex
	entries     map[string]*remote.ResourceEntry
	changestamp int64
	nextID      int
	errors      map[string][]error
	calls       map[string]int
	latency     time.Duration
	offline     bool
}

var (
	_ remote.Service  = (*Service)(nil)
	_ remote.Uploader = (*Service)(nil)
)

func NewService() *Service {
	s := &Service{
		entries: make(map[string]*remote.ResourceEntry),
		errors:  make(map[string][]error),
		calls:   make(map[string]int),
	}
	s.entries[RootResourceID] = &remote.ResourceEntry{
		ResourceID:  RootResourceID,
		Title:       "My Drive",
		IsDirectory: true,
	}
	return s
}

// FailNext makes the next len(errs) calls of op return errs in order.
func (s *Service) FailNext(op string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[op] = append(s.errors[op], errs...)
}

// SetLatency delays every call; the delay honours context cancellation.
func (s *Service) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// SetOffline makes every call fail with 503 until switched back.
func (s *Service) SetOffline(offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = offline
}

func (s *Service) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// AddEntry stores an entry directly, bumping the changestamp.
func (s *Service) AddEntry(entry remote.ResourceEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(&entry)
}

// begin records the call and returns the scripted error, if any. It must be
// called without holding the lock.
func (s *Service) begin(ctx context.Context, op string) error {
	s.mu.Lock()
	s.calls[op]++
	latency := s.latency
	var scripted error
	if queued := s.errors[op]; len(queued) > 0 {
		scripted = queued[0]
		s.errors[op] = queued[1:]
	}
	offline := s.offline
	s.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if offline {
		return remote.NewError(http.StatusServiceUnavailable, "backend offline")
	}
	return scripted
}

func (s *Service) putLocked(entry *remote.ResourceEntry) {
	if entry.ResourceID == "" {
		s.nextID++
		entry.ResourceID = fmt.Sprintf("resource_%d", s.nextID)
	}
	if entry.ParentID == "" && entry.ResourceID != RootResourceID {
		entry.ParentID = RootResourceID
	}
	s.changestamp++
	entry.Changestamp = s.changestamp
	entry.ETag = fmt.Sprintf("etag_%d", s.changestamp)
	entry.UpdatedAt = time.Now()
	s.entries[entry.ResourceID] = entry
}

func (s *Service) lookupLocked(resourceID string) (*remote.ResourceEntry, error) {
	entry, ok := s.entries[resourceID]
	if !ok {
		return nil, remote.NewError(http.StatusNotFound, fmt.Sprintf("resource %q not found", resourceID))
	}
	return entry, nil
}

func (s *Service) listLocked(match func(*remote.ResourceEntry) bool) *remote.ResourceList {
	list := &remote.ResourceList{LargestChangestamp: s.changestamp}
	for _, entry := range s.entries {
		if entry.ResourceID == RootResourceID || !match(entry) {
			continue
		}
		list.Entries = append(list.Entries, *entry)
	}
	sort.Slice(list.Entries, func(i, j int) bool {
		return list.Entries[i].ResourceID < list.Entries[j].ResourceID
	})
	return list
}

func (s *Service) GetAboutResource(ctx context.Context) (*remote.AboutResource, error) {
	if err := s.begin(ctx, "GetAboutResource"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var used int64
	for _, entry := range s.entries {
		used += entry.FileSize
	}
	return &remote.AboutResource{
		LargestChangestamp: s.changestamp,
		QuotaBytesTotal:    15 << 30,
		QuotaBytesUsed:     used,
		RootFolderID:       RootResourceID,
	}, nil
}

func (s *Service) GetAppList(ctx context.Context) (*remote.AppList, error) {
	if err := s.begin(ctx, "GetAppList"); err != nil {
		return nil, err
	}
	return &remote.AppList{Items: []remote.App{{ID: "fake_app", Name: "Fake Editor"}}}, nil
}

func (s *Service) GetAllResourceList(ctx context.Context) (*remote.ResourceList, error) {
	if err := s.begin(ctx, "GetAllResourceList"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(func(*remote.ResourceEntry) bool { return true }), nil
}

func (s *Service) GetResourceListInDirectory(ctx context.Context, directoryResourceID string) (*remote.ResourceList, error) {
	if err := s.begin(ctx, "GetResourceListInDirectory"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookupLocked(directoryResourceID); err != nil {
		return nil, err
	}
	return s.listLocked(func(e *remote.ResourceEntry) bool { return e.ParentID == directoryResourceID }), nil
}

func (s *Service) Search(ctx context.Context, query string) (*remote.ResourceList, error) {
	if err := s.begin(ctx, "Search"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	query = strings.ToLower(query)
	return s.listLocked(func(e *remote.ResourceEntry) bool {
		return strings.Contains(strings.ToLower(e.Title), query)
	}), nil
}

func (s *Service) GetChangeList(ctx context.Context, startChangestamp int64) (*remote.ResourceList, error) {
	if err := s.begin(ctx, "GetChangeList"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(func(e *remote.ResourceEntry) bool { return e.Changestamp >= startChangestamp }), nil
}

// ContinueGetResourceList always returns an empty last page.
func (s *Service) ContinueGetResourceList(ctx context.Context, nextLink string) (*remote.ResourceList, error) {
	if err := s.begin(ctx, "ContinueGetResourceList"); err != nil {
		return nil, err
	}
	if nextLink == "" {
		return nil, remote.NewError(http.StatusBadRequest, "empty next link")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return &remote.ResourceList{LargestChangestamp: s.changestamp}, nil
}

func (s *Service) GetResourceEntry(ctx context.Context, resourceID string) (*remote.ResourceEntry, error) {
	if err := s.begin(ctx, "GetResourceEntry"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.lookupLocked(resourceID)
	if err != nil {
		return nil, err
	}
	copied := *entry
	return &copied, nil
}

func (s *Service) DeleteResource(ctx context.Context, resourceID string, etag string) error {
	if err := s.begin(ctx, "DeleteResource"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.lookupLocked(resourceID)
	if err != nil {
		return err
	}
	if etag != "" && etag != entry.ETag {
		return remote.NewError(http.StatusPreconditionFailed, "etag mismatch")
	}
	delete(s.entries, resourceID)
	s.changestamp++
	return nil
}

func (s *Service) CopyHostedDocument(ctx context.Context, resourceID string, newTitle string) (*remote.ResourceEntry, error) {
	if err := s.begin(ctx, "CopyHostedDocument"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.lookupLocked(resourceID)
	if err != nil {
		return nil, err
	}
	copied := *entry
	copied.ResourceID = ""
	copied.Title = newTitle
	s.putLocked(&copied)
	result := copied
	return &result, nil
}

func (s *Service) RenameResource(ctx context.Context, resourceID string, newTitle string) error {
	if err := s.begin(ctx, "RenameResource"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.lookupLocked(resourceID)
	if err != nil {
		return err
	}
	entry.Title = newTitle
	s.putLocked(entry)
	return nil
}

func (s *Service) AddResourceToDirectory(ctx context.Context, parentResourceID string, resourceID string) error {
	if err := s.begin(ctx, "AddResourceToDirectory"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookupLocked(parentResourceID); err != nil {
		return err
	}
	entry, err := s.lookupLocked(resourceID)
	if err != nil {
		return err
	}
	entry.ParentID = parentResourceID
	s.putLocked(entry)
	return nil
}

func (s *Service) RemoveResourceFromDirectory(ctx context.Context, parentResourceID string, resourceID string) error {
	if err := s.begin(ctx, "RemoveResourceFromDirectory"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.lookupLocked(resourceID)
	if err != nil {
		return err
	}
	if entry.ParentID != parentResourceID {
		return remote.NewError(http.StatusNotFound, "resource is not in directory")
	}
	entry.ParentID = RootResourceID
	s.putLocked(entry)
	return nil
}

func (s *Service) AddNewDirectory(ctx context.Context, parentResourceID string, title string) (*remote.ResourceEntry, error) {
	if err := s.begin(ctx, "AddNewDirectory"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookupLocked(parentResourceID); err != nil {
		return nil, err
	}
	entry := &remote.ResourceEntry{ParentID: parentResourceID, Title: title, IsDirectory: true}
	s.putLocked(entry)
	copied := *entry
	return &copied, nil
}

// DownloadFile reports progress for the entry size but writes nothing to disk.
func (s *Service) DownloadFile(ctx context.Context, localPath string, downloadURL string, progress remote.ProgressFunc) (string, error) {
	if err := s.begin(ctx, "DownloadFile"); err != nil {
		return "", err
	}
	resourceID := downloadURL[strings.LastIndex(downloadURL, "/")+1:]
	s.mu.Lock()
	entry, err := s.lookupLocked(resourceID)
	var size int64
	if err == nil {
		size = entry.FileSize
	}
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	if progress != nil {
		progress(size/2, size)
		progress(size, size)
	}
	return localPath, nil
}

func (s *Service) UploadNewFile(ctx context.Context, req remote.UploadRequest, progress remote.ProgressFunc) (*remote.ResourceEntry, error) {
	if err := s.begin(ctx, "UploadNewFile"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookupLocked(req.ParentResourceID); err != nil {
		return nil, err
	}
	entry := &remote.ResourceEntry{
		ParentID:    req.ParentResourceID,
		Title:       req.Title,
		ContentType: req.ContentType,
	}
	s.putLocked(entry)
	if progress != nil {
		progress(0, 0)
	}
	copied := *entry
	return &copied, nil
}

func (s *Service) UploadExistingFile(ctx context.Context, req remote.UploadRequest, progress remote.ProgressFunc) (*remote.ResourceEntry, error) {
	if err := s.begin(ctx, "UploadExistingFile"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.lookupLocked(req.ResourceID)
	if err != nil {
		return nil, err
	}
	if req.ETag != "" && req.ETag != entry.ETag {
		return nil, remote.NewError(http.StatusPreconditionFailed, "etag mismatch")
	}
	if req.ContentType != "" {
		entry.ContentType = req.ContentType
	}
	s.putLocked(entry)
	if progress != nil {
		progress(0, 0)
	}
	copied := *entry
	return &copied, nil
}
