package client

import (
	"net/http"
	"testing"

	"github.com/RezaEskandarii/driveq/remote"
	"github.com/RezaEskandarii/driveq/remote/fake"
	"github.com/RezaEskandarii/driveq/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type typedResult[T any] struct {
	box   resultBox
	value T
}

func capture[T any](r *typedResult[T]) func(T, error) {
	return func(v T, err error) {
		r.value = v
		r.box.done(types.Result{Payload: v, Err: err})
	}
}

func captureErr(box *resultBox) func(error) {
	return func(err error) {
		box.done(types.Result{Err: err})
	}
}

func newTestOperations(t *testing.T) (*Operations, *fake.Service) {
	t.Helper()
	s := newTestScheduler(t)
	svc := fake.NewService()
	startScheduler(t, s)
	return NewOperations(s, svc, svc), svc
}

func TestOperations_GetAboutResourceRetriesTransientErrors(t *testing.T) {
	ops, svc := newTestOperations(t)
	svc.FailNext("GetAboutResource", remote.NewError(http.StatusServiceUnavailable, ""))

	var r typedResult[*remote.AboutResource]
	ops.GetAboutResource(capture(&r))

	res := r.box.wait(t)
	require.NoError(t, res.Err)
	assert.Equal(t, fake.RootResourceID, r.value.RootFolderID)
	assert.Equal(t, 2, svc.Calls("GetAboutResource"))
}

func TestOperations_DirectoryWorkflow(t *testing.T) {
	ops, _ := newTestOperations(t)

	var dir typedResult[*remote.ResourceEntry]
	ops.AddNewDirectory(fake.RootResourceID, "docs", capture(&dir))
	require.NoError(t, dir.box.wait(t).Err)

	var created typedResult[*remote.ResourceEntry]
	ops.CreateFile(dir.value.ResourceID, "/docs/notes.txt", "notes.txt", "text/plain", types.PriorityForeground, capture(&created))
	require.NoError(t, created.box.wait(t).Err)

	var renamed resultBox
	ops.RenameResource(created.value.ResourceID, "todo.txt", captureErr(&renamed))
	require.NoError(t, renamed.wait(t).Err)

	var listing typedResult[*remote.ResourceList]
	ops.GetResourceListInDirectory(dir.value.ResourceID, capture(&listing))
	require.NoError(t, listing.box.wait(t).Err)
	require.Len(t, listing.value.Entries, 1)
	assert.Equal(t, "todo.txt", listing.value.Entries[0].Title)

	var search typedResult[*remote.ResourceList]
	ops.Search("todo", capture(&search))
	require.NoError(t, search.box.wait(t).Err)
	assert.Len(t, search.value.Entries, 1)

	var entry typedResult[*remote.ResourceEntry]
	ops.GetResourceEntry(created.value.ResourceID, types.PriorityBackground, capture(&entry))
	require.NoError(t, entry.box.wait(t).Err)

	var copied typedResult[*remote.ResourceEntry]
	ops.CopyHostedDocument(created.value.ResourceID, "copy.txt", capture(&copied))
	require.NoError(t, copied.box.wait(t).Err)
	assert.NotEqual(t, created.value.ResourceID, copied.value.ResourceID)

	var moved resultBox
	ops.RemoveResourceFromDirectory(dir.value.ResourceID, created.value.ResourceID, captureErr(&moved))
	require.NoError(t, moved.wait(t).Err)

	var added resultBox
	ops.AddResourceToDirectory(dir.value.ResourceID, created.value.ResourceID, captureErr(&added))
	require.NoError(t, added.wait(t).Err)

	var deleted resultBox
	ops.DeleteResource(created.value.ResourceID, entry.value.ETag, captureErr(&deleted))
	assert.Equal(t, remote.KindNonRetryable, remote.Classify(deleted.wait(t).Err))

	var all typedResult[*remote.ResourceList]
	ops.GetAllResourceList(capture(&all))
	require.NoError(t, all.box.wait(t).Err)
	assert.Len(t, all.value.Entries, 3)
}

func TestOperations_NonRetryableErrorReachesCallback(t *testing.T) {
	ops, svc := newTestOperations(t)

	var r typedResult[*remote.ResourceEntry]
	ops.GetResourceEntry("missing", types.PriorityForeground, capture(&r))

	res := r.box.wait(t)
	assert.Equal(t, remote.KindNonRetryable, remote.Classify(res.Err))
	assert.Nil(t, r.value)
	assert.Equal(t, 1, svc.Calls("GetResourceEntry"))
}

func TestOperations_TransfersReportProgress(t *testing.T) {
	ops, svc := newTestOperations(t)
	svc.AddEntry(remote.ResourceEntry{ResourceID: "video", Title: "video.mp4", FileSize: 64})
	rec := &recorder{}
	ops.Scheduler().AddObserver(rec)

	var download typedResult[string]
	id := ops.DownloadFile("/tmp/video.mp4", "https://example.com/download/video", types.PriorityForeground, capture(&download))
	require.NoError(t, download.box.wait(t).Err)
	assert.Equal(t, "/tmp/video.mp4", download.value)

	progress := count(rec.forJob(id), func(e event) bool {
		return e.kind == "updated" && e.info.ProgressTotal == 64
	})
	assert.Equal(t, 2, progress)

	var upload typedResult[*remote.ResourceEntry]
	ops.UploadNewFile(remote.UploadRequest{ParentResourceID: fake.RootResourceID, Title: "a.bin"}, types.PriorityBackground, capture(&upload))
	require.NoError(t, upload.box.wait(t).Err)

	var update typedResult[*remote.ResourceEntry]
	ops.UploadExistingFile(remote.UploadRequest{ResourceID: upload.value.ResourceID, ETag: upload.value.ETag, ContentType: "application/zip"}, types.PriorityForeground, capture(&update))
	require.NoError(t, update.box.wait(t).Err)
	assert.Equal(t, "application/zip", update.value.ContentType)
}

func TestOperations_AppListAndChanges(t *testing.T) {
	ops, _ := newTestOperations(t)

	var apps typedResult[*remote.AppList]
	ops.GetAppList(capture(&apps))
	require.NoError(t, apps.box.wait(t).Err)
	assert.Len(t, apps.value.Items, 1)

	var changes typedResult[*remote.ResourceList]
	ops.GetChangeList(0, types.PriorityBackground, capture(&changes))
	require.NoError(t, changes.box.wait(t).Err)

	var next typedResult[*remote.ResourceList]
	ops.ContinueGetResourceList("", capture(&next))
	assert.Error(t, next.box.wait(t).Err)
}
