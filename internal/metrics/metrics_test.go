package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/RezaEskandarii/driveq/internal/state"
	"github.com/RezaEskandarii/driveq/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticQueues []types.QueueInfo

func (s staticQueues) QueueInfo() []types.QueueInfo { return s }

func TestMetrics_CountsLifecycle(t *testing.T) {
	m := New(nil)
	created := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return created.Add(2 * time.Second) }

	info := types.JobInfo{ID: 1, Type: types.DownloadFile, Class: types.FileQueue, CreatedAt: created}
	m.OnJobAdded(info)
	info.Status = state.StatusRunning
	m.OnJobUpdated(info)
	info.Status = state.StatusRetrying
	m.OnJobUpdated(info)
	info.Status = state.StatusFailed
	m.OnJobDone(info, errors.New("unavailable"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsSubmittedTotal.WithLabelValues("FILE_QUEUE", "DOWNLOAD_FILE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsRetriedTotal.WithLabelValues("FILE_QUEUE", "DOWNLOAD_FILE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsCompletedTotal.WithLabelValues("FILE_QUEUE", "failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.JobDurationSeconds))
}

func TestMetrics_QueueCollector(t *testing.T) {
	queues := staticQueues{
		{Class: types.MetadataQueue, Name: "METADATA_QUEUE", Pending: 3, Running: 2, Cap: 5},
		{Class: types.FileQueue, Name: "FILE_QUEUE", Pending: 1, Running: 1, Cap: 1, FailureCount: 2, ThrottleWait: 1500 * time.Millisecond},
	}
	c := newQueueCollector(queues)

	expected := `
# HELP driveq_queue_pending Jobs waiting in the queue
# TYPE driveq_queue_pending gauge
driveq_queue_pending{queue="FILE_QUEUE"} 1
driveq_queue_pending{queue="METADATA_QUEUE"} 3
# HELP driveq_queue_throttle_wait_seconds Remaining backoff before the next dispatch
# TYPE driveq_queue_throttle_wait_seconds gauge
driveq_queue_throttle_wait_seconds{queue="FILE_QUEUE"} 1.5
driveq_queue_throttle_wait_seconds{queue="METADATA_QUEUE"} 0
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"driveq_queue_pending", "driveq_queue_throttle_wait_seconds"))
	assert.Equal(t, 10, testutil.CollectAndCount(c))
}

func TestMetrics_Handler(t *testing.T) {
	m := New(staticQueues{{Name: "METADATA_QUEUE", Cap: 5}})
	m.OnJobAdded(types.JobInfo{Type: types.Search, Class: types.MetadataQueue})

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `driveq_jobs_submitted_total{queue="METADATA_QUEUE",type="SEARCH"} 1`)
	assert.Contains(t, string(body), `driveq_queue_capacity{queue="METADATA_QUEUE"} 5`)
}
