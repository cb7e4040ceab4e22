package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RezaEskandarii/driveq/internal/connectivity"
	"github.com/RezaEskandarii/driveq/internal/logging"
	"github.com/RezaEskandarii/driveq/internal/observer"
	"github.com/RezaEskandarii/driveq/internal/queue"
	"github.com/RezaEskandarii/driveq/internal/registry"
	"github.com/RezaEskandarii/driveq/internal/state"
	"github.com/RezaEskandarii/driveq/internal/throttle"
	"github.com/RezaEskandarii/driveq/remote"
	"github.com/RezaEskandarii/driveq/types"
	"github.com/RezaEskandarii/driveq/types/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

var ErrAlreadyStarted = errors.New("scheduler already started")

// JobScheduler runs remote operations with a concurrency cap per queue
// class, priority ordering, shared backoff and retries.
//
// All state transitions happen on the goroutine running Start. Public
// methods either read thread-safe snapshots or post a message to that
// goroutine, so they may be called from any goroutine, including from
// observer and completion callbacks.
type JobScheduler struct {
	cfg      *config.SchedulerConfig
	logger   *slog.Logger
	tracer   trace.Tracer
	registry *registry.Registry
	queues   *queue.Set
	throttle *throttle.Controller
	gate     *connectivity.Gate
	notifier *observer.Notifier
	slots    map[types.QueueClass]*semaphore.Weighted
	running  map[types.QueueClass]*atomic.Int64
	mbox     *mailbox
	started  atomic.Bool
	tasks    sync.WaitGroup

	// owned by the scheduler goroutine
	runCtx    context.Context
	timers    map[types.QueueClass]*time.Timer
	dirty     map[types.QueueClass]bool
	lastToken uint64
}

func NewJobScheduler(cfg *config.SchedulerConfig, logger *slog.Logger) *JobScheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &JobScheduler{
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "scheduler")),
		tracer:   otel.Tracer("driveq/scheduler"),
		registry: registry.New(),
		queues:   queue.NewSet(),
		throttle: throttle.NewController(cfg.Throttle),
		gate:     connectivity.NewGate(cfg.DisableOverCellular),
		notifier: observer.NewNotifier(),
		slots:    make(map[types.QueueClass]*semaphore.Weighted),
		running:  make(map[types.QueueClass]*atomic.Int64),
		mbox:     newMailbox(),
		timers:   make(map[types.QueueClass]*time.Timer),
		dirty:    make(map[types.QueueClass]bool),
	}
	for _, class := range types.QueueClasses {
		s.slots[class] = semaphore.NewWeighted(int64(cfg.Cap(class)))
		s.running[class] = &atomic.Int64{}
	}
	return s
}

// Start runs the scheduler loop until ctx is done. Jobs submitted before
// Start are queued and dispatched once the loop runs. In-flight tasks see
// ctx cancellation and Start waits for them before returning.
func (s *JobScheduler) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	s.runCtx = ctx
	s.logger.Info("scheduler started", "instance", s.cfg.Instance)

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()
		case <-s.mbox.wake:
		}

		for {
			msgs := s.mbox.drain()
			if len(msgs) == 0 {
				break
			}
			for _, msg := range msgs {
				msg()
			}
		}
		s.flushTicks()
	}
}

func (s *JobScheduler) shutdown() {
	s.mbox.close()
	for class, timer := range s.timers {
		timer.Stop()
		delete(s.timers, class)
	}
	s.tasks.Wait()
	s.logger.Info("scheduler stopped", "pending_jobs", s.registry.Len())
}

// Submit registers a job and returns its id. The job starts queued; done is
// invoked exactly once with the terminal result, after observers saw JobDone.
func (s *JobScheduler) Submit(jobType types.JobType, priority types.Priority, task types.Task, done types.DoneFunc) types.JobID {
	if task == nil {
		task = func(context.Context, types.ProgressFunc) (any, error) {
			return nil, errors.New("job has no task")
		}
	}
	entry := s.registry.Create(jobType, priority, task, done)
	if !s.mbox.post(func() { s.enqueue(entry) }) {
		// the loop has exited; nothing would ever dispatch or finish this job
		s.registry.Remove(entry.ID)
		s.logger.Warn("job submitted after scheduler stopped", "job_id", entry.ID, "type", jobType.String())
		if done != nil {
			s.guard("done callback", entry.ID, func() {
				done(types.Result{Kind: remote.KindCancelled, Err: remote.ErrCancelled})
			})
		}
	}
	return entry.ID
}

// Cancel removes a queued job or asks a running one to stop. Unknown or
// finished ids are ignored.
func (s *JobScheduler) Cancel(id types.JobID) {
	s.mbox.post(func() { s.cancel(id) })
}

// CancelAll cancels every job that is live when the request is processed.
func (s *JobScheduler) CancelAll() {
	s.mbox.post(func() {
		for _, id := range s.registry.IDs() {
			s.cancel(id)
		}
	})
}

// OnConnectivityChanged pauses every class while the connection is none
// and wakes every class once it is back.
func (s *JobScheduler) OnConnectivityChanged(connection types.ConnectionType) {
	s.mbox.post(func() {
		resumed := s.gate.OnConnectivityChanged(connection)
		s.logger.Info("connectivity changed", "connection", connection.String(), "resumed", resumed)
		if connection != types.ConnectionNone {
			s.markAllDirty()
		}
	})
}

// SetDisabled suspends or resumes dispatch for every class.
func (s *JobScheduler) SetDisabled(disabled bool) {
	s.mbox.post(func() {
		s.gate.SetDisabled(disabled)
		if !disabled {
			s.markAllDirty()
		}
	})
}

func (s *JobScheduler) SetDisableOverCellular(disable bool) {
	s.mbox.post(func() {
		s.gate.SetDisableOverCellular(disable)
		s.markAllDirty()
	})
}

func (s *JobScheduler) AddObserver(l observer.Listener) {
	s.notifier.Add(l)
}

func (s *JobScheduler) RemoveObserver(l observer.Listener) {
	s.notifier.Remove(l)
}

func (s *JobScheduler) ListJobs() []types.JobInfo {
	return s.registry.List()
}

func (s *JobScheduler) GetJob(id types.JobID) (types.JobInfo, bool) {
	return s.registry.Get(id)
}

func (s *JobScheduler) FailureCount(class types.QueueClass) int {
	return s.throttle.FailureCount(class)
}

func (s *JobScheduler) Connectivity() types.ConnectionType {
	return s.gate.State()
}

func (s *JobScheduler) QueueInfo() []types.QueueInfo {
	infos := make([]types.QueueInfo, 0, len(types.QueueClasses))
	for _, class := range types.QueueClasses {
		infos = append(infos, s.queueInfo(class))
	}
	return infos
}

func (s *JobScheduler) queueInfo(class types.QueueClass) types.QueueInfo {
	return types.QueueInfo{
		Class:        class,
		Name:         class.String(),
		Pending:      s.queues.Len(class),
		Running:      int(s.running[class].Load()),
		Cap:          s.cfg.Cap(class),
		FailureCount: s.throttle.FailureCount(class),
		ThrottleWait: s.throttle.Wait(class),
	}
}

func (s *JobScheduler) enqueue(entry *registry.Entry) {
	info, ok := s.registry.Get(entry.ID)
	if !ok {
		return
	}
	s.queues.Enqueue(entry.Class, queue.Item{ID: entry.ID, Priority: entry.Priority, Seq: entry.Seq})
	s.guard("observer", entry.ID, func() { s.notifier.JobAdded(info) })
	s.logger.Debug("job queued", "job_id", entry.ID, "type", entry.Type.String(),
		"priority", entry.Priority.String(), "queue", s.queueInfo(entry.Class).String())
	s.markDirty(entry.Class)
}

func (s *JobScheduler) markDirty(class types.QueueClass) {
	s.dirty[class] = true
}

func (s *JobScheduler) markAllDirty() {
	for _, class := range types.QueueClasses {
		s.dirty[class] = true
	}
}

// flushTicks runs after a batch of messages so that jobs submitted together
// compete by priority before the first of them is dispatched.
func (s *JobScheduler) flushTicks() {
	for _, class := range types.QueueClasses {
		if s.dirty[class] {
			delete(s.dirty, class)
			s.tick(class)
		}
	}
}

// tick dispatches as many jobs of the class as the gate, throttle and cap allow.
func (s *JobScheduler) tick(class types.QueueClass) {
	for {
		head, ok := s.queues.Peek(class)
		if !ok {
			return
		}
		if s.gate.ShouldStopFor(class, head.Priority) {
			return
		}
		if wait := s.throttle.Wait(class); wait > 0 {
			s.armTimer(class, wait)
			return
		}
		if !s.slots[class].TryAcquire(1) {
			return
		}
		s.queues.Dequeue(class)
		s.dispatch(class, head.ID)
	}
}

func (s *JobScheduler) armTimer(class types.QueueClass, wait time.Duration) {
	if _, pending := s.timers[class]; pending {
		return
	}
	s.timers[class] = time.AfterFunc(wait, func() {
		s.mbox.post(func() {
			delete(s.timers, class)
			s.markDirty(class)
		})
	})
}

func (s *JobScheduler) dispatch(class types.QueueClass, id types.JobID) {
	entry, ok := s.registry.Lookup(id)
	if !ok {
		s.slots[class].Release(1)
		return
	}

	s.lastToken++
	token := s.lastToken
	attemptCtx, cancel := context.WithCancel(s.runCtx)
	info, _ := s.registry.Update(id, func(e *registry.Entry) {
		e.Status = state.StatusRunning
		e.Token = token
		e.Cancel = cancel
		e.StartedAt = time.Now()
		e.ProgressCurrent, e.ProgressTotal = 0, 0
	})
	s.running[class].Add(1)

	s.logger.Info("job started", "job_id", id, "type", entry.Type.String(),
		"attempt", entry.Attempts+1, "queue", s.queueInfo(class).String())
	s.guard("observer", id, func() { s.notifier.JobUpdated(info) })

	s.tasks.Add(1)
	go s.runAttempt(attemptCtx, cancel, entry, token)
}

func (s *JobScheduler) runAttempt(ctx context.Context, cancel context.CancelFunc, entry *registry.Entry, token uint64) {
	defer s.tasks.Done()
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "job "+entry.Type.String(),
		trace.WithAttributes(
			attribute.Int64("job.id", int64(entry.ID)),
			attribute.String("job.type", entry.Type.String()),
			attribute.String("job.queue", entry.Class.String()),
			attribute.String("job.priority", entry.Priority.String()),
		),
	)
	defer span.End()

	id := entry.ID
	progress := func(current, total int64) {
		s.mbox.post(func() { s.onProgress(id, token, current, total) })
	}

	payload, err := runTask(ctx, entry.Task, progress)
	kind := remote.Classify(err)
	span.SetAttributes(attribute.String("job.outcome", kind.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	s.mbox.post(func() {
		s.onJobDone(id, token, types.Result{Kind: kind, Payload: payload, Err: err})
	})
}

func runTask(ctx context.Context, task types.Task, progress types.ProgressFunc) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task(ctx, progress)
}

func (s *JobScheduler) onProgress(id types.JobID, token uint64, current, total int64) {
	entry, ok := s.registry.Lookup(id)
	if !ok || entry.Token != token || entry.Status != state.StatusRunning {
		return
	}
	info, _ := s.registry.Update(id, func(e *registry.Entry) {
		e.ProgressCurrent = current
		e.ProgressTotal = total
	})
	s.guard("observer", id, func() { s.notifier.JobUpdated(info) })
}

func (s *JobScheduler) onJobDone(id types.JobID, token uint64, res types.Result) {
	entry, ok := s.registry.Lookup(id)
	if !ok || entry.Token != token || entry.Status != state.StatusRunning {
		s.logger.Debug("dropping stale completion", "job_id", id)
		return
	}
	class := entry.Class
	s.slots[class].Release(1)
	s.running[class].Add(-1)
	s.markDirty(class)

	if entry.CancelRequested {
		res = types.Result{Kind: remote.KindCancelled, Err: remote.ErrCancelled}
	}

	s.logger.Info("job done", "job_id", id, "type", entry.Type.String(), "outcome", res.Kind.String(),
		"elapsed", time.Since(entry.StartedAt), "queue", s.queueInfo(class).String())

	switch res.Kind {
	case remote.KindSuccess:
		s.throttle.RecordSuccess(class)
		s.finalize(entry, res)
	case remote.KindRetryable:
		s.throttle.RecordFailure(class)
		if entry.Attempts < s.cfg.MaxRetries {
			s.retry(entry, res.Err)
			return
		}
		s.logger.Warn("job retries exhausted", "job_id", id, "attempts", entry.Attempts+1, "error", res.Err)
		s.finalize(entry, res)
	default:
		s.finalize(entry, res)
	}
}

// retry puts the job back with its original priority and sequence so it
// keeps its place ahead of later arrivals.
func (s *JobScheduler) retry(entry *registry.Entry, cause error) {
	info, _ := s.registry.Update(entry.ID, func(e *registry.Entry) {
		e.Attempts++
		e.Status = state.StatusRetrying
		e.LastErr = cause
		e.Token = 0
		e.Cancel = nil
	})
	s.guard("observer", entry.ID, func() { s.notifier.JobUpdated(info) })

	s.registry.Update(entry.ID, func(e *registry.Entry) {
		e.Status = state.StatusQueued
	})
	s.queues.Enqueue(entry.Class, queue.Item{ID: entry.ID, Priority: entry.Priority, Seq: entry.Seq})
	s.logger.Info("job requeued", "job_id", entry.ID, "attempts", info.Attempts,
		"throttle_delay", s.throttle.ComputeDelay(entry.Class), "error", cause)
}

func (s *JobScheduler) cancel(id types.JobID) {
	entry, ok := s.registry.Lookup(id)
	if !ok {
		return
	}
	switch entry.Status {
	case state.StatusQueued:
		s.queues.RemoveIfPresent(entry.Class, id)
		s.logger.Info("job cancelled before start", "job_id", id)
		s.finalize(entry, types.Result{Kind: remote.KindCancelled, Err: remote.ErrCancelled})
	case state.StatusRunning:
		if entry.CancelRequested {
			return
		}
		cancel := entry.Cancel
		s.registry.Update(id, func(e *registry.Entry) { e.CancelRequested = true })
		if cancel != nil {
			cancel()
		}
		s.logger.Info("job cancellation requested", "job_id", id)
	}
}

// finalize removes the job, tells observers and then the submitter.
func (s *JobScheduler) finalize(entry *registry.Entry, res types.Result) {
	status := state.StatusFailed
	switch res.Kind {
	case remote.KindSuccess:
		status = state.StatusSucceeded
	case remote.KindCancelled:
		status = state.StatusCancelled
		res.Err = remote.ErrCancelled
	}

	info, ok := s.registry.Update(entry.ID, func(e *registry.Entry) {
		e.Status = status
		e.Cancel = nil
		e.LastErr = res.Err
	})
	if !ok {
		return
	}
	s.registry.Remove(entry.ID)

	s.guard("observer", entry.ID, func() { s.notifier.JobDone(info, res.Err) })
	if entry.Done != nil {
		s.guard("done callback", entry.ID, func() { entry.Done(res) })
	}
}

// guard runs a callback on the loop goroutine. A panic is logged and
// swallowed so the loop keeps running.
func (s *JobScheduler) guard(what string, id types.JobID, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("callback panicked", "callback", what, "job_id", id, "panic", r)
		}
	}()
	fn()
}
