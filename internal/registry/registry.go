// Package registry owns every live job entry and hands out job ids.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/RezaEskandarii/driveq/internal/state"
	"github.com/RezaEskandarii/driveq/types"
)

// Entry is the scheduler-side record of a job. Identity fields are set once
// by Create; the rest is changed only through Registry.Update.
type Entry struct {
	ID       types.JobID
	Type     types.JobType
	Class    types.QueueClass
	Priority types.Priority
	Task     types.Task
	Done     types.DoneFunc
	// Seq is the submission sequence used as the FIFO tie-break, kept across retries.
	Seq uint64

	Status          state.JobStatus
	ProgressCurrent int64
	ProgressTotal   int64
	Attempts        int
	CancelRequested bool
	Token           uint64
	Cancel          context.CancelFunc
	LastErr         error
	CreatedAt       time.Time
	StartedAt       time.Time
}

func (e *Entry) info() types.JobInfo {
	info := types.JobInfo{
		ID:              e.ID,
		Type:            e.Type,
		TypeName:        e.Type.String(),
		Class:           e.Class,
		ClassName:       e.Class.String(),
		Status:          e.Status,
		Priority:        e.Priority,
		PriorityName:    e.Priority.String(),
		ProgressCurrent: e.ProgressCurrent,
		ProgressTotal:   e.ProgressTotal,
		Attempts:        e.Attempts,
		CreatedAt:       e.CreatedAt,
	}
	if !e.StartedAt.IsZero() {
		started := e.StartedAt
		info.StartedAt = &started
	}
	return info
}

type Registry struct {
	mu      sync.RWMutex
	entries map[types.JobID]*Entry
	lastID  types.JobID
	seq     uint64
	now     func() time.Time
}

func New() *Registry {
	return &Registry{
		entries: make(map[types.JobID]*Entry),
		now:     time.Now,
	}
}

// Create registers a queued job and returns its entry. Ids start at 1 and
// are never reused.
func (r *Registry) Create(jobType types.JobType, priority types.Priority, task types.Task, done types.DoneFunc) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	r.seq++
	e := &Entry{
		ID:        r.lastID,
		Type:      jobType,
		Class:     jobType.QueueClass(),
		Priority:  priority,
		Task:      task,
		Done:      done,
		Seq:       r.seq,
		Status:    state.StatusQueued,
		CreatedAt: r.now(),
	}
	r.entries[e.ID] = e
	return e
}

// Lookup returns the live entry. Callers must not mutate it outside Update.
func (r *Registry) Lookup(id types.JobID) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Update applies fn to the entry under the registry lock and returns the
// resulting snapshot. It reports false when the job is no longer registered.
func (r *Registry) Update(id types.JobID, fn func(e *Entry)) (types.JobInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return types.JobInfo{}, false
	}
	fn(e)
	return e.info(), true
}

func (r *Registry) Get(id types.JobID) (types.JobInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return types.JobInfo{}, false
	}
	return e.info(), true
}

// Remove is a no-op for unknown ids.
func (r *Registry) Remove(id types.JobID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// List returns snapshots of every live job ordered by id.
func (r *Registry) List() []types.JobInfo {
	r.mu.RLock()
	infos := make([]types.JobInfo, 0, len(r.entries))
	for _, e := range r.entries {
		infos = append(infos, e.info())
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

func (r *Registry) IDs() []types.JobID {
	r.mu.RLock()
	ids := make([]types.JobID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
