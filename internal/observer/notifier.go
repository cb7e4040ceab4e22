// Package observer fans job lifecycle events out to registered listeners.
package observer

import (
	"sync"

	"github.com/RezaEskandarii/driveq/types"
)

// Listener receives job lifecycle events on the scheduler goroutine.
// Implementations must be comparable (usually pointers) so they can be removed.
type Listener interface {
	OnJobAdded(info types.JobInfo)
	OnJobUpdated(info types.JobInfo)
	// OnJobDone is called once per job. err is nil on success.
	OnJobDone(info types.JobInfo, err error)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Added   func(types.JobInfo)
	Updated func(types.JobInfo)
	Done    func(types.JobInfo, error)
}

func (f *ListenerFuncs) OnJobAdded(info types.JobInfo) {
	if f.Added != nil {
		f.Added(info)
	}
}

func (f *ListenerFuncs) OnJobUpdated(info types.JobInfo) {
	if f.Updated != nil {
		f.Updated(info)
	}
}

func (f *ListenerFuncs) OnJobDone(info types.JobInfo, err error) {
	if f.Done != nil {
		f.Done(info, err)
	}
}

type Notifier struct {
	mu        sync.Mutex
	listeners []Listener
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

// Add ignores listeners that are already registered.
func (n *Notifier) Add(l Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, existing := range n.listeners {
		if existing == l {
			return
		}
	}
	n.listeners = append(n.listeners, l)
}

func (n *Notifier) Remove(l Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, existing := range n.listeners {
		if existing == l {
			// copy so a snapshot being iterated is left untouched
			next := make([]Listener, 0, len(n.listeners)-1)
			next = append(next, n.listeners[:i]...)
			n.listeners = append(next, n.listeners[i+1:]...)
			return
		}
	}
}

func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}

func (n *Notifier) snapshot() []Listener {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.listeners
}

func (n *Notifier) JobAdded(info types.JobInfo) {
	for _, l := range n.snapshot() {
		l.OnJobAdded(info)
	}
}

func (n *Notifier) JobUpdated(info types.JobInfo) {
	for _, l := range n.snapshot() {
		l.OnJobUpdated(info)
	}
}

func (n *Notifier) JobDone(info types.JobInfo, err error) {
	for _, l := range n.snapshot() {
		l.OnJobDone(info, err)
	}
}
