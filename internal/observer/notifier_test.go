package observer

import (
	"errors"
	"testing"

	"github.com/RezaEskandarii/driveq/types"
	"github.com/stretchr/testify/assert"
)

func TestNotifier_FanOut(t *testing.T) {
	n := NewNotifier()
	var events []string
	first := &ListenerFuncs{
		Added:   func(info types.JobInfo) { events = append(events, "first added") },
		Updated: func(info types.JobInfo) { events = append(events, "first updated") },
		Done:    func(info types.JobInfo, err error) { events = append(events, "first done: "+err.Error()) },
	}
	second := &ListenerFuncs{
		Added: func(info types.JobInfo) { events = append(events, "second added") },
	}
	n.Add(first)
	n.Add(second)
	n.Add(first)
	assert.Equal(t, 2, n.Len())

	info := types.JobInfo{ID: 1}
	n.JobAdded(info)
	n.JobUpdated(info)
	n.JobDone(info, errors.New("boom"))

	assert.Equal(t, []string{"first added", "second added", "first updated", "first done: boom"}, events)
}

func TestNotifier_RemoveDuringCallback(t *testing.T) {
	n := NewNotifier()
	var calls []string
	var self *ListenerFuncs
	self = &ListenerFuncs{
		Added: func(types.JobInfo) {
			calls = append(calls, "self")
			n.Remove(self)
		},
	}
	other := &ListenerFuncs{
		Added: func(types.JobInfo) { calls = append(calls, "other") },
	}
	n.Add(self)
	n.Add(other)

	n.JobAdded(types.JobInfo{ID: 1})
	n.JobAdded(types.JobInfo{ID: 2})

	assert.Equal(t, []string{"self", "other", "other"}, calls)
	assert.Equal(t, 1, n.Len())
}

func TestNotifier_AddDuringCallback(t *testing.T) {
	n := NewNotifier()
	var calls int
	late := &ListenerFuncs{Added: func(types.JobInfo) { calls++ }}
	n.Add(&ListenerFuncs{Added: func(types.JobInfo) { n.Add(late) }})

	n.JobAdded(types.JobInfo{ID: 1})
	assert.Equal(t, 0, calls)

	n.JobAdded(types.JobInfo{ID: 2})
	assert.Equal(t, 1, calls)
}
