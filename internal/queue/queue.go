// Package queue keeps one pending queue per queue class, ordered by
// priority and then by submission sequence.
package queue

import (
	"sort"
	"sync"

	"github.com/RezaEskandarii/driveq/types"
)

type Item struct {
	ID       types.JobID
	Priority types.Priority
	Seq      uint64
}

func (i Item) before(other Item) bool {
	if i.Priority != other.Priority {
		return i.Priority < other.Priority
	}
	return i.Seq < other.Seq
}

type Set struct {
	mu      sync.Mutex
	buckets map[types.QueueClass][]Item
}

func NewSet() *Set {
	return &Set{buckets: make(map[types.QueueClass][]Item)}
}

// Enqueue inserts the item at its ordered position. Re-inserting a retried
// job with its original seq puts it back ahead of later arrivals of equal priority.
func (s *Set) Enqueue(class types.QueueClass, item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.buckets[class]
	pos := sort.Search(len(bucket), func(i int) bool { return item.before(bucket[i]) })
	bucket = append(bucket, Item{})
	copy(bucket[pos+1:], bucket[pos:])
	bucket[pos] = item
	s.buckets[class] = bucket
}

func (s *Set) Dequeue(class types.QueueClass) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.buckets[class]
	if len(bucket) == 0 {
		return Item{}, false
	}
	head := bucket[0]
	s.buckets[class] = bucket[1:]
	return head, true
}

func (s *Set) Peek(class types.QueueClass) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.buckets[class]
	if len(bucket) == 0 {
		return Item{}, false
	}
	return bucket[0], true
}

func (s *Set) IsEmpty(class types.QueueClass) bool {
	return s.Len(class) == 0
}

func (s *Set) Len(class types.QueueClass) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets[class])
}

// RemoveIfPresent reports whether the job was found and removed.
func (s *Set) RemoveIfPresent(class types.QueueClass, id types.JobID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.buckets[class]
	for i, item := range bucket {
		if item.ID == id {
			s.buckets[class] = append(bucket[:i], bucket[i+1:]...)
			return true
		}
	}
	return false
}

// IDs returns the pending ids of a class in dispatch order.
func (s *Set) IDs(class types.QueueClass) []types.JobID {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.buckets[class]
	ids := make([]types.JobID, len(bucket))
	for i, item := range bucket {
		ids[i] = item.ID
	}
	return ids
}
