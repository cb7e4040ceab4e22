package queue

import (
	"testing"

	"github.com/RezaEskandarii/driveq/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_PriorityThenFIFO(t *testing.T) {
	s := NewSet()
	c := types.MetadataQueue
	s.Enqueue(c, Item{ID: 1, Priority: types.PriorityBackground, Seq: 1})
	s.Enqueue(c, Item{ID: 2, Priority: types.PriorityForeground, Seq: 2})
	s.Enqueue(c, Item{ID: 3, Priority: types.PriorityForeground, Seq: 3})
	s.Enqueue(c, Item{ID: 4, Priority: types.PriorityBackground, Seq: 4})

	assert.Equal(t, []types.JobID{2, 3, 1, 4}, s.IDs(c))

	head, ok := s.Peek(c)
	require.True(t, ok)
	assert.Equal(t, types.JobID(2), head.ID)

	var order []types.JobID
	for !s.IsEmpty(c) {
		item, ok := s.Dequeue(c)
		require.True(t, ok)
		order = append(order, item.ID)
	}
	assert.Equal(t, []types.JobID{2, 3, 1, 4}, order)

	_, ok = s.Dequeue(c)
	assert.False(t, ok)
}

func TestSet_RequeueKeepsOriginalPosition(t *testing.T) {
	s := NewSet()
	c := types.FileQueue
	s.Enqueue(c, Item{ID: 1, Priority: types.PriorityBackground, Seq: 1})
	first, _ := s.Dequeue(c)

	s.Enqueue(c, Item{ID: 2, Priority: types.PriorityBackground, Seq: 2})
	s.Enqueue(c, first)

	assert.Equal(t, []types.JobID{1, 2}, s.IDs(c))
}

func TestSet_ClassesAreIndependent(t *testing.T) {
	s := NewSet()
	s.Enqueue(types.MetadataQueue, Item{ID: 1, Seq: 1})
	s.Enqueue(types.FileQueue, Item{ID: 2, Seq: 2})

	assert.Equal(t, 1, s.Len(types.MetadataQueue))
	assert.Equal(t, 1, s.Len(types.FileQueue))

	assert.False(t, s.RemoveIfPresent(types.MetadataQueue, 2))
	assert.True(t, s.RemoveIfPresent(types.FileQueue, 2))
	assert.True(t, s.IsEmpty(types.FileQueue))
	assert.Equal(t, 1, s.Len(types.MetadataQueue))
}
