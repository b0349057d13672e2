package checkin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/gatekeeper/internal/model"
)

func TestQueue_FIFOWithDedupe(t *testing.T) {
	q := NewQueue()

	assert.True(t, q.Enqueue(&model.Goal{ID: "a", Title: "A"}))
	assert.True(t, q.Enqueue(&model.Goal{ID: "b", Title: "B"}))
	assert.False(t, q.Enqueue(&model.Goal{ID: "a", Title: "A"}))
	assert.Equal(t, 2, q.Len())

	e, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "a", e.GoalID)
	assert.Equal(t, "A", e.Title)

	e, ok = q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "b", e.GoalID)

	_, ok = q.Dequeue()
	assert.False(t, ok)
}

func TestQueue_SingleFlightLock(t *testing.T) {
	q := NewQueue()
	assert.False(t, q.IsSessionActive())

	require.True(t, q.Acquire("a"))
	assert.True(t, q.IsSessionActive())
	assert.Equal(t, "a", q.ActiveGoalID())
	assert.False(t, q.Acquire("b"), "only one session at a time")

	assert.False(t, q.Enqueue(&model.Goal{ID: "a"}), "active goal is not queued again")
	assert.True(t, q.Enqueue(&model.Goal{ID: "b"}))

	assert.False(t, q.Release("b"), "only the holder releases")
	assert.True(t, q.Release("a"))
	assert.False(t, q.IsSessionActive())
	assert.False(t, q.Release("a"))

	require.True(t, q.Acquire("b"))
	assert.Equal(t, 0, q.Len(), "acquiring drops the queued entry")
}

func TestQueue_RemoveAndPending(t *testing.T) {
	q := NewQueue()
	for _, id := range []string{"a", "b", "c"} {
		q.Enqueue(&model.Goal{ID: id})
	}

	assert.True(t, q.Remove("b"))
	assert.False(t, q.Remove("b"))

	pending := q.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].GoalID)
	assert.Equal(t, "c", pending[1].GoalID)

	pending[0].GoalID = "mutated"
	assert.Equal(t, "a", q.Pending()[0].GoalID, "pending is a copy")
}
