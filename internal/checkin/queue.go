package checkin

import (
	"sync"
	"time"

	"github.com/templui/gatekeeper/internal/model"
)

// Entry is a goal waiting for its check-in.
type Entry struct {
	GoalID     string    `json:"goalId"`
	Title      string    `json:"title"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Queue is a FIFO of due goals plus the single-flight lock that allows one
// active session at a time. A goal appears at most once, counting the goal
// under the active session.
type Queue struct {
	mu      sync.Mutex
	entries []Entry
	active  string
	now     func() time.Time
}

func NewQueue() *Queue {
	return &Queue{now: time.Now}
}

// Enqueue adds goal to the back of the queue. It reports false when the goal
// is already queued or under the active session.
func (q *Queue) Enqueue(goal *model.Goal) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if goal.ID == q.active || q.indexOf(goal.ID) >= 0 {
		return false
	}
	q.entries = append(q.entries, Entry{GoalID: goal.ID, Title: goal.Title, EnqueuedAt: q.now()})
	return true
}

func (q *Queue) Dequeue() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return Entry{}, false
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e, true
}

// Remove drops a queued goal. The active session is not affected.
func (q *Queue) Remove(goalID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOf(goalID)
	if i < 0 {
		return false
	}
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	return true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Pending returns a copy of the waiting entries in order.
func (q *Queue) Pending() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *Queue) IsSessionActive() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active != ""
}

func (q *Queue) ActiveGoalID() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// Acquire takes the single-flight lock for goalID. It fails while any
// session is active. A queued entry for the same goal is dropped.
func (q *Queue) Acquire(goalID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.active != "" || goalID == "" {
		return false
	}
	if i := q.indexOf(goalID); i >= 0 {
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
	}
	q.active = goalID
	return true
}

// Release frees the lock if goalID holds it.
func (q *Queue) Release(goalID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.active == "" || q.active != goalID {
		return false
	}
	q.active = ""
	return true
}

func (q *Queue) indexOf(goalID string) int {
	for i, e := range q.entries {
		if e.GoalID == goalID {
			return i
		}
	}
	return -1
}
