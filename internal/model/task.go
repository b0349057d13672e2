package model

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusBacklog TaskStatus = "backlog"
	TaskStatusDoing   TaskStatus = "doing"
	TaskStatusDone    TaskStatus = "done"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusBacklog, TaskStatusDoing, TaskStatusDone:
		return true
	}
	return false
}

type Task struct {
	ID        string     `db:"id" json:"id"`
	Title     string     `db:"title" json:"title"`
	Completed bool       `db:"completed" json:"completed"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	ProjectID string     `db:"project_id" json:"projectId"`
	Status    TaskStatus `db:"status" json:"status"`
}

// SetStatus changes the status and keeps Completed in step with it.
// It reports whether anything changed.
func (t *Task) SetStatus(status TaskStatus) bool {
	completed := status == TaskStatusDone
	if t.Status == status && t.Completed == completed {
		return false
	}
	t.Status = status
	t.Completed = completed
	return true
}
