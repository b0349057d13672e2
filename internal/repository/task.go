package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/templui/gatekeeper/internal/model"
)

var (
	ErrTaskNotFound = errors.New("task not found")
)

type TaskRepository interface {
	Create(task *model.Task) error
	ByID(taskID string) (*model.Task, error)
	Open(projectID string) ([]*model.Task, error)
	ByProject(projectID string) ([]*model.Task, error)
	UpdateStatus(task *model.Task) error
}

type taskRepository struct {
	db *sqlx.DB
}

func NewTaskRepository(db *sqlx.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(task *model.Task) error {
	query := `INSERT INTO tasks (id, title, completed, created_at, project_id, status)
	          VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(query,
		task.ID,
		task.Title,
		task.Completed,
		task.CreatedAt,
		task.ProjectID,
		task.Status,
	)

	return err
}

func (r *taskRepository) ByID(taskID string) (*model.Task, error) {
	task := &model.Task{}

	err := r.db.Get(task, `SELECT * FROM tasks WHERE id = $1`, taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}

	return task, nil
}

// Open returns the project's tasks that are still in backlog or in progress.
func (r *taskRepository) Open(projectID string) ([]*model.Task, error) {
	var tasks []*model.Task
	query := `SELECT * FROM tasks WHERE project_id = $1 AND status IN ($2, $3) ORDER BY created_at ASC`

	err := r.db.Select(&tasks, query, projectID, model.TaskStatusBacklog, model.TaskStatusDoing)
	if err != nil {
		return nil, err
	}

	return tasks, nil
}

func (r *taskRepository) ByProject(projectID string) ([]*model.Task, error) {
	var tasks []*model.Task

	err := r.db.Select(&tasks, `SELECT * FROM tasks WHERE project_id = $1 ORDER BY created_at ASC`, projectID)
	if err != nil {
		return nil, err
	}

	return tasks, nil
}

func (r *taskRepository) UpdateStatus(task *model.Task) error {
	query := `UPDATE tasks SET status = $1, completed = $2 WHERE id = $3`

	result, err := r.db.Exec(query, task.Status, task.Completed, task.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrTaskNotFound
	}

	return nil
}
