package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/templui/gatekeeper/internal/model"
)

const (
	GoalSortRecent   = "recent"
	GoalSortDeadline = "deadline"
	GoalSortTitle    = "title"
)

var (
	ErrGoalNotFound = errors.New("goal not found")
)

type GoalRepository interface {
	Create(goal *model.Goal) error
	ByID(goalID string) (*model.Goal, error)
	Goals(sortBy string) ([]*model.Goal, error)
	Incomplete() ([]*model.Goal, error)
	Update(goal *model.Goal) error
	Delete(goalID string) error
}

type goalRepository struct {
	db *sqlx.DB
}

func NewGoalRepository(db *sqlx.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) Create(goal *model.Goal) error {
	query := `INSERT INTO goals (id, title, desired_goal, start_state, current_state, end_state, frequency,
	          start_date, end_date, is_completed, last_checked, project_id, voice, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.Exec(query,
		goal.ID,
		goal.Title,
		goal.DesiredGoal,
		goal.StartState,
		goal.CurrentState,
		goal.EndState,
		goal.Frequency,
		goal.StartDate,
		goal.EndDate,
		goal.IsCompleted,
		goal.LastChecked,
		goal.ProjectID,
		goal.Voice,
		goal.CreatedAt,
		goal.UpdatedAt,
	)

	return err
}

func (r *goalRepository) ByID(goalID string) (*model.Goal, error) {
	goal := &model.Goal{}
	query := `SELECT * FROM goals WHERE id = $1`

	err := r.db.Get(goal, query, goalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, err
	}

	return goal, nil
}

func (r *goalRepository) Goals(sortBy string) ([]*model.Goal, error) {
	var goals []*model.Goal

	var orderBy string
	switch sortBy {
	case GoalSortDeadline:
		orderBy = "ORDER BY is_completed ASC, end_date IS NULL, end_date ASC"
	case GoalSortTitle:
		orderBy = "ORDER BY LOWER(title) ASC"
	default: // GoalSortRecent or empty
		orderBy = "ORDER BY updated_at DESC"
	}

	err := r.db.Select(&goals, `SELECT * FROM goals `+orderBy)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

// Incomplete returns open goals in creation order so that scheduler ties
// resolve the same way on every tick.
func (r *goalRepository) Incomplete() ([]*model.Goal, error) {
	var goals []*model.Goal
	query := `SELECT * FROM goals WHERE is_completed = $1 ORDER BY created_at ASC, id ASC`

	err := r.db.Select(&goals, query, false)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

func (r *goalRepository) Update(goal *model.Goal) error {
	query := `UPDATE goals
	          SET title = $1, desired_goal = $2, start_state = $3, current_state = $4, end_state = $5,
	              frequency = $6, start_date = $7, end_date = $8, is_completed = $9, last_checked = $10,
	              project_id = $11, voice = $12, updated_at = $13
	          WHERE id = $14`

	result, err := r.db.Exec(query,
		goal.Title,
		goal.DesiredGoal,
		goal.StartState,
		goal.CurrentState,
		goal.EndState,
		goal.Frequency,
		goal.StartDate,
		goal.EndDate,
		goal.IsCompleted,
		goal.LastChecked,
		goal.ProjectID,
		goal.Voice,
		goal.UpdatedAt,
		goal.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrGoalNotFound
	}

	return nil
}

func (r *goalRepository) Delete(goalID string) error {
	result, err := r.db.Exec(`DELETE FROM goals WHERE id = $1`, goalID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrGoalNotFound
	}

	return nil
}
