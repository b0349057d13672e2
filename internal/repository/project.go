package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/templui/gatekeeper/internal/model"
)

var (
	ErrProjectNotFound = errors.New("project not found")
)

type ProjectRepository interface {
	Create(project *model.Project) error
	ByID(projectID string) (*model.Project, error)
	Projects() ([]*model.Project, error)
}

type projectRepository struct {
	db *sqlx.DB
}

func NewProjectRepository(db *sqlx.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(project *model.Project) error {
	_, err := r.db.Exec(`INSERT INTO projects (id, name) VALUES ($1, $2)`, project.ID, project.Name)
	return err
}

func (r *projectRepository) ByID(projectID string) (*model.Project, error) {
	project := &model.Project{}

	err := r.db.Get(project, `SELECT id, name FROM projects WHERE id = $1`, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}

	return project, nil
}

func (r *projectRepository) Projects() ([]*model.Project, error) {
	var projects []*model.Project

	err := r.db.Select(&projects, `SELECT id, name FROM projects ORDER BY LOWER(name) ASC`)
	if err != nil {
		return nil, err
	}

	return projects, nil
}

// UserContextRepository stores the single row of persona defaults.
type UserContextRepository interface {
	Get() (*model.UserContext, error)
	Save(uc *model.UserContext) error
}

type userContextRepository struct {
	db *sqlx.DB
}

func NewUserContextRepository(db *sqlx.DB) UserContextRepository {
	return &userContextRepository{db: db}
}

// Get returns the stored context, or an empty one when nothing was saved yet.
func (r *userContextRepository) Get() (*model.UserContext, error) {
	uc := &model.UserContext{}
	query := `SELECT name, company, voice, back_story, website_links, additional_info
	          FROM user_context WHERE id = 1`

	err := r.db.Get(uc, query)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.UserContext{}, nil
	}
	if err != nil {
		return nil, err
	}

	return uc, nil
}

func (r *userContextRepository) Save(uc *model.UserContext) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`DELETE FROM user_context WHERE id = 1`)
	if err != nil {
		return err
	}

	query := `INSERT INTO user_context (id, name, company, voice, back_story, website_links, additional_info)
	          VALUES (1, $1, $2, $3, $4, $5, $6)`
	_, err = tx.Exec(query, uc.Name, uc.Company, uc.Voice, uc.BackStory, uc.WebsiteLinks, uc.AdditionalInfo)
	if err != nil {
		return err
	}

	return tx.Commit()
}
