package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/templui/gatekeeper/internal/model"
)

var (
	ErrEventNotFound = errors.New("calendar event not found")
)

type CalendarEventRepository interface {
	Create(event *model.CalendarEvent) error
	ByID(eventID string) (*model.CalendarEvent, error)
	Events() ([]*model.CalendarEvent, error)
	Related(projectID, goalTitle string) ([]*model.CalendarEvent, error)
	Update(event *model.CalendarEvent) error
	Delete(eventID string) error
}

type calendarEventRepository struct {
	db *sqlx.DB
}

func NewCalendarEventRepository(db *sqlx.DB) CalendarEventRepository {
	return &calendarEventRepository{db: db}
}

func (r *calendarEventRepository) Create(event *model.CalendarEvent) error {
	query := `INSERT INTO calendar_events (id, title, date, time, type, project_id, color,
	          is_recurring, recurrence_type, recurrence_end_date)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(query,
		event.ID,
		event.Title,
		event.Date,
		event.Time,
		event.Type,
		event.ProjectID,
		event.Color,
		event.IsRecurring,
		event.RecurrenceType,
		event.RecurrenceEndDate,
	)

	return err
}

func (r *calendarEventRepository) ByID(eventID string) (*model.CalendarEvent, error) {
	event := &model.CalendarEvent{}

	err := r.db.Get(event, `SELECT * FROM calendar_events WHERE id = $1`, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}

	return event, nil
}

func (r *calendarEventRepository) Events() ([]*model.CalendarEvent, error) {
	var events []*model.CalendarEvent

	err := r.db.Select(&events, `SELECT * FROM calendar_events ORDER BY date ASC, time ASC, id ASC`)
	if err != nil {
		return nil, err
	}

	return events, nil
}

// Related returns events that share the project or whose title mentions the
// goal title (case-insensitive). Matching runs in Go so titles containing
// LIKE wildcards behave literally.
func (r *calendarEventRepository) Related(projectID, goalTitle string) ([]*model.CalendarEvent, error) {
	events, err := r.Events()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(goalTitle))
	var related []*model.CalendarEvent
	for _, e := range events {
		sameProject := projectID != "" && e.ProjectID == projectID
		mentions := needle != "" && strings.Contains(strings.ToLower(e.Title), needle)
		if sameProject || mentions {
			related = append(related, e)
		}
	}

	return related, nil
}

func (r *calendarEventRepository) Update(event *model.CalendarEvent) error {
	query := `UPDATE calendar_events
	          SET title = $1, date = $2, time = $3, type = $4, project_id = $5, color = $6,
	              is_recurring = $7, recurrence_type = $8, recurrence_end_date = $9
	          WHERE id = $10`

	result, err := r.db.Exec(query,
		event.Title,
		event.Date,
		event.Time,
		event.Type,
		event.ProjectID,
		event.Color,
		event.IsRecurring,
		event.RecurrenceType,
		event.RecurrenceEndDate,
		event.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrEventNotFound
	}

	return nil
}

func (r *calendarEventRepository) Delete(eventID string) error {
	result, err := r.db.Exec(`DELETE FROM calendar_events WHERE id = $1`, eventID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrEventNotFound
	}

	return nil
}
