package db

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/gatekeeper/internal/model"
)

// LegacyExport is the flat JSON document the old app kept all its
// collections in. Chat history is keyed by goal id.
type LegacyExport struct {
	Goals          []legacyGoal               `json:"goals"`
	Tasks          []legacyTask               `json:"tasks"`
	CalendarEvents []legacyEvent              `json:"calendarEvents"`
	ChatHistory    map[string][]legacyMessage `json:"chatHistory"`
	Projects       []model.Project            `json:"projects"`
	UserContext    *model.UserContext         `json:"userContext"`
}

type legacyGoal struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	DesiredGoal  string     `json:"desiredGoal"`
	StartState   string     `json:"startState"`
	CurrentState string     `json:"currentState"`
	EndState     string     `json:"endState"`
	Frequency    string     `json:"frequency"`
	StartDate    legacyTime `json:"startDate"`
	EndDate      legacyTime `json:"endDate"`
	IsCompleted  bool       `json:"isCompleted"`
	LastChecked  legacyTime `json:"lastChecked"`
	ProjectID    string     `json:"projectId"`
	Voice        string     `json:"voice"`
	CreatedAt    legacyTime `json:"createdAt"`
}

type legacyTask struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Completed bool       `json:"completed"`
	CreatedAt legacyTime `json:"createdAt"`
	ProjectID string     `json:"projectId"`
	Status    string     `json:"status"`
}

type legacyEvent struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Date              string `json:"date"`
	Time              string `json:"time"`
	Type              string `json:"type"`
	ProjectID         string `json:"projectId"`
	Color             string `json:"color"`
	IsRecurring       bool   `json:"isRecurring"`
	RecurrenceType    string `json:"recurrenceType"`
	RecurrenceEndDate string `json:"recurrenceEndDate"`
}

type legacyMessage struct {
	Sender    string     `json:"sender"`
	Text      string     `json:"text"`
	Timestamp legacyTime `json:"timestamp"`
}

// legacyTime accepts RFC 3339 strings, date-only strings and epoch
// milliseconds. Null and empty values stay zero.
type legacyTime struct {
	time.Time
}

func (t *legacyTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		return nil
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		t.Time = time.UnixMilli(ms).UTC()
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("legacy time: %w", err)
	}
	for _, layout := range []string{time.RFC3339Nano, model.DateLayout, "2006-01-02T15:04"} {
		if parsed, err := time.Parse(layout, str); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("legacy time: unsupported value %q", str)
}

func (t legacyTime) ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

type LegacyImportResult struct {
	Source   string
	Skipped  bool
	Goals    int
	Tasks    int
	Events   int
	Messages int
	Projects int
}

// ImportLegacyFile imports the export at path once. Later calls with the
// same path are skipped.
func ImportLegacyFile(db *sqlx.DB, path string) (*LegacyImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read legacy export: %w", err)
	}
	return ImportLegacy(db, path, bytes.NewReader(data), time.Now())
}

// ImportLegacy copies a legacy export into the store in one transaction and
// records source so it never runs twice. Rows whose id already exists are
// left alone.
func ImportLegacy(db *sqlx.DB, source string, r io.Reader, now time.Time) (*LegacyImportResult, error) {
	result := &LegacyImportResult{Source: source}

	var marker string
	err := db.Get(&marker, `SELECT source FROM legacy_imports WHERE source = $1`, source)
	if err == nil {
		result.Skipped = true
		slog.Info("legacy export already imported", "source", source)
		return result, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check legacy marker: %w", err)
	}

	var export LegacyExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("decode legacy export: %w", err)
	}

	tx, err := db.Beginx()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range export.Projects {
		if p.ID == "" {
			continue
		}
		n, err := insert(tx, `INSERT INTO projects (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, p.ID, p.Name)
		if err != nil {
			return nil, fmt.Errorf("import project %s: %w", p.ID, err)
		}
		result.Projects += n
	}

	for _, lg := range export.Goals {
		g := legacyGoalToModel(lg, now)
		n, err := insert(tx, `INSERT INTO goals (id, title, desired_goal, start_state, current_state, end_state, frequency,
		                                         start_date, end_date, is_completed, last_checked, project_id, voice,
		                                         created_at, updated_at)
		                      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		                      ON CONFLICT (id) DO NOTHING`,
			g.ID, g.Title, g.DesiredGoal, g.StartState, g.CurrentState, g.EndState, g.Frequency,
			g.StartDate, g.EndDate, g.IsCompleted, g.LastChecked, g.ProjectID, g.Voice,
			g.CreatedAt, g.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("import goal %s: %w", g.ID, err)
		}
		result.Goals += n
	}

	for _, lt := range export.Tasks {
		t := legacyTaskToModel(lt, now)
		n, err := insert(tx, `INSERT INTO tasks (id, title, completed, created_at, project_id, status)
		                      VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
			t.ID, t.Title, t.Completed, t.CreatedAt, t.ProjectID, t.Status)
		if err != nil {
			return nil, fmt.Errorf("import task %s: %w", t.ID, err)
		}
		result.Tasks += n
	}

	for _, le := range export.CalendarEvents {
		e, ok := legacyEventToModel(le)
		if !ok {
			slog.Warn("skipping legacy event with bad date", "id", le.ID, "date", le.Date)
			continue
		}
		n, err := insert(tx, `INSERT INTO calendar_events (id, title, date, time, type, project_id, color,
		                                                   is_recurring, recurrence_type, recurrence_end_date)
		                      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) ON CONFLICT (id) DO NOTHING`,
			e.ID, e.Title, e.Date, e.Time, e.Type, e.ProjectID, e.Color,
			e.IsRecurring, e.RecurrenceType, e.RecurrenceEndDate)
		if err != nil {
			return nil, fmt.Errorf("import event %s: %w", e.ID, err)
		}
		result.Events += n
	}

	goalIDs := make([]string, 0, len(export.ChatHistory))
	for id := range export.ChatHistory {
		goalIDs = append(goalIDs, id)
	}
	sort.Strings(goalIDs)
	for _, goalID := range goalIDs {
		for _, lm := range export.ChatHistory[goalID] {
			ts := lm.Timestamp.Time
			if ts.IsZero() {
				ts = now
			}
			_, err := tx.Exec(`INSERT INTO chat_messages (id, goal_id, sender, text, timestamp, seq)
			                   SELECT $1, $2, $3, $4, $5, COALESCE(MAX(seq), 0) + 1
			                   FROM chat_messages WHERE goal_id = $2`,
				uuid.New().String(), goalID, legacySender(lm.Sender), lm.Text, ts)
			if err != nil {
				return nil, fmt.Errorf("import chat for goal %s: %w", goalID, err)
			}
			result.Messages++
		}
	}

	if uc := export.UserContext; uc != nil {
		if _, err := tx.Exec(`DELETE FROM user_context`); err != nil {
			return nil, fmt.Errorf("import user context: %w", err)
		}
		_, err := tx.Exec(`INSERT INTO user_context (id, name, company, voice, back_story, website_links, additional_info)
		                   VALUES (1, $1, $2, $3, $4, $5, $6)`,
			uc.Name, uc.Company, uc.Voice, uc.BackStory, uc.WebsiteLinks, uc.AdditionalInfo)
		if err != nil {
			return nil, fmt.Errorf("import user context: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO legacy_imports (source, imported_at) VALUES ($1, $2)`, source, now); err != nil {
		return nil, fmt.Errorf("record legacy import: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	slog.Info("legacy export imported",
		"source", source,
		"goals", result.Goals,
		"tasks", result.Tasks,
		"events", result.Events,
		"messages", result.Messages,
	)
	return result, nil
}

func insert(tx *sqlx.Tx, query string, args ...any) (int, error) {
	res, err := tx.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func legacyGoalToModel(lg legacyGoal, now time.Time) *model.Goal {
	g := &model.Goal{
		ID:           lg.ID,
		Title:        strings.TrimSpace(lg.Title),
		DesiredGoal:  lg.DesiredGoal,
		StartState:   lg.StartState,
		CurrentState: lg.CurrentState,
		EndState:     lg.EndState,
		Frequency:    model.Frequency(strings.ToLower(lg.Frequency)),
		StartDate:    lg.StartDate.Time,
		EndDate:      lg.EndDate.ptr(),
		IsCompleted:  lg.IsCompleted,
		LastChecked:  lg.LastChecked.ptr(),
		ProjectID:    lg.ProjectID,
		Voice:        lg.Voice,
		CreatedAt:    lg.CreatedAt.Time,
		UpdatedAt:    now,
	}
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.Title == "" {
		g.Title = "Untitled goal"
	}
	if !g.Frequency.Valid() {
		g.Frequency = model.FrequencyDaily
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	if g.StartDate.IsZero() {
		g.StartDate = g.CreatedAt
	}
	return g
}

func legacyTaskToModel(lt legacyTask, now time.Time) *model.Task {
	t := &model.Task{
		ID:        lt.ID,
		Title:     lt.Title,
		CreatedAt: lt.CreatedAt.Time,
		ProjectID: lt.ProjectID,
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}

	status := model.TaskStatus(strings.ToLower(lt.Status))
	if !status.Valid() {
		status = model.TaskStatusBacklog
		if lt.Completed {
			status = model.TaskStatusDone
		}
	}
	t.SetStatus(status)
	return t
}

func legacyEventToModel(le legacyEvent) (*model.CalendarEvent, bool) {
	date, err := model.NormalizeDate(le.Date)
	if err != nil || date == "" {
		return nil, false
	}
	e := &model.CalendarEvent{
		ID:                le.ID,
		Title:             le.Title,
		Date:              date,
		Type:              le.Type,
		ProjectID:         le.ProjectID,
		Color:             le.Color,
		IsRecurring:       le.IsRecurring,
		RecurrenceType:    le.RecurrenceType,
		RecurrenceEndDate: le.RecurrenceEndDate,
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Type != model.EventTypeMilestone {
		e.Type = model.EventTypeEvent
	}
	if e.Color == "" {
		e.Color = model.DefaultColor(e.Type)
	}
	if t, err := model.NormalizeTime(le.Time); err == nil {
		e.Time = t
	}
	if d, err := model.NormalizeDate(le.RecurrenceEndDate); err == nil {
		e.RecurrenceEndDate = d
	}
	return e, true
}

func legacySender(sender string) string {
	if strings.EqualFold(sender, model.SenderUser) {
		return model.SenderUser
	}
	return model.SenderGatekeeper
}
