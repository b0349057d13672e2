package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/templui/gatekeeper/internal/markdown"
	"github.com/templui/gatekeeper/internal/model"
	"github.com/templui/gatekeeper/internal/storage"
	"gopkg.in/yaml.v3"
)

// TranscriptMeta is the frontmatter of an archived check-in.
type TranscriptMeta struct {
	GoalID    string    `yaml:"goal_id"`
	Title     string    `yaml:"title"`
	Scheduled bool      `yaml:"scheduled"`
	ClosedAt  time.Time `yaml:"closed_at"`
	Messages  int       `yaml:"messages"`
	Completed bool      `yaml:"completed"`
}

type Transcript struct {
	Meta TranscriptMeta
	HTML []byte
}

// TranscriptArchiver uploads closed check-ins as markdown documents.
type TranscriptArchiver struct {
	store storage.Storage
}

func NewTranscriptArchiver(store storage.Storage) *TranscriptArchiver {
	return &TranscriptArchiver{store: store}
}

func TranscriptKey(goalID string, closedAt time.Time) string {
	return fmt.Sprintf("transcripts/%s/%s.md", goalID, closedAt.UTC().Format("20060102T150405Z"))
}

func (a *TranscriptArchiver) Archive(ctx context.Context, goal *model.Goal, messages []*model.Message, scheduled bool, closedAt time.Time) (string, error) {
	doc, err := RenderTranscript(goal, messages, scheduled, closedAt)
	if err != nil {
		return "", err
	}

	key := TranscriptKey(goal.ID, closedAt)
	if err := a.store.Save(ctx, key, bytes.NewReader(doc), "text/markdown; charset=utf-8"); err != nil {
		return "", err
	}
	return key, nil
}

// Load fetches and parses an archived transcript.
func (a *TranscriptArchiver) Load(ctx context.Context, key string) (*Transcript, error) {
	rc, err := a.store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return ParseTranscript(data)
}

func RenderTranscript(goal *model.Goal, messages []*model.Message, scheduled bool, closedAt time.Time) ([]byte, error) {
	meta := TranscriptMeta{
		GoalID:    goal.ID,
		Title:     goal.Title,
		Scheduled: scheduled,
		ClosedAt:  closedAt.UTC(),
		Messages:  len(messages),
		Completed: goal.IsCompleted,
	}
	front, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal transcript meta: %w", err)
	}

	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(front)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# Check-in: %s\n\n", goal.Title)
	for _, m := range messages {
		fmt.Fprintf(&b, "**%s** · %s\n\n", m.Sender, m.Timestamp.UTC().Format("2006-01-02 15:04"))
		b.WriteString(strings.TrimSpace(m.Text))
		b.WriteString("\n\n")
	}
	return b.Bytes(), nil
}

func ParseTranscript(data []byte) (*Transcript, error) {
	var meta TranscriptMeta
	html, err := markdown.NewParser().ParseWithMeta(data, &meta)
	if err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	return &Transcript{Meta: meta, HTML: html}, nil
}
