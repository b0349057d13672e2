package service_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/gatekeeper/internal/model"
	"github.com/templui/gatekeeper/internal/service"
)

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryStorage) Save(_ context.Context, key string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memoryStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func TestTranscriptArchiver_RoundTrip(t *testing.T) {
	store := newMemoryStorage()
	archiver := service.NewTranscriptArchiver(store)

	goal := &model.Goal{ID: "g1", Title: "Ship v1", IsCompleted: true}
	messages := []*model.Message{
		{Sender: model.SenderGatekeeper, Text: "How is v1 going?", Timestamp: testNow},
		{Sender: model.SenderUser, Text: "done", Timestamp: testNow.Add(time.Minute)},
		{Sender: model.SenderGatekeeper, Text: "Great job!", Timestamp: testNow.Add(2 * time.Minute)},
	}
	closedAt := testNow.Add(5 * time.Minute)

	key, err := archiver.Archive(context.Background(), goal, messages, true, closedAt)
	require.NoError(t, err)
	assert.Equal(t, "transcripts/g1/20240301T090500Z.md", key)
	assert.Contains(t, store.types[key], "text/markdown")

	transcript, err := archiver.Load(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "g1", transcript.Meta.GoalID)
	assert.Equal(t, "Ship v1", transcript.Meta.Title)
	assert.True(t, transcript.Meta.Scheduled)
	assert.True(t, transcript.Meta.Completed)
	assert.Equal(t, 3, transcript.Meta.Messages)
	assert.True(t, transcript.Meta.ClosedAt.Equal(closedAt))
	assert.Contains(t, string(transcript.HTML), "Great job!")
	assert.NotContains(t, string(transcript.HTML), "goal_id")
}

func TestParseTranscript_WithoutFrontmatter(t *testing.T) {
	transcript, err := service.ParseTranscript([]byte("# Just notes\n"))
	require.NoError(t, err)
	assert.Empty(t, transcript.Meta.GoalID)
	assert.Contains(t, string(transcript.HTML), "Just notes")
}
