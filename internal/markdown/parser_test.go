package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	html, err := NewParser().Parse([]byte("Check in on **Ship v1**\n\n- Write docs\n- Record demo"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<strong>Ship v1</strong>")
	assert.Contains(t, string(html), "<li>Write docs</li>")
}

func TestParseWithMeta(t *testing.T) {
	var meta struct {
		GoalID   string `yaml:"goal_id"`
		Messages int    `yaml:"messages"`
	}

	html, err := NewParser().ParseWithMeta([]byte("---\ngoal_id: g1\nmessages: 3\n---\n\n# Check-in\n"), &meta)
	require.NoError(t, err)
	assert.Equal(t, "g1", meta.GoalID)
	assert.Equal(t, 3, meta.Messages)
	assert.Contains(t, string(html), "<h1>Check-in</h1>")
	assert.NotContains(t, string(html), "goal_id")
}
