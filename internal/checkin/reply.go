package checkin

import (
	"context"
	"fmt"
	"strings"

	"github.com/templui/gatekeeper/internal/llm"
)

const (
	ActionCreate   = "create"
	ActionComplete = "complete"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
)

// TaskAction is one task change requested by the model.
type TaskAction struct {
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
	Title  string `json:"title,omitempty"`
	Status string `json:"status,omitempty"`
}

// EventAction is one calendar change requested by the model. Nil fields are
// left alone on update.
type EventAction struct {
	Action            string  `json:"action"`
	ID                string  `json:"id,omitempty"`
	Title             *string `json:"title,omitempty"`
	Date              *string `json:"date,omitempty"`
	Time              *string `json:"time,omitempty"`
	Type              *string `json:"type,omitempty"`
	Color             *string `json:"color,omitempty"`
	ProjectID         *string `json:"projectId,omitempty"`
	IsRecurring       *bool   `json:"isRecurring,omitempty"`
	RecurrenceType    *string `json:"recurrenceType,omitempty"`
	RecurrenceEndDate *string `json:"recurrenceEndDate,omitempty"`
}

// ReplyResult is the model's structured answer to a user message.
type ReplyResult struct {
	IsCompleted     bool          `json:"isCompleted"`
	NewCurrentState *string       `json:"newCurrentState"`
	Tasks           []TaskAction  `json:"tasks"`
	CalendarEvents  []EventAction `json:"calendarEvents"`
	Reply           string        `json:"reply"`
}

type openingResult struct {
	Message string `json:"message"`
}

// Processor asks the model for check-in messages and structured replies. It
// only returns values; applying them is the caller's job.
type Processor struct {
	client llm.Client
}

func NewProcessor(client llm.Client) *Processor {
	return &Processor{client: client}
}

// Process sends the user's message with the goal context and parses the
// structured answer. Any failure leaves nothing to apply.
func (p *Processor) Process(ctx context.Context, snap *Snapshot, text string) (*ReplyResult, error) {
	if p.client == nil {
		return nil, llm.ErrProviderUnavailable
	}

	resp, err := p.client.Complete(ctx, llm.Request{
		System: replySystemPrompt(snap),
		User:   text,
		JSON:   true,
	})
	if err != nil {
		return nil, err
	}
	return ParseReply(resp.Content)
}

// Opening asks for the first message of a conversation, or a single
// follow-up when followUp is set.
func (p *Processor) Opening(ctx context.Context, snap *Snapshot, followUp bool) (string, error) {
	if p.client == nil {
		return "", llm.ErrProviderUnavailable
	}

	user := "Start the check-in."
	if followUp {
		user = "Continue the check-in."
	}
	resp, err := p.client.Complete(ctx, llm.Request{
		System: openingSystemPrompt(snap, followUp),
		User:   user,
		JSON:   true,
	})
	if err != nil {
		return "", err
	}

	var out openingResult
	if err := llm.DecodeJSON(resp.Content, &out); err != nil {
		return "", err
	}
	msg := strings.TrimSpace(out.Message)
	if msg == "" {
		return "", fmt.Errorf("%w: opening has no message", llm.ErrMalformedResponse)
	}
	return msg, nil
}

// ParseReply decodes model output into a ReplyResult. The JSON must be
// well formed as sent: no repair is attempted, since the result drives
// mutations. A missing reply is malformed even when the JSON is valid.
func ParseReply(content string) (*ReplyResult, error) {
	var result ReplyResult
	if err := llm.DecodeStrictJSON(content, &result); err != nil {
		return nil, err
	}

	result.Reply = strings.TrimSpace(result.Reply)
	if result.Reply == "" {
		return nil, fmt.Errorf("%w: reply is missing", llm.ErrMalformedResponse)
	}
	if result.NewCurrentState != nil {
		state := strings.TrimSpace(*result.NewCurrentState)
		if state == "" {
			result.NewCurrentState = nil
		} else {
			result.NewCurrentState = &state
		}
	}
	return &result, nil
}
