package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/templui/gatekeeper/internal/llm"
	"github.com/templui/gatekeeper/internal/model"
)

const intakeSystemPrompt = `You turn a person's description of a goal into structured fields.
Today is %s.
Respond with a single JSON object and nothing else:
{
  "title": "short title, max 8 words",
  "desiredGoal": "what success looks like",
  "startState": "where they are today",
  "endState": "the concrete finish line",
  "frequency": "minute | hourly | daily | weekly | monthly",
  "endDate": "YYYY-MM-DD or null",
  "voice": "tone they asked for, or empty"
}
Pick the frequency from how often they want to be held to account; default to daily.`

type intakeAnswer struct {
	Title       string  `json:"title"`
	DesiredGoal string  `json:"desiredGoal"`
	StartState  string  `json:"startState"`
	EndState    string  `json:"endState"`
	Frequency   string  `json:"frequency"`
	EndDate     *string `json:"endDate"`
	Voice       string  `json:"voice"`
}

func (s *GoalService) parseIntake(ctx context.Context, text string) (GoalInput, error) {
	if s.llm == nil {
		return GoalInput{}, llm.ErrProviderUnavailable
	}

	now := s.now()
	resp, err := s.llm.Complete(ctx, llm.Request{
		System: fmt.Sprintf(intakeSystemPrompt, now.Format(model.DateLayout)),
		User:   text,
		JSON:   true,
	})
	if err != nil {
		return GoalInput{}, err
	}

	var answer intakeAnswer
	if err := llm.DecodeJSON(resp.Content, &answer); err != nil {
		return GoalInput{}, err
	}
	if strings.TrimSpace(answer.Title) == "" {
		return GoalInput{}, fmt.Errorf("%w: intake answer has no title", llm.ErrMalformedResponse)
	}

	frequency := model.Frequency(strings.ToLower(strings.TrimSpace(answer.Frequency)))
	if !frequency.Valid() {
		frequency = model.FrequencyDaily
	}

	current := answer.StartState
	input := GoalInput{
		Title:        &answer.Title,
		DesiredGoal:  &answer.DesiredGoal,
		StartState:   &answer.StartState,
		CurrentState: &current,
		EndState:     &answer.EndState,
		Frequency:    &frequency,
		Voice:        &answer.Voice,
	}

	if answer.EndDate != nil && *answer.EndDate != "" {
		end, err := parseIntakeDate(*answer.EndDate, now.Location())
		if err != nil {
			return GoalInput{}, errors.Join(llm.ErrMalformedResponse, err)
		}
		input.EndDate = &end
	}
	return input, nil
}

// parseIntakeDate puts a date-only deadline at the end of that day.
func parseIntakeDate(value string, loc *time.Location) (time.Time, error) {
	normalized, err := model.NormalizeDate(value)
	if err != nil {
		return time.Time{}, err
	}
	day, err := time.ParseInLocation(model.DateLayout, normalized, loc)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(24*time.Hour - time.Second), nil
}

func fallbackIntake(text string) GoalInput {
	title := strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	if utf8.RuneCountInString(title) > 80 {
		title = string([]rune(title)[:80])
	}
	frequency := model.FrequencyDaily
	return GoalInput{
		Title:       &title,
		DesiredGoal: &text,
		Frequency:   &frequency,
	}
}
