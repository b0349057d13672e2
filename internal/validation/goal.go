package validation

import (
	"errors"
	"strings"
	"time"

	"github.com/templui/gatekeeper/internal/model"
)

// ValidateTitle validates a goal title
func ValidateTitle(title string) error {
	trimmed := strings.TrimSpace(title)

	if trimmed == "" {
		return errors.New("title is required")
	}

	if len(trimmed) > 200 {
		return errors.New("title is too long (max 200 characters)")
	}

	return nil
}

func ValidateFrequency(f model.Frequency) error {
	if !f.Valid() {
		return errors.New("frequency must be one of minute, hourly, daily, weekly, monthly")
	}
	return nil
}

// ValidateDates rejects a deadline that falls before the start date.
func ValidateDates(start time.Time, end *time.Time) error {
	if end == nil || start.IsZero() {
		return nil
	}
	if end.Before(start) {
		return errors.New("end date must not be before start date")
	}
	return nil
}

// ValidateGoal runs every field check and joins the failures.
func ValidateGoal(g *model.Goal) error {
	return errors.Join(
		ValidateTitle(g.Title),
		ValidateFrequency(g.Frequency),
		ValidateDates(g.StartDate, g.EndDate),
	)
}
