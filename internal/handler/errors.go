package handler

import (
	"errors"
	"net/http"

	"github.com/templui/gatekeeper/internal/checkin"
	"github.com/templui/gatekeeper/internal/repository"
	"github.com/templui/gatekeeper/internal/service"
)

// statusFor maps domain errors to HTTP status codes. Anything unknown is a
// server error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrGoalNotFound),
		errors.Is(err, checkin.ErrNoActiveSession):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidGoal),
		errors.Is(err, checkin.ErrEmptyReply):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrGoalInSession),
		errors.Is(err, checkin.ErrAnotherSessionActive),
		errors.Is(err, checkin.ErrSessionBusy),
		errors.Is(err, checkin.ErrBootstrapInFlight),
		errors.Is(err, checkin.ErrSessionClosed),
		errors.Is(err, checkin.ErrSessionNotReady):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// publicMessage hides internal error detail behind a generic message.
func publicMessage(status int, err error, fallback string) string {
	if status == http.StatusInternalServerError {
		return fallback
	}
	return err.Error()
}
