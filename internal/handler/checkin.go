package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/gatekeeper/internal/checkin"
	"github.com/templui/gatekeeper/internal/ui"
)

type CheckInHandler struct {
	manager *checkin.Manager
}

func NewCheckInHandler(manager *checkin.Manager) *CheckInHandler {
	return &CheckInHandler{
		manager: manager,
	}
}

// Status returns the active session, if any, and the waiting queue.
func (h *CheckInHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.manager.Status()
	if status.Queue == nil {
		status.Queue = []checkin.Entry{}
	}
	ui.Render(w, r, http.StatusOK, status)
}

// Open starts a check-in on the goal at the user's request.
func (h *CheckInHandler) Open(w http.ResponseWriter, r *http.Request) {
	goalID := r.PathValue("id")

	view, err := h.manager.OpenManual(r.Context(), goalID)
	if err != nil {
		h.fail(w, r, err, "Failed to open check-in", "goal_id", goalID)
		return
	}

	ui.Render(w, r, http.StatusOK, view)
}

type replyRequest struct {
	GoalID string `json:"goalId"`
	Text   string `json:"text"`
}

func (h *CheckInHandler) Reply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	err := ui.Decode(w, r, &req)
	if err != nil {
		ui.RenderError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		ui.RenderError(w, r, http.StatusBadRequest, checkin.ErrEmptyReply.Error())
		return
	}

	// A client that hangs up does not abort the model call; the reply is
	// still applied and recorded.
	exchange, err := h.manager.Reply(context.WithoutCancel(r.Context()), req.GoalID, req.Text)
	if err != nil {
		h.fail(w, r, err, "Failed to process reply", "goal_id", req.GoalID)
		return
	}

	ui.Render(w, r, http.StatusOK, exchange)
}

type closeRequest struct {
	GoalID string `json:"goalId"`
}

// Close ends the active session. The body is optional.
func (h *CheckInHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	err := ui.Decode(w, r, &req)
	if err != nil && !errors.Is(err, io.EOF) {
		ui.RenderError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	err = h.manager.Close(r.Context(), req.GoalID)
	if err != nil {
		h.fail(w, r, err, "Failed to close check-in", "goal_id", req.GoalID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckInHandler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string, attrs ...any) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(strings.ToLower(fallback), append([]any{"error", err}, attrs...)...)
	}
	ui.RenderError(w, r, status, publicMessage(status, err, fallback))
}
