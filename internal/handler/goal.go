package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/gatekeeper/internal/model"
	"github.com/templui/gatekeeper/internal/service"
	"github.com/templui/gatekeeper/internal/ui"
)

type GoalHandler struct {
	goalService *service.GoalService
}

func NewGoalHandler(goalService *service.GoalService) *GoalHandler {
	return &GoalHandler{
		goalService: goalService,
	}
}

func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	sortBy := r.URL.Query().Get("sort")
	if sortBy == "" {
		sortBy = "recent"
	}

	goals, err := h.goalService.Goals(sortBy)
	if err != nil {
		slog.Error("failed to get goals", "error", err)
		ui.RenderError(w, r, http.StatusInternalServerError, "Failed to load goals")
		return
	}
	if goals == nil {
		goals = []*model.Goal{}
	}

	ui.Render(w, r, http.StatusOK, goals)
}

func (h *GoalHandler) Get(w http.ResponseWriter, r *http.Request) {
	goalID := r.PathValue("id")

	goal, err := h.goalService.ByID(goalID)
	if err != nil {
		h.fail(w, r, err, "Failed to load goal", "goal_id", goalID)
		return
	}

	ui.Render(w, r, http.StatusOK, goal)
}

func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.GoalInput
	err := ui.Decode(w, r, &input)
	if err != nil {
		ui.RenderError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	goal, err := h.goalService.Create(input)
	if err != nil {
		h.fail(w, r, err, "Failed to create goal")
		return
	}

	ui.Render(w, r, http.StatusCreated, goal)
}

type intakeRequest struct {
	Text      string `json:"text"`
	ProjectID string `json:"projectId"`
}

// Intake creates a goal from a free-text description.
func (h *GoalHandler) Intake(w http.ResponseWriter, r *http.Request) {
	var req intakeRequest
	err := ui.Decode(w, r, &req)
	if err != nil || strings.TrimSpace(req.Text) == "" {
		ui.RenderError(w, r, http.StatusBadRequest, "Text is required")
		return
	}

	goal, err := h.goalService.CreateFromIntake(r.Context(), req.Text, req.ProjectID)
	if err != nil {
		h.fail(w, r, err, "Failed to create goal")
		return
	}

	ui.Render(w, r, http.StatusCreated, goal)
}

func (h *GoalHandler) Update(w http.ResponseWriter, r *http.Request) {
	goalID := r.PathValue("id")

	var input service.GoalInput
	err := ui.Decode(w, r, &input)
	if err != nil {
		ui.RenderError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	goal, err := h.goalService.Update(goalID, input)
	if err != nil {
		h.fail(w, r, err, "Failed to update goal", "goal_id", goalID)
		return
	}

	ui.Render(w, r, http.StatusOK, goal)
}

func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	goalID := r.PathValue("id")

	err := h.goalService.Delete(goalID)
	if err != nil {
		h.fail(w, r, err, "Failed to delete goal", "goal_id", goalID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Messages returns the goal's full check-in history.
func (h *GoalHandler) Messages(w http.ResponseWriter, r *http.Request) {
	goalID := r.PathValue("id")

	_, err := h.goalService.ByID(goalID)
	if err != nil {
		h.fail(w, r, err, "Failed to load goal", "goal_id", goalID)
		return
	}

	messages, err := h.goalService.History(goalID)
	if err != nil {
		slog.Error("failed to load history", "error", err, "goal_id", goalID)
		ui.RenderError(w, r, http.StatusInternalServerError, "Failed to load messages")
		return
	}
	if messages == nil {
		messages = []*model.Message{}
	}

	ui.Render(w, r, http.StatusOK, messages)
}

func (h *GoalHandler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string, attrs ...any) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(strings.ToLower(fallback), append([]any{"error", err}, attrs...)...)
	}
	ui.RenderError(w, r, status, publicMessage(status, err, fallback))
}
