package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/templui/gatekeeper/internal/app"
	"github.com/templui/gatekeeper/internal/handler"
	"github.com/templui/gatekeeper/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	health := handler.NewHealthHandler(app.DB)
	goal := handler.NewGoalHandler(app.GoalService)
	checkIn := handler.NewCheckInHandler(app.CheckIns)

	mux := http.NewServeMux()

	// ============================================================================
	// OPERATIONS
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))

	// Endpoints that call the language model (rate limited)
	rateLimiter := middleware.RateLimitAI()

	// ============================================================================
	// GOALS
	// ============================================================================

	mux.HandleFunc("GET /api/goals", goal.List)
	mux.HandleFunc("POST /api/goals", goal.Create)
	mux.HandleFunc("POST /api/goals/intake", rateLimiter(goal.Intake))
	mux.HandleFunc("GET /api/goals/{id}", goal.Get)
	mux.HandleFunc("PUT /api/goals/{id}", goal.Update)
	mux.HandleFunc("DELETE /api/goals/{id}", goal.Delete)
	mux.HandleFunc("GET /api/goals/{id}/messages", goal.Messages)

	// ============================================================================
	// CHECK-INS
	// ============================================================================

	mux.HandleFunc("GET /api/checkin", checkIn.Status)
	mux.HandleFunc("POST /api/goals/{id}/checkin", rateLimiter(checkIn.Open))
	mux.HandleFunc("POST /api/checkin/reply", rateLimiter(checkIn.Reply))
	mux.HandleFunc("POST /api/checkin/close", checkIn.Close)

	// ============================================================================
	// FALLBACK
	// ============================================================================

	mux.HandleFunc("/{path...}", health.NotFound)

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.RequestID, // must be first so every log line carries the id
		middleware.RequestLogging,
		middleware.Recover,
	)

	return handler
}
