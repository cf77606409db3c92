package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docsage/docsage/services/chat"
	"github.com/docsage/docsage/services/llm"
	"github.com/docsage/docsage/services/orchestrator/observability"
	"github.com/docsage/docsage/services/vectorstore"
)

// ChatRequest is one user turn.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the assistant turn returned to the caller.
type ChatResponse struct {
	Role      string              `json:"role"`
	Content   string              `json:"content"`
	Timestamp time.Time           `json:"timestamp"`
	Sources   []vectorstore.Chunk `json:"sources,omitempty"`
	Category  string              `json:"category,omitempty"`
	Filtered  bool                `json:"filtered,omitempty"`
}

// HandleChat runs one conversation turn through the orchestration core and
// maps its error taxonomy onto HTTP statuses: validation errors are 400,
// unknown sessions 404, unavailable chains 503, and upstream retrieval or
// generation failures 502.
func HandleChat(manager *chat.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("sessionId")

		var req ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		start := time.Now()
		result, err := manager.HandleTurn(c.Request.Context(), id, req.Message)
		elapsed := time.Since(start).Seconds()

		if err != nil {
			status, label := classifyTurnError(err)
			recordTurn(label, elapsed)
			if status >= http.StatusInternalServerError || status == http.StatusServiceUnavailable {
				slog.Error("Turn failed", "session_id", id, "error", err)
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		if result.Category != chat.CategoryNone {
			recordTurn(observability.StatusShortCircuit, elapsed)
			if m := observability.DefaultMetrics; m != nil {
				m.ShortCircuitsTotal.WithLabelValues(string(result.Category)).Inc()
			}
		} else {
			recordTurn(observability.StatusAnswered, elapsed)
		}
		if result.Filtered {
			if m := observability.DefaultMetrics; m != nil {
				m.FilteredAnswersTotal.Inc()
			}
		}

		c.JSON(http.StatusOK, ChatResponse{
			Role:      string(result.Message.Role),
			Content:   result.Message.Content,
			Timestamp: result.Message.Timestamp,
			Sources:   result.Message.Sources,
			Category:  shortCircuitLabel(result.Category),
			Filtered:  result.Filtered,
		})
	}
}

// classifyTurnError maps the core's error taxonomy to an HTTP status and a
// metrics label.
func classifyTurnError(err error) (int, string) {
	switch {
	case chat.IsValidationError(err):
		return http.StatusBadRequest, observability.StatusValidationError
	case chat.IsSessionNotFound(err):
		return http.StatusNotFound, observability.StatusNotFound
	case chat.IsChainUnavailable(err):
		return http.StatusServiceUnavailable, observability.StatusError
	case vectorstore.IsIndexError(err), llm.IsGenerationError(err):
		return http.StatusBadGateway, observability.StatusError
	default:
		return http.StatusBadGateway, observability.StatusError
	}
}

func recordTurn(status string, seconds float64) {
	if m := observability.DefaultMetrics; m != nil {
		m.TurnsTotal.WithLabelValues(status).Inc()
		m.TurnDurationSeconds.WithLabelValues(status).Observe(seconds)
	}
}

func shortCircuitLabel(category chat.Category) string {
	if category == chat.CategoryNone {
		return ""
	}
	return string(category)
}
