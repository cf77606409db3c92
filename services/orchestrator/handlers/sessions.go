// Package handlers contains the gin HTTP handlers for the chat service.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docsage/docsage/services/chat"
	"github.com/docsage/docsage/services/orchestrator/observability"
)

// SessionSummary is the list/detail view of one session.
type SessionSummary struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	LastActive    time.Time `json:"last_active"`
	MessageCount  int       `json:"message_count"`
	HasDocuments  bool      `json:"has_documents"`
	Summary       string    `json:"summary,omitempty"`
	PersonalFacts int       `json:"personal_facts"`
}

func toSessionSummary(s *chat.Session) SessionSummary {
	return SessionSummary{
		ID:            s.ID,
		CreatedAt:     s.CreatedAt,
		LastActive:    s.LastActive,
		MessageCount:  len(s.Messages),
		HasDocuments:  s.HasSummary(),
		Summary:       s.Summary,
		PersonalFacts: len(s.PersonalContext),
	}
}

// CreateSession allocates a session plus its vector namespace.
func CreateSession(manager *chat.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := manager.CreateSession(c.Request.Context())
		if err != nil {
			slog.Error("Failed to create session", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to provision session storage"})
			return
		}

		if m := observability.DefaultMetrics; m != nil {
			m.SessionsActive.Inc()
		}
		c.JSON(http.StatusCreated, toSessionSummary(session))
	}
}

// ListSessions returns all live sessions, oldest first.
func ListSessions(manager *chat.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions := manager.ListSessions()
		out := make([]SessionSummary, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, toSessionSummary(s))
		}
		c.JSON(http.StatusOK, gin.H{"sessions": out})
	}
}

// GetSessionHistory returns the display transcript for one session.
func GetSessionHistory(manager *chat.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("sessionId")
		session, err := manager.GetSession(id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"session_id": session.ID,
			"messages":   session.Messages,
		})
	}
}

// DeleteSession tears down the session and its vector namespace. Deleting a
// session that is already gone still returns success.
func DeleteSession(manager *chat.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("sessionId")
		_, getErr := manager.GetSession(id)

		if err := manager.DeleteSession(c.Request.Context(), id); err != nil {
			slog.Error("Failed to delete session", "session_id", id, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to delete session storage"})
			return
		}

		if getErr == nil {
			if m := observability.DefaultMetrics; m != nil {
				m.SessionsActive.Dec()
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "deleted_session_id": id})
	}
}
