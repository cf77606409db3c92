package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/docsage/docsage/services/chat"
	"github.com/docsage/docsage/services/ingest"
	"github.com/docsage/docsage/services/orchestrator/observability"
	"github.com/docsage/docsage/services/summarize"
)

// ProcessDocumentsRequest names the files to ingest into a session. Paths
// must be readable by the service process.
type ProcessDocumentsRequest struct {
	Files []string `json:"files" binding:"required,min=1,dive,required"`
}

// ProcessDocuments runs the full document pipeline for a session: ingest
// the files, summarize the raw text, index the chunks into the session's
// namespace, and record the summary on the session.
func ProcessDocuments(manager *chat.Manager, processor *ingest.Processor, summarizer *summarize.Summarizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("sessionId")

		var req ProcessDocumentsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "files is required and must name at least one path"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		if _, err := manager.GetSession(id); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()

		chunks, rawTexts, err := processor.Ingest(ctx, req.Files)
		if err != nil {
			var ingErr *ingest.IngestionError
			if errors.As(err, &ingErr) {
				c.JSON(http.StatusBadRequest, gin.H{"error": ingErr.Error(), "file": ingErr.File})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		summary, err := summarizer.Summarize(ctx, rawTexts)
		if err != nil {
			slog.Error("Summarization failed", "session_id", id, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		indexed, err := manager.AddDocuments(ctx, id, chunks)
		if err != nil {
			slog.Error("Indexing failed", "session_id", id, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		if err := manager.SetDocumentSummary(id, summary); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}

		if m := observability.DefaultMetrics; m != nil {
			m.ChunksIndexedTotal.Add(float64(indexed))
		}

		slog.Info("Processed documents", "session_id", id, "files", len(req.Files), "chunks_indexed", indexed)
		c.JSON(http.StatusCreated, gin.H{
			"status":         "success",
			"session_id":     id,
			"chunks_indexed": indexed,
			"summary":        summary,
		})
	}
}
