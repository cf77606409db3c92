// Package summarize produces document summaries using a map/combine pass:
// each text is summarized independently, then the partial summaries are
// merged into one comprehensive summary.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/docsage/docsage/services/llm"
)

var tracer = otel.Tracer("docsage.summarize")

const (
	mapPromptTemplate = `Write a concise summary of the following text:
"%s"
CONCISE SUMMARY:`

	combinePromptTemplate = `Write a comprehensive summary of the following document summaries:
"%s"

Focus on the main points and ensure the summary is well-organized.

COMPREHENSIVE SUMMARY:`

	// maxConcurrentMaps bounds parallel generation calls so a large upload
	// cannot flood the backend.
	maxConcurrentMaps = 4
)

// SummarizationError reports a failed summarization pass.
type SummarizationError struct {
	Stage string
	Err   error
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("summarization failed during %s: %v", e.Stage, e.Err)
}

func (e *SummarizationError) Unwrap() error {
	return e.Err
}

// Summarizer generates summaries through a language model client.
type Summarizer struct {
	client llm.Client
}

// NewSummarizer creates a Summarizer backed by the given client.
func NewSummarizer(client llm.Client) *Summarizer {
	return &Summarizer{client: client}
}

// Summarize runs the map/combine pass over the texts and returns one
// combined summary. A single text skips the combine step. An empty input
// returns an empty summary without calling the model.
func (s *Summarizer) Summarize(ctx context.Context, texts []string) (string, error) {
	ctx, span := tracer.Start(ctx, "Summarizer.Summarize")
	defer span.End()

	if len(texts) == 0 {
		return "", nil
	}

	partials := make([]string, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentMaps)

	for i, text := range texts {
		g.Go(func() error {
			prompt := fmt.Sprintf(mapPromptTemplate, text)
			summary, err := s.client.Generate(gctx, prompt, llm.GenerationParams{})
			if err != nil {
				return err
			}
			partials[i] = strings.TrimSpace(summary)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return "", &SummarizationError{Stage: "map", Err: err}
	}

	if len(partials) == 1 {
		return partials[0], nil
	}

	combined := strings.Join(partials, "\n\n")
	prompt := fmt.Sprintf(combinePromptTemplate, combined)
	summary, err := s.client.Generate(ctx, prompt, llm.GenerationParams{})
	if err != nil {
		span.RecordError(err)
		return "", &SummarizationError{Stage: "combine", Err: err}
	}

	slog.Info("Generated combined summary", "texts", len(texts), "summary_len", len(summary))
	return strings.TrimSpace(summary), nil
}
