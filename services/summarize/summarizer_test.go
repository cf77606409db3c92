package summarize

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsage/docsage/services/llm"
)

type mockClient struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	respond func(prompt string) (string, error)
}

func (m *mockClient) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	m.mu.Lock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.respond != nil {
		return m.respond(prompt)
	}
	return "a summary", nil
}

func TestSummarize_EmptyInputSkipsModel(t *testing.T) {
	client := &mockClient{}
	s := NewSummarizer(client)

	summary, err := s.Summarize(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, summary)
	assert.Equal(t, 0, client.calls, "empty input must not invoke the model")
}

func TestSummarize_SingleTextSkipsCombine(t *testing.T) {
	client := &mockClient{respond: func(prompt string) (string, error) {
		return "  the only summary  ", nil
	}}
	s := NewSummarizer(client)

	summary, err := s.Summarize(context.Background(), []string{"one document"})
	require.NoError(t, err)
	assert.Equal(t, "the only summary", summary)
	assert.Equal(t, 1, client.calls, "a single text needs exactly one generation call")
}

func TestSummarize_MapThenCombine(t *testing.T) {
	client := &mockClient{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "comprehensive summary") {
			return "combined result", nil
		}
		return "partial", nil
	}}
	s := NewSummarizer(client)

	summary, err := s.Summarize(context.Background(), []string{"doc one", "doc two", "doc three"})
	require.NoError(t, err)
	assert.Equal(t, "combined result", summary)
	assert.Equal(t, 4, client.calls, "three map calls plus one combine call")

	combinePrompt := client.prompts[len(client.prompts)-1]
	assert.Contains(t, combinePrompt, "partial", "combine prompt must carry the partial summaries")
}

func TestSummarize_MapFailureReturnsTypedError(t *testing.T) {
	backendErr := errors.New("backend down")
	client := &mockClient{respond: func(prompt string) (string, error) {
		return "", backendErr
	}}
	s := NewSummarizer(client)

	_, err := s.Summarize(context.Background(), []string{"doc"})
	require.Error(t, err)

	var sumErr *SummarizationError
	require.True(t, errors.As(err, &sumErr))
	assert.Equal(t, "map", sumErr.Stage)
	assert.ErrorIs(t, err, backendErr)
}
