package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsage/docsage/services/chat"
	"github.com/docsage/docsage/services/ingest"
	"github.com/docsage/docsage/services/llm"
	"github.com/docsage/docsage/services/orchestrator/routes"
	"github.com/docsage/docsage/services/policy_engine"
	"github.com/docsage/docsage/services/summarize"
	"github.com/docsage/docsage/services/vectorstore"
)

// scriptedLLM answers every generation call with a fixed string.
type scriptedLLM struct {
	answer string
	err    error
}

func (l *scriptedLLM) Generate(_ context.Context, _ string, _ llm.GenerationParams) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	return l.answer, nil
}

func newTestRouter(t *testing.T, model llm.Client) (*gin.Engine, *chat.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine, err := policy_engine.NewEngine()
	require.NoError(t, err)

	manager := chat.NewManager(
		chat.NewStore(),
		chat.NewBuilder(model),
		vectorstore.NewMemoryIndex(),
		engine,
		nil,
	)

	router := gin.New()
	routes.SetupRoutes(router, manager, ingest.NewProcessor(), summarize.NewSummarizer(model), false)
	return router, manager
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func TestSessionLifecycle(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedLLM{answer: "ok"})

	id := createSession(t, router)

	w := doJSON(t, router, http.MethodGet, "/v1/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Sessions []struct {
			ID string `json:"id"`
		} `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Sessions, 1)
	assert.Equal(t, id, list.Sessions[0].ID)

	w = doJSON(t, router, http.MethodDelete, "/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/v1/sessions/"+id+"/history", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Deleting again still succeeds.
	w = doJSON(t, router, http.MethodDelete, "/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleChat_AnsweredTurn(t *testing.T) {
	router, manager := newTestRouter(t, &scriptedLLM{answer: "the report covers revenue"})
	id := createSession(t, router)

	_, err := manager.AddDocuments(context.Background(),
		id, []vectorstore.Chunk{{Content: "revenue report details", Source: "r.txt_part_1"}})
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodPost, "/v1/sessions/"+id+"/chat",
		map[string]string{"message": "what does the revenue report cover?"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Role    string `json:"role"`
		Content string `json:"content"`
		Sources []struct {
			Source string `json:"Source"`
		} `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "assistant", resp.Role)
	assert.Equal(t, "the report covers revenue", resp.Content)
	require.NotEmpty(t, resp.Sources)
	assert.Equal(t, "r.txt_part_1", resp.Sources[0].Source)
}

func TestHandleChat_ErrorMapping(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedLLM{answer: "ok"})
	id := createSession(t, router)

	// Empty message: validation error.
	w := doJSON(t, router, http.MethodPost, "/v1/sessions/"+id+"/chat",
		map[string]string{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown session.
	w = doJSON(t, router, http.MethodPost, "/v1/sessions/nope/chat",
		map[string]string{"message": "hello"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Malformed body.
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+id+"/chat",
		bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChat_GenerationFailureIsBadGateway(t *testing.T) {
	model := &scriptedLLM{err: &llm.GenerationError{Backend: "test", Err: assert.AnError}}
	router, _ := newTestRouter(t, model)
	id := createSession(t, router)

	w := doJSON(t, router, http.MethodPost, "/v1/sessions/"+id+"/chat",
		map[string]string{"message": "describe the files"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHandleChat_ShortCircuitCategory(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedLLM{answer: "never used"})
	id := createSession(t, router)

	w := doJSON(t, router, http.MethodPost, "/v1/sessions/"+id+"/chat",
		map[string]string{"message": "thank you so much"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Content  string `json:"content"`
		Category string `json:"category"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "gratitude", resp.Category)
	assert.Equal(t, chat.GratitudeAck, resp.Content)
}

func TestProcessDocuments(t *testing.T) {
	router, manager := newTestRouter(t, &scriptedLLM{answer: "a tidy summary"})
	id := createSession(t, router)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("The vacation policy grants twenty days."), 0o644))

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/sessions/%s/documents", id),
		map[string]any{"files": []string{path}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		ChunksIndexed int    `json:"chunks_indexed"`
		Summary       string `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.ChunksIndexed)
	assert.Equal(t, "a tidy summary", resp.Summary)

	session, err := manager.GetSession(id)
	require.NoError(t, err)
	assert.Equal(t, "a tidy summary", session.Summary)
}

func TestProcessDocuments_Failures(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedLLM{answer: "summary"})
	id := createSession(t, router)

	// No files named.
	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/sessions/%s/documents", id),
		map[string]any{"files": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unsupported format names the file.
	bad := filepath.Join(t.TempDir(), "sheet.xlsx")
	require.NoError(t, os.WriteFile(bad, []byte("x"), 0o644))
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/sessions/%s/documents", id),
		map[string]any{"files": []string{bad}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "sheet.xlsx")

	// Unknown session.
	good := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(good, []byte("text"), 0o644))
	w = doJSON(t, router, http.MethodPost, "/v1/sessions/nope/documents",
		map[string]any{"files": []string{good}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedLLM{})

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
