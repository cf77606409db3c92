package chat

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/docsage/docsage/services/policy_engine"
	"github.com/docsage/docsage/services/vectorstore"
)

// TurnResult is what one successful user turn produced.
type TurnResult struct {
	// Message is the assistant turn recorded in the transcript.
	Message Message
	// Category is the policy category that short-circuited the turn, or
	// CategoryNone when the answer came from retrieval and generation.
	Category Category
	// Filtered is true when the generated answer tripped the leak filter
	// and was replaced before recording.
	Filtered bool
}

// Manager sequences a user turn: classify, short-circuit or invoke the
// retrieval chain, post-filter, record, return. It owns the session store,
// the chain cache, and the per-session vector namespaces.
type Manager struct {
	store   *Store
	builder *Builder
	index   vectorstore.Index
	rules   []Rule
	filter  *policy_engine.Engine
}

// NewManager wires the orchestration core. The rules table defaults to
// DefaultRules when nil so the policies stay swappable in tests.
func NewManager(store *Store, builder *Builder, index vectorstore.Index, filter *policy_engine.Engine, rules []Rule) *Manager {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Manager{
		store:   store,
		builder: builder,
		index:   index,
		rules:   rules,
		filter:  filter,
	}
}

// CreateSession allocates a new session and its vector-index namespace.
func (m *Manager) CreateSession(ctx context.Context) (*Session, error) {
	session := m.store.CreateChat()
	if err := m.index.CreateNamespace(ctx, session.ID); err != nil {
		m.store.Delete(session.ID)
		return nil, err
	}
	slog.Info("Created session", "session_id", session.ID)
	return session, nil
}

// DeleteSession tears down a session: history is cleared and the record
// removed from the store first, then the vector namespace is deleted so a
// failed namespace delete never leaves a half-alive session. Deleting an
// unknown id still clears the namespace and succeeds.
func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	m.store.Delete(id)
	m.builder.Invalidate(id)
	if err := m.index.DeleteNamespace(ctx, id); err != nil {
		return err
	}
	slog.Info("Deleted session", "session_id", id)
	return nil
}

// GetSession returns the session or a *SessionNotFoundError.
func (m *Manager) GetSession(id string) (*Session, error) {
	return m.store.Get(id)
}

// ListSessions returns all live sessions, oldest first.
func (m *Manager) ListSessions() []*Session {
	return m.store.List()
}

// SetDocumentSummary records the summary for a processed document batch,
// overwriting any previous batch's summary.
func (m *Manager) SetDocumentSummary(id, summary string) error {
	session, err := m.store.Get(id)
	if err != nil {
		return err
	}
	session.SetSummary(summary)
	// The chain bakes the summary into its system framing at build time.
	m.builder.Invalidate(id)
	return nil
}

// AddDocuments indexes chunks into the session's namespace.
func (m *Manager) AddDocuments(ctx context.Context, id string, chunks []vectorstore.Chunk) (int, error) {
	if _, err := m.store.Get(id); err != nil {
		return 0, err
	}
	return m.index.Add(ctx, id, chunks)
}

// HandleTurn runs the per-turn state machine. Every branch is terminal:
//
//  1. Empty input fails validation with no state mutated.
//  2. A policy match (gratitude, hostile, sensitive) records the user turn
//     and a canned response; no chain is built or invalidated.
//  3. Otherwise the user turn is recorded, the chain is fetched or rebuilt,
//     the answer is generated, post-filtered, and recorded with its sources.
//
// A retrieval or generation failure aborts the turn without recording an
// assistant message; the already-recorded user turn stays so a retry can
// reuse it.
func (m *Manager) HandleTurn(ctx context.Context, sessionID, userText string) (TurnResult, error) {
	ctx, span := tracer.Start(ctx, "Manager.HandleTurn")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID))

	if strings.TrimSpace(userText) == "" {
		return TurnResult{}, &ValidationError{Reason: "message must not be empty"}
	}

	session, err := m.store.Get(sessionID)
	if err != nil {
		return TurnResult{}, err
	}

	// Policy short-circuits: cheap, deterministic, and independent of
	// document content. No retrieval, no cache invalidation.
	if category, response, ok := Classify(m.rules, userText); ok {
		session.AddMessage(RoleUser, userText, nil)
		msg := session.AddMessage(RoleAssistant, response, nil)
		span.SetAttributes(attribute.String("short_circuit", string(category)))
		slog.Info("Policy short-circuit", "session_id", sessionID, "category", category)
		return TurnResult{Message: msg, Category: category}, nil
	}

	// Context-relevant changes drop the cached chain so this turn's build
	// picks up fresh framing.
	factsChanged := ExtractPersonalFacts(session, userText)
	if factsChanged || MentionsDocumentContext(userText) {
		m.builder.Invalidate(sessionID)
	}

	// The user turn is recorded before generation so a retry after a
	// generation failure sees its own question in context.
	session.AddMessage(RoleUser, userText, nil)

	chain, err := m.builder.GetOrBuild(session, m.index.Retriever(sessionID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return TurnResult{}, err
	}

	answer, sources, err := chain.Ask(ctx, session, userText)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return TurnResult{}, err
	}

	filtered := false
	if findings := m.filter.Scan(answer); len(findings) > 0 {
		slog.Warn("Generated answer tripped leak filter, substituting refusal",
			"session_id", sessionID,
			"classification", findings[0].ClassificationName,
			"pattern", findings[0].PatternId,
		)
		answer = SensitiveRefusal
		sources = nil
		filtered = true
	}

	msg := session.AddMessage(RoleAssistant, answer, sources)
	return TurnResult{Message: msg, Filtered: filtered}, nil
}
