package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/docsage/docsage/services/llm"
	"github.com/docsage/docsage/services/vectorstore"
)

var tracer = otel.Tracer("docsage.chat")

// retrievalTopK is how many chunks each turn retrieves for context.
const retrievalTopK = 3

const basePrompt = `You are a helpful assistant specialized in answering questions based on provided documents.

Sensitive information includes but is not limited to passwords, phone numbers, email addresses, API keys, or any information that could be harmful to individuals. If a user asks for sensitive information, refuse.

Always provide clear and concise answers based on the documents.`

// Chain is the answering pipeline for one session: retrieval over the
// session's namespace plus generation against the conversation memory. The
// system framing (document summary, personal facts) is captured at build
// time, which is why context changes invalidate the cached chain.
type Chain struct {
	sessionID    string
	retriever    vectorstore.Retriever
	client       llm.Client
	systemPrompt string
}

// buildSystemPrompt renders the system framing from the session's current
// summary and personal context.
func buildSystemPrompt(session *Session) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	if session.HasSummary() {
		b.WriteString("\n\nDocument summary:\n")
		b.WriteString(session.Summary)
	}

	if len(session.PersonalContext) > 0 {
		keys := make([]string, 0, len(session.PersonalContext))
		for key := range session.PersonalContext {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		b.WriteString("\n\nKnown facts about the user:")
		for _, key := range keys {
			fmt.Fprintf(&b, "\n- %s: %s", key, session.PersonalContext[key])
		}
	}
	return b.String()
}

// Ask retrieves context for the question and generates an answer.
//
// Retrieved chunks are sorted by descending score regardless of the order
// the store returned them, then truncated to the top k before prompting.
// The chunks actually used come back as sources. A retrieval failure aborts
// the call; the chain never falls back to answering without context.
func (c *Chain) Ask(ctx context.Context, session *Session, question string) (string, []vectorstore.Chunk, error) {
	ctx, span := tracer.Start(ctx, "Chain.Ask")
	defer span.End()

	chunks, err := c.retriever.Search(ctx, question, retrievalTopK)
	if err != nil {
		span.RecordError(err)
		return "", nil, fmt.Errorf("retrieval failed: %w", err)
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})
	if len(chunks) > retrievalTopK {
		chunks = chunks[:retrievalTopK]
	}

	prompt := c.renderPrompt(session, question, chunks)
	answer, err := c.client.Generate(ctx, prompt, llm.GenerationParams{})
	if err != nil {
		span.RecordError(err)
		return "", nil, err
	}

	return strings.TrimSpace(answer), chunks, nil
}

// renderPrompt assembles the system framing, retrieved context, chat
// memory, and question into a single generation prompt. Memory is read from
// the session at call time so continuity survives chain rebuilds.
func (c *Chain) renderPrompt(session *Session, question string, chunks []vectorstore.Chunk) string {
	var b strings.Builder
	b.WriteString(c.systemPrompt)

	if len(chunks) > 0 {
		b.WriteString("\n\nContext:")
		for _, chunk := range chunks {
			fmt.Fprintf(&b, "\n[%s]\n%s\n", chunk.Source, chunk.Content)
		}
	}

	if len(session.ChatHistory) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, turn := range session.ChatHistory {
			switch turn.Role {
			case RoleUser:
				fmt.Fprintf(&b, "User: %s\n", turn.Content)
			case RoleAssistant:
				fmt.Fprintf(&b, "Assistant: %s\n", turn.Content)
			}
		}
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n\nAnswer:", question)
	return b.String()
}

// ============================================================================
// Builder + cache
// ============================================================================

// Builder constructs chains and memoizes one per session id. Entries are
// replaced whole on rebuild, never mutated in place.
type Builder struct {
	mu     sync.Mutex
	client llm.Client
	chains map[string]*Chain
}

// NewBuilder creates a Builder that generates through the given client.
func NewBuilder(client llm.Client) *Builder {
	return &Builder{
		client: client,
		chains: make(map[string]*Chain),
	}
}

// GetOrBuild returns the cached chain for the session, constructing and
// caching one if none exists. A nil retriever means the session's index is
// not ready, reported as a *ChainUnavailableError rather than a built chain
// that would fail later.
func (b *Builder) GetOrBuild(session *Session, retriever vectorstore.Retriever) (*Chain, error) {
	if retriever == nil {
		return nil, &ChainUnavailableError{SessionID: session.ID, Reason: "no retriever for session namespace"}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if chain, ok := b.chains[session.ID]; ok {
		return chain, nil
	}

	chain := &Chain{
		sessionID:    session.ID,
		retriever:    retriever,
		client:       b.client,
		systemPrompt: buildSystemPrompt(session),
	}
	b.chains[session.ID] = chain

	slog.Debug("Built retrieval chain", "session_id", session.ID)
	return chain, nil
}

// Invalidate drops the cached chain for the session so the next GetOrBuild
// constructs a fresh one with current context.
func (b *Builder) Invalidate(sessionID string) {
	b.mu.Lock()
	delete(b.chains, sessionID)
	b.mu.Unlock()
}
