// Package chat is the conversation orchestration core: per-session state,
// message classification policies, the retrieval chain cache, and the turn
// state machine that sequences classify, retrieve, generate, and filter.
package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docsage/docsage/services/vectorstore"
)

// Role tags who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one display record in a session's transcript.
type Message struct {
	Role      Role                `json:"role"`
	Content   string              `json:"content"`
	Timestamp time.Time           `json:"timestamp"`
	Sources   []vectorstore.Chunk `json:"sources,omitempty"`
}

// MemoryTurn is the model-consumable shape of a transcript entry, consumed
// by the retrieval chain when rendering conversation context.
type MemoryTurn struct {
	Role    Role
	Content string
}

// Session is one isolated conversation: its transcript, its chat memory,
// its document summary, and the personal facts extracted from user messages.
//
// Every user or assistant entry appended to Messages gets a matching entry
// appended to ChatHistory; AddMessage maintains that pairing. A single
// session is driven by one caller at a time, so Session carries no lock of
// its own. The Store serializes create/get/delete.
type Session struct {
	ID              string
	CreatedAt       time.Time
	Messages        []Message
	Summary         string
	ChatHistory     []MemoryTurn
	PersonalContext map[string]string
	LastActive      time.Time
}

// AddMessage appends a turn to both the display transcript and the chat
// memory, keeping the two in lockstep, and refreshes the activity clock.
func (s *Session) AddMessage(role Role, content string, sources []vectorstore.Chunk) Message {
	now := time.Now().UTC()
	msg := Message{
		Role:      role,
		Content:   content,
		Timestamp: now,
		Sources:   sources,
	}
	s.Messages = append(s.Messages, msg)
	s.ChatHistory = append(s.ChatHistory, MemoryTurn{Role: role, Content: content})
	s.LastActive = now
	return msg
}

// SetSummary records the document summary for the session. A later
// document batch overwrites an earlier one.
func (s *Session) SetSummary(summary string) {
	s.Summary = summary
	s.LastActive = time.Now().UTC()
}

// HasSummary reports whether documents have been processed for this session.
// The question-answering surface is gated on this by the caller.
func (s *Session) HasSummary() bool {
	return s.Summary != ""
}

// Clear empties the transcript and chat memory. Called during deletion so
// no history outlives the session record.
func (s *Session) Clear() {
	s.Messages = nil
	s.ChatHistory = nil
	s.PersonalContext = nil
}

// ============================================================================
// Store
// ============================================================================

// Store holds all live sessions keyed by id.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// CreateChat allocates a new empty session with a fresh unique id.
func (st *Store) CreateChat() *Session {
	now := time.Now().UTC()
	session := &Session{
		ID:              uuid.NewString(),
		CreatedAt:       now,
		PersonalContext: make(map[string]string),
		LastActive:      now,
	}

	st.mu.Lock()
	st.sessions[session.ID] = session
	st.mu.Unlock()
	return session
}

// Get returns the session for the id or a *SessionNotFoundError.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	session, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, &SessionNotFoundError{ID: id}
	}
	return session, nil
}

// Delete clears the session's transcript and memory and removes it from the
// store. Deleting an unknown id is a no-op, so repeated deletes succeed.
// Callers must remove the session's vector-index namespace after this call;
// the store does not reach into external storage.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	session, ok := st.sessions[id]
	if ok {
		session.Clear()
		delete(st.sessions, id)
	}
	st.mu.Unlock()
}

// List returns all sessions ordered by creation time, oldest first.
func (st *Store) List() []*Session {
	st.mu.RLock()
	sessions := make([]*Session, 0, len(st.sessions))
	for _, session := range st.sessions {
		sessions = append(sessions, session)
	}
	st.mu.RUnlock()

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions
}

// Len reports how many sessions are live.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
