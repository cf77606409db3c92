package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateChat(t *testing.T) {
	store := NewStore()

	a := store.CreateChat()
	b := store.CreateChat()

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID, "session ids must be unique")
	assert.Empty(t, a.Messages)
	assert.Empty(t, a.ChatHistory)
	assert.False(t, a.HasSummary())
	assert.False(t, a.CreatedAt.IsZero())
	assert.Equal(t, 2, store.Len())
}

func TestStore_GetUnknownIDFails(t *testing.T) {
	store := NewStore()

	_, err := store.Get("no-such-session")
	require.Error(t, err)
	assert.True(t, IsSessionNotFound(err))
}

func TestStore_DeleteClearsHistoryAndIsIdempotent(t *testing.T) {
	store := NewStore()
	session := store.CreateChat()
	session.AddMessage(RoleUser, "hello", nil)
	session.AddMessage(RoleAssistant, "hi there", nil)

	store.Delete(session.ID)

	assert.Empty(t, session.Messages, "display messages must be cleared on delete")
	assert.Empty(t, session.ChatHistory, "chat memory must be cleared on delete")

	_, err := store.Get(session.ID)
	assert.True(t, IsSessionNotFound(err))

	// Repeated deletes succeed.
	store.Delete(session.ID)
	store.Delete("never-existed")
}

func TestSession_AddMessageKeepsHistoriesInLockstep(t *testing.T) {
	store := NewStore()
	session := store.CreateChat()

	session.AddMessage(RoleUser, "what is in the report?", nil)
	session.AddMessage(RoleAssistant, "the report covers revenue", nil)
	session.AddMessage(RoleUser, "anything else?", nil)

	require.Len(t, session.Messages, 3)
	require.Len(t, session.ChatHistory, 3)
	assert.Equal(t, RoleUser, session.ChatHistory[0].Role)
	assert.Equal(t, RoleAssistant, session.ChatHistory[1].Role)
	assert.Equal(t, session.Messages[2].Content, session.ChatHistory[2].Content)
}

func TestSession_SummaryOverwrite(t *testing.T) {
	store := NewStore()
	session := store.CreateChat()

	session.SetSummary("X")
	assert.Equal(t, "X", session.Summary)
	assert.True(t, session.HasSummary())

	session.SetSummary("Y")
	assert.Equal(t, "Y", session.Summary)
}

func TestStore_ListOrderedByCreation(t *testing.T) {
	store := NewStore()
	first := store.CreateChat()
	second := store.CreateChat()
	third := store.CreateChat()

	listed := store.List()
	require.Len(t, listed, 3)
	assert.Equal(t, first.ID, listed[0].ID)
	assert.Equal(t, second.ID, listed[1].ID)
	assert.Equal(t, third.ID, listed[2].ID)
}
