package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConversation(t *testing.T) {
	conv := NewConversation("s-1", "waiting")

	assert.Equal(t, "s-1", conv.SessionID)
	assert.Equal(t, "waiting", conv.Current)
	assert.Equal(t, []string{"waiting"}, conv.History)
	assert.False(t, conv.UpdatedAt.IsZero())
}

func TestConversation_Visit(t *testing.T) {
	conv := NewConversation("s-1", "waiting")
	conv.Visit("intro")
	conv.Visit("waiting")

	assert.Equal(t, "waiting", conv.Current)
	assert.Equal(t, []string{"waiting", "intro", "waiting"}, conv.History)
}

func TestConversation_CloneIsIndependent(t *testing.T) {
	conv := NewConversation("s-1", "waiting")
	dup := conv.Clone()

	dup.Visit("intro")

	assert.Equal(t, "waiting", conv.Current)
	assert.Len(t, conv.History, 1)
	assert.Equal(t, "intro", dup.Current)
}

func TestAction_Valid(t *testing.T) {
	assert.True(t, GoTo("intro").Valid())
	assert.True(t, Finish("success").Valid())
	assert.False(t, Action{}.Valid())
	assert.False(t, Action{Kind: ActionGoTo}.Valid())
	assert.False(t, Action{Kind: "teleport", Target: "intro"}.Valid())
}
