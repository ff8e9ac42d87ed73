package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendMessageDeduplicatesByID(t *testing.T) {
	s := &CopilotState{}
	msg := NewUserMessage("hello")

	s.AppendMessage(msg)
	s.AppendMessage(msg)
	s.AppendMessage(NewUserMessage("hello"))

	require.Len(t, s.Messages, 2)
	assert.Len(t, s.TurnMessages, 2)
}

func TestPushUIReplacesWholeCard(t *testing.T) {
	s := &CopilotState{}
	s.PushUI(UISnapshot{ID: "card:1", Props: map[string]any{"status": "loading", "title": "a"}})
	s.PushUI(UISnapshot{ID: "card:1", Props: map[string]any{"status": "done"}})

	require.Len(t, s.UI, 1)
	assert.Equal(t, "done", s.UI[0].Props["status"])
	_, hasTitle := s.UI[0].Props["title"]
	assert.False(t, hasTitle, "replace must drop props absent from the new snapshot")
}

func TestPushUIMergesProps(t *testing.T) {
	s := &CopilotState{}
	s.PushUI(UISnapshot{ID: "card:1", Props: map[string]any{"status": "loading", "title": "a"}})
	s.PushUI(UISnapshot{ID: "card:1", Merge: true, Props: map[string]any{"status": "done"}})

	require.Len(t, s.UI, 1)
	assert.Equal(t, "done", s.UI[0].Props["status"])
	assert.Equal(t, "a", s.UI[0].Props["title"])
}

func TestPushUIEmitsEverySnapshot(t *testing.T) {
	s := &CopilotState{}
	var emitted []UISnapshot
	s.SetEmitter(func(snap UISnapshot) { emitted = append(emitted, snap) })

	s.PushUI(UISnapshot{ID: "a", Props: map[string]any{"status": "loading"}})
	s.PushUI(UISnapshot{ID: "a", Merge: true, Props: map[string]any{"status": "done"}})
	s.PushUI(UISnapshot{ID: "b", Props: map[string]any{}})

	require.Len(t, emitted, 3)
	// The merged snapshot goes out with the merged props, not the partial ones.
	assert.Equal(t, "done", emitted[1].Props["status"])
	assert.Len(t, s.TurnUI, 3)
}

func TestBeginTurnResetsDeltas(t *testing.T) {
	s := &CopilotState{}
	s.AppendMessage(NewUserMessage("first"))
	s.PushUI(UISnapshot{ID: "x", Props: map[string]any{}})

	s.BeginTurn(NewUserMessage("second"))

	require.Len(t, s.Messages, 2)
	assert.Len(t, s.TurnMessages, 1)
	assert.Empty(t, s.TurnUI)
	assert.Equal(t, "second", s.TurnMessages[0].Content)
}

func TestLatestUserTextSkipsAssistantMessages(t *testing.T) {
	s := &CopilotState{}
	s.AppendMessage(NewUserMessage("question"))
	s.AppendMessage(NewAssistantMessage("answer"))
	s.AppendMessage(NewAnchorMessage())

	assert.Equal(t, "question", s.LatestUserText())
}

func TestDeltaCarriesTurnOutputsAndState(t *testing.T) {
	s := &CopilotState{}
	s.BeginTurn(NewUserMessage("hi"))
	s.PushUI(UISnapshot{ID: "c", Props: map[string]any{}})

	delta := s.Delta()
	require.NotNil(t, delta)
	assert.Len(t, delta.Messages, 1)
	assert.Len(t, delta.UI, 1)
	assert.Same(t, s, delta.State)
}
