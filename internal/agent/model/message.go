package model

import "github.com/google/uuid"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one record of the conversation transcript. Messages are
// append-only and deduplicated by ID when merged into state.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func NewUserMessage(content string) Message {
	return Message{ID: uuid.NewString(), Role: RoleUser, Content: content}
}

func NewAssistantMessage(content string) Message {
	return Message{ID: uuid.NewString(), Role: RoleAssistant, Content: content}
}

// NewAnchorMessage creates the empty assistant message UI snapshots attach to.
func NewAnchorMessage() Message {
	return Message{ID: uuid.NewString(), Role: RoleAssistant}
}
