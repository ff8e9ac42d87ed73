package model

// TurnInput is what a caller supplies for one conversation turn. DirectIntent
// bypasses classification when it names a valid intent label.
type TurnInput struct {
	ConversationID string `json:"conversation_id"`
	TenantID       string `json:"tenant_id,omitempty"`
	SiteID         string `json:"site_id,omitempty"`
	UserText       string `json:"user_text"`
	DirectIntent   Intent `json:"direct_intent,omitempty"`
}

// Turn carries the input and the loaded conversation state through the graph.
type Turn struct {
	Input *TurnInput
	State *CopilotState
}

// TurnDelta is the turn's result: the new messages and UI snapshots produced
// during the turn plus the updated full state.
type TurnDelta struct {
	Messages []Message     `json:"messages"`
	UI       []UISnapshot  `json:"ui"`
	State    *CopilotState `json:"state"`
}

// Delta snapshots the per-turn outputs of a finished state.
func (s *CopilotState) Delta() *TurnDelta {
	return &TurnDelta{
		Messages: s.TurnMessages,
		UI:       s.TurnUI,
		State:    s,
	}
}
