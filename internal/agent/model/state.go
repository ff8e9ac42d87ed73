package model

import "time"

// ShortcutOption is one backend operation discovered from the registry.
type ShortcutOption struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Awaiting values mark the point a shortcut turn suspended at. The next
// turn's entry routing resumes from the marked stage.
const (
	AwaitingSelect  = "select"
	AwaitingConfirm = "confirm"
)

// ShortcutState is the shortcut machine's scratch area. Created on first
// entry into the sub-flow and unread once it reaches a terminal state.
type ShortcutState struct {
	UserText       string          `json:"user_text,omitempty"`
	Options        []ShortcutOption `json:"options,omitempty"`
	Recommended    string          `json:"recommended,omitempty"`
	Selected       *ShortcutOption `json:"selected,omitempty"`
	Params         map[string]any  `json:"mcp_params,omitempty"`
	Confirmed      *bool           `json:"confirmed,omitempty"`
	NoToolSelected bool            `json:"no_tool_selected,omitempty"`
	Awaiting       string          `json:"awaiting,omitempty"`
	Result         string          `json:"result,omitempty"`
	Error          string          `json:"error,omitempty"`
	UIID           string          `json:"ui_id,omitempty"`
	AnchorID       string          `json:"ui_anchor_id,omitempty"`
}

// ArticleSlots are the four required article parameters.
type ArticleSlots struct {
	Topic          string `json:"topic,omitempty"`
	ContentFormat  string `json:"content_format,omitempty"`
	TargetAudience string `json:"target_audience,omitempty"`
	Tone           string `json:"tone,omitempty"`
}

// ArticleState tracks the clarification loop plus the workflow run card.
type ArticleState struct {
	Pending  bool         `json:"clarify_pending,omitempty"`
	Slots    ArticleSlots `json:"slots"`
	Missing  []string     `json:"missing,omitempty"`
	Question string       `json:"clarify_question,omitempty"`

	ClarifyUIID     string `json:"clarify_ui_id,omitempty"`
	ClarifyAnchorID string `json:"clarify_anchor_id,omitempty"`
	UIID            string `json:"ui_id,omitempty"`
	AnchorID        string `json:"anchor_id,omitempty"`
}

// ReportState holds the report pipeline's stage outputs. Each field is
// written by exactly one stage.
type ReportState struct {
	UserText   string           `json:"user_text,omitempty"`
	PropertyID string           `json:"property_id,omitempty"`
	ToolSpecs  []ToolSpec       `json:"tool_specs,omitempty"`
	Plan       []ReportPlanItem `json:"plan,omitempty"`
	ToolResult *ToolResult      `json:"tool_result,omitempty"`
	ToolError  string           `json:"tool_error,omitempty"`
	Evidence   *EvidencePack    `json:"evidence_pack,omitempty"`
	Insights   *InsightsOutput  `json:"insights,omitempty"`
	Error      string           `json:"error,omitempty"`

	UIID           string `json:"ui_id,omitempty"`
	AnchorID       string `json:"anchor_id,omitempty"`
	ProgressUIID   string `json:"progress_ui_id,omitempty"`
	ChartsUIID     string `json:"charts_ui_id,omitempty"`
	InsightsUIID   string `json:"insights_ui_id,omitempty"`
}

// SEOState keeps the SEO planning card addressable across updates.
type SEOState struct {
	UIID     string `json:"ui_id,omitempty"`
	AnchorID string `json:"anchor_id,omitempty"`
}

// CopilotState is the conversation envelope persisted between turns.
// Messages and UI go through the reducers below so identity-based
// deduplication and id-keyed merging hold even across retried turns.
type CopilotState struct {
	TenantID string `json:"tenant_id,omitempty"`
	SiteID   string `json:"site_id,omitempty"`

	Messages []Message    `json:"messages"`
	UI       []UISnapshot `json:"ui"`

	Intent       Intent      `json:"intent,omitempty"`
	IntentUIID   string      `json:"intent_ui_id,omitempty"`
	ResumeTarget EntryTarget `json:"resume_target,omitempty"`

	Article  *ArticleState  `json:"article,omitempty"`
	Shortcut *ShortcutState `json:"shortcut,omitempty"`
	Report   *ReportState   `json:"report,omitempty"`
	SEO      *SEOState      `json:"seo,omitempty"`

	// Per-turn deltas, rebuilt every turn and never persisted.
	TurnMessages []Message    `json:"-"`
	TurnUI       []UISnapshot `json:"-"`

	// IntentStartedAt times the classification for the router card.
	IntentStartedAt time.Time `json:"-"`

	emit func(UISnapshot)
}

// SetEmitter installs a sink invoked for every pushed UI snapshot, letting
// the transport stream cards while the turn is still running.
func (s *CopilotState) SetEmitter(fn func(UISnapshot)) { s.emit = fn }

// BeginTurn resets the per-turn deltas and appends the incoming user message.
func (s *CopilotState) BeginTurn(userMsg Message) {
	s.TurnMessages = nil
	s.TurnUI = nil
	s.AppendMessage(userMsg)
}

// AppendMessage appends with identity: a message whose id already exists in
// the history is dropped, so retried turns stay at-most-once per id.
func (s *CopilotState) AppendMessage(m Message) {
	for _, prev := range s.Messages {
		if prev.ID == m.ID {
			return
		}
	}
	s.Messages = append(s.Messages, m)
	s.TurnMessages = append(s.TurnMessages, m)
}

// PushUI upserts a snapshot by id. With Merge set the new props shallow-merge
// into the existing record, otherwise the record is replaced wholesale.
func (s *CopilotState) PushUI(snap UISnapshot) {
	stored := snap
	for i, prev := range s.UI {
		if prev.ID != snap.ID {
			continue
		}
		if snap.Merge {
			stored.Props = mergeProps(prev.Props, snap.Props)
		}
		s.UI[i] = stored
		s.emitUI(stored)
		return
	}
	s.UI = append(s.UI, stored)
	s.emitUI(stored)
}

func (s *CopilotState) emitUI(snap UISnapshot) {
	s.TurnUI = append(s.TurnUI, snap)
	if s.emit != nil {
		s.emit(snap)
	}
}

// FindMessage returns the message with the given id, or nil.
func (s *CopilotState) FindMessage(id string) *Message {
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			return &s.Messages[i]
		}
	}
	return nil
}

// LatestUserText returns the content of the most recent user message.
func (s *CopilotState) LatestUserText() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// EnsureShortcut returns the shortcut scratch area, creating it on first use.
func (s *CopilotState) EnsureShortcut() *ShortcutState {
	if s.Shortcut == nil {
		s.Shortcut = &ShortcutState{}
	}
	return s.Shortcut
}

func (s *CopilotState) EnsureArticle() *ArticleState {
	if s.Article == nil {
		s.Article = &ArticleState{}
	}
	return s.Article
}

func (s *CopilotState) EnsureReport() *ReportState {
	if s.Report == nil {
		s.Report = &ReportState{}
	}
	return s.Report
}

func (s *CopilotState) EnsureSEO() *SEOState {
	if s.SEO == nil {
		s.SEO = &SEOState{}
	}
	return s.SEO
}
