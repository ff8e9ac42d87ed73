package nodes

import (
	"context"

	"github.com/cloudwego/eino/compose"

	"github.com/cms-copilot/server/internal/agent/model"
	logx "github.com/cms-copilot/server/pkg/logger"
)

// ResolveEntry decides where a fresh turn enters the graph. The checks run
// in strict priority order: a suspended shortcut machine wins over a pending
// article clarification, which wins over a stored resume target, which wins
// over a caller-provided direct intent. Anything else goes through intent
// recognition.
func ResolveEntry(state *model.CopilotState, input *model.TurnInput) model.EntryTarget {
	if sc := state.Shortcut; sc != nil && len(sc.Options) > 0 && sc.Confirmed == nil && sc.Awaiting != "" {
		return model.TargetShortcut
	}
	if a := state.Article; a != nil && a.Pending {
		return model.TargetArticleClarify
	}
	if state.ResumeTarget.Resumable() {
		return state.ResumeTarget
	}
	if input != nil && input.DirectIntent != "" {
		if !input.DirectIntent.Valid() {
			logx.Warn().Str("direct_intent", string(input.DirectIntent)).Msg("invalid direct intent, falling back to intent recognition")
			return model.TargetIntentUI
		}
		return model.EntryTargetFor(input.DirectIntent)
	}
	return model.TargetIntentUI
}

// NewEntryNode seeds tenant identifiers and records the resolved entry
// target on the state for the dispatch branch to read.
func NewEntryNode(deps *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		if state.TenantID == "" {
			state.TenantID = t.Input.TenantID
		}
		if state.SiteID == "" {
			state.SiteID = t.Input.SiteID
		}

		target := ResolveEntry(state, t.Input)
		if target != model.TargetIntentUI && t.Input.DirectIntent.Valid() {
			state.Intent = t.Input.DirectIntent
		}
		state.ResumeTarget = target

		logx.Debug().
			Str("conversation_id", t.Input.ConversationID).
			Str("entry_target", string(target)).
			Msg("entry resolved")
		return t, nil
	})
}

// NewEntryCondition routes on the target the entry node recorded.
func NewEntryCondition() func(context.Context, *model.Turn) (string, error) {
	return func(ctx context.Context, t *model.Turn) (string, error) {
		switch t.State.ResumeTarget {
		case model.TargetShortcut:
			return NodeShortcutEntry, nil
		case model.TargetArticleClarify:
			return NodeArticleClarify, nil
		case model.TargetArticleUI:
			return NodeArticleUI, nil
		case model.TargetArticleRun:
			return NodeArticleRun, nil
		case model.TargetSEOUI:
			return NodeSEOUI, nil
		case model.TargetReportUI:
			return NodeReportUI, nil
		case model.TargetRAG:
			return NodeRAG, nil
		default:
			return NodeRouterUI, nil
		}
	}
}
