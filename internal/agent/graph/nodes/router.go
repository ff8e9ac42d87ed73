package nodes

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/cms-copilot/server/internal/agent/graph/prompts"
	"github.com/cms-copilot/server/internal/agent/model"
	"github.com/cms-copilot/server/internal/metrics"
	logx "github.com/cms-copilot/server/pkg/logger"
)

// NewRouterUINode shows the "recognizing intent" card before classification
// starts. The anchor message goes out first so the frontend can mount the
// card immediately.
func NewRouterUINode(deps *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		userText := state.LatestUserText()

		anchor := model.NewAnchorMessage()
		state.AppendMessage(anchor)

		state.IntentStartedAt = time.Now()
		state.IntentUIID = "intent_router:" + anchor.ID
		state.PushUI(model.UISnapshot{
			Name:            CardIntentRouter,
			ID:              state.IntentUIID,
			AnchorMessageID: anchor.ID,
			Props: map[string]any{
				"status":    "thinking",
				"user_text": userText,
				"steps": []string{
					"解析用户输入",
					"调用意图分类模型（" + deps.Classifier.ModelName() + "）",
					"映射到下游路由（rag / article / shortcut / report）",
				},
				"active_step": 1,
			},
		})
		return t, nil
	})
}

// NewRouterNode classifies the latest user message into one of the five
// intent labels and updates the router card with the outcome.
func NewRouterNode(deps *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		userText := state.LatestUserText()

		intent := model.IntentRAG
		raw := ""

		msgs, err := prompts.Render(ctx, schema.UserMessage(prompts.BuildClassifierPrompt(userText)))
		if err == nil {
			raw, err = deps.Classifier.Complete(ctx, msgs)
		}
		if err != nil {
			logx.Warn().Err(err).Msg("intent classification failed, using keyword rules")
			metrics.ClassifierFallbacks.Inc()
			intent = intentFromKeywords(userText)
		} else {
			intent = intentFromLabel(raw, userText)
		}
		state.Intent = intent

		target := model.EntryTargetFor(intent)
		state.ResumeTarget = target

		var elapsed float64
		if !state.IntentStartedAt.IsZero() {
			elapsed = time.Since(state.IntentStartedAt).Seconds()
		}

		anchorID := ""
		if len(state.Messages) > 0 {
			for i := len(state.Messages) - 1; i >= 0; i-- {
				if state.Messages[i].Role == model.RoleAssistant {
					anchorID = state.Messages[i].ID
					break
				}
			}
		}
		state.PushUI(model.UISnapshot{
			Name:            CardIntentRouter,
			ID:              state.IntentUIID,
			AnchorMessageID: anchorID,
			Merge:           true,
			Props: map[string]any{
				"status":    "done",
				"user_text": userText,
				"intent":    string(intent),
				"route":     string(target),
				"raw":       raw,
				"elapsed_s": elapsed,
				"steps": []string{
					"解析用户输入",
					"调用意图分类模型（" + deps.Classifier.ModelName() + "）",
					"映射到下游路由（rag / article / shortcut）",
					"完成：intent=" + string(intent) + " → route=" + string(target),
				},
				"active_step": 4,
			},
		})

		logx.Debug().
			Str("intent", string(intent)).
			Str("route", string(target)).
			Str("raw", raw).
			Msg("intent classified")
		return t, nil
	})
}

// NewRouterCondition dispatches on the classified intent.
func NewRouterCondition() func(context.Context, *model.Turn) (string, error) {
	return func(ctx context.Context, t *model.Turn) (string, error) {
		switch t.State.Intent {
		case model.IntentArticleTask:
			return NodeArticleClarify, nil
		case model.IntentShortcut:
			return NodeShortcutEntry, nil
		case model.IntentSEOPlanning:
			return NodeSEOUI, nil
		case model.IntentSiteReport:
			return NodeReportUI, nil
		default:
			return NodeRAG, nil
		}
	}
}

// intentFromLabel maps a raw model reply to an intent label. Substring
// matching runs in fixed priority order; unrecognized output falls through
// to the keyword rules.
func intentFromLabel(raw, userText string) model.Intent {
	label := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(label, "article_task") || label == "article":
		return model.IntentArticleTask
	case strings.Contains(label, "shortcut"):
		return model.IntentShortcut
	case strings.Contains(label, "seo_planning") || strings.Contains(label, "seo"):
		return model.IntentSEOPlanning
	case strings.Contains(label, "site_report") || strings.Contains(label, "report"):
		return model.IntentSiteReport
	case strings.Contains(label, "rag"):
		return model.IntentRAG
	}
	metrics.ClassifierFallbacks.Inc()
	return intentFromKeywords(userText)
}

// intentFromKeywords is the deterministic fallback when the model output is
// unusable or the call fails.
func intentFromKeywords(userText string) model.Intent {
	lower := strings.ToLower(userText)
	switch {
	case strings.Contains(userText, "文章") || strings.Contains(userText, "写"):
		return model.IntentArticleTask
	case strings.Contains(userText, "草稿") || strings.Contains(userText, "新建"):
		return model.IntentShortcut
	case strings.Contains(lower, "seo") || strings.Contains(userText, "优化") || strings.Contains(userText, "任务"):
		return model.IntentSEOPlanning
	case strings.Contains(userText, "报告") || strings.Contains(userText, "统计") ||
		strings.Contains(userText, "访问量") || strings.Contains(userText, "流量") ||
		strings.Contains(userText, "数据"):
		return model.IntentSiteReport
	default:
		return model.IntentRAG
	}
}
