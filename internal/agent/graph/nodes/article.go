package nodes

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/cms-copilot/server/internal/agent/graph/parsers"
	"github.com/cms-copilot/server/internal/agent/graph/prompts"
	"github.com/cms-copilot/server/internal/agent/model"
	"github.com/cms-copilot/server/internal/agent/tools/articlewf"
	logx "github.com/cms-copilot/server/pkg/logger"
)

var articleSlotKeys = []string{"topic", "content_format", "target_audience", "tone"}

// NewArticleClarifyNode merges slot values from the turn's payload, the
// previously collected state and a model extraction, then derives which
// slots are still missing. Pushes no UI; the clarify UI node renders from
// the updated state.
//
// Merge precedence is payload over collected over model output: the model
// only fills slots nothing else provided, and the missing list is derived
// from the merged values rather than trusted from the model.
func NewArticleClarifyNode(deps *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		a := state.EnsureArticle()
		raw := state.LatestUserText()

		payload := submitPayload(raw)

		collected := map[string]string{
			"topic":           strings.TrimSpace(a.Slots.Topic),
			"content_format":  strings.TrimSpace(a.Slots.ContentFormat),
			"target_audience": strings.TrimSpace(a.Slots.TargetAudience),
			"tone":            strings.TrimSpace(a.Slots.Tone),
		}
		for _, k := range articleSlotKeys {
			if v, ok := payload[k].(string); ok && strings.TrimSpace(v) != "" {
				collected[k] = strings.TrimSpace(v)
			}
		}

		userTextForLLM := raw
		if payload != nil {
			if b, err := json.Marshal(payload); err == nil {
				userTextForLLM = string(b)
			}
		}

		extracted, question := extractSlots(ctx, deps, userTextForLLM, collected)

		merged := map[string]string{}
		missing := []string{}
		for _, k := range articleSlotKeys {
			v := collected[k]
			if v == "" {
				v = extracted[k]
			}
			merged[k] = v
			if v == "" {
				missing = append(missing, k)
			}
		}

		a.Slots = model.ArticleSlots{
			Topic:          merged["topic"],
			ContentFormat:  merged["content_format"],
			TargetAudience: merged["target_audience"],
			Tone:           merged["tone"],
		}

		if len(missing) == 0 {
			a.Pending = false
			a.Missing = nil
			a.Question = ""
			return t, nil
		}

		a.Pending = true
		a.Missing = missing
		if question == "" {
			question = "请补充缺失信息：" + strings.Join(missing, "、") + "。"
		}
		a.Question = question
		if a.ClarifyAnchorID == "" {
			anchor := model.NewAnchorMessage()
			state.AppendMessage(anchor)
			a.ClarifyAnchorID = anchor.ID
		}
		if a.ClarifyUIID == "" {
			a.ClarifyUIID = "article_clarify:" + a.ClarifyAnchorID
		}
		return t, nil
	})
}

// submitPayload recovers a structured submit from the user text: either the
// whole message is a JSON object, or one is hidden in an HTML comment.
func submitPayload(raw string) map[string]any {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(s), &obj); err == nil {
			return obj
		}
	}
	return parsers.ExtractCommentPayload(raw)
}

func extractSlots(ctx context.Context, deps *Deps, userText string, collected map[string]string) (map[string]string, string) {
	out := map[string]string{}
	msgs, err := prompts.Render(ctx,
		schema.SystemMessage(prompts.ArticleClarifySystemPrompt),
		schema.UserMessage(prompts.BuildArticleClarifyPrompt(userText, collected)),
	)
	if err != nil {
		return out, ""
	}
	obj, err := deps.Extractor.CompleteJSON(ctx, msgs)
	if err != nil {
		logx.Warn().Err(err).Msg("article slot extraction failed")
		return out, ""
	}
	for _, k := range articleSlotKeys {
		if v, ok := obj[k].(string); ok {
			out[k] = strings.TrimSpace(v)
		}
	}
	question, _ := obj["question_to_user"].(string)
	return out, strings.TrimSpace(question)
}

// NewArticleClarifyUINode renders the clarify card with pre-filled answers
// and the content-style choices, then lets the turn end so the user can
// reply.
func NewArticleClarifyUINode(deps *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		a := state.EnsureArticle()

		state.PushUI(model.UISnapshot{
			Name:            CardArticleClarify,
			ID:              a.ClarifyUIID,
			AnchorMessageID: a.ClarifyAnchorID,
			Merge:           true,
			Props: map[string]any{
				"status":          "need_info",
				"missing":         a.Missing,
				"question":        a.Question,
				"topic":           a.Slots.Topic,
				"content_format":  a.Slots.ContentFormat,
				"target_audience": a.Slots.TargetAudience,
				"tone":            a.Slots.Tone,
				"tone_options":    deps.Article.StyleOptions(),
			},
		})
		return t, nil
	})
}

// NewArticleUINode mounts the workflow progress card before the run starts.
func NewArticleUINode(deps *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		a := state.EnsureArticle()

		anchor := model.NewAnchorMessage()
		state.AppendMessage(anchor)
		a.AnchorID = anchor.ID
		a.UIID = "article_workflow:" + anchor.ID

		state.PushUI(model.UISnapshot{
			Name:            CardArticleWorkflow,
			ID:              a.UIID,
			AnchorMessageID: anchor.ID,
			Props: map[string]any{
				"status":         "running",
				"run_id":         nil,
				"thread_id":      nil,
				"current_node":   nil,
				"flow_node_list": []articlewf.FlowNode{},
				"error_message":  nil,
			},
		})

		// A crash between here and the run's end resumes into the run node.
		state.ResumeTarget = model.TargetArticleRun
		return t, nil
	})
}

// NewArticleRunNode drives the remote article workflow and mirrors its
// progress events onto the workflow card.
func NewArticleRunNode(deps *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		a := state.EnsureArticle()
		tenantID, siteID := deps.tenantIDs(state)

		topic := strings.TrimSpace(a.Slots.Topic)
		if topic == "" {
			topic = state.LatestUserText()
		}

		var (
			runID        string
			threadID     string
			currentNode  string
			flowNodes    []articlewf.FlowNode
			errorMessage string
		)

		mergeUI := func(status string) {
			nodes := flowNodes
			current := currentNode
			if status == "done" {
				nodes = articlewf.FinalizeFlowNodes(flowNodes)
				current = "__completed__"
				flowNodes = nodes
				currentNode = current
			}
			props := map[string]any{
				"status":         status,
				"run_id":         runID,
				"thread_id":      threadID,
				"current_node":   current,
				"flow_node_list": nodes,
				"error_message":  errorMessage,
			}
			state.PushUI(model.UISnapshot{
				Name:            CardArticleWorkflow,
				ID:              a.UIID,
				AnchorMessageID: a.AnchorID,
				Merge:           true,
				Props:           props,
			})
		}

		onEvent := func(ev articlewf.Event) {
			switch ev.Event {
			case "metadata":
				if id, ok := ev.Data["run_id"].(string); ok && id != "" {
					runID = id
				}
				mergeUI("running")
			case "updates":
				if fp := articlewf.FindFlowProgress(ev.Data); fp != nil {
					if list := articlewf.DecodeFlowNodes(fp["flow_node_list"]); list != nil {
						flowNodes = list
					}
					if cn, ok := fp["current_node"].(string); ok {
						currentNode = cn
					}
				}
				for _, v := range ev.Data {
					inner, ok := v.(map[string]any)
					if !ok {
						continue
					}
					if id, ok := inner["thread_id"].(string); ok && id != "" {
						threadID = id
					}
					if id, ok := inner["run_id"].(string); ok && id != "" {
						runID = id
					}
				}
				mergeUI("running")
			case "error":
				msg, _ := ev.Data["message"].(string)
				if msg == "" {
					msg, _ = ev.Data["error"].(string)
				}
				if msg == "" {
					if b, err := json.Marshal(ev.Data); err == nil {
						msg = string(b)
					}
				}
				errorMessage = msg
				mergeUI("error")
			}
		}

		in := articlewf.RunInput{
			Topic:          topic,
			ContentFormat:  defaultSlot(a.Slots.ContentFormat, "新闻中心"),
			TargetAudience: defaultSlot(a.Slots.TargetAudience, "读者和投资者"),
			Tone:           defaultSlot(a.Slots.Tone, "Professional"),
			TenantID:       tenantID,
			SiteID:         siteID,
		}

		err := deps.ArticleWF.Run(ctx, in, onEvent)
		state.ResumeTarget = ""
		if err != nil {
			logx.Error().Err(err).Str("topic", topic).Msg("article workflow run failed")
			errorMessage = err.Error()
			mergeUI("error")
			return t, nil
		}
		if errorMessage != "" {
			return t, nil
		}
		mergeUI("done")
		return t, nil
	})
}

// NewArticleClarifyCondition ends the turn while slots are still missing,
// otherwise continues into the workflow.
func NewArticleClarifyCondition() func(context.Context, *model.Turn) (string, error) {
	return func(ctx context.Context, t *model.Turn) (string, error) {
		if a := t.State.Article; a != nil && a.Pending {
			return NodeArticleClarifyUI, nil
		}
		return NodeArticleUI, nil
	}
}

func defaultSlot(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
