package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/cms-copilot/server/internal/agent/graph/prompts"
	"github.com/cms-copilot/server/internal/agent/model"
	"github.com/cms-copilot/server/internal/agent/tools/registry"
	"github.com/cms-copilot/server/internal/metrics"
	logx "github.com/cms-copilot/server/pkg/logger"
)

// shortcutPush upserts the shortcut card bound to the machine's anchor.
func shortcutPush(state *model.CopilotState, sc *model.ShortcutState, props map[string]any, merge bool) {
	state.PushUI(model.UISnapshot{
		Name:            CardMCPWorkflow,
		ID:              sc.UIID,
		AnchorMessageID: sc.AnchorID,
		Merge:           merge,
		Props:           props,
	})
}

// toolSelection asks the extractor model to pick a backend operation via
// tool calling. Returns the chosen tool name with its arguments, or the
// model's plain-text reply when it chose no tool.
func toolSelection(ctx context.Context, deps *Deps, userText string, specs []model.ToolSpec) (toolName string, args map[string]any, reply string, err error) {
	msgs, err := prompts.Render(ctx,
		schema.SystemMessage(prompts.ToolCallingSystemPrompt),
		schema.UserMessage(userText),
	)
	if err != nil {
		return "", nil, "", err
	}
	out, err := deps.Extractor.CompleteWithTools(ctx, msgs, registry.ToolInfos(specs))
	if err != nil {
		return "", nil, "", err
	}
	if len(out.ToolCalls) == 0 {
		return "", nil, out.Content, nil
	}
	first := out.ToolCalls[0]
	args = map[string]any{}
	if raw := strings.TrimSpace(first.Function.Arguments); raw != "" {
		if uerr := json.Unmarshal([]byte(raw), &args); uerr != nil {
			logx.Warn().Err(uerr).Str("tool", first.Function.Name).Msg("unparseable tool arguments")
			args = map[string]any{}
		}
	}
	return first.Function.Name, args, "", nil
}

// NewShortcutEntryCondition separates fresh entries from suspended resumes.
func NewShortcutEntryCondition() func(context.Context, *model.Turn) (string, error) {
	return func(ctx context.Context, t *model.Turn) (string, error) {
		if sc := t.State.Shortcut; sc != nil && sc.Awaiting != "" {
			return NodeShortcutResume, nil
		}
		return NodeShortcutInit, nil
	}
}

// NewShortcutEntryNode is the dispatch point for the shortcut machine. The
// condition above reads the state directly; the node only logs.
func NewShortcutEntryNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		awaiting := ""
		if sc := t.State.Shortcut; sc != nil {
			awaiting = sc.Awaiting
		}
		logx.Debug().Str("awaiting", awaiting).Msg("shortcut entry")
		return t, nil
	})
}

// NewShortcutInitNode lists the backend operations, lets the model pick one
// and mounts the operation card. Terminal outcomes (registry failure, empty
// catalog, tool-less reply) are handled here too.
func NewShortcutInitNode(deps *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		sc := state.EnsureShortcut()
		tenantID, siteID := deps.tenantIDs(state)

		if sc.UserText == "" {
			sc.UserText = state.LatestUserText()
		}

		anchor := model.NewAnchorMessage()
		state.AppendMessage(anchor)
		sc.AnchorID = anchor.ID
		sc.UIID = "mcp_workflow:" + anchor.ID

		shortcutPush(state, sc, map[string]any{
			"status":  "loading",
			"title":   "正在连接 MCP Server...",
			"message": "获取可用工具列表",
		}, false)

		specs, err := deps.SiteRegistry.ListTools(ctx, tenantID, siteID)
		if err != nil {
			metrics.RegistryCalls.WithLabelValues("site_settings", "tools/list", "error").Inc()
			logx.Error().Err(err).Msg("site settings registry unreachable")
			sc.Error = err.Error()
			shortcutPush(state, sc, map[string]any{
				"status":  "error",
				"title":   "无法连接 MCP Server",
				"message": err.Error(),
			}, true)
			return t, nil
		}
		metrics.RegistryCalls.WithLabelValues("site_settings", "tools/list", "ok").Inc()

		if len(specs) == 0 {
			sc.Error = "MCP Server 未返回任何工具"
			shortcutPush(state, sc, map[string]any{
				"status":  "error",
				"title":   "无可用工具",
				"message": sc.Error,
			}, true)
			return t, nil
		}

		options := make([]model.ShortcutOption, 0, len(specs))
		for _, spec := range specs {
			options = append(options, model.ShortcutOption{
				Code:        spec.Name,
				Name:        spec.Name,
				Description: spec.Description,
			})
		}

		toolName, args, reply, err := toolSelection(ctx, deps, sc.UserText, specs)
		if err != nil {
			logx.Warn().Err(err).Msg("tool selection failed, falling back to manual choice")
			toolName, args, reply = "", nil, ""
		}

		if toolName == "" && reply != "" {
			sc.Options = options
			sc.NoToolSelected = true
			sc.Result = reply
			shortcutPush(state, sc, map[string]any{
				"status":  "done",
				"title":   "处理完成",
				"message": reply,
			}, true)
			state.AppendMessage(model.NewAssistantMessage(reply))
			return t, nil
		}

		var auto *model.ShortcutOption
		for i := range options {
			if options[i].Code == toolName {
				auto = &options[i]
				break
			}
		}

		if auto != nil {
			sc.Options = []model.ShortcutOption{*auto}
			sc.Recommended = auto.Code
			sc.Selected = auto
			sc.Params = args
			shortcutPush(state, sc, map[string]any{
				"status":      "ready",
				"title":       "后台操作",
				"options":     sc.Options,
				"recommended": sc.Recommended,
				"message":     fmt.Sprintf("AI 已自动选择：%s", auto.Name),
				"tool_args":   args,
			}, true)
		} else {
			sc.Options = options
			sc.Params = args
			shortcutPush(state, sc, map[string]any{
				"status":      "ready",
				"title":       "后台操作",
				"options":     options,
				"recommended": nil,
				"message":     fmt.Sprintf("请选择要执行的操作（共 %d 个）", len(options)),
			}, true)
		}
		return t, nil
	})
}

// NewShortcutInitCondition routes the init outcome: terminal failures end
// the turn, an unambiguous choice goes straight to confirmation, everything
// else asks the user to pick.
func NewShortcutInitCondition() func(context.Context, *model.Turn) (string, error) {
	return func(ctx context.Context, t *model.Turn) (string, error) {
		sc := t.State.Shortcut
		if sc == nil || sc.Error != "" || sc.NoToolSelected {
			return NodeFinish, nil
		}
		if sc.Selected != nil || len(sc.Options) == 1 {
			return NodeShortcutConfirm, nil
		}
		return NodeShortcutSelect, nil
	}
}

// NewShortcutSelectNode shows the pick-an-operation card and suspends the
// machine until the user answers in the next turn.
func NewShortcutSelectNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		sc := state.EnsureShortcut()

		shortcutPush(state, sc, map[string]any{
			"status":      "select",
			"title":       "请选择要执行的后台操作",
			"options":     sc.Options,
			"recommended": sc.Recommended,
			"message":     "AI 无法确定您的意图，请选择操作（输入序号或名称）",
		}, true)

		sc.Awaiting = model.AwaitingSelect
		sc.Confirmed = nil
		state.ResumeTarget = model.TargetShortcut
		return t, nil
	})
}

// NewShortcutConfirmNode shows the confirmation card and suspends.
func NewShortcutConfirmNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		sc := state.EnsureShortcut()

		if sc.Selected == nil && len(sc.Options) == 1 {
			sc.Selected = &sc.Options[0]
		}
		if sc.Selected == nil {
			sc.Error = "未选择操作"
			return t, nil
		}

		shortcutPush(state, sc, map[string]any{
			"status":   "confirm",
			"title":    "请确认操作",
			"selected": sc.Selected,
			"params":   sc.Params,
			"message":  fmt.Sprintf("即将执行「%s」操作，请确认或取消。", sc.Selected.Name),
		}, true)

		sc.Awaiting = model.AwaitingConfirm
		sc.Confirmed = nil
		state.ResumeTarget = model.TargetShortcut
		return t, nil
	})
}

// NewShortcutResumeNode interprets the user's answer to whichever card the
// machine suspended on.
func NewShortcutResumeNode(deps *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		sc := state.EnsureShortcut()
		text := state.LatestUserText()

		switch sc.Awaiting {
		case model.AwaitingSelect:
			selected := parseSelection(text, sc.Options)
			if selected == nil {
				// The cancelled terminal renders the card for this case.
				sc.Error = fmt.Sprintf("无效选择: %s", strings.TrimSpace(text))
				sc.Awaiting = ""
				return t, nil
			}
			sc.Selected = selected
			sc.Awaiting = ""
			// Re-extract arguments now that the operation is fixed.
			tenantID, siteID := deps.tenantIDs(state)
			if specs, err := deps.SiteRegistry.ListTools(ctx, tenantID, siteID); err == nil {
				if _, args, _, terr := toolSelection(ctx, deps, sc.UserText, specs); terr == nil && len(args) > 0 {
					sc.Params = args
				}
			}
		case model.AwaitingConfirm:
			confirmed := parseConfirmation(text)
			sc.Confirmed = &confirmed
			sc.Awaiting = ""
		}
		return t, nil
	})
}

// NewShortcutResumeCondition routes the interpreted answer.
func NewShortcutResumeCondition() func(context.Context, *model.Turn) (string, error) {
	return func(ctx context.Context, t *model.Turn) (string, error) {
		sc := t.State.Shortcut
		if sc == nil {
			return NodeFinish, nil
		}
		if sc.Error != "" {
			return NodeShortcutCancelled, nil
		}
		if sc.Confirmed != nil {
			if *sc.Confirmed {
				return NodeShortcutExecute, nil
			}
			return NodeShortcutCancelled, nil
		}
		if sc.Selected != nil {
			return NodeShortcutConfirm, nil
		}
		return NodeFinish, nil
	}
}

// NewShortcutExecuteNode calls the chosen operation against the registry and
// reports the outcome on the card.
func NewShortcutExecuteNode(deps *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		sc := state.EnsureShortcut()
		tenantID, siteID := deps.tenantIDs(state)
		state.ResumeTarget = ""

		if sc.Selected == nil {
			sc.Error = "未选择操作"
			return t, nil
		}

		shortcutPush(state, sc, map[string]any{
			"status":   "running",
			"title":    fmt.Sprintf("正在执行：%s", sc.Selected.Name),
			"selected": sc.Selected,
			"message":  "正在调用 MCP 服务…",
			"params":   sc.Params,
		}, true)

		res, err := deps.SiteRegistry.CallTool(ctx, sc.Selected.Code, sc.Params, tenantID, siteID)
		if err != nil {
			metrics.RegistryCalls.WithLabelValues("site_settings", "tools/call", "error").Inc()
			logx.Error().Err(err).Str("tool", sc.Selected.Code).Msg("shortcut execution failed")
			sc.Error = err.Error()
			shortcutPush(state, sc, map[string]any{
				"status":   "error",
				"title":    "执行失败",
				"selected": sc.Selected,
				"message":  sc.Error,
			}, true)
			return t, nil
		}
		metrics.RegistryCalls.WithLabelValues("site_settings", "tools/call", "ok").Inc()

		obj := registry.AsObject(registry.NormalizeResult(res))
		if obj != nil {
			if success, _ := obj["success"].(bool); success {
				resultText, _ := obj["message"].(string)
				if resultText == "" {
					resultText = "操作成功"
				}
				sc.Result = resultText
				shortcutPush(state, sc, map[string]any{
					"status":   "done",
					"title":    "执行完成",
					"selected": sc.Selected,
					"result":   resultText,
					"data":     obj["data"],
				}, true)
				state.AppendMessage(model.NewAssistantMessage(resultText))
				return t, nil
			}
			errMsg, _ := obj["error"].(string)
			if errMsg == "" {
				errMsg = "未知错误"
			}
			sc.Error = errMsg
			shortcutPush(state, sc, map[string]any{
				"status":   "error",
				"title":    "执行失败",
				"selected": sc.Selected,
				"message":  errMsg,
			}, true)
			return t, nil
		}

		resultText := "操作成功"
		if res != nil {
			if s := strings.TrimSpace(fmt.Sprint(registry.NormalizeResult(res))); s != "" {
				resultText = s
			}
		}
		sc.Result = resultText
		shortcutPush(state, sc, map[string]any{
			"status":   "done",
			"title":    "执行完成",
			"selected": sc.Selected,
			"result":   resultText,
		}, true)
		state.AppendMessage(model.NewAssistantMessage(resultText))
		return t, nil
	})
}

// NewShortcutCancelledNode is the declined/invalid terminal state.
func NewShortcutCancelledNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		sc := state.EnsureShortcut()
		state.ResumeTarget = ""
		sc.Awaiting = ""

		shortcutPush(state, sc, map[string]any{
			"status":  "cancelled",
			"title":   "已取消",
			"message": "后台操作已取消。",
		}, true)
		return t, nil
	})
}

// parseSelection resolves the user's reply to a 1-based index or a
// case-insensitive option name.
func parseSelection(text string, options []model.ShortcutOption) *model.ShortcutOption {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return nil
	}
	if idx, err := strconv.Atoi(s); err == nil {
		if idx >= 1 && idx <= len(options) {
			return &options[idx-1]
		}
		return nil
	}
	for i := range options {
		if s == strings.ToLower(options[i].Name) {
			return &options[i]
		}
	}
	return nil
}

var affirmatives = map[string]bool{
	"是": true, "确认": true, "确定": true, "好": true, "好的": true, "执行": true,
	"y": true, "yes": true, "ok": true, "confirm": true, "true": true, "1": true,
}

// parseConfirmation treats only an explicit affirmative as consent.
func parseConfirmation(text string) bool {
	return affirmatives[strings.ToLower(strings.TrimSpace(text))]
}
