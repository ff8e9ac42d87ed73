package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cms-copilot/server/internal/agent/model"
)

func shortcutOptions() []model.ShortcutOption {
	return []model.ShortcutOption{
		{Code: "update_site_name", Name: "update_site_name", Description: "修改站点名称"},
		{Code: "toggle_comments", Name: "toggle_comments", Description: "开关评论"},
	}
}

func TestParseSelection(t *testing.T) {
	opts := shortcutOptions()

	sel := parseSelection("2", opts)
	require.NotNil(t, sel)
	assert.Equal(t, "toggle_comments", sel.Code)

	sel = parseSelection(" Update_Site_Name ", opts)
	require.NotNil(t, sel)
	assert.Equal(t, "update_site_name", sel.Code)

	assert.Nil(t, parseSelection("0", opts))
	assert.Nil(t, parseSelection("3", opts))
	assert.Nil(t, parseSelection("unknown_tool", opts))
	assert.Nil(t, parseSelection("", opts))
}

func TestParseConfirmation(t *testing.T) {
	for _, yes := range []string{"是", "确认", "好的", "执行", "y", "YES", " ok "} {
		assert.True(t, parseConfirmation(yes), yes)
	}
	for _, no := range []string{"否", "取消", "不要", "n", "", "算了"} {
		assert.False(t, parseConfirmation(no), no)
	}
}

func TestShortcutEntryCondition(t *testing.T) {
	cond := NewShortcutEntryCondition()

	got, err := cond(context.Background(), &model.Turn{State: &model.CopilotState{}})
	require.NoError(t, err)
	assert.Equal(t, NodeShortcutInit, got)

	got, err = cond(context.Background(), &model.Turn{State: &model.CopilotState{
		Shortcut: &model.ShortcutState{Awaiting: model.AwaitingSelect},
	}})
	require.NoError(t, err)
	assert.Equal(t, NodeShortcutResume, got)
}

func TestShortcutInitCondition(t *testing.T) {
	cond := NewShortcutInitCondition()
	ctx := context.Background()

	for name, tc := range map[string]struct {
		sc   *model.ShortcutState
		want string
	}{
		"no state":     {nil, NodeFinish},
		"error":        {&model.ShortcutState{Error: "boom"}, NodeFinish},
		"tool-less":    {&model.ShortcutState{NoToolSelected: true}, NodeFinish},
		"auto choice":  {&model.ShortcutState{Options: shortcutOptions(), Selected: &shortcutOptions()[0]}, NodeShortcutConfirm},
		"single":       {&model.ShortcutState{Options: shortcutOptions()[:1]}, NodeShortcutConfirm},
		"manual pick":  {&model.ShortcutState{Options: shortcutOptions()}, NodeShortcutSelect},
	} {
		got, err := cond(ctx, &model.Turn{State: &model.CopilotState{Shortcut: tc.sc}})
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, name)
	}
}

func TestShortcutResumeCondition(t *testing.T) {
	cond := NewShortcutResumeCondition()
	ctx := context.Background()
	yes, no := true, false

	for name, tc := range map[string]struct {
		sc   *model.ShortcutState
		want string
	}{
		"no state":  {nil, NodeFinish},
		"error":     {&model.ShortcutState{Error: "无效选择"}, NodeShortcutCancelled},
		"confirmed": {&model.ShortcutState{Confirmed: &yes}, NodeShortcutExecute},
		"declined":  {&model.ShortcutState{Confirmed: &no}, NodeShortcutCancelled},
		"selected":  {&model.ShortcutState{Selected: &shortcutOptions()[0]}, NodeShortcutConfirm},
		"nothing":   {&model.ShortcutState{}, NodeFinish},
	} {
		got, err := cond(ctx, &model.Turn{State: &model.CopilotState{Shortcut: tc.sc}})
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, name)
	}
}

func TestShortcutInitAutoSelectsModelChoice(t *testing.T) {
	reg := &fakeRegistry{specs: []model.ToolSpec{
		{Name: "update_site_name", Description: "修改站点名称"},
		{Name: "toggle_comments", Description: "开关评论"},
	}}
	deps := &Deps{
		Extractor:    fakeLLM(toolCallReply("update_site_name", `{"name": "新站点"}`), nil),
		SiteRegistry: reg,
	}

	turn := newTurn(&model.CopilotState{}, "把站点名改成新站点")
	invokeNode(t, NewShortcutInitNode(deps), turn)

	sc := turn.State.Shortcut
	require.NotNil(t, sc)
	require.NotNil(t, sc.Selected)
	assert.Equal(t, "update_site_name", sc.Selected.Code)
	assert.Equal(t, "update_site_name", sc.Recommended)
	assert.Equal(t, "新站点", sc.Params["name"])
	require.Len(t, sc.Options, 1)

	// Card went through loading then ready.
	require.NotEmpty(t, turn.State.UI)
	last := turn.State.UI[len(turn.State.UI)-1]
	assert.Equal(t, CardMCPWorkflow, last.Name)
	assert.Equal(t, "ready", last.Props["status"])
}

func TestShortcutInitFreeTextReplyTerminates(t *testing.T) {
	reg := &fakeRegistry{specs: []model.ToolSpec{
		{Name: "update_site_name", Description: "修改站点名称"},
	}}
	deps := &Deps{
		Extractor:    fakeLLM(textReply("这个需求不属于后台操作，建议到内容管理里处理。"), nil),
		SiteRegistry: reg,
	}

	turn := newTurn(&model.CopilotState{}, "帮我写一首诗")
	invokeNode(t, NewShortcutInitNode(deps), turn)

	sc := turn.State.Shortcut
	require.NotNil(t, sc)
	assert.True(t, sc.NoToolSelected)
	assert.Nil(t, sc.Selected)
	assert.Contains(t, sc.Result, "不属于后台操作")

	last := turn.State.UI[len(turn.State.UI)-1]
	assert.Equal(t, "done", last.Props["status"])
	// The reply lands in the transcript as well.
	msgs := turn.State.TurnMessages
	assert.Equal(t, model.RoleAssistant, msgs[len(msgs)-1].Role)

	cond := NewShortcutInitCondition()
	next, err := cond(context.Background(), turn)
	require.NoError(t, err)
	assert.Equal(t, NodeFinish, next)
}

func TestShortcutInitRegistryFailureIsTerminal(t *testing.T) {
	deps := &Deps{
		Extractor:    fakeLLM(textReply("ok"), nil),
		SiteRegistry: &fakeRegistry{listErr: assert.AnError},
	}

	turn := newTurn(&model.CopilotState{}, "改一下站点设置")
	invokeNode(t, NewShortcutInitNode(deps), turn)

	sc := turn.State.Shortcut
	require.NotNil(t, sc)
	assert.NotEmpty(t, sc.Error)

	last := turn.State.UI[len(turn.State.UI)-1]
	assert.Equal(t, "error", last.Props["status"])
	assert.Equal(t, "无法连接 MCP Server", last.Props["title"])
}

func TestShortcutSelectSuspendsTurn(t *testing.T) {
	state := &model.CopilotState{Shortcut: &model.ShortcutState{
		Options: shortcutOptions(),
		UIID:    "mcp_workflow:x",
	}}
	turn := newTurn(state, "后台操作")

	invokeNode(t, NewShortcutSelectNode(), turn)

	assert.Equal(t, model.AwaitingSelect, state.Shortcut.Awaiting)
	assert.Equal(t, model.TargetShortcut, state.ResumeTarget)
	assert.Nil(t, state.Shortcut.Confirmed)
}

func TestShortcutResumeConfirmParsesAnswer(t *testing.T) {
	state := &model.CopilotState{Shortcut: &model.ShortcutState{
		Options:  shortcutOptions()[:1],
		Selected: &shortcutOptions()[0],
		Awaiting: model.AwaitingConfirm,
	}}
	turn := newTurn(state, "确认")

	deps := &Deps{Extractor: fakeLLM(textReply(""), nil), SiteRegistry: &fakeRegistry{}}
	invokeNode(t, NewShortcutResumeNode(deps), turn)

	require.NotNil(t, state.Shortcut.Confirmed)
	assert.True(t, *state.Shortcut.Confirmed)
	assert.Empty(t, state.Shortcut.Awaiting)
}

func TestShortcutResumeInvalidSelectionCancels(t *testing.T) {
	state := &model.CopilotState{Shortcut: &model.ShortcutState{
		Options:  shortcutOptions(),
		Awaiting: model.AwaitingSelect,
	}}
	turn := newTurn(state, "第九个")

	deps := &Deps{Extractor: fakeLLM(textReply(""), nil), SiteRegistry: &fakeRegistry{}}
	invokeNode(t, NewShortcutResumeNode(deps), turn)

	assert.NotEmpty(t, state.Shortcut.Error)
	assert.Empty(t, state.Shortcut.Awaiting)
	// The resume node itself stays silent; only the cancelled terminal talks.
	assert.Empty(t, state.UI)

	cond := NewShortcutResumeCondition()
	got, err := cond(context.Background(), turn)
	require.NoError(t, err)
	assert.Equal(t, NodeShortcutCancelled, got)

	invokeNode(t, NewShortcutCancelledNode(), turn)
	require.Len(t, state.UI, 1)
	assert.Equal(t, "cancelled", state.UI[0].Props["status"])
}

func TestShortcutExecuteSuccess(t *testing.T) {
	reg := &fakeRegistry{callResult: map[string]any{
		"success": true,
		"message": "站点名称已更新",
		"data":    map[string]any{"name": "新站点"},
	}}
	state := &model.CopilotState{Shortcut: &model.ShortcutState{
		Selected: &shortcutOptions()[0],
		Params:   map[string]any{"name": "新站点"},
	}}
	turn := newTurn(state, "确认")

	invokeNode(t, NewShortcutExecuteNode(&Deps{SiteRegistry: reg}), turn)

	assert.Equal(t, "update_site_name", reg.calledWith)
	assert.Equal(t, "站点名称已更新", state.Shortcut.Result)
	assert.Equal(t, model.EntryTarget(""), state.ResumeTarget)

	last := state.UI[len(state.UI)-1]
	assert.Equal(t, "done", last.Props["status"])

	// Result lands in the transcript too.
	msgs := state.TurnMessages
	assert.Equal(t, "站点名称已更新", msgs[len(msgs)-1].Content)
}

func TestShortcutExecuteToolErrorObject(t *testing.T) {
	reg := &fakeRegistry{callResult: map[string]any{
		"success": false,
		"error":   "参数校验失败",
	}}
	state := &model.CopilotState{Shortcut: &model.ShortcutState{Selected: &shortcutOptions()[0]}}
	turn := newTurn(state, "确认")

	invokeNode(t, NewShortcutExecuteNode(&Deps{SiteRegistry: reg}), turn)

	assert.Equal(t, "参数校验失败", state.Shortcut.Error)
	last := state.UI[len(state.UI)-1]
	assert.Equal(t, "error", last.Props["status"])
}

func TestShortcutCancelledClearsSuspension(t *testing.T) {
	state := &model.CopilotState{
		ResumeTarget: model.TargetShortcut,
		Shortcut:     &model.ShortcutState{Awaiting: model.AwaitingConfirm},
	}
	turn := newTurn(state, "取消")

	invokeNode(t, NewShortcutCancelledNode(), turn)

	assert.Equal(t, model.EntryTarget(""), state.ResumeTarget)
	assert.Empty(t, state.Shortcut.Awaiting)
	last := state.UI[len(state.UI)-1]
	assert.Equal(t, "cancelled", last.Props["status"])
}
