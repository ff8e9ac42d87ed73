package nodes

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cms-copilot/server/internal/agent/model"
)

func TestReportUINodeMountsProgressCard(t *testing.T) {
	state := &model.CopilotState{}
	turn := newTurn(state, "看一下最近的访问量")

	invokeNode(t, NewReportUINode(), turn)

	rs := state.Report
	require.NotNil(t, rs)
	assert.NotEmpty(t, rs.AnchorID)
	assert.NotEmpty(t, rs.ProgressUIID)
	assert.NotEmpty(t, rs.ChartsUIID)
	assert.NotEmpty(t, rs.InsightsUIID)
	assert.Equal(t, "看一下最近的访问量", rs.UserText)

	require.Len(t, state.UI, 1)
	assert.Equal(t, CardReportProgress, state.UI[0].Name)
	assert.Equal(t, "loading", state.UI[0].Props["status"])
}

func TestReportInitResolvesPropertyFromUserText(t *testing.T) {
	reg := &fakeRegistry{specs: []model.ToolSpec{{Name: "run_report"}}}
	deps := &Deps{
		AnalyticsRegistry: reg,
		Report:            model.ReportConfig{PropertyID: "properties/1", DefaultDays: 7},
	}

	state := &model.CopilotState{}
	turn := newTurn(state, "看 properties/999 的数据")
	invokeNode(t, NewReportUINode(), turn)
	invokeNode(t, NewReportInitNode(deps), turn)

	rs := state.Report
	assert.Equal(t, "properties/999", rs.PropertyID)
	require.Len(t, rs.ToolSpecs, 1)
	assert.Empty(t, rs.ToolError)
}

func TestReportInitFallsBackToConfiguredProperty(t *testing.T) {
	deps := &Deps{
		AnalyticsRegistry: &fakeRegistry{},
		Report:            model.ReportConfig{PropertyID: "properties/1", DefaultDays: 7},
	}

	state := &model.CopilotState{}
	turn := newTurn(state, "最近访问量如何")
	invokeNode(t, NewReportUINode(), turn)
	invokeNode(t, NewReportInitNode(deps), turn)

	assert.Equal(t, "properties/1", state.Report.PropertyID)
}

func TestReportInitRegistryFailureSetsToolError(t *testing.T) {
	deps := &Deps{
		AnalyticsRegistry: &fakeRegistry{listErr: errors.New("connect refused")},
		Report:            model.ReportConfig{PropertyID: "properties/1"},
	}

	state := &model.CopilotState{}
	turn := newTurn(state, "最近访问量如何")
	invokeNode(t, NewReportUINode(), turn)
	invokeNode(t, NewReportInitNode(deps), turn)

	assert.Equal(t, "connect refused", state.Report.ToolError)
}

func TestReportExecuteConditionShortCircuitsOnToolError(t *testing.T) {
	cond := NewReportExecuteCondition()

	state := &model.CopilotState{}
	state.EnsureReport().ToolError = "down"
	next, err := cond(context.Background(), &model.Turn{State: state})
	require.NoError(t, err)
	assert.Equal(t, NodeReportFinalize, next)

	state2 := &model.CopilotState{}
	state2.EnsureReport()
	next, err = cond(context.Background(), &model.Turn{State: state2})
	require.NoError(t, err)
	assert.Equal(t, NodeReportAnalyze, next)
}

func gaRowsResult() map[string]any {
	return map[string]any{
		"dimension_headers": []any{map[string]any{"name": "date"}},
		"metric_headers":    []any{map[string]any{"name": "sessions"}},
		"rows": []any{
			map[string]any{
				"dimension_values": []any{map[string]any{"value": "20260801"}},
				"metric_values":    []any{map[string]any{"value": "42"}},
			},
		},
	}
}

func TestReportExecuteBuildsToolResult(t *testing.T) {
	reg := &fakeRegistry{callResult: gaRowsResult()}
	deps := &Deps{
		// Planner model errors out, so the default plan runs.
		Extractor:         fakeLLM(nil, errors.New("model unavailable")),
		AnalyticsRegistry: reg,
		Report:            model.ReportConfig{PropertyID: "properties/1", DefaultDays: 7},
	}

	state := &model.CopilotState{}
	turn := newTurn(state, "最近流量怎么样")
	invokeNode(t, NewReportUINode(), turn)
	invokeNode(t, NewReportExecuteNode(deps), turn)

	rs := state.Report
	require.NotNil(t, rs.ToolResult)
	require.Len(t, rs.Plan, 3)
	assert.Len(t, rs.ToolResult.Raws, 3)
	require.NotNil(t, rs.ToolResult.Summary)
	// Every fake call answers the same date report; summary totals stack.
	assert.Equal(t, 42, rs.ToolResult.Summary.TotalVisits)
	assert.Contains(t, rs.ToolResult.Charts, "daily_visits")
}

func TestReportExecuteCallFailureBecomesRawError(t *testing.T) {
	reg := &fakeRegistry{callErr: errors.New("quota exceeded")}
	deps := &Deps{
		Extractor:         fakeLLM(nil, errors.New("model unavailable")),
		AnalyticsRegistry: reg,
		Report:            model.ReportConfig{PropertyID: "properties/1", DefaultDays: 7},
	}

	state := &model.CopilotState{}
	turn := newTurn(state, "看一下设备占比")
	invokeNode(t, NewReportUINode(), turn)
	invokeNode(t, NewReportExecuteNode(deps), turn)

	rs := state.Report
	require.NotNil(t, rs.ToolResult)
	require.Len(t, rs.ToolResult.Raws, 1)
	assert.Equal(t, "quota exceeded", rs.ToolResult.Raws[0].Error)
	assert.Nil(t, rs.ToolResult.Summary)
}

func TestReportAnalyzeBuildsEvidence(t *testing.T) {
	deps := &Deps{Report: model.ReportConfig{DefaultDays: 7}}

	state := &model.CopilotState{}
	turn := newTurn(state, "最近流量")
	state.EnsureReport().ToolResult = &model.ToolResult{
		Summary: &model.ReportSummary{TotalVisits: 10},
	}
	invokeNode(t, NewReportAnalyzeNode(deps), turn)

	ev := state.Report.Evidence
	require.NotNil(t, ev)
	assert.Equal(t, 7, ev.Window.Days)
	assert.Equal(t, 10, ev.Summary.TotalVisits)
}

func TestReportFinalizeErrorPath(t *testing.T) {
	deps := &Deps{}

	state := &model.CopilotState{}
	turn := newTurn(state, "最近流量")
	invokeNode(t, NewReportUINode(), turn)
	state.Report.ToolError = "registry down"
	state.ResumeTarget = model.TargetReportUI
	invokeNode(t, NewReportFinalizeNode(deps), turn)

	assert.Empty(t, state.ResumeTarget)
	last := state.UI[len(state.UI)-1]
	assert.Equal(t, CardReportProgress, last.Name)
	assert.Equal(t, "error", last.Props["status"])
	assert.Equal(t, "registry down", last.Props["error_message"])
}

func TestReportFinalizeClosesAllThreeCards(t *testing.T) {
	deps := &Deps{}

	state := &model.CopilotState{}
	turn := newTurn(state, "最近流量")
	invokeNode(t, NewReportUINode(), turn)
	state.Report.ToolResult = &model.ToolResult{Summary: &model.ReportSummary{TotalVisits: 5}}
	invokeNode(t, NewReportFinalizeNode(deps), turn)

	n := len(state.UI)
	require.GreaterOrEqual(t, n, 3)
	assert.Equal(t, CardReportProgress, state.UI[n-3].Name)
	assert.Equal(t, CardReportCharts, state.UI[n-2].Name)
	assert.Equal(t, CardReportInsights, state.UI[n-1].Name)
	for _, snap := range state.UI[n-3:] {
		assert.Equal(t, "done", snap.Props["status"])
	}
}
