package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/cms-copilot/server/internal/agent/analytics"
	"github.com/cms-copilot/server/internal/agent/graph/prompts"
	"github.com/cms-copilot/server/internal/agent/insights"
	"github.com/cms-copilot/server/internal/agent/model"
	"github.com/cms-copilot/server/internal/agent/tools/registry"
	"github.com/cms-copilot/server/internal/metrics"
	logx "github.com/cms-copilot/server/pkg/logger"
)

var reportSteps = []string{"AI 规划调用", "获取数据", "展示图表", "生成洞察", "完成"}

func reportPush(state *model.CopilotState, rs *model.ReportState, card, uiID string, props map[string]any, merge bool) {
	state.PushUI(model.UISnapshot{
		Name:            card,
		ID:              uiID,
		AnchorMessageID: rs.AnchorID,
		Merge:           merge,
		Props:           props,
	})
}

// chartsSnapshot is the report body carried by the charts card.
func chartsSnapshot(siteID string, tr *model.ToolResult) map[string]any {
	snap := map[string]any{
		"site_id":          siteID,
		"report_type":      "overview",
		"report_type_name": "网站数据报告",
		"summary":          map[string]any{},
		"charts":           map[string]*model.Chart{},
	}
	if tr != nil {
		if tr.Summary != nil {
			snap["summary"] = tr.Summary
		}
		if len(tr.Charts) > 0 {
			snap["charts"] = tr.Charts
		}
	}
	return snap
}

// insightsSnapshot is the report body carried by the insights card. Only
// populated sections are included so merges never blank out earlier data.
func insightsSnapshot(siteID string, rs *model.ReportState) map[string]any {
	snap := map[string]any{
		"site_id":          siteID,
		"report_type":      "overview",
		"report_type_name": "网站数据报告",
	}
	if rs.Evidence != nil {
		snap["data_quality"] = rs.Evidence.DataQuality
	}
	out := rs.Insights
	if out == nil {
		return snap
	}
	if todos := mapTodos(out.Todos); len(todos) > 0 {
		snap["todos"] = todos
	}
	if out.Insights != nil {
		snap["insights"] = out.Insights
	}
	if len(out.Actions) > 0 {
		snap["actions"] = out.Actions
	}
	if out.Trace != nil {
		snap["trace"] = out.Trace
	}
	if len(out.StepOutputs) > 0 {
		snap["step_outputs"] = out.StepOutputs
	}
	return snap
}

func mapTodos(todos []model.Todo) []map[string]any {
	mapped := make([]map[string]any, 0, len(todos))
	for i, todo := range todos {
		content := strings.TrimSpace(todo.Content)
		if content == "" {
			continue
		}
		item := map[string]any{
			"id":    fmt.Sprintf("todo-%d", i+1),
			"title": content,
		}
		if status := strings.TrimSpace(todo.Status); status != "" {
			item["description"] = "状态：" + status
		}
		mapped = append(mapped, item)
	}
	return mapped
}

// NewReportUINode creates the anchor and the three card ids, then mounts
// the progress card.
func NewReportUINode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		rs := state.EnsureReport()

		anchor := model.NewAnchorMessage()
		state.AppendMessage(anchor)
		rs.AnchorID = anchor.ID
		rs.ProgressUIID = "report_progress:" + anchor.ID
		rs.ChartsUIID = "report_charts:" + anchor.ID
		rs.InsightsUIID = "report_insights:" + anchor.ID
		rs.UserText = state.LatestUserText()

		reportPush(state, rs, CardReportProgress, rs.ProgressUIID, map[string]any{
			"status":        "loading",
			"step":          "initializing",
			"user_text":     rs.UserText,
			"steps":         reportSteps,
			"active_step":   1,
			"report":        nil,
			"error_message": nil,
		}, false)
		return t, nil
	})
}

// NewReportInitNode fetches the analytics tool catalog and resolves the
// property id for the run.
func NewReportInitNode(deps *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		rs := state.EnsureReport()
		tenantID, siteID := deps.tenantIDs(state)

		reportPush(state, rs, CardReportProgress, rs.ProgressUIID, map[string]any{
			"status":      "loading",
			"step":        "listing_tools",
			"steps":       reportSteps,
			"active_step": 1,
			"message":     "正在从 GA MCP 获取工具列表…",
		}, true)

		specs, err := deps.AnalyticsRegistry.ListTools(ctx, tenantID, siteID)
		if err != nil {
			metrics.RegistryCalls.WithLabelValues("analytics", "tools/list", "error").Inc()
			logx.Error().Err(err).Msg("analytics registry unreachable")
			rs.ToolError = err.Error()
			return t, nil
		}
		metrics.RegistryCalls.WithLabelValues("analytics", "tools/list", "ok").Inc()
		rs.ToolSpecs = specs

		rs.PropertyID = analytics.ExtractPropertyID(rs.UserText)
		if rs.PropertyID == "" {
			rs.PropertyID = deps.Report.PropertyID
		}

		reportPush(state, rs, CardReportProgress, rs.ProgressUIID, map[string]any{
			"status":      "loading",
			"step":        "planning",
			"steps":       reportSteps,
			"active_step": 1,
			"message":     fmt.Sprintf("已获取 %d 个 GA MCP 工具，AI 正在规划调用…", len(specs)),
		}, true)
		return t, nil
	})
}

// NewReportExecuteNode plans the data fetches up front and then runs them
// sequentially. Individual call failures become warnings in the raw record
// instead of aborting the report.
func NewReportExecuteNode(deps *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		rs := state.EnsureReport()
		if rs.ToolError != "" {
			return t, nil
		}
		tenantID, siteID := deps.tenantIDs(state)

		reportPush(state, rs, CardReportProgress, rs.ProgressUIID, map[string]any{
			"status":      "loading",
			"step":        "fetching_data",
			"steps":       reportSteps,
			"active_step": 2,
			"message":     "AI 正在基于 MCP 工具列表规划数据获取方案…",
		}, true)

		plan := planReport(ctx, deps, rs)
		plan = analytics.DedupePlan(plan)
		rs.Plan = plan

		descs := make([]string, 0, len(plan))
		charts := map[string]*model.Chart{}
		var summary *model.ReportSummary
		raws := make([]model.RawToolCall, 0, len(plan))

		for _, item := range plan {
			desc := item.Desc
			if desc == "" {
				desc = item.Tool
			}
			descs = append(descs, desc)

			args := item.Args
			if item.Tool == "run_report" || item.Tool == "run_realtime_report" {
				args = analytics.NormalizeArgs(item.Tool, args, rs.PropertyID, deps.Report.DefaultDays)
			}

			raw := model.RawToolCall{Desc: desc, Tool: item.Tool, Args: args}
			out, err := deps.AnalyticsRegistry.CallTool(ctx, item.Tool, args, tenantID, siteID)
			if err != nil {
				metrics.RegistryCalls.WithLabelValues("analytics", "tools/call", "error").Inc()
				logx.Warn().Err(err).Str("tool", item.Tool).Str("desc", desc).Msg("analytics call failed")
				raw.Error = err.Error()
				raws = append(raws, raw)
				continue
			}
			metrics.RegistryCalls.WithLabelValues("analytics", "tools/call", "ok").Inc()

			norm := registry.NormalizeResult(out)
			raw.Result = registry.AsObject(norm)
			raws = append(raws, raw)

			result := analytics.DecodeReportResult(norm)
			if result == nil {
				continue
			}
			if summary == nil {
				summary = analytics.BuildSummary(result)
			}
			chart := analytics.BuildChart(result)
			slot := analytics.ChartSlot(result)
			if chart != nil && slot != "" {
				if _, taken := charts[slot]; !taken {
					charts[slot] = chart
				}
			}
		}

		rs.ToolResult = &model.ToolResult{
			Final:   fmt.Sprintf("已完成 %d 次数据获取（%s）", len(plan), strings.Join(descs, ", ")),
			Summary: summary,
			Charts:  charts,
			Raws:    raws,
		}

		reportPush(state, rs, CardReportProgress, rs.ProgressUIID, map[string]any{
			"status":      "loading",
			"step":        "plan_ready",
			"steps":       reportSteps,
			"active_step": 2,
			"message":     "本次将获取以下数据：\n- " + strings.Join(descs, "\n- "),
		}, true)
		return t, nil
	})
}

// planReport asks the model for a fetch plan and falls back to the default
// plan when the reply is unusable.
func planReport(ctx context.Context, deps *Deps, rs *model.ReportState) []model.ReportPlanItem {
	msgs, err := prompts.Render(ctx,
		schema.UserMessage(prompts.BuildReportPlanningPrompt(rs.UserText, rs.PropertyID, rs.ToolSpecs)),
	)
	if err == nil {
		if obj, jerr := deps.Extractor.CompleteJSON(ctx, msgs); jerr == nil {
			if items := analytics.ParsePlanItems(obj); len(items) > 0 {
				return items
			}
		}
	}
	logx.Debug().Msg("report planning fell back to the default plan")
	return analytics.DefaultPlan(rs.UserText, rs.PropertyID, deps.Report.DefaultDays)
}

// NewReportExecuteCondition short-circuits to finalize when the registry
// was unreachable.
func NewReportExecuteCondition() func(context.Context, *model.Turn) (string, error) {
	return func(ctx context.Context, t *model.Turn) (string, error) {
		if rs := t.State.Report; rs != nil && rs.ToolError != "" {
			return NodeReportFinalize, nil
		}
		return NodeReportAnalyze, nil
	}
}

// NewReportAnalyzeNode derives the evidence pack from the raw tool results.
func NewReportAnalyzeNode(deps *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		rs := t.State.EnsureReport()
		rs.Evidence = insights.BuildEvidencePack(rs.ToolResult, deps.Report.DefaultDays)
		return t, nil
	})
}

// NewReportRenderNode pushes the charts card as soon as the data is in.
func NewReportRenderNode(deps *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		rs := state.EnsureReport()
		_, siteID := deps.tenantIDs(state)

		reportPush(state, rs, CardReportCharts, rs.ChartsUIID, map[string]any{
			"status":      "loading",
			"step":        "charts_ready",
			"steps":       reportSteps,
			"active_step": 3,
			"message":     "图表已生成，正在生成洞察与 Todo…",
			"report":      chartsSnapshot(siteID, rs.ToolResult),
		}, true)
		reportPush(state, rs, CardReportProgress, rs.ProgressUIID, map[string]any{
			"status":      "loading",
			"step":        "charts_ready",
			"steps":       reportSteps,
			"active_step": 3,
			"message":     "图表已生成，正在生成洞察与 Todo…",
		}, true)
		return t, nil
	})
}

// NewReportInsightsNode runs the insights agent. A failure here degrades to
// a report without insights instead of failing the turn.
func NewReportInsightsNode(deps *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		rs := state.EnsureReport()
		_, siteID := deps.tenantIDs(state)

		reportPush(state, rs, CardReportInsights, rs.InsightsUIID, map[string]any{
			"status":      "loading",
			"step":        "generating_insights",
			"steps":       reportSteps,
			"active_step": 4,
			"message":     "正在生成解读与可执行 Todo…",
		}, true)
		reportPush(state, rs, CardReportProgress, rs.ProgressUIID, map[string]any{
			"status":      "loading",
			"step":        "generating_insights",
			"steps":       reportSteps,
			"active_step": 4,
			"message":     "正在生成洞察…",
		}, true)

		out, err := deps.Insights.Generate(ctx, rs.Evidence, rs.UserText)
		if err != nil {
			logx.Warn().Err(err).Msg("insights generation failed, report continues without insights")
			rs.Error = fmt.Sprintf("generate_insights_failed: %v", err)
			return t, nil
		}
		rs.Insights = out

		reportPush(state, rs, CardReportInsights, rs.InsightsUIID, map[string]any{
			"status":      "loading",
			"step":        "insights_ready",
			"steps":       reportSteps,
			"active_step": 4,
			"message":     "洞察已生成，正在汇总报告…",
			"report":      insightsSnapshot(siteID, rs),
		}, true)
		reportPush(state, rs, CardReportProgress, rs.ProgressUIID, map[string]any{
			"status":      "loading",
			"step":        "insights_ready",
			"steps":       reportSteps,
			"active_step": 4,
			"message":     "洞察已生成，正在汇总报告…",
		}, true)
		return t, nil
	})
}

// NewReportFinalizeNode closes all three cards, either as done or with the
// fatal tool error.
func NewReportFinalizeNode(deps *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		rs := state.EnsureReport()
		_, siteID := deps.tenantIDs(state)
		state.ResumeTarget = ""

		if rs.ToolError != "" {
			reportPush(state, rs, CardReportProgress, rs.ProgressUIID, map[string]any{
				"status":        "error",
				"step":          "failed",
				"steps":         reportSteps,
				"active_step":   5,
				"error_message": rs.ToolError,
			}, true)
			return t, nil
		}

		reportPush(state, rs, CardReportProgress, rs.ProgressUIID, map[string]any{
			"status":      "done",
			"step":        "completed",
			"steps":       reportSteps,
			"active_step": 5,
			"message":     "报告已生成。",
		}, true)
		reportPush(state, rs, CardReportCharts, rs.ChartsUIID, map[string]any{
			"status":  "done",
			"step":    "completed",
			"message": "图表数据已生成。",
			"report":  chartsSnapshot(siteID, rs.ToolResult),
		}, true)
		reportPush(state, rs, CardReportInsights, rs.InsightsUIID, map[string]any{
			"status":  "done",
			"step":    "completed",
			"message": "洞察已生成。",
			"report":  insightsSnapshot(siteID, rs),
		}, true)
		return t, nil
	})
}
