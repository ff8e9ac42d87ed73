package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/cms-copilot/server/internal/agent/llm"
	"github.com/cms-copilot/server/internal/agent/model"
	logx "github.com/cms-copilot/server/pkg/logger"
)

const maxPlanSteps = 4

// Agent runs the plan/execute/summarize sequence over an evidence pack.
// Two LLM calls bound fact introduction: the planner only chooses what to
// look at, the summarizer only narrates what the executor computed.
type Agent struct {
	llm *llm.Client
}

func NewAgent(client *llm.Client) *Agent {
	return &Agent{llm: client}
}

func (a *Agent) Generate(ctx context.Context, pack *model.EvidencePack, userText string) (*model.InsightsOutput, error) {
	plan := a.plan(ctx, pack, userText)
	stepOutputs := ExecutePlan(pack, plan)

	out := &model.InsightsOutput{
		Plan:        plan,
		StepOutputs: stepOutputs,
	}
	for _, step := range plan.Steps {
		out.Todos = append(out.Todos, model.Todo{Content: step.Title, Status: "completed"})
	}
	out.Trace = &model.Trace{
		TodoSummary: "本次洞察按计划步骤逐项分析并产出结论。",
		UsedTodos:   usedTitles(plan),
	}

	summary, err := a.summarize(ctx, stepOutputs)
	if err != nil {
		logx.Warn().Err(err).Msg("insights summarize failed, returning step outputs only")
		return out, nil
	}
	out.Insights = summary.Insights
	out.Actions = summary.Actions
	return out, nil
}

// plan asks the model for 1-4 titled analysis steps. Malformed output falls
// back to a deterministic plan over whatever the pack actually contains.
func (a *Agent) plan(ctx context.Context, pack *model.EvidencePack, userText string) *model.AnalysisPlan {
	chartKeys := make([]string, 0, len(pack.Charts))
	for k := range pack.Charts {
		chartKeys = append(chartKeys, k)
	}
	sort.Strings(chartKeys)

	packJSON, _ := json.Marshal(pack)
	prompt := "你是站点 GA 报表分析规划器。\n" +
		"请根据 EvidencePack 中可用字段，生成 1~4 条分析步骤计划（steps）。\n" +
		"每条步骤要说明：title（标题）、evidence_refs（可引用的字段路径，如 summary / charts.device_stats / data_quality）、output_expectation（期望产出）。\n" +
		"禁止编造不存在的字段。\n" +
		"输出严格 JSON：{\"steps\": [{\"title\": \"...\", \"evidence_refs\": [\"...\"], \"output_expectation\": \"...\"}]}\n" +
		fmt.Sprintf("可用 charts keys：%v\n", chartKeys) +
		fmt.Sprintf("用户问题（可选）：%s\n", userText) +
		"EvidencePack（JSON）：\n" + string(packJSON)

	obj, err := a.llm.CompleteJSON(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err == nil {
		if plan := parsePlan(obj); plan != nil && len(plan.Steps) > 0 {
			if len(plan.Steps) > maxPlanSteps {
				plan.Steps = plan.Steps[:maxPlanSteps]
			}
			return plan
		}
	}
	logx.Warn().Err(err).Msg("insights plan extraction failed, using default plan")
	return defaultPlan(pack)
}

func parsePlan(obj map[string]any) *model.AnalysisPlan {
	raw, _ := obj["steps"].([]any)
	plan := &model.AnalysisPlan{}
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		step := model.PlanStep{
			Title:             strings.TrimSpace(fmt.Sprint(m["title"])),
			OutputExpectation: strings.TrimSpace(fmt.Sprint(m["output_expectation"])),
		}
		if refs, ok := m["evidence_refs"].([]any); ok {
			for _, r := range refs {
				step.EvidenceRefs = append(step.EvidenceRefs, fmt.Sprint(r))
			}
		}
		if step.Title == "" || step.Title == "<nil>" {
			continue
		}
		plan.Steps = append(plan.Steps, step)
	}
	return plan
}

func defaultPlan(pack *model.EvidencePack) *model.AnalysisPlan {
	plan := &model.AnalysisPlan{}
	if pack.Summary != nil {
		plan.Steps = append(plan.Steps, model.PlanStep{
			Title:             "核心指标摘要",
			EvidenceRefs:      []string{"summary"},
			OutputExpectation: "关键指标数值",
		})
	}
	if _, ok := pack.Charts["daily_visits"]; ok {
		plan.Steps = append(plan.Steps, model.PlanStep{
			Title:             "访问趋势",
			EvidenceRefs:      []string{"charts.daily_visits"},
			OutputExpectation: "趋势概述",
		})
	}
	if _, ok := pack.Charts["traffic_sources"]; ok {
		plan.Steps = append(plan.Steps, model.PlanStep{
			Title:             "流量来源分布",
			EvidenceRefs:      []string{"charts.traffic_sources"},
			OutputExpectation: "Top 来源与占比",
		})
	}
	if _, ok := pack.Charts["device_stats"]; ok {
		plan.Steps = append(plan.Steps, model.PlanStep{
			Title:             "设备分布",
			EvidenceRefs:      []string{"charts.device_stats"},
			OutputExpectation: "设备占比",
		})
	}
	if len(plan.Steps) < maxPlanSteps {
		plan.Steps = append(plan.Steps, model.PlanStep{
			Title:             "数据质量提示",
			EvidenceRefs:      []string{"data_quality"},
			OutputExpectation: "数据质量提示",
		})
	}
	if len(plan.Steps) > maxPlanSteps {
		plan.Steps = plan.Steps[:maxPlanSteps]
	}
	return plan
}

// ExecutePlan deterministically resolves each plan step against the evidence
// pack. Steps matching no rule get a placeholder naming the capability gap.
func ExecutePlan(pack *model.EvidencePack, plan *model.AnalysisPlan) []model.StepOutput {
	out := make([]model.StepOutput, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		title := step.Title
		titleL := strings.ToLower(title)
		refs := strings.ToLower(strings.Join(step.EvidenceRefs, " "))
		var lines []string
		var ref string

		if strings.Contains(title, "核心") || strings.Contains(title, "指标") || strings.Contains(refs, "summary") {
			lines = append(lines, summaryLines(pack.Summary)...)
			ref = "summary"
		}
		if strings.Contains(title, "设备") || strings.Contains(titleL, "device") || strings.Contains(refs, "charts.device") {
			lines = append(lines, distributionLines(pack.Charts["device_stats"], "设备总量")...)
			ref = "charts.device_stats"
		}
		if strings.Contains(title, "来源") || strings.Contains(title, "渠道") || strings.Contains(titleL, "traffic") || strings.Contains(refs, "charts.traffic") {
			lines = append(lines, distributionLines(pack.Charts["traffic_sources"], "来源总量")...)
			ref = "charts.traffic_sources"
		}
		if strings.Contains(title, "趋势") || strings.Contains(titleL, "trend") || strings.Contains(refs, "charts.daily") {
			lines = append(lines, trendLines(pack.Charts["daily_visits"])...)
			ref = "charts.daily_visits"
		}
		if strings.Contains(title, "质量") || strings.Contains(title, "口径") || strings.Contains(refs, "data_quality") {
			lines = append(lines, qualityLines(pack.DataQuality)...)
			ref = "data_quality"
		}

		if len(lines) == 0 {
			lines = append(lines, fmt.Sprintf("（该步骤暂未实现确定性执行规则：%s）", step.OutputExpectation))
			ref = ""
			if len(step.EvidenceRefs) > 0 {
				ref = step.EvidenceRefs[0]
			}
		}

		out = append(out, model.StepOutput{
			Step:        title,
			Result:      strings.Join(lines, "\n"),
			EvidenceRef: ref,
		})
	}
	return out
}

// BuildSummaryPrompt composes the summarizer input. Only step outputs go in;
// the raw evidence pack is deliberately out of reach here.
func BuildSummaryPrompt(stepOutputs []model.StepOutput) string {
	b, _ := json.Marshal(stepOutputs)
	return "你是站点 GA 报表洞察助手。\n" +
		"只能基于 step_outputs（逐步产出）给出最终洞察与建议动作，禁止引入 step_outputs 之外的新事实。\n" +
		"请输出严格 JSON：{\"insights\": {\"one_liner\": \"...\", \"evidence\": [\"...\"], \"hypotheses\": [{\"text\": \"...\", \"confidence\": \"high|medium|low\", \"next_step\": \"...\"}]}, \"actions\": [{\"id\": \"...\", \"title\": \"...\", \"why\": \"...\", \"effort\": \"low|medium|high\", \"impact\": \"low|medium|high\"}]}\n" +
		"actions 给 1~3 条。\n" +
		"step_outputs（JSON）：\n" + string(b)
}

type summarizeResult struct {
	Insights *model.Insights
	Actions  []model.Action
}

func (a *Agent) summarize(ctx context.Context, stepOutputs []model.StepOutput) (*summarizeResult, error) {
	obj, err := a.llm.CompleteJSON(ctx, []*schema.Message{
		schema.UserMessage(BuildSummaryPrompt(stepOutputs)),
	})
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Insights *model.Insights `json:"insights"`
		Actions  []model.Action  `json:"actions"`
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		return nil, fmt.Errorf("decode insights output: %w", err)
	}
	if decoded.Insights == nil || decoded.Insights.OneLiner == "" {
		return nil, fmt.Errorf("insights output missing one_liner")
	}
	if len(decoded.Actions) > 3 {
		decoded.Actions = decoded.Actions[:3]
	}
	return &summarizeResult{Insights: decoded.Insights, Actions: decoded.Actions}, nil
}

// --- deterministic step rules ---

func summaryLines(s *model.ReportSummary) []string {
	if s == nil {
		return nil
	}
	lines := []string{
		fmt.Sprintf("总访问量 sessions：%s", fmtInt(s.TotalVisits)),
		fmt.Sprintf("独立访客 activeUsers：%s", fmtInt(s.TotalUniqueVisitors)),
		fmt.Sprintf("页面浏览 pageViews：%s", fmtInt(s.TotalPageViews)),
	}
	if s.PagesPerSession > 0 {
		lines = append(lines, fmt.Sprintf("每会话浏览页数 pages/session：%v", s.PagesPerSession))
	}
	return lines
}

func distributionLines(chart *model.Chart, totalLabel string) []string {
	total, dist := extractPieDistribution(chart)
	if total == 0 || len(dist) == 0 {
		return nil
	}
	parts := make([]string, 0, len(dist))
	for _, d := range dist {
		parts = append(parts, fmt.Sprintf("%s %s（%s）", d.name, fmtInt(d.value), fmtPct(d.share)))
	}
	return []string{fmt.Sprintf("%s：%s；Top： %s", totalLabel, fmtInt(total), strings.Join(parts, "，"))}
}

func trendLines(chart *model.Chart) []string {
	if chart == nil || len(chart.Data) == 0 || len(chart.YKeys) == 0 {
		return nil
	}
	first := chart.Data[0]
	last := chart.Data[len(chart.Data)-1]
	xKey := chart.XKey
	if xKey == "" {
		xKey = "date"
	}
	yKey := chart.YKeys[0]
	v0, ok0 := asFloat(first[yKey])
	v1, ok1 := asFloat(last[yKey])
	if !ok0 || !ok1 {
		return nil
	}
	return []string{fmt.Sprintf(
		"%s 从 %v 的 %d 变化到 %v 的 %d（Δ %d）",
		yKey, first[xKey], int(v0), last[xKey], int(v1), int(v1-v0),
	)}
}

func qualityLines(dq *model.DataQuality) []string {
	if dq == nil {
		return nil
	}
	var lines []string
	if len(dq.Warnings) > 0 {
		lines = append(lines, "Warnings："+strings.Join(head(dq.Warnings, 3), "；"))
	}
	if len(dq.Notes) > 0 {
		lines = append(lines, "Notes："+strings.Join(head(dq.Notes, 3), "；"))
	}
	return lines
}

type pieEntry struct {
	name  string
	value int
	share float64
}

// extractPieDistribution ranks pie rows by value, keeping the top five.
func extractPieDistribution(chart *model.Chart) (int, []pieEntry) {
	if chart == nil {
		return 0, nil
	}
	total := 0
	entries := make([]pieEntry, 0, len(chart.Data))
	for _, row := range chart.Data {
		v, ok := asFloat(row["value"])
		if !ok {
			continue
		}
		name := strings.TrimSpace(fmt.Sprint(row["name"]))
		if name == "" || name == "<nil>" {
			name = "—"
		}
		entries = append(entries, pieEntry{name: name, value: int(v)})
		total += int(v)
	}
	if total == 0 {
		return 0, nil
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].value > entries[j].value })
	if len(entries) > 5 {
		entries = entries[:5]
	}
	for i := range entries {
		entries[i].share = float64(entries[i].value) / float64(total)
	}
	return total, entries
}

func usedTitles(plan *model.AnalysisPlan) []string {
	titles := make([]string, 0, len(plan.Steps))
	for _, s := range plan.Steps {
		titles = append(titles, s.Title)
	}
	return titles
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func fmtInt(v int) string {
	s := fmt.Sprintf("%d", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func fmtPct(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func head(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
