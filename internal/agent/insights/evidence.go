// Package insights derives bounded, provenance-checked analysis from report
// results. The evidence pack is computed entirely in code; the LLM stages
// downstream may only pick which parts of it to narrate.
package insights

import (
	"fmt"

	"github.com/cms-copilot/server/internal/agent/model"
)

// BuildEvidencePack digests the raw tool result into the factual substrate
// handed to the insight stages. No LLM output enters this function.
func BuildEvidencePack(toolResult *model.ToolResult, days int) *model.EvidencePack {
	pack := &model.EvidencePack{
		DataQuality: &model.DataQuality{Notes: []string{}, Warnings: []string{}},
		Window: &model.EvidenceWindow{
			StartDate: fmt.Sprintf("%ddaysAgo", days),
			EndDate:   "yesterday",
			Days:      days,
		},
	}
	if toolResult == nil {
		pack.DataQuality.Warnings = append(pack.DataQuality.Warnings, "无工具结果，报告数据为空")
		return pack
	}

	pack.Summary = toolResult.Summary
	pack.Charts = toolResult.Charts

	dq := pack.DataQuality
	if toolResult.Summary == nil {
		dq.Warnings = append(dq.Warnings, "缺少汇总指标，无法给出核心指标结论")
	} else if toolResult.Summary.TotalVisits == 0 {
		dq.Warnings = append(dq.Warnings, "会话总量为 0，样本不足，结论可信度低")
	}
	if len(toolResult.Charts) == 0 {
		dq.Warnings = append(dq.Warnings, "没有可渲染的图表数据")
	}
	for _, raw := range toolResult.Raws {
		if raw.Error != "" {
			dq.Warnings = append(dq.Warnings, fmt.Sprintf("数据获取失败（%s）：%s", raw.Desc, raw.Error))
		}
	}
	for key, chart := range toolResult.Charts {
		if chart != nil && len(chart.Data) == 0 {
			dq.Notes = append(dq.Notes, fmt.Sprintf("图表 %s 无数据行", key))
		}
	}
	dq.Notes = append(dq.Notes, "口径：sessions=访问量，activeUsers=独立访客，screenPageViews=页面浏览量")
	return pack
}
