package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cms-copilot/server/internal/agent/model"
)

func TestBuildEvidencePackNilResult(t *testing.T) {
	pack := BuildEvidencePack(nil, 30)
	require.NotNil(t, pack)
	require.NotNil(t, pack.Window)
	assert.Equal(t, "30daysAgo", pack.Window.StartDate)
	assert.Equal(t, "yesterday", pack.Window.EndDate)
	assert.Equal(t, 30, pack.Window.Days)
	require.NotNil(t, pack.DataQuality)
	assert.Contains(t, pack.DataQuality.Warnings, "无工具结果，报告数据为空")
}

func TestBuildEvidencePackZeroVisitsWarns(t *testing.T) {
	tr := &model.ToolResult{
		Summary: &model.ReportSummary{TotalVisits: 0},
		Charts: map[string]*model.Chart{
			"daily_visits": {Type: model.ChartLine, Data: []map[string]any{{"date": "20260801"}}},
		},
	}
	pack := BuildEvidencePack(tr, 7)
	assert.Contains(t, pack.DataQuality.Warnings, "会话总量为 0，样本不足，结论可信度低")
	assert.Same(t, tr.Summary, pack.Summary)
}

func TestBuildEvidencePackMissingSummaryAndCharts(t *testing.T) {
	pack := BuildEvidencePack(&model.ToolResult{}, 7)
	assert.Contains(t, pack.DataQuality.Warnings, "缺少汇总指标，无法给出核心指标结论")
	assert.Contains(t, pack.DataQuality.Warnings, "没有可渲染的图表数据")
}

func TestBuildEvidencePackCarriesRawErrors(t *testing.T) {
	tr := &model.ToolResult{
		Summary: &model.ReportSummary{TotalVisits: 10},
		Charts: map[string]*model.Chart{
			"device_stats": {Type: model.ChartPie, Data: nil},
		},
		Raws: []model.RawToolCall{
			{Desc: "设备分布", Error: "timeout"},
		},
	}
	pack := BuildEvidencePack(tr, 7)
	assert.Contains(t, pack.DataQuality.Warnings, "数据获取失败（设备分布）：timeout")
	assert.Contains(t, pack.DataQuality.Notes, "图表 device_stats 无数据行")
}
