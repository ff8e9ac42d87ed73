package prompts

import (
	"fmt"
	"strings"

	"github.com/cms-copilot/server/internal/agent/model"
)

const maxToolDetails = 10

// BuildReportPlanningPrompt asks the model for a JSON data-fetch plan built
// on the analytics registry's tool catalog. Planning happens up front so the
// executor can run the calls deterministically without a ReAct loop.
func BuildReportPlanningPrompt(userText, propertyID string, specs []model.ToolSpec) string {
	details := make([]string, 0, len(specs))
	for i, spec := range specs {
		if i >= maxToolDetails {
			break
		}
		desc := spec.Description
		if desc == "" {
			desc = "无描述"
		}
		if len(desc) > 200 {
			desc = desc[:200]
		}
		schemaInfo := ""
		if required, ok := spec.InputSchema["required"].([]any); ok && len(required) > 0 {
			names := make([]string, 0, len(required))
			for _, r := range required {
				names = append(names, fmt.Sprint(r))
			}
			schemaInfo = fmt.Sprintf(" (必填参数: %s)", strings.Join(names, ", "))
		}
		details = append(details, fmt.Sprintf("- %s: %s%s", spec.Name, desc, schemaInfo))
	}
	toolInfo := "无工具可用"
	if len(details) > 0 {
		toolInfo = strings.Join(details, "\n")
	}

	return fmt.Sprintf(`你是 GA 数据分析助手。用户问题：%s

## 第一步：查看可用的 MCP 工具
以下是从 GA MCP 获取的工具列表：

%s

## 第二步：规划数据获取方案
现在你要**规划出一份数据获取方案**（不是立即调用工具，而是先列出方案）：

如果用户要"网站报告/趋势/流量分析"，请返回 JSON 格式的方案：
{
  "plan": [
    {"desc": "时间趋势", "tool": "run_report", "args": {"property_id": "%[3]s", "date_ranges": [{"start_date": "7daysAgo", "end_date": "yesterday"}], "dimensions": ["date"], "metrics": ["activeUsers","sessions","screenPageViews"]}},
    {"desc": "流量来源", "tool": "run_report", "args": {"property_id": "%[3]s", "date_ranges": [{"start_date": "7daysAgo", "end_date": "yesterday"}], "dimensions": ["sessionDefaultChannelGroup"], "metrics": ["sessions"]}},
    {"desc": "设备分布", "tool": "run_report", "args": {"property_id": "%[3]s", "date_ranges": [{"start_date": "7daysAgo", "end_date": "yesterday"}], "dimensions": ["deviceCategory"], "metrics": ["sessions"]}}
  ]
}

**重要限制**：
1. 只使用上面列出的 MCP 工具（优先 run_report）
2. 必须严格按工具的 inputSchema 生成参数（snake_case），尤其是 date_ranges / dimensions / metrics / order_bys
3. 如果用户提到“热门页面/Top pages/页面访问量”，优先使用 dimensions=["pagePath"] 或 ["pageTitle"]，并用 order_bys 按 screenPageViews/sessions 降序
4. date_ranges 格式必须是 [{"start_date": "7daysAgo", "end_date": "yesterday"}]
5. property_id 必须是 "%[3]s"
6. 输出必须是严格 JSON（不要多余文字）

输出方案：`, userText, toolInfo, propertyID)
}
