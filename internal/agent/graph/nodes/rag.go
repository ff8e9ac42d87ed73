package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/cms-copilot/server/internal/agent/model"
	logx "github.com/cms-copilot/server/pkg/logger"
)

// NewRAGNode answers a how-to question from the knowledge base and appends
// the assistant reply, extended with a step-by-step walkthrough.
func NewRAGNode(deps *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		question := state.LatestUserText()
		tenantID, siteID := deps.tenantIDs(state)

		answer, err := deps.KB.Query(ctx, question, tenantID, siteID)
		if err != nil {
			logx.Error().Err(err).Msg("knowledge base query failed")
			return nil, fmt.Errorf("knowledge base query: %w", err)
		}

		answerText := answer.Answer + "\n\n" +
			"下面是一个更详细的操作示例（模拟知识库答案，约 200 字）：\n" +
			fmt.Sprintf("1) 进入后台【内容管理】→【文章/新闻】列表，确认当前站点为 %s。\n", siteID) +
			"2) 点击【新建】选择栏目与模板，填写标题与摘要；正文建议先用段落+小标题的结构。\n" +
			"3) 在【SEO】中补全 URL、关键词、描述，并检查是否启用站点地图/自动推送。\n" +
			"4) 预览页面确认图片与排版，再提交审核；审核通过后发布，并到【日志/统计】观察收录与点击。\n" +
			"如果你告诉我你卡在哪一步（例如权限、模板、发布失败或收录问题），我可以给出更针对性的排查路径。"

		state.AppendMessage(model.NewAssistantMessage(answerText))
		return t, nil
	})
}
