package prompts

import "fmt"

// BuildClassifierPrompt produces the single-shot intent classification prompt.
// The model must answer with exactly one of the five labels.
func BuildClassifierPrompt(userText string) string {
	return fmt.Sprintf(
		"你是一个 CMS Copilot 的意图分类器。\n"+
			"请根据用户的中文输入，将其归类为以下五类之一：\n"+
			"1. article_task: 用户在要求写文章、生成内容、新闻稿、营销文案等。\n"+
			"2. shortcut: 用户在说某个后台操作快捷指令，例如修改公司名称、修改站点 Logo等。\n"+
			"3. seo_planning: 用户在询问 SEO 规划、SEO 任务、SEO 周计划、网站优化建议等。\n"+
			"4. site_report: 用户在询问站点报告、访问量统计、流量分析、数据报表、站点数据、用户统计等。\n"+
			"5. rag: 用户在询问使用说明、配置方法、后台操作指引、如何做某件事等。\n"+
			"只输出一个标签：article_task、shortcut、seo_planning、site_report 或 rag，不要输出其它任何文字。\n"+
			"用户输入：%s\n"+
			"输出：",
		userText,
	)
}
