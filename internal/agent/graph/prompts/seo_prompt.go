package prompts

import (
	"encoding/json"
	"fmt"
)

// SEOPlannerSystemPrompt defines the weekly SEO planner's contract: strict
// JSON only, evidence-backed tasks, category coverage and priority ordering.
const SEOPlannerSystemPrompt = `你是“CMS Copilot 的 SEO 周任务规划器”。你的工作是：根据输入的 SEO 快照数据（seo_snapshot_v1），生成未来 7 天的 SEO 任务列表（仅生成列表，不执行任何动作）。

【输入说明】
- 数据来源仅包含：
  1) Google PageSpeed Insights（基于 Lighthouse 的实验室数据与分类得分）
  2) Semrush（Site Audit + On Page SEO Checker）
- 不包含 Search Console 数据，因此内容类任务必须基于 Semrush 的关键词/页面机会与 On Page 建议来生成。

【输出要求】
- 只输出严格 JSON（不要 Markdown、不要解释文字、不要多余字段）。
- 输出必须符合下面给出的 JSON Schema。
- 每条任务要可点击跳转到 Copilot 工作流：用 workflow_id + params 表达。
- 每条任务必须包含 evidence（证据），证据使用快照中的字段路径（evidence_path）并给出当前值的摘要。
- 任务标题 title：中文，<= 26 个字；description：中文 1~2 句。
- 风险标记：任何“会改站点配置/页面内容/发布”的任务，requires_manual_confirmation=true；纯检查/分析类可为 false。

【排期与配额】
- 输出覆盖 7 天：从 week_start 到 week_end（包含起止日期），每天 0~2 条任务。
- 总任务数：6~10 条。
- 必须至少覆盖 3 个类别：Indexing、OnPage、Performance、Content、StructuredData 中任意 3 类。
- 优先级排序规则（从高到低）：
  1) Indexing 基础设施/抓取阻塞（4xx/robots/sitemap/大量重定向链/死链等，主要来自 Semrush Site Audit）
  2) OnPage 的高影响低难度（缺 Title/Desc/H1、重复 meta、canonical 异常等）
  3) Performance 的关键指标劣化（LCP/INP/CLS 或 Lighthouse performance 分数很低）
  4) Content 机会（Semrush 关键词机会、On Page SEO Checker 的语义/内容长度/可读性建议等）
- 去重：同一 url 同一 issue_type 本周最多出现一次。

【重要SEO常识（用于推理）】
- PSI 返回 Lighthouse 分类分数（Performance/SEO 等）以及关键性能诊断；本任务用其判断“性能类”任务优先级。
- Semrush Site Audit 的 Errors/Warnings/Notices 代表严重程度层级；优先处理 Errors，再处理 Warnings。
- On Page SEO Checker 提供结构化的优化行动清单；适合生成“页面级可执行任务”。

【开始工作】
读入用户提供的 seo_snapshot_v1 JSON，按上述规则输出周任务 JSON。`

// BuildSEOPlanPrompt assembles the planner's user turn: site, week window,
// the snapshot JSON and the task-shape requirements.
func BuildSEOPlanPrompt(siteID, weekStart, weekEnd string, snapshot map[string]any) string {
	snapshotJSON, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		snapshotJSON = []byte("{}")
	}
	return fmt.Sprintf(`分析以下 SEO 快照数据，生成完整的 SEO 周任务计划。

站点 ID：%s
周期：%s ~ %s（工作日：周一至周五）

SEO 快照数据：
`+"```json\n%s\n```"+`

要求：
1. 生成 3~5 条任务（每天最多 1 条，仅工作日周一~周五）
2. 每条 issue_type 必须唯一
3. 必须覆盖至少 3 个类别（Indexing/OnPage/Performance/Content/StructuredData）
4. 如果 critical_blockers > 0，必须包含 Indexing 类 critical 任务
5. 优先级：Indexing阻塞 > OnPage修复 > Performance劣化 > Content机会
6. title：中文，不超过 26 个字
7. description：中文 1~2 句话
8. evidence：使用快照中的具体字段路径
9. fix_action 修复动作类型：
   - "article"：Content 类别的任务（内容缺口、低 CTR 等），需要生成内容来修复
   - "link"：有明确外部工具或页面可以修复的任务
   - "none"：暂无自动修复方案的任务
10. fix_prompt：当 fix_action="article" 时，提供完整的内容生成需求描述（中文，50~100字），格式示例：
    - "针对'耳机 风噪 抑制'关键词，创建专题博客内容，提升相关搜索覆盖。"
    - "优化'降噪耳机选购指南'页面内容，增加产品对比和选购建议，提升页面 CTR。"

输出严格 JSON：{"site_id": "...", "week_start": "...", "week_end": "...", "tasks": [...]}
每条任务包含 date/day_of_week/category/issue_type/title/description/impact/difficulty/severity/requires_manual_confirmation/workflow_id/params/evidence/fix_action/fix_prompt 字段。

请生成完整的任务计划。`, siteID, weekStart, weekEnd, string(snapshotJSON))
}
