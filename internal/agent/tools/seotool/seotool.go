// Package seotool supplies SEO snapshot data and the weekly planning types
// for the SEO sub-flow. Snapshot retrieval is mocked for now.
package seotool

import (
	"context"
	"encoding/json"
	"time"
)

type TaskEvidence struct {
	EvidencePath string `json:"evidence_path"`
	ValueSummary string `json:"value_summary"`
}

type TaskParams struct {
	URL          string   `json:"url,omitempty"`
	URLs         []string `json:"urls,omitempty"`
	IssueType    string   `json:"issue_type,omitempty"`
	Query        string   `json:"query,omitempty"`
	Topic        string   `json:"topic,omitempty"`
	TargetMetric string   `json:"target_metric,omitempty"`
}

// Task is one scheduled SEO work item. Categories come from a fixed set
// (Indexing/OnPage/Performance/Content/StructuredData); fix_action decides
// whether the frontend offers an article-generation or link shortcut.
type Task struct {
	Date                       string         `json:"date"`
	DayOfWeek                  string         `json:"day_of_week"`
	Category                   string         `json:"category"`
	IssueType                  string         `json:"issue_type"`
	Title                      string         `json:"title"`
	Description                string         `json:"description"`
	Impact                     int            `json:"impact"`
	Difficulty                 int            `json:"difficulty"`
	Severity                   string         `json:"severity"`
	RequiresManualConfirmation bool           `json:"requires_manual_confirmation"`
	WorkflowID                 string         `json:"workflow_id"`
	Params                     TaskParams     `json:"params"`
	Evidence                   []TaskEvidence `json:"evidence"`
	FixAction                  string         `json:"fix_action"`
	FixPrompt                  string         `json:"fix_prompt,omitempty"`
}

type WeeklyPlan struct {
	SiteID    string `json:"site_id"`
	WeekStart string `json:"week_start"`
	WeekEnd   string `json:"week_end"`
	Tasks     []Task `json:"tasks"`
}

// SnapshotProvider fetches the SEO snapshot the planner reasons over.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, siteID string) (map[string]any, error)
}

type MockSnapshotProvider struct{}

func NewMockSnapshotProvider() *MockSnapshotProvider { return &MockSnapshotProvider{} }

func (m *MockSnapshotProvider) Snapshot(_ context.Context, siteID string) (map[string]any, error) {
	var snapshot map[string]any
	if err := json.Unmarshal([]byte(mockSnapshotJSON), &snapshot); err != nil {
		return nil, err
	}
	if siteID != "" {
		snapshot["site_id"] = siteID
	}
	return snapshot, nil
}

var _ SnapshotProvider = (*MockSnapshotProvider)(nil)

// WeekWindow computes next week's working window, Monday through Friday.
func WeekWindow(now time.Time) (start, end time.Time) {
	daysUntilMonday := (8 - int(now.Weekday())) % 7
	if daysUntilMonday == 0 {
		daysUntilMonday = 7
	}
	start = now.AddDate(0, 0, daysUntilMonday)
	end = start.AddDate(0, 0, 4)
	return start, end
}

// ParseWeeklyPlan decodes planner model output into a typed plan. Returns nil
// when the shape is unusable.
func ParseWeeklyPlan(obj map[string]any) *WeeklyPlan {
	b, err := json.Marshal(obj)
	if err != nil {
		return nil
	}
	var plan WeeklyPlan
	if err := json.Unmarshal(b, &plan); err != nil {
		return nil
	}
	if len(plan.Tasks) == 0 {
		return nil
	}
	return &plan
}

// DefaultWeeklyPlan is the fallback schedule used when planning fails: five
// workday tasks covering indexing, on-page, performance, content and
// structured data.
func DefaultWeeklyPlan(siteID string, weekStart time.Time) *WeeklyPlan {
	day := func(offset int) string {
		return weekStart.AddDate(0, 0, offset).Format("2006-01-02")
	}
	return &WeeklyPlan{
		SiteID:    siteID,
		WeekStart: day(0),
		WeekEnd:   day(4),
		Tasks: []Task{
			{
				Date: day(0), DayOfWeek: "Mon", Category: "Indexing",
				IssueType: "SITEMAP_LASTMOD_LOW", Title: "修复 Sitemap lastmod 覆盖率",
				Description: "Sitemap 中 lastmod 覆盖率仅 41%，建议补齐或修正生成策略。",
				Impact:      4, Difficulty: 2, Severity: "warning",
				RequiresManualConfirmation: true, WorkflowID: "seo_fix_indexing",
				Params: TaskParams{IssueType: "SITEMAP_LASTMOD_LOW"},
				Evidence: []TaskEvidence{
					{EvidencePath: "sitemap.lastmod_coverage_ratio", ValueSummary: "41%"},
				},
				FixAction: "link",
			},
			{
				Date: day(1), DayOfWeek: "Tue", Category: "OnPage",
				IssueType: "MISSING_TITLE", Title: "修复缺失的页面标题",
				Description: "耳机产品页缺少 title 标签，影响搜索展示。",
				Impact:      5, Difficulty: 1, Severity: "critical",
				RequiresManualConfirmation: true, WorkflowID: "seo_fix_onpage",
				Params: TaskParams{
					URL:       "https://demo-shop.example.com/products/earbuds-x1",
					IssueType: "MISSING_TITLE",
				},
				Evidence: []TaskEvidence{
					{EvidencePath: "issues.on_page[0]", ValueSummary: "earbuds-x1 页面缺少 title"},
				},
				FixAction: "link",
			},
			{
				Date: day(2), DayOfWeek: "Wed", Category: "Performance",
				IssueType: "HIGH_LCP", Title: "优化页面 LCP 指标",
				Description: "耳机页面 LCP 达 4600ms，超过 2.5s 阈值。",
				Impact:      4, Difficulty: 3, Severity: "warning",
				RequiresManualConfirmation: false, WorkflowID: "seo_fix_performance",
				Params: TaskParams{
					URL:       "https://demo-shop.example.com/products/earbuds-x1",
					IssueType: "HIGH_LCP",
				},
				Evidence: []TaskEvidence{
					{EvidencePath: "performance.lcp_ms", ValueSummary: "4600ms"},
				},
				FixAction: "link",
			},
			{
				Date: day(3), DayOfWeek: "Thu", Category: "Content",
				IssueType: "LOW_CTR", Title: "优化低点击率页面",
				Description: "降噪指南页面 CTR 仅 0.46%，建议优化标题和描述。",
				Impact:      3, Difficulty: 2, Severity: "notice",
				RequiresManualConfirmation: true, WorkflowID: "seo_fix_content",
				Params: TaskParams{
					URL:       "https://demo-shop.example.com/blog/noise-cancelling-guide",
					IssueType: "LOW_CTR",
				},
				Evidence: []TaskEvidence{
					{EvidencePath: "gsc.top_queries[2].ctr", ValueSummary: "0.46%"},
				},
				FixAction: "article",
				FixPrompt: "针对'降噪耳机 选购 推荐'关键词，优化现有降噪耳机选购指南内容，增加产品对比和使用场景分析，提升页面点击率和搜索覆盖。",
			},
			{
				Date: day(4), DayOfWeek: "Fri", Category: "StructuredData",
				IssueType: "MISSING_PRODUCT_SCHEMA", Title: "添加产品结构化数据",
				Description: "产品页缺少 Product schema，影响富媒体搜索结果展示。",
				Impact:      3, Difficulty: 2, Severity: "notice",
				RequiresManualConfirmation: true, WorkflowID: "seo_fix_structureddata",
				Params: TaskParams{IssueType: "MISSING_PRODUCT_SCHEMA"},
				Evidence: []TaskEvidence{
					{EvidencePath: "structured_data.product_pages", ValueSummary: "缺少 Product schema"},
				},
				FixAction: "none",
			},
		},
	}
}
