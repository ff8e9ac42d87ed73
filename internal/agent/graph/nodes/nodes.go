// Package nodes implements every node of the conversation graph: entry
// routing, intent classification and the article, shortcut, SEO, report and
// knowledge-base sub-flows.
package nodes

import (
	"github.com/cms-copilot/server/internal/agent/insights"
	"github.com/cms-copilot/server/internal/agent/llm"
	"github.com/cms-copilot/server/internal/agent/model"
	"github.com/cms-copilot/server/internal/agent/tools/articlewf"
	"github.com/cms-copilot/server/internal/agent/tools/ragkb"
	"github.com/cms-copilot/server/internal/agent/tools/registry"
	"github.com/cms-copilot/server/internal/agent/tools/seotool"
)

// Graph node names.
const (
	NodeEntry = "Entry"

	NodeRouterUI = "RouterUI"
	NodeRouter   = "Router"

	NodeRAG = "RAG"

	NodeSEOUI = "SEOUI"
	NodeSEO   = "SEO"

	NodeArticleClarify   = "ArticleClarify"
	NodeArticleClarifyUI = "ArticleClarifyUI"
	NodeArticleUI        = "ArticleUI"
	NodeArticleRun       = "ArticleRun"

	NodeShortcutEntry     = "ShortcutEntry"
	NodeShortcutInit      = "ShortcutInit"
	NodeShortcutSelect    = "ShortcutSelect"
	NodeShortcutConfirm   = "ShortcutConfirm"
	NodeShortcutResume    = "ShortcutResume"
	NodeShortcutExecute   = "ShortcutExecute"
	NodeShortcutCancelled = "ShortcutCancelled"

	NodeReportUI       = "ReportUI"
	NodeReportInit     = "ReportInit"
	NodeReportExecute  = "ReportExecute"
	NodeReportAnalyze  = "ReportAnalyze"
	NodeReportRender   = "ReportRender"
	NodeReportInsights = "ReportInsights"
	NodeReportFinalize = "ReportFinalize"

	NodeFinish = "Finish"
)

// UI card names shared with the frontend.
const (
	CardIntentRouter    = "intent_router"
	CardMCPWorkflow     = "mcp_workflow"
	CardArticleClarify  = "article_clarify"
	CardArticleWorkflow = "article_workflow"
	CardSEOPlanner      = "seo_planner"
	CardReportProgress  = "report_progress"
	CardReportCharts    = "report_charts"
	CardReportInsights  = "report_insights"
)

// Deps bundles everything the nodes need. The two registries are kept
// separate on purpose: site settings serve the shortcut machine, analytics
// serve the report pipeline.
type Deps struct {
	Classifier *llm.Client
	Extractor  *llm.Client

	SiteRegistry      registry.Registry
	AnalyticsRegistry registry.Registry

	KB           ragkb.KnowledgeBase
	SEOSnapshots seotool.SnapshotProvider
	ArticleWF    *articlewf.Client
	Insights     *insights.Agent

	Report  model.ReportConfig
	Article model.ArticleConfig
	Tenant  model.TenantConfig
}

// tenantIDs resolves the effective tenant/site pair for the turn.
func (d *Deps) tenantIDs(state *model.CopilotState) (tenantID, siteID string) {
	tenantID = state.TenantID
	if tenantID == "" {
		tenantID = d.Tenant.TenantID
	}
	siteID = state.SiteID
	if siteID == "" {
		siteID = d.Tenant.SiteID
	}
	return tenantID, siteID
}
