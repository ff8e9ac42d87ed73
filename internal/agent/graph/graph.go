package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/cms-copilot/server/internal/agent/graph/nodes"
	"github.com/cms-copilot/server/internal/agent/graph/observers"
	"github.com/cms-copilot/server/internal/agent/insights"
	"github.com/cms-copilot/server/internal/agent/llm"
	"github.com/cms-copilot/server/internal/agent/model"
	"github.com/cms-copilot/server/internal/agent/repo"
	"github.com/cms-copilot/server/internal/agent/tools/articlewf"
	"github.com/cms-copilot/server/internal/agent/tools/ragkb"
	"github.com/cms-copilot/server/internal/agent/tools/registry"
	"github.com/cms-copilot/server/internal/agent/tools/seotool"
	"github.com/cms-copilot/server/internal/metrics"
	logx "github.com/cms-copilot/server/pkg/logger"
)

// Runner executes one conversation turn against the compiled graph. The emit
// callback receives every UI snapshot as it is produced, so callers can stream
// cards to the frontend before the turn finishes.
type Runner interface {
	RunTurn(ctx context.Context, in *model.TurnInput, emit func(model.UISnapshot)) (*model.TurnDelta, error)
}

// Config holds everything needed to compose the copilot graph end-to-end.
// This is a convenience layer over GraphConfig that also constructs the
// chat models and LLM clients.
type Config struct {
	APIKey  string
	BaseURL string

	ClassifierModel model.ClassifierModelConfig
	ExtractorModel  model.ExtractorModelConfig

	SiteRegistry      registry.Registry
	AnalyticsRegistry registry.Registry
	KB                ragkb.KnowledgeBase
	SEOSnapshots      seotool.SnapshotProvider
	ArticleWF         *articlewf.Client

	Report  model.ReportConfig
	Article model.ArticleConfig
	Tenant  model.TenantConfig

	Checkpoints repo.CheckpointRepository
}

// GraphConfig holds all configuration needed to build the graph.
type GraphConfig struct {
	Deps *nodes.Deps
}

// GraphBuilder handles the construction of the conversation graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[*model.Turn, *model.TurnDelta]
}

type turnRunner struct {
	runnable    compose.Runnable[*model.Turn, *model.TurnDelta]
	checkpoints repo.CheckpointRepository
}

func (r *turnRunner) RunTurn(ctx context.Context, in *model.TurnInput, emit func(model.UISnapshot)) (*model.TurnDelta, error) {
	start := time.Now()

	state, err := r.checkpoints.Load(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}
	state.SetEmitter(emit)
	state.BeginTurn(model.NewUserMessage(in.UserText))

	delta, err := r.runnable.Invoke(ctx, &model.Turn{Input: in, State: state},
		compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		metrics.TurnErrors.Inc()
		logx.Error().Err(err).Str("conversation_id", in.ConversationID).Msg("turn failed")
		return nil, err
	}

	if err := r.checkpoints.Save(ctx, in.ConversationID, state); err != nil {
		return nil, err
	}

	intent := string(state.Intent)
	if intent == "" {
		intent = "none"
	}
	metrics.TurnsTotal.WithLabelValues(intent).Inc()
	metrics.TurnDuration.Observe(time.Since(start).Seconds())
	return delta, nil
}

// BuildCopilotGraph composes the chat models, assembles the node
// dependencies, builds the graph, and returns a Runner.
func BuildCopilotGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.Checkpoints == nil {
		return nil, fmt.Errorf("checkpoint repository is nil")
	}

	cms, err := llm.NewChatModels(ctx, llm.ChatModelConfig{
		APIKey:           cfg.APIKey,
		BaseURL:          cfg.BaseURL,
		ClassifierConfig: &cfg.ClassifierModel,
		ExtractorConfig:  &cfg.ExtractorModel,
	})
	if err != nil {
		return nil, err
	}

	extractor := llm.NewClient(cms.Extractor, cms.ExtractorModelName)
	deps := &nodes.Deps{
		Classifier:        llm.NewClient(cms.Classifier, cms.ClassifierModelName),
		Extractor:         extractor,
		SiteRegistry:      cfg.SiteRegistry,
		AnalyticsRegistry: cfg.AnalyticsRegistry,
		KB:                cfg.KB,
		SEOSnapshots:      cfg.SEOSnapshots,
		ArticleWF:         cfg.ArticleWF,
		Report:            cfg.Report,
		Article:           cfg.Article,
		Tenant:            cfg.Tenant,
	}
	deps.Insights = insights.NewAgent(extractor)

	runnable, err := BuildGraph(ctx, &GraphConfig{Deps: deps})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("copilot graph built successfully")
	return &turnRunner{runnable: runnable, checkpoints: cfg.Checkpoints}, nil
}

// BuildGraph constructs and returns the compiled conversation graph.
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[*model.Turn, *model.TurnDelta], error) {
	if config == nil || config.Deps == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	d := config.Deps
	if d.Classifier == nil || d.Extractor == nil {
		return nil, fmt.Errorf("llm clients are not properly initialized")
	}
	if d.SiteRegistry == nil || d.AnalyticsRegistry == nil {
		return nil, fmt.Errorf("tool registries are not properly initialized")
	}

	builder := &GraphBuilder{
		config: config,
		graph:  compose.NewGraph[*model.Turn, *model.TurnDelta](),
	}

	builder.addNodes()
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph.
func (b *GraphBuilder) addNodes() {
	d := b.config.Deps

	b.graph.AddLambdaNode(nodes.NodeEntry, nodes.NewEntryNode(d))

	b.graph.AddLambdaNode(nodes.NodeRouterUI, nodes.NewRouterUINode(d))
	b.graph.AddLambdaNode(nodes.NodeRouter, nodes.NewRouterNode(d))

	b.graph.AddLambdaNode(nodes.NodeRAG, nodes.NewRAGNode(d))

	b.graph.AddLambdaNode(nodes.NodeSEOUI, nodes.NewSEOUINode(d))
	b.graph.AddLambdaNode(nodes.NodeSEO, nodes.NewSEONode(d))

	b.graph.AddLambdaNode(nodes.NodeArticleClarify, nodes.NewArticleClarifyNode(d))
	b.graph.AddLambdaNode(nodes.NodeArticleClarifyUI, nodes.NewArticleClarifyUINode(d))
	b.graph.AddLambdaNode(nodes.NodeArticleUI, nodes.NewArticleUINode(d))
	b.graph.AddLambdaNode(nodes.NodeArticleRun, nodes.NewArticleRunNode(d))

	b.graph.AddLambdaNode(nodes.NodeShortcutEntry, nodes.NewShortcutEntryNode())
	b.graph.AddLambdaNode(nodes.NodeShortcutInit, nodes.NewShortcutInitNode(d))
	b.graph.AddLambdaNode(nodes.NodeShortcutSelect, nodes.NewShortcutSelectNode())
	b.graph.AddLambdaNode(nodes.NodeShortcutConfirm, nodes.NewShortcutConfirmNode())
	b.graph.AddLambdaNode(nodes.NodeShortcutResume, nodes.NewShortcutResumeNode(d))
	b.graph.AddLambdaNode(nodes.NodeShortcutExecute, nodes.NewShortcutExecuteNode(d))
	b.graph.AddLambdaNode(nodes.NodeShortcutCancelled, nodes.NewShortcutCancelledNode())

	b.graph.AddLambdaNode(nodes.NodeReportUI, nodes.NewReportUINode())
	b.graph.AddLambdaNode(nodes.NodeReportInit, nodes.NewReportInitNode(d))
	b.graph.AddLambdaNode(nodes.NodeReportExecute, nodes.NewReportExecuteNode(d))
	b.graph.AddLambdaNode(nodes.NodeReportAnalyze, nodes.NewReportAnalyzeNode(d))
	b.graph.AddLambdaNode(nodes.NodeReportRender, nodes.NewReportRenderNode(d))
	b.graph.AddLambdaNode(nodes.NodeReportInsights, nodes.NewReportInsightsNode(d))
	b.graph.AddLambdaNode(nodes.NodeReportFinalize, nodes.NewReportFinalizeNode(d))

	b.graph.AddLambdaNode(nodes.NodeFinish, nodes.NewFinishNode())
}

// addEdges creates the unconditional flow connections between nodes.
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, nodes.NodeEntry},

		{nodes.NodeRouterUI, nodes.NodeRouter},

		{nodes.NodeRAG, nodes.NodeFinish},

		{nodes.NodeSEOUI, nodes.NodeSEO},
		{nodes.NodeSEO, nodes.NodeFinish},

		{nodes.NodeArticleClarifyUI, nodes.NodeFinish},
		{nodes.NodeArticleUI, nodes.NodeArticleRun},
		{nodes.NodeArticleRun, nodes.NodeFinish},

		{nodes.NodeShortcutSelect, nodes.NodeFinish},
		{nodes.NodeShortcutConfirm, nodes.NodeFinish},
		{nodes.NodeShortcutExecute, nodes.NodeFinish},
		{nodes.NodeShortcutCancelled, nodes.NodeFinish},

		{nodes.NodeReportUI, nodes.NodeReportInit},
		{nodes.NodeReportInit, nodes.NodeReportExecute},
		{nodes.NodeReportAnalyze, nodes.NodeReportRender},
		{nodes.NodeReportRender, nodes.NodeReportInsights},
		{nodes.NodeReportInsights, nodes.NodeReportFinalize},
		{nodes.NodeReportFinalize, nodes.NodeFinish},

		{nodes.NodeFinish, compose.END},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches creates the conditional routing branches.
func (b *GraphBuilder) addBranches() error {
	type branchSpec struct {
		from      string
		condition func(context.Context, *model.Turn) (string, error)
		targets   map[string]bool
	}

	specs := []branchSpec{
		{
			from:      nodes.NodeEntry,
			condition: nodes.NewEntryCondition(),
			targets: map[string]bool{
				nodes.NodeShortcutEntry:  true,
				nodes.NodeArticleClarify: true,
				nodes.NodeArticleUI:      true,
				nodes.NodeArticleRun:     true,
				nodes.NodeSEOUI:          true,
				nodes.NodeReportUI:       true,
				nodes.NodeRAG:            true,
				nodes.NodeRouterUI:       true,
			},
		},
		{
			from:      nodes.NodeRouter,
			condition: nodes.NewRouterCondition(),
			targets: map[string]bool{
				nodes.NodeArticleClarify: true,
				nodes.NodeShortcutEntry:  true,
				nodes.NodeSEOUI:          true,
				nodes.NodeReportUI:       true,
				nodes.NodeRAG:            true,
			},
		},
		{
			from:      nodes.NodeArticleClarify,
			condition: nodes.NewArticleClarifyCondition(),
			targets: map[string]bool{
				nodes.NodeArticleClarifyUI: true,
				nodes.NodeArticleUI:        true,
			},
		},
		{
			from:      nodes.NodeShortcutEntry,
			condition: nodes.NewShortcutEntryCondition(),
			targets: map[string]bool{
				nodes.NodeShortcutInit:   true,
				nodes.NodeShortcutResume: true,
			},
		},
		{
			from:      nodes.NodeShortcutInit,
			condition: nodes.NewShortcutInitCondition(),
			targets: map[string]bool{
				nodes.NodeShortcutConfirm: true,
				nodes.NodeShortcutSelect:  true,
				nodes.NodeFinish:          true,
			},
		},
		{
			from:      nodes.NodeShortcutResume,
			condition: nodes.NewShortcutResumeCondition(),
			targets: map[string]bool{
				nodes.NodeShortcutExecute:   true,
				nodes.NodeShortcutCancelled: true,
				nodes.NodeShortcutConfirm:   true,
				nodes.NodeFinish:            true,
			},
		},
		{
			from:      nodes.NodeReportExecute,
			condition: nodes.NewReportExecuteCondition(),
			targets: map[string]bool{
				nodes.NodeReportAnalyze:  true,
				nodes.NodeReportFinalize: true,
			},
		},
	}

	for _, spec := range specs {
		branch := compose.NewGraphBranch(spec.condition, spec.targets)
		if err := b.graph.AddBranch(spec.from, branch); err != nil {
			logx.Error().Err(err).Str("from", spec.from).Msg("error adding branch")
			return fmt.Errorf("error adding branch from %s: %w", spec.from, err)
		}
	}

	return nil
}

// compile finalizes and compiles the graph.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[*model.Turn, *model.TurnDelta], error) {
	// The longest path is the report pipeline; leave headroom over it.
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(40))
	if err != nil {
		logx.Error().Err(err).Msg("error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("graph compiled successfully")
	return runnable, nil
}
