package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/cms-copilot/server/internal/agent/graph"
	"github.com/cms-copilot/server/internal/agent/model"
	"github.com/cms-copilot/server/internal/agent/repo"
	"github.com/cms-copilot/server/internal/agent/tools/articlewf"
	"github.com/cms-copilot/server/internal/agent/tools/ragkb"
	"github.com/cms-copilot/server/internal/agent/tools/registry"
	"github.com/cms-copilot/server/internal/agent/tools/seotool"
	"github.com/cms-copilot/server/internal/core"
	"github.com/cms-copilot/server/internal/server"
	logx "github.com/cms-copilot/server/pkg/logger"
	pkgredis "github.com/cms-copilot/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the copilot service,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Classifier   model.ClassifierModelConfig
	Extractor    model.ExtractorModelConfig
	Conversation model.ConversationConfig
	Registry     model.RegistryConfig
	Report       model.ReportConfig
	ArticleWF    model.ArticleWorkflowConfig
	Article      model.ArticleConfig
	Tenant       model.TenantConfig
	Server       model.ServerConfig
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(envCfg.Environment)})

	rdb, err := envCfg.Redis.New()
	if err != nil {
		log.Fatalf("Failed to initialise Redis client: %v", err)
	}
	defer rdb.Close()
	logx.Info().Msg("connected to redis")

	registryTimeout := time.Duration(envCfg.Registry.TimeoutSeconds) * time.Second
	checkpoints := repo.NewRedisCheckpointRepository(rdb, envCfg.Conversation.ParseTTL())

	runner, err := graph.BuildCopilotGraph(ctx, graph.Config{
		APIKey:          envCfg.APIKey,
		BaseURL:         envCfg.BaseURL,
		ClassifierModel: envCfg.Classifier,
		ExtractorModel:  envCfg.Extractor,

		SiteRegistry:      registry.NewHTTPRegistry(envCfg.Registry.SiteSettingsURL, registryTimeout),
		AnalyticsRegistry: registry.NewHTTPRegistry(envCfg.Registry.AnalyticsURL, registryTimeout),
		KB:                ragkb.NewMockKnowledgeBase(),
		SEOSnapshots:      seotool.NewMockSnapshotProvider(),
		ArticleWF: articlewf.NewClient(
			envCfg.ArticleWF.URL,
			envCfg.ArticleWF.APIKey,
			envCfg.ArticleWF.AssistantID,
			envCfg.ArticleWF.SiteHost,
			time.Duration(envCfg.ArticleWF.TimeoutSeconds)*time.Second,
		),

		Report:  envCfg.Report,
		Article: envCfg.Article,
		Tenant:  envCfg.Tenant,

		Checkpoints: checkpoints,
	})
	if err != nil {
		log.Fatalf("Failed to build graph: %v", err)
	}

	srv := server.New(runner, checkpoints, envCfg.Server)

	go func() {
		if err := srv.Start(); err != nil {
			logx.Info().Err(err).Msg("http server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}
	logx.Info().Msg("server shut down")
}
