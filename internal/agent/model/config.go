package model

import (
	"strings"
	"time"
)

// ================ Config ================

// ClassifierModelConfig configures the small model used for intent classification.
type ClassifierModelConfig struct {
	Model       string  `envconfig:"CLASSIFIER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"CLASSIFIER_MAX_TOKENS" default:"256"`
	Temperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" default:"0.0"`
}

// ExtractorModelConfig configures the model used for structured extraction,
// tool selection and summarization.
type ExtractorModelConfig struct {
	Model       string  `envconfig:"EXTRACTOR_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"EXTRACTOR_MAX_TOKENS" default:"4000"`
	Temperature float32 `envconfig:"EXTRACTOR_TEMPERATURE" default:"0.2"`
}

type ConversationConfig struct {
	TTL string `envconfig:"CONVERSATION_TTL" default:"24h"`
}

// ParseTTL returns the configured TTL, falling back to a day on bad input.
func (c ConversationConfig) ParseTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// RegistryConfig holds the endpoints of the two tool registries.
// The site-settings registry serves the shortcut machine only; the analytics
// registry serves the report pipeline only.
type RegistryConfig struct {
	SiteSettingsURL string `envconfig:"MCP_SITE_SETTING_BASIC_URL" default:"http://127.0.0.1:8000/mcp"`
	AnalyticsURL    string `envconfig:"MCP_ANALYTICS_URL" default:"http://127.0.0.1:8001/mcp"`
	TimeoutSeconds  int    `envconfig:"MCP_TIMEOUT_SECONDS" default:"30"`
}

type ReportConfig struct {
	PropertyID  string `envconfig:"GA_PROPERTY_ID" default:"properties/337059212"`
	DefaultDays int    `envconfig:"GA_DEFAULT_DAYS" default:"7"`
}

type ArticleWorkflowConfig struct {
	URL            string `envconfig:"ARTICLE_WORKFLOW_URL"`
	APIKey         string `envconfig:"ARTICLE_WORKFLOW_API_KEY"`
	AssistantID    string `envconfig:"ARTICLE_ASSISTANT_ID" default:"multiple_graph"`
	SiteHost       string `envconfig:"CMS_SITE_HOST" default:"https://site-dev.cedemo.cn/api"`
	TimeoutSeconds int    `envconfig:"ARTICLE_WORKFLOW_TIMEOUT_SECONDS" default:"300"`
}

// ArticleConfig carries the content-style options offered on the clarify card.
type ArticleConfig struct {
	ContentStyleOptions string `envconfig:"ARTICLE_CONTENT_STYLE_OPTIONS" default:"Professional,严谨正式,活泼亲和,营销转化,科技理性,温暖故事感"`
}

// StyleOptions splits the configured CSV into a clean list.
func (c ArticleConfig) StyleOptions() []string {
	parts := strings.Split(c.ContentStyleOptions, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// TenantConfig supplies defaults when a turn does not carry tenant/site ids.
type TenantConfig struct {
	TenantID string `envconfig:"CMS_TENANT_ID" default:"1234567890"`
	SiteID   string `envconfig:"CMS_SITE_ID" default:"019a104d-98e9-7298-8be1-af1926bbc085"`
}

type ServerConfig struct {
	Addr        string `envconfig:"SERVER_ADDR" default:":8080"`
	TurnTimeout string `envconfig:"TURN_TIMEOUT" default:"120s"`
}

// ParseTurnTimeout returns the per-turn deadline, defaulting to two minutes.
func (c ServerConfig) ParseTurnTimeout() time.Duration {
	d, err := time.ParseDuration(c.TurnTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}
