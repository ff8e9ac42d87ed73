package llm

import (
	"context"
	"fmt"

	logx "github.com/cms-copilot/server/pkg/logger"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/cms-copilot/server/internal/agent/model"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey           string
	BaseURL          string
	ClassifierConfig *model.ClassifierModelConfig
	ExtractorConfig  *model.ExtractorModelConfig
}

// ChatModels holds the classifier and extractor chat models. The classifier
// is a small cheap model used only for intent labels; the extractor handles
// structured extraction, tool selection and summarization.
type ChatModels struct {
	Classifier          *gemini.ChatModel
	Extractor           *gemini.ChatModel
	ClassifierModelName string
	ExtractorModelName  string
}

// NewChatModels creates both chat models with the given configuration
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	classifier, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.ClassifierConfig.Model,
		Temperature: &config.ClassifierConfig.Temperature,
		MaxTokens:   &config.ClassifierConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating classifier model")
		return nil, fmt.Errorf("error creating classifier model: %w", err)
	}

	extractor, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.ExtractorConfig.Model,
		Temperature: &config.ExtractorConfig.Temperature,
		MaxTokens:   &config.ExtractorConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating extractor model")
		return nil, fmt.Errorf("error creating extractor model: %w", err)
	}

	return &ChatModels{
		Classifier:          classifier,
		Extractor:           extractor,
		ClassifierModelName: config.ClassifierConfig.Model,
		ExtractorModelName:  config.ExtractorConfig.Model,
	}, nil
}
