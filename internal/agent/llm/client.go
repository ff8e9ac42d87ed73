package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/cms-copilot/server/internal/agent/graph/parsers"
	logx "github.com/cms-copilot/server/pkg/logger"
)

// Client wraps a chat model behind the three operations the graph consumes.
// Callers are expected to supply deterministic fallbacks for every call.
type Client struct {
	cm        model.ToolCallingChatModel
	modelName string
}

func NewClient(cm model.ToolCallingChatModel, modelName string) *Client {
	return &Client{cm: cm, modelName: modelName}
}

func (c *Client) ModelName() string { return c.modelName }

// Complete runs a plain generation and returns the text content.
func (c *Client) Complete(ctx context.Context, messages []*schema.Message) (string, error) {
	out, err := c.cm.Generate(ctx, messages)
	if err != nil {
		logx.Error().Err(err).Str("model", c.modelName).Msg("llm generate failed")
		return "", fmt.Errorf("llm generate: %w", err)
	}
	return out.Content, nil
}

// CompleteJSON runs a generation and extracts a JSON object from the reply,
// tolerating markdown fences and surrounding prose.
func (c *Client) CompleteJSON(ctx context.Context, messages []*schema.Message) (map[string]any, error) {
	content, err := c.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}
	obj, err := parsers.ExtractJSONObject(content)
	if err != nil {
		logx.Warn().Err(err).Str("model", c.modelName).Msg("llm reply carried no json object")
		return nil, fmt.Errorf("llm json extract: %w", err)
	}
	return obj, nil
}

// CompleteWithTools binds the catalog to the model for this call and returns
// the full reply message so callers can inspect ToolCalls.
func (c *Client) CompleteWithTools(ctx context.Context, messages []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error) {
	bound, err := c.cm.WithTools(tools)
	if err != nil {
		logx.Error().Err(err).Str("model", c.modelName).Msg("failed to bind tools")
		return nil, fmt.Errorf("bind tools: %w", err)
	}
	out, err := bound.Generate(ctx, messages)
	if err != nil {
		logx.Error().Err(err).Str("model", c.modelName).Msg("llm tool generate failed")
		return nil, fmt.Errorf("llm tool generate: %w", err)
	}
	return out, nil
}
