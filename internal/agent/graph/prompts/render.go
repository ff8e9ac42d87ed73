// Package prompts holds every prompt the graph sends to a chat model,
// plus a small render helper that routes messages through the Eino prompt
// component so prompt callbacks fire.
package prompts

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// Render passes the assembled messages through an Eino prompt template.
// The template is a plain placeholder; the point is emitting prompt
// callbacks for observability, not substitution.
func Render(ctx context.Context, msgs ...*schema.Message) ([]*schema.Message, error) {
	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("prompt_messages", false),
	)
	out, err := tpl.Format(ctx, map[string]any{
		"prompt_messages": msgs,
	})
	if err != nil {
		return nil, fmt.Errorf("prompt callbacks: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("prompt callbacks: empty result")
	}
	return out, nil
}
