package nodes

import (
	"context"

	"github.com/cloudwego/eino/compose"

	"github.com/cms-copilot/server/internal/agent/model"
)

// NewFinishNode converts the finished turn into its delta. Every terminal
// path converges here so the graph has a single output shape.
func NewFinishNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.TurnDelta, error) {
		return t.State.Delta(), nil
	})
}
