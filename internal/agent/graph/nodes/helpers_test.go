package nodes

import (
	"context"
	"fmt"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/cms-copilot/server/internal/agent/llm"
	"github.com/cms-copilot/server/internal/agent/model"
)

// invokeNode runs a single lambda node through a minimal compiled graph.
func invokeNode(t *testing.T, node *compose.Lambda, turn *model.Turn) *model.Turn {
	t.Helper()
	g := compose.NewGraph[*model.Turn, *model.Turn]()
	require.NoError(t, g.AddLambdaNode("node", node))
	require.NoError(t, g.AddEdge(compose.START, "node"))
	require.NoError(t, g.AddEdge("node", compose.END))
	r, err := g.Compile(context.Background())
	require.NoError(t, err)
	out, err := r.Invoke(context.Background(), turn)
	require.NoError(t, err)
	return out
}

// fakeChatModel returns a canned reply (or error) for every call.
type fakeChatModel struct {
	reply *schema.Message
	err   error
}

func (f *fakeChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("stream not supported")
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

func fakeLLM(reply *schema.Message, err error) *llm.Client {
	return llm.NewClient(&fakeChatModel{reply: reply, err: err}, "fake-model")
}

func textReply(content string) *schema.Message {
	return &schema.Message{Role: schema.Assistant, Content: content}
}

func toolCallReply(name, args string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			{Function: schema.FunctionCall{Name: name, Arguments: args}},
		},
	}
}

// fakeRegistry serves a fixed catalog and call result.
type fakeRegistry struct {
	specs      []model.ToolSpec
	listErr    error
	callResult any
	callErr    error
	calledWith string
	calledArgs map[string]any
}

func (f *fakeRegistry) ListTools(ctx context.Context, tenantID, siteID string) ([]model.ToolSpec, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.specs, nil
}

func (f *fakeRegistry) CallTool(ctx context.Context, name string, args map[string]any, tenantID, siteID string) (any, error) {
	f.calledWith = name
	f.calledArgs = args
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.callResult, nil
}

func newTurn(state *model.CopilotState, userText string) *model.Turn {
	state.BeginTurn(model.NewUserMessage(userText))
	return &model.Turn{
		Input: &model.TurnInput{ConversationID: "conv-1", UserText: userText},
		State: state,
	}
}
