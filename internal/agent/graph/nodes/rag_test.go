package nodes

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/eino/compose"
	"github.com/cms-copilot/server/internal/agent/model"
	"github.com/cms-copilot/server/internal/agent/tools/ragkb"
)

type fakeKB struct {
	answer *ragkb.Answer
	err    error
	asked  string
}

func (f *fakeKB) Query(_ context.Context, question, tenantID, siteID string) (*ragkb.Answer, error) {
	f.asked = question
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

func TestRAGNodeAppendsAssistantAnswer(t *testing.T) {
	kb := &fakeKB{answer: &ragkb.Answer{Answer: "先进入后台的内容管理。"}}
	deps := &Deps{KB: kb}

	state := &model.CopilotState{SiteID: "site-1"}
	turn := newTurn(state, "怎么发布一篇文章？")
	invokeNode(t, NewRAGNode(deps), turn)

	assert.Equal(t, "怎么发布一篇文章？", kb.asked)
	require.Len(t, state.TurnMessages, 2)
	reply := state.TurnMessages[1]
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.Contains(t, reply.Content, "先进入后台的内容管理。")
	assert.Contains(t, reply.Content, "site-1")
}

func TestRAGNodeQueryFailureFailsTurn(t *testing.T) {
	deps := &Deps{KB: &fakeKB{err: errors.New("kb offline")}}

	state := &model.CopilotState{}
	state.BeginTurn(model.NewUserMessage("怎么发布文章"))
	turn := &model.Turn{Input: &model.TurnInput{ConversationID: "conv-1"}, State: state}

	g := compose.NewGraph[*model.Turn, *model.Turn]()
	require.NoError(t, g.AddLambdaNode("node", NewRAGNode(deps)))
	require.NoError(t, g.AddEdge(compose.START, "node"))
	require.NoError(t, g.AddEdge("node", compose.END))
	r, err := g.Compile(context.Background())
	require.NoError(t, err)

	_, err = r.Invoke(context.Background(), turn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kb offline")
}
