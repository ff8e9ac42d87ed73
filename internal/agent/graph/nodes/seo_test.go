package nodes

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cms-copilot/server/internal/agent/model"
	"github.com/cms-copilot/server/internal/agent/tools/seotool"
)

func TestSEOUINodeMountsPlannerCard(t *testing.T) {
	state := &model.CopilotState{}
	turn := newTurn(state, "下周的 SEO 优化任务")

	invokeNode(t, NewSEOUINode(&Deps{}), turn)

	require.NotNil(t, state.SEO)
	assert.NotEmpty(t, state.SEO.AnchorID)
	assert.NotEmpty(t, state.SEO.UIID)
	require.Len(t, state.UI, 1)
	assert.Equal(t, CardSEOPlanner, state.UI[0].Name)
	assert.Equal(t, "loading", state.UI[0].Props["status"])
	assert.Equal(t, "下周的 SEO 优化任务", state.UI[0].Props["user_text"])
}

func TestSEONodePlannerFailureFallsBackToDefaultPlan(t *testing.T) {
	deps := &Deps{
		Extractor:    fakeLLM(nil, errors.New("model unavailable")),
		SEOSnapshots: seotool.NewMockSnapshotProvider(),
	}

	state := &model.CopilotState{SiteID: "site-1"}
	turn := newTurn(state, "规划下周 SEO")
	invokeNode(t, NewSEOUINode(deps), turn)
	invokeNode(t, NewSEONode(deps), turn)

	last := state.UI[len(state.UI)-1]
	assert.Equal(t, "done", last.Props["status"])
	plan, ok := last.Props["tasks"].(*seotool.WeeklyPlan)
	require.True(t, ok)
	assert.Equal(t, "site-1", plan.SiteID)
	assert.Len(t, plan.Tasks, 5)
}

func TestSEONodeUsesPlannerOutput(t *testing.T) {
	planned := map[string]any{
		"tasks": []any{
			map[string]any{
				"date": "2026-08-31", "day_of_week": "Mon", "category": "OnPage",
				"title": "修复缺失标题",
			},
		},
	}
	b, err := json.Marshal(planned)
	require.NoError(t, err)

	deps := &Deps{
		Extractor:    fakeLLM(textReply(string(b)), nil),
		SEOSnapshots: seotool.NewMockSnapshotProvider(),
	}

	state := &model.CopilotState{SiteID: "site-1"}
	turn := newTurn(state, "规划下周 SEO")
	invokeNode(t, NewSEOUINode(deps), turn)
	invokeNode(t, NewSEONode(deps), turn)

	last := state.UI[len(state.UI)-1]
	plan, ok := last.Props["tasks"].(*seotool.WeeklyPlan)
	require.True(t, ok)
	require.Len(t, plan.Tasks, 1)
	assert.Equal(t, "修复缺失标题", plan.Tasks[0].Title)
	// Site and window come from the run, not the model output.
	assert.Equal(t, "site-1", plan.SiteID)
	assert.NotEmpty(t, plan.WeekStart)
}
