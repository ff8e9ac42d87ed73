package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/cms-copilot/server/internal/agent/graph/prompts"
	"github.com/cms-copilot/server/internal/agent/model"
	"github.com/cms-copilot/server/internal/agent/tools/seotool"
	logx "github.com/cms-copilot/server/pkg/logger"
)

var seoSteps = []string{"获取 SEO 快照数据", "分析问题并生成任务计划", "完成规划"}

// NewSEOUINode mounts the SEO planner card in its loading state.
func NewSEOUINode(deps *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		seo := state.EnsureSEO()

		anchor := model.NewAnchorMessage()
		state.AppendMessage(anchor)
		seo.AnchorID = anchor.ID
		seo.UIID = "seo_planner:" + anchor.ID

		state.PushUI(model.UISnapshot{
			Name:            CardSEOPlanner,
			ID:              seo.UIID,
			AnchorMessageID: anchor.ID,
			Props: map[string]any{
				"status":        "loading",
				"step":          "initializing",
				"user_text":     state.LatestUserText(),
				"steps":         seoSteps,
				"active_step":   1,
				"tasks":         nil,
				"error_message": nil,
			},
		})
		return t, nil
	})
}

// NewSEONode fetches the SEO snapshot and asks the planner model for a
// weekly task schedule, falling back to the canned plan when the model does
// not produce a usable one.
func NewSEONode(deps *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		state := t.State
		seo := state.EnsureSEO()
		_, siteID := deps.tenantIDs(state)

		push := func(props map[string]any) {
			state.PushUI(model.UISnapshot{
				Name:            CardSEOPlanner,
				ID:              seo.UIID,
				AnchorMessageID: seo.AnchorID,
				Merge:           true,
				Props:           props,
			})
		}

		push(map[string]any{
			"status":        "loading",
			"step":          "fetching_snapshot",
			"steps":         seoSteps,
			"active_step":   1,
			"tasks":         nil,
			"error_message": nil,
		})

		snapshot, err := deps.SEOSnapshots.Snapshot(ctx, siteID)
		if err != nil {
			logx.Error().Err(err).Str("site_id", siteID).Msg("seo snapshot fetch failed")
			return nil, fmt.Errorf("seo snapshot: %w", err)
		}

		push(map[string]any{
			"status":        "loading",
			"step":          "analyzing",
			"steps":         seoSteps,
			"active_step":   2,
			"tasks":         nil,
			"error_message": nil,
		})

		weekStart, weekEnd := seotool.WeekWindow(time.Now())
		weekStartStr := weekStart.Format("2006-01-02")
		weekEndStr := weekEnd.Format("2006-01-02")

		plan := planWeek(ctx, deps, siteID, weekStartStr, weekEndStr, snapshot)
		if plan == nil {
			plan = seotool.DefaultWeeklyPlan(siteID, weekStart)
		}

		push(map[string]any{
			"status":        "done",
			"step":          "completed",
			"steps":         seoSteps,
			"active_step":   3,
			"tasks":         plan,
			"progress":      fmt.Sprintf("共生成 %d 条任务", len(plan.Tasks)),
			"error_message": nil,
		})
		return t, nil
	})
}

func planWeek(ctx context.Context, deps *Deps, siteID, weekStart, weekEnd string, snapshot map[string]any) *seotool.WeeklyPlan {
	msgs, err := prompts.Render(ctx,
		schema.SystemMessage(prompts.SEOPlannerSystemPrompt),
		schema.UserMessage(prompts.BuildSEOPlanPrompt(siteID, weekStart, weekEnd, snapshot)),
	)
	if err != nil {
		return nil
	}
	obj, err := deps.Extractor.CompleteJSON(ctx, msgs)
	if err != nil {
		logx.Warn().Err(err).Msg("seo planning failed, using default weekly plan")
		return nil
	}
	plan := seotool.ParseWeeklyPlan(obj)
	if plan == nil {
		return nil
	}
	plan.SiteID = siteID
	plan.WeekStart = weekStart
	plan.WeekEnd = weekEnd
	return plan
}
