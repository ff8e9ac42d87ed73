package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cms-copilot/server/internal/agent/model"
)

const maxPlanItems = 6

// DedupePlan drops plan items whose dimension sets collapse to the same
// normalized key (lowercased, sorted), and caps the plan length. First
// occurrence wins.
func DedupePlan(items []model.ReportPlanItem) []model.ReportPlanItem {
	seen := make(map[string]bool, len(items))
	out := make([]model.ReportPlanItem, 0, len(items))
	for _, item := range items {
		key := dimsKey(item.Args)
		if seen[key] || len(out) >= maxPlanItems {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

func dimsKey(args map[string]any) string {
	raw, _ := args["dimensions"].([]any)
	if len(raw) == 0 {
		return "__no_dims__"
	}
	dims := make([]string, 0, len(raw))
	for _, d := range raw {
		dims = append(dims, strings.ToLower(strings.TrimSpace(fmt.Sprint(d))))
	}
	sort.Strings(dims)
	return strings.Join(dims, ",")
}

// DefaultPlan is the fallback used when planning produces nothing usable:
// a device-only plan when the user asked about devices specifically, else a
// trend/traffic-source/device trio.
func DefaultPlan(userText, propertyID string, days int) []model.ReportPlanItem {
	onlyDevice := strings.Contains(userText, "设备") &&
		!strings.Contains(userText, "趋势") &&
		!strings.Contains(userText, "流量")

	dateRange := []any{
		map[string]any{"start_date": fmt.Sprintf("%ddaysAgo", days), "end_date": "yesterday"},
	}
	devicePlan := model.ReportPlanItem{
		Desc: "设备分布",
		Tool: "run_report",
		Args: map[string]any{
			"property_id": propertyID,
			"date_ranges": dateRange,
			"dimensions":  []any{"deviceCategory"},
			"metrics":     []any{"sessions"},
		},
	}
	if onlyDevice {
		return []model.ReportPlanItem{devicePlan}
	}
	return []model.ReportPlanItem{
		{Desc: "时间趋势", Tool: "run_report", Args: DefaultRunReportArgs(propertyID, days)},
		{
			Desc: "流量来源",
			Tool: "run_report",
			Args: map[string]any{
				"property_id": propertyID,
				"date_ranges": dateRange,
				"dimensions":  []any{"sessionDefaultChannelGroup"},
				"metrics":     []any{"sessions"},
			},
		},
		devicePlan,
	}
}

// ParsePlanItems converts the planner model's decoded JSON into typed items.
func ParsePlanItems(obj map[string]any) []model.ReportPlanItem {
	raw, _ := obj["plan"].([]any)
	out := make([]model.ReportPlanItem, 0, len(raw))
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		item := model.ReportPlanItem{
			Desc: strings.TrimSpace(fmt.Sprint(m["desc"])),
			Tool: strings.TrimSpace(fmt.Sprint(m["tool"])),
		}
		if args, ok := m["args"].(map[string]any); ok {
			item.Args = args
		} else {
			item.Args = map[string]any{}
		}
		if item.Tool == "" || item.Tool == "<nil>" {
			continue
		}
		if item.Desc == "<nil>" {
			item.Desc = item.Tool
		}
		out = append(out, item)
	}
	return out
}
