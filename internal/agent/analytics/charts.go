package analytics

import (
	"strconv"
	"strings"

	"github.com/cms-copilot/server/internal/agent/model"
)

var lineColors = []string{"#3b82f6", "#10b981", "#f59e0b", "#8b5cf6", "#ef4444"}

// Distribution-style dimensions where a pie reads well. Page and content
// dimensions land on bar charts instead.
var pieFriendlyDims = map[string]bool{
	"deviceCategory":             true,
	"sessionDefaultChannelGroup": true,
	"country":                    true,
	"city":                       true,
	"region":                     true,
	"browser":                    true,
	"operatingSystem":            true,
	"platform":                   true,
	"language":                   true,
}

// BuildChart converts a GA report into a chart. The type follows the shape of
// the source dimension only: date gives a line, an allow-listed categorical
// dimension with a single metric and few rows gives a pie, anything else with
// dimensions gives a bar. Returns nil when no metrics are present.
func BuildChart(r *ReportResult) *model.Chart {
	if r == nil {
		return nil
	}
	dimNames := r.dimensionNames()
	metricNames := r.metricNames()
	if len(metricNames) == 0 {
		return nil
	}

	data := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		entry := make(map[string]any, len(dimNames)+len(metricNames))
		for i, dn := range dimNames {
			if i < len(row.DimensionValues) {
				entry[dn] = HumanizeValue(dn, row.DimensionValues[i].Value)
			}
		}
		for i, mn := range metricNames {
			if i < len(row.MetricValues) {
				entry[mn] = parseMetricValue(row.MetricValues[i].Value)
			}
		}
		data = append(data, entry)
	}

	xKey := "x"
	if len(dimNames) > 0 {
		xKey = dimNames[0]
	}

	if strings.Contains(strings.ToLower(xKey), "date") {
		return &model.Chart{
			Type:    model.ChartLine,
			Title:   "趋势",
			Data:    data,
			XKey:    xKey,
			YKeys:   metricNames,
			YLabels: metricNames,
			Colors:  lineColors,
		}
	}

	if len(metricNames) == 1 && len(data) <= 12 && pieFriendlyDims[xKey] {
		pieData := make([]map[string]any, 0, len(data))
		for _, row := range data {
			pieData = append(pieData, map[string]any{
				"name":  row[xKey],
				"value": row[metricNames[0]],
			})
		}
		return &model.Chart{
			Type:     model.ChartPie,
			Title:    xKey + " 分布",
			Data:     pieData,
			ValueKey: "value",
			LabelKey: "name",
		}
	}

	return &model.Chart{
		Type:  model.ChartBar,
		Title: xKey + " - " + metricNames[0],
		Data:  data,
		XKey:  xKey,
		YKey:  metricNames[0],
		Color: "#6366f1",
	}
}

// Frontend chart slot names.
const (
	SlotDailyVisits    = "daily_visits"
	SlotTrafficSources = "traffic_sources"
	SlotDeviceStats    = "device_stats"
	SlotTopPages       = "top_pages"
	SlotUserEngagement = "user_engagement"
)

var pageDims = map[string]bool{
	"pagePath":     true,
	"pageTitle":    true,
	"landingPage":  true,
	"pageLocation": true,
	"screenName":   true,
	"hostName":     true,
	"pageReferrer": true,
}

// ChartSlot maps a report's primary dimension to the frontend slot that may
// render it. Unrecognized dimensions return "" and the chart is dropped
// rather than misfiled.
func ChartSlot(r *ReportResult) string {
	if r == nil {
		return ""
	}
	first := r.PrimaryDimension()
	lower := strings.ToLower(first)

	switch first {
	case "date":
		return SlotDailyVisits
	case "sessionDefaultChannelGroup":
		return SlotTrafficSources
	case "deviceCategory":
		return SlotDeviceStats
	}
	if pageDims[first] || strings.Contains(lower, "page") || strings.Contains(lower, "screen") {
		return SlotTopPages
	}
	if first == "eventName" || strings.Contains(lower, "event") {
		return SlotUserEngagement
	}
	return ""
}

func parseMetricValue(s string) any {
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	} else if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}
