// Package analytics turns raw GA query results into charts, summaries and
// normalized arguments for the report pipeline. Everything here is
// deterministic; no LLM output flows through this package unchecked.
package analytics

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cms-copilot/server/internal/agent/model"
)

// ReportResult is the typed shape of a GA run_report response.
type ReportResult struct {
	DimensionHeaders []Header `json:"dimension_headers"`
	MetricHeaders    []Header `json:"metric_headers"`
	Rows             []Row    `json:"rows"`
	RowCount         int      `json:"row_count"`
}

type Header struct {
	Name string `json:"name"`
}

type Row struct {
	DimensionValues []Value `json:"dimension_values"`
	MetricValues    []Value `json:"metric_values"`
}

type Value struct {
	Value string `json:"value"`
}

// DecodeReportResult narrows a normalized tool result to a typed report.
// Returns nil when the payload does not look like a GA report.
func DecodeReportResult(res any) *ReportResult {
	m, ok := res.(map[string]any)
	if !ok {
		return nil
	}
	if _, hasRows := m["rows"]; !hasRows {
		if _, hasDims := m["dimension_headers"]; !hasDims {
			return nil
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	var r ReportResult
	if err := json.Unmarshal(b, &r); err != nil {
		return nil
	}
	return &r
}

func (r *ReportResult) dimensionNames() []string {
	names := make([]string, 0, len(r.DimensionHeaders))
	for _, h := range r.DimensionHeaders {
		if h.Name != "" {
			names = append(names, h.Name)
		}
	}
	return names
}

func (r *ReportResult) metricNames() []string {
	names := make([]string, 0, len(r.MetricHeaders))
	for _, h := range r.MetricHeaders {
		if h.Name != "" {
			names = append(names, h.Name)
		}
	}
	return names
}

// PrimaryDimension returns the first dimension name, or "".
func (r *ReportResult) PrimaryDimension() string {
	names := r.dimensionNames()
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

var propertyIDRe = regexp.MustCompile(`(?i)(properties/\d+)`)

// ExtractPropertyID pulls an explicit GA property reference out of user text.
// The match is lowercased so downstream tools always see "properties/<id>".
func ExtractPropertyID(text string) string {
	return strings.ToLower(propertyIDRe.FindString(text))
}

// DefaultRunReportArgs is the trend query used when planning falls through.
func DefaultRunReportArgs(propertyID string, days int) map[string]any {
	return map[string]any{
		"property_id": propertyID,
		"date_ranges": []any{
			map[string]any{"start_date": fmt.Sprintf("%ddaysAgo", days), "end_date": "yesterday"},
		},
		"dimensions": []any{"date"},
		"metrics":    []any{"activeUsers", "sessions", "screenPageViews"},
		"limit":      10000,
	}
}

// camelCase and variant field names the planner model tends to produce.
var argAliases = map[string]string{
	"propertyId":          "property_id",
	"dateRanges":          "date_ranges",
	"dateRange":           "date_ranges",
	"dimension":           "dimensions",
	"dims":                "dimensions",
	"metric":              "metrics",
	"orderBys":            "order_bys",
	"currencyCode":        "currency_code",
	"returnPropertyQuota": "return_property_quota",
}

// NormalizeArgs rewrites planner-produced arguments into the snake_case shape
// the analytics tools require and fills in the mandatory fields.
func NormalizeArgs(toolName string, args map[string]any, propertyID string, defaultDays int) map[string]any {
	normalized := make(map[string]any, len(args)+4)
	for k, v := range args {
		if alias, ok := argAliases[k]; ok {
			k = alias
		}
		normalized[k] = v
	}

	if _, ok := normalized["property_id"]; !ok {
		normalized["property_id"] = propertyID
	}

	switch toolName {
	case "run_report":
		if _, ok := normalized["date_ranges"]; !ok {
			normalized["date_ranges"] = []any{
				map[string]any{"start_date": fmt.Sprintf("%ddaysAgo", defaultDays), "end_date": "yesterday"},
			}
		}
		if _, ok := normalized["dimensions"]; !ok {
			normalized["dimensions"] = []any{"date"}
		}
		if _, ok := normalized["metrics"]; !ok {
			normalized["metrics"] = []any{"activeUsers", "sessions", "screenPageViews"}
		}
	case "run_realtime_report":
		if _, ok := normalized["dimensions"]; !ok {
			normalized["dimensions"] = []any{"country"}
		}
		if _, ok := normalized["metrics"]; !ok {
			normalized["metrics"] = []any{"activeUsers"}
		}
	}

	for _, key := range []string{"dimensions", "metrics", "date_ranges"} {
		if v, ok := normalized[key]; ok {
			if _, isList := v.([]any); !isList {
				normalized[key] = []any{v}
			}
		}
	}
	return normalized
}

var channelGroupNames = map[string]string{
	"Organic Search":   "自然搜索",
	"Direct":           "直接访问",
	"Paid Search":      "付费搜索",
	"Organic Social":   "社交媒体",
	"Referral":         "外部链接",
	"Email":            "邮件",
	"Paid Social":      "付费社交",
	"Display":          "展示广告",
	"Organic Shopping": "自然购物",
	"Paid Shopping":    "付费购物",
	"Organic Video":    "视频",
	"(Other)":          "其他",
	"(not set)":        "未设置",
}

var deviceCategoryNames = map[string]string{
	"desktop": "桌面端",
	"mobile":  "移动端",
	"tablet":  "平板",
}

// HumanizeValue translates a GA technical dimension value into a
// human-readable label for the frontend.
func HumanizeValue(dimName, value string) string {
	if value == "" {
		return value
	}
	switch dimName {
	case "sessionDefaultChannelGroup":
		if v, ok := channelGroupNames[value]; ok {
			return v
		}
	case "deviceCategory":
		if v, ok := deviceCategoryNames[strings.ToLower(value)]; ok {
			return v
		}
	}
	return value
}

// BuildSummary aggregates metric totals across rows into the headline block.
// Returns nil when the result carries no recognizable metrics.
func BuildSummary(r *ReportResult) *model.ReportSummary {
	if r == nil {
		return nil
	}
	metricNames := r.metricNames()
	if len(metricNames) == 0 {
		return nil
	}
	totals := make(map[string]float64, len(metricNames))
	for _, row := range r.Rows {
		for i, mn := range metricNames {
			if i < len(row.MetricValues) {
				if v, err := strconv.ParseFloat(row.MetricValues[i].Value, 64); err == nil {
					totals[mn] += v
				}
			}
		}
	}
	visits := int(totals["sessions"])
	summary := &model.ReportSummary{
		TotalVisits:         visits,
		TotalUniqueVisitors: int(totals["activeUsers"]),
		TotalPageViews:      int(totals["screenPageViews"]),
	}
	if visits > 0 {
		summary.PagesPerSession = math.Round(float64(summary.TotalPageViews)/float64(visits)*100) / 100
	}
	return summary
}
