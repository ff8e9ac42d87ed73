package model

type ChartType string

const (
	ChartLine ChartType = "line"
	ChartBar  ChartType = "bar"
	ChartPie  ChartType = "pie"
)

// Chart is the tagged variant rendered by the frontend report card. Line and
// bar charts carry keyed rows; pie charts carry name/value pairs in Data.
type Chart struct {
	Type  ChartType        `json:"chart_type"`
	Title string           `json:"title"`
	Data  []map[string]any `json:"data"`

	// line / bar
	XKey    string   `json:"x_key,omitempty"`
	YKeys   []string `json:"y_keys,omitempty"`
	YLabels []string `json:"y_labels,omitempty"`
	YKey    string   `json:"y_key,omitempty"`
	Colors  []string `json:"colors,omitempty"`
	Color   string   `json:"color,omitempty"`

	// pie
	ValueKey string `json:"value_key,omitempty"`
	LabelKey string `json:"label_key,omitempty"`
}
