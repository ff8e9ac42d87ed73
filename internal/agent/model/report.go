package model

// ReportPlanItem is one analytics query the planner wants executed.
type ReportPlanItem struct {
	Desc string         `json:"desc"`
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// ToolSpec describes a remote analytics tool exposed by a registry.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// RawToolCall captures one executed plan item together with its raw result,
// kept for the evidence pack so later stages can cite provenance.
type RawToolCall struct {
	Desc   string         `json:"desc"`
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args"`
	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// ReportSummary is the aggregated headline block of a site report.
type ReportSummary struct {
	TotalVisits         int     `json:"total_visits"`
	TotalUniqueVisitors int     `json:"total_unique_visitors"`
	TotalPageViews      int     `json:"total_page_views"`
	AvgSessionDuration  int     `json:"avg_session_duration"`
	BounceRate          float64 `json:"bounce_rate"`
	PagesPerSession     float64 `json:"pages_per_session"`
}

// ToolResult is the deterministic aggregation of all executed plan items.
// Final is a short human-readable completion line for the progress card.
type ToolResult struct {
	Final   string            `json:"final"`
	Summary *ReportSummary    `json:"summary,omitempty"`
	Charts  map[string]*Chart `json:"charts,omitempty"`
	Raws    []RawToolCall     `json:"raws,omitempty"`
}

// DataQuality records caveats discovered while aggregating raw results.
type DataQuality struct {
	Notes    []string `json:"notes"`
	Warnings []string `json:"warnings"`
}

// EvidenceWindow is the reporting window the evidence pack covers.
type EvidenceWindow struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Days      int    `json:"days"`
}

// EvidencePack is a code-computed digest of raw analytics results. It is the
// only factual substrate the insight stages are allowed to read from.
type EvidencePack struct {
	Summary     *ReportSummary    `json:"summary,omitempty"`
	Charts      map[string]*Chart `json:"charts,omitempty"`
	Window      *EvidenceWindow   `json:"window,omitempty"`
	DataQuality *DataQuality      `json:"data_quality,omitempty"`
}

// PlanStep is one step of the LLM-proposed analysis plan.
type PlanStep struct {
	Title             string   `json:"title"`
	EvidenceRefs      []string `json:"evidence_refs"`
	OutputExpectation string   `json:"output_expectation"`
}

type AnalysisPlan struct {
	Steps []PlanStep `json:"steps"`
}

// StepOutput is the deterministic result of executing one plan step.
type StepOutput struct {
	Step        string `json:"step"`
	Result      string `json:"result"`
	EvidenceRef string `json:"evidence_ref,omitempty"`
}

type Hypothesis struct {
	Text       string `json:"text"`
	Confidence string `json:"confidence"`
	NextStep   string `json:"next_step"`
}

type Insights struct {
	OneLiner   string       `json:"one_liner"`
	Evidence   []string     `json:"evidence"`
	Hypotheses []Hypothesis `json:"hypotheses"`
}

type SuccessMetric struct {
	Metric     string `json:"metric"`
	WindowDays int    `json:"window_days"`
	Target     string `json:"target,omitempty"`
}

type Action struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Why           string         `json:"why,omitempty"`
	Effort        string         `json:"effort"`
	Impact        string         `json:"impact"`
	SuccessMetric *SuccessMetric `json:"success_metric,omitempty"`
}

type Todo struct {
	Content string `json:"content"`
	Status  string `json:"status"`
}

// Trace records which plan steps the insight run walked through.
type Trace struct {
	TodoSummary string   `json:"todo_summary"`
	UsedTodos   []string `json:"used_todos"`
}

// InsightsOutput is the full product of the plan/execute/summarize run.
type InsightsOutput struct {
	Plan        *AnalysisPlan `json:"plan,omitempty"`
	Insights    *Insights     `json:"insights,omitempty"`
	Actions     []Action      `json:"actions,omitempty"`
	Trace       *Trace        `json:"trace,omitempty"`
	StepOutputs []StepOutput  `json:"step_outputs,omitempty"`
	Todos       []Todo        `json:"todos,omitempty"`
}
