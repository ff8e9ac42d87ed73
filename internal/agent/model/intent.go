package model

// Intent is one of the closed set of labels the classifier can produce.
type Intent string

const (
	IntentArticleTask Intent = "article_task"
	IntentShortcut    Intent = "shortcut"
	IntentSEOPlanning Intent = "seo_planning"
	IntentSiteReport  Intent = "site_report"
	IntentRAG         Intent = "rag"
)

// Intents lists every valid label in classification priority order.
var Intents = []Intent{
	IntentArticleTask,
	IntentShortcut,
	IntentSEOPlanning,
	IntentSiteReport,
	IntentRAG,
}

// Valid reports whether the label belongs to the closed set.
func (i Intent) Valid() bool {
	switch i {
	case IntentArticleTask, IntentShortcut, IntentSEOPlanning, IntentSiteReport, IntentRAG:
		return true
	}
	return false
}

// EntryTarget names a node the entry router can dispatch a turn into.
type EntryTarget string

const (
	TargetIntentUI       EntryTarget = "intent_ui"
	TargetRAG            EntryTarget = "rag"
	TargetArticleClarify EntryTarget = "article_clarify"
	TargetArticleUI      EntryTarget = "article_ui"
	TargetArticleRun     EntryTarget = "article_run"
	TargetSEOUI          EntryTarget = "seo_ui"
	TargetReportUI       EntryTarget = "report_ui"
	TargetShortcut       EntryTarget = "shortcut"
)

// resumableTargets is the allow-list for honoring a previously stored resume
// target verbatim. Anything else falls back to top-level routing.
var resumableTargets = map[EntryTarget]bool{
	TargetShortcut:       true,
	TargetArticleClarify: true,
	TargetArticleUI:      true,
	TargetArticleRun:     true,
}

// Resumable reports whether a stored resume target may be honored.
func (t EntryTarget) Resumable() bool {
	return resumableTargets[t]
}

// intentTargets maps every intent label to its entry node. The mapping is
// total over valid intents.
var intentTargets = map[Intent]EntryTarget{
	IntentArticleTask: TargetArticleClarify,
	IntentShortcut:    TargetShortcut,
	IntentSEOPlanning: TargetSEOUI,
	IntentSiteReport:  TargetReportUI,
	IntentRAG:         TargetRAG,
}

// EntryTargetFor resolves the entry node for a valid intent; invalid intents
// fall back to top-level intent recognition.
func EntryTargetFor(i Intent) EntryTarget {
	if t, ok := intentTargets[i]; ok {
		return t
	}
	return TargetIntentUI
}
