package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntentValid(t *testing.T) {
	for _, i := range Intents {
		assert.True(t, i.Valid(), string(i))
	}
	assert.False(t, Intent("").Valid())
	assert.False(t, Intent("chitchat").Valid())
}

func TestEntryTargetForCoversAllIntents(t *testing.T) {
	assert.Equal(t, TargetArticleClarify, EntryTargetFor(IntentArticleTask))
	assert.Equal(t, TargetShortcut, EntryTargetFor(IntentShortcut))
	assert.Equal(t, TargetSEOUI, EntryTargetFor(IntentSEOPlanning))
	assert.Equal(t, TargetReportUI, EntryTargetFor(IntentSiteReport))
	assert.Equal(t, TargetRAG, EntryTargetFor(IntentRAG))
	assert.Equal(t, TargetIntentUI, EntryTargetFor(Intent("bogus")))
}

func TestResumableAllowList(t *testing.T) {
	for target, want := range map[EntryTarget]bool{
		TargetShortcut:       true,
		TargetArticleClarify: true,
		TargetArticleUI:      true,
		TargetArticleRun:     true,
		TargetSEOUI:          false,
		TargetReportUI:       false,
		TargetRAG:            false,
		TargetIntentUI:       false,
		EntryTarget(""):      false,
	} {
		assert.Equal(t, want, target.Resumable(), string(target))
	}
}
