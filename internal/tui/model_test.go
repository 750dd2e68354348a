package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/store"
)

func TestRenderEventsFormatsSeverityTypeAndTitle(t *testing.T) {
	events := []store.Row{
		{"severity": "high", "event_type": "decision", "title": "reconciled auth.go"},
	}
	out := renderEvents(events)
	assert.Contains(t, out, "high")
	assert.Contains(t, out, "decision")
	assert.Contains(t, out, "reconciled auth.go")
}

func TestRenderEventsEmpty(t *testing.T) {
	assert.Equal(t, "", renderEvents(nil))
}
