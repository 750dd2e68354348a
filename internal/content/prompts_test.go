package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootSessionPromptGet(t *testing.T) {
	p := &BootSessionPrompt{}
	assert.Equal(t, "boot-session", p.Definition().Name)

	result, err := p.Get(nil)
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	assert.Contains(t, result.Messages[0].Content.Text, "aipm_boot_session")
}

func TestPlanTaskPromptGet(t *testing.T) {
	p := &PlanTaskPrompt{}
	result, err := p.Get(map[string]string{})
	require.NoError(t, err)
	assert.Contains(t, result.Messages[0].Content.Text, "milestone_id")
}

func TestHandleSidequestPromptGet(t *testing.T) {
	p := &HandleSidequestPrompt{}
	result, err := p.Get(nil)
	require.NoError(t, err)
	assert.Contains(t, result.Messages[0].Content.Text, "aipm_create_sidequest")
}
