package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct{ name string }

func (s *stubTool) Name() string                 { return s.name }
func (s *stubTool) Description() string          { return "" }
func (s *stubTool) InputSchema() json.RawMessage { return nil }
func (s *stubTool) Execute(context.Context, json.RawMessage) (*ToolsCallResult, error) {
	return TextContent(s.name), nil
}

func TestRegistryRegisterDuplicateToolPanics(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubTool{name: "aipm_create_task"})

	assert.Panics(t, func() {
		reg.Register(&stubTool{name: "aipm_create_task"})
	})
}

func TestRegistryListPreservesRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubTool{name: "aipm_create_task"})
	reg.Register(&stubTool{name: "aipm_start_task"})
	reg.Register(&stubTool{name: "aipm_complete_task"})

	defs := reg.List()
	require.Len(t, defs, 3)
	assert.Equal(t, []string{"aipm_create_task", "aipm_start_task", "aipm_complete_task"},
		[]string{defs[0].Name, defs[1].Name, defs[2].Name})
}

func TestRegistryHasPromptsAndResourcesReflectState(t *testing.T) {
	reg := NewRegistry()
	assert.False(t, reg.HasPrompts())
	assert.False(t, reg.HasResources())
}
