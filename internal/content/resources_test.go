package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityModelResourceRead(t *testing.T) {
	r := &EntityModelResource{}
	def := r.Definition()
	assert.Equal(t, "aipm://entity-model", def.URI)

	result, err := r.Read()
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, def.URI, result.Contents[0].URI)
	assert.NotEmpty(t, result.Contents[0].Text)
}

func TestGuardrailsResourceRead(t *testing.T) {
	r := &GuardrailsResource{}
	result, err := r.Read()
	require.NoError(t, err)
	assert.Contains(t, result.Contents[0].Text, "HardBlock")
}

func TestToolReferenceResourceRead(t *testing.T) {
	r := &ToolReferenceResource{}
	result, err := r.Read()
	require.NoError(t, err)
	assert.Contains(t, result.Contents[0].Text, "aipm_create_task")
}
