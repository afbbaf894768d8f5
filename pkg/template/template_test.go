package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandworks/strand/pkg/models"
)

func TestRenderPlainString(t *testing.T) {
	result, err := Render("hello {{.name}}", map[string]any{"name": "world"})

	require.NoError(t, err)
	assert.Equal(t, "hello world", result)
}

func TestRenderJSONOutputDecoded(t *testing.T) {
	result, err := Render(`{"greeting": "hi {{.name}}"}`, map[string]any{"name": "bob"})

	require.NoError(t, err)

	decoded, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hi bob", decoded["greeting"])
}

func TestRenderWithContextExposesData(t *testing.T) {
	wctx := models.NewWorkflowContext("e1", "w1", "u1", models.Object{
		"customer": models.String("acme"),
	})
	wctx.MarkCompleted("fetch", models.Object{"status": models.Number(200)})

	result, err := RenderWithContext("{{.data.customer}}/{{.node_outputs.fetch.status}}", wctx)

	require.NoError(t, err)
	assert.Equal(t, "acme/200", result)
}

func TestRenderParseError(t *testing.T) {
	_, err := Render("{{.unclosed", nil)

	assert.Error(t, err)
}
