package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandworks/strand/pkg/models"
)

func TestNewNodeRequiresMessage(t *testing.T) {
	_, err := NewNode("l1", map[string]any{})

	assert.Error(t, err)
}

func TestExecuteLogsRenderedMessage(t *testing.T) {
	node, err := NewNode("l1", map[string]any{
		"message": "processed {{.data.count}} items",
		"level":   "warn",
	})
	require.NoError(t, err)

	wctx := models.NewWorkflowContext("e1", "w1", "u1", models.Object{
		"count": models.Number(5),
	})

	output, err := node.Execute(context.Background(), wctx)

	require.NoError(t, err)
	assert.Equal(t, "processed 5 items", output["logged"].StringVal())
}
