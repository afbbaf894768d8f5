package httprequest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandworks/strand/pkg/models"
)

func TestNewNodeRequiresURL(t *testing.T) {
	_, err := NewNode("h1", map[string]any{})

	assert.Error(t, err)
}

func TestExecutePerformsTemplatedRequest(t *testing.T) {
	var gotPath, gotMethod string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	node, err := NewNode("h1", map[string]any{
		"url":    server.URL + "/orders/{{.data.order_id}}",
		"method": "POST",
		"body":   `{"note": "from {{.data.customer}}"}`,
	})
	require.NoError(t, err)

	wctx := models.NewWorkflowContext("e1", "w1", "u1", models.Object{
		"order_id": models.String("o-7"),
		"customer": models.String("acme"),
	})

	output, err := node.Execute(context.Background(), wctx)

	require.NoError(t, err)
	assert.Equal(t, "/orders/o-7", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)

	response := output["response"].ObjectVal()
	assert.Equal(t, float64(200), response["status"].NumberVal())
	assert.True(t, response["body"].ObjectVal()["ok"].BoolVal())
}

func TestExecuteNonJSONBodyReturnedAsString(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("plain text"))
	}))
	defer server.Close()

	node, err := NewNode("h1", map[string]any{"url": server.URL})
	require.NoError(t, err)

	output, err := node.Execute(context.Background(), models.NewWorkflowContext("e1", "w1", "", nil))

	require.NoError(t, err)
	assert.Equal(t, "plain text", output["response"].ObjectVal()["body"].StringVal())
}
