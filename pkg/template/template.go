// Package template provides templating of node configuration against the
// running workflow context.
package template

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/strandworks/strand/pkg/models"
)

// RenderWithContext renders a template string with the workflow context's
// data, node outputs and memory exposed as template variables.
func RenderWithContext(input string, wctx *models.WorkflowContext) (any, error) {
	outputs := make(map[string]any, len(wctx.NodeOutputs))
	for nodeID, output := range wctx.NodeOutputs {
		outputs[nodeID] = output.ToAny()
	}

	data := map[string]any{
		"data":         wctx.Data.ToAny(),
		"node_outputs": outputs,
		"memory":       wctx.Memory.ToAny(),
		"execution": map[string]any{
			"id":          wctx.ID,
			"workflow_id": wctx.WorkflowID,
		},
	}

	return Render(input, data)
}

// Render renders a template string against arbitrary data. Output that looks
// like JSON is decoded, so expressions can build structured values.
func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("node_config").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any
		if err := json.Unmarshal([]byte(result), &jsonResult); err == nil {
			return jsonResult, nil
		}
	}

	return result, nil
}
