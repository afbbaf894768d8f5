package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/strandworks/strand/pkg/models"
)

const httpToolTimeout = 30 * time.Second

// HTTPRequestTool performs an HTTP call described by the tool input
// (url, method, headers, body).
type HTTPRequestTool struct {
	client *http.Client
}

// NewHTTPRequestTool creates the tool with a bounded request timeout.
func NewHTTPRequestTool() *HTTPRequestTool {
	return &HTTPRequestTool{
		client: &http.Client{Timeout: httpToolTimeout},
	}
}

func (t *HTTPRequestTool) Name() string { return "http_request" }

func (t *HTTPRequestTool) Description() string {
	return "Performs an HTTP request. Input: url (required), method, headers, body."
}

func (t *HTTPRequestTool) SideEffecting() bool { return true }

func (t *HTTPRequestTool) Execute(ctx context.Context, input models.Object, _ models.RunContext) (models.Object, error) {
	url := input["url"].StringVal()
	if url == "" {
		return nil, errors.New("missing required field 'url'")
	}

	method := strings.ToUpper(input["method"].StringVal())
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader

	if raw, ok := input["body"]; ok && raw.Kind() != models.KindNull {
		encoded, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}

		body = strings.NewReader(string(encoded))
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	if headers, ok := input["headers"]; ok && headers.Kind() == models.KindObject {
		for k, v := range headers.ObjectVal() {
			req.Header.Set(k, v.StringVal())
		}
	}

	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	output := models.Object{
		"status": models.Number(float64(resp.StatusCode)),
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		output["body"] = models.FromAny(decoded)
	} else {
		output["body"] = models.String(string(raw))
	}

	return output, nil
}
