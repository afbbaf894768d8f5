package httprequest

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
	"github.com/strandworks/strand/pkg/template"
)

const requestTimeout = 30 * time.Second

// Node performs one HTTP call with templated url and body.
type Node struct {
	id        string
	url       string
	method    string
	headers   map[string]string
	body      string
	outputKey string
	client    *http.Client
}

// NewNode creates an HTTP request executor from config.
func NewNode(id string, config map[string]any) (*Node, error) {
	url, ok := config["url"].(string)
	if !ok || url == "" {
		return nil, errors.New("missing required field 'url'")
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	headers := make(map[string]string)

	if raw, ok := config["headers"].(map[string]any); ok {
		for k, v := range raw {
			if s, ok := v.(string); ok {
				headers[k] = s
			}
		}
	}

	body, _ := config["body"].(string)

	outputKey, _ := config["output_key"].(string)
	if outputKey == "" {
		outputKey = "response"
	}

	return &Node{
		id:        id,
		url:       url,
		method:    strings.ToUpper(method),
		headers:   headers,
		body:      body,
		outputKey: outputKey,
		client:    &http.Client{Timeout: requestTimeout},
	}, nil
}

// ID returns the node ID.
func (n *Node) ID() string {
	return n.id
}

// Type returns the node type.
func (n *Node) Type() string {
	return "http_request"
}

// Execute renders the url and body against the context and performs the call.
func (n *Node) Execute(ctx context.Context, wctx *models.WorkflowContext) (models.Object, error) {
	renderedURL, err := template.RenderWithContext(n.url, wctx)
	if err != nil {
		return nil, fmt.Errorf("failed to render url: %w", err)
	}

	url, ok := renderedURL.(string)
	if !ok {
		return nil, fmt.Errorf("url template must render to a string, got %T", renderedURL)
	}

	var bodyReader io.Reader

	if n.body != "" {
		rendered, err := template.RenderWithContext(n.body, wctx)
		if err != nil {
			return nil, fmt.Errorf("failed to render body: %w", err)
		}

		encoded, err := json.Marshal(rendered)
		if err != nil {
			return nil, fmt.Errorf("failed to encode body: %w", err)
		}

		bodyReader = strings.NewReader(string(encoded))
	}

	req, err := http.NewRequestWithContext(ctx, n.method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for k, v := range n.headers {
		req.Header.Set(k, v)
	}

	if bodyReader != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	response := models.Object{
		"status": models.Number(float64(resp.StatusCode)),
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		response["body"] = models.FromAny(decoded)
	} else {
		response["body"] = models.String(string(raw))
	}

	return models.Object{
		n.outputKey: models.ObjectValue(response),
	}, nil
}
