// Package registry maps node type tags to their factories and holds the tool
// set available to agents. Lookups are fail-fast: an unregistered type is a
// configuration error, never a silent skip.
package registry

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"strings"

	"github.com/strandworks/strand/pkg/protocol"
)

type Registry struct {
	logger        *slog.Logger
	nodeFactories map[string]protocol.NodeFactory
	tools         map[string]protocol.Tool
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:        log.With("module", "registry"),
		nodeFactories: make(map[string]protocol.NodeFactory),
		tools:         make(map[string]protocol.Tool),
	}
}

func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	r.nodeFactories[factory.ID()] = factory
}

func (r *Registry) RegisterTool(tool protocol.Tool) {
	r.tools[tool.Name()] = tool
}

// CreateNode instantiates an executor for the node type with its
// configuration bound.
func (r *Registry) CreateNode(ctx context.Context, nodeType, id string, config map[string]any) (protocol.NodeExecutor, error) {
	factory, ok := r.nodeFactories[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type '%s' not registered", nodeType)
	}

	return factory.Create(ctx, id, config)
}

// NodeSchema returns the configuration JSON schema for the node type, or nil
// when the type is unknown or accepts any configuration.
func (r *Registry) NodeSchema(nodeType string) map[string]any {
	factory, ok := r.nodeFactories[nodeType]
	if !ok {
		return nil
	}

	return factory.Schema()
}

// NodeTypes returns the registered node type tags.
func (r *Registry) NodeTypes() []string {
	types := make([]string, 0, len(r.nodeFactories))
	for nodeType := range r.nodeFactories {
		types = append(types, nodeType)
	}

	return types
}

// Tools returns the registered tools, for constructing an agent's gateway.
func (r *Registry) Tools() []protocol.Tool {
	list := make([]protocol.Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		list = append(list, tool)
	}

	return list
}

func (r *Registry) LoadNodePlugins(pluginsPath string) ([]protocol.NodeFactory, error) {
	return loadPlugin[protocol.NodeFactory](r.logger, pluginsPath, "Node")
}

func (r *Registry) LoadToolPlugins(pluginsPath string) ([]protocol.Tool, error) {
	return loadPlugin[protocol.Tool](r.logger, pluginsPath, "Tool")
}

func loadPlugin[T any](logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := pluginsPath + "/" + strings.ToLower(symbolName) + "s"
	root := os.DirFS(rootPath)

	pluginPathList, err := fs.Glob(root, "**/*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", pluginsPath), slog.String("type", symbolName))
	l.Info("Loading plugins")

	pluginList := make([]T, 0, len(pluginPathList))

	for _, p := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("lookup symbol %s in %s: %w", symbolName, p, err)
		}

		castV, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("plugin %s symbol %s has wrong type", p, symbolName)
		}

		pluginList = append(pluginList, castV)

		l.Info("Loaded plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
