// Package cmd provides common initialization for the command-line binaries.
package cmd

import (
	"log/slog"

	"github.com/strandworks/strand/pkg/registry"
)

func registerNodePlugins(reg *registry.Registry, pluginsPath string) error {
	nodePlugins, err := reg.LoadNodePlugins(pluginsPath)
	if err != nil {
		return err
	}

	for _, plugin := range nodePlugins {
		reg.RegisterNode(plugin)
	}

	return nil
}

func registerToolPlugins(reg *registry.Registry, pluginsPath string) error {
	toolPlugins, err := reg.LoadToolPlugins(pluginsPath)
	if err != nil {
		return err
	}

	for _, plugin := range toolPlugins {
		reg.RegisterTool(plugin)
	}

	return nil
}

// NewRegistry builds a registry with the native node types and tools plus
// any plugins found at pluginsPath.
func NewRegistry(logger *slog.Logger, pluginsPath string) (*registry.Registry, error) {
	reg := registry.NewRegistry(logger)

	registry.RegisterDefaults(reg)

	if pluginsPath != "" {
		if err := registerNodePlugins(reg, pluginsPath); err != nil {
			return nil, err
		}

		if err := registerToolPlugins(reg, pluginsPath); err != nil {
			return nil, err
		}
	}

	return reg, nil
}
