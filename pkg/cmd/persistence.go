package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/strandworks/strand/pkg/persistence"
	"github.com/strandworks/strand/pkg/persistence/file"
	"github.com/strandworks/strand/pkg/persistence/postgresql"
)

// NewPersistence selects a persistence backend by database URL scheme.
// postgres:// and postgresql:// use PostgreSQL; anything else is treated
// as a file root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parseProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}
