package postgres

import (
	"context"
	"fmt"

	"github.com/lockplane/idxmaint/internal/database"
)

// MinConcurrentReindexVersion is the first server_version_num with REINDEX CONCURRENTLY
const MinConcurrentReindexVersion = 120000

// Capabilities reports online rebuild support based on the server version
func (e *Engine) Capabilities(ctx context.Context) (database.Capabilities, error) {
	var version int
	err := e.db.QueryRowContext(ctx, "SELECT current_setting('server_version_num')::int").Scan(&version)
	if err != nil {
		return database.Capabilities{}, fmt.Errorf("failed to read server version: %w", err)
	}

	return database.Capabilities{
		SupportsOnlineOps: version >= MinConcurrentReindexVersion,
	}, nil
}
