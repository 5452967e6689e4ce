package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/lockplane/idxmaint/internal/database"
)

func qualified(schema, name string) string {
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(name)
}

// Render translates a request into one PostgreSQL statement.
//
//	REORGANIZE        → VACUUM (INDEX_CLEANUP TRUE) on the owning table
//	REBUILD           → REINDEX INDEX, CONCURRENTLY when online
//	UPDATE_STATISTICS → ANALYZE on the owning table
func (e *Engine) Render(req database.CommandRequest) (string, error) {
	var stmt string
	switch req.Action {
	case database.ActionReorganize:
		stmt = "VACUUM (INDEX_CLEANUP TRUE) " + qualified(req.Key.Container, req.Key.Table)
	case database.ActionRebuild:
		if req.Mode == database.ModeOnline {
			stmt = "REINDEX INDEX CONCURRENTLY " + qualified(req.Key.Container, req.Key.Structure)
		} else {
			stmt = "REINDEX INDEX " + qualified(req.Key.Container, req.Key.Structure)
		}
	case database.ActionUpdateStatistics:
		stmt = "ANALYZE " + qualified(req.Key.Container, req.Key.Table)
	default:
		return "", fmt.Errorf("no command for action %s", req.Action)
	}

	if err := validateStatement(stmt, req.Action); err != nil {
		return "", err
	}
	return stmt, nil
}

// validateStatement parses the rendered SQL and checks it is exactly one
// statement of the kind the action calls for.
func validateStatement(stmt string, action database.Action) error {
	tree, err := pg_query.Parse(stmt)
	if err != nil {
		return fmt.Errorf("rendered invalid SQL %q: %w", stmt, err)
	}
	if len(tree.Stmts) != 1 || tree.Stmts[0].Stmt == nil {
		return fmt.Errorf("rendered %d statements for %s, expected 1", len(tree.Stmts), action)
	}

	node := tree.Stmts[0].Stmt
	switch action {
	case database.ActionReorganize:
		if v := node.GetVacuumStmt(); v == nil || !v.IsVacuumcmd {
			return fmt.Errorf("rendered %q is not a VACUUM", stmt)
		}
	case database.ActionUpdateStatistics:
		if v := node.GetVacuumStmt(); v == nil || v.IsVacuumcmd {
			return fmt.Errorf("rendered %q is not an ANALYZE", stmt)
		}
	case database.ActionRebuild:
		if r := node.GetReindexStmt(); r == nil || r.Kind != pg_query.ReindexObjectType_REINDEX_OBJECT_INDEX {
			return fmt.Errorf("rendered %q is not a REINDEX INDEX", stmt)
		}
	}
	return nil
}

// Execute runs one maintenance command. VACUUM and REINDEX CONCURRENTLY cannot
// run inside a transaction block, so statements go straight to the pool.
func (e *Engine) Execute(ctx context.Context, req database.CommandRequest) error {
	stmt, err := e.Render(req)
	if err != nil {
		return err
	}

	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%s failed: %w", req, err)
	}
	return nil
}
