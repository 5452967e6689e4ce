package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lockplane/idxmaint/internal/database"
)

// fragmentationQuery sums the dbstat pages of every index. Fragmentation is
// the share of page bytes left unused, which is what REINDEX reclaims.
const fragmentationQuery = `
SELECT
	i.tbl_name,
	i.name,
	COUNT(*) AS pages,
	SUM(s.pgsize) AS page_bytes,
	SUM(s.unused) AS unused_bytes
FROM %s.sqlite_master i
JOIN dbstat AS s ON s.name = i.name AND s.schema = ?
WHERE i.type = 'index'
GROUP BY i.tbl_name, i.name
HAVING COUNT(*) >= ?
ORDER BY i.tbl_name, i.name`

// columnTypesQuery lists declared types of the columns an index references.
// The rowid (cid -1) and expressions (cid -2) have no declared type.
const columnTypesQuery = `
SELECT COALESCE(c.type, '')
FROM pragma_index_xinfo(?, ?) x
LEFT JOIN pragma_table_info(?, ?) c ON c.cid = x.cid
WHERE x.cid >= 0
ORDER BY x.seqno`

// LoadFragmentation reads the dbstat virtual table. The driver must be built
// with SQLITE_ENABLE_DBSTAT_VTAB.
func (e *Engine) LoadFragmentation(ctx context.Context, container string, minPages int64) ([]database.FragmentationRecord, error) {
	if container == "" {
		container = DefaultSchema
	}

	query := fmt.Sprintf(fragmentationQuery, quoteIdentifier(container))
	rows, err := e.db.QueryContext(ctx, query, container, minPages)
	if err != nil {
		return nil, fmt.Errorf("failed to query dbstat: %w", err)
	}

	var records []database.FragmentationRecord
	for rows.Next() {
		var (
			rec                    database.FragmentationRecord
			pageBytes, unusedBytes sql.NullInt64
		)
		if err := rows.Scan(&rec.Key.Table, &rec.Key.Structure, &rec.PageCount, &pageBytes, &unusedBytes); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan dbstat row: %w", err)
		}
		rec.Key.Container = container
		if pageBytes.Int64 > 0 {
			rec.FragmentationPercent = float64(unusedBytes.Int64) / float64(pageBytes.Int64) * 100
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to read dbstat rows: %w", err)
	}
	// close before issuing pragma queries on a single-connection pool
	if err := rows.Close(); err != nil {
		return nil, err
	}

	for i := range records {
		types, err := e.columnTypes(ctx, container, records[i].Key)
		if err != nil {
			return nil, err
		}
		records[i].ColumnTypes = types
	}

	return records, nil
}

func (e *Engine) columnTypes(ctx context.Context, container string, key database.StructureKey) ([]string, error) {
	rows, err := e.db.QueryContext(ctx, columnTypesQuery, key.Structure, container, key.Table, container)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of index %s: %w", key, err)
	}
	defer func() { _ = rows.Close() }()

	var types []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan column of index %s: %w", key, err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}
