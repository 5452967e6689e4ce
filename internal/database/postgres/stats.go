package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/lib/pq"
	"github.com/lockplane/idxmaint/internal/database"
)

// fragmentationQuery reads leaf fragmentation for every valid btree index in a
// schema. Column types cover key and INCLUDE columns; expression columns
// (attnum 0) have no pg_attribute row and are skipped.
const fragmentationQuery = `
SELECT
	n.nspname,
	t.relname,
	i.relname,
	i.oid::bigint,
	s.leaf_fragmentation,
	s.leaf_pages,
	ARRAY(
		SELECT format_type(a.atttypid, a.atttypmod)
		FROM unnest(x.indkey) WITH ORDINALITY AS k(attnum, ord)
		JOIN pg_attribute a ON a.attrelid = x.indrelid AND a.attnum = k.attnum
		ORDER BY k.ord
	) AS column_types
FROM pg_index x
JOIN pg_class i ON i.oid = x.indexrelid
JOIN pg_class t ON t.oid = x.indrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
JOIN pg_am am ON am.oid = i.relam
CROSS JOIN LATERAL pgstatindex(i.oid::regclass) s
WHERE n.nspname = $1
	AND i.relkind = 'i'
	AND am.amname = 'btree'
	AND x.indisvalid
	AND i.relpages >= $2
ORDER BY t.relname, i.relname`

// LoadFragmentation reads pgstattuple's pgstatindex for each index in the schema.
// minPages pre-filters on the relation size so tiny indexes are not scanned.
func (e *Engine) LoadFragmentation(ctx context.Context, container string, minPages int64) ([]database.FragmentationRecord, error) {
	if container == "" {
		container = DefaultSchema
	}

	rows, err := e.db.QueryContext(ctx, fragmentationQuery, container, minPages)
	if err != nil {
		return nil, fmt.Errorf("failed to query index fragmentation (is the pgstattuple extension installed?): %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []database.FragmentationRecord
	for rows.Next() {
		var (
			rec           database.FragmentationRecord
			fragmentation float64
			columnTypes   []string
		)
		if err := rows.Scan(
			&rec.Key.Container,
			&rec.Key.Table,
			&rec.Key.Structure,
			&rec.StructureID,
			&fragmentation,
			&rec.PageCount,
			pq.Array(&columnTypes),
		); err != nil {
			return nil, fmt.Errorf("failed to scan fragmentation row: %w", err)
		}

		// pgstatindex reports NaN for indexes without leaf pages
		if math.IsNaN(fragmentation) {
			fragmentation = 0
		}
		rec.FragmentationPercent = fragmentation
		rec.ColumnTypes = columnTypes
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fragmentation rows: %w", err)
	}
	return records, nil
}
