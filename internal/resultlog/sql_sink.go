package resultlog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lockplane/idxmaint/internal/database"
)

// LogTable is the append-only relation existing reports read from
const LogTable = "index_maintenance_log"

// Dialect selects placeholder style and column types for the sink table
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// DialectFor maps an engine to the sink dialect. libSQL speaks SQLite.
func DialectFor(dbType database.DatabaseType) Dialect {
	if dbType == database.DatabaseTypePostgres {
		return DialectPostgres
	}
	return DialectSQLite
}

// ParameterPlaceholder returns the parameter placeholder for this dialect
// PostgreSQL: $1, $2, etc.
// SQLite: ?, ?, etc.
func (d Dialect) ParameterPlaceholder(position int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", position)
	}
	return "?"
}

func (d Dialect) createTableSQL() string {
	realType, intType, tsType := "REAL", "INTEGER", "TEXT"
	if d == DialectPostgres {
		realType, intType, tsType = "DOUBLE PRECISION", "BIGINT", "TIMESTAMPTZ"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	"timestamp" %s NOT NULL,
	container TEXT NOT NULL,
	"table" TEXT NOT NULL,
	structure TEXT NOT NULL,
	action TEXT NOT NULL,
	fragmentation_before %s NOT NULL,
	page_count %s NOT NULL,
	duration_millis %s NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('SUCCESS', 'FAILED')),
	error_message TEXT
)`, LogTable, tsType, realType, intType, intType)
}

var logColumns = []string{
	`"timestamp"`, "container", `"table"`, "structure", "action",
	"fragmentation_before", "page_count", "duration_millis", "status", "error_message",
}

func (d Dialect) insertSQL() string {
	placeholders := make([]string, len(logColumns))
	for i := range logColumns {
		placeholders[i] = d.ParameterPlaceholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		LogTable, strings.Join(logColumns, ", "), strings.Join(placeholders, ", "))
}

// sqliteTimestampLayout is fixed-width UTC RFC 3339 so text order is time order.
// time.RFC3339Nano trims trailing zeros and would not sort.
const sqliteTimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timestampArg encodes the timestamp for the dialect. SQLite has no timestamp
// type, so it gets fixed-width text.
func (d Dialect) timestampArg(ts time.Time) any {
	if d == DialectPostgres {
		return ts.UTC()
	}
	return ts.UTC().Format(sqliteTimestampLayout)
}

// SQLSink persists results into LogTable through database/sql
type SQLSink struct {
	db      *sql.DB
	dialect Dialect
	insert  string
}

// NewSQLSink creates the log table if needed and returns a sink writing to it
func NewSQLSink(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLSink, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if _, err := db.ExecContext(ctx, dialect.createTableSQL()); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", LogTable, err)
	}
	return &SQLSink{
		db:      db,
		dialect: dialect,
		insert:  dialect.insertSQL(),
	}, nil
}

// Append inserts one row
func (s *SQLSink) Append(ctx context.Context, r ExecutionResult) error {
	var errMsg sql.NullString
	if !r.Succeeded {
		errMsg = sql.NullString{String: r.ErrorMessage, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.insert,
		s.dialect.timestampArg(r.Timestamp),
		r.Key.Container,
		r.Key.Table,
		r.Key.Structure,
		r.Action.String(),
		r.FragmentationBefore,
		r.PageCount,
		r.DurationMillis,
		r.Status(),
		errMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", LogTable, err)
	}
	return nil
}

// History returns the most recent rows, newest first
func (s *SQLSink) History(ctx context.Context, limit int) ([]ExecutionResult, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY "timestamp" DESC LIMIT %s`,
		strings.Join(logColumns, ", "), LogTable, s.dialect.ParameterPlaceholder(1))

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", LogTable, err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]ExecutionResult, 0, limit)
	for rows.Next() {
		var (
			r        ExecutionResult
			ts       string
			action   string
			status   string
			errorMsg sql.NullString
		)
		if err := rows.Scan(&ts, &r.Key.Container, &r.Key.Table, &r.Key.Structure, &action,
			&r.FragmentationBefore, &r.PageCount, &r.DurationMillis, &status, &errorMsg); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", LogTable, err)
		}

		if r.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("invalid timestamp %q in %s: %w", ts, LogTable, err)
		}
		if r.Action, err = database.ParseAction(action); err != nil {
			return nil, err
		}
		r.Succeeded = status == StatusSuccess
		r.ErrorMessage = errorMsg.String
		results = append(results, r)
	}

	return results, rows.Err()
}
