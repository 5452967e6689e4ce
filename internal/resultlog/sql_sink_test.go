package resultlog

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/lockplane/idxmaint/internal/database"
	_ "modernc.org/sqlite"
)

func openTestSQLite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	// Each pooled connection would get its own in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLSink_AppendAndHistory(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)

	sink, err := NewSQLSink(ctx, db, DialectSQLite)
	if err != nil {
		t.Fatalf("NewSQLSink failed: %v", err)
	}

	base := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	first := ExecutionResult{
		Key:                 database.StructureKey{Container: "main", Table: "orders", Structure: "idx_orders_created"},
		Action:              database.ActionRebuild,
		FragmentationBefore: 45.5,
		PageCount:           5000,
		DurationMillis:      1200,
		Succeeded:           false,
		ErrorMessage:        "database is locked",
		Timestamp:           base,
	}
	second := ExecutionResult{
		Key:                 database.StructureKey{Container: "main", Table: "orders", Structure: "idx_orders_status"},
		Action:              database.ActionReorganize,
		FragmentationBefore: 10,
		PageCount:           2000,
		DurationMillis:      80,
		Succeeded:           true,
		Timestamp:           base.Add(2 * time.Second),
	}

	for _, r := range []ExecutionResult{first, second} {
		if err := sink.Append(ctx, r); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	history, err := sink.History(ctx, 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(history))
	}

	if history[0].Key.Structure != "idx_orders_status" {
		t.Errorf("Expected newest row first, got %s", history[0].Key.Structure)
	}
	if !history[0].Succeeded || history[0].ErrorMessage != "" {
		t.Errorf("Expected successful row without error, got %+v", history[0])
	}

	got := history[1]
	if got.Action != database.ActionRebuild {
		t.Errorf("Expected REBUILD, got %s", got.Action)
	}
	if got.Succeeded || got.ErrorMessage != "database is locked" {
		t.Errorf("Expected failed row with message, got %+v", got)
	}
	if got.FragmentationBefore != 45.5 || got.PageCount != 5000 || got.DurationMillis != 1200 {
		t.Errorf("Numeric columns did not round-trip: %+v", got)
	}
	if !got.Timestamp.Equal(base) {
		t.Errorf("Expected timestamp %v, got %v", base, got.Timestamp)
	}
}

func TestSQLSink_HistoryOrdersSubSecondTimestamps(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)

	sink, err := NewSQLSink(ctx, db, DialectSQLite)
	if err != nil {
		t.Fatalf("NewSQLSink failed: %v", err)
	}

	base := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	// Fractions of different printed lengths within one second
	offsets := []time.Duration{
		0,
		100 * time.Millisecond,
		150 * time.Millisecond,
		500 * time.Millisecond,
		500*time.Millisecond + 1,
	}
	for i, off := range offsets {
		r := ExecutionResult{
			Key:       database.StructureKey{Container: "main", Table: "orders", Structure: "idx_" + string(rune('a'+i))},
			Action:    database.ActionReorganize,
			Succeeded: true,
			Timestamp: base.Add(off),
		}
		if err := sink.Append(ctx, r); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	history, err := sink.History(ctx, 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != len(offsets) {
		t.Fatalf("Expected %d rows, got %d", len(offsets), len(history))
	}
	for i, r := range history {
		want := base.Add(offsets[len(offsets)-1-i])
		if !r.Timestamp.Equal(want) {
			t.Errorf("row %d: timestamp %s, want %s (newest first)",
				i, r.Timestamp.Format(time.RFC3339Nano), want.Format(time.RFC3339Nano))
		}
	}
}

func TestDialect_TimestampArgIsFixedWidth(t *testing.T) {
	a := DialectSQLite.timestampArg(time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)).(string)
	b := DialectSQLite.timestampArg(time.Date(2026, 3, 1, 2, 0, 0, 150_000_000, time.FixedZone("CET", 3600))).(string)

	if len(a) != len(b) {
		t.Errorf("Expected equal widths, got %q and %q", a, b)
	}
	if a != "2026-03-01T02:00:00.000000000Z" {
		t.Errorf("Unexpected encoding %q", a)
	}
	if b != "2026-03-01T01:00:00.150000000Z" {
		t.Errorf("Expected UTC conversion, got %q", b)
	}
}

func TestSQLSink_PersistedColumns(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)

	if _, err := NewSQLSink(ctx, db, DialectSQLite); err != nil {
		t.Fatalf("NewSQLSink failed: %v", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info('index_maintenance_log') ORDER BY cid")
	if err != nil {
		t.Fatalf("Failed to read table info: %v", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		columns = append(columns, name)
	}

	expected := "timestamp,container,table,structure,action,fragmentation_before,page_count,duration_millis,status,error_message"
	if got := strings.Join(columns, ","); got != expected {
		t.Errorf("Unexpected columns\n got: %s\nwant: %s", got, expected)
	}
}

func TestSQLSink_CreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)

	for i := 0; i < 2; i++ {
		if _, err := NewSQLSink(ctx, db, DialectSQLite); err != nil {
			t.Fatalf("NewSQLSink call %d failed: %v", i+1, err)
		}
	}
}

func TestSQLSink_NullErrorMessageOnSuccess(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)

	sink, err := NewSQLSink(ctx, db, DialectSQLite)
	if err != nil {
		t.Fatalf("NewSQLSink failed: %v", err)
	}
	if err := sink.Append(ctx, result(database.ActionReorganize, true)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	var nulls int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM index_maintenance_log WHERE error_message IS NULL").Scan(&nulls); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if nulls != 1 {
		t.Errorf("Expected NULL error_message for success, got %d NULL rows", nulls)
	}
}

func TestDialect_InsertSQL(t *testing.T) {
	pg := DialectPostgres.insertSQL()
	if !strings.Contains(pg, "$10") {
		t.Errorf("Expected numbered placeholders for postgres, got %s", pg)
	}

	lite := DialectSQLite.insertSQL()
	if strings.Contains(lite, "$") || strings.Count(lite, "?") != 10 {
		t.Errorf("Expected ten ? placeholders for sqlite, got %s", lite)
	}
}

func TestDialectFor(t *testing.T) {
	if DialectFor(database.DatabaseTypePostgres) != DialectPostgres {
		t.Error("Expected postgres dialect")
	}
	if DialectFor(database.DatabaseTypeLibSQL) != DialectSQLite {
		t.Error("Expected libsql to use sqlite dialect")
	}
}
