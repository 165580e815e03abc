package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	// A single connection keeps every statement on the same in-memory database.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE songs (position INTEGER PRIMARY KEY, url TEXT)`)
	if err != nil {
		db.Close()
		t.Fatalf("failed to create table: %v", err)
	}

	return db
}

func countSongs(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM songs`).Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	return count
}

func TestWithTx_Success(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO songs (url) VALUES (?)`, "https://example.com/a")
		return err
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}

	if count := countSongs(t, db); count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestWithTx_Rollback(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	testErr := errors.New("test error")

	err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO songs (url) VALUES (?)`, "first"); err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO songs (url) VALUES (?)`, "second"); err != nil {
			return err
		}
		return testErr
	})

	if !errors.Is(err, testErr) {
		t.Fatalf("WithTx should return the error: got %v, want %v", err, testErr)
	}
	if count := countSongs(t, db); count != 0 {
		t.Errorf("count = %d, want 0 (all rolled back)", count)
	}
}

func TestWithTx_CanceledContext(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := WithTx(ctx, db, func(*sql.Tx) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("WithTx should fail on a canceled context")
	}
	if called {
		t.Error("fn should not run when Begin fails")
	}
}

func TestNullString(t *testing.T) {
	if n := NullString(""); n.Valid {
		t.Errorf("empty string should be NULL, got %+v", n)
	}
	if n := NullString("notes"); !n.Valid || n.String != "notes" {
		t.Errorf("NullString(notes) = %+v", n)
	}
}

func TestNullStringValue(t *testing.T) {
	if got := NullStringValue(sql.NullString{String: "x", Valid: false}); got != "" {
		t.Errorf("invalid value = %q, want empty", got)
	}
	if got := NullStringValue(sql.NullString{String: "x", Valid: true}); got != "x" {
		t.Errorf("valid value = %q, want x", got)
	}
}

func TestUnixPtr(t *testing.T) {
	if p := UnixPtr(sql.NullInt64{}); p != nil {
		t.Errorf("expected nil, got %v", *p)
	}

	p := UnixPtr(sql.NullInt64{Int64: 1700000000, Valid: true})
	if p == nil {
		t.Fatal("expected non-nil pointer")
	}
	if p.Unix() != 1700000000 {
		t.Errorf("Unix() = %d, want 1700000000", p.Unix())
	}
}

func TestNullUnix(t *testing.T) {
	if n := NullUnix(nil); n.Valid {
		t.Errorf("nil time should be NULL, got %+v", n)
	}

	at := time.Unix(42, 999)
	n := NullUnix(&at)
	if !n.Valid || n.Int64 != 42 {
		t.Errorf("NullUnix = %+v, want 42", n)
	}
	if back := UnixPtr(n); back == nil || back.Unix() != 42 {
		t.Errorf("round trip lost the value: %v", back)
	}
}
