package shared

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestIsSQLiteConflictError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("SQLITE_BUSY: database busy"), true},
		{errors.New("database is locked (5)"), true},
		{errors.New("no such table: agents"), false},
	}
	for _, tt := range tests {
		if got := IsSQLiteConflictError(tt.err); got != tt.want {
			t.Errorf("IsSQLiteConflictError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestRetryOnConflict(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), "put", 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryOnConflictNonRetryable(t *testing.T) {
	calls := 0
	cause := errors.New("constraint failed")
	err := RetryOnConflict(context.Background(), "put", 3, time.Millisecond, func() error {
		calls++
		return cause
	})
	if !errors.Is(err, cause) || calls != 1 {
		t.Fatalf("expected immediate failure, got %v after %d calls", err, calls)
	}
}

func TestRetryOnConflictExhausted(t *testing.T) {
	err := RetryOnConflict(context.Background(), "delete", 2, time.Millisecond, func() error {
		return errors.New("SQLITE_BUSY")
	})
	if err == nil || !IsSQLiteBusyError(err) {
		t.Fatalf("expected wrapped busy error, got %v", err)
	}
}

func TestIsSQLiteConflictErrorFromDriver(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "busy.db") + "?_pragma=busy_timeout(0)"

	holder, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open holder: %v", err)
	}
	defer holder.Close()
	if _, err := holder.Exec(`CREATE TABLE t (v INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	ctx := context.Background()
	conn, err := holder.Conn(ctx)
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, `BEGIN EXCLUSIVE`); err != nil {
		t.Fatalf("begin exclusive: %v", err)
	}
	defer func() { _, _ = conn.ExecContext(ctx, `ROLLBACK`) }()

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer writer.Close()

	_, err = writer.Exec(`INSERT INTO t (v) VALUES (1)`)
	if err == nil {
		t.Fatal("expected the write to fail while the database is locked")
	}
	if !IsSQLiteBusyError(err) || !IsSQLiteConflictError(err) {
		t.Fatalf("expected a busy conflict, got %v", err)
	}
	if code, ok := sqliteCode(err); !ok || code != 5 {
		t.Fatalf("expected driver code 5, got %d (typed=%v)", code, ok)
	}
}
