package ratelimit

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// openTestDB connects to EDUBLINK_TEST_POSTGRES_DSN or skips the test.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("EDUBLINK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("EDUBLINK_TEST_POSTGRES_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.PingContext(context.Background()); err != nil {
		t.Fatalf("ping postgres: %v", err)
	}
	return db
}

func TestPostgresStore_FixedWindow(t *testing.T) {
	db := openTestDB(t)
	store := NewPostgresStore(db)
	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}

	key := "test-" + uuid.NewString()
	t.Cleanup(func() {
		db.ExecContext(context.Background(), `DELETE FROM rate_limits WHERE client_key = $1`, key) //nolint:errcheck
	})

	policy := Policy{Limit: 3, Window: time.Minute}
	now := time.Now().UTC().Truncate(time.Microsecond)

	for i := 1; i <= 3; i++ {
		d, err := store.Take(ctx, key, now, policy)
		if err != nil {
			t.Fatal(err)
		}
		if !d.Allowed || d.Count != i {
			t.Fatalf("request %d: expected allowed with count %d, got %+v", i, i, d)
		}
	}

	d, err := store.Take(ctx, key, now, policy)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Fatal("fourth request should be denied")
	}

	d, err = store.Take(ctx, key, now.Add(time.Minute+time.Second), policy)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed || d.Count != 1 {
		t.Fatalf("expected window restart with count 1, got %+v", d)
	}

	n, err := store.Sweep(ctx, now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n < 1 {
		t.Errorf("expected the test row to be swept, got %d", n)
	}
}
