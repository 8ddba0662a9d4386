package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func redisStore(t *testing.T) *RedisStore {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client)
}

func sqliteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"redis":  redisStore(t),
		"sqlite": sqliteStore(t),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			state := json.RawMessage(`{"total_distance_m":1234.5}`)
			takenAt := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

			seq, err := store.Save(ctx, "session-1", state, takenAt)
			if err != nil {
				t.Fatalf("save: %v", err)
			}
			if seq != 1 {
				t.Fatalf("expected seq 1, got %d", seq)
			}

			rec, err := store.LoadLatest(ctx, "session-1")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if rec.Seq != 1 || rec.Version != Version {
				t.Fatalf("unexpected record: %+v", rec)
			}
			if string(rec.State) != string(state) {
				t.Fatalf("state mismatch: %s", rec.State)
			}
		})
	}
}

func TestSequenceStrictlyIncreasing(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var last uint64
			for i := 0; i < 5; i++ {
				seq, err := store.Save(ctx, "session-seq", json.RawMessage(`{}`), time.Now())
				if err != nil {
					t.Fatalf("save %d: %v", i, err)
				}
				if seq <= last {
					t.Fatalf("seq not increasing: %d after %d", seq, last)
				}
				last = seq
			}

			rec, err := store.LoadLatest(ctx, "session-seq")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if rec.Seq != last {
				t.Fatalf("expected latest seq %d, got %d", last, rec.Seq)
			}
		})
	}
}

func TestLoadLatestNotFound(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.LoadLatest(context.Background(), "missing")
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestDeleteRemovesSession(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Save(ctx, "session-del", json.RawMessage(`{}`), time.Now()); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := store.Delete(ctx, "session-del"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := store.LoadLatest(ctx, "session-del"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
			ids, err := store.SessionIDs(ctx)
			if err != nil {
				t.Fatalf("ids: %v", err)
			}
			for _, id := range ids {
				if id == "session-del" {
					t.Fatalf("deleted session still indexed")
				}
			}
		})
	}
}

func TestSessionIDs(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, id := range []string{"a", "b"} {
				if _, err := store.Save(ctx, id, json.RawMessage(`{}`), time.Now()); err != nil {
					t.Fatalf("save: %v", err)
				}
			}
			ids, err := store.SessionIDs(ctx)
			if err != nil {
				t.Fatalf("ids: %v", err)
			}
			if len(ids) != 2 {
				t.Fatalf("expected 2 ids, got %v", ids)
			}
		})
	}
}

func TestRedisCorruptSnapshot(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()
	store := NewRedisStore(client)

	ctx := context.Background()
	if err := client.Set(ctx, snapshotKey("bad"), "not-json", 0).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.LoadLatest(ctx, "bad"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}

	// wrong envelope version is also corrupt
	if err := client.Set(ctx, snapshotKey("oldver"), `{"version":99,"seq":1,"state":{}}`, 0).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.LoadLatest(ctx, "oldver"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for version mismatch, got %v", err)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenSQLiteStore(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	if _, err := store.Save(ctx, "session-r", json.RawMessage(`{"x":1}`), time.Now()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLiteStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	rec, err := reopened.LoadLatest(ctx, "session-r")
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if rec.Seq != 1 {
		t.Fatalf("expected seq 1, got %d", rec.Seq)
	}
}
