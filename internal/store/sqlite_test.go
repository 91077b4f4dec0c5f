package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"
)

// testClock is a manually advanced clock for expiry tests.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(t *testing.T) (*SQLiteStore, *testClock) {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	clock := &testClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	s.now = clock.now
	return s, clock
}

func TestSetAndGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "poem_state", []byte(`{"phase":"keyline"}`), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := s.Get(ctx, "poem_state")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"phase":"keyline"}` {
		t.Errorf("Get = %q", got)
	}

	// Overwrite replaces the value.
	if err := s.Set(ctx, "poem_state", []byte(`{"phase":"mood"}`), 0); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, _ = s.Get(ctx, "poem_state")
	if string(got) != `{"phase":"mood"}` {
		t.Errorf("Get after overwrite = %q", got)
	}
}

func TestGetNotFound(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Get(context.Background(), "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
}

func TestExpiry(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "vote:2026-03-14:u1:keyline", []byte("keyline_0"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	clock.advance(59 * time.Minute)
	if _, err := s.Get(ctx, "vote:2026-03-14:u1:keyline"); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}

	clock.advance(time.Minute)
	if _, err := s.Get(ctx, "vote:2026-03-14:u1:keyline"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after expiry error = %v, want ErrNotFound", err)
	}

	// Set without ttl clears an earlier expiry.
	if err := s.Set(ctx, "k", []byte("v"), time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	clock.advance(time.Hour)
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Errorf("Get persistent key: %v", err)
	}
}

func TestSetNX(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	ok, err := s.SetNX(ctx, "vote:d:u:mood", []byte("a"), time.Hour)
	if err != nil || !ok {
		t.Fatalf("first SetNX = %v, %v; want true, nil", ok, err)
	}

	ok, err = s.SetNX(ctx, "vote:d:u:mood", []byte("b"), time.Hour)
	if err != nil || ok {
		t.Fatalf("second SetNX = %v, %v; want false, nil", ok, err)
	}
	got, _ := s.Get(ctx, "vote:d:u:mood")
	if string(got) != "a" {
		t.Errorf("value = %q, want first write kept", got)
	}

	// Once expired, the key can be claimed again.
	clock.advance(2 * time.Hour)
	ok, err = s.SetNX(ctx, "vote:d:u:mood", []byte("c"), time.Hour)
	if err != nil || !ok {
		t.Fatalf("SetNX after expiry = %v, %v; want true, nil", ok, err)
	}

	// A key without expiry is never reclaimed.
	if err := s.Set(ctx, "forever", []byte("x"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	ok, _ = s.SetNX(ctx, "forever", []byte("y"), 0)
	if ok {
		t.Error("SetNX overwrote a persistent key")
	}
}

func TestSetNXConcurrent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := s.SetNX(ctx, "race", []byte(fmt.Sprint(i)), time.Hour)
			if err != nil {
				t.Errorf("SetNX: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.Set(ctx, "k", []byte("v"), 0)
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete missing key: %v", err)
	}
}

func TestKeysByPrefix(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	for _, k := range []string{"daily_poem:2026-03-13", "daily_poem:2026-03-12", "poem_state", "daily_poemX"} {
		if err := s.Set(ctx, k, []byte("v"), 0); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}
	s.Set(ctx, "daily_poem:2026-03-14", []byte("v"), time.Minute)

	keys, err := s.Keys(ctx, "daily_poem:")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	want := []string{"daily_poem:2026-03-12", "daily_poem:2026-03-13", "daily_poem:2026-03-14"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys = %v, want %v", keys, want)
	}

	clock.advance(time.Hour)
	keys, _ = s.Keys(ctx, "daily_poem:")
	if len(keys) != 2 {
		t.Errorf("Keys after expiry = %v, want 2 keys", keys)
	}

	// Prefix matching is literal and case-sensitive.
	keys, _ = s.Keys(ctx, "DAILY_")
	if len(keys) != 0 {
		t.Errorf("Keys(DAILY_) = %v, want none", keys)
	}
}

func TestPurgeExpired(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	s.Set(ctx, "a", []byte("1"), time.Minute)
	s.Set(ctx, "b", []byte("2"), time.Hour)
	s.Set(ctx, "c", []byte("3"), 0)

	clock.advance(2 * time.Minute)
	n, err := s.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM kv").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("rows left = %d, want 2", count)
	}
}

func TestFileBackedStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poem.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := s.Set(ctx, "poem_state", []byte("{}"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.Close()

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	if _, err := s2.Get(ctx, "poem_state"); err != nil {
		t.Errorf("Get after reopen: %v", err)
	}
}
