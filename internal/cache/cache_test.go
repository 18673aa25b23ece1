package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func counter(calls *int, value string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		*calls++
		return value, nil
	}
}

func TestFetchWithinTTLCallsProducerOnce(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)}
	c := New(NewMemoryStore(), WithClock(clock.Now))
	ctx := context.Background()
	calls := 0

	v, err := Fetch(ctx, c, "usage", time.Minute, counter(&calls, "a"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	clock.Advance(59 * time.Second)
	v, err = Fetch(ctx, c, "usage", time.Minute, counter(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	assert.Equal(t, 1, calls)
}

func TestFetchAfterTTLCallsProducerAgain(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)}
	c := New(NewMemoryStore(), WithClock(clock.Now))
	ctx := context.Background()
	calls := 0

	_, err := Fetch(ctx, c, "usage", time.Minute, counter(&calls, "a"))
	require.NoError(t, err)

	// fetched_at + ttl == now is already stale.
	clock.Advance(time.Minute)
	v, err := Fetch(ctx, c, "usage", time.Minute, counter(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	assert.Equal(t, 2, calls)
}

func TestFetchKeysAreIndependent(t *testing.T) {
	c := New(NewMemoryStore())
	ctx := context.Background()
	calls := 0

	a, err := Fetch(ctx, c, "identity", time.Hour, counter(&calls, "octocat"))
	require.NoError(t, err)
	b, err := Fetch(ctx, c, "usage", time.Minute, counter(&calls, "42"))
	require.NoError(t, err)

	assert.Equal(t, "octocat", a)
	assert.Equal(t, "42", b)
	assert.Equal(t, 2, calls)
}

func TestFetchErrorKeepsStaleEntry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	c := New(store, WithClock(clock.Now))
	ctx := context.Background()
	calls := 0

	_, err := Fetch(ctx, c, "usage", time.Minute, counter(&calls, "old"))
	require.NoError(t, err)
	before, err := store.Load("usage")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	boom := errors.New("HTTP 502: bad gateway")
	_, err = Fetch(ctx, c, "usage", time.Minute, func(context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)

	after, err := store.Load("usage")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, store.Saves())
}

func TestFetchUndecodableEntryIsMiss(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(Entry{
		Key:        "usage",
		Value:      json.RawMessage(`{"not":"a number"}`),
		FetchedAt:  time.Now(),
		TTLSeconds: 60,
	}))
	c := New(store)

	v, err := Fetch(context.Background(), c, "usage", time.Minute, func(context.Context) (float64, error) {
		return 3.5, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)
}

func TestFetchStructValues(t *testing.T) {
	type snapshot struct {
		Used float64 `json:"used"`
	}
	c := New(NewMemoryStore())
	ctx := context.Background()

	_, err := Fetch(ctx, c, "usage", time.Minute, func(context.Context) (snapshot, error) {
		return snapshot{Used: 12.5}, nil
	})
	require.NoError(t, err)

	v, err := Fetch(ctx, c, "usage", time.Minute, func(context.Context) (snapshot, error) {
		t.Fatal("producer should not run on a fresh entry")
		return snapshot{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 12.5, v.Used)
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	store := NewFileStore(dir)
	entry := Entry{
		Key:        "identity",
		Value:      json.RawMessage(`"octocat"`),
		FetchedAt:  time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
		TTLSeconds: 3600,
	}

	require.NoError(t, store.Save(entry))
	got, err := store.Load("identity")
	require.NoError(t, err)
	assert.Equal(t, entry.Key, got.Key)
	assert.JSONEq(t, string(entry.Value), string(got.Value))
	assert.True(t, entry.FetchedAt.Equal(got.FetchedAt))
	assert.Equal(t, entry.TTLSeconds, got.TTLSeconds)

	// No temp files left behind.
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "identity.json", files[0].Name())
}

func TestFileStoreCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "usage.json"), []byte("{trunc"), 0o600))
	store := NewFileStore(dir)

	_, err := store.Load("usage")
	assert.Error(t, err)

	calls := 0
	c := New(store)
	v, err := Fetch(context.Background(), c, "usage", time.Minute, counter(&calls, "fresh"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, 1, calls)

	got, err := store.Load("usage")
	require.NoError(t, err)
	assert.JSONEq(t, `"fresh"`, string(got.Value))
}

func TestFileStoreRejectsBadKeys(t *testing.T) {
	store := NewFileStore(t.TempDir())
	for _, key := range []string{"", "../escape", "a/b", "with space"} {
		t.Run(key, func(t *testing.T) {
			_, err := store.Load(key)
			assert.Error(t, err)
			assert.Error(t, store.Save(Entry{Key: key}))
		})
	}
}

func TestFetchSaveFailureStillReturnsValue(t *testing.T) {
	// A regular file where the cache directory should be makes MkdirAll fail.
	parent := t.TempDir()
	blocker := filepath.Join(parent, "blocked")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	c := New(NewFileStore(filepath.Join(blocker, "dir")))

	calls := 0
	v, err := Fetch(context.Background(), c, "usage", time.Minute, counter(&calls, "value"))
	require.NoError(t, err)
	assert.Equal(t, "value", v)
}

func TestEntryIsFresh(t *testing.T) {
	fetched := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	e := Entry{FetchedAt: fetched, TTLSeconds: 60}

	testCases := []struct {
		desc string
		now  time.Time
		want bool
	}{
		{"just fetched", fetched, true},
		{"one second before expiry", fetched.Add(59 * time.Second), true},
		{"exactly at expiry", fetched.Add(60 * time.Second), false},
		{"long expired", fetched.Add(time.Hour), false},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, e.IsFresh(tc.now))
		})
	}
}
