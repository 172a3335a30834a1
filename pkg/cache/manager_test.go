package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bacendata/sgs-client/pkg/dates"
)

func testRange() dates.Range {
	return dates.Range{
		Start: dates.New(2024, time.January, 1),
		End:   dates.New(2024, time.December, 31),
	}
}

func activatedManager(t *testing.T) *Manager {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	m := NewManager(nil)
	m.Activate(store)
	t.Cleanup(func() { m.Deactivate() })
	return m
}

func TestManagerDisabledByDefault(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	if m.Enabled() {
		t.Error("New manager should start disabled")
	}

	// All operations are no-ops while disabled.
	m.Store(ctx, 11, testRange(), []byte("[]"))
	if _, ok := m.Lookup(ctx, 11, testRange()); ok {
		t.Error("Disabled manager returned a hit")
	}
	if err := m.Purge(ctx); err != nil {
		t.Errorf("Purge on disabled manager failed: %v", err)
	}
	if n, err := m.PurgeExpired(ctx); err != nil || n != 0 {
		t.Errorf("PurgeExpired on disabled manager: n=%d err=%v", n, err)
	}
}

func TestManagerStoreLookupRoundTrip(t *testing.T) {
	m := activatedManager(t)
	ctx := context.Background()
	payload := []byte(`[{"data":"02/01/2024","valor":"0.04"}]`)

	m.Store(ctx, 11, testRange(), payload)

	got, ok := m.Lookup(ctx, 11, testRange())
	if !ok {
		t.Fatal("Expected a cache hit")
	}
	if string(got) != string(payload) {
		t.Errorf("Payload mismatch: %s", got)
	}
}

func TestManagerLookupMissOnDifferentRange(t *testing.T) {
	m := activatedManager(t)
	ctx := context.Background()

	m.Store(ctx, 11, testRange(), []byte("[]"))

	other := dates.Range{
		Start: dates.New(2024, time.January, 1),
		End:   dates.New(2025, time.January, 1),
	}
	if _, ok := m.Lookup(ctx, 11, other); ok {
		t.Error("Lookup must match the exact sub-range only")
	}
	if _, ok := m.Lookup(ctx, 12, testRange()); ok {
		t.Error("Lookup must match the series code")
	}
}

func TestManagerExpiredEntryIsMissAndRemoved(t *testing.T) {
	m := activatedManager(t)
	ctx := context.Background()

	m.StoreWithTTL(ctx, 11, testRange(), []byte("[]"), time.Nanosecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok := m.Lookup(ctx, 11, testRange()); ok {
		t.Fatal("Expired entry returned as a hit")
	}

	// The expired row was deleted on lookup, so it no longer counts.
	key := NewKey(11, testRange()).String()
	if _, err := m.current().Get(ctx, key); err == nil {
		t.Error("Expired entry should have been removed from the store")
	}
}

func TestManagerTTLFollowsPeriodicity(t *testing.T) {
	m := activatedManager(t)
	ctx := context.Background()

	// Series 433 (IPCA) is monthly, so its entries get the long TTL.
	m.Store(ctx, 433, testRange(), []byte("[]"))

	key := NewKey(433, testRange()).String()
	entry, err := m.current().Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.TTL != 24*time.Hour {
		t.Errorf("Expected monthly TTL of 24h, got %v", entry.TTL)
	}
}

func TestManagerPurge(t *testing.T) {
	m := activatedManager(t)
	ctx := context.Background()

	m.Store(ctx, 11, testRange(), []byte("[]"))
	if err := m.Purge(ctx); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if _, ok := m.Lookup(ctx, 11, testRange()); ok {
		t.Error("Entry survived purge")
	}
}

func TestManagerDeactivateDisables(t *testing.T) {
	m := activatedManager(t)
	ctx := context.Background()

	m.Store(ctx, 11, testRange(), []byte("[]"))
	if err := m.Deactivate(); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	if m.Enabled() {
		t.Error("Manager still enabled after Deactivate")
	}
	if _, ok := m.Lookup(ctx, 11, testRange()); ok {
		t.Error("Deactivated manager returned a hit")
	}
}
