package cache

import (
	"testing"
	"time"

	"github.com/bacendata/sgs-client/pkg/dates"
)

func TestKeyString(t *testing.T) {
	rng := dates.Range{
		Start: dates.New(2024, time.January, 1),
		End:   dates.New(2024, time.December, 31),
	}
	key := NewKey(433, rng)

	want := "sgs:433:01/01/2024:31/12/2024"
	if got := key.String(); got != want {
		t.Errorf("Expected key %q, got %q", want, got)
	}
}

func TestKeyDistinguishesRanges(t *testing.T) {
	a := NewKey(11, dates.Range{
		Start: dates.New(2024, time.January, 1),
		End:   dates.New(2024, time.June, 30),
	})
	b := NewKey(11, dates.Range{
		Start: dates.New(2024, time.January, 1),
		End:   dates.New(2024, time.July, 1),
	})
	if a.String() == b.String() {
		t.Errorf("Different ranges produced the same key %q", a.String())
	}
}

func TestEntryExpired(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		entry   Entry
		expired bool
	}{
		{
			name:    "fresh",
			entry:   Entry{StoredAt: now.Add(-time.Minute), TTL: time.Hour},
			expired: false,
		},
		{
			name:    "stale",
			entry:   Entry{StoredAt: now.Add(-2 * time.Hour), TTL: time.Hour},
			expired: true,
		},
		{
			name:    "at boundary",
			entry:   Entry{StoredAt: now.Add(-time.Hour), TTL: time.Hour},
			expired: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Expired(now); got != tt.expired {
				t.Errorf("Expired() = %v, expected %v", got, tt.expired)
			}
		})
	}
}
