package cache

import (
	"fmt"

	"github.com/bacendata/sgs-client/pkg/dates"
)

// Key identifies one cached query result: one series code and one exact
// sub-range, both boundaries in the upstream's own DD/MM/YYYY format.
type Key struct {
	Code  int
	Start string
	End   string
}

// NewKey builds the cache key for a series code and sub-range.
func NewKey(code int, rng dates.Range) Key {
	return Key{Code: code, Start: rng.Start.BCB(), End: rng.End.BCB()}
}

// String generates the deterministic store key.
// Format: sgs:{code}:{start}:{end}, e.g. sgs:11:01/01/2020:31/12/2020.
func (k Key) String() string {
	return fmt.Sprintf("sgs:%d:%s:%s", k.Code, k.Start, k.End)
}
