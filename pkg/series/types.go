// Package series implements the fetch pipeline for SGS time series:
// range partitioning, cache-aware bounded-concurrency fan-out, retrying
// upstream fetches, and merge/dedup assembly of the results.
package series

import (
	"github.com/bacendata/sgs-client/pkg/dates"
)

// Point is one observation of a series after assembly: a calendar date
// and a parsed value. Dates are strictly increasing within a series.
type Point struct {
	Date dates.Date `json:"date"`

	// Value is the parsed observation. Zero when Missing is set.
	Value float64 `json:"value"`

	// Missing marks an observation whose upstream value string was not
	// numeric. The date is kept so gaps stay visible.
	Missing bool `json:"missing,omitempty"`
}
