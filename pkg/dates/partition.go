package dates

import (
	"fmt"

	"github.com/bacendata/sgs-client/pkg/apierr"
)

// Range is an inclusive calendar-date interval.
type Range struct {
	Start Date
	End   Date
}

// String formats the range for logs and cache keys.
func (r Range) String() string {
	return fmt.Sprintf("%s..%s", r.Start.ISO(), r.End.ISO())
}

// Days returns the number of calendar days the range covers, inclusive.
func (r Range) Days() int {
	return int(r.End.Time().Sub(r.Start.Time()).Hours()/24) + 1
}

// Partition splits [start, end] into an ordered list of contiguous,
// non-overlapping sub-ranges each spanning at most maxYears calendar
// years. Consecutive sub-ranges differ by exactly one day at the
// boundary and the last sub-range ends exactly at end.
//
// The SGS API rejects queries wider than ten years, so callers
// partition first and fan the sub-ranges out as independent requests.
func Partition(start, end Date, maxYears int) ([]Range, error) {
	if start.IsZero() || end.IsZero() {
		return nil, apierr.InvalidParamsf("partition requires both start and end dates")
	}
	if start.After(end) {
		return nil, apierr.InvalidParamsf("start date (%s) after end date (%s)", start, end)
	}
	if maxYears < 1 {
		return nil, apierr.InvalidParamsf("max span must be at least one year, got %d", maxYears)
	}

	var chunks []Range
	cursor := start
	for !cursor.After(end) {
		candidate := cursor.AddYears(maxYears).AddDays(-1)
		if candidate.After(end) {
			candidate = end
		}
		chunks = append(chunks, Range{Start: cursor, End: candidate})
		cursor = candidate.AddDays(1)
	}
	return chunks, nil
}
