package series

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bacendata/sgs-client/pkg/client"
	"github.com/bacendata/sgs-client/pkg/dates"
)

// Assemble turns raw upstream observations into the canonical series
// form: dates parsed, values parsed, duplicate dates collapsed keeping
// the occurrence that appears last in the input, result sorted by date
// ascending. Chunked fetches concatenate their raw observations in
// chunk order before calling Assemble, so overlap at chunk boundaries
// resolves in favor of the later chunk.
//
// Values that are not numeric (empty strings, placeholder dashes)
// become Missing points rather than failing the whole series. A date
// that does not parse fails the call, that indicates a corrupt payload
// rather than a data gap.
func Assemble(obs []client.Observation) ([]Point, error) {
	if len(obs) == 0 {
		return []Point{}, nil
	}

	byDate := make(map[time.Time]Point, len(obs))
	for _, o := range obs {
		d, err := dates.ParseBCB(o.Date)
		if err != nil {
			return nil, fmt.Errorf("observation date %q: %w", o.Date, err)
		}

		p := Point{Date: d}
		raw := strings.TrimSpace(o.Value)
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			p.Value = v
		} else {
			p.Missing = true
		}

		// Later occurrences overwrite earlier ones.
		byDate[d.Time()] = p
	}

	points := make([]Point, 0, len(byDate))
	for _, p := range byDate {
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points, nil
}
