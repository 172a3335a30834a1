package series

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bacendata/sgs-client/pkg/catalog"
	"github.com/bacendata/sgs-client/pkg/dates"
	"github.com/bacendata/sgs-client/pkg/ratelimit"
)

// FetchMultiple retrieves several series concurrently and outer-joins
// them on their dates. The map keys become the table's column labels.
// All references are resolved before any fetch starts, and one gate
// bounds upstream requests across every series and sub-range of the
// call. Any series failing fails the whole call with the label of the
// series that failed first; an empty request yields an empty table.
func (s *Service) FetchMultiple(ctx context.Context, refs map[string]catalog.Ref, opts Options) (*Table, error) {
	if len(refs) == 0 {
		return &Table{}, nil
	}

	labels := make([]string, 0, len(refs))
	codes := make(map[string]int, len(refs))
	for label, ref := range refs {
		code, err := s.catalog.Resolve(ref)
		if err != nil {
			seriesFetchesTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("series %q: %w", label, err)
		}
		labels = append(labels, label)
		codes[label] = code
	}
	sort.Strings(labels)

	// One gate and one abort flag span the whole call: a terminal
	// failure in any series stops queued work in every other series.
	gate := ratelimit.NewGate(s.config.MaxConcurrent)
	fetched := make(map[string][]Point, len(labels))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		aborted  atomic.Bool
		errOnce  sync.Once
		firstErr error
	)
	for _, label := range labels {
		wg.Add(1)
		go func(label string, code int) {
			defer wg.Done()
			if aborted.Load() {
				return
			}
			points, err := s.fetchResolved(ctx, code, opts, gate, &aborted)
			if err != nil {
				if !errors.Is(err, errBatchAborted) {
					errOnce.Do(func() { firstErr = fmt.Errorf("series %q: %w", label, err) })
				}
				aborted.Store(true)
				return
			}
			mu.Lock()
			fetched[label] = points
			mu.Unlock()
		}(label, codes[label])
	}
	wg.Wait()

	if firstErr != nil {
		seriesFetchesTotal.WithLabelValues("error").Inc()
		return nil, firstErr
	}
	seriesFetchesTotal.WithLabelValues("ok").Inc()
	return join(labels, fetched), nil
}

// join outer-joins per-label series into a date-sorted table. Missing
// observations contribute their date but no cell.
func join(labels []string, fetched map[string][]Point) *Table {
	cells := make(map[time.Time]map[string]float64)
	for label, points := range fetched {
		for _, p := range points {
			k := p.Date.Time()
			row, ok := cells[k]
			if !ok {
				row = make(map[string]float64, len(labels))
				cells[k] = row
			}
			if !p.Missing {
				row[label] = p.Value
			}
		}
	}

	keys := make([]time.Time, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	t := &Table{Labels: labels, Rows: make([]Row, 0, len(keys))}
	for _, k := range keys {
		t.Rows = append(t.Rows, Row{Date: dates.FromTime(k), Values: cells[k]})
	}
	return t
}
