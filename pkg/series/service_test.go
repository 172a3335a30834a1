package series

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/bacendata/sgs-client/internal/testutil"
	"github.com/bacendata/sgs-client/pkg/apierr"
	"github.com/bacendata/sgs-client/pkg/cache"
	"github.com/bacendata/sgs-client/pkg/catalog"
	"github.com/bacendata/sgs-client/pkg/client"
	"github.com/bacendata/sgs-client/pkg/dates"
)

func newTestService(t *testing.T, mock *testutil.MockSGS, cacheMgr *cache.Manager) *Service {
	t.Helper()
	c := client.New(client.Config{
		BaseURL:     mock.URL(),
		Timeout:     5 * time.Second,
		MaxAttempts: 3,
		Backoff:     []time.Duration{time.Millisecond, 2 * time.Millisecond, 5 * time.Millisecond},
	})
	return NewService(c, cacheMgr, nil, Config{})
}

// newSerialService builds a service whose gate admits one request at a
// time, so upstream requests are strictly ordered in tests.
func newSerialService(t *testing.T, mock *testutil.MockSGS) *Service {
	t.Helper()
	c := client.New(client.Config{
		BaseURL:     mock.URL(),
		Timeout:     5 * time.Second,
		MaxAttempts: 3,
		Backoff:     []time.Duration{time.Millisecond, 2 * time.Millisecond, 5 * time.Millisecond},
	})
	return NewService(c, nil, nil, Config{MaxConcurrent: 1})
}

func sqliteManager(t *testing.T) *cache.Manager {
	t.Helper()
	store, err := cache.OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	m := cache.NewManager(nil)
	m.Activate(store)
	return m
}

func TestOptionsFrom(t *testing.T) {
	opts, err := OptionsFrom("2024-01-01", time.Date(2024, time.December, 31, 15, 30, 0, 0, time.UTC), 0)
	if err != nil {
		t.Fatalf("OptionsFrom failed: %v", err)
	}
	if !opts.Start.Equal(dates.New(2024, time.January, 1)) {
		t.Errorf("Start = %s", opts.Start)
	}
	if !opts.End.Equal(dates.New(2024, time.December, 31)) {
		t.Errorf("End = %s", opts.End)
	}

	opts, err = OptionsFrom(nil, nil, 4)
	if err != nil {
		t.Fatalf("OptionsFrom failed: %v", err)
	}
	if opts.Last != 4 || !opts.Start.IsZero() || !opts.End.IsZero() {
		t.Errorf("Unexpected options: %+v", opts)
	}

	if _, err := OptionsFrom("01-2024", nil, 0); !apierr.IsInvalidParams(err) {
		t.Errorf("Expected InvalidParamsError for a bad date string, got %v", err)
	}
	if _, err := OptionsFrom(433, nil, 0); !apierr.IsInvalidParams(err) {
		t.Errorf("Expected InvalidParamsError for an unsupported type, got %v", err)
	}
	if _, err := OptionsFrom("2024-01-01", nil, 4); !apierr.IsInvalidParams(err) {
		t.Errorf("Expected InvalidParamsError for last with a boundary, got %v", err)
	}
}

func TestFetchByName(t *testing.T) {
	mock := testutil.NewMockSGS()
	defer mock.Close()
	mock.SetResponse(testutil.RangePath(11), testutil.OKResponse(testutil.Observations(
		[2]string{"02/01/2024", "0.043739"},
		[2]string{"03/01/2024", "0.043739"},
	)))

	svc := newTestService(t, mock, nil)
	points, err := svc.Fetch(context.Background(), catalog.ByName("selic"), Options{
		Start: dates.New(2024, time.January, 1),
		End:   dates.New(2024, time.January, 31),
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("Expected 2 points, got %d", len(points))
	}
	if !points[0].Date.Equal(dates.New(2024, time.January, 2)) {
		t.Errorf("Unexpected first date: %s", points[0].Date)
	}
	if mock.RequestCountFor(testutil.RangePath(11)) != 1 {
		t.Errorf("Expected a single upstream request, got %d", mock.RequestCountFor(testutil.RangePath(11)))
	}
}

func TestFetchUnknownNameFails(t *testing.T) {
	mock := testutil.NewMockSGS()
	defer mock.Close()

	svc := newTestService(t, mock, nil)
	_, err := svc.Fetch(context.Background(), catalog.ByName("nao-existe"), Options{})
	if !apierr.IsNotFound(err) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
	if mock.RequestCount() != 0 {
		t.Errorf("Resolution failure should not reach the upstream, saw %d requests", mock.RequestCount())
	}
}

func TestFetchPartitionsWideRange(t *testing.T) {
	mock := testutil.NewMockSGS()
	defer mock.Close()

	// 2000..2024 splits into three windows. Each window answers with one
	// point; the middle and last windows share a boundary-adjacent date
	// to prove chunk-order merging.
	mock.SetHandler(testutil.RangePath(433), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		switch r.URL.Query().Get("dataInicial") {
		case "01/01/2000":
			fmt.Fprint(w, testutil.Observations([2]string{"15/06/2005", "0.61"}))
		case "01/01/2010":
			fmt.Fprint(w, testutil.Observations(
				[2]string{"15/06/2015", "0.79"},
				[2]string{"01/01/2020", "0.10"},
			))
		case "01/01/2020":
			fmt.Fprint(w, testutil.Observations([2]string{"01/01/2020", "0.12"}))
		default:
			http.Error(w, "unexpected window", http.StatusBadRequest)
		}
	})

	svc := newTestService(t, mock, nil)
	points, err := svc.Fetch(context.Background(), catalog.ByCode(433), Options{
		Start: dates.New(2000, time.January, 1),
		End:   dates.New(2024, time.December, 31),
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if got := mock.RequestCountFor(testutil.RangePath(433)); got != 3 {
		t.Fatalf("Expected 3 windowed requests, got %d", got)
	}
	if len(points) != 3 {
		t.Fatalf("Expected 3 merged points, got %d", len(points))
	}
	// The duplicate date resolves to the later chunk's value.
	last := points[len(points)-1]
	if !last.Date.Equal(dates.New(2020, time.January, 1)) || last.Value != 0.12 {
		t.Errorf("Boundary duplicate not resolved to later chunk: %s=%v", last.Date, last.Value)
	}
	for i := 1; i < len(points); i++ {
		if !points[i-1].Date.Before(points[i].Date) {
			t.Errorf("Points out of order at %d: %s >= %s", i, points[i-1].Date, points[i].Date)
		}
	}
}

func TestFetchDefaultRange(t *testing.T) {
	mock := testutil.NewMockSGS()
	defer mock.Close()
	mock.SetResponse(testutil.RangePath(433), testutil.OKResponse("[]"))

	svc := newTestService(t, mock, nil)
	if _, err := svc.Fetch(context.Background(), catalog.ByCode(433), Options{}); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	q, err := url.ParseQuery(mock.LastRawQuery())
	if err != nil {
		t.Fatalf("Failed to parse query: %v", err)
	}
	end := dates.Today()
	start := dates.New(end.Year()-9, end.Month(), end.Day())
	if got := q.Get("dataFinal"); got != end.BCB() {
		t.Errorf("Expected default end %s, got %s", end.BCB(), got)
	}
	if got := q.Get("dataInicial"); got != start.BCB() {
		t.Errorf("Expected default start %s, got %s", start.BCB(), got)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("Default range should fit one window, saw %d requests", mock.RequestCount())
	}
}

func TestFetchInvertedRangeFails(t *testing.T) {
	mock := testutil.NewMockSGS()
	defer mock.Close()

	svc := newTestService(t, mock, nil)
	_, err := svc.Fetch(context.Background(), catalog.ByCode(433), Options{
		Start: dates.New(2024, time.June, 1),
		End:   dates.New(2024, time.January, 1),
	})
	if !apierr.IsInvalidParams(err) {
		t.Fatalf("Expected InvalidParamsError, got %v", err)
	}
	if mock.RequestCount() != 0 {
		t.Errorf("Invalid range should not reach the upstream, saw %d requests", mock.RequestCount())
	}
}

func TestFetchTerminalErrorSurfaces(t *testing.T) {
	mock := testutil.NewMockSGS()
	defer mock.Close()
	// No handler bound: the mock answers 404.

	svc := newTestService(t, mock, nil)
	_, err := svc.Fetch(context.Background(), catalog.ByCode(99999), Options{
		Start: dates.New(2024, time.January, 1),
		End:   dates.New(2024, time.January, 31),
	})
	if !apierr.IsNotFound(err) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}

func TestFetchAbortSkipsQueuedChunks(t *testing.T) {
	mock := testutil.NewMockSGS()
	defer mock.Close()
	// No handler bound: every request answers 404. With a single-slot
	// gate the windows serialize, so the first 404 must stop the two
	// windows still waiting for the slot before they reach the mock.

	svc := newSerialService(t, mock)
	_, err := svc.Fetch(context.Background(), catalog.ByCode(433), Options{
		Start: dates.New(2000, time.January, 1),
		End:   dates.New(2024, time.December, 31),
	})
	if !apierr.IsNotFound(err) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
	if got := mock.RequestCountFor(testutil.RangePath(433)); got != 1 {
		t.Errorf("Expected only the failing request to reach the upstream, got %d", got)
	}
}

func TestFetchLastN(t *testing.T) {
	mock := testutil.NewMockSGS()
	defer mock.Close()
	mock.SetResponse(testutil.LastPath(433, 5), testutil.OKResponse(testutil.Observations(
		[2]string{"01/03/2024", "0.83"},
		[2]string{"01/04/2024", "0.38"},
	)))

	svc := newTestService(t, mock, nil)
	points, err := svc.Fetch(context.Background(), catalog.ByCode(433), Options{Last: 5})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("Expected 2 points, got %d", len(points))
	}
	if mock.RequestCountFor(testutil.LastPath(433, 5)) != 1 {
		t.Errorf("Expected the last-N endpoint to be used")
	}
}

func TestFetchLastRejectsDateRange(t *testing.T) {
	mock := testutil.NewMockSGS()
	defer mock.Close()

	svc := newTestService(t, mock, nil)
	_, err := svc.Fetch(context.Background(), catalog.ByCode(433), Options{
		Last:  5,
		Start: dates.New(2024, time.January, 1),
	})
	if !apierr.IsInvalidParams(err) {
		t.Fatalf("Expected InvalidParamsError, got %v", err)
	}
}

func TestFetchUsesCacheOnSecondCall(t *testing.T) {
	mock := testutil.NewMockSGS()
	defer mock.Close()
	mock.SetResponse(testutil.RangePath(11), testutil.OKResponse(testutil.Observations(
		[2]string{"02/01/2024", "0.043739"},
	)))

	svc := newTestService(t, mock, sqliteManager(t))
	defer svc.Cache().Deactivate()

	opts := Options{
		Start: dates.New(2024, time.January, 1),
		End:   dates.New(2024, time.January, 31),
	}
	first, err := svc.Fetch(context.Background(), catalog.ByCode(11), opts)
	if err != nil {
		t.Fatalf("First fetch failed: %v", err)
	}
	second, err := svc.Fetch(context.Background(), catalog.ByCode(11), opts)
	if err != nil {
		t.Fatalf("Second fetch failed: %v", err)
	}

	if got := mock.RequestCountFor(testutil.RangePath(11)); got != 1 {
		t.Errorf("Second fetch should be served from cache, saw %d upstream requests", got)
	}
	if len(first) != len(second) || !first[0].Date.Equal(second[0].Date) || first[0].Value != second[0].Value {
		t.Errorf("Cached fetch differs from upstream fetch: %v vs %v", first, second)
	}
}

func TestFetchLastNBypassesCache(t *testing.T) {
	mock := testutil.NewMockSGS()
	defer mock.Close()
	mock.SetResponse(testutil.LastPath(11, 1), testutil.OKResponse(testutil.Observations(
		[2]string{"02/01/2024", "0.043739"},
	)))

	svc := newTestService(t, mock, sqliteManager(t))
	defer svc.Cache().Deactivate()

	for i := 0; i < 2; i++ {
		if _, err := svc.Fetch(context.Background(), catalog.ByCode(11), Options{Last: 1}); err != nil {
			t.Fatalf("Fetch %d failed: %v", i, err)
		}
	}
	if got := mock.RequestCountFor(testutil.LastPath(11, 1)); got != 2 {
		t.Errorf("Last-N fetches must not be cached, saw %d upstream requests", got)
	}
}

func TestFetchRetriesTransientThenSucceeds(t *testing.T) {
	mock := testutil.NewMockSGS()
	defer mock.Close()
	mock.SetSequence(testutil.RangePath(11),
		testutil.ServerErrorResponse(),
		testutil.OKResponse(testutil.Observations([2]string{"02/01/2024", "0.04"})),
	)

	svc := newTestService(t, mock, nil)
	points, err := svc.Fetch(context.Background(), catalog.ByCode(11), Options{
		Start: dates.New(2024, time.January, 1),
		End:   dates.New(2024, time.January, 31),
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("Expected 1 point, got %d", len(points))
	}
	if got := mock.RequestCountFor(testutil.RangePath(11)); got != 2 {
		t.Errorf("Expected 2 attempts, got %d", got)
	}
}
