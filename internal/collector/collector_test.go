package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"SignalHunter/internal/model"
)

func newTestCollector(f Fetcher) *Collector {
	c := NewCollector(f, "SOXL", 1, zap.NewNop().Sugar())
	c.RetryDelay = time.Millisecond
	return c
}

func TestCollector_RetriesThenSucceeds(t *testing.T) {
	f := &MockFetcher{Price: 30, FailTimes: 2}
	c := newTestCollector(f)

	a, err := c.Analyze(context.Background())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if f.Calls() != 3 {
		t.Errorf("expected 3 fetch attempts, got %d", f.Calls())
	}
	if len(a.Rows) != 252 || len(a.Signals) != 252 {
		t.Errorf("unexpected analysis size: %d rows", len(a.Rows))
	}
}

func TestCollector_DataUnavailable(t *testing.T) {
	f := &MockFetcher{Price: 30, FailTimes: 100}
	c := newTestCollector(f)
	c.Retries = 2

	_, err := c.Analyze(context.Background())
	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
	if f.Calls() != 3 {
		t.Errorf("expected 3 attempts, got %d", f.Calls())
	}
}

func TestCollector_CacheAndInvalidate(t *testing.T) {
	f := &MockFetcher{Price: 30}
	c := newTestCollector(f)
	ctx := context.Background()

	a1, _ := c.Analyze(ctx)
	a2, _ := c.Analyze(ctx)
	if f.Calls() != 1 || a1 != a2 {
		t.Fatalf("expected cached analysis, got %d fetches", f.Calls())
	}

	c.Invalidate()
	a3, err := c.Analyze(ctx)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if f.Calls() != 2 {
		t.Errorf("expected refetch after invalidate, got %d fetches", f.Calls())
	}
	if a3 != a1 {
		t.Error("an unchanged snapshot should reuse the computed analysis")
	}
}

func TestNormalize_DedupesAndSorts(t *testing.T) {
	d := func(day int, hour int) time.Time { return time.Date(2024, 1, day, hour, 0, 0, 0, time.UTC) }
	bars := []model.OHLCV{
		{Time: d(3, 14), Close: 3},
		{Time: d(1, 14), Close: 1},
		{Time: d(2, 14), Close: 2},
		{Time: d(2, 20), Close: 22},
	}
	got := normalize(bars)
	if len(got) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(got))
	}
	if got[0].Close != 1 || got[1].Close != 22 || got[2].Close != 3 {
		t.Errorf("unexpected order or dedupe: %+v", got)
	}
}

func TestYahooFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/SOXL") || r.URL.Query().Get("range") != "3y" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"chart":{"result":[{"timestamp":[1704292200,1704205800,1704378600],
			"indicators":{"quote":[{"open":[11,10,null],"high":[12,11,null],"low":[10,9,null],
			"close":[11.5,10.5,null],"volume":[2000,1000,null]}]}}],"error":null}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	bars, err := f.FetchDailyBars("SOXL", 3)
	if err != nil {
		t.Fatalf("FetchDailyBars: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected null bar skipped, got %d bars", len(bars))
	}
	if bars[0].Close != 10.5 || bars[1].Close != 11.5 || bars[1].Volume != 2000 {
		t.Errorf("bars not sorted chronologically: %+v", bars)
	}
}

func TestRESTFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("limit") != "504" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`[{"timestamp":1704378600,"open":1,"high":2,"low":1,"close":2,"volume":5},
			{"timestamp":1704292200,"open":1,"high":1,"low":1,"close":1,"volume":5}]`))
	}))
	defer srv.Close()

	bars, err := NewRESTFetcher(srv.URL, "key", "").FetchDailyBars("SOXL", 2)
	if err != nil {
		t.Fatalf("FetchDailyBars: %v", err)
	}
	if len(bars) != 2 || bars[0].Close != 1 {
		t.Errorf("unexpected bars: %+v", bars)
	}

	if _, err := NewRESTFetcher(srv.URL, "", "").FetchDailyBars("SOXL", 2); err == nil {
		t.Error("expected error on unauthorized response")
	}
}
