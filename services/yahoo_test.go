package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stock-analyzer/models"
)

// newTestYahooProvider points the provider at a test server and isolates
// its circuit breaker from other tests
func newTestYahooProvider(t *testing.T, serverURL string) *YahooProvider {
	t.Helper()
	p := NewYahooProvider()
	p.baseURL = serverURL
	p.breaker = "yahoo_test_" + t.Name()
	return p
}

func yahooChartJSON(timestamps []int64, closes []float64) string {
	ts := make([]string, len(timestamps))
	for i, v := range timestamps {
		ts[i] = fmt.Sprintf("%d", v)
	}
	cs := make([]string, len(closes))
	for i, v := range closes {
		cs[i] = fmt.Sprintf("%.2f", v)
	}

	series := strings.Join(cs, ",")
	return fmt.Sprintf(`{
		"chart": {
			"result": [{
				"meta": {"regularMarketPrice": 150.25, "chartPreviousClose": 148.0, "regularMarketVolume": 55000000},
				"timestamp": [%s],
				"indicators": {"quote": [{
					"open": [%s], "high": [%s], "low": [%s], "close": [%s],
					"volume": [%s]
				}]}
			}],
			"error": null
		}
	}`, strings.Join(ts, ","), series, series, series, series, strings.Repeat("1000000,", len(closes)-1)+"1000000")
}

func TestYahooFetchSeries_Success(t *testing.T) {
	base := time.Now().UTC().AddDate(0, 0, -3).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/v8/finance/chart/") {
			fmt.Fprint(w, yahooChartJSON([]int64{base, base + 86400, base + 2*86400}, []float64{148.0, 149.5, 150.25}))
			return
		}
		// quoteSummary
		fmt.Fprint(w, `{"quoteSummary": {"result": [{
			"summaryDetail": {"marketCap": {"raw": 2500000000000}, "trailingPE": {"raw": 28.5}},
			"assetProfile": {"sector": "Technology", "industry": "Consumer Electronics"}
		}], "error": null}}`)
	}))
	defer srv.Close()

	p := newTestYahooProvider(t, srv.URL)
	snapshot, err := p.FetchSeries(context.Background(), "AAPL", time.Now().AddDate(0, 0, -30), time.Now())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(snapshot.Historical) != 3 {
		t.Errorf("expected 3 price points, got %d", len(snapshot.Historical))
	}
	if got := snapshot.CurrentPrice.InexactFloat64(); got != 150.25 {
		t.Errorf("expected current price 150.25, got %v", got)
	}
	wantChange := (150.25 - 148.0) / 148.0 * 100
	if diff := snapshot.PriceChangePercent - wantChange; diff > 0.001 || diff < -0.001 {
		t.Errorf("expected change %.4f%%, got %.4f%%", wantChange, snapshot.PriceChangePercent)
	}
	if snapshot.Meta.Source != "yahoo" {
		t.Errorf("expected source yahoo, got %q", snapshot.Meta.Source)
	}
	if snapshot.Fundamentals["sector"] != "Technology" {
		t.Errorf("expected sector fundamental, got %v", snapshot.Fundamentals)
	}
}

func TestYahooFetchSeries_SkipsNullCloses(t *testing.T) {
	base := time.Now().UTC().AddDate(0, 0, -3).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/v8/finance/chart/") {
			fmt.Fprintf(w, `{
				"chart": {
					"result": [{
						"meta": {"regularMarketPrice": 150.25, "chartPreviousClose": 148.0, "regularMarketVolume": 1},
						"timestamp": [%d, %d, %d],
						"indicators": {"quote": [{
							"open": [148.0, null, 150.0], "high": [148.0, null, 150.0],
							"low": [148.0, null, 150.0], "close": [148.0, null, 150.25],
							"volume": [100, null, 200]
						}]}
					}],
					"error": null
				}
			}`, base, base+86400, base+2*86400)
			return
		}
		fmt.Fprint(w, `{"quoteSummary": {"result": [], "error": null}}`)
	}))
	defer srv.Close()

	p := newTestYahooProvider(t, srv.URL)
	snapshot, err := p.FetchSeries(context.Background(), "AAPL", time.Now().AddDate(0, 0, -30), time.Now())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(snapshot.Historical) != 2 {
		t.Errorf("expected null close to be skipped, got %d points", len(snapshot.Historical))
	}
}

func TestYahooFetchSeries_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := newTestYahooProvider(t, srv.URL)
	_, err := p.FetchSeries(context.Background(), "AAPL", time.Now().AddDate(0, 0, -30), time.Now())

	var rateErr *models.RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected RateLimitError, got: %v", err)
	}
	if rateErr.Provider != "yahoo" {
		t.Errorf("expected provider yahoo, got %q", rateErr.Provider)
	}
}

func TestYahooFetchSeries_SymbolNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found, symbol may be delisted"}}}`)
	}))
	defer srv.Close()

	p := newTestYahooProvider(t, srv.URL)
	_, err := p.FetchSeries(context.Background(), "FAKESYM", time.Now().AddDate(0, 0, -30), time.Now())

	var invalidErr *models.InvalidSymbolError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("expected InvalidSymbolError, got: %v", err)
	}
}

func TestYahooFetchSeries_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart": {"result": [], "error": null}}`)
	}))
	defer srv.Close()

	p := newTestYahooProvider(t, srv.URL)
	_, err := p.FetchSeries(context.Background(), "AAPL", time.Now().AddDate(0, 0, -30), time.Now())

	var invalidErr *models.InvalidSymbolError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("expected InvalidSymbolError, got: %v", err)
	}
}
