package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func yahooChartJSON(timestamps []int64, price float64) string {
	ts := ""
	nums := ""
	for i, t := range timestamps {
		if i > 0 {
			ts += ","
			nums += ","
		}
		ts += fmt.Sprintf("%d", t)
		nums += fmt.Sprintf("%g", price+float64(i))
	}
	return fmt.Sprintf(`{"chart":{"result":[{"timestamp":[%s],"indicators":{"quote":[{"open":[%s],"high":[%s],"low":[%s],"close":[%s],"volume":[%s]}]}}],"error":null}}`,
		ts, nums, nums, nums, nums, nums)
}

func TestYahooFetchUsesChartPath(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Unix()
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.URL.Query().Get("range") != "1mo" || r.URL.Query().Get("interval") != "1d" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, yahooChartJSON([]int64{base, base + 86400, base + 2*86400}, 100))
	}))
	defer srv.Close()

	// Configured the way config.yaml ships it: host only, no API path.
	src := NewYahooSource(srv.URL, time.Second)
	bars, err := src.Fetch(context.Background(), "AAPL", "1mo", "1d")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if want := "/v8/finance/chart/AAPL"; gotPath != want {
		t.Fatalf("request path = %q, want %q", gotPath, want)
	}
	if len(bars) != 3 {
		t.Fatalf("got %d bars, want 3", len(bars))
	}
	if bars[0].Symbol != "AAPL" || bars[0].Source != "yahoo" {
		t.Fatalf("bar not tagged: %+v", bars[0])
	}
}

func TestYahooFetchAcceptsFullPathBaseURL(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Unix()
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, yahooChartJSON([]int64{base, base + 86400}, 50))
	}))
	defer srv.Close()

	src := NewYahooSource(srv.URL+"/v8/finance/chart", time.Second)
	if _, err := src.Fetch(context.Background(), "MSFT", "5d", "1d"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if want := "/v8/finance/chart/MSFT"; gotPath != want {
		t.Fatalf("request path = %q, want %q", gotPath, want)
	}
}

func TestAlphaVantageFetchUsesQueryPath(t *testing.T) {
	day := time.Now().UTC().AddDate(0, 0, -2).Format("2006-01-02")
	var gotPath, gotFunction string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFunction = r.URL.Query().Get("function")
		fmt.Fprintf(w, `{"Time Series (Daily)":{"%s":{"1. open":"10","2. high":"11","3. low":"9","4. close":"10.5","5. volume":"1000"}}}`, day)
	}))
	defer srv.Close()

	src := NewAlphaVantageSource(srv.URL, "demo-key", time.Second)
	bars, err := src.Fetch(context.Background(), "IBM", "1mo", "1d")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if want := "/query"; gotPath != want {
		t.Fatalf("request path = %q, want %q", gotPath, want)
	}
	if gotFunction != "TIME_SERIES_DAILY" {
		t.Fatalf("function = %q, want TIME_SERIES_DAILY", gotFunction)
	}
	if len(bars) != 1 || bars[0].Close != 10.5 {
		t.Fatalf("unexpected bars: %+v", bars)
	}
}

func TestAlphaVantageRequiresAPIKey(t *testing.T) {
	src := NewAlphaVantageSource("", "", time.Second)
	if _, err := src.Fetch(context.Background(), "IBM", "1mo", "1d"); err == nil {
		t.Fatal("expected error without api key")
	}
}
