package source

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	domrepo "MarketLab/internal/domain/repository"
	"MarketLab/internal/domain/models"
	xhttp "MarketLab/pkg/http"
)

const (
	alphaVantageDefaultHost = "https://www.alphavantage.co"
	alphaVantageQueryPath   = "/query"
)

// AlphaVantageSource fetches bars from the Alpha Vantage REST API. It is the
// default fallback when Yahoo fails; requires an API key.
type AlphaVantageSource struct {
	baseURL string
	apiKey  string
	client  *xhttp.Client
}

// NewAlphaVantageSource builds an Alpha Vantage source. baseURL is the API
// host; the adapter owns the /query path, so a configured URL may carry it
// or not.
func NewAlphaVantageSource(baseURL, apiKey string, timeout time.Duration) *AlphaVantageSource {
	if baseURL == "" {
		baseURL = alphaVantageDefaultHost
	}
	baseURL = strings.TrimSuffix(strings.TrimRight(baseURL, "/"), alphaVantageQueryPath)
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AlphaVantageSource{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func (s *AlphaVantageSource) Name() string { return "alphavantage" }

type alphaVantageRow struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

type alphaVantageResponse struct {
	ErrorMessage string                     `json:"Error Message"`
	Note         string                     `json:"Note"` // rate-limit notice
	Daily        map[string]alphaVantageRow `json:"Time Series (Daily)"`
	Hourly       map[string]alphaVantageRow `json:"Time Series (60min)"`
	Weekly       map[string]alphaVantageRow `json:"Weekly Time Series"`
}

func (s *AlphaVantageSource) Fetch(ctx context.Context, symbol, period, interval string) ([]models.Bar, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("alphavantage: api key not configured")
	}

	params := map[string][]string{
		"symbol":     {symbol},
		"apikey":     {s.apiKey},
		"outputsize": {"full"},
	}
	switch interval {
	case "1h":
		params["function"] = []string{"TIME_SERIES_INTRADAY"}
		params["interval"] = []string{"60min"}
	case "1wk":
		params["function"] = []string{"TIME_SERIES_WEEKLY"}
	default:
		params["function"] = []string{"TIME_SERIES_DAILY"}
	}

	var resp alphaVantageResponse
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         s.baseURL + alphaVantageQueryPath,
		QueryParams: params,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("alphavantage: %w", err)
	}

	if resp.ErrorMessage != "" {
		return nil, fmt.Errorf("alphavantage: %s", resp.ErrorMessage)
	}
	if resp.Note != "" {
		return nil, fmt.Errorf("alphavantage: rate limited: %s", resp.Note)
	}

	series := resp.Daily
	layout := "2006-01-02"
	switch interval {
	case "1h":
		series = resp.Hourly
		layout = "2006-01-02 15:04:05"
	case "1wk":
		series = resp.Weekly
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("alphavantage: empty series for %s", symbol)
	}

	cutoff := time.Now().UTC().Add(-domrepo.PeriodDuration(period))

	bars := make([]models.Bar, 0, len(series))
	for date, row := range series {
		ts, err := time.Parse(layout, date)
		if err != nil {
			return nil, fmt.Errorf("alphavantage: bad timestamp %q: %w", date, err)
		}
		ts = ts.UTC()
		if ts.Before(cutoff) {
			continue
		}
		bar, err := parseAlphaVantageRow(symbol, ts, row)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })

	if err := validateBars(s.Name(), bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func parseAlphaVantageRow(symbol string, ts time.Time, row alphaVantageRow) (models.Bar, error) {
	open, err1 := strconv.ParseFloat(row.Open, 64)
	high, err2 := strconv.ParseFloat(row.High, 64)
	low, err3 := strconv.ParseFloat(row.Low, 64)
	clos, err4 := strconv.ParseFloat(row.Close, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return models.Bar{}, fmt.Errorf("alphavantage: malformed row at %s", ts.Format(time.RFC3339))
	}
	volume, _ := strconv.ParseFloat(row.Volume, 64)

	return models.Bar{
		Symbol:    symbol,
		Timestamp: ts,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     clos,
		Volume:    volume,
		Source:    "alphavantage",
	}, nil
}

var _ Source = (*AlphaVantageSource)(nil)
