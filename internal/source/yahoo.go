package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"MarketLab/internal/domain/models"
	xhttp "MarketLab/pkg/http"
)

const (
	yahooDefaultHost = "https://query1.finance.yahoo.com"
	yahooChartPath   = "/v8/finance/chart"
)

// YahooSource fetches bars from the Yahoo Finance chart API. It needs no API
// key and serves as the primary source in the default chain.
type YahooSource struct {
	baseURL string
	client  *xhttp.Client
}

// NewYahooSource builds a Yahoo source. baseURL is the API host; the adapter
// owns the chart path, so a configured URL may carry it or not.
func NewYahooSource(baseURL string, timeout time.Duration) *YahooSource {
	if baseURL == "" {
		baseURL = yahooDefaultHost
	}
	baseURL = strings.TrimSuffix(strings.TrimRight(baseURL, "/"), yahooChartPath)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &YahooSource{
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func (s *YahooSource) Name() string { return "yahoo" }

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (s *YahooSource) Fetch(ctx context.Context, symbol, period, interval string) ([]models.Bar, error) {
	var resp yahooChartResponse
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s%s/%s", s.baseURL, yahooChartPath, symbol),
		QueryParams: map[string][]string{
			"range":    {period},
			"interval": {interval},
		},
		Headers: map[string]string{
			"User-Agent": "MarketLab/1.0",
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart: %w", err)
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart: %s (%s)", resp.Chart.Error.Description, resp.Chart.Error.Code)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo chart: empty result for %s", symbol)
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	bars := make([]models.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Yahoo pads incomplete rows with nulls; skip them rather than
		// inventing values.
		if i >= len(quote.Open) || quote.Open[i] == nil || quote.High[i] == nil ||
			quote.Low[i] == nil || quote.Close[i] == nil {
			continue
		}
		var volume float64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}
		bars = append(bars, models.Bar{
			Symbol:    symbol,
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      *quote.Open[i],
			High:      *quote.High[i],
			Low:       *quote.Low[i],
			Close:     *quote.Close[i],
			Volume:    volume,
			Source:    s.Name(),
		})
	}

	if err := validateBars(s.Name(), bars); err != nil {
		return nil, err
	}
	return bars, nil
}

var _ Source = (*YahooSource)(nil)
