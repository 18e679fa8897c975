package histcache

import (
	"context"
	"sort"
	"sync"
	"time"

	"MarketLab/internal/domain/models"
	xlogger "MarketLab/pkg/logger"
)

// BatchDownload fetches history for each symbol through the same per-symbol
// logic as Get, on a bounded worker pool. One symbol's failure never aborts
// the batch; failures are collected and returned alongside successes.
func (c *Cache) BatchDownload(ctx context.Context, symbols []string, period, interval string, workers int, timeout time.Duration) *models.BatchResult {
	if workers <= 0 {
		workers = 4
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		symbol string
		err    error
	}

	jobs := make(chan string)
	results := make(chan outcome, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				_, err := c.Get(ctx, symbol, period, interval)
				results <- outcome{symbol: symbol, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, symbol := range symbols {
			select {
			case jobs <- symbol:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	res := &models.BatchResult{
		Succeeded: []string{},
		Failed:    []models.BatchFailure{},
	}
	done := 0
	for out := range results {
		done++
		if out.err != nil {
			res.Failed = append(res.Failed, models.BatchFailure{Symbol: out.symbol, Reason: out.err.Error()})
		} else {
			res.Succeeded = append(res.Succeeded, out.symbol)
		}
	}
	// Symbols never attempted because the deadline hit count as failures too.
	if done < len(symbols) {
		attempted := make(map[string]struct{}, done)
		for _, s := range res.Succeeded {
			attempted[s] = struct{}{}
		}
		for _, f := range res.Failed {
			attempted[f.Symbol] = struct{}{}
		}
		for _, s := range symbols {
			if _, ok := attempted[s]; !ok {
				res.Failed = append(res.Failed, models.BatchFailure{Symbol: s, Reason: context.DeadlineExceeded.Error()})
			}
		}
	}

	sort.Strings(res.Succeeded)
	sort.Slice(res.Failed, func(i, j int) bool { return res.Failed[i].Symbol < res.Failed[j].Symbol })

	c.logger.Info("batch download finished",
		xlogger.Int("succeeded", len(res.Succeeded)),
		xlogger.Int("failed", len(res.Failed)),
	)
	return res
}
