package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"MarketLab/internal/domain/models"
	domrepo "MarketLab/internal/domain/repository"
	pkgch "MarketLab/pkg/clickhouse"
	applogger "MarketLab/pkg/logger"
)

// CHBarStore implements BarStore backed by ClickHouse. The table uses
// ReplacingMergeTree keyed on (symbol, interval, ts) so re-storing an
// overlapping range deduplicates instead of truncating coverage.
type CHBarStore struct {
	client *pkgch.Client
	db     *sql.DB
	l      *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client, l *applogger.Logger) *CHBarStore {
	return &CHBarStore{client: ch, db: ch.DB(), l: l}
}

var _ domrepo.BarStore = (*CHBarStore)(nil)

const barsTable = "market_bars"

func (s *CHBarStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, []string{
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol   LowCardinality(String),
            interval LowCardinality(String),
            ts       DateTime,
            open     Float64,
            high     Float64,
            low      Float64,
            close    Float64,
            volume   Float64,
            source   LowCardinality(String),
            stored_at DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(stored_at)
        ORDER BY (symbol, interval, ts)
    `, barsTable),
	})
}

func (s *CHBarStore) StoreBars(ctx context.Context, bars []models.Bar, interval string) error {
	if len(bars) == 0 {
		return nil
	}
	// Chunked multi-row VALUES to keep round-trips low on large backfills.
	const chunkSize = 2000
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}
		chunk := bars[start:end]
		values := make([]string, 0, len(chunk))
		args := make([]interface{}, 0, len(chunk)*9)
		for _, b := range chunk {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, b.Symbol, interval, b.Timestamp, b.Open, b.High, b.Low, b.Close, b.Volume, b.Source)
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, interval, ts, open, high, low, close, volume, source) VALUES %s",
			barsTable, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse store_bars error",
				applogger.String("symbol", chunk[0].Symbol),
				applogger.Int("rows", len(chunk)),
				applogger.Error(err))
			return fmt.Errorf("store bars: %w", err)
		}
	}
	return nil
}

func (s *CHBarStore) QueryBars(ctx context.Context, symbol, interval string, limit int) ([]models.Bar, error) {
	if limit <= 0 {
		limit = 10000
	}
	q := fmt.Sprintf(`
        SELECT symbol, ts, open, high, low, close, volume, source
        FROM %s FINAL
        WHERE symbol = ? AND interval = ?
        ORDER BY ts DESC
        LIMIT ?
    `, barsTable)
	rows, err := s.db.QueryContext(ctx, q, symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var out []models.Bar
	for rows.Next() {
		var b models.Bar
		var ts time.Time
		if err := rows.Scan(&b.Symbol, &ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Source); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Timestamp = ts
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// Query is newest-first for the LIMIT; callers expect chronological.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *CHBarStore) CountBars(ctx context.Context) (int, error) {
	var count uint64
	q := fmt.Sprintf("SELECT count() FROM %s FINAL", barsTable)
	if err := s.db.QueryRowContext(ctx, q).Scan(&count); err != nil {
		return 0, fmt.Errorf("count bars: %w", err)
	}
	return int(count), nil
}

func (s *CHBarStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *CHBarStore) Close() error {
	return s.client.Close()
}
