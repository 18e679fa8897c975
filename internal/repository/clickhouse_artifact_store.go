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

// CHArtifactStore persists trained model artifacts in ClickHouse, one row per
// symbol/family/version. Rows are only ever appended; prior versions stay
// readable until pruned out of band.
type CHArtifactStore struct {
	client *pkgch.Client
	db     *sql.DB
	l      *applogger.Logger
}

func NewCHArtifactStore(ch *pkgch.Client, l *applogger.Logger) *CHArtifactStore {
	return &CHArtifactStore{client: ch, db: ch.DB(), l: l}
}

var _ domrepo.ArtifactStore = (*CHArtifactStore)(nil)

const artifactsTable = "model_artifacts"

func (s *CHArtifactStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, []string{
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol         LowCardinality(String),
            family         LowCardinality(String),
            version        UInt32,
            schema_version Int64,
            trained_at     DateTime,
            train_start    DateTime,
            train_end      DateTime,
            val_accuracy   Float64,
            weight         Float64,
            params         String
        ) ENGINE = MergeTree
        ORDER BY (symbol, version, family)
    `, artifactsTable),
	})
}

func (s *CHArtifactStore) SaveArtifacts(ctx context.Context, artifacts []models.ModelArtifact) error {
	if len(artifacts) == 0 {
		return nil
	}
	values := make([]string, 0, len(artifacts))
	args := make([]interface{}, 0, len(artifacts)*10)
	for _, a := range artifacts {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			a.Symbol, string(a.Family), uint32(a.Version), int64(a.SchemaVersion),
			a.TrainedAt, a.TrainStart, a.TrainEnd,
			a.ValAccuracy, a.Weight, string(a.Params))
	}
	q := fmt.Sprintf(
		"INSERT INTO %s (symbol, family, version, schema_version, trained_at, train_start, train_end, val_accuracy, weight, params) VALUES %s",
		artifactsTable, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.l.Error("clickhouse save_artifacts error",
			applogger.String("symbol", artifacts[0].Symbol),
			applogger.Int("rows", len(artifacts)),
			applogger.Error(err))
		return fmt.Errorf("save artifacts: %w", err)
	}
	return nil
}

func (s *CHArtifactStore) LatestArtifacts(ctx context.Context, symbol string) ([]models.ModelArtifact, error) {
	q := fmt.Sprintf(`
        SELECT symbol, family, version, schema_version, trained_at, train_start, train_end, val_accuracy, weight, params
        FROM %s
        WHERE symbol = ? AND version = (SELECT max(version) FROM %s WHERE symbol = ?)
        ORDER BY family ASC
    `, artifactsTable, artifactsTable)
	return s.queryArtifacts(ctx, q, symbol, symbol)
}

func (s *CHArtifactStore) ListArtifacts(ctx context.Context, symbol string, limit int) ([]models.ModelArtifact, error) {
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf(`
        SELECT symbol, family, version, schema_version, trained_at, train_start, train_end, val_accuracy, weight, params
        FROM %s
        WHERE symbol = ?
        ORDER BY version DESC, family ASC
        LIMIT ?
    `, artifactsTable)
	return s.queryArtifacts(ctx, q, symbol, limit)
}

func (s *CHArtifactStore) NextVersion(ctx context.Context, symbol string) (int, error) {
	var current uint64
	q := fmt.Sprintf("SELECT max(version) FROM %s WHERE symbol = ?", artifactsTable)
	err := s.db.QueryRowContext(ctx, q, symbol).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("next version: %w", err)
	}
	return int(current) + 1, nil
}

func (s *CHArtifactStore) Close() error {
	// The underlying connection pool is shared with the bar store and closed
	// once by the application lifecycle.
	return nil
}

func (s *CHArtifactStore) queryArtifacts(ctx context.Context, q string, args ...interface{}) ([]models.ModelArtifact, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var out []models.ModelArtifact
	for rows.Next() {
		var a models.ModelArtifact
		var family, params string
		var version uint32
		var schemaVersion int64
		var trainedAt, trainStart, trainEnd time.Time
		if err := rows.Scan(&a.Symbol, &family, &version, &schemaVersion,
			&trainedAt, &trainStart, &trainEnd, &a.ValAccuracy, &a.Weight, &params); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.Family = models.ModelFamily(family)
		a.Version = int(version)
		a.SchemaVersion = int(schemaVersion)
		a.TrainedAt = trainedAt
		a.TrainStart = trainStart
		a.TrainEnd = trainEnd
		a.Params = []byte(params)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
