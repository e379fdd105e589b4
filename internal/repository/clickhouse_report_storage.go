package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"FinScope/internal/domain/models"
	"FinScope/internal/domain/repository"
	pkgch "FinScope/pkg/clickhouse"
)

// ClickHouseStorage implements ReportStorage for ClickHouse.
// Full reports are kept as JSON payloads next to the columns used for filtering.
type ClickHouseStorage struct {
	client   *pkgch.Client
	db       *sql.DB
	database string
}

// NewClickHouseStorage creates ClickHouse storage.
func NewClickHouseStorage(client *pkgch.Client, database string) repository.ReportStorage {
	if database == "" {
		database = "finscope"
	}
	return &ClickHouseStorage{client: client, db: client.DB(), database: database}
}

func (s *ClickHouseStorage) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, ClickHouseSchema(s.database))
}

func (s *ClickHouseStorage) Store(ctx context.Context, r *models.AnalysisReport) error {
	return s.StoreBatch(ctx, []*models.AnalysisReport{r})
}

func (s *ClickHouseStorage) StoreBatch(ctx context.Context, reports []*models.AnalysisReport) error {
	if len(reports) == 0 {
		return nil
	}
	const chunkSize = 500
	for start := 0; start < len(reports); start += chunkSize {
		end := start + chunkSize
		if end > len(reports) {
			end = len(reports)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*12)
		for _, r := range reports[start:end] {
			if r == nil || r.Symbol == "" {
				continue
			}
			payload, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("marshal report %s: %w", r.ID, err)
			}
			var degraded uint8
			if r.Degraded {
				degraded = 1
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				r.ID,
				r.Symbol,
				r.Interval,
				r.GeneratedAt.UTC(),
				string(r.Recommendation.Recommendation),
				r.Recommendation.Overall.Score,
				r.Recommendation.Overall.Confidence,
				r.CurrentPrice,
				r.Prediction.PredictedPrice,
				string(r.Sentiment.Sentiment),
				degraded,
				string(payload),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf(`INSERT INTO %s.analysis_reports (id, symbol, interval, generated_at, recommendation, score,
            confidence, current_price, predicted_price, sentiment, degraded, payload) VALUES %s`,
			s.database, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert reports: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseStorage) StoreBacktest(ctx context.Context, r *models.BacktestResult) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal backtest: %w", err)
	}
	q := fmt.Sprintf(`INSERT INTO %s.backtest_results (id, symbol, strategy, from_ts, to_ts, bars, trades,
        total_return, sharpe, max_drawdown, payload) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.database)
	_, err = s.db.ExecContext(ctx, q,
		r.ID, r.Symbol, r.Strategy, r.From.UTC(), r.To.UTC(),
		uint32(r.Bars), uint32(len(r.Trades)),
		r.Stats.TotalReturn, r.Stats.Sharpe, r.Stats.MaxDrawdown,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert backtest: %w", err)
	}
	return nil
}

// Query returns the newest reports first.
func (s *ClickHouseStorage) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.AnalysisReport, error) {
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf(`SELECT payload FROM %s.analysis_reports
        WHERE symbol = ? AND generated_at >= ? AND generated_at <= ?
        ORDER BY generated_at DESC LIMIT ?`, s.database)
	rows, err := s.db.QueryContext(ctx, q, symbol, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var out []*models.AnalysisReport
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		var r models.AnalysisReport
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return nil // Managed by pkg
}
