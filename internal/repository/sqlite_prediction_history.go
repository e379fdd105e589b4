package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"FinScope/internal/domain/models"
	"FinScope/internal/domain/repository"
)

// SQLitePredictionHistory keeps predictions in a local SQLite file until they can be scored.
type SQLitePredictionHistory struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLitePredictionHistory opens (or creates) the database and runs migrations.
func NewSQLitePredictionHistory(path string) (*SQLitePredictionHistory, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	h := &SQLitePredictionHistory{db: db}
	if err := h.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return h, nil
}

func (h *SQLitePredictionHistory) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS predictions (
			id              TEXT PRIMARY KEY,
			symbol          TEXT NOT NULL,
			generated_at    INTEGER NOT NULL,
			due_at          INTEGER NOT NULL,
			horizon_days    INTEGER NOT NULL,
			recommendation  TEXT NOT NULL,
			action          TEXT NOT NULL,
			score           REAL,
			confidence      REAL,
			current_price   REAL NOT NULL,
			predicted_price REAL,
			actual_price    REAL,
			correct         INTEGER,
			evaluated_at    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_symbol_due ON predictions(symbol, due_at)`,
	}
	for _, s := range stmts {
		if _, err := h.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (h *SQLitePredictionHistory) Save(ctx context.Context, rec *models.PredictionRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.db.ExecContext(ctx, `INSERT OR REPLACE INTO predictions
		(id, symbol, generated_at, due_at, horizon_days, recommendation, action,
		 score, confidence, current_price, predicted_price)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.Symbol, rec.GeneratedAt.Unix(), rec.DueAt().Unix(), rec.HorizonDays,
		string(rec.Recommendation), string(rec.Action),
		rec.Score, rec.Confidence, rec.CurrentPrice, rec.PredictedPrice,
	)
	if err != nil {
		return fmt.Errorf("save prediction: %w", err)
	}
	return nil
}

// Pending returns unevaluated predictions whose horizon elapsed by asOf, oldest first.
func (h *SQLitePredictionHistory) Pending(ctx context.Context, symbol string, asOf time.Time) ([]*models.PredictionRecord, error) {
	return h.query(ctx, `WHERE symbol = ? AND evaluated_at IS NULL AND due_at <= ? ORDER BY generated_at ASC`,
		symbol, asOf.Unix())
}

func (h *SQLitePredictionHistory) MarkEvaluated(ctx context.Context, id string, actual float64, correct bool, at time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := 0
	if correct {
		c = 1
	}
	res, err := h.db.ExecContext(ctx,
		`UPDATE predictions SET actual_price = ?, correct = ?, evaluated_at = ? WHERE id = ?`,
		actual, c, at.Unix(), id)
	if err != nil {
		return fmt.Errorf("mark evaluated: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("prediction %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func (h *SQLitePredictionHistory) Evaluated(ctx context.Context, symbol string) ([]*models.PredictionRecord, error) {
	return h.query(ctx, `WHERE symbol = ? AND evaluated_at IS NOT NULL ORDER BY generated_at ASC`, symbol)
}

func (h *SQLitePredictionHistory) query(ctx context.Context, where string, args ...interface{}) ([]*models.PredictionRecord, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT id, symbol, generated_at, horizon_days, recommendation, action,
		score, confidence, current_price, predicted_price, actual_price, correct, evaluated_at
		FROM predictions `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var out []*models.PredictionRecord
	for rows.Next() {
		var (
			r           models.PredictionRecord
			generated   int64
			rec, action string
			predicted   sql.NullFloat64
			actual      sql.NullFloat64
			correct     sql.NullInt64
			evaluated   sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Symbol, &generated, &r.HorizonDays, &rec, &action,
			&r.Score, &r.Confidence, &r.CurrentPrice, &predicted, &actual, &correct, &evaluated); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		r.GeneratedAt = time.Unix(generated, 0).UTC()
		r.Recommendation = models.Recommendation(rec)
		r.Action = models.Action(action)
		r.PredictedPrice = predicted.Float64
		if actual.Valid {
			v := actual.Float64
			r.ActualPrice = &v
		}
		if correct.Valid {
			v := correct.Int64 == 1
			r.Correct = &v
		}
		if evaluated.Valid {
			v := time.Unix(evaluated.Int64, 0).UTC()
			r.EvaluatedAt = &v
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (h *SQLitePredictionHistory) Close() error {
	return h.db.Close()
}

var _ repository.PredictionHistory = (*SQLitePredictionHistory)(nil)
