package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	pkgch "FinScope/pkg/clickhouse"
	applogger "FinScope/pkg/logger"
)

// CHPriceStore serves bars and fundamentals from ClickHouse and stores ingested ones.
type CHPriceStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHPriceStore(ch *pkgch.Client, database string) *CHPriceStore {
	if database == "" {
		database = "finscope"
	}
	return &CHPriceStore{db: ch.DB(), database: database}
}

// SetLogger injects a structured logger.
func (s *CHPriceStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHPriceStore) GetPrices(ctx context.Context, symbol string, from, to time.Time, iv domrepo.Interval) ([]models.PricePoint, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT ts, open, high, low, close, volume
        FROM %s.price_bars FINAL
        WHERE symbol = ? AND interval = ? AND ts >= ? AND ts <= ?
        ORDER BY ts ASC`, s.database)
	out, err := s.scanBars(ctx, q, symbol, string(iv), from, to)
	if err != nil {
		s.logErr("clickhouse get_prices error", symbol, iv, err)
		return nil, fmt.Errorf("get prices: %w", err)
	}
	s.logOK("clickhouse get_prices ok", symbol, iv, len(out), start)
	return out, nil
}

func (s *CHPriceStore) GetPriceHistory(ctx context.Context, symbol string, iv domrepo.Interval, limit int) ([]models.PricePoint, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT ts, open, high, low, close, volume
        FROM %s.price_bars FINAL
        WHERE symbol = ? AND interval = ?
        ORDER BY ts DESC
        LIMIT ?`, s.database)
	out, err := s.scanBars(ctx, q, symbol, string(iv), limit)
	if err != nil {
		s.logErr("clickhouse price_history error", symbol, iv, err)
		return nil, fmt.Errorf("get price history: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	s.logOK("clickhouse price_history ok", symbol, iv, len(out), start)
	return out, nil
}

func (s *CHPriceStore) scanBars(ctx context.Context, q string, args ...interface{}) ([]models.PricePoint, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.PricePoint, 0, 512)
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Timestamp, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		p.Timestamp = p.Timestamp.UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *CHPriceStore) GetFundamentals(ctx context.Context, symbol string) ([]models.FundamentalReport, error) {
	q := fmt.Sprintf(`
        SELECT report_date, quarter, year, revenue, net_income, eps, total_assets,
               total_liabilities, total_equity, operating_cash_flow, shares_outstanding
        FROM %s.fundamentals FINAL
        WHERE symbol = ?
        ORDER BY report_date DESC`, s.database)
	rows, err := s.db.QueryContext(ctx, q, symbol)
	if err != nil {
		s.logErr("clickhouse get_fundamentals error", symbol, "", err)
		return nil, fmt.Errorf("get fundamentals: %w", err)
	}
	defer rows.Close()

	var out []models.FundamentalReport
	for rows.Next() {
		var (
			r       models.FundamentalReport
			quarter sql.NullInt32
			year    uint16
			vals    [8]sql.NullFloat64
		)
		if err := rows.Scan(&r.ReportDate, &quarter, &year,
			&vals[0], &vals[1], &vals[2], &vals[3], &vals[4], &vals[5], &vals[6], &vals[7]); err != nil {
			return nil, fmt.Errorf("scan fundamentals: %w", err)
		}
		r.Symbol = symbol
		r.Year = int(year)
		if quarter.Valid {
			q := int(quarter.Int32)
			r.Quarter = &q
		}
		dst := []**float64{&r.Revenue, &r.NetIncome, &r.EPS, &r.TotalAssets,
			&r.TotalLiabilities, &r.TotalEquity, &r.OperatingCashFlow, &r.SharesOutstanding}
		for i, v := range vals {
			if v.Valid {
				f := v.Float64
				*dst[i] = &f
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// StoreBars inserts bars in chunks; ReplacingMergeTree collapses re-ingested rows.
func (s *CHPriceStore) StoreBars(ctx context.Context, symbol string, iv domrepo.Interval, bars []models.PricePoint) error {
	const chunkSize = 2000
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, b := range bars[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, symbol, string(iv), b.Timestamp.UTC(), b.Open, b.High, b.Low, b.Close, b.Volume)
		}
		q := fmt.Sprintf("INSERT INTO %s.price_bars (symbol, interval, ts, open, high, low, close, volume) VALUES %s",
			s.database, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.logErr("clickhouse store_bars error", symbol, iv, err)
			return fmt.Errorf("store bars: %w", err)
		}
	}
	return nil
}

func (s *CHPriceStore) StoreFundamentals(ctx context.Context, reports []models.FundamentalReport) error {
	if len(reports) == 0 {
		return nil
	}
	values := make([]string, 0, len(reports))
	args := make([]interface{}, 0, len(reports)*11)
	for _, r := range reports {
		var quarter interface{}
		if r.Quarter != nil {
			quarter = uint8(*r.Quarter)
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, r.Symbol, r.ReportDate, quarter, uint16(r.Year),
			r.Revenue, r.NetIncome, r.EPS, r.TotalAssets, r.TotalLiabilities,
			r.TotalEquity, r.OperatingCashFlow, r.SharesOutstanding)
	}
	q := fmt.Sprintf(`INSERT INTO %s.fundamentals (symbol, report_date, quarter, year, revenue, net_income, eps,
        total_assets, total_liabilities, total_equity, operating_cash_flow, shares_outstanding) VALUES %s`,
		s.database, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store fundamentals: %w", err)
	}
	return nil
}

func (s *CHPriceStore) logErr(msg, symbol string, iv domrepo.Interval, err error) {
	if s.l != nil {
		s.l.Error(msg,
			applogger.String("symbol", symbol),
			applogger.String("interval", string(iv)),
			applogger.Error(err),
		)
	}
}

func (s *CHPriceStore) logOK(msg, symbol string, iv domrepo.Interval, rows int, start time.Time) {
	if s.l != nil {
		s.l.Debug(msg,
			applogger.String("symbol", symbol),
			applogger.String("interval", string(iv)),
			applogger.Int("rows", rows),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
}

var (
	_ domrepo.PriceHistoryProvider = (*CHPriceStore)(nil)
	_ domrepo.FundamentalsProvider = (*CHPriceStore)(nil)
	_ domrepo.PriceWriter          = (*CHPriceStore)(nil)
)
