package repository

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"FinScope/internal/domain/models"
	"FinScope/internal/domain/repository"
	"FinScope/pkg/util"
)

// FileMarketData serves bars and fundamentals loaded from local files. It backs the
// offline CLI commands.
type FileMarketData struct {
	mu    sync.RWMutex
	bars  map[string][]models.PricePoint
	funds map[string][]models.FundamentalReport
}

func NewFileMarketData() *FileMarketData {
	return &FileMarketData{
		bars:  make(map[string][]models.PricePoint),
		funds: make(map[string][]models.FundamentalReport),
	}
}

// AddBars stores bars for symbol sorted by time.
func (f *FileMarketData) AddBars(symbol string, bars []models.PricePoint) {
	sorted := make([]models.PricePoint, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	f.mu.Lock()
	f.bars[strings.ToUpper(symbol)] = sorted
	f.mu.Unlock()
}

func (f *FileMarketData) AddFundamentals(symbol string, reports []models.FundamentalReport) {
	f.mu.Lock()
	f.funds[strings.ToUpper(symbol)] = reports
	f.mu.Unlock()
}

// GetPrices ignores the interval: a file holds a single resolution.
func (f *FileMarketData) GetPrices(_ context.Context, symbol string, from, to time.Time, _ repository.Interval) ([]models.PricePoint, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.PricePoint
	for _, b := range f.bars[strings.ToUpper(symbol)] {
		if !b.Timestamp.Before(from) && !b.Timestamp.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *FileMarketData) GetPriceHistory(_ context.Context, symbol string, _ repository.Interval, limit int) ([]models.PricePoint, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	bars := f.bars[strings.ToUpper(symbol)]
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	out := make([]models.PricePoint, len(bars))
	copy(out, bars)
	return out, nil
}

func (f *FileMarketData) GetFundamentals(_ context.Context, symbol string) ([]models.FundamentalReport, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.funds[strings.ToUpper(symbol)], nil
}

// LoadBarsFile reads bars from a .json array of price points or a .csv file with a
// date,open,high,low,close,volume header. Column order in the CSV follows the header.
func LoadBarsFile(path string) ([]models.PricePoint, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bars: %w", err)
	}
	defer fh.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var bars []models.PricePoint
		if err := json.NewDecoder(fh).Decode(&bars); err != nil {
			return nil, fmt.Errorf("parse bars %s: %w", path, err)
		}
		return bars, nil
	}
	return readBarsCSV(fh)
}

var barColumns = []string{"date", "open", "high", "low", "close", "volume"}

func readBarsCSV(r io.Reader) ([]models.PricePoint, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read bars header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := idx["date"]; !ok {
		if i, ok := idx["timestamp"]; ok {
			idx["date"] = i
		}
	}
	for _, c := range barColumns {
		if _, ok := idx[c]; !ok && c != "volume" {
			return nil, fmt.Errorf("bars csv: missing column %q", c)
		}
	}

	var bars []models.PricePoint
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("bars csv line %d: %w", line, err)
		}
		ts, ok := util.ParseTime(rec[idx["date"]])
		if !ok {
			return nil, fmt.Errorf("bars csv line %d: bad date %q", line, rec[idx["date"]])
		}
		b := models.PricePoint{Timestamp: ts}
		fields := []struct {
			col string
			dst *float64
		}{{"open", &b.Open}, {"high", &b.High}, {"low", &b.Low}, {"close", &b.Close}, {"volume", &b.Volume}}
		for _, fl := range fields {
			i, ok := idx[fl.col]
			if !ok {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("bars csv line %d: %s: %w", line, fl.col, err)
			}
			*fl.dst = v
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// LoadFundamentalsFile reads a JSON array of fundamental reports.
func LoadFundamentalsFile(path string) ([]models.FundamentalReport, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fundamentals: %w", err)
	}
	var reports []models.FundamentalReport
	if err := json.Unmarshal(b, &reports); err != nil {
		return nil, fmt.Errorf("parse fundamentals %s: %w", path, err)
	}
	return reports, nil
}

var (
	_ repository.PriceHistoryProvider = (*FileMarketData)(nil)
	_ repository.FundamentalsProvider = (*FileMarketData)(nil)
)
