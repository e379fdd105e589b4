package repository

import "fmt"

// ClickHouseSchema returns the idempotent DDL for every table the ClickHouse stores use.
func ClickHouseSchema(database string) []string {
	if database == "" {
		database = "finscope"
	}
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.price_bars (
            symbol   LowCardinality(String),
            interval LowCardinality(String),
            ts       DateTime64(3, 'UTC'),
            open     Float64,
            high     Float64,
            low      Float64,
            close    Float64,
            volume   Float64,
            ingested DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(ingested)
        ORDER BY (symbol, interval, ts)`, database),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.fundamentals (
            symbol              LowCardinality(String),
            report_date         Date,
            quarter             Nullable(UInt8),
            year                UInt16,
            revenue             Nullable(Float64),
            net_income          Nullable(Float64),
            eps                 Nullable(Float64),
            total_assets        Nullable(Float64),
            total_liabilities   Nullable(Float64),
            total_equity        Nullable(Float64),
            operating_cash_flow Nullable(Float64),
            shares_outstanding  Nullable(Float64),
            ingested            DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(ingested)
        ORDER BY (symbol, report_date, ifNull(quarter, 0))`, database),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.analysis_reports (
            id              String,
            symbol          LowCardinality(String),
            interval        LowCardinality(String),
            generated_at    DateTime64(3, 'UTC'),
            recommendation  LowCardinality(String),
            score           Float64,
            confidence      Float64,
            current_price   Float64,
            predicted_price Float64,
            sentiment       LowCardinality(String),
            degraded        UInt8,
            payload         String
        ) ENGINE = MergeTree
        ORDER BY (symbol, generated_at)`, database),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.backtest_results (
            id           String,
            symbol       LowCardinality(String),
            strategy     LowCardinality(String),
            from_ts      DateTime64(3, 'UTC'),
            to_ts        DateTime64(3, 'UTC'),
            bars         UInt32,
            trades       UInt32,
            total_return Float64,
            sharpe       Float64,
            max_drawdown Float64,
            payload      String,
            created_at   DateTime DEFAULT now()
        ) ENGINE = MergeTree
        ORDER BY (symbol, strategy, created_at)`, database),
	}
}
