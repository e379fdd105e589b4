package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"FinScope/pkg/config"
	applogger "FinScope/pkg/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
	asJSON     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "finscope",
		Short: "Stock analysis engine: indicators, fundamentals, recommendations and backtests",
		Long: `finscope scores a stock from its price history, fundamental reports, news
sentiment and the macro backdrop, predicts a price range for a horizon and replays
rule based strategies over history.

The analyze, backtest and strategies commands run offline from local files.
serve starts the HTTP API with the configured providers and sinks.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (defaults apply when empty)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level for offline commands")
	cmd.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print results as JSON")

	cmd.AddCommand(
		newAnalyzeCmd(opts),
		newBacktestCmd(opts),
		newStrategiesCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (o *rootOptions) config() (*config.Config, error) {
	if o.configPath == "" {
		return config.Default(), nil
	}
	return config.LoadWithEnv(o.configPath)
}

func (o *rootOptions) logger() *applogger.Logger {
	lgr, err := applogger.New(&applogger.Config{Level: o.logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		return applogger.Nop()
	}
	return lgr
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
