package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"FinScope/internal/di"
	"FinScope/internal/domain/models"
	"FinScope/internal/repository"
	"FinScope/internal/services/backtest"
	"FinScope/internal/usecase"
	"FinScope/pkg/config"
	"FinScope/pkg/metrics"
)

type backtestOptions struct {
	bars       string
	interval   string
	strategies []string
	capital    float64
	commission float64
	slippage   float64
}

func newBacktestCmd(root *rootOptions) *cobra.Command {
	o := &backtestOptions{}
	cmd := &cobra.Command{
		Use:   "backtest <symbol>",
		Short: "Replay catalog strategies over a local bars file",
		Example: `  finscope backtest AAPL --bars aapl.csv
  finscope backtest AAPL --bars aapl.csv -s rsi_reversion,sma_crossover --capital 25000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.config()
			if err != nil {
				return err
			}
			symbol := strings.ToUpper(args[0])
			bars, err := repository.LoadBarsFile(o.bars)
			if err != nil {
				return err
			}
			data := repository.NewFileMarketData()
			data.AddBars(symbol, bars)

			catalog, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			uc := usecase.NewBacktestUseCase(data, catalog, nil, metrics.Nop{}, root.logger(), usecase.BacktestDefaults{
				InitialCapital:   cfg.Backtest.InitialCapital,
				CommissionRate:   cfg.Backtest.CommissionRate,
				CommissionFixed:  cfg.Backtest.CommissionFixed,
				SlippageRate:     cfg.Backtest.SlippageRate,
				PositionFraction: cfg.Backtest.PositionFraction,
				Workers:          cfg.Backtest.Workers,
				Indicators:       di.IndicatorOptions(cfg),
			})

			req := models.BacktestRequest{
				Symbol:         symbol,
				Interval:       o.interval,
				N:              len(bars),
				Strategies:     o.strategies,
				InitialCapital: o.capital,
			}
			if cmd.Flags().Changed("commission") {
				req.CommissionRate = &o.commission
			}
			if cmd.Flags().Changed("slippage") {
				req.SlippageRate = &o.slippage
			}
			outcomes, err := uc.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			if root.asJSON {
				return printJSON(cmd.OutOrStdout(), outcomes)
			}
			return printOutcomes(cmd.OutOrStdout(), outcomes)
		},
	}
	cmd.Flags().StringVar(&o.bars, "bars", "", "price bars file (.csv or .json)")
	cmd.Flags().StringVar(&o.interval, "interval", "1d", "bar interval of the file (1h, 1d, 1wk)")
	cmd.Flags().StringSliceVarP(&o.strategies, "strategies", "s", nil, "strategy names (all catalog strategies when empty)")
	cmd.Flags().Float64Var(&o.capital, "capital", 0, "initial capital (config default when 0)")
	cmd.Flags().Float64Var(&o.commission, "commission", 0, "commission rate per fill")
	cmd.Flags().Float64Var(&o.slippage, "slippage", 0, "slippage rate per fill")
	_ = cmd.MarkFlagRequired("bars")
	return cmd
}

func validateStrategy(def models.StrategyDefinition) error {
	_, err := backtest.FromDefinition(def)
	return err
}

// loadCatalog returns the built-in strategies plus the configured strategies file.
func loadCatalog(cfg *config.Config) (*repository.MemoryStrategyCatalog, error) {
	seed := backtest.Builtins()
	if cfg.Strategies.File != "" {
		defs, err := repository.LoadStrategiesFile(cfg.Strategies.File)
		if err != nil {
			return nil, err
		}
		seed = append(seed, defs...)
	}
	return repository.NewMemoryStrategyCatalog(validateStrategy, seed...)
}

func printOutcomes(out io.Writer, outcomes []usecase.BacktestOutcome) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STRATEGY\tRETURN %\tBUY&HOLD %\tTRADES\tWIN %\tMAX DD %\tSHARPE\tERROR")
	for _, o := range outcomes {
		if o.Result == nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\t-\t%s\n", o.Strategy, o.Error)
			continue
		}
		s := o.Result.Stats
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%d\t%.1f\t%.2f\t%.2f\t\n",
			o.Strategy, s.TotalReturn*100, s.BuyAndHold*100, s.TotalTrades, s.WinRate*100, s.MaxDrawdown*100, s.Sharpe)
	}
	return tw.Flush()
}
