package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"FinScope/internal/di"
	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	"FinScope/internal/repository"
	"FinScope/internal/services/prediction"
	"FinScope/internal/services/recommendation"
	"FinScope/internal/services/sentiment"
	"FinScope/internal/usecase"
	"FinScope/pkg/config"
	"FinScope/pkg/metrics"
)

type analyzeOptions struct {
	bars          string
	fundamentals  string
	benchmarkBars string
	interval      string
	timeFrame     string
	trend         string
	macro         float64
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	o := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze <symbol>",
		Short: "Analyze a symbol from local bar and fundamentals files",
		Example: `  finscope analyze AAPL --bars aapl.csv --fundamentals aapl_funds.json
  finscope analyze AAPL --bars aapl.csv --trend bullish --macro 0.6 --time-frame 3m --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.config()
			if err != nil {
				return err
			}
			uc, err := o.useCase(cmd.Context(), cfg, root, strings.ToUpper(args[0]))
			if err != nil {
				return err
			}

			req := models.AnalyzeRequest{
				Symbol:    args[0],
				Interval:  o.interval,
				TimeFrame: o.timeFrame,
				Trend:     o.trend,
			}
			if cmd.Flags().Changed("macro") {
				req.Macro = &o.macro
			}
			report, err := uc.Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			if root.asJSON {
				return printJSON(cmd.OutOrStdout(), report)
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&o.bars, "bars", "", "price bars file (.csv or .json)")
	cmd.Flags().StringVar(&o.fundamentals, "fundamentals", "", "fundamental reports file (.json)")
	cmd.Flags().StringVar(&o.benchmarkBars, "benchmark-bars", "", "benchmark bars used to derive the market trend")
	cmd.Flags().StringVar(&o.interval, "interval", "1d", "bar interval of the files (1h, 1d, 1wk)")
	cmd.Flags().StringVar(&o.timeFrame, "time-frame", "", "prediction horizon, e.g. 7d, 30d, 3m, 1y")
	cmd.Flags().StringVar(&o.trend, "trend", "", "market trend override (bullish, bearish, neutral)")
	cmd.Flags().Float64Var(&o.macro, "macro", 0.5, "macro score in [0,1]")
	_ = cmd.MarkFlagRequired("bars")
	return cmd
}

func (o *analyzeOptions) useCase(ctx context.Context, cfg *config.Config, root *rootOptions, symbol string) (*usecase.AnalysisUseCase, error) {
	data := repository.NewFileMarketData()
	bars, err := repository.LoadBarsFile(o.bars)
	if err != nil {
		return nil, err
	}
	data.AddBars(symbol, bars)
	if o.fundamentals != "" {
		reports, err := repository.LoadFundamentalsFile(o.fundamentals)
		if err != nil {
			return nil, err
		}
		data.AddFundamentals(symbol, reports)
	}
	if o.benchmarkBars != "" {
		bench, err := repository.LoadBarsFile(o.benchmarkBars)
		if err != nil {
			return nil, err
		}
		data.AddBars(cfg.Analysis.Benchmark, bench)
	}

	lgr := root.logger()
	sent, err := sentiment.New(ctx, cfg, lgr)
	if err != nil {
		return nil, err
	}
	w := cfg.Analysis.Weights
	rec, err := recommendation.NewEngine(recommendation.Weights{
		Technical:   w.Technical,
		Fundamental: w.Fundamental,
		Sentiment:   w.Sentiment,
		Macro:       w.Macro,
	})
	if err != nil {
		return nil, err
	}
	pred := prediction.NewEngine(
		prediction.WithScenarioBand(cfg.Analysis.ScenarioBand),
		prediction.WithTimeFrame(cfg.Analysis.TimeFrame),
	)

	ac := usecase.DefaultAnalysisConfig()
	ac.Interval = domrepo.NormalizeInterval(o.interval)
	ac.MacroScore = cfg.Analysis.MacroScore
	ac.TimeFrame = cfg.Analysis.TimeFrame
	ac.Benchmark = cfg.Analysis.Benchmark
	ac.Lookback = len(bars)
	return usecase.NewAnalysisUseCase(data, data, sent, rec, pred, metrics.Nop{}, lgr,
		usecase.WithAnalysisConfig(ac), usecase.WithIndicators(di.IndicatorOptions(cfg)...)), nil
}

func printReport(out io.Writer, r *models.AnalysisReport) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	rec := r.Recommendation
	p := r.Prediction
	fmt.Fprintf(tw, "Symbol\t%s (%s, %d bars)\n", r.Symbol, r.Interval, r.Bars)
	fmt.Fprintf(tw, "Price\t%.2f\n", r.CurrentPrice)
	fmt.Fprintf(tw, "Market trend\t%s\n", r.MarketTrend)
	fmt.Fprintf(tw, "Recommendation\t%s (%s)\n", rec.Recommendation, rec.Action)
	fmt.Fprintf(tw, "Overall\t%.3f, confidence %.1f%%\n", rec.Overall.Score, rec.Overall.Confidence)
	fmt.Fprintf(tw, "Scores\ttechnical %.2f  fundamental %.2f  sentiment %.2f  macro %.2f\n",
		rec.Scores.Technical, rec.Scores.Fundamental, rec.Scores.Sentiment, rec.Scores.Macro)
	fmt.Fprintf(tw, "Risk\t%s\n", rec.RiskLevel)
	fmt.Fprintf(tw, "Prediction\t%.2f in %s (%+.2f%%, confidence %.1f%%)\n",
		p.PredictedPrice, p.TimeFrame, p.ChangePercent, p.Confidence)
	fmt.Fprintf(tw, "Scenarios\tbear %.2f  base %.2f  bull %.2f\n",
		p.Scenarios.Bearish, p.Scenarios.Base, p.Scenarios.Bullish)
	fmt.Fprintf(tw, "Reasoning\t%s\n", rec.Reasoning)
	for _, n := range r.Notes {
		fmt.Fprintf(tw, "Note\t%s\n", n)
	}
	if r.Degraded {
		for k, v := range r.Errors {
			fmt.Fprintf(tw, "Degraded\t%s: %s\n", k, v)
		}
	}
	return tw.Flush()
}
