package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"FinScope/internal/di"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, live report feed, scheduler and consumers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			app, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			return app.Run()
		},
	}
}
