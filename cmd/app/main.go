// Command app runs the API server straight from a config file. The finscope CLI
// offers the same through "finscope serve" next to its offline commands.
package main

import (
	"flag"
	"fmt"
	"os"

	"FinScope/internal/di"
	"FinScope/pkg/config"
)

func main() {
	path := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	if err := run(*path); err != nil {
		fmt.Fprintln(os.Stderr, "finscope:", err)
		os.Exit(1)
	}
}

func run(path string) error {
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	return app.Run()
}
