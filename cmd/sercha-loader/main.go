package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/sercha-loader/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-loader/internal/app"
	"github.com/custodia-labs/sercha-loader/internal/config"
	"github.com/custodia-labs/sercha-loader/internal/core/ports/driving"
)

func main() {
	// SIGINT/SIGTERM stop the run at the next source boundary
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.SetFactory(func(ctx context.Context, cfg *config.Config) (driving.Ingestor, func() error, error) {
		application, err := app.New(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return application.Ingestor, application.Close, nil
	})

	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
