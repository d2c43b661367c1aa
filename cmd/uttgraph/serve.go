package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/go-utterance/internal/metrics"
	"github.com/example/go-utterance/internal/pipeline"
	"github.com/example/go-utterance/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the utterance HTTP server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			collector := metrics.NewCollector("uttgraph")
			p, err := newPipeline(cfg, pipeline.WithStageHook(collector.ObserveStage))
			if err != nil {
				return err
			}

			srv := server.New(cfg, p).
				WithMetrics(collector).
				WithShutdownTimeout(time.Duration(cfg.Server.ShutdownTimeout) * time.Second)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.Start(ctx)
		},
	}
}
