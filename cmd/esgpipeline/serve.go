package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alejandroruanova/esg-pipeline/internal/api"
	"github.com/alejandroruanova/esg-pipeline/internal/infrastructure/queue"
	"github.com/alejandroruanova/esg-pipeline/internal/pkg/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				mapper, err := a.classificationService("")
				if err != nil {
					return err
				}

				deps := api.Deps{
					Companies:   a.companies,
					Dashboards:  a.dashboardService(),
					Emissions:   a.emissions,
					Disclosures: a.disclosures,
					Ingestion:   a.ingestions,
					Runner:      a.runner(mapper),
					OutputDir:   a.storage.OutputDir(),
					Checks:      map[string]api.HealthChecker{"database": a.db},
				}
				if a.redis != nil {
					deps.Checks["redis"] = a.redis
				}

				if a.cfg.Queue.Enabled {
					client, err := queue.NewAsynqClient(&a.cfg.Queue, logger.NewServiceLogger("queue"))
					if err != nil {
						return err
					}
					a.closers = append(a.closers, client.Close)
					deps.Dispatcher = queue.NewDispatcher(client, a.cfg.Queue.MaxRetries)
				}

				addr := fmt.Sprintf("%s:%s", a.cfg.ServerHost, a.cfg.ServerPort)
				a.logger.Info("starting api",
					slog.String("addr", addr),
					slog.Bool("queue", a.cfg.Queue.Enabled))
				return api.NewServer(deps, logger.NewServiceLogger("api")).Run(ctx, addr)
			})
		},
	}
}

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Process queued pipeline tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				mapper, err := a.classificationService("")
				if err != nil {
					return err
				}

				queueLog := logger.NewServiceLogger("queue")
				client, err := queue.NewAsynqClient(&a.cfg.Queue, queueLog)
				if err != nil {
					return err
				}
				a.closers = append(a.closers, client.Close)

				server, err := queue.NewAsynqServer(&a.cfg.Queue, queueLog)
				if err != nil {
					return err
				}

				queue.NewHandlers(queue.HandlersConfig{
					Ingester:   a.ingestionService(),
					Mapper:     mapper,
					Calculator: a.emissionsService(),
					Generator:  a.reportingService(),
					Enqueuer:   client,
					OutputDir:  a.storage.OutputDir(),
					MaxRetry:   a.cfg.Queue.MaxRetries,
				}, queueLog).Register(server)

				// asynq traps SIGTERM and SIGINT itself
				return server.Start()
			})
		},
	}
}

