package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-gate/internal/server"
	"github.com/spigell/resume-gate/internal/session"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis and application API over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default is :8080)")

	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, config := setup(false)

	logger.Info("starting the resume-gate server", zap.String("version", version))

	pipe, err := newPipeline(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the pipeline", zap.Error(err))
	}

	submitter, err := newSubmitter(config, logger)
	if err != nil {
		logger.Fatal("building the submission client", zap.Error(err))
	}

	deps := server.Deps{
		Pipeline: pipe,
		Sessions: session.NewStore(config.Server.SessionTTL),
		Listing:  *config.Job,
		Logger:   logger,
	}
	if submitter != nil {
		deps.Submitter = submitter
	} else {
		logger.Warn("submission is disabled", zap.String("hint", "set submission.endpoint to enable it"))
	}

	srv := server.New(server.Config{
		RateLimit:    config.Server.RateLimit,
		RateWindow:   config.Server.RateWindow,
		BodyLimit:    config.Server.BodyLimit,
		MaxFileSize:  config.Extractor.MaxFileSize,
		AllowOrigins: config.Server.AllowOrigins,
	}, deps)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Listen(config.Listen)
	})

	g.Go(func() error {
		return deps.Sessions.Run(gctx, 0, func(removed int) {
			logger.Debug("expired sessions pruned", zap.Int("count", removed))
		})
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}

	logger.Info("server stopped")
}
