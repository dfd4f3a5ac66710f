package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/session"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ledger HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	result, err := backend.NewFactory(logger).Create(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", applog.FieldError, err.Error())
			}
		}
	}()

	sess := session.New()
	opts := ledger.Options{Timeout: cfg.RequestTimeout, Publisher: result.Publisher}
	incomes := ledger.New(core.Income, result.Client, opts)
	expenses := ledger.New(core.Expense, result.Client, opts)

	unbindIncomes := incomes.Bind(ctx, sess)
	defer unbindIncomes()
	unbindExpenses := expenses.Bind(ctx, sess)
	defer unbindExpenses()

	server := apphttp.NewServer(":"+cfg.Port, sess, incomes, expenses, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server",
			"addr", server.Addr,
			applog.FieldBackend, cfg.DataBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server exited with error", applog.FieldError, err.Error())
		return err
	}
	logger.Info("Server stopped")
	return nil
}
