package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/bremersee/authman/internal/approval"
	"github.com/bremersee/authman/internal/clientdetails"
	"github.com/bremersee/authman/internal/config"
	"github.com/bremersee/authman/internal/http/controllers"
	"github.com/bremersee/authman/internal/http/router"
	"github.com/bremersee/authman/internal/metrics"
	"github.com/bremersee/authman/internal/observability/logger"
)

func newServeCmd(conf func() *config.Config) *cobra.Command {
	var noPurger bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the approval purger",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, conf(), !noPurger)
		},
	}
	cmd.Flags().BoolVar(&noPurger, "no-purger", false, "do not start the periodic approval purger (e.g. when another instance runs it)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, withPurger bool) error {
	log := logger.L().With(logger.Component("serve"))
	ctx = logger.ToContext(ctx, log)

	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	nonces, err := openCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer nonces.Close()

	flow, err := buildSocialFlow(ctx, cfg, st, nonces)
	if err != nil {
		return fmt.Errorf("social login: %w", err)
	}
	approvals := buildApprovalStore(cfg, st)

	if withPurger {
		purgeCtx, cancel := context.WithCancel(ctx)
		purger := approval.NewPurger(approvals, cfg.Approvals.PurgeInterval)
		purger.Start(purgeCtx)
		defer func() {
			cancel()
			<-purger.Done()
		}()
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	handler := router.New(router.Deps{
		Social:           flow,
		CallbackBase:     cfg.Providers.RedirectBaseURL,
		AllowedRedirects: cfg.Providers.AllowedRedirectURIs,
		Approvals:        approvals,
		Clients:          clientdetails.NewProvider(st.clients),
		Checks: map[string]controllers.Check{
			"storage": st.ping,
			"cache":   nonces.Ping,
		},
		Version: version,
		Metrics: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening",
			logger.String("addr", cfg.Server.Addr),
			logger.Any("providers", flow.Providers()),
			logger.String("storage", cfg.Storage.Driver),
			logger.String("cache", cfg.Cache.Kind))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", logger.Err(err))
		return err
	}
	return nil
}
