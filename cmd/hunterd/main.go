// Command hunterd runs the eBay hunter worker: a tick loop that polls
// active search tasks, enriches and classifies candidate listings, and
// persists matches to Supabase.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/riguy5000/ebay-hunter-worker/internal/cache"
	"github.com/riguy5000/ebay-hunter-worker/internal/config"
	"github.com/riguy5000/ebay-hunter-worker/internal/creds"
	"github.com/riguy5000/ebay-hunter-worker/internal/health"
	"github.com/riguy5000/ebay-hunter-worker/internal/logging"
	"github.com/riguy5000/ebay-hunter-worker/internal/metrics"
	"github.com/riguy5000/ebay-hunter-worker/internal/notify"
	"github.com/riguy5000/ebay-hunter-worker/internal/processor"
	"github.com/riguy5000/ebay-hunter-worker/internal/ratelimit"
	"github.com/riguy5000/ebay-hunter-worker/internal/scheduler"
	"github.com/riguy5000/ebay-hunter-worker/internal/store"
	"github.com/riguy5000/ebay-hunter-worker/internal/tokencache"
	"github.com/riguy5000/ebay-hunter-worker/internal/upstream"
)

func main() {
	root := &cobra.Command{
		Use:   "hunterd",
		Short: "Polls eBay for jewelry, watch, and gemstone listings and persists matches",
		RunE:  run,
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(logging.Options{Format: cfg.LogFormat, File: cfg.LogFile})
	log.Info("starting hunterd",
		"max_concurrent_tasks", cfg.MaxConcurrentTasks,
		"main_loop_interval", cfg.MainLoopInterval,
		"ebay_daily_limit", cfg.EbayDailyLimit,
	)

	st := store.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	keySettings, err := st.GetKeySettings(ctx)
	if err != nil {
		return fmt.Errorf("loading credential pool: %w", err)
	}
	pool := creds.NewPool(st, log, keySettings.Keys)

	gov := ratelimit.NewGovernor(cfg.EbayDailyLimit, cfg.EbayMinCallInterval)
	tokens := tokencache.New()
	client := upstream.New(upstream.DefaultConfig(), pool, tokens, gov, st, log)
	itemCache := cache.New(st)
	notifier := notify.New(cfg.SlackWebhookURL, log)
	m := metrics.New(cfg.MetricsNamespace)
	proc := processor.New(st, client, itemCache, notifier, log, cfg.RequireKaratMarkers, m)

	status := scheduler.NewStatus()
	schedCfg := scheduler.Config{
		TickInterval:       cfg.MainLoopInterval,
		MaxConcurrentTasks: cfg.MaxConcurrentTasks,
		StaggerDelay:       cfg.StaggerDelay,
		MaintenanceEvery:   60,
	}
	sched := scheduler.New(schedCfg, st, proc, pool, log, status)

	healthSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HealthPort),
		Handler: health.NewHandler(status, gov, m),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("health server listening", "port", cfg.HealthPort)
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("health server: %w", err)
		}
	}()

	go func() {
		if err := sched.Run(ctx); err != nil {
			errCh <- fmt.Errorf("scheduler: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, draining")
	case err := <-errCh:
		log.Error("fatal component error", "error", err)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("health server shutdown error", "error", err)
	}

	// Give any in-flight task wave a moment to finish its current tick
	// before the process exits.
	time.Sleep(100 * time.Millisecond)
	log.Info("hunterd stopped")
	return nil
}
