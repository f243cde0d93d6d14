package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-billpay/config"
)

var (
	workerMode bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile stale pending payments against the provider",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"reconcile",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ReconcileInterval },
			func(s *services, ctx context.Context) (int, error) {
				return s.Payment.RunReconcileBatch(ctx)
			},
		)
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Run expiration-related commands",
}

var expirePendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Mark payments past the pending timeout as expired",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"expire_pending",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ReconcileInterval },
			func(s *services, ctx context.Context) (int, error) {
				return s.Payment.ExpireStalePayments(ctx)
			},
		)
	},
}

var requeryCmd = &cobra.Command{
	Use:   "requery",
	Short: "Requery VTU orders stuck in a non-terminal state",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"requery",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.RequeryInterval },
			func(s *services, ctx context.Context) (int, error) {
				return s.VTU.RunRequeryBatch(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(expireCmd)
	rootCmd.AddCommand(requeryCmd)
	expireCmd.AddCommand(expirePendingCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *services, ctx context.Context) (int, error),
) {
	cfg, svcs, cleanup := mustCreateServices()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(cfg), svcs, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() (int, error) { return fn(svcs, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	svcs *services,
	fn func(s *services, ctx context.Context) (int, error),
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() (int, error) { return fn(svcs, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() (int, error) { return fn(svcs, ctx) })
		}
	}
}

func runJob(name string, fn func() (int, error)) {
	start := time.Now()
	processed, err := fn()
	latency := time.Since(start)
	entry := logrus.WithField("job", name).
		WithField("processed", processed).
		WithField("latency", latency.String())
	if err != nil {
		entry.WithError(err).Error("job_failed")
		return
	}
	entry.Info("job_completed")
}
