// Package main implements a one-shot retirement pass against the marketplace REST API.
// It reads the catalog once, and retires every listing whose price has reached zero.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/farm2consumer/backend/internal/backendapi"
	"github.com/farm2consumer/backend/internal/config"
	"github.com/farm2consumer/backend/internal/lifecycle"
	"github.com/farm2consumer/backend/internal/logger"
	"github.com/farm2consumer/backend/internal/pricing"
	"github.com/farm2consumer/backend/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	dryRun      bool
	concurrency int
	timeout     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Retire listings whose price has decayed to zero",
	Long: `Read the marketplace catalog once and retire every expired listing:
delete it, notify its owner and drop it from cached recommendations.

Connection settings come from BACKEND_API_URL and BACKEND_SERVICE_TOKEN.`,
	SilenceUsage: true,
	RunE:         runSweepCmd,
}

func init() {
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "List expired listings without retiring them")
	rootCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Listings retired at once (default RETIREMENT_WORKERS)")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Overall deadline for the pass")
}

func main() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSweepCmd(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadRemote()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	limit := concurrency
	if limit <= 0 {
		limit = cfg.Retirement.Workers
	}

	report, err := runSweep(ctx, backendapi.NewClient(cfg), pricing.NewCalculator(pricing.Standard, time.Now), sweepOptions{
		DryRun:      dryRun,
		Concurrency: limit,
		CallTimeout: cfg.Retirement.CallTimeout,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "live: %d  expired: %d  retired: %d  failed: %d\n",
		report.Live, report.Expired, report.Retired, report.Failed)
	return nil
}

type sweepOptions struct {
	DryRun      bool
	Concurrency int
	CallTimeout time.Duration
}

type sweepReport struct {
	Live    int
	Expired int
	Retired int
	Failed  int
}

func runSweep(ctx context.Context, backend lifecycle.Backend, calc *pricing.Calculator, opts sweepOptions) (sweepReport, error) {
	listings, err := backend.FetchListings(ctx, session.Anonymous)
	if err != nil {
		return sweepReport{}, fmt.Errorf("failed to read catalog: %w", err)
	}

	collector := &lifecycle.Collector{}
	live := lifecycle.NewGate(calc, collector).Filter(listings)
	expired := collector.Drain()

	report := sweepReport{Live: len(live), Expired: len(expired)}
	if opts.DryRun {
		for _, l := range expired {
			logger.Info("would retire listing %s (%s, owner %s, %d intervals)", l.ID, l.CropName, l.OwnerID, l.Quote.Intervals)
		}
		return report, nil
	}

	retirer := lifecycle.NewRetirer(backend, calc, lifecycle.RetirerConfig{CallTimeout: opts.CallTimeout}, nil)
	results := make([]lifecycle.Retirement, len(expired))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, l := range expired {
		g.Go(func() error {
			results[i] = retirer.Retire(gctx, l)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Succeeded() {
			report.Retired++
		} else {
			report.Failed++
		}
	}
	return report, nil
}
