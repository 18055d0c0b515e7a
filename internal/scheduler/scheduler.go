package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crucial707/tools-sys/internal/metrics"
	"github.com/robfig/cron/v3"
)

// probeTimeout bounds a single store ping.
const probeTimeout = 5 * time.Second

// Pinger is satisfied by *db.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Probe pings the store once and records the result in the store_up gauge.
func Probe(ctx context.Context, store Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	err := store.PingContext(ctx)
	metrics.SetStoreUp(err == nil)
	if err != nil {
		slog.Warn("scheduler: store probe failed", "error", err)
	}
	return err
}

// Run probes the store on the cron schedule (e.g. "@every 30s") until ctx is
// cancelled. The first probe runs immediately. An invalid schedule is returned
// without starting anything.
func Run(ctx context.Context, schedule string, store Pinger) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() { Probe(ctx, store) }); err != nil {
		return fmt.Errorf("scheduler: invalid probe schedule %q: %w", schedule, err)
	}

	Probe(ctx, store)
	c.Start()
	slog.Info("scheduler: store probe started", "schedule", schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("scheduler: store probe stopped")
	return nil
}
