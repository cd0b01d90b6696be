// Package scheduler wires up the cron jobs that periodically trigger
// ingestion runs and the daily digest.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"oppradar/ingest-service/internal/ingest"
)

// Scheduler wraps robfig/cron and manages the ingestion and digest loops.
type Scheduler struct {
	cron       *cron.Cron
	orch       *ingest.Orchestrator
	spec       string // ingestion spec, e.g. "@every 30m"
	digestSpec string // digest spec, e.g. "30 7 * * *"
	limit      int    // per-run message cap
	log        *zap.Logger

	runMu sync.Mutex // one ingestion run at a time
}

// New creates a Scheduler that ingests up to limit messages every
// intervalMinutes minutes and delivers the digest on digestSpec.
func New(orch *ingest.Orchestrator, intervalMinutes, limit int, digestSpec string, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		orch:       orch,
		spec:       fmt.Sprintf("@every %dm", intervalMinutes),
		digestSpec: digestSpec,
		limit:      limit,
		log:        log,
	}
}

// Start registers both jobs and starts the scheduler. Also runs one ingestion
// immediately so the feed is populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.runIngestion(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc ingestion: %w", err)
	}
	if _, err := s.cron.AddFunc(s.digestSpec, func() { s.runDigest(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc digest: %w", err)
	}

	s.cron.Start()
	s.log.Info("cron started",
		zap.String("ingestSpec", s.spec), zap.String("digestSpec", s.digestSpec))

	// Run immediately on startup (non-blocking)
	go s.runIngestion(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info("cron stopped")
}

// runIngestion executes one ingestion pass. Overlapping ticks are dropped: a
// run still in flight when the next fires simply wins.
func (s *Scheduler) runIngestion(ctx context.Context) {
	if !s.runMu.TryLock() {
		s.log.Warn("ingestion tick skipped, previous run still in flight")
		return
	}
	defer s.runMu.Unlock()

	sum, err := s.orch.Run(ctx, ingest.Options{Limit: s.limit})
	if err != nil {
		s.log.Error("scheduled ingestion failed", zap.Error(err))
		return
	}
	s.log.Info("scheduled ingestion complete",
		zap.Int("processed", sum.Processed), zap.Int("inserted", sum.Inserted))
}

func (s *Scheduler) runDigest(ctx context.Context) {
	n, err := s.orch.RunDigest(ctx)
	if err != nil {
		s.log.Error("scheduled digest failed", zap.Error(err))
		return
	}
	s.log.Info("scheduled digest complete", zap.Int("delivered", n))
}
