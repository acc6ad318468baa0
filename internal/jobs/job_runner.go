package jobs

import (
	"context"

	"iou-ledger/internal/bridge"
	"iou-ledger/internal/config"
	"iou-ledger/internal/domain"
	"iou-ledger/internal/logger"
	"iou-ledger/internal/service"
	"iou-ledger/internal/storage"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	ledger   service.LedgerService
	archive  storage.ArchiveStore
	exporter *bridge.Exporter
	config   *config.Config
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(ledger service.LedgerService, archive storage.ArchiveStore, exporter *bridge.Exporter, cfg *config.Config) *JobRunner {
	return &JobRunner{
		ledger:   ledger,
		archive:  archive,
		exporter: exporter,
		config:   cfg,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// SystemActor is the identity jobs act under. It needs the admin role to
// reconcile and to see every owner's debts.
func (jr *JobRunner) SystemActor() domain.ActorContext {
	return domain.ActorContext{ActorID: jr.config.Ledger.SystemActorID, Role: domain.RoleAdmin}
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) {
	log := logger.WithJob(jobName)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked", "panic", r)
		}
	}()

	log.Info("Starting job")
	if err := jobFunc(context.Background()); err != nil {
		log.Error("Job failed", "error", err)
		return
	}
	log.Info("Job completed")
}

// RunAllNightlyJobs runs all nightly jobs (for manual execution)
func (jr *JobRunner) RunAllNightlyJobs() {
	jr.ReconcileStatuses()
	jr.ExportSnapshot()
}
