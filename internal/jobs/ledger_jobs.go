package jobs

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"iou-ledger/internal/bridge"
	"iou-ledger/internal/domain"
	"iou-ledger/internal/logger"
)

// ReconcileStatuses re-derives every stored status and repairs drift.
func (jr *JobRunner) ReconcileStatuses() {
	jr.runWithRecovery("ReconcileStatuses", func(ctx context.Context) error {
		_, err := jr.reconcile(ctx)
		return err
	})
}

func (jr *JobRunner) reconcile(ctx context.Context) (int, error) {
	repaired, err := jr.ledger.ReconcileStatuses(ctx, jr.SystemActor())
	if err != nil {
		return 0, fmt.Errorf("reconcile statuses: %w", err)
	}
	if repaired > 0 {
		logger.Warn("Repaired drifted debt statuses", "count", repaired)
	} else {
		logger.Info("All debt statuses consistent")
	}
	return repaired, nil
}

// ExportSnapshot archives a full grouped export with totals.
func (jr *JobRunner) ExportSnapshot() {
	jr.runWithRecovery("ExportSnapshot", func(ctx context.Context) error {
		_, err := jr.exportSnapshot(ctx, time.Now().UTC())
		return err
	})
}

func (jr *JobRunner) exportSnapshot(ctx context.Context, now time.Time) (string, error) {
	debts, err := jr.ledger.QueryDebts(ctx, jr.SystemActor(), domain.DebtFilter{})
	if err != nil {
		return "", fmt.Errorf("query debts for snapshot: %w", err)
	}

	var buf bytes.Buffer
	opts := bridge.ExportOptions{GroupBy: bridge.GroupByOwner, Summary: true}
	if err := jr.exporter.Write(&buf, debts, opts); err != nil {
		return "", fmt.Errorf("render snapshot: %w", err)
	}

	name := fmt.Sprintf("snapshot-%s.csv", now.Format("20060102"))
	key, err := jr.archive.Put(ctx, name, &buf)
	if err != nil {
		return "", fmt.Errorf("archive snapshot: %w", err)
	}
	logger.Info("Export snapshot archived", "key", key, "debts", len(debts))
	return key, nil
}
