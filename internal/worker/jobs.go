package worker

import (
	"context"

	"github.com/vytor/lingoflash/internal/coordinator"
	"github.com/vytor/lingoflash/internal/logger"
)

// Syncer drains the pending mutation queue.
type Syncer interface {
	SyncPending(ctx context.Context) (coordinator.SyncReport, error)
}

// SyncJob replays queued progress writes against the remote source.
type SyncJob struct {
	Syncer Syncer
	// OnDone, if set, runs after every attempt, failed ones included.
	OnDone func(coordinator.SyncReport, error)
}

func (j *SyncJob) Name() string { return "sync_pending" }

func (j *SyncJob) Run(ctx context.Context) (err error) {
	log := logger.FromContext(ctx)

	var report coordinator.SyncReport
	if j.OnDone != nil {
		defer func() { j.OnDone(report, err) }()
	}

	report, err = j.Syncer.SyncPending(ctx)
	if err != nil {
		log.Error("sync failed: %v", err)
		return err
	}
	if report.Skipped {
		log.Info("sync skipped, remote unreachable")
	} else if len(report.Failed) > 0 {
		log.Warn("sync left %d mutations pending", len(report.Failed))
	}
	return nil
}
