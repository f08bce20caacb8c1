package jobs

import (
	"errors"
	"sync/atomic"

	"github.com/vytor/lingoflash/internal/coordinator"
	"github.com/vytor/lingoflash/internal/logger"
	"github.com/vytor/lingoflash/internal/worker"
)

// WorkerQueue implements JobQueue using a worker pool
type WorkerQueue struct {
	syncPool *worker.Pool
	syncer   worker.Syncer
	// inFlight keeps at most one sync job queued or running.
	inFlight atomic.Bool
}

// NewWorkerQueue creates a new WorkerQueue implementation
func NewWorkerQueue(syncPool *worker.Pool, syncer worker.Syncer) *WorkerQueue {
	return &WorkerQueue{syncPool: syncPool, syncer: syncer}
}

// EnqueueSync schedules a drain of the pending queue. A request made while
// another drain is queued or running is folded into it.
func (q *WorkerQueue) EnqueueSync() error {
	if !q.inFlight.CompareAndSwap(false, true) {
		logger.Default().WithPrefix("jobs").Debug("sync already in flight")
		return nil
	}
	err := q.syncPool.Submit(&worker.SyncJob{
		Syncer: q.syncer,
		OnDone: func(coordinator.SyncReport, error) { q.inFlight.Store(false) },
	})
	if err != nil {
		q.inFlight.Store(false)
		if errors.Is(err, worker.ErrQueueFull) {
			return nil
		}
		return err
	}
	return nil
}
