package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/fenilmodi00/ipo-catalog/shared"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SyncRunner runs reconciliation passes
type SyncRunner interface {
	RunIncrementalSync(ctx context.Context) (*models.SyncSummary, error)
	RunFullSync(ctx context.Context) (*models.SyncSummary, error)
	FetchMetrics() shared.MetricsSnapshot
}

// CacheInvalidator drops cached query results after the catalog changed
type CacheInvalidator interface {
	InvalidateCache()
}

// SyncStatus is the scheduler's view of syncing, served by the admin status endpoint
type SyncStatus struct {
	Lease        LeaseStatus            `json:"lease"`
	LastSummary  *models.SyncSummary    `json:"last_summary,omitempty"`
	LastError    string                 `json:"last_error,omitempty"`
	LastRunAt    *time.Time             `json:"last_run_at,omitempty"`
	FetchMetrics shared.MetricsSnapshot `json:"fetch_metrics"`
}

// ListingSyncJob owns the sync lease and runs passes from the ticker, the CLI and the admin API
type ListingSyncJob struct {
	Runner      SyncRunner
	Cache       CacheInvalidator
	Lease       *SyncLease
	PassTimeout time.Duration

	mu          sync.RWMutex
	lastSummary *models.SyncSummary
	lastError   string
	lastRunAt   *time.Time
	background  sync.WaitGroup

	// triggered passes run under ctx so Stop can interrupt them
	ctx    context.Context
	cancel context.CancelFunc
}

func NewListingSyncJob(runner SyncRunner, cache CacheInvalidator, lease *SyncLease, passTimeout time.Duration) *ListingSyncJob {
	if passTimeout <= 0 {
		passTimeout = 40 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ListingSyncJob{
		Runner:      runner,
		Cache:       cache,
		Lease:       lease,
		PassTimeout: passTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start runs an incremental pass immediately and then on every tick until ctx is done
func (j *ListingSyncJob) Start(ctx context.Context, interval time.Duration) {
	logrus.WithFields(logrus.Fields{
		"component": "ListingSyncJob",
		"interval":  interval,
	}).Info("Starting listing sync schedule")
	ticker := time.NewTicker(interval)

	j.background.Add(1)
	go func() {
		defer j.background.Done()
		defer ticker.Stop()
		j.Run(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.Run(ctx)
			}
		}
	}()
}

// Run performs one scheduled incremental pass, skipping it while another pass holds the lease
func (j *ListingSyncJob) Run(ctx context.Context) {
	_, err := j.RunPass(ctx, models.SyncModeIncremental, "scheduler")
	if errors.Is(err, shared.ErrSyncInProgress) {
		logrus.WithField("component", "ListingSyncJob").Info("Sync already running, skipping scheduled pass")
	}
}

// RunPass acquires the lease and runs one pass synchronously
func (j *ListingSyncJob) RunPass(ctx context.Context, mode models.SyncMode, holder string) (*models.SyncSummary, error) {
	token, err := j.Lease.TryAcquire(holder)
	if err != nil {
		return nil, err
	}
	return j.runLeased(ctx, token, mode, holder)
}

// Trigger acquires the lease now and runs the pass in the background.
// Returns shared.ErrSyncInProgress when a pass is already running.
func (j *ListingSyncJob) Trigger(mode models.SyncMode, holder string) error {
	token, err := j.Lease.TryAcquire(holder)
	if err != nil {
		return err
	}

	j.background.Add(1)
	go func() {
		defer j.background.Done()
		_, _ = j.runLeased(j.ctx, token, mode, holder)
	}()
	return nil
}

// Stop interrupts triggered passes and waits for every background pass to return.
// The schedule started by Start stops with its own context.
func (j *ListingSyncJob) Stop() {
	j.cancel()
	j.Wait()
}

// Wait blocks until every triggered pass has finished and the schedule, if started, has stopped
func (j *ListingSyncJob) Wait() {
	j.background.Wait()
}

func (j *ListingSyncJob) runLeased(ctx context.Context, token uuid.UUID, mode models.SyncMode, holder string) (*models.SyncSummary, error) {
	defer j.Lease.Release(token)

	ctx, cancel := context.WithTimeout(ctx, j.PassTimeout)
	defer cancel()

	logger := logrus.WithFields(logrus.Fields{
		"component": "ListingSyncJob",
		"mode":      mode,
		"holder":    holder,
	})
	logger.Info("Starting sync pass")

	var summary *models.SyncSummary
	var err error
	if mode == models.SyncModeFull {
		summary, err = j.Runner.RunFullSync(ctx)
	} else {
		summary, err = j.Runner.RunIncrementalSync(ctx)
	}

	if j.Cache != nil {
		j.Cache.InvalidateCache()
	}

	now := time.Now()
	j.mu.Lock()
	j.lastSummary = summary
	j.lastRunAt = &now
	j.lastError = ""
	if err != nil {
		j.lastError = err.Error()
	}
	j.mu.Unlock()

	if err != nil {
		logger.WithError(err).Error("Sync pass failed")
		return summary, err
	}
	return summary, nil
}

func (j *ListingSyncJob) Status() SyncStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return SyncStatus{
		Lease:        j.Lease.Status(),
		LastSummary:  j.lastSummary,
		LastError:    j.lastError,
		LastRunAt:    j.lastRunAt,
		FetchMetrics: j.Runner.FetchMetrics(),
	}
}
