package background

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"civreg/internal/models"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const (
	JobRevocationSweep    = "revocation-sweep"
	JobResetTokenCleanup  = "reset-token-cleanup"
	JobStatisticsSnapshot = "statistics-snapshot"
)

// Sweeper drops expired revocation entries. Only the in-memory store needs it.
type Sweeper interface {
	Sweep() int
}

type ResetTokenCleaner interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

type SnapshotSource interface {
	Snapshot(ctx context.Context) (*models.StatisticsSnapshot, error)
}

type SnapshotArchive interface {
	ArchiveSnapshot(ctx context.Context, name string, payload interface{}) error
}

// Dependencies wires the scheduler. Revocations and Archive are optional; the
// matching job is not registered when they are nil.
type Dependencies struct {
	Revocations Sweeper
	ResetTokens ResetTokenCleaner
	Statistics  SnapshotSource
	Archive     SnapshotArchive
	Logger      *zap.Logger
}

// JobScheduler runs the periodic maintenance jobs.
type JobScheduler struct {
	scheduler gocron.Scheduler
	deps      Dependencies
	logger    *zap.Logger
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
	now       func() time.Time
}

func NewJobScheduler(deps Dependencies) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler: scheduler,
		deps:      deps,
		logger:    deps.Logger,
		jobs:      make(map[string]gocron.Job),
		now:       time.Now,
	}
	if err := js.registerJobs(); err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler", zap.Strings("jobs", js.JobNames()))
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() error {
	if js.deps.Revocations != nil {
		if err := js.add(JobRevocationSweep, time.Minute, js.sweepRevocations); err != nil {
			return err
		}
	}
	if js.deps.ResetTokens != nil {
		if err := js.add(JobResetTokenCleanup, time.Hour, js.clearResetTokens, context.Background()); err != nil {
			return err
		}
	}
	if js.deps.Statistics != nil && js.deps.Archive != nil {
		if err := js.add(JobStatisticsSnapshot, 24*time.Hour, js.archiveStatistics, context.Background()); err != nil {
			return err
		}
	}
	return nil
}

func (js *JobScheduler) add(name string, interval time.Duration, task interface{}, params ...interface{}) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	job, err := js.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task, params...),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", name, err)
	}
	js.jobs[name] = job
	return nil
}

// JobNames lists the registered jobs in name order.
func (js *JobScheduler) JobNames() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (js *JobScheduler) sweepRevocations() {
	if removed := js.deps.Revocations.Sweep(); removed > 0 {
		js.logger.Debug("expired revocations swept", zap.Int("removed", removed))
	}
}

func (js *JobScheduler) clearResetTokens(ctx context.Context) error {
	cleared, err := js.deps.ResetTokens.ClearExpiredResetTokens(ctx, js.now().UTC())
	if err != nil {
		js.logger.Error("reset token cleanup failed", zap.Error(err))
		return err
	}
	if cleared > 0 {
		js.logger.Info("expired reset tokens cleared", zap.Int64("count", cleared))
	}
	return nil
}

// SnapshotName is the object key of the snapshot taken at t.
func SnapshotName(t time.Time) string {
	return "stats/" + t.UTC().Format("2006-01-02") + ".json"
}

func (js *JobScheduler) archiveStatistics(ctx context.Context) error {
	snapshot, err := js.deps.Statistics.Snapshot(ctx)
	if err != nil {
		js.logger.Error("statistics snapshot failed", zap.Error(err))
		return err
	}

	name := SnapshotName(js.now())
	if err := js.deps.Archive.ArchiveSnapshot(ctx, name, snapshot); err != nil {
		js.logger.Error("statistics archive failed", zap.String("object", name), zap.Error(err))
		return err
	}
	js.logger.Info("statistics snapshot archived",
		zap.String("object", name),
		zap.Int("total", snapshot.Global.Total))
	return nil
}
