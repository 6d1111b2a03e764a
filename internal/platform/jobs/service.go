package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	JobRetention = "gdpr_retention"

	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var ErrQueueFull = errors.New("job queue full")

// Purger deletes records older than the cutoff and reports how many went.
type Purger func(ctx context.Context, cutoff time.Time) (int64, error)

type RetentionTarget struct {
	Name  string
	Purge Purger
}

type Recorder interface {
	RecordJob(err error)
}

type Options struct {
	RetentionSchedule string
	RetentionDays     int
	QueueSize         int
}

type Service struct {
	store    RunStore
	opts     Options
	targets  []RetentionTarget
	recorder Recorder
	now      func() time.Time

	queue    chan job
	cron     *cron.Cron
	entryMap map[string]cron.EntryID
	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(store RunStore, opts Options, recorder Recorder, targets ...RetentionTarget) *Service {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 128
	}
	return &Service{
		store:    store,
		opts:     opts,
		targets:  targets,
		recorder: recorder,
		now:      time.Now,
		queue:    make(chan job, opts.QueueSize),
		cron:     cron.New(cron.WithSeconds()),
		entryMap: make(map[string]cron.EntryID),
	}
}

// Start launches the worker and registers the cron entries. It is a no-op
// when already running.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	if s.opts.RetentionSchedule != "" && s.opts.RetentionDays > 0 {
		entryID, err := s.cron.AddFunc(s.opts.RetentionSchedule, func() {
			if err := s.Enqueue(JobRetention, s.retention); err != nil {
				zap.S().Warnw("retention enqueue failed", "err", err)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule %s: %w", JobRetention, err)
		}
		s.entryMap[JobRetention] = entryID
	}

	workerCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.worker(workerCtx)

	s.cron.Start()
	s.running = true
	zap.S().Infow("job scheduler started", "entries", len(s.entryMap))
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.cancel()
	<-s.done
	s.running = false
	zap.S().Infow("job scheduler stopped")
}

// NextRun reports the next scheduled time of a job type, if it is scheduled.
func (s *Service) NextRun(jobType string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entryID, ok := s.entryMap[jobType]
	if !ok {
		return time.Time{}, false
	}
	next := s.cron.Entry(entryID).Next
	return next, !next.IsZero()
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) error {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
		return nil
	default:
		zap.S().Warnw("job queue full", "jobType", jobType)
		return ErrQueueFull
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

// RunRetention purges every retention target synchronously.
func (s *Service) RunRetention(ctx context.Context) (any, error) {
	return s.RunNow(ctx, JobRetention, s.retention)
}

func (s *Service) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListRuns(ctx, limit)
}

func (s *Service) worker(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				zap.S().Warnw("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID, err := s.store.StartRun(ctx, j.Type)
	if err != nil {
		zap.S().Warnw("job run insert failed", "jobType", j.Type, "err", err)
	}

	details, runErr := j.Run(ctx)
	status := StatusCompleted
	if runErr != nil {
		status = StatusFailed
	}
	if s.recorder != nil {
		s.recorder.RecordJob(runErr)
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		zap.S().Warnw("job details marshal failed", "jobType", j.Type, "err", err)
		detailsJSON = []byte("{}")
	}
	if runID != 0 {
		if err := s.store.FinishRun(ctx, runID, status, detailsJSON); err != nil {
			zap.S().Warnw("job run update failed", "jobType", j.Type, "err", err)
		}
	}
	return details, runErr
}

type RetentionResult struct {
	CutoffDate time.Time        `json:"cutoffDate"`
	Deleted    map[string]int64 `json:"deleted"`
}

func (s *Service) retention(ctx context.Context) (any, error) {
	days := s.opts.RetentionDays
	if days <= 0 {
		return nil, errors.New("retention disabled")
	}
	result := RetentionResult{
		CutoffDate: s.now().AddDate(0, 0, -days),
		Deleted:    make(map[string]int64, len(s.targets)),
	}
	var errs []error
	for _, target := range s.targets {
		n, err := target.Purge(ctx, result.CutoffDate)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", target.Name, err))
			continue
		}
		result.Deleted[target.Name] = n
	}
	return result, errors.Join(errs...)
}
