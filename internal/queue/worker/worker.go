package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/workerhub/internal/domain/job"
	"github.com/geocoder89/workerhub/internal/notifications"
	"github.com/geocoder89/workerhub/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

// RefreshPurger drops refresh-token rows nobody can use any more.
type RefreshPurger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	Concurrency   int
	ShutdownGrace time.Duration
	// LockTTL is how long a job may sit in processing before the janitor requeues it.
	LockTTL         time.Duration
	JobTimeout      time.Duration
	JanitorInterval time.Duration
}

type Deps struct {
	Jobs   JobsRepository
	Sender notifications.Sender
	// optional
	Refresh RefreshPurger
	DB      Pinger
	Prom    *observability.Prom
	Log     *slog.Logger
}

type Worker struct {
	cfg     Config
	repo    JobsRepository
	sender  notifications.Sender
	refresh RefreshPurger
	db      Pinger
	prom    *observability.Prom
	stats   *observability.DeliveryStats
	log     *slog.Logger
	now     func() time.Time
	backoff func(attempt int) time.Duration

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, deps Deps) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	if cfg.JanitorInterval <= 0 {
		cfg.JanitorInterval = time.Minute
	}

	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		cfg:     cfg,
		repo:    deps.Jobs,
		sender:  deps.Sender,
		refresh: deps.Refresh,
		db:      deps.DB,
		prom:    deps.Prom,
		stats:   observability.NewDeliveryStats(),
		log:     log.With("worker_id", cfg.WorkerID),
		now:     func() time.Time { return time.Now().UTC() },
		backoff: ExponentialBackoff,
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Worker) isReady() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}

// Run blocks until ctx is cancelled, then waits up to ShutdownGrace for in-flight jobs.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	w.log.Info("worker started", "concurrency", w.cfg.Concurrency, "poll_interval", w.cfg.PollInterval.String())

	var wg sync.WaitGroup

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			w.loop(ctx, slot)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.janitor(ctx)
	}()

	<-ctx.Done()
	w.setReady(false)
	w.log.Info("worker received shutdown signal")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.log.Info("worker drained")
	case <-time.After(w.cfg.ShutdownGrace):
		w.log.Warn("shutdown grace elapsed with jobs still running", "grace", w.cfg.ShutdownGrace.String())
	}

	return nil
}

func (w *Worker) loop(ctx context.Context, slot int) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		processed, err := w.ProcessOne(ctx)
		if err != nil {
			w.log.Error("process job", "slot", slot, "err", err)
		}

		// drain the queue without sleeping while there is work
		if processed {
			timer.Reset(0)
			continue
		}
		timer.Reset(w.cfg.PollInterval)
	}
}

func (w *Worker) janitor(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep requeues jobs whose worker died mid-flight and purges expired refresh tokens.
func (w *Worker) sweep(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := w.repo.RequeueStaleProcessing(cctx, w.cfg.LockTTL)
	if err != nil {
		w.log.Error("requeue stale jobs", "err", err)
	} else if n > 0 {
		w.stats.Requeued(n)
		w.log.Warn("requeued stale jobs", "count", n)
	}

	if w.refresh == nil {
		return
	}

	purged, err := w.refresh.DeleteExpired(cctx, w.now())
	if err != nil {
		w.log.Error("purge expired refresh tokens", "err", err)
		return
	}
	if purged > 0 {
		w.log.Info("purged expired refresh tokens", "count", purged)
	}
}

func (w *Worker) Stats() observability.DeliverySnapshot {
	return w.stats.Snapshot()
}
