package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"scuttle/internal/metrics"
	"scuttle/internal/reports"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Sunday 20:00 UTC, 16:00 in US-Eastern
const DEFAULT_WEEKLY_SPEC = "CRON_TZ=UTC 0 20 * * 0"

// Key prefix of the redis run guard, suffixed with the date of the run
const GUARD_KEY_PREFIX = "scuttle:weekly-report:"

var (
	// ErrBusy is returned when a run is requested while another one is in flight
	ErrBusy = errors.New("weekly report already running")
	// ErrStopped is returned when a run is requested after Stop
	ErrStopped = errors.New("scheduler stopped")
)

type Runner interface {
	Run(ctx context.Context, guilds []reports.Guild) reports.BatchRun
}

// GuildSource returns the guilds the bot belongs to at the time of the call
type GuildSource func() []reports.Guild

// Scheduler fires the weekly report. At most one run is in flight at any time
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	guilds   GuildSource
	guard    RunGuard
	guardTTL time.Duration
	running  atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	now      func() time.Time

	// mu orders wg.Add against the cancel in Stop
	mu sync.Mutex
	wg sync.WaitGroup
}

func New(spec string, runner Runner, guilds GuildSource, guard RunGuard) (*Scheduler, error) {

	if spec == "" {
		spec = DEFAULT_WEEKLY_SPEC
	}
	if guard == nil {
		guard = LocalGuard{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	scheduler := &Scheduler{
		runner:   runner,
		guilds:   guilds,
		guard:    guard,
		guardTTL: 12 * time.Hour,
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
	}

	logger := cronLogger{}
	scheduler.cron = cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger)))
	if _, err := scheduler.cron.AddFunc(spec, scheduler.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("parse weekly report schedule %q: %w", spec, err)
	}
	return scheduler, nil
}

// Start the cron goroutine. It returns immediately
func (scheduler *Scheduler) Start() {
	scheduler.cron.Start()
	for _, entry := range scheduler.cron.Entries() {
		log.Info().Time("next", entry.Next).Msg("Weekly report scheduled")
	}
}

// Stop the timer, cancel a run in flight and wait for it to return
func (scheduler *Scheduler) Stop() {
	scheduler.mu.Lock()
	scheduler.cancel()
	scheduler.mu.Unlock()
	<-scheduler.cron.Stop().Done()
	scheduler.wg.Wait()
}

// Add a run to the wait group, unless Stop was called
func (scheduler *Scheduler) track() bool {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	if scheduler.ctx.Err() != nil {
		return false
	}
	scheduler.wg.Add(1)
	return true
}

// TriggerNow starts a run in the background, outside of the schedule.
// The run guard is not consulted
func (scheduler *Scheduler) TriggerNow() error {
	if !scheduler.running.CompareAndSwap(false, true) {
		metrics.ReportRunsSkipped.Inc()
		return ErrBusy
	}
	if !scheduler.track() {
		scheduler.running.Store(false)
		return ErrStopped
	}
	go func() {
		defer scheduler.wg.Done()
		defer scheduler.running.Store(false)
		log.Info().Msg("Running weekly report on demand")
		scheduler.runner.Run(scheduler.ctx, scheduler.guilds())
	}()
	return nil
}

// RunOnce runs the report now and waits for it
func (scheduler *Scheduler) RunOnce(ctx context.Context) (reports.BatchRun, error) {
	if !scheduler.running.CompareAndSwap(false, true) {
		return reports.BatchRun{}, ErrBusy
	}
	defer scheduler.running.Store(false)
	return scheduler.runner.Run(ctx, scheduler.guilds()), nil
}

// Called by cron on every firing
func (scheduler *Scheduler) tick() {

	if !scheduler.running.CompareAndSwap(false, true) {
		log.Warn().Msg("Previous weekly report still running, skipping this trigger")
		metrics.ReportRunsSkipped.Inc()
		return
	}
	defer scheduler.running.Store(false)

	if !scheduler.track() {
		return
	}
	defer scheduler.wg.Done()

	key := GUARD_KEY_PREFIX + scheduler.now().UTC().Format(time.DateOnly)
	acquired, err := scheduler.guard.Acquire(scheduler.ctx, key, scheduler.guardTTL)
	if err != nil {
		log.Error().Err(err).Msg("Run guard unavailable, running anyway")
	} else if !acquired {
		log.Info().Str("key", key).Msg("Weekly report already claimed by another instance")
		metrics.ReportRunsSkipped.Inc()
		return
	}

	log.Info().Msg("Running scheduled weekly report")
	scheduler.runner.Run(scheduler.ctx, scheduler.guilds())
}

// Sends the cron library logs to zerolog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
