package sharelink

import (
	"context"
	"fmt"
	"time"

	"kpiboard/internal/logger"

	"github.com/robfig/cron/v3"
)

// Cleaner runs CleanupExpired on a cron schedule.
type Cleaner struct {
	service  *Service
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
	logger   *logger.Logger
}

// NewCleaner creates a cleaner for schedule, a standard five field cron
// expression or a descriptor such as "@hourly" or "@every 30m".
func NewCleaner(service *Service, schedule string, log *logger.Logger) *Cleaner {
	log = log.With("component", "sharelink_cleaner")
	return &Cleaner{
		service:  service,
		schedule: schedule,
		timeout:  30 * time.Second,
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log}))),
		logger:   log,
	}
}

// Start registers the job and starts the scheduler.
func (c *Cleaner) Start() error {
	if _, err := c.cron.AddFunc(c.schedule, c.tick); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", c.schedule, err)
	}
	c.cron.Start()
	c.logger.Info("share link cleanup scheduled", "schedule", c.schedule)
	return nil
}

// Stop stops the scheduler and waits for a running cleanup to finish.
func (c *Cleaner) Stop() {
	<-c.cron.Stop().Done()
	c.logger.Info("share link cleanup stopped")
}

// RunOnce performs a single cleanup pass.
func (c *Cleaner) RunOnce(ctx context.Context) (int64, error) {
	n, err := c.service.CleanupExpired(ctx)
	if err != nil {
		c.logger.Error("share link cleanup failed", "error", err)
		return 0, err
	}
	if n > 0 {
		c.logger.Info("expired share links removed", "count", n)
	}
	return n, nil
}

func (c *Cleaner) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	_, _ = c.RunOnce(ctx)
}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
