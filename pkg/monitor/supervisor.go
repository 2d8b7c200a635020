package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"github.com/raykavin/pairwatch/pkg/core"
	"github.com/raykavin/pairwatch/pkg/logger"
)

// Cycler runs one monitoring cycle
type Cycler interface {
	RunCycle(ctx context.Context, pairs []string) (Report, error)
}

// Schedule controls the pace of the supervisor
type Schedule struct {
	PollInterval    time.Duration
	ErrorBackoff    time.Duration
	MaxErrorBackoff time.Duration
}

// DefaultSchedule polls every 10 minutes and retries failed cycles after a minute
func DefaultSchedule() Schedule {
	return Schedule{
		PollInterval:    10 * time.Minute,
		ErrorBackoff:    time.Minute,
		MaxErrorBackoff: time.Minute,
	}
}

// Supervisor runs cycles forever, retrying failed ones with backoff
type Supervisor struct {
	cycler   Cycler
	pairs    []string
	notifier core.Notifier
	log      logger.Logger
	schedule Schedule
	backoff  *backoff.Backoff
	onReport func(Report)
}

// SupervisorOption is a function that configures a Supervisor
type SupervisorOption func(*Supervisor)

// WithReportHandler registers a callback invoked after each successful cycle
func WithReportHandler(handler func(Report)) SupervisorOption {
	return func(s *Supervisor) {
		s.onReport = handler
	}
}

func NewSupervisor(cycler Cycler, pairs []string, notifier core.Notifier, log logger.Logger,
	schedule Schedule, options ...SupervisorOption) *Supervisor {
	maxBackoff := schedule.MaxErrorBackoff
	if maxBackoff < schedule.ErrorBackoff {
		maxBackoff = schedule.ErrorBackoff
	}

	s := &Supervisor{
		cycler:   cycler,
		pairs:    pairs,
		notifier: notifier,
		log:      log,
		schedule: schedule,
		backoff: &backoff.Backoff{
			Min:    schedule.ErrorBackoff,
			Max:    maxBackoff,
			Factor: 2,
		},
	}

	for _, option := range options {
		option(s)
	}

	return s
}

// Run blocks until ctx is canceled
func (s *Supervisor) Run(ctx context.Context) error {
	s.log.Infof("monitoring %d pairs every %s", len(s.pairs), s.schedule.PollInterval)

	for {
		wait := s.schedule.PollInterval

		if err := s.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			wait = s.backoff.Duration()
			s.log.WithError(err).Warnf("cycle failed, retrying in %s", wait)
		} else {
			s.backoff.Reset()
			s.log.Infof("next cycle in %s", wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("monitoring stopped")
			return nil
		case <-timer.C:
		}
	}

	s.log.Info("monitoring stopped")
	return nil
}

func (s *Supervisor) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
			s.log.Errorf("recovered from %v", err)
			s.notifier.OnError(err)
		}
	}()

	report, err := s.cycler.RunCycle(ctx, s.pairs)
	if err != nil {
		// catalogue failures were alerted by the market client
		if ctx.Err() == nil && !errors.Is(err, core.ErrTransport) {
			s.notifier.OnError(err)
		}
		return err
	}

	if s.onReport != nil {
		s.onReport(report)
	}

	return nil
}
