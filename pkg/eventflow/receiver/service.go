package receiver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/eventflow/pkg/eventflow/observability"
)

// Service manages the lifecycle of a set of receivers.
type Service struct {
	receivers []Receiver
	logger    *slog.Logger

	mu      sync.Mutex
	started []Receiver
}

// NewService creates a service over receivers. logger may be nil.
func NewService(logger *slog.Logger, receivers ...Receiver) *Service {
	return &Service{receivers: receivers, logger: logger}
}

// Receivers returns the managed receivers.
func (s *Service) Receivers() []Receiver {
	return s.receivers
}

// StartReceivers starts every receiver concurrently. If any fails, the
// ones that did start are stopped again and the start errors are returned.
func (s *Service) StartReceivers(ctx context.Context, deliver Deliver) error {
	var (
		g       errgroup.Group
		mu      sync.Mutex
		started []Receiver
		errs    error
	)
	for _, r := range s.receivers {
		g.Go(func() error {
			if err := r.Start(ctx, deliver); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, &StartError{Receiver: r.Name(), Err: err})
				mu.Unlock()
				return err
			}
			observability.LogReceiver(s.logger, r.Name(), "started")
			mu.Lock()
			started = append(started, r)
			mu.Unlock()
			return nil
		})
	}

	if g.Wait() != nil {
		for _, r := range started {
			errs = multierr.Append(errs, r.Stop(ctx))
		}
		return errs
	}

	s.mu.Lock()
	s.started = append(s.started, started...)
	s.mu.Unlock()
	return nil
}

// StopReceivers stops every started receiver. All receivers are asked to
// stop even when some fail; the failures are combined.
func (s *Service) StopReceivers(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.started = nil
	s.mu.Unlock()

	var errs error
	for _, r := range started {
		if err := r.Stop(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("stop receiver %s: %w", r.Name(), err))
			continue
		}
		observability.LogReceiver(s.logger, r.Name(), "stopped")
	}
	return errs
}
