package camera

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"visavis/internal/observability"
)

// Service owns the current capture loop and implements the refresh
// operation: a camera problem is recovered by tearing the loop down and
// recreating it wholesale, source included.
type Service struct {
	buildLoop func() (*Loop, error)
	metrics   *observability.Metrics
	log       zerolog.Logger

	mu     sync.Mutex
	runCtx context.Context
	loop   *Loop
}

// NewService takes a loop factory so every (re)start gets a fresh source.
func NewService(buildLoop func() (*Loop, error), metrics *observability.Metrics, log zerolog.Logger) *Service {
	return &Service{
		buildLoop: buildLoop,
		metrics:   metrics,
		log:       log.With().Str("component", "camera_service").Logger(),
	}
}

// Start builds and starts the first loop. ctx bounds the lifetime of
// every loop the service will ever run.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loop != nil {
		return ErrAlreadyStarted
	}
	s.runCtx = ctx

	loop, err := s.buildLoop()
	if err != nil {
		return fmt.Errorf("build capture loop: %w", err)
	}
	if err := loop.Start(ctx); err != nil {
		return err
	}
	s.loop = loop
	return nil
}

// Refresh stops the current loop, builds a new one and starts it.
func (s *Service) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCtx == nil {
		return ErrNotRunning
	}

	if s.loop != nil {
		s.loop.Stop()
		s.loop = nil
	}

	loop, err := s.buildLoop()
	if err != nil {
		return fmt.Errorf("rebuild capture loop: %w", err)
	}
	if err := loop.Start(s.runCtx); err != nil {
		return err
	}
	s.loop = loop
	s.metrics.CaptureRestarts.Inc()
	s.log.Info().Msg("capture loop refreshed")
	return nil
}

// Stop tears the current loop down. Idempotent.
func (s *Service) Stop() {
	s.mu.Lock()
	loop := s.loop
	s.loop = nil
	s.mu.Unlock()
	if loop != nil {
		loop.Stop()
	}
}

// Enroll delegates a registration attempt to the running loop.
func (s *Service) Enroll(ctx context.Context, name string) error {
	s.mu.Lock()
	loop := s.loop
	s.mu.Unlock()
	if loop == nil {
		return ErrNotRunning
	}
	return loop.Enroll(ctx, name)
}

// State reports the current loop's lifecycle state.
func (s *Service) State() State {
	s.mu.Lock()
	loop := s.loop
	s.mu.Unlock()
	if loop == nil {
		return StateIdle
	}
	return loop.State()
}
