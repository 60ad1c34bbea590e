package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"visavis/internal/framehub"
	"visavis/internal/observability"
	"visavis/internal/vision"
)

// State is the capture loop lifecycle.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
)

var (
	ErrAlreadyStarted = errors.New("capture loop already started")
	ErrNotRunning     = errors.New("capture loop not running")
	ErrNoFace         = errors.New("no single-face frame captured within the attempt limit")
)

// Update is what the loop publishes once per cycle: the frame and the
// recognized name, empty when nobody known is in view.
type Update struct {
	Frame   Frame
	Name    string
	Regions []vision.Region
}

// Identities is the slice of the identity store the loop needs.
type Identities interface {
	Match(sig vision.Signature) (string, bool)
	Register(name string, candidates []vision.Signature) error
}

// LoopConfig wires one capture loop instance.
type LoopConfig struct {
	Source     Source
	Detector   vision.Detector
	Identities Identities
	Hub        *framehub.Hub[Update]
	Metrics    *observability.Metrics
	Interval   time.Duration

	EnrollAttempts int
	EnrollTimeout  time.Duration

	// OnRecognized fires for every frame with a recognized name.
	OnRecognized func(name string)

	Log zerolog.Logger
}

// Loop owns the capture source for its lifetime and drives the
// detect-match-publish cycle on a fixed cadence. One producer goroutine;
// the interactive side only talks to it through Stop, Enroll and the hub.
type Loop struct {
	cfg LoopConfig
	log zerolog.Logger

	mu      sync.Mutex
	state   State
	stopCh  chan struct{}
	done    chan struct{}
	started bool
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = 50 * time.Millisecond
	}
	if cfg.EnrollAttempts <= 0 {
		cfg.EnrollAttempts = 10
	}
	if cfg.EnrollTimeout <= 0 {
		cfg.EnrollTimeout = 10 * time.Second
	}
	return &Loop{
		cfg:    cfg,
		log:    cfg.Log.With().Str("component", "camera").Logger(),
		state:  StateIdle,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// State reports the loop lifecycle state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Start claims the capture device and launches the cycle goroutine.
// A source that cannot be opened is fatal to this loop instance; the
// refresh operation builds a new one.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.state != StateIdle {
		l.mu.Unlock()
		return ErrAlreadyStarted
	}
	if err := l.cfg.Source.Open(ctx); err != nil {
		l.state = StateStopped
		l.mu.Unlock()
		return fmt.Errorf("open capture source: %w", err)
	}
	l.state = StateRunning
	l.started = true
	l.mu.Unlock()

	go l.run(ctx)
	l.log.Info().Dur("interval", l.cfg.Interval).Str("detector", l.cfg.Detector.Name()).Msg("capture loop started")
	return nil
}

// Stop signals termination and blocks until the cycle goroutine has
// exited and the device is released. Safe to call multiple times; a
// second call just waits for the first to finish. Stopping never
// interrupts an in-flight cycle, it only prevents the next one.
func (l *Loop) Stop() {
	l.mu.Lock()
	switch l.state {
	case StateIdle:
		l.state = StateStopped
		l.mu.Unlock()
		return
	case StateRunning:
		l.state = StateStopping
		close(l.stopCh)
	}
	started := l.started
	l.mu.Unlock()

	if started {
		<-l.done
	}
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	defer func() {
		if err := l.cfg.Source.Close(); err != nil {
			l.log.Error().Err(err).Msg("close capture source")
		}
		l.mu.Lock()
		l.state = StateStopped
		l.mu.Unlock()
		l.log.Info().Msg("capture loop stopped")
	}()

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.cycle(ctx)
		}
	}
}

func (l *Loop) cycle(ctx context.Context) {
	cycleStart := time.Now()

	frame, err := l.cfg.Source.Read(ctx)
	l.observeSince(observability.StageGrab, cycleStart)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, ErrSourceClosed) {
			return
		}
		// Skip the cycle, no retry policy beyond the next tick.
		l.cfg.Metrics.FramesSkipped.Inc()
		l.log.Debug().Err(err).Msg("frame grab failed, skipping cycle")
		return
	}
	l.cfg.Metrics.FramesCaptured.Inc()

	gray := frame.Gray()

	detectStart := time.Now()
	regions := l.cfg.Detector.Detect(gray)
	l.observeSince(observability.StageDetect, detectStart)

	name := ""
	if len(regions) == 0 {
		l.cfg.Metrics.Recognitions.WithLabelValues("no_face").Inc()
	} else {
		encodeStart := time.Now()
		sigs := l.cfg.Detector.Encode(gray, regions)
		l.observeSince(observability.StageEncode, encodeStart)

		matchStart := time.Now()
		for _, sig := range sigs {
			if match, ok := l.cfg.Identities.Match(sig); ok {
				name = match
				break
			}
		}
		l.observeSince(observability.StageMatch, matchStart)

		if name != "" {
			l.cfg.Metrics.Recognitions.WithLabelValues("recognized").Inc()
			if l.cfg.OnRecognized != nil {
				l.cfg.OnRecognized(name)
			}
		} else {
			l.cfg.Metrics.Recognitions.WithLabelValues("unknown").Inc()
		}
	}

	l.cfg.Hub.Publish(Update{Frame: frame, Name: name, Regions: regions})
	l.observeSince(observability.StageCycle, cycleStart)
}

func (l *Loop) observeSince(stage string, start time.Time) {
	l.cfg.Metrics.ObserveStage(stage, float64(time.Since(start).Microseconds())/1000)
}

// Enroll gathers candidate signatures for one registration attempt and
// hands them to the identity store. Frames are sampled through the hub so
// the loop keeps exclusive ownership of the device; only frames showing
// exactly one face contribute a candidate.
func (l *Loop) Enroll(ctx context.Context, name string) error {
	if l.State() != StateRunning {
		return ErrNotRunning
	}

	subID := "enroll-" + uuid.NewString()
	recv, err := l.cfg.Hub.Subscribe(subID)
	if err != nil {
		return fmt.Errorf("enroll %s: %w", name, err)
	}
	defer func() { _ = l.cfg.Hub.Unsubscribe(subID) }()

	ctx, cancel := context.WithTimeout(ctx, l.cfg.EnrollTimeout)
	defer cancel()

	var candidates []vision.Signature
	attempts := 0
	for attempts < l.cfg.EnrollAttempts {
		select {
		case <-ctx.Done():
			attempts = l.cfg.EnrollAttempts
		case <-recv.Notify():
			upd, fresh := recv.Latest()
			if !fresh {
				continue
			}
			attempts++
			gray := upd.Frame.Gray()
			regions := l.cfg.Detector.Detect(gray)
			if len(regions) != 1 {
				continue
			}
			if sigs := l.cfg.Detector.Encode(gray, regions); len(sigs) == 1 {
				candidates = append(candidates, sigs[0])
			}
		}
	}

	if len(candidates) == 0 {
		return fmt.Errorf("enroll %s: %w", name, ErrNoFace)
	}
	return l.cfg.Identities.Register(name, candidates)
}
