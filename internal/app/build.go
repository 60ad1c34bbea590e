package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"visavis/internal/camera"
	"visavis/internal/chat"
	"visavis/internal/config"
	"visavis/internal/framehub"
	"visavis/internal/httpapi"
	"visavis/internal/identity"
	"visavis/internal/memory"
	"visavis/internal/observability"
	"visavis/internal/presence"
	"visavis/internal/protocol"
	"visavis/internal/vision"
)

// BuildResult holds the wired service graph.
type BuildResult struct {
	Config     config.Config
	API        *httpapi.Server
	Camera     *camera.Service
	Presence   *presence.Tracker
	Chat       *chat.Manager
	Identities *identity.Store
	Frames     *framehub.Hub[camera.Update]
	Metrics    *observability.Metrics

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

// Build assembles the whole service from configuration. The camera loop
// is built but not started; callers decide when capture begins.
func Build(ctx context.Context, cfg config.Config, log zerolog.Logger) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	memoryStore, err := memory.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("memory store init failed: %w", err)
	}

	identities := identity.NewStore(cfg.IdentityStorePath, cfg.RecognitionThreshold, log)
	metrics.EnrolledUsers.Set(float64(identities.Count()))

	frames := framehub.New[camera.Update]()
	events := framehub.New[protocol.PresenceEvent]()

	tracker := presence.NewTracker(cfg.PresenceTTL)
	tracker.SetChangeHook(func(p presence.Presence) {
		if p.Present {
			log.Info().Str("name", p.Name).Msg("person recognized")
		} else {
			log.Info().Str("name", p.Name).Msg("person left")
		}
		events.Publish(protocol.PresenceEvent{
			Type:     protocol.TypePresenceEvent,
			Name:     p.Name,
			Present:  p.Present,
			SinceMs:  p.Since.UnixMilli(),
			LastSeen: p.LastSeen.UnixMilli(),
		})
	})

	chatMgr := chat.NewManager(memoryStore, log)

	// The loop factory rebuilds detector and source on every (re)start, so
	// a refresh recovers from a wedged device or a changed cascade file.
	camSvc := camera.NewService(func() (*camera.Loop, error) {
		detector, err := vision.NewDetector(cfg.Detector, cfg.PigoCascadePath)
		if err != nil {
			return nil, fmt.Errorf("detector init failed: %w", err)
		}
		source, err := camera.NewSource(camera.SourceConfig{
			Kind:     cfg.CameraSource,
			MJPEGURL: cfg.CameraMJPEGURL,
			Width:    cfg.FrameWidth,
			Height:   cfg.FrameHeight,
		})
		if err != nil {
			return nil, fmt.Errorf("camera source init failed: %w", err)
		}
		return camera.NewLoop(camera.LoopConfig{
			Source:         source,
			Detector:       detector,
			Identities:     identities,
			Hub:            frames,
			Metrics:        metrics,
			Interval:       cfg.CaptureInterval,
			EnrollAttempts: cfg.EnrollAttempts,
			EnrollTimeout:  cfg.EnrollTimeout,
			OnRecognized:   tracker.Observe,
			Log:            log,
		}), nil
	}, metrics, log)

	api := httpapi.New(cfg, chatMgr, identities, camSvc, tracker, frames, events, metrics, log)

	cleanup := func() error {
		camSvc.Stop()
		frames.Close()
		events.Close()
		return memoryStore.Close()
	}

	return &BuildResult{
		Config:     cfg,
		API:        api,
		Camera:     camSvc,
		Presence:   tracker,
		Chat:       chatMgr,
		Identities: identities,
		Frames:     frames,
		Metrics:    metrics,
		Cleanup:    cleanup,
	}, nil
}
