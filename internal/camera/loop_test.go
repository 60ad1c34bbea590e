package camera

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"visavis/internal/framehub"
	"visavis/internal/identity"
	"visavis/internal/observability"
	"visavis/internal/vision"
)

func testMetrics(name string) *observability.Metrics {
	return observability.NewMetrics(fmt.Sprintf("test_camera_%s_%s", name, time.Now().Format("150405000000000")))
}

func testLoop(t *testing.T, name string, source Source) (*Loop, *framehub.Hub[Update], *identity.Store) {
	t.Helper()
	store := identity.NewStore(filepath.Join(t.TempDir(), "identities.json"), 0.6, zerolog.Nop())
	hub := framehub.New[Update]()
	loop := NewLoop(LoopConfig{
		Source:         source,
		Detector:       vision.NewStubDetector(),
		Identities:     store,
		Hub:            hub,
		Metrics:        testMetrics(name),
		Interval:       5 * time.Millisecond,
		EnrollAttempts: 5,
		EnrollTimeout:  3 * time.Second,
		Log:            zerolog.Nop(),
	})
	return loop, hub, store
}

func waitForUpdate(t *testing.T, recv *framehub.Receiver[Update], timeout time.Duration, accept func(Update) bool) Update {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case <-deadline:
			t.Fatalf("no matching update within %v", timeout)
		case <-recv.Notify():
			if upd, fresh := recv.Latest(); fresh && accept(upd) {
				return upd
			}
		}
	}
}

func TestLoopPublishesFrames(t *testing.T) {
	loop, hub, _ := testLoop(t, "publish", NewSimSource(320, 240))
	recv, err := hub.Subscribe("test")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer loop.Stop()

	upd := waitForUpdate(t, recv, 2*time.Second, func(Update) bool { return true })
	if upd.Frame.Width != 320 || upd.Frame.Height != 240 {
		t.Fatalf("frame dimensions = %dx%d, want 320x240", upd.Frame.Width, upd.Frame.Height)
	}
	if upd.Name != "" {
		t.Fatalf("Name = %q with an empty identity store, want empty", upd.Name)
	}
	if len(upd.Regions) != 1 {
		t.Fatalf("Regions = %d, want the sim blob detected", len(upd.Regions))
	}
}

func TestLoopStopIsIdempotentAndReleasesSource(t *testing.T) {
	source := NewSimSource(320, 240)
	loop, _, _ := testLoop(t, "stop", source)

	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	loop.Stop()
	loop.Stop()

	if got := loop.State(); got != StateStopped {
		t.Fatalf("State() = %q, want %q", got, StateStopped)
	}
	if _, err := source.Read(context.Background()); !errors.Is(err, ErrSourceNotOpen) {
		t.Fatalf("Read() after stop error = %v, want ErrSourceNotOpen (device released)", err)
	}
}

func TestLoopStopWithoutStart(t *testing.T) {
	loop, _, _ := testLoop(t, "never_started", NewSimSource(320, 240))
	loop.Stop()
	loop.Stop()
	if got := loop.State(); got != StateStopped {
		t.Fatalf("State() = %q, want %q", got, StateStopped)
	}
}

// flakySource fails every other grab.
type flakySource struct {
	inner *SimSource
	reads int
}

func (f *flakySource) Open(ctx context.Context) error { return f.inner.Open(ctx) }
func (f *flakySource) Close() error                   { return f.inner.Close() }

func (f *flakySource) Read(ctx context.Context) (Frame, error) {
	f.reads++
	if f.reads%2 == 0 {
		return Frame{}, errors.New("transient grab failure")
	}
	return f.inner.Read(ctx)
}

func TestLoopSkipsFailedGrabs(t *testing.T) {
	loop, hub, _ := testLoop(t, "flaky", &flakySource{inner: NewSimSource(320, 240)})
	recv, err := hub.Subscribe("test")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer loop.Stop()

	// Failed grabs skip the cycle; successful ones still come through.
	for i := 0; i < 3; i++ {
		waitForUpdate(t, recv, 2*time.Second, func(Update) bool { return true })
	}
}

func TestEnrollThenRecognize(t *testing.T) {
	loop, hub, store := testLoop(t, "enroll", NewSimSource(320, 240))

	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer loop.Stop()

	if err := loop.Enroll(context.Background(), "alice"); err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	if store.Count() != 1 {
		t.Fatalf("Count() = %d after enrollment, want 1", store.Count())
	}

	recv, err := hub.Subscribe("test")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	upd := waitForUpdate(t, recv, 3*time.Second, func(u Update) bool { return u.Name != "" })
	if upd.Name != "alice" {
		t.Fatalf("recognized name = %q, want alice", upd.Name)
	}
}

func TestEnrollRequiresRunningLoop(t *testing.T) {
	loop, _, _ := testLoop(t, "enroll_idle", NewSimSource(320, 240))
	if err := loop.Enroll(context.Background(), "alice"); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Enroll() on idle loop error = %v, want ErrNotRunning", err)
	}
}

// blankSource produces flat frames the stub detector finds nothing in.
type blankSource struct{ SimSource }

func (b *blankSource) Read(ctx context.Context) (Frame, error) {
	f, err := b.SimSource.Read(ctx)
	if err != nil {
		return Frame{}, err
	}
	for i := range f.Pix {
		if i%4 == 3 {
			f.Pix[i] = 0xff
		} else {
			f.Pix[i] = 0
		}
	}
	return f, nil
}

func TestEnrollFailsWithoutAFace(t *testing.T) {
	src := &blankSource{SimSource: *NewSimSource(320, 240)}
	loop, _, store := testLoop(t, "enroll_noface", src)
	loop.cfg.EnrollTimeout = 500 * time.Millisecond

	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer loop.Stop()

	if err := loop.Enroll(context.Background(), "ghost"); !errors.Is(err, ErrNoFace) {
		t.Fatalf("Enroll() error = %v, want ErrNoFace", err)
	}
	if store.Count() != 0 {
		t.Fatalf("Count() = %d after failed enrollment, want 0 (no partial record)", store.Count())
	}
}
