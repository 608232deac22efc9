// Package monitor runs the per-frame fatigue detection loop.
//
// Each iteration reads a frame, measures its brightness, finds faces,
// advances the debounce state, records and announces any alerts, and
// renders the overlay. The loop is single-threaded; speech runs on the
// announcer's own worker and is reached only through its bounded queue.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-drowsy/pkg/fatigue"
	"github.com/teslashibe/go-drowsy/pkg/frame"
	"github.com/teslashibe/go-drowsy/pkg/landmarks"
	"github.com/teslashibe/go-drowsy/pkg/overlay"
)

// ErrCaptureFailed is returned by Run when the camera stops producing frames.
var ErrCaptureFailed = errors.New("monitor: camera stopped producing frames")

// Capture yields frames. The caller closes each frame.
type Capture interface {
	Read() (frame.Frame, error)
}

// Display shows a frame with its overlay.
type Display interface {
	Render(f frame.Frame, s overlay.Scene) error
	QuitRequested() bool
}

// Announcer speaks alert messages without blocking the loop.
type Announcer interface {
	Announce(text string) bool
}

// EventSink records alerts.
type EventSink interface {
	Append(a fatigue.Alert) error
}

// Config holds loop configuration
type Config struct {
	Thresholds fatigue.Thresholds
	Policy     landmarks.Policy

	// MaxReadFailures is how many consecutive failed reads are tolerated
	// before Run gives up. Zero stops on the first failure.
	MaxReadFailures int

	// ReadRetryDelay is the pause after a failed read.
	ReadRetryDelay time.Duration
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		Thresholds:      fatigue.DefaultThresholds(),
		Policy:          landmarks.PolicyPrimary,
		MaxReadFailures: 30,
		ReadRetryDelay:  10 * time.Millisecond,
	}
}

// Deps are the collaborators the loop drives. Capture, Source and Display
// are required.
type Deps struct {
	Capture   Capture
	Source    landmarks.Source
	Display   Display
	Announcer Announcer
	Events    EventSink
	Logger    *slog.Logger

	// Now stamps alerts. Defaults to time.Now.
	Now func() time.Time
}

// Stats counts what the loop has done so far.
type Stats struct {
	Frames         int64 `json:"frames"`
	FramesWithFace int64 `json:"frames_with_face"`
	Alerts         int64 `json:"alerts"`
	ReadFailures   int64 `json:"read_failures"`
	DetectErrors   int64 `json:"detect_errors"`
	LogErrors      int64 `json:"log_errors"`
	Unannounced    int64 `json:"unannounced"` // rejected by the announcer
}

// Monitor owns the debounce state and the loop.
type Monitor struct {
	config Config
	deps   Deps
	logger *slog.Logger

	mu    sync.RWMutex
	state fatigue.State
	stats Stats

	logWarned    bool
	renderWarned bool
}

// New validates the configuration and builds a monitor.
func New(cfg Config, deps Deps) (*Monitor, error) {
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("thresholds: %w", err)
	}
	if cfg.MaxReadFailures < 0 {
		return nil, fmt.Errorf("max read failures must be >= 0, got %d", cfg.MaxReadFailures)
	}
	switch {
	case deps.Capture == nil:
		return nil, errors.New("monitor: capture is required")
	case deps.Source == nil:
		return nil, errors.New("monitor: landmark source is required")
	case deps.Display == nil:
		return nil, errors.New("monitor: display is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Monitor{
		config: cfg,
		deps:   deps,
		logger: deps.Logger.With("component", "monitor"),
	}, nil
}

// Run processes frames until ctx is done, the user quits, or the camera
// fails. Quitting and cancellation return nil.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("monitor started",
		"policy", m.config.Policy,
		"eye_frames", m.config.Thresholds.EyeFrames,
		"yawn_frames", m.config.Thresholds.YawnFrames,
	)

	failures := 0
	for {
		if ctx.Err() != nil {
			m.logger.Info("monitor stopped", "reason", "context done")
			return nil
		}

		f, err := m.deps.Capture.Read()
		if err != nil {
			failures++
			m.mu.Lock()
			m.stats.ReadFailures++
			m.mu.Unlock()

			if failures > m.config.MaxReadFailures {
				return fmt.Errorf("%w: %d consecutive failures: %v", ErrCaptureFailed, failures, err)
			}
			m.logger.Debug("frame read failed, retrying", "attempt", failures, "error", err)
			if !sleep(ctx, m.config.ReadRetryDelay) {
				return nil
			}
			continue
		}
		failures = 0

		quit := m.process(f)
		if err := f.Close(); err != nil {
			m.logger.Debug("frame close failed", "error", err)
		}
		if quit {
			m.logger.Info("monitor stopped", "reason", "quit key")
			return nil
		}
	}
}

// process handles one frame and reports whether the user asked to quit.
func (m *Monitor) process(f frame.Frame) bool {
	brightness := f.Brightness()

	faces, err := m.deps.Source.Detect(f)
	if err != nil {
		m.logger.Debug("landmark detection failed", "error", err)
		faces = nil
	}

	m.mu.Lock()
	state, res := fatigue.Step(m.state, m.config.Thresholds, m.config.Policy, fatigue.Sample{
		Time:       m.deps.Now(),
		Brightness: brightness,
		Faces:      faces,
	})
	m.state = state
	m.stats.Frames++
	if err != nil {
		m.stats.DetectErrors++
	}
	if len(faces) > 0 {
		m.stats.FramesWithFace++
	}
	m.stats.Alerts += int64(len(res.Alerts))
	m.mu.Unlock()

	for _, a := range res.Alerts {
		m.record(a)
	}

	if err := m.deps.Display.Render(f, overlay.Build(res)); err != nil && !m.renderWarned {
		m.renderWarned = true
		m.logger.Warn("render failed", "error", err)
	}
	return m.deps.Display.QuitRequested()
}

// record logs and announces one alert. Failures never stop the loop.
func (m *Monitor) record(a fatigue.Alert) {
	attrs := []any{"event", a.Kind.String(), "fatigue_index", a.FatigueIndex}
	if a.HasEAR {
		attrs = append(attrs, "ear", a.EAR)
	}
	if a.HasMAR {
		attrs = append(attrs, "mar", a.MAR)
	}
	m.logger.Info("alert", attrs...)

	if m.deps.Events != nil {
		if err := m.deps.Events.Append(a); err != nil {
			m.mu.Lock()
			m.stats.LogErrors++
			m.mu.Unlock()
			if !m.logWarned {
				m.logWarned = true
				m.logger.Warn("event log write failed, continuing without it", "error", err)
			}
		}
	}

	if m.deps.Announcer != nil && !m.deps.Announcer.Announce(a.Kind.Message()) {
		m.mu.Lock()
		m.stats.Unannounced++
		m.mu.Unlock()
	}
}

// State returns the current debounce state.
func (m *Monitor) State() fatigue.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Stats returns a snapshot of the counters.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
