package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-drowsy/internal/config"
	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/announce"
	"github.com/teslashibe/go-drowsy/pkg/camera"
	"github.com/teslashibe/go-drowsy/pkg/display"
	"github.com/teslashibe/go-drowsy/pkg/eventlog"
	"github.com/teslashibe/go-drowsy/pkg/landmarks"
	"github.com/teslashibe/go-drowsy/pkg/landmarks/dnn"
	"github.com/teslashibe/go-drowsy/pkg/monitor"
)

// Config is the loaded configuration plus flag-only switches.
type Config struct {
	config.Config
	NoSpeech bool
}

// App owns every resource the monitor loop uses.
type App struct {
	config Config
	logger *slog.Logger

	capture   *camera.Capture
	detector  *dnn.Detector
	window    *display.Window
	events    *eventlog.Log
	speaker   announce.Speaker
	announcer *announce.Announcer
	monitor   *monitor.Monitor
}

// New validates the configuration. Logging must already be initialized.
func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if camera.GetPreset(cfg.Preset) == nil {
		return nil, fmt.Errorf("unknown camera preset %q", cfg.Preset)
	}

	return &App{
		config: cfg,
		logger: log.With("session", uuid.NewString()),
	}, nil
}

// Init acquires the camera, models, event log, display and speaker.
// Anything acquired before a failure is released by Shutdown.
func (a *App) Init() error {
	a.logger.Info("fatigue detection starting",
		"preset", a.config.Preset,
		"policy", a.config.Policy,
		"headless", a.config.Headless,
	)

	policy, err := landmarks.ParsePolicy(a.config.Policy)
	if err != nil {
		return err
	}

	camCfg := *camera.GetPreset(a.config.Preset)
	camCfg.DeviceID = a.config.CameraID
	camCfg.File = a.config.VideoFile
	if a.capture, err = camera.Open(camCfg); err != nil {
		return err
	}
	opened := a.capture.Config()
	a.logger.Info("camera opened", "source", opened.Source(), "width", opened.Width, "height", opened.Height, "fps", opened.Framerate)

	detCfg := dnn.DefaultConfig()
	detCfg.FaceModelPath = a.config.FaceModel
	detCfg.LandmarkModelPath = a.config.LandmarkModel
	if a.detector, err = dnn.New(detCfg); err != nil {
		return fmt.Errorf("landmark models: %w", err)
	}

	// A missing event log degrades the run, it does not stop it.
	if a.events, err = eventlog.Open(a.config.EventLog); err != nil {
		a.logger.Warn("event log unavailable, alerts will not be recorded", "path", a.config.EventLog, "error", err)
		a.events = nil
	} else {
		a.logger.Info("event log opened", "path", a.events.Path())
	}

	if !a.config.Headless {
		a.window = display.NewWindow()
	}

	if !a.config.NoSpeech {
		a.initSpeech()
	}

	monCfg := monitor.DefaultConfig()
	monCfg.Policy = policy
	if a.config.VideoFile != "" {
		// end of a replayed file is not retried
		monCfg.MaxReadFailures = 0
	}

	deps := monitor.Deps{
		Capture: a.capture,
		Source:  a.detector,
		Display: display.Headless{},
		Logger:  a.logger,
	}
	if a.window != nil {
		deps.Display = a.window
	}
	if a.events != nil {
		deps.Events = a.events
	}
	if a.announcer != nil {
		deps.Announcer = a.announcer
	}

	a.monitor, err = monitor.New(monCfg, deps)
	return err
}

func (a *App) initSpeech() {
	var (
		speaker announce.Speaker
		err     error
	)
	if a.config.SpeechCmd != "" {
		speaker, err = announce.ParseCommand(a.config.SpeechCmd)
	} else {
		speaker, err = announce.DetectSpeaker(a.logger)
	}
	if err != nil {
		a.logger.Warn("speech disabled", "error", err)
		return
	}

	a.speaker = speaker
	a.announcer = announce.New(speaker,
		announce.WithCooldown(a.config.SpeechCooldown),
		announce.WithSpeakTimeout(a.config.SpeechTimeout),
		announce.WithLogger(a.logger),
	)
	a.logger.Info("speech enabled", "speaker", speaker.Name())
}

// Run drives the monitor loop on the calling goroutine and the speech
// worker beside it. It returns when the user quits, ctx is cancelled or
// the camera fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	workerCtx, stopWorker := context.WithCancel(gctx)
	defer stopWorker()
	if a.announcer != nil {
		g.Go(func() error {
			return a.announcer.Run(workerCtx)
		})
	}

	loopErr := a.monitor.Run(gctx)
	stopWorker()
	if err := g.Wait(); err != nil && loopErr == nil {
		loopErr = err
	}

	if a.config.VideoFile != "" && errors.Is(loopErr, monitor.ErrCaptureFailed) {
		a.logger.Info("end of video")
		loopErr = nil
	}
	return loopErr
}

// Shutdown releases everything Init acquired, in reverse order.
func (a *App) Shutdown() {
	if a.monitor != nil {
		stats, state := a.monitor.Stats(), a.monitor.State()
		a.logger.Info("session summary",
			"frames", stats.Frames,
			"alerts", stats.Alerts,
			"fatigue_index", state.FatigueIndex,
			"log_errors", stats.LogErrors,
		)
	}

	if a.announcer != nil {
		a.announcer.Close()
		s := a.announcer.Stats()
		a.logger.Debug("speech summary", "spoken", s.Spoken, "failed", s.Failed, "dropped", s.Dropped, "throttled", s.Throttled)
	}
	if a.speaker != nil {
		a.speaker.Close()
	}
	if a.window != nil {
		a.window.Close()
	}
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.logger.Warn("event log close failed", "error", err)
		}
	}
	if a.detector != nil {
		a.detector.Close()
	}
	if a.capture != nil {
		a.capture.Close()
	}

	a.logger.Info("goodbye")
	log.Close()
}
