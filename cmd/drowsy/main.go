// drowsy watches a webcam for signs of driver fatigue.
// Closed eyes held for 10 frames raise a drowsiness alert, a mouth held
// open for 2 frames raises a yawn alert. Alerts are spoken, drawn on the
// video window and appended to a CSV log.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/teslashibe/go-drowsy/internal/config"
	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/camera"
)

func init() {
	// The preview window must be driven from the main OS thread.
	runtime.LockOSThread()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := parseFlags()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	log.Init(log.Options{Level: cfg.LogLevel, File: cfg.AppLog})
	log.Debug("configuration loaded",
		"camera", cfg.CameraID,
		"preset", cfg.Preset,
		"video", cfg.VideoFile,
		"event_log", cfg.EventLog,
		"face_model", cfg.FaceModel,
		"landmark_model", cfg.LandmarkModel,
		"speech_cooldown", cfg.SpeechCooldown,
		"speech_timeout", cfg.SpeechTimeout,
	)
	if cfg.NoSpeech && cfg.SpeechCmd != "" {
		log.Warn("speech disabled, ignoring speech command", "speech_cmd", cfg.SpeechCmd)
	}

	app, err := New(cfg)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	defer app.Shutdown()

	if err := app.Init(); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		return fmt.Errorf("runtime error: %w", err)
	}
	log.Info("monitor exited cleanly")
	return nil
}

// parseFlags loads .env and DROWSY_* settings, then applies flags on top.
func parseFlags() (Config, error) {
	base, err := config.Load()
	if err != nil {
		return Config{}, err
	}

	cameraID := flag.Int("camera", base.CameraID, "Camera device index")
	preset := flag.String("preset", base.Preset, "Camera preset: "+strings.Join(camera.PresetNames(), ", "))
	video := flag.String("video", base.VideoFile, "Replay a video file instead of the camera")
	eventLog := flag.String("log-file", base.EventLog, "CSV file that alerts are appended to")
	appLog := flag.String("app-log", base.AppLog, "Also write application logs to this rotating file")
	faceModel := flag.String("face-model", base.FaceModel, "YuNet face detection ONNX model")
	landmarkModel := flag.String("landmark-model", base.LandmarkModel, "68-point landmark ONNX model")
	policy := flag.String("policy", base.Policy, "Which faces feed the alerts: primary (largest face) or all")
	headless := flag.Bool("headless", base.Headless, "Run without a preview window")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	speechCmd := flag.String("speech-cmd", base.SpeechCmd, "TTS command line, e.g. \"espeak-ng -s 150\" (default: auto-detect)")
	speechCooldown := flag.Duration("speech-cooldown", base.SpeechCooldown, "Minimum time between spoken alerts (0 = no limit)")
	speechTimeout := flag.Duration("speech-timeout", base.SpeechTimeout, "Longest a single spoken alert may take")
	noSpeech := flag.Bool("no-speech", false, "Disable spoken alerts")
	flag.Parse()

	cfg := Config{Config: base}
	cfg.CameraID = *cameraID
	cfg.Preset = *preset
	cfg.VideoFile = *video
	cfg.EventLog = *eventLog
	cfg.AppLog = *appLog
	cfg.FaceModel = *faceModel
	cfg.LandmarkModel = *landmarkModel
	cfg.Policy = strings.ToLower(*policy)
	cfg.Headless = *headless
	cfg.SpeechCmd = *speechCmd
	cfg.SpeechCooldown = *speechCooldown
	cfg.SpeechTimeout = *speechTimeout
	cfg.NoSpeech = *noSpeech
	if *debug {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}
