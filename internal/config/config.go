// Package config loads go-drowsy settings from defaults, an optional .env
// file and DROWSY_* environment variables. Command-line flags are applied
// on top by the caller, then the result is validated.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Environment variables read by Load.
const (
	EnvCamera         = "DROWSY_CAMERA"
	EnvPreset         = "DROWSY_PRESET"
	EnvVideo          = "DROWSY_VIDEO"
	EnvEventLog       = "DROWSY_EVENT_LOG"
	EnvLogLevel       = "DROWSY_LOG_LEVEL"
	EnvAppLog         = "DROWSY_APP_LOG"
	EnvFaceModel      = "DROWSY_FACE_MODEL"
	EnvLandmarkModel  = "DROWSY_LANDMARK_MODEL"
	EnvPolicy         = "DROWSY_POLICY"
	EnvHeadless       = "DROWSY_HEADLESS"
	EnvSpeechCmd      = "DROWSY_SPEECH_CMD"
	EnvSpeechCooldown = "DROWSY_SPEECH_COOLDOWN"
	EnvSpeechTimeout  = "DROWSY_SPEECH_TIMEOUT"
)

// Config is the full runtime configuration.
type Config struct {
	CameraID  int    `validate:"gte=0"`
	Preset    string `validate:"required"`
	VideoFile string

	EventLog string `validate:"required"`
	LogLevel string `validate:"oneof=debug info warn warning error"`
	AppLog   string

	FaceModel     string `validate:"required"`
	LandmarkModel string `validate:"required"`
	Policy        string `validate:"oneof=primary all"`

	Headless bool

	// SpeechCmd overrides TTS program detection, e.g. "espeak-ng -s 150".
	SpeechCmd      string
	SpeechCooldown time.Duration `validate:"gte=0s"`
	SpeechTimeout  time.Duration `validate:"gt=0s"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		CameraID:      0,
		Preset:        "default",
		EventLog:      "drowsiness_log.csv",
		LogLevel:      "info",
		FaceModel:     "models/face_detection_yunet.onnx",
		LandmarkModel: "models/face_landmarks_68.onnx",
		Policy:        "primary",
		SpeechTimeout: 15 * time.Second,
	}
}

// Load reads the given .env files (".env" when none are named; a missing
// file is not an error) and applies DROWSY_* overrides to the defaults.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()
	var errs []error

	cfg.CameraID = getEnvInt(EnvCamera, cfg.CameraID, &errs)
	cfg.Preset = getEnv(EnvPreset, cfg.Preset)
	cfg.VideoFile = getEnv(EnvVideo, cfg.VideoFile)
	cfg.EventLog = getEnv(EnvEventLog, cfg.EventLog)
	cfg.LogLevel = strings.ToLower(getEnv(EnvLogLevel, cfg.LogLevel))
	cfg.AppLog = getEnv(EnvAppLog, cfg.AppLog)
	cfg.FaceModel = getEnv(EnvFaceModel, cfg.FaceModel)
	cfg.LandmarkModel = getEnv(EnvLandmarkModel, cfg.LandmarkModel)
	cfg.Policy = strings.ToLower(getEnv(EnvPolicy, cfg.Policy))
	cfg.Headless = getEnvBool(EnvHeadless, cfg.Headless, &errs)
	cfg.SpeechCmd = getEnv(EnvSpeechCmd, cfg.SpeechCmd)
	cfg.SpeechCooldown = getEnvDuration(EnvSpeechCooldown, cfg.SpeechCooldown, &errs)
	cfg.SpeechTimeout = getEnvDuration(EnvSpeechTimeout, cfg.SpeechTimeout, &errs)

	return cfg, errors.Join(errs...)
}

var validate = validator.New()

// Validate checks every field and reports all problems at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultVal
	}
	return n
}

func getEnvBool(key string, defaultVal bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultVal
	}
	return d
}
