package camera

import (
	"errors"
	"fmt"
	"sync"

	"github.com/teslashibe/go-drowsy/pkg/frame"
	"gocv.io/x/gocv"
)

// ErrEmptyFrame is returned when the device yields no image.
// At the end of a replayed file this is returned on every call.
var ErrEmptyFrame = errors.New("camera: empty frame")

// Capture reads frames from a webcam or a video file.
type Capture struct {
	vc     *gocv.VideoCapture
	config Config
	mu     sync.Mutex
}

// Open opens the configured device. A camera that cannot be opened is
// fatal for the caller: without frames nothing else can run.
func Open(cfg Config) (*Capture, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("camera config: %v", errs)
	}

	var (
		vc  *gocv.VideoCapture
		err error
	)
	if cfg.File != "" {
		vc, err = gocv.OpenVideoCapture(cfg.File)
	} else {
		vc, err = gocv.OpenVideoCapture(cfg.DeviceID)
	}
	if err != nil {
		return nil, fmt.Errorf("open camera %s: %w", cfg.Source(), err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open camera %s: device not available", cfg.Source())
	}

	if cfg.File == "" {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
		vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	}

	return &Capture{vc: vc, config: cfg}, nil
}

// Source describes the device or file for logs and errors.
func (c Config) Source() string {
	if c.File != "" {
		return fmt.Sprintf("file %q", c.File)
	}
	return fmt.Sprintf("device %d", c.DeviceID)
}

// Read grabs the next frame. The caller owns the frame and must Close it.
func (c *Capture) Read() (frame.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mat := gocv.NewMat()
	if ok := c.vc.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}
	return FromMat(mat), nil
}

// Config returns the settings the capture was opened with.
func (c *Capture) Config() Config {
	return c.config
}

// Close releases the device.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vc.Close()
}
