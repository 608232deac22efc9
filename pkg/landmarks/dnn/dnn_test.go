package dnn

import (
	"errors"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/teslashibe/go-drowsy/pkg/landmarks"
)

func TestNewInvalidPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FaceModelPath = "/nonexistent/path/yunet.onnx"

	if _, err := New(cfg); err == nil {
		t.Error("Expected error for invalid model path")
	}
}

func TestSquareCrop(t *testing.T) {
	bounds := image.Rect(0, 0, 640, 480)

	tests := []struct {
		name    string
		box     landmarks.Rect
		padding float64
		want    image.Rectangle
	}{
		{
			name: "square box no padding",
			box:  landmarks.Rect{X: 100, Y: 100, W: 50, H: 50},
			want: image.Rect(100, 100, 150, 150),
		},
		{
			name: "tall box becomes square",
			box:  landmarks.Rect{X: 100, Y: 100, W: 40, H: 80},
			want: image.Rect(80, 100, 160, 180),
		},
		{
			name:    "padding grows both sides",
			box:     landmarks.Rect{X: 100, Y: 100, W: 100, H: 100},
			padding: 0.1,
			want:    image.Rect(90, 90, 210, 210),
		},
		{
			name: "clipped at the frame edge",
			box:  landmarks.Rect{X: -20, Y: 440, W: 60, H: 60},
			want: image.Rect(0, 440, 40, 480),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := squareCrop(tc.box, tc.padding, bounds); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestToFrame(t *testing.T) {
	crop := image.Rect(100, 50, 200, 150)
	data := make([]float32, 2*landmarks.Shape68)
	for i := 0; i < landmarks.Shape68; i++ {
		data[2*i] = 0.5
		data[2*i+1] = 0.25
	}
	data[0], data[1] = 0, 1

	pts, err := toFrame(data, crop)
	if err != nil {
		t.Fatalf("toFrame: %v", err)
	}
	if len(pts) != landmarks.Shape68 {
		t.Fatalf("got %d points", len(pts))
	}
	if pts[0] != (landmarks.Point{X: 100, Y: 150}) {
		t.Errorf("point 0: got %+v", pts[0])
	}
	if math.Abs(pts[1].X-150) > 1e-6 || math.Abs(pts[1].Y-75) > 1e-6 {
		t.Errorf("point 1: got %+v", pts[1])
	}

	if _, err := toFrame(data[:10], crop); !errors.Is(err, ErrOutputSize) {
		t.Errorf("short output: expected ErrOutputSize, got %v", err)
	}
}

func TestDetectorNew(t *testing.T) {
	face, marks := findModelPaths()
	if face == "" || marks == "" {
		t.Skip("models not found, skipping test")
	}

	cfg := DefaultConfig()
	cfg.FaceModelPath = face
	cfg.LandmarkModelPath = marks

	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	if _, err := d.Detect(stubFrame{}); !errors.Is(err, ErrNoImage) {
		t.Errorf("expected ErrNoImage for a frame without a mat, got %v", err)
	}
}

type stubFrame struct{}

func (stubFrame) Brightness() float64 { return 0 }
func (stubFrame) Close() error        { return nil }

// findModelPaths looks for the models relative to the test location.
func findModelPaths() (face, marks string) {
	for _, dir := range []string{"models", "../../../models", "../../../../models"} {
		f := filepath.Join(dir, "face_detection_yunet.onnx")
		m := filepath.Join(dir, "face_landmarks_68.onnx")
		if exists(f) && exists(m) {
			return f, m
		}
	}
	return "", ""
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
