// Package dnn finds faces and their 68-point landmarks with OpenCV's DNN
// module.
//
// Face boxes come from YuNet (gocv.FaceDetectorYN). Each box is cropped to
// a square, fed through an ONNX landmark regressor, and the 136 outputs
// (x,y pairs normalized to the crop) are mapped back to frame pixels.
package dnn

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"github.com/teslashibe/go-drowsy/pkg/frame"
	"github.com/teslashibe/go-drowsy/pkg/landmarks"
	"gocv.io/x/gocv"
)

var (
	// ErrNoImage is returned when a frame carries no decodable image.
	ErrNoImage = errors.New("dnn: frame has no image")

	// ErrOutputSize is returned when the landmark net does not produce 136 values.
	ErrOutputSize = errors.New("dnn: unexpected landmark output size")
)

// Config holds detector configuration
type Config struct {
	FaceModelPath     string  // YuNet ONNX model
	LandmarkModelPath string  // 68-point landmark ONNX model
	ConfidenceThresh  float64 // Minimum face score (default 0.6)
	InputWidth        int     // Initial YuNet input width
	InputHeight       int     // Initial YuNet input height
	LandmarkInputSize int     // Square input side of the landmark net

	// CropPadding enlarges each face box before cropping, as a fraction
	// of its longer side.
	CropPadding float64
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		FaceModelPath:     "models/face_detection_yunet.onnx",
		LandmarkModelPath: "models/face_landmarks_68.onnx",
		ConfidenceThresh:  0.6,
		InputWidth:        320,
		InputHeight:       320,
		LandmarkInputSize: 112,
		CropPadding:       0.1,
	}
}

// Detector implements landmarks.Source.
type Detector struct {
	faces  gocv.FaceDetectorYN
	net    gocv.Net
	config Config
	logger *slog.Logger
	mu     sync.Mutex // Protects inference
}

// New loads both models. A missing model file is an error.
func New(cfg Config) (*Detector, error) {
	for _, path := range []string{cfg.FaceModelPath, cfg.LandmarkModelPath} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("model file not found: %s", path)
		}
	}
	if cfg.LandmarkInputSize <= 0 {
		return nil, fmt.Errorf("landmark input size must be positive, got %d", cfg.LandmarkInputSize)
	}

	net := gocv.ReadNetFromONNX(cfg.LandmarkModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load landmark model from %s", cfg.LandmarkModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	faces := gocv.NewFaceDetectorYNWithParams(
		cfg.FaceModelPath,
		"",
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ConfidenceThresh),
		0.3,  // NMS threshold
		5000, // Top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &Detector{
		faces:  faces,
		net:    net,
		config: cfg,
		logger: slog.Default().With("component", "landmarks.dnn"),
	}, nil
}

type matFrame interface {
	Mat() *gocv.Mat
}

// Detect returns every face YuNet finds, with landmarks. Faces whose
// landmark pass fails are skipped and logged.
func (d *Detector) Detect(f frame.Frame) ([]landmarks.Face, error) {
	mf, ok := f.(matFrame)
	if !ok {
		return nil, ErrNoImage
	}
	img := mf.Mat()
	if img == nil || img.Empty() {
		return nil, ErrNoImage
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.faces.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	rows := gocv.NewMat()
	defer rows.Close()
	d.faces.Detect(*img, &rows)

	bounds := image.Rect(0, 0, img.Cols(), img.Rows())
	var out []landmarks.Face
	for r := 0; r < rows.Rows(); r++ {
		// YuNet rows: x, y, w, h, 5 landmark pairs, score
		box := landmarks.Rect{
			X: float64(rows.GetFloatAt(r, 0)),
			Y: float64(rows.GetFloatAt(r, 1)),
			W: float64(rows.GetFloatAt(r, 2)),
			H: float64(rows.GetFloatAt(r, 3)),
		}
		score := float64(rows.GetFloatAt(r, 14))

		crop := squareCrop(box, d.config.CropPadding, bounds)
		if crop.Empty() {
			continue
		}
		shape, err := d.landmarks(*img, crop)
		if err != nil {
			d.logger.Debug("landmark pass failed", "face", r, "error", err)
			continue
		}
		face, err := landmarks.FromShape68(shape)
		if err != nil {
			continue
		}
		face.Box = box
		face.Score = score
		out = append(out, face)
	}
	return out, nil
}

// landmarks runs the regressor on one crop and returns frame coordinates.
func (d *Detector) landmarks(img gocv.Mat, crop image.Rectangle) ([]landmarks.Point, error) {
	region := img.Region(crop)
	defer region.Close()

	side := d.config.LandmarkInputSize
	blob := gocv.BlobFromImage(region, 1.0/255.0, image.Pt(side, side), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read landmark output: %w", err)
	}
	return toFrame(data, crop)
}

// toFrame maps normalized (x,y) pairs inside crop to frame pixels.
func toFrame(data []float32, crop image.Rectangle) ([]landmarks.Point, error) {
	if len(data) < 2*landmarks.Shape68 {
		return nil, fmt.Errorf("%w: got %d", ErrOutputSize, len(data))
	}
	w, h := float64(crop.Dx()), float64(crop.Dy())
	pts := make([]landmarks.Point, landmarks.Shape68)
	for i := range pts {
		pts[i] = landmarks.Point{
			X: float64(crop.Min.X) + float64(data[2*i])*w,
			Y: float64(crop.Min.Y) + float64(data[2*i+1])*h,
		}
	}
	return pts, nil
}

// squareCrop grows box to a padded square around its center, clipped to
// the image.
func squareCrop(box landmarks.Rect, padding float64, bounds image.Rectangle) image.Rectangle {
	side := box.W
	if box.H > side {
		side = box.H
	}
	side *= 1 + 2*padding
	cx, cy := box.X+box.W/2, box.Y+box.H/2
	r := image.Rect(
		int(cx-side/2), int(cy-side/2),
		int(cx+side/2), int(cy+side/2),
	)
	return r.Intersect(bounds)
}

// Close releases both models.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faces.Close()
	return d.net.Close()
}

// Verify Detector implements landmarks.Source at compile time.
var _ landmarks.Source = (*Detector)(nil)
