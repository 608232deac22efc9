package camera

import (
	"github.com/teslashibe/go-drowsy/pkg/frame"
	"gocv.io/x/gocv"
)

// Frame is a BGR image owned by the caller.
type Frame struct {
	mat        gocv.Mat
	brightness float64
}

// FromMat wraps a BGR mat and measures its brightness. The frame takes
// ownership of mat.
func FromMat(mat gocv.Mat) *Frame {
	return &Frame{mat: mat, brightness: meanGray(mat)}
}

// meanGray returns the mean grayscale intensity (0-255).
func meanGray(mat gocv.Mat) float64 {
	if mat.Empty() {
		return 0
	}
	if mat.Channels() == 1 {
		return mat.Mean().Val1
	}
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)
	return gray.Mean().Val1
}

// Mat exposes the image for detection and drawing.
func (f *Frame) Mat() *gocv.Mat {
	return &f.mat
}

// Brightness returns the mean grayscale intensity.
func (f *Frame) Brightness() float64 {
	return f.brightness
}

// Close releases the image buffer.
func (f *Frame) Close() error {
	return f.mat.Close()
}

// Verify Frame implements frame.Frame at compile time.
var _ frame.Frame = (*Frame)(nil)
