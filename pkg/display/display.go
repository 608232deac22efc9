// Package display shows processed frames with their overlay.
package display

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/teslashibe/go-drowsy/pkg/frame"
	"github.com/teslashibe/go-drowsy/pkg/landmarks"
	"github.com/teslashibe/go-drowsy/pkg/overlay"
	"gocv.io/x/gocv"
)

// Title is the window caption.
const Title = "Fatigue Detection System"

// ErrNotDrawable is returned when a frame has no image to draw on.
var ErrNotDrawable = errors.New("display: frame has no image")

type matFrame interface {
	Mat() *gocv.Mat
}

// Window draws onto the frame and shows it in a desktop window.
// All methods must be called from the same goroutine that created it.
type Window struct {
	win  *gocv.Window
	quit bool
}

// NewWindow opens the display window.
func NewWindow() *Window {
	return &Window{win: gocv.NewWindow(Title)}
}

// Render draws the scene over the frame and shows it.
func (w *Window) Render(f frame.Frame, s overlay.Scene) error {
	mf, ok := f.(matFrame)
	if !ok {
		return ErrNotDrawable
	}
	img := mf.Mat()
	if img == nil || img.Empty() {
		return ErrNotDrawable
	}

	Draw(img, s)
	w.win.IMShow(*img)

	// WaitKey pumps the window's event loop, so poll it once per frame here.
	switch w.win.WaitKey(1) {
	case 'q', 'Q':
		w.quit = true
	}
	return nil
}

// QuitRequested reports whether 'q' or 'Q' was pressed.
func (w *Window) QuitRequested() bool {
	return w.quit
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}

// Draw paints the scene onto img in place.
func Draw(img *gocv.Mat, s overlay.Scene) {
	for _, p := range s.Polylines {
		if len(p.Points) < 2 {
			continue
		}
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{toImagePoints(p.Points)})
		gocv.Polylines(img, pv, p.Closed, toRGBA(p.Color), 1)
		pv.Close()
	}
	for _, t := range s.Texts {
		gocv.PutText(img, t.Label, image.Pt(t.X, t.Y), gocv.FontHersheySimplex, t.Scale, toRGBA(t.Color), 1)
	}
}

func toRGBA(c overlay.Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

func toImagePoints(pts []landmarks.Point) []image.Point {
	out := make([]image.Point, len(pts))
	for i, p := range pts {
		out[i] = image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
	}
	return out
}

// Headless discards frames. Quitting is left to context cancellation.
type Headless struct{}

// Render does nothing.
func (Headless) Render(frame.Frame, overlay.Scene) error { return nil }

// QuitRequested always returns false.
func (Headless) QuitRequested() bool { return false }

// Close does nothing.
func (Headless) Close() error { return nil }
