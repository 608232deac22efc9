// Package landmarks provides the facial landmark data model used by the
// fatigue estimator, plus the policy for picking a face when several are
// visible.
package landmarks

import (
	"errors"
	"fmt"
	"math"

	"github.com/teslashibe/go-drowsy/pkg/frame"
)

// Point counts per feature, following the 68-point iBUG convention.
const (
	EyePoints = 6
	LipPoints = 6

	// MouthPoints is TopLip followed by BottomLip.
	MouthPoints = 2 * LipPoints

	Shape68 = 68
)

// Start indices of each feature inside a 68-point shape.
const (
	LeftEyeStart   = 36
	RightEyeStart  = 42
	TopLipStart    = 48
	BottomLipStart = 54
)

// ErrShapeSize is returned when a shape does not carry 68 points.
var ErrShapeSize = errors.New("landmarks: shape must have 68 points")

// Point is a 2-D landmark coordinate in frame pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a face bounding box in frame pixels.
type Rect struct {
	X, Y, W, H float64
}

// Area returns the area of the bounding box
func (r Rect) Area() float64 {
	return r.W * r.H
}

// Face holds the named landmark sequences for one detected face.
type Face struct {
	LeftEye   []Point `json:"left_eye"`
	RightEye  []Point `json:"right_eye"`
	TopLip    []Point `json:"top_lip"`
	BottomLip []Point `json:"bottom_lip"`

	Box   Rect    `json:"box"`
	Score float64 `json:"score"`
}

// Mouth returns the 12-point mouth contour: TopLip followed by BottomLip.
// The order matters, MAR reads fixed index positions.
func (f Face) Mouth() []Point {
	mouth := make([]Point, 0, len(f.TopLip)+len(f.BottomLip))
	mouth = append(mouth, f.TopLip...)
	return append(mouth, f.BottomLip...)
}

// FromShape68 slices a full 68-point shape into a Face.
func FromShape68(shape []Point) (Face, error) {
	if len(shape) != Shape68 {
		return Face{}, fmt.Errorf("%w: got %d", ErrShapeSize, len(shape))
	}
	cp := func(start, n int) []Point {
		out := make([]Point, n)
		copy(out, shape[start:start+n])
		return out
	}
	return Face{
		LeftEye:   cp(LeftEyeStart, EyePoints),
		RightEye:  cp(RightEyeStart, EyePoints),
		TopLip:    cp(TopLipStart, LipPoints),
		BottomLip: cp(BottomLipStart, LipPoints),
		Box:       bounds(shape),
	}, nil
}

// bounds returns the tight box around a set of points.
func bounds(pts []Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Source finds faces and their landmarks in a frame.
type Source interface {
	// Detect returns zero or more faces. An empty result is not an error.
	Detect(f frame.Frame) ([]Face, error)

	// Close releases resources
	Close() error
}
