// Package fatigue turns facial landmarks into eye/mouth openness ratios and
// runs the debounce counters that decide when to raise drowsiness and yawn
// alerts.
//
// Everything here is pure: state is passed into Step and returned from it,
// so a session can be replayed frame by frame in tests.
package fatigue

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-drowsy/pkg/landmarks"
)

// Sentinel errors for unusable landmark input. Callers treat both as
// "no reading" for the frame.
var (
	ErrTooFewPoints = errors.New("fatigue: too few landmark points")
	ErrDegenerate   = errors.New("fatigue: zero-width contour")
)

// EyeAspectRatio computes EAR over a 6-point eye contour ordered outer
// corner, two upper-lid points, inner corner, two lower-lid points:
//
//	EAR = (|p1-p5| + |p2-p4|) / (2 * |p0-p3|)
func EyeAspectRatio(eye []landmarks.Point) (float64, error) {
	if len(eye) < landmarks.EyePoints {
		return 0, fmt.Errorf("%w: eye has %d, need %d", ErrTooFewPoints, len(eye), landmarks.EyePoints)
	}
	a := landmarks.Distance(eye[1], eye[5])
	b := landmarks.Distance(eye[2], eye[4])
	c := landmarks.Distance(eye[0], eye[3])
	if c == 0 {
		return 0, ErrDegenerate
	}
	return (a + b) / (2 * c), nil
}

// MouthAspectRatio computes MAR over the 12-point top+bottom lip contour:
//
//	MAR = (|p2-p10| + |p4-p8|) / (2 * |p0-p6|)
func MouthAspectRatio(mouth []landmarks.Point) (float64, error) {
	if len(mouth) < landmarks.MouthPoints {
		return 0, fmt.Errorf("%w: mouth has %d, need %d", ErrTooFewPoints, len(mouth), landmarks.MouthPoints)
	}
	a := landmarks.Distance(mouth[2], mouth[10])
	b := landmarks.Distance(mouth[4], mouth[8])
	c := landmarks.Distance(mouth[0], mouth[6])
	if c == 0 {
		return 0, ErrDegenerate
	}
	return (a + b) / (2 * c), nil
}

// Reading is the (EAR, MAR) pair for one face. Either value may be absent.
type Reading struct {
	EAR    float64
	MAR    float64
	HasEAR bool
	HasMAR bool
}

// FaceRatios computes the reading for one face. EAR is the mean of both
// eyes and is absent if either eye is unusable.
func FaceRatios(f landmarks.Face) Reading {
	var r Reading

	left, errL := EyeAspectRatio(f.LeftEye)
	right, errR := EyeAspectRatio(f.RightEye)
	if errL == nil && errR == nil {
		r.EAR = (left + right) / 2
		r.HasEAR = true
	}

	if mar, err := MouthAspectRatio(f.Mouth()); err == nil {
		r.MAR = mar
		r.HasMAR = true
	}

	return r
}
