// Package overlay turns a fatigue result into render instructions.
//
// The instructions are plain data so they can be asserted in tests; the
// display package draws them with gocv.
package overlay

import (
	"fmt"

	"github.com/teslashibe/go-drowsy/pkg/fatigue"
	"github.com/teslashibe/go-drowsy/pkg/landmarks"
)

// Color is a BGR color, matching OpenCV's channel order.
type Color struct {
	B, G, R uint8
}

// Palette
var (
	EyeColor   = Color{B: 255, G: 255, R: 0}
	MouthColor = Color{B: 0, G: 255, R: 255}
	AlertColor = Color{B: 0, G: 0, R: 255}
	YawnColor  = Color{B: 0, G: 255, R: 255}
	TextColor  = Color{B: 255, G: 255, R: 255}
	HintColor  = Color{B: 255, G: 0, R: 0}
)

// TextScale is the font scale used for every label.
const TextScale = 0.4

// Polyline is a contour to draw over the frame.
type Polyline struct {
	Points []landmarks.Point
	Closed bool
	Color  Color
}

// Text is a label anchored at its bottom-left corner.
type Text struct {
	Label string
	X, Y  int
	Scale float64
	Color Color
}

// Scene is everything drawn on top of one frame.
type Scene struct {
	Polylines []Polyline
	Texts     []Text
}

// Build produces the overlay for one processed frame.
func Build(res fatigue.Result) Scene {
	var s Scene

	for _, f := range res.Faces {
		s.Polylines = append(s.Polylines,
			Polyline{Points: f.LeftEye, Closed: true, Color: EyeColor},
			Polyline{Points: f.RightEye, Closed: true, Color: EyeColor},
			Polyline{Points: f.Mouth(), Closed: true, Color: MouthColor},
		)
	}

	if res.Alerted(fatigue.DrowsinessAlert) {
		s.add("Drowsiness Alert!", 10, AlertColor)
	}
	if res.Alerted(fatigue.YawnDetected) {
		s.add("Yawning Detected!", 40, YawnColor)
	}

	s.add(ratioLabel("EAR", res.Reading.EAR, res.Reading.HasEAR), 60, TextColor)
	s.add(ratioLabel("MAR", res.Reading.MAR, res.Reading.HasMAR), 80, TextColor)
	s.add(fmt.Sprintf("Fatigue Index: %d", res.FatigueIndex), 100, TextColor)
	s.add(fmt.Sprintf("Brightness: %.2f", res.Brightness), 120, TextColor)
	s.add("Mode: "+res.Mode.String(), 140, TextColor)
	s.add("Press 'Q' to quit", 160, HintColor)

	return s
}

func (s *Scene) add(label string, y int, c Color) {
	s.Texts = append(s.Texts, Text{Label: label, X: 5, Y: y, Scale: TextScale, Color: c})
}

// ratioLabel renders "NAME: 0.00", or "NAME: --" when there is no reading.
func ratioLabel(name string, v float64, ok bool) string {
	if !ok {
		return name + ": --"
	}
	return fmt.Sprintf("%s: %.2f", name, v)
}
