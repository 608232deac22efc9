package fatigue

import (
	"time"

	"github.com/teslashibe/go-drowsy/pkg/landmarks"
)

// Kind identifies what an alert is about.
type Kind int

const (
	DrowsinessAlert Kind = iota
	YawnDetected
)

// String returns the label written to the event log.
func (k Kind) String() string {
	switch k {
	case DrowsinessAlert:
		return "Drowsiness Alert"
	case YawnDetected:
		return "Yawning Detected"
	default:
		return "Unknown"
	}
}

// Message returns the sentence spoken to the driver.
func (k Kind) Message() string {
	switch k {
	case DrowsinessAlert:
		return "You look drowsy. Please take a break."
	case YawnDetected:
		return "Yawning detected. Please rest for a while."
	default:
		return ""
	}
}

// Alert is one qualifying event. Immutable once created.
type Alert struct {
	Time   time.Time
	Kind   Kind
	EAR    float64
	MAR    float64
	HasEAR bool
	HasMAR bool

	// FatigueIndex is the running index including this alert.
	FatigueIndex int
}

// State is the debounce state carried from frame to frame.
type State struct {
	EyeCounter   int
	YawnCounter  int
	FatigueIndex int // never decreases
}

// Sample is everything Step needs about one frame.
type Sample struct {
	Time       time.Time
	Brightness float64
	Faces      []landmarks.Face
}

// Result describes what happened on one frame.
type Result struct {
	Mode         Mode
	EyeThreshold float64
	Brightness   float64

	// Reading is the displayed reading: the last face fed to the counters.
	Reading Reading

	// Faces are all detected faces, for contour overlays.
	Faces []landmarks.Face

	Alerts       []Alert
	FatigueIndex int
}

// Alerted reports whether an alert of kind k fired this frame.
func (r Result) Alerted(k Kind) bool {
	for _, a := range r.Alerts {
		if a.Kind == k {
			return true
		}
	}
	return false
}

// Step advances the debounce machines by one frame.
//
// A frame with no faces leaves the counters untouched: a face that drops
// out briefly does not reset an in-progress count. A face whose eye (or
// mouth) reading is unusable leaves that signal's counter untouched too.
func Step(s State, t Thresholds, p landmarks.Policy, in Sample) (State, Result) {
	eyeThresh, mode := SelectEyeThreshold(in.Brightness, t)

	res := Result{
		Mode:         mode,
		EyeThreshold: eyeThresh,
		Brightness:   in.Brightness,
		Faces:        in.Faces,
	}

	for _, face := range p.Apply(in.Faces) {
		r := FaceRatios(face)
		res.Reading = r

		if r.HasEAR {
			if r.EAR < eyeThresh {
				s.EyeCounter++
				if s.EyeCounter >= t.EyeFrames {
					s.FatigueIndex++
					res.Alerts = append(res.Alerts, newAlert(in.Time, DrowsinessAlert, r, s.FatigueIndex))
				}
			} else {
				s.EyeCounter = 0
			}
		}

		if r.HasMAR {
			if r.MAR > t.MAR {
				s.YawnCounter++
				if s.YawnCounter >= t.YawnFrames {
					s.FatigueIndex++
					res.Alerts = append(res.Alerts, newAlert(in.Time, YawnDetected, r, s.FatigueIndex))
				}
			} else {
				s.YawnCounter = 0
			}
		}
	}

	res.FatigueIndex = s.FatigueIndex
	return s, res
}

func newAlert(at time.Time, k Kind, r Reading, index int) Alert {
	return Alert{
		Time:         at,
		Kind:         k,
		EAR:          r.EAR,
		MAR:          r.MAR,
		HasEAR:       r.HasEAR,
		HasMAR:       r.HasMAR,
		FatigueIndex: index,
	}
}
