package fatigue

import (
	"errors"
	"fmt"
)

// Thresholds holds the tunable alerting parameters.
type Thresholds struct {
	// Eye closure
	DayEAR           float64 // EAR bar when brightness >= BrightnessCutoff
	NightEAR         float64 // EAR bar in low light (contours lose contrast)
	BrightnessCutoff float64 // Mean gray level separating day from night
	EyeFrames        int     // Consecutive closed frames before alerting

	// Yawning
	MAR        float64 // MAR above this counts as an open mouth
	YawnFrames int     // Consecutive open frames before alerting
}

// DefaultThresholds returns the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DayEAR:           0.20,
		NightEAR:         0.17,
		BrightnessCutoff: 50,
		EyeFrames:        10, // longer than a blink
		MAR:              0.12,
		YawnFrames:       2,
	}
}

// Validate checks that the thresholds are usable.
func (t Thresholds) Validate() error {
	var errs []error
	if t.DayEAR <= 0 || t.NightEAR <= 0 {
		errs = append(errs, fmt.Errorf("EAR thresholds must be positive (day=%v night=%v)", t.DayEAR, t.NightEAR))
	}
	if t.BrightnessCutoff < 0 || t.BrightnessCutoff > 255 {
		errs = append(errs, fmt.Errorf("brightness cutoff must be within 0-255, got %v", t.BrightnessCutoff))
	}
	if t.MAR <= 0 {
		errs = append(errs, fmt.Errorf("MAR threshold must be positive, got %v", t.MAR))
	}
	if t.EyeFrames < 1 || t.YawnFrames < 1 {
		errs = append(errs, fmt.Errorf("frame counts must be at least 1 (eye=%d yawn=%d)", t.EyeFrames, t.YawnFrames))
	}
	return errors.Join(errs...)
}

// Mode is the lighting mode picked from frame brightness.
type Mode int

const (
	ModeDay Mode = iota
	ModeNight
)

func (m Mode) String() string {
	if m == ModeNight {
		return "Night"
	}
	return "Day"
}

// SelectEyeThreshold returns the EAR threshold for the frame brightness.
// The boundary is inclusive on the day side.
func SelectEyeThreshold(brightness float64, t Thresholds) (float64, Mode) {
	if brightness >= t.BrightnessCutoff {
		return t.DayEAR, ModeDay
	}
	return t.NightEAR, ModeNight
}
