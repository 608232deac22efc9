package landmarks

import "fmt"

// Policy decides which faces feed the fatigue counters when more than one
// face is visible in a frame.
type Policy int

const (
	// PolicyPrimary uses only the face with the largest bounding box.
	PolicyPrimary Policy = iota

	// PolicyAll feeds every face in detection order; the last face's
	// readings are the ones displayed.
	PolicyAll
)

// String returns the flag/config spelling of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyPrimary:
		return "primary"
	case PolicyAll:
		return "all"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses "primary" or "all".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "primary":
		return PolicyPrimary, nil
	case "all":
		return PolicyAll, nil
	}
	return PolicyPrimary, fmt.Errorf("unknown face policy %q (want primary or all)", s)
}

// SelectPrimary picks the face with the largest bounding box.
// Ties go to the earlier face so the choice is stable across frames.
func SelectPrimary(faces []Face) *Face {
	if len(faces) == 0 {
		return nil
	}

	best := &faces[0]
	for i := 1; i < len(faces); i++ {
		if faces[i].Box.Area() > best.Box.Area() {
			best = &faces[i]
		}
	}
	return best
}

// Apply returns the faces that should feed the counters under p.
func (p Policy) Apply(faces []Face) []Face {
	if p == PolicyAll {
		return faces
	}
	if best := SelectPrimary(faces); best != nil {
		return []Face{*best}
	}
	return nil
}
