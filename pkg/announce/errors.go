package announce

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoSpeakers is returned when a chain is built with no speakers.
	ErrNoSpeakers = errors.New("announce: no speakers available")

	// ErrNoCommand is returned when no TTS command could be found on PATH.
	ErrNoCommand = errors.New("announce: no speech command found")
)

// SpeakerError wraps an error with speaker context.
type SpeakerError struct {
	Speaker string
	Err     error
}

// Error implements the error interface.
func (e *SpeakerError) Error() string {
	return fmt.Sprintf("announce [%s]: %v", e.Speaker, e.Err)
}

// Unwrap returns the underlying error.
func (e *SpeakerError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with speaker context.
func WrapError(speaker string, err error) error {
	if err == nil {
		return nil
	}
	return &SpeakerError{Speaker: speaker, Err: err}
}
