// Package frame defines the camera frame contract shared by capture,
// landmark detection, display and the monitor loop.
package frame

// Frame is one captured image plus its derived scalars.
// Implementations own native memory and must be closed after use.
type Frame interface {
	// Brightness returns the mean grayscale intensity (0-255).
	Brightness() float64

	// Close releases the underlying image buffer.
	Close() error
}
