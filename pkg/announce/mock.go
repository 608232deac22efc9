package announce

import (
	"context"
	"sync"
	"time"
)

// Mock implements Speaker for testing.
type Mock struct {
	// SpeakFunc is called when Speak is invoked. If nil, Speak succeeds.
	SpeakFunc func(ctx context.Context, text string) error

	// MockName is returned by Name. Defaults to "mock".
	MockName string

	mu     sync.Mutex
	calls  []MockCall
	spoken chan string
}

// MockCall records a Speak invocation.
type MockCall struct {
	Text string
	Time time.Time
}

// NewMock creates a mock speaker that succeeds instantly.
func NewMock() *Mock {
	return &Mock{spoken: make(chan string, 64)}
}

// Speak records the call, then runs SpeakFunc.
func (m *Mock) Speak(ctx context.Context, text string) error {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Text: text, Time: time.Now()})
	m.mu.Unlock()

	var err error
	if m.SpeakFunc != nil {
		err = m.SpeakFunc(ctx, text)
	}

	if m.spoken != nil {
		select {
		case m.spoken <- text:
		default:
		}
	}
	return err
}

// Spoken delivers the text of each Speak call after it returns.
func (m *Mock) Spoken() <-chan string {
	return m.spoken
}

// Name returns MockName or "mock".
func (m *Mock) Name() string {
	if m.MockName != "" {
		return m.MockName
	}
	return "mock"
}

// Close does nothing.
func (m *Mock) Close() error {
	return nil
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of Speak calls.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// WithError returns a mock whose Speak always fails with err.
func WithError(err error) *Mock {
	m := NewMock()
	m.SpeakFunc = func(ctx context.Context, text string) error {
		return err
	}
	return m
}

// WithLatency makes every Speak call block for delay or until ctx is done.
func WithLatency(m *Mock, delay time.Duration) *Mock {
	original := m.SpeakFunc
	m.SpeakFunc = func(ctx context.Context, text string) error {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if original != nil {
			return original(ctx, text)
		}
		return nil
	}
	return m
}

// Verify Mock implements Speaker at compile time.
var _ Speaker = (*Mock)(nil)
