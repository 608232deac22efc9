package announce

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Chain implements Speaker by trying multiple speakers in order.
// The first speaker that succeeds wins; if all fail, returns a ChainError.
type Chain struct {
	speakers []Speaker
	logger   *slog.Logger
}

// NewChain creates a speaker chain. At least one speaker is required.
func NewChain(speakers ...Speaker) (*Chain, error) {
	if len(speakers) == 0 {
		return nil, ErrNoSpeakers
	}

	return &Chain{
		speakers: speakers,
		logger:   slog.Default().With("component", "announce.chain"),
	}, nil
}

// NewChainWithLogger creates a speaker chain with a custom logger.
func NewChainWithLogger(logger *slog.Logger, speakers ...Speaker) (*Chain, error) {
	chain, err := NewChain(speakers...)
	if err != nil {
		return nil, err
	}
	chain.logger = logger.With("component", "announce.chain")
	return chain, nil
}

// Speak tries each speaker until one succeeds.
func (c *Chain) Speak(ctx context.Context, text string) error {
	var errs []error

	for i, s := range c.speakers {
		err := s.Speak(ctx, text)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback speaker succeeded",
					"speaker", s.Name(),
					"chars", len(text),
				)
			}
			return nil
		}

		errs = append(errs, err)
		c.logger.Warn("speaker failed, trying next",
			"speaker", s.Name(),
			"error", err,
		)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return &ChainError{Errors: errs}
}

// Name lists the chained speakers.
func (c *Chain) Name() string {
	names := make([]string, len(c.speakers))
	for i, s := range c.speakers {
		names[i] = s.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// Close closes all speakers.
func (c *Chain) Close() error {
	var lastErr error
	for _, s := range c.speakers {
		if err := s.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// ChainError aggregates errors from all speakers in a chain.
type ChainError struct {
	Errors []error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	if len(e.Errors) == 0 {
		return "announce chain: no errors recorded"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("announce chain: %v", e.Errors[0])
	}
	return fmt.Sprintf("announce chain: all %d speakers failed, last error: %v", len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap returns the last error in the chain.
func (e *ChainError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

// Verify Chain implements Speaker at compile time.
var _ Speaker = (*Chain)(nil)
