package announce

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Defaults for New.
const (
	DefaultQueueSize    = 4
	DefaultSpeakTimeout = 15 * time.Second
)

// Config holds announcer configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// QueueSize bounds pending messages. Messages beyond it are dropped.
	QueueSize int

	// Cooldown is the minimum spacing between accepted messages.
	// Zero accepts every message.
	Cooldown time.Duration

	// SpeakTimeout caps a single utterance.
	SpeakTimeout time.Duration

	Logger *slog.Logger
}

// Option is a functional option for configuring an Announcer.
type Option func(*Config)

// WithQueueSize sets the queue bound.
func WithQueueSize(n int) Option {
	return func(c *Config) {
		c.QueueSize = n
	}
}

// WithCooldown sets the minimum spacing between accepted messages.
func WithCooldown(d time.Duration) Option {
	return func(c *Config) {
		c.Cooldown = d
	}
}

// WithSpeakTimeout caps each utterance.
func WithSpeakTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.SpeakTimeout = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// Stats counts what happened to announced messages.
type Stats struct {
	Queued    int64 `json:"queued"`
	Spoken    int64 `json:"spoken"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`   // queue was full
	Throttled int64 `json:"throttled"` // inside the cooldown window
}

// Announcer queues messages for a background worker that speaks them one
// at a time. Announce never blocks.
type Announcer struct {
	speaker Speaker
	config  Config
	limiter *rate.Limiter
	logger  *slog.Logger

	queue  chan string
	mu     sync.Mutex
	closed bool

	queued    atomic.Int64
	spoken    atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
	throttled atomic.Int64
}

// New creates an announcer over speaker. Call Run to start speaking.
func New(speaker Speaker, opts ...Option) *Announcer {
	cfg := Config{
		QueueSize:    DefaultQueueSize,
		SpeakTimeout: DefaultSpeakTimeout,
		Logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}

	limit := rate.Inf
	if cfg.Cooldown > 0 {
		limit = rate.Every(cfg.Cooldown)
	}

	return &Announcer{
		speaker: speaker,
		config:  cfg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  cfg.Logger.With("component", "announce", "speaker", speaker.Name()),
		queue:   make(chan string, cfg.QueueSize),
	}
}

// Announce enqueues text without waiting. It returns false if the message
// was dropped (queue full, cooldown, or closed).
func (a *Announcer) Announce(text string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return false
	}
	// Only Announce sends, under mu, so free space here means the send
	// below cannot block. Checking first keeps a dropped message from
	// spending the cooldown.
	if len(a.queue) == cap(a.queue) {
		a.dropped.Add(1)
		a.logger.Debug("announcement dropped, queue full", "text", text)
		return false
	}
	if !a.limiter.Allow() {
		a.throttled.Add(1)
		return false
	}

	a.queue <- text
	a.queued.Add(1)
	return true
}

// Run speaks queued messages until ctx is done or Close is called.
func (a *Announcer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case text, ok := <-a.queue:
			if !ok {
				return nil
			}
			a.speak(ctx, text)
		}
	}
}

func (a *Announcer) speak(ctx context.Context, text string) {
	sctx, cancel := context.WithTimeout(ctx, a.config.SpeakTimeout)
	defer cancel()

	start := time.Now()
	if err := a.speaker.Speak(sctx, text); err != nil {
		a.failed.Add(1)
		if ctx.Err() == nil {
			a.logger.Warn("speech failed", "error", err)
		}
		return
	}
	a.spoken.Add(1)
	a.logger.Debug("spoken", "text", text, "took", time.Since(start))
}

// Close stops accepting messages. Run exits once the queue drains.
func (a *Announcer) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	close(a.queue)
	return nil
}

// Stats returns a snapshot of the counters.
func (a *Announcer) Stats() Stats {
	return Stats{
		Queued:    a.queued.Load(),
		Spoken:    a.spoken.Load(),
		Failed:    a.failed.Load(),
		Dropped:   a.dropped.Load(),
		Throttled: a.throttled.Load(),
	}
}
