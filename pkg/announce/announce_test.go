package announce

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestAnnouncer_DropsWhenFull(t *testing.T) {
	a := New(NewMock(), WithQueueSize(2))

	results := []bool{a.Announce("one"), a.Announce("two"), a.Announce("three")}
	want := []bool{true, true, false}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("Announce #%d: got %v, want %v", i+1, results[i], want[i])
		}
	}

	stats := a.Stats()
	if stats.Queued != 2 || stats.Dropped != 1 {
		t.Errorf("Stats: got %+v", stats)
	}
}

func TestAnnouncer_RunSpeaksInOrder(t *testing.T) {
	m := NewMock()
	a := New(m, WithQueueSize(4))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	a.Announce("first")
	a.Announce("second")

	for _, want := range []string{"first", "second"} {
		select {
		case got := <-m.Spoken():
			if got != want {
				t.Errorf("spoken: got %q, want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}

	waitFor(t, "spoken counter", func() bool { return a.Stats().Spoken == 2 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit on cancel")
	}
}

func TestAnnouncer_NeverBlocksOnSlowSpeaker(t *testing.T) {
	m := WithLatency(NewMock(), time.Hour)
	a := New(m, WithQueueSize(1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	start := time.Now()
	for i := 0; i < 50; i++ {
		a.Announce("You look drowsy. Please take a break.")
	}
	if took := time.Since(start); took > time.Second {
		t.Errorf("Announce blocked for %v", took)
	}
	if a.Stats().Dropped == 0 {
		t.Error("expected drops while the speaker is busy")
	}
}

func TestAnnouncer_Cooldown(t *testing.T) {
	a := New(NewMock(), WithCooldown(time.Hour))

	if !a.Announce("first") {
		t.Fatal("first message should be accepted")
	}
	if a.Announce("second") {
		t.Error("second message inside cooldown should be throttled")
	}
	if got := a.Stats().Throttled; got != 1 {
		t.Errorf("Throttled: got %d, want 1", got)
	}
}

func TestAnnouncer_DropDoesNotStartCooldown(t *testing.T) {
	a := New(NewMock(), WithQueueSize(1), WithCooldown(50*time.Millisecond))

	if !a.Announce("first") {
		t.Fatal("first message should be accepted")
	}
	time.Sleep(80 * time.Millisecond)

	// the cooldown has passed but the queue is still full
	if a.Announce("second") {
		t.Fatal("second message should be dropped")
	}
	<-a.queue

	if !a.Announce("third") {
		t.Error("a dropped message must not throttle the next one")
	}
	stats := a.Stats()
	if stats.Dropped != 1 || stats.Throttled != 0 || stats.Queued != 2 {
		t.Errorf("Stats: got %+v", stats)
	}
}

func TestAnnouncer_SpeakTimeout(t *testing.T) {
	m := WithLatency(NewMock(), time.Hour)
	a := New(m, WithSpeakTimeout(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	a.Announce("You look drowsy. Please take a break.")
	waitFor(t, "timed out utterance", func() bool { return a.Stats().Failed == 1 })
}

func TestAnnouncer_CountsFailures(t *testing.T) {
	m := WithError(errors.New("no audio device"))
	a := New(m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	a.Announce("hello")
	waitFor(t, "failure counter", func() bool { return a.Stats().Failed == 1 })
	if a.Stats().Spoken != 0 {
		t.Error("failed speech must not count as spoken")
	}
}

func TestAnnouncer_Close(t *testing.T) {
	m := NewMock()
	a := New(m)
	a.Announce("queued before close")

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if a.Announce("after close") {
		t.Error("Announce after Close should be rejected")
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	// Run drains what was queued, then returns.
	if err := a.Run(context.Background()); err != nil {
		t.Errorf("Run: %v", err)
	}
	if m.CallCount() != 1 {
		t.Errorf("expected the queued message to be spoken, got %d calls", m.CallCount())
	}
}

func TestChain_Fallback(t *testing.T) {
	broken := WithError(errors.New("device busy"))
	broken.MockName = "broken"
	working := NewMock()

	chain, err := NewChain(broken, working)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}

	if err := chain.Speak(context.Background(), "hi"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if broken.CallCount() != 1 || working.CallCount() != 1 {
		t.Errorf("calls: broken=%d working=%d", broken.CallCount(), working.CallCount())
	}
	if calls := working.Calls(); len(calls) != 1 || calls[0].Text != "hi" {
		t.Errorf("fallback speaker calls: %+v", calls)
	}
	if !strings.Contains(chain.Name(), "broken") {
		t.Errorf("Name: %s", chain.Name())
	}
}

func TestChain_AllFail(t *testing.T) {
	sentinel := errors.New("last failure")
	chain, _ := NewChain(WithError(errors.New("first failure")), WithError(sentinel))

	err := chain.Speak(context.Background(), "hi")
	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected ChainError, got %v", err)
	}
	if len(chainErr.Errors) != 2 {
		t.Errorf("expected 2 errors, got %d", len(chainErr.Errors))
	}
	if !errors.Is(err, sentinel) {
		t.Error("ChainError should unwrap to the last error")
	}
}

func TestChain_LogsWithCallerLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil)).With("session", "abc123")

	broken := WithError(errors.New("device busy"))
	broken.MockName = "broken"
	chain, err := NewChainWithLogger(logger, broken, NewMock())
	if err != nil {
		t.Fatalf("NewChainWithLogger: %v", err)
	}

	if err := chain.Speak(context.Background(), "hi"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "speaker failed") || !strings.Contains(out, "session=abc123") {
		t.Errorf("fallback not logged with caller attributes: %s", out)
	}
	if !strings.Contains(out, "component=announce.chain") {
		t.Errorf("missing component attribute: %s", out)
	}
}

func TestNewChain_Empty(t *testing.T) {
	if _, err := NewChain(); !errors.Is(err, ErrNoSpeakers) {
		t.Errorf("expected ErrNoSpeakers, got %v", err)
	}
}

func TestDetectSpeaker(t *testing.T) {
	tests := []struct {
		name      string
		available map[string]bool
		wantErr   bool
		wantName  string
	}{
		{
			name:      "nothing installed",
			available: map[string]bool{},
			wantErr:   true,
		},
		{
			name:      "single program",
			available: map[string]bool{"say": true},
			wantName:  "say",
		},
		{
			name:      "several programs chain in preference order",
			available: map[string]bool{"espeak": true, "espeak-ng": true},
			wantName:  "chain(espeak-ng,espeak)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lookPath := func(name string) (string, error) {
				if tc.available[name] {
					return "/usr/bin/" + name, nil
				}
				return "", exec.ErrNotFound
			}

			s, err := detectSpeaker(lookPath, slog.Default())
			if tc.wantErr {
				if !errors.Is(err, ErrNoCommand) {
					t.Errorf("expected ErrNoCommand, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("detectSpeaker: %v", err)
			}
			if s.Name() != tc.wantName {
				t.Errorf("Name: got %q, want %q", s.Name(), tc.wantName)
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	s, err := ParseCommand("espeak-ng -s 150 -v en")
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if s.Name() != "espeak-ng" || len(s.args) != 4 {
		t.Errorf("parsed %+v", s)
	}

	if _, err := ParseCommand("   "); !errors.Is(err, ErrNoCommand) {
		t.Errorf("expected ErrNoCommand, got %v", err)
	}
}

func TestExecSpeaker(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true(1) not available")
	}
	if err := NewExecSpeaker("true").Speak(context.Background(), "hello"); err != nil {
		t.Errorf("Speak via true: %v", err)
	}

	err := NewExecSpeaker("false").Speak(context.Background(), "hello")
	var se *SpeakerError
	if !errors.As(err, &se) || se.Speaker != "false" {
		t.Errorf("expected SpeakerError from false, got %v", err)
	}
}
