// Package announce speaks alert messages out loud.
//
// Speech synthesis is delegated to a local TTS command (espeak-ng, espeak
// or macOS say). Speaking blocks for the length of the utterance, so the
// monitor loop never calls a Speaker directly: it hands messages to an
// Announcer, whose single worker drains a bounded queue in the background.
//
// Example usage:
//
//	speaker, _ := announce.DetectSpeaker(logger)
//	a := announce.New(speaker, announce.WithQueueSize(4))
//	go a.Run(ctx)
//	a.Announce("You look drowsy. Please take a break.")
package announce

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// Speaker converts text to audible speech.
type Speaker interface {
	// Speak blocks until the text has been spoken or ctx is done.
	Speak(ctx context.Context, text string) error

	// Name identifies the speaker in logs and errors.
	Name() string

	// Close releases any resources held by the speaker.
	Close() error
}

// ExecSpeaker speaks by running a local TTS program with the text as its
// last argument.
type ExecSpeaker struct {
	command string
	args    []string
}

// NewExecSpeaker creates a speaker that runs command with args followed by
// the text to speak.
func NewExecSpeaker(command string, args ...string) *ExecSpeaker {
	return &ExecSpeaker{command: command, args: args}
}

// ParseCommand builds an ExecSpeaker from a shell-style command line such as
// "espeak-ng -s 150".
func ParseCommand(line string) (*ExecSpeaker, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, ErrNoCommand
	}
	return NewExecSpeaker(fields[0], fields[1:]...), nil
}

// Known local TTS programs, in preference order.
var knownCommands = []struct {
	name string
	args []string
}{
	{"espeak-ng", nil},
	{"espeak", nil},
	{"say", nil},
	{"spd-say", []string{"--wait"}},
}

// DetectSpeaker returns a chain of every known TTS program found on PATH.
// The first one that works wins each time. Fallbacks are logged to logger.
func DetectSpeaker(logger *slog.Logger) (Speaker, error) {
	return detectSpeaker(exec.LookPath, logger)
}

func detectSpeaker(lookPath func(string) (string, error), logger *slog.Logger) (Speaker, error) {
	var speakers []Speaker
	for _, c := range knownCommands {
		if _, err := lookPath(c.name); err == nil {
			speakers = append(speakers, NewExecSpeaker(c.name, c.args...))
		}
	}
	if len(speakers) == 0 {
		return nil, ErrNoCommand
	}
	if len(speakers) == 1 {
		return speakers[0], nil
	}
	if logger == nil {
		return NewChain(speakers...)
	}
	return NewChainWithLogger(logger, speakers...)
}

// Speak runs the TTS command and waits for it to exit.
func (s *ExecSpeaker) Speak(ctx context.Context, text string) error {
	args := append(append([]string{}, s.args...), text)
	cmd := exec.CommandContext(ctx, s.command, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return WrapError(s.Name(), fmt.Errorf("%w: %s", err, msg))
		}
		return WrapError(s.Name(), err)
	}
	return nil
}

// Name returns the command name.
func (s *ExecSpeaker) Name() string {
	return s.command
}

// Close is a no-op; each utterance is its own process.
func (s *ExecSpeaker) Close() error {
	return nil
}

// String describes the full command line.
func (s *ExecSpeaker) String() string {
	parts := append([]string{s.command}, s.args...)
	for i, p := range parts {
		if strings.ContainsAny(p, " \t") {
			parts[i] = strconv.Quote(p)
		}
	}
	return strings.Join(parts, " ")
}

// Verify ExecSpeaker implements Speaker at compile time.
var _ Speaker = (*ExecSpeaker)(nil)
