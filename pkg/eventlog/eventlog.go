// Package eventlog appends alert events to a CSV file.
//
// The file is opened once in append mode. The header row is written only
// when the file is empty at open time, so restarts keep adding to the same
// history.
package eventlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/teslashibe/go-drowsy/pkg/fatigue"
)

// TimeFormat is the local timestamp layout used in the Timestamp column.
const TimeFormat = "2006-01-02 15:04:05"

// Header is the first row of a new log file.
var Header = []string{"Timestamp", "EAR", "MAR", "Event"}

// Log is an append-only CSV event sink.
type Log struct {
	path string
	file *os.File
	w    *csv.Writer
	mu   sync.Mutex
	rows int
}

// Open opens (or creates) the log at path and writes the header if the
// file is empty.
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat event log: %w", err)
	}

	l := &Log{path: path, file: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := l.write(Header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	return l, nil
}

// Append writes one alert row and flushes it to disk.
func (l *Log) Append(a fatigue.Alert) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.write(Row(a)); err != nil {
		return err
	}
	l.rows++
	return nil
}

// Row formats an alert as a CSV record.
func Row(a fatigue.Alert) []string {
	return []string{
		a.Time.Local().Format(TimeFormat),
		formatRatio(a.EAR, a.HasEAR),
		formatRatio(a.MAR, a.HasMAR),
		a.Kind.String(),
	}
}

// Rows returns the number of alert rows written since Open.
func (l *Log) Rows() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rows
}

// Path returns the file path of the log.
func (l *Log) Path() string {
	return l.path
}

// Close flushes and closes the file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Flush()
	flushErr := l.w.Error()
	if err := l.file.Close(); err != nil {
		return err
	}
	return flushErr
}

func (l *Log) write(record []string) error {
	if err := l.w.Write(record); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return fmt.Errorf("flush event: %w", err)
	}
	return nil
}

// formatRatio uses the shortest representation that round-trips.
func formatRatio(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
