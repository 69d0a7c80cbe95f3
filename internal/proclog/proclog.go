// Package proclog appends pipeline milestones to a monthly-rotated log file.
// One line per event, mirrored to slog so events also reach the process log.
package proclog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Logger struct {
	dir string

	mu sync.Mutex
	// now is swappable in tests to pin the month.
	now func() time.Time
}

func New(dir string) *Logger {
	return &Logger{dir: dir, now: time.Now}
}

// Printf appends one timestamped line to the current month's log file.
// A sink failure is reported on slog but never propagated; logging must not
// fail the pipeline.
func (l *Logger) Printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	message := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("[%s] %s\n", now.Format(time.DateTime), message)

	slog.Info("pipeline", "event", message)

	f, err := os.OpenFile(l.filename(now), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Error("proclog: open log file", "error", err)
		return
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(line); err != nil {
		slog.Error("proclog: write log line", "error", err)
	}
}

// filename rotates by calendar month: processed_data_YYYYMM.log.
func (l *Logger) filename(now time.Time) string {
	return filepath.Join(l.dir, fmt.Sprintf("processed_data_%s.log", now.Format("200601")))
}
