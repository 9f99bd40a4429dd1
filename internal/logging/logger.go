/* Copyright (c) 2024 the varia8 authors
 *
 * This software is provided 'as-is', without any express or implied
 * warranty.  In no event will the authors be held liable for any damages
 * arising from the use of this software.
 *
 * Permission is granted to anyone to use this software for any purpose,
 * including commercial applications, and to alter it and redistribute it
 * freely, subject to the following restrictions:
 *
 * 1. The origin of this software must not be misrepresented; you must not
 *    claim that you wrote the original software. If you use this software
 *    in a product, an acknowledgment in the product documentation would be
 *    appreciated but is not required.
 *
 * 2. Altered source versions must be plainly marked as such, and must not be
 *    misrepresented as being the original software.
 *
 * 3. This notice may not be removed or altered from any source distribution.
 */

// Package logging is a small leveled logger over a lock-free ring buffer.
// Entries accumulate in memory from any goroutine; Flush appends them to
// the log file on demand. Losing the file is not fatal: the ring keeps
// working and the emulator runs on.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level classifies a log entry.
type Level int

const (
	// LevelInfo marks events that are innocuous and informational.
	LevelInfo Level = iota

	// LevelWarn marks events that are unexpected and warrant attention.
	LevelWarn

	// LevelError marks predictable, recoverable errors.
	LevelError

	// LevelFatal marks unrecoverable failures.
	LevelFatal

	// LevelDebug marks entries meant for debugging.
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	case LevelDebug:
		return "DEBUG"
	}
	return "UNKN"
}

const ringSize = 512

var (
	start = time.Now()
	ring  = NewRing[string](ringSize)

	fileMu  sync.Mutex
	logPath string
)

// SetFile creates (or truncates) the log file that Flush appends to. The
// file is created via a temp rename so a half-written old log never
// survives.
func SetFile(path string) error {
	if path == "" {
		return fmt.Errorf("log file path cannot be blank")
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create log file: %w", err)
	}
	f.Close()

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace log file: %w", err)
	}

	fileMu.Lock()
	logPath = path
	fileMu.Unlock()

	Infof("logging started on %s", time.Now().Format("2006-01-02 15:04:05"))
	return nil
}

// entry renders one "HH:MM:SS LEVEL > message" line; the clock counts up
// from process start.
func entry(level Level, msg string) string {
	d := time.Since(start)
	return fmt.Sprintf("%02d:%02d:%02d %5s > %s",
		int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60, level, msg)
}

func writeEntry(level Level, format string, args []any) {
	if len(args) == 0 {
		ring.Push(entry(level, format))
		return
	}
	ring.Push(entry(level, fmt.Sprintf(format, args...)))
}

// Infof records an informational entry.
func Infof(format string, args ...any) { writeEntry(LevelInfo, format, args) }

// Warnf records a warning entry.
func Warnf(format string, args ...any) { writeEntry(LevelWarn, format, args) }

// Errorf records a recoverable error entry.
func Errorf(format string, args ...any) { writeEntry(LevelError, format, args) }

// Fatalf records an unrecoverable failure entry.
func Fatalf(format string, args ...any) { writeEntry(LevelFatal, format, args) }

// Debugf records a debugging entry.
func Debugf(format string, args ...any) { writeEntry(LevelDebug, format, args) }

// Snapshot returns up to n recent entries, newest first, without blocking
// writers.
func Snapshot(n int) []string {
	return ring.SnapshotDesc(n)
}

// Clear empties the ring.
func Clear() {
	ring.Clear()
}

// Flush appends up to count buffered entries (everything, when count is
// zero) to the log file, oldest first. Without a configured file it is a
// no-op.
func Flush(count int) error {
	fileMu.Lock()
	path := logPath
	fileMu.Unlock()

	if path == "" {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	for _, line := range ring.SafeSnapshotAsc(count) {
		if line == "" {
			continue
		}
		if _, err := fmt.Fprintln(f, line); err != nil {
			return err
		}
	}
	return nil
}
