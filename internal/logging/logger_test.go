package logging

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

var lineFormat = regexp.MustCompile(`^\d{2}:\d{2}:\d{2} +(INFO|WARN|ERROR|FATAL|DEBUG) > .+$`)

func TestEntryFormat(t *testing.T) {
	Clear()
	Warnf("memory write clamped: #%04X", 0x1234)

	lines := Snapshot(1)
	if len(lines) != 1 {
		t.Fatalf("expected one entry, got %d", len(lines))
	}
	if !lineFormat.MatchString(lines[0]) {
		t.Errorf("entry %q should match HH:MM:SS LEVEL > message", lines[0])
	}
	if !strings.Contains(lines[0], "WARN") {
		t.Errorf("entry should carry its level, got %q", lines[0])
	}
	if !strings.Contains(lines[0], "#1234") {
		t.Errorf("entry should carry the formatted message, got %q", lines[0])
	}
}

func TestLevels(t *testing.T) {
	Clear()

	Infof("a")
	Errorf("b")
	Debugf("c")

	lines := Snapshot(3)
	if !strings.Contains(lines[2], "INFO") ||
		!strings.Contains(lines[1], "ERROR") ||
		!strings.Contains(lines[0], "DEBUG") {
		t.Errorf("snapshot should return the levels newest first: %v", lines)
	}
}

func TestFlushAppendsToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "varia8.log")

	Clear()
	if err := SetFile(path); err != nil {
		t.Fatal(err)
	}
	Infof("first")
	Infof("second")

	if err := Flush(0); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	text := string(raw)
	if !strings.Contains(text, "first") || !strings.Contains(text, "second") {
		t.Errorf("flushed log should contain the entries:\n%s", text)
	}

	// oldest first, newline delimited
	first := strings.Index(text, "first")
	second := strings.Index(text, "second")
	if first > second {
		t.Errorf("flush should write oldest entries first")
	}
	if !strings.HasSuffix(text, "\n") {
		t.Errorf("flushed lines should be newline terminated")
	}

	// reset the file so other tests are unaffected
	fileMu.Lock()
	logPath = ""
	fileMu.Unlock()
}

func TestFlushWithoutFileIsNoop(t *testing.T) {
	Clear()
	Infof("dropped on the floor")

	if err := Flush(0); err != nil {
		t.Errorf("flushing without a file should be a no-op, got %v", err)
	}
}
