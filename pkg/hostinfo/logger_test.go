package hostinfo

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// recordingLogger captures calls for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

func (r *recordingLogger) add(level, msg string, args []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, logEntry{level: level, msg: msg, args: args})
}

func (r *recordingLogger) Debug(msg string, args ...any) { r.add("debug", msg, args) }
func (r *recordingLogger) Info(msg string, args ...any)  { r.add("info", msg, args) }
func (r *recordingLogger) Warn(msg string, args ...any)  { r.add("warn", msg, args) }
func (r *recordingLogger) Error(msg string, args ...any) { r.add("error", msg, args) }

func TestToSlog_ForwardsToLogger(t *testing.T) {
	rec := &recordingLogger{}
	log := toSlog(rec).With("remote", "h1").WithGroup("probe")

	log.Debug("strategy failed", "strategy", "sysfs-online")
	log.Warn("reconnecting")
	log.Error("gave up", "attempts", 3)

	if len(rec.entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(rec.entries))
	}

	first := rec.entries[0]
	if first.level != "debug" || first.msg != "strategy failed" {
		t.Errorf("first entry = %+v", first)
	}
	wantArgs := []any{"remote", "h1", "probe.strategy", "sysfs-online"}
	if len(first.args) != len(wantArgs) {
		t.Fatalf("args = %v, want %v", first.args, wantArgs)
	}
	for i := range wantArgs {
		if first.args[i] != wantArgs[i] {
			t.Errorf("args[%d] = %v, want %v", i, first.args[i], wantArgs[i])
		}
	}
	if rec.entries[1].level != "warn" || rec.entries[2].level != "error" {
		t.Errorf("levels = %s, %s", rec.entries[1].level, rec.entries[2].level)
	}
}

func TestToSlog_Unwraps(t *testing.T) {
	base := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if got := toSlog(NewSlogAdapter(base)); got != base {
		t.Error("toSlog(SlogAdapter) should return the wrapped logger")
	}
	if toSlog(nil) == nil {
		t.Error("toSlog(nil) returned nil")
	}
	if toSlog(NopLogger()).Enabled(testContext(t), slog.LevelError) {
		t.Error("NopLogger should disable every level")
	}
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := JSONLogger(&buf, slog.LevelInfo)

	l.Debug("hidden")
	l.Info("cache file written", "path", "/tmp/x")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if entry["msg"] != "cache file written" || entry["path"] != "/tmp/x" {
		t.Errorf("entry = %v", entry)
	}
}

func TestLevelLogger(t *testing.T) {
	var buf bytes.Buffer
	l := LevelLogger(&buf, slog.LevelWarn)
	l.Info("hidden")
	l.Warn("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("output = %q", buf.String())
	}
}
