package logx

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriterFieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "info").With(String("comp", "loader"))

	log.Debug("hidden")
	log.Warn("scan failed", Int("files", 3), Err(errors.New("boom")), Err(nil))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written at info level: %q", out)
	}
	for _, want := range []string{"scan failed", "comp=loader", "files=3", "err=boom", "logx_test.go:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestZeroAndNop(t *testing.T) {
	var zero Logger
	if !zero.IsZero() {
		t.Fatal("zero Logger should report IsZero")
	}
	zero.Info("dropped")
	if Nop().IsZero() {
		t.Fatal("Nop should not be the zero Logger")
	}
	Nop().Error("dropped")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"":        LevelInfo,
		"DEBUG":   LevelDebug,
		" trace ": LevelTrace,
		"warning": LevelWarn,
		"error":   LevelError,
		"loud":    LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestServiceFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crontabs.log")
	svc, log := New(Config{Level: "debug", File: FileConfig{Enabled: true, Path: path}})
	log.Debug("rescan", String("dir", "/etc/cron.d"))
	if err := svc.Close(); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"dir":"/etc/cron.d"`) || !strings.Contains(string(b), `"level":"debug"`) {
		t.Fatalf("log file = %q", b)
	}
}
