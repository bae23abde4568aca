package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_AppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("existing\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	log, closer := New(Options{Level: "info", FilePath: path})
	log.Info().Str("login", "alice").Msg("user registered")
	log.Debug().Msg("filtered out")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "existing\n") {
		t.Errorf("expected previous content to be kept, got %q", content)
	}
	if !strings.Contains(content, `"message":"user registered"`) || !strings.Contains(content, `"login":"alice"`) {
		t.Errorf("expected structured event, got %q", content)
	}
	if strings.Contains(content, "filtered out") {
		t.Errorf("debug event should be filtered at info level")
	}
}

func TestFileSink_OpensLazily(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lazy.log")

	_, closer := New(Options{FilePath: path})
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file before first write, stat err = %v", err)
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("close without writes: %v", err)
	}
}

func TestFileSink_FailureIsReportedNotReturned(t *testing.T) {
	dir := t.TempDir()
	// A directory cannot be opened for appending.
	var errOut bytes.Buffer
	sink := &FileSink{path: dir, errOut: &errOut}

	n, err := sink.Write([]byte("hello\n"))
	if err != nil {
		t.Fatalf("expected write error to be swallowed, got %v", err)
	}
	if n != len("hello\n") {
		t.Errorf("expected full length reported, got %d", n)
	}
	if !strings.Contains(errOut.String(), "log write failed") || !strings.Contains(errOut.String(), "hello") {
		t.Errorf("expected failure report on secondary channel, got %q", errOut.String())
	}
}

func TestNew_ConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	log, _ := New(Options{Level: "debug", Console: &buf})
	log.Debug().Msg("visible")

	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("expected console output, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" info ":  zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
