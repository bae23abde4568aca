// Package logger builds the application's structured logger backed by zerolog.
//
// Build it once at startup with New and pass the returned zerolog.Logger to
// the components that log. Events go to an append-only file that is opened
// on the first write; a failing write is reported on a secondary writer and
// never reaches the caller.
//
//	TRACE (-1) → DEBUG (0) → INFO (1) → WARN (2) → ERROR (3)
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger behaviour at construction time.
type Options struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Defaults to "info" when empty or unrecognised.
	Level string
	// FilePath is the append-only log file. Empty disables the file sink.
	FilePath string
	// Console, when non-nil, additionally receives human-friendly output.
	Console io.Writer
	// ErrOutput receives reports about failed log writes. Defaults to os.Stderr.
	ErrOutput io.Writer
}

// New returns a logger and the closer of its file sink.
func New(opts Options) (zerolog.Logger, io.Closer) {
	errOut := opts.ErrOutput
	if errOut == nil {
		errOut = os.Stderr
	}

	sink := &FileSink{path: opts.FilePath, errOut: errOut}

	var writers []io.Writer
	if opts.FilePath != "" {
		writers = append(writers, sink)
	}
	if opts.Console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: opts.Console, TimeFormat: time.RFC3339})
	}

	var out io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	lvl := parseLevel(opts.Level)
	l := zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	return l, sink
}

// FileSink is an append-only file writer opened lazily on the first Write.
// Write always reports success; failures are described on the error writer.
type FileSink struct {
	path   string
	errOut io.Writer

	mu      sync.Mutex
	file    *os.File
	openErr error
	opened  bool
}

func (s *FileSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		s.opened = true
		s.file, s.openErr = openAppend(s.path)
	}
	if s.openErr != nil {
		s.report(s.openErr, p)
		return len(p), nil
	}
	if _, err := s.file.Write(p); err != nil {
		s.report(err, p)
	}
	return len(p), nil
}

// Close closes the underlying file if it was opened.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.opened = false
	return err
}

func (s *FileSink) report(err error, p []byte) {
	_, _ = fmt.Fprintf(s.errOut, "log write failed: %v: %s", err, p)
}

func openAppend(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// parseLevel converts a string to a zerolog.Level.
//
//	"trace" → TraceLevel (-1)
//	"debug" → DebugLevel ( 0)
//	"info"  → InfoLevel  ( 1)  ← default
//	"warn"  → WarnLevel  ( 2)
//	"error" → ErrorLevel ( 3)
func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
