package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWithWriter_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "warn"}, &buf)

	log.Debug(context.Background(), "too quiet")
	log.Info(context.Background(), "still too quiet")
	log.Warn(context.Background(), "loud enough")

	out := buf.String()
	if strings.Contains(out, "too quiet") {
		t.Fatalf("sub-level entries leaked: %q", out)
	}
	if !strings.Contains(out, "loud enough") {
		t.Fatalf("warn entry missing from output: %q", out)
	}
}

func TestOpen_AppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.log")

	log, closeFn, err := Open(Config{Level: "info", File: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	log.Info(context.Background(), "first run")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// A second Open must append, not truncate.
	log, closeFn, err = Open(Config{Level: "info", File: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	log.Info(context.Background(), "second run")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "first run") || !strings.Contains(string(data), "second run") {
		t.Fatalf("log file missing entries: %q", string(data))
	}
}

func TestOpen_FailsOnUnwritablePath(t *testing.T) {
	dir := t.TempDir()
	// The directory itself is not a writable file target.
	if _, _, err := Open(Config{File: dir}); err == nil {
		t.Fatal("expected an error for an unwritable path")
	}
}

func TestWithRequestLogger_AttachesID(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(Config{Format: "json"}, &buf)

	ctx, log := WithRequestLogger(context.Background(), base)
	id := RequestIDFromContext(ctx)
	if id == "" {
		t.Fatal("expected a request id on the context")
	}

	log.Info(ctx, "handled")
	if !strings.Contains(buf.String(), id) {
		t.Fatalf("log line does not carry request id %s: %q", id, buf.String())
	}
}
