package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGetBeforeInit(t *testing.T) {
	global.Store(nil)
	l := Get()
	if l == nil {
		t.Fatal("Get returned nil before Init")
	}
	// must not panic
	l.Named("x").With(String("k", "v")).Info(context.Background(), "dropped")
}

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithFormat("json"), WithOutput(&buf)); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("sync: %v", err)
		}
	}()

	Named("export").With(String("project", "p1")).Info(context.Background(), "export started",
		Int("attempt", 1),
		Float64("progress", 0.5),
		Bool("stale", true),
		Duration("elapsed", time.Second),
		Error(errors.New("boom")),
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if entry["msg"] != "export started" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["logger"] != "export" {
		t.Errorf("logger = %v", entry["logger"])
	}
	if entry["project"] != "p1" {
		t.Errorf("project = %v", entry["project"])
	}
	if src, _ := entry["source"].(string); !strings.Contains(src, "logger_test.go") {
		t.Errorf("source = %v", entry["source"])
	}
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf)); err != nil {
		t.Fatalf("init: %v", err)
	}
	Get().Debug(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug logged at info level: %q", buf.String())
	}
	if err := SetLevelString("debug"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	Get().Debug(context.Background(), "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("debug not logged: %q", buf.String())
	}
	if err := SetLevelString("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	_ = SetLevelString("info")
}

func TestInitUnknownFormat(t *testing.T) {
	if err := Init(WithFormat("xml")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Warn(context.Background(), "nothing")
	if l.Named("a") == nil || l.With() == nil {
		t.Fatal("nop logger returned nil")
	}
}
