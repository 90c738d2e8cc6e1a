package logger

import (
	"bytes"
	"os"
	"testing"
	"time"
)

// capture redirects output and freezes the clock for one test.
func capture(t *testing.T, v bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(v)
	now = func() time.Time { return time.Date(2026, 10, 15, 14, 3, 22, 0, time.UTC) }
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
		now = time.Now
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	if IsVerbose() {
		t.Error("expected verbose to be false initially")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}
}

func TestPackageLevel_WhenVerbose(t *testing.T) {
	buf := capture(t, true)

	Info("fetched %d records", 12)

	want := "15-10-2026 14:03:22 - INFO - trialdex - fetched 12 records\n"
	if buf.String() != want {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestPackageLevel_WhenNotVerbose(t *testing.T) {
	buf := capture(t, false)

	Debug("hidden")
	Info("hidden")
	Warn("hidden")
	Section("hidden")

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestError_AlwaysPrinted(t *testing.T) {
	buf := capture(t, false)

	Error("write failed: %v", "disk full")

	want := "15-10-2026 14:03:22 - ERROR - trialdex - write failed: disk full\n"
	if buf.String() != want {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestNamed(t *testing.T) {
	buf := capture(t, true)
	log := Named("embedder")

	if log.Name() != "embedder" {
		t.Errorf("expected name embedder, got %q", log.Name())
	}

	log.Warn("retry %d", 2)
	log.Debug("batch")

	want := "15-10-2026 14:03:22 - WARNING - embedder - retry 2\n" +
		"15-10-2026 14:03:22 - DEBUG - embedder - batch\n"
	if buf.String() != want {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestNamed_ErrorWhenNotVerbose(t *testing.T) {
	buf := capture(t, false)

	Named("index").Error("swap failed")
	Named("index").Info("hidden")

	want := "15-10-2026 14:03:22 - ERROR - index - swap failed\n"
	if buf.String() != want {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestSection(t *testing.T) {
	buf := capture(t, true)

	Section("Load")

	if buf.String() != "\n=== Load ===\n" {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
