package debug

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLogWritesCategoryAndMessage(t *testing.T) {
	now = func() time.Time { return time.Date(2024, 1, 1, 12, 30, 15, 250e6, time.UTC) }
	defer func() { now = time.Now }()

	var buf bytes.Buffer
	Enable(&buf)
	defer Disable()

	Log("ticker", "dropped offset=%.3f", 1.5)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected start banner + 1 line, got %q", buf.String())
	}
	want := "[12:30:15.250] ticker     dropped offset=1.500"
	if lines[1] != want {
		t.Fatalf("line = %q, want %q", lines[1], want)
	}
}

func TestLogIsSilentWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	Enable(&buf)
	Disable()
	Log("clock", "should not appear")
	if strings.Contains(buf.String(), "should not appear") {
		t.Fatalf("disabled logger wrote output: %q", buf.String())
	}
	if Enabled() {
		t.Fatalf("Enabled() = true after Disable")
	}
}

func TestLogEveryThrottles(t *testing.T) {
	var buf bytes.Buffer
	Enable(&buf)
	defer Disable()

	for i := 0; i < 10; i++ {
		LogEvery(5, "poll", "tick")
	}
	if got := strings.Count(buf.String(), "tick (every 5"); got != 2 {
		t.Fatalf("expected 2 throttled lines, got %d in %q", got, buf.String())
	}
}
