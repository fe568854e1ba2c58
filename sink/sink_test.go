package sink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSelectBlockCryptKnownMethod(t *testing.T) {
	block, effective := SelectBlockCrypt("aes-128", []byte("0123456789abcdef0123456789abcdef"))
	if block == nil {
		t.Fatalf("expected a non-nil cipher for aes-128")
	}
	if effective != "aes-128" {
		t.Fatalf("effective cipher = %q, want aes-128", effective)
	}
}

func TestSelectBlockCryptUnknownFallsBackToAES(t *testing.T) {
	block, effective := SelectBlockCrypt("not-a-real-cipher", []byte("0123456789abcdef0123456789abcdef"))
	if block == nil {
		t.Fatalf("expected fallback cipher to be constructed")
	}
	if effective != "aes" {
		t.Fatalf("effective cipher = %q, want aes fallback", effective)
	}
}

func TestSelectBlockCryptNullHasNoCipher(t *testing.T) {
	block, effective := SelectBlockCrypt("null", nil)
	if block != nil {
		t.Fatalf("expected nil cipher for null method")
	}
	if effective != "null" {
		t.Fatalf("effective cipher = %q, want null", effective)
	}
}

type fakeSnapshot struct{ tick int }

func (f fakeSnapshot) Header() []string  { return []string{"tick"} }
func (f fakeSnapshot) ToSlice() []string { return []string{"42"} }

func TestStatsCSVLoggerWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.csv")

	logger := NewStatsCSVLogger(path, time.Millisecond, func() SnapshotSource { return fakeSnapshot{} })

	now := time.Unix(1000, 0)
	if err := logger.Tick(now); err != nil {
		t.Fatalf("first Tick failed: %v", err)
	}
	if err := logger.Tick(now.Add(time.Second)); err != nil {
		t.Fatalf("second Tick failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (header + 2 rows): %q", len(lines), string(data))
	}
	if lines[0] != "unix,tick" {
		t.Fatalf("header = %q, want \"unix,tick\"", lines[0])
	}
}

func TestStatsCSVLoggerRespectsInterval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.csv")

	calls := 0
	logger := NewStatsCSVLogger(path, time.Second, func() SnapshotSource {
		calls++
		return fakeSnapshot{}
	})

	now := time.Unix(0, 0)
	logger.Tick(now)
	logger.Tick(now.Add(100 * time.Millisecond)) // within interval, should be a no-op

	if calls != 1 {
		t.Fatalf("take() called %d times, want 1 (second tick should be suppressed)", calls)
	}
}

func TestStatsCSVLoggerEmptyPathIsNoop(t *testing.T) {
	logger := NewStatsCSVLogger("", time.Millisecond, func() SnapshotSource { return fakeSnapshot{} })
	if err := logger.Tick(time.Now()); err != nil {
		t.Fatalf("expected no-op for empty path, got error: %v", err)
	}
}
