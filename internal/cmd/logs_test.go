package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func keepAll(string) bool { return true }

func TestReadChunkLines_ReadsActualBytesOnShortRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")
	err := os.WriteFile(path, []byte("line1\nline2\n"), 0o644)
	if err != nil {
		t.Fatalf("write test file: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open test file: %v", err)
	}
	defer f.Close()

	var offset int64 = 12
	lines, _, readErr := readChunkLines(f, &offset, 4096, "")
	if readErr != nil {
		t.Fatalf("readChunkLines returned error: %v", readErr)
	}

	for _, line := range lines {
		for _, ch := range []byte(line) {
			if ch == 0 {
				t.Fatalf("unexpected NUL byte in line %q", line)
			}
		}
	}
	if offset != 0 {
		t.Errorf("offset = %d, want 0", offset)
	}
}

func TestCollectTailLines_PropagatesReadError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")
	err := os.WriteFile(path, []byte("hello\n"), 0o644)
	if err != nil {
		t.Fatalf("write test file: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open test file: %v", err)
	}
	_ = f.Close() // force read error

	_, gotErr := collectTailLines(f, 6, 1, keepAll)
	if gotErr == nil {
		t.Fatal("expected error from closed file")
	}
}

func TestTailLogs_LinesSpanningChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "browse.log")
	var b strings.Builder
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&b, `{"level":"INFO","msg":"line %03d"}`+"\n", i)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	lines, err := tailLogs(path, 3, keepAll)
	if err != nil {
		t.Fatalf("tailLogs: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if !strings.Contains(lines[0], "line 497") || !strings.Contains(lines[2], "line 499") {
		t.Errorf("unexpected tail: %v", lines)
	}
}

func TestLevelFilter(t *testing.T) {
	keep := levelFilter("warn")

	tests := []struct {
		line string
		want bool
	}{
		{`{"level":"DEBUG","msg":"x"}`, false},
		{`{"level":"INFO","msg":"x"}`, false},
		{`{"level":"WARN","msg":"x"}`, true},
		{`{"level":"ERROR","msg":"x"}`, true},
		{`not json`, true},
	}
	for _, tt := range tests {
		if got := keep(tt.line); got != tt.want {
			t.Errorf("keep(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}

	if !levelFilter("")(`{"level":"DEBUG"}`) {
		t.Error("empty level should keep everything")
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFollowLogs_PrintsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "browse.log")
	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &lockedBuffer{}
	done := make(chan error, 1)
	go func() { done <- followLogs(ctx, path, out, keepAll) }()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "Following") {
		if time.Now().After(deadline) {
			t.Fatal("follow did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString("new entry\n")
	_ = f.Close()

	for !strings.Contains(out.String(), "new entry") {
		if time.Now().After(deadline) {
			t.Fatalf("appended line not printed, got %q", out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if strings.Contains(out.String(), "\nold\n") {
		t.Error("follow should start at the end of the file")
	}

	cancel()
	<-done
}
