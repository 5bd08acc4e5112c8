package acquire

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/LineageOS/android-tools-extract-utils/tool"
	"github.com/rs/zerolog"
)

// countingRunner records every subprocess invocation and, for the tools
// under test that mkdir their own output directory before invocation, is
// safe to call concurrently.
type countingRunner struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *countingRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string{name}, args...))
	return nil, nil
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func writeMagic(t *testing.T, path string, offset int64, magic []byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := f.Truncate(offset + int64(len(magic))); err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteAt(magic, offset); err != nil {
		t.Fatal(err)
	}
}

func TestExtractDispatchesErofsAndCleansUp(t *testing.T) {
	dumpDir := t.TempDir()
	writeMagic(t, filepath.Join(dumpDir, "vendor.img"), 1024, []byte{0xE2, 0xE1, 0xF5, 0xE0})

	r := &countingRunner{}
	tools := &Tools{Fsck: &tool.Fsck{Runner: r}}

	err := Extract(context.Background(), tools, dumpDir, []string{"vendor"}, nil, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if r.count() != 1 {
		t.Fatalf("expected 1 fsck.erofs call, got %d", r.count())
	}
	if _, err := os.Stat(filepath.Join(dumpDir, "vendor.img")); !os.IsNotExist(err) {
		t.Fatal("expected vendor.img to be removed after extraction")
	}
	if _, err := os.Stat(filepath.Join(dumpDir, "vendor")); err != nil {
		t.Fatalf("expected vendor/ output dir: %v", err)
	}
}

func TestExtractRunsExtractFnsAfterBuiltins(t *testing.T) {
	dumpDir := t.TempDir()
	tools := &Tools{}

	var ran bool
	fn := func(_ context.Context, gotDir string) error {
		ran = true
		if gotDir != dumpDir {
			t.Fatalf("ExtractFn got dir %s, want %s", gotDir, dumpDir)
		}
		return nil
	}

	err := Extract(context.Background(), tools, dumpDir, nil, nil, []ExtractFn{fn}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !ran {
		t.Fatal("expected ExtractFn to run")
	}
}

func TestExtractNoOpOnEmptyDir(t *testing.T) {
	dumpDir := t.TempDir()
	tools := &Tools{}

	if err := Extract(context.Background(), tools, dumpDir, []string{"vendor"}, nil, nil, zerolog.Nop()); err != nil {
		t.Fatalf("Extract on an empty dump dir should be a no-op: %v", err)
	}
}
