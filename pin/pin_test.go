package pin

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LineageOS/android-tools-extract-utils/manifest"
)

func TestEvaluateKeepAsIs(t *testing.T) {
	rec := &manifest.Record{PinnedHash: "abc"}
	if got := Evaluate(rec, "abc"); got != DecisionKeepAsIs {
		t.Fatalf("got %v", got)
	}
}

func TestEvaluateKeepPostFixup(t *testing.T) {
	rec := &manifest.Record{PinnedHash: "abc", FixupHash: "def"}
	if got := Evaluate(rec, "def"); got != DecisionKeepPostFixup {
		t.Fatalf("got %v", got)
	}
}

func TestEvaluateNeedsFixup(t *testing.T) {
	rec := &manifest.Record{PinnedHash: "abc", FixupHash: "def"}
	if got := Evaluate(rec, "abc"); got != DecisionNeedsFixup {
		t.Fatalf("got %v", got)
	}
}

func TestEvaluateMismatch(t *testing.T) {
	rec := &manifest.Record{PinnedHash: "abc"}
	if got := Evaluate(rec, "zzz"); got != DecisionMismatch {
		t.Fatalf("got %v", got)
	}
}

func TestFileSHA1KnownValue(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f")
	if err := os.WriteFile(p, []byte("hello\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// sha1("hello\n") == f572d396fae9206628714fb2ce00f72e94f2258f
	hash, err := FileSHA1(p)
	if err != nil {
		t.Fatal(err)
	}
	if want := "f572d396fae9206628714fb2ce00f72e94f2258f"; hash != want {
		t.Fatalf("hash = %s, want %s", hash, want)
	}
}

func TestFindReusableZeroSubprocessInvariant(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "Bar.apk")
	if err := os.WriteFile(outPath, []byte("hello\n"), 0644); err != nil {
		t.Fatal(err)
	}

	rec := &manifest.Record{DstPath: "app/Bar/Bar.apk", PinnedHash: "f572d396fae9206628714fb2ce00f72e94f2258f"}

	c, decision, _, ok := FindReusable(rec, []Candidate{{Label: "output", Path: outPath}})
	if !ok || decision != DecisionKeepAsIs {
		t.Fatalf("expected KeepAsIs reuse, got ok=%v decision=%v", ok, decision)
	}
	if c.Label != "output" {
		t.Fatalf("expected output candidate, got %s", c.Label)
	}
}

func TestVerifyPostFixupMismatch(t *testing.T) {
	rec := &manifest.Record{FixupHash: "expected"}
	err := VerifyPostFixup(rec, "actual")
	if err == nil {
		t.Fatal("expected mismatch error")
	}
	if _, ok := err.(*HashMismatch); !ok {
		t.Fatalf("expected *HashMismatch, got %T", err)
	}
}

func TestKangSpecPrePostDiffer(t *testing.T) {
	rec, err := manifest.Parse(strings.NewReader("vendor/lib/liby.so;FIX_SONAME\n"), manifest.ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}

	spec := KangSpec(rec[0], "pre1234", "post5678")
	if got := spec; got == "" {
		t.Fatal("expected non-empty kang spec")
	}
}
