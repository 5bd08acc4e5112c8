package tool

import (
	"context"
	"testing"
)

type fakeRunner struct {
	calls [][]string
	err   error
	out   []byte
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.out, f.err
}

func TestPatchelfSetSoname(t *testing.T) {
	r := &fakeRunner{}
	p := &Patchelf{Runner: r, Path: "/root/prebuilts/extract-tools/linux-x86/bin/patchelf-0_9"}

	if err := p.SetSoname(context.Background(), "/tmp/libx.so", "libx.so"); err != nil {
		t.Fatalf("SetSoname: %v", err)
	}

	if len(r.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(r.calls))
	}

	want := []string{p.Path, "--set-soname", "libx.so", "/tmp/libx.so"}
	got := r.calls[0]
	if len(got) != len(want) {
		t.Fatalf("args mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("args mismatch at %d: got %v want %v", i, got, want)
		}
	}
}

func TestToolFailureError(t *testing.T) {
	err := &ToolFailure{Tool: "lpunpack", Args: []string{"--partition", "vendor"}, Code: 1, Stderr: "boom"}
	if err.Error() == "" {
		t.Fatal("expected non-empty error string")
	}
}

func TestPathsResolveUnderRoot(t *testing.T) {
	p := NewPaths("/android")
	if got, want := p.Simg2Img(), "/android/prebuilts/extract-tools/linux-x86/bin/simg2img"; got != want {
		t.Fatalf("Simg2Img() = %q, want %q", got, want)
	}
	if got, want := p.Patchelf(""), "/android/prebuilts/extract-tools/linux-x86/bin/patchelf-0_9"; got != want {
		t.Fatalf("Patchelf(\"\") = %q, want %q", got, want)
	}
	if got, want := p.Patchelf("0_17_2"), "/android/prebuilts/extract-tools/linux-x86/bin/patchelf-0_17_2"; got != want {
		t.Fatalf("Patchelf(0_17_2) = %q, want %q", got, want)
	}
}
