package fixup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LineageOS/android-tools-extract-utils/config"
	"github.com/LineageOS/android-tools-extract-utils/manifest"
	"github.com/rs/zerolog"
)

func TestFixXMLDeclarationMovesDeclToFirstLine(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "res.xml")
	content := "<resources>\n<string name=\"a\">a</string>\n<?xml version=\"1.0\" encoding=\"utf-8\"?>\n"
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if err := FixXMLDeclaration(p); err != nil {
		t.Fatal(err)
	}

	out, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(string(out), "\n")
	if !strings.HasPrefix(lines[0], "<?xml version") {
		t.Fatalf("expected xml decl on first line, got %q", lines[0])
	}
}

func TestFixXMLDeclarationNoOpWithoutDecl(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "res.xml")
	content := "<resources></resources>\n"
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if err := FixXMLDeclaration(p); err != nil {
		t.Fatal(err)
	}

	out, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != content {
		t.Fatalf("expected unchanged content, got %q", out)
	}
}

func TestRunSkipsWhenDryHookRejects(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "res.xml")
	if err := os.WriteFile(p, []byte("<?xml version=\"1.0\"?>\n<a/>\n"), 0644); err != nil {
		t.Fatal(err)
	}

	rec, err := manifest.Parse(strings.NewReader("system/etc/res.xml\n"), manifest.ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}

	hooks := &config.Hooks{
		BlobFixupDry: func(name string) bool { return false },
	}

	res, err := Run(context.Background(), &Deps{Hooks: hooks}, rec[0], p, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if res.FixedUp {
		t.Fatal("expected no fixup when dry hook rejects")
	}
	if res.PreFixupHash != res.PostFixupHash {
		t.Fatal("expected identical pre/post hash when skipped")
	}
}

func TestRunFixesXMLDeclarationByExtension(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "res.xml")
	if err := os.WriteFile(p, []byte("<a/>\n<?xml version=\"1.0\"?>\n"), 0644); err != nil {
		t.Fatal(err)
	}

	rec, err := manifest.Parse(strings.NewReader("system/etc/res.xml\n"), manifest.ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}

	res, err := Run(context.Background(), &Deps{Hooks: &config.Hooks{}}, rec[0], p, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if !res.FixedUp {
		t.Fatal("expected FixedUp=true after reordering xml declaration")
	}

	out, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(out), "<?xml version") {
		t.Fatal("expected declaration moved to first line")
	}
}

func TestRunCallsUserHook(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "libfoo.so")
	if err := os.WriteFile(p, []byte("orig"), 0644); err != nil {
		t.Fatal(err)
	}

	rec, err := manifest.Parse(strings.NewReader("vendor/lib/libfoo.so\n"), manifest.ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}

	called := false
	hooks := &config.Hooks{
		BlobFixup: func(name, path string) error {
			called = true
			return os.WriteFile(path, []byte("patched"), 0644)
		},
	}

	res, err := Run(context.Background(), &Deps{Hooks: hooks}, rec[0], p, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Fatal("expected user hook to be called")
	}
	if !res.FixedUp {
		t.Fatal("expected FixedUp=true after user hook patched the file")
	}
}

func TestProbeELFRejectsNonELF(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "notelf")
	if err := os.WriteFile(p, []byte("not an elf file"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, ok := ProbeELF(p); ok {
		t.Fatal("expected non-ELF file to be rejected")
	}
	if IsELF(p) {
		t.Fatal("expected IsELF to be false")
	}
}
