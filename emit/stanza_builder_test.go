package emit

import (
	"strings"
	"testing"

	"github.com/LineageOS/android-tools-extract-utils/classify"
	"github.com/LineageOS/android-tools-extract-utils/manifest"
)

func recordFor(t *testing.T, spec string) *manifest.Record {
	t.Helper()
	recs, err := manifest.Parse(strings.NewReader(spec), manifest.ParseOptions{})
	if err != nil {
		t.Fatalf("Parse(%q): %v", spec, err)
	}
	if len(recs) != 1 {
		t.Fatalf("Parse(%q) = %d records, want 1", spec, len(recs))
	}
	return recs[0]
}

func TestBuildStanzaSharedLibrary(t *testing.T) {
	rec := recordFor(t, "vendor/lib64/libfoo.so")
	b := classify.Bucket{Record: rec, Partition: "vendor", Class: classify.ClassSharedLibraries, ABI: classify.ABI64}

	fixup := func(lib, _, _ string) (string, bool) {
		if lib == "libdrop.so" {
			return "", false
		}
		return lib, true
	}

	s := BuildStanza(b, "myvendor", "android_arm64", []string{"libbar.so", "libdrop.so"}, fixup)
	out := s.String()

	if !strings.HasPrefix(out, "cc_prebuilt_library_shared ") {
		t.Fatalf("expected cc_prebuilt_library_shared rule, got %q", out)
	}
	if !strings.Contains(out, `"lib64/libfoo.so"`) {
		t.Fatalf("expected relative src path, got %s", out)
	}
	if !strings.Contains(out, `"libbar.so"`) || strings.Contains(out, "libdrop.so") {
		t.Fatalf("expected libbar.so kept and libdrop.so dropped, got %s", out)
	}
	if !strings.Contains(out, `soc_specific: true`) {
		t.Fatalf("expected vendor partition to set soc_specific, got %s", out)
	}
}

func TestBuildStanzaPrivApp(t *testing.T) {
	rec := recordFor(t, "system/priv-app/Foo/Foo.apk;PRESIGNED")
	b := classify.Bucket{Record: rec, Partition: "system", Class: classify.ClassAppsPriv}

	s := BuildStanza(b, "myvendor", "", nil, nil)
	out := s.String()

	if !strings.HasPrefix(out, "android_app_import ") {
		t.Fatalf("expected android_app_import rule, got %q", out)
	}
	if !strings.Contains(out, "privileged: true") {
		t.Fatalf("expected privileged: true, got %s", out)
	}
	if !strings.Contains(out, "presigned: true") {
		t.Fatalf("expected presigned: true, got %s", out)
	}
}

func TestBuildStanzaXMLUsesEtcXmlRule(t *testing.T) {
	rec := recordFor(t, "vendor/etc/permissions/foo.xml")
	b := classify.Bucket{Record: rec, Partition: "vendor", Class: classify.ClassETC}

	s := BuildStanza(b, "myvendor", "", nil, nil)
	if !strings.HasPrefix(s.String(), "prebuilt_etc_xml ") {
		t.Fatalf("expected prebuilt_etc_xml rule, got %q", s.String())
	}
}

func TestMergeSharedLibraryTargetCollapsesLib32AndLib64IntoOneStanza(t *testing.T) {
	rec32 := recordFor(t, "vendor/lib/libx.so")
	rec64 := recordFor(t, "vendor/lib64/libx.so")

	bucket32 := classify.Bucket{Record: rec32, Partition: "vendor", Class: classify.ClassSharedLibraries, ABI: classify.ABIBoth}
	bucket64 := classify.Bucket{Record: rec64, Partition: "vendor", Class: classify.ClassSharedLibraries, ABI: classify.ABIBoth}

	s := BuildStanza(bucket32, "myvendor", "android_arm", nil, nil)
	if got, want := StanzaName(rec32), StanzaName(rec64); got != want {
		t.Fatalf("expected both records to share a module name, got %q and %q", got, want)
	}
	MergeSharedLibraryTarget(s, "android_arm64", RelPath(rec64, bucket64.Partition), nil, bucket64.Partition, rec64.Basename(), nil)

	out := s.String()
	if strings.Count(out, "cc_prebuilt_library_shared ") != 1 {
		t.Fatalf("expected exactly one stanza declaration, got %s", out)
	}
	if !strings.Contains(out, `compile_multilib: "both"`) {
		t.Fatalf("expected compile_multilib both, got %s", out)
	}
	if !strings.Contains(out, "android_arm:") || !strings.Contains(out, "android_arm64:") {
		t.Fatalf("expected both target sub-blocks, got %s", out)
	}
	if !strings.Contains(out, `"lib/libx.so"`) || !strings.Contains(out, `"lib64/libx.so"`) {
		t.Fatalf("expected both src paths, got %s", out)
	}
}

func TestBuildSymlinkStanzas(t *testing.T) {
	rec := recordFor(t, "-vendor/bin/foo;SYMLINK=vendor/bin/bar")
	stanzas := BuildSymlinkStanzas(rec, "vendor")
	if len(stanzas) != 1 {
		t.Fatalf("expected 1 symlink stanza, got %d", len(stanzas))
	}
	out := stanzas[0].String()
	if !strings.HasPrefix(out, "install_symlink ") {
		t.Fatalf("expected install_symlink rule, got %q", out)
	}
	if !strings.Contains(out, `name: "foo_bar_symlink"`) {
		t.Fatalf("expected name foo_bar_symlink, got %s", out)
	}
	if !strings.Contains(out, `installed_location: "bin/bar"`) {
		t.Fatalf("expected installed_location bin/bar, got %s", out)
	}
	if !strings.Contains(out, `symlink_target: "/vendor/bin/foo"`) {
		t.Fatalf("expected symlink_target to point at source record, got %s", out)
	}
	if !strings.Contains(out, `soc_specific: true`) {
		t.Fatalf("expected vendor partition to set soc_specific, got %s", out)
	}
}

func TestBuildSymlinkStanzasDedupesCollidingNames(t *testing.T) {
	rec := recordFor(t, "-vendor/bin/foo;SYMLINK=vendor/bin/bar,vendor/etc/bar")
	stanzas := BuildSymlinkStanzas(rec, "vendor")
	if len(stanzas) != 2 {
		t.Fatalf("expected 2 symlink stanzas, got %d", len(stanzas))
	}
	if !strings.Contains(stanzas[0].String(), `name: "foo_bar_symlink"`) {
		t.Fatalf("expected first stanza name foo_bar_symlink, got %s", stanzas[0].String())
	}
	if !strings.Contains(stanzas[1].String(), `name: "foo_bar_symlink_2"`) {
		t.Fatalf("expected second colliding stanza to get a numeric suffix, got %s", stanzas[1].String())
	}
}
