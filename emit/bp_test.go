package emit

import (
	"strings"
	"testing"
)

func TestStanzaWriteToBasicSharedLibrary(t *testing.T) {
	s := NewStanza("cc_prebuilt_library_shared").
		Name("libfoo").
		Owner("myvendor").
		PartitionSpecific("vendor").
		CompileMultilib("both").
		Target("android_arm64", "arm64/lib64/libfoo.so", nil).
		Target("android_arm", "arm/lib/libfoo.so", nil)

	out := s.String()

	if !strings.HasPrefix(out, "cc_prebuilt_library_shared {\n") {
		t.Fatalf("expected rule header, got %q", out)
	}
	if !strings.Contains(out, `name: "libfoo",`) {
		t.Errorf("missing name field: %s", out)
	}
	if !strings.Contains(out, "target: {\n") {
		t.Errorf("missing target block: %s", out)
	}
	if !strings.Contains(out, `android_arm64: {`) {
		t.Errorf("missing arm64 arch entry: %s", out)
	}
	if !strings.HasSuffix(out, "}\n\n") {
		t.Errorf("expected trailing blank line, got %q", out)
	}
}

func TestStanzaEmptySharedLibsRendersSpace(t *testing.T) {
	s := NewStanza("cc_prebuilt_binary").
		Name("mybin").
		Target("android_arm64", "arm64/bin/mybin", []string{})

	out := s.String()
	if !strings.Contains(out, "shared_libs: [ ],") {
		t.Errorf("expected empty shared_libs rendered as a space, got %s", out)
	}
}

func TestStanzaSharedLibsTrailingComma(t *testing.T) {
	s := NewStanza("cc_prebuilt_binary").
		Name("mybin").
		Target("android_arm64", "arm64/bin/mybin", []string{"libfoo", "libbar"})

	out := s.String()
	if !strings.Contains(out, `shared_libs: ["libfoo", "libbar", ],`) {
		t.Errorf("expected trailing comma inside shared_libs list, got %s", out)
	}
}

func TestPartitionSpecificMapping(t *testing.T) {
	cases := map[string]string{
		"vendor":     "soc_specific",
		"product":    "product_specific",
		"system_ext": "system_ext_specific",
		"odm":        "device_specific",
	}
	for partition, wantField := range cases {
		s := NewStanza("prebuilt_etc").Name("x").PartitionSpecific(partition)
		out := s.String()
		if !strings.Contains(out, wantField+": true,") {
			t.Errorf("partition %s: expected %s, got %s", partition, wantField, out)
		}
	}
}

func TestPartitionSpecificSystemIsNoop(t *testing.T) {
	s := NewStanza("prebuilt_etc").Name("x").PartitionSpecific("system")
	out := s.String()
	if strings.Contains(out, "_specific:") {
		t.Errorf("system partition should not add a specific field, got %s", out)
	}
}

func TestSortStanzasByName(t *testing.T) {
	stanzas := []*Stanza{
		NewStanza("prebuilt_etc").Name("zzz"),
		NewStanza("prebuilt_etc").Name("aaa"),
	}
	SortStanzas(stanzas)

	if got := stanzas[0].String(); !strings.Contains(got, `"aaa"`) {
		t.Fatalf("expected aaa first, got %s", got)
	}
}
