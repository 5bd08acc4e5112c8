package classify

import (
	"strings"
	"testing"

	"github.com/LineageOS/android-tools-extract-utils/manifest"
)

func mustParseOne(t *testing.T, text string) *manifest.Record {
	t.Helper()
	recs, err := manifest.Parse(strings.NewReader(text), manifest.ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	return recs[0]
}

func TestPartitionLongestPrefix(t *testing.T) {
	cases := map[string]string{
		"vendor/lib/libfoo.so":         "vendor",
		"system/vendor/lib/libfoo.so":  "vendor",
		"system/vendor/odm/etc/x.xml":  "odm",
		"product/etc/x.xml":            "product",
		"system/product/etc/x.xml":     "product",
		"system_ext/etc/x.xml":         "system_ext",
		"system/framework/services.jar": "system",
		"vendor_dlkm/lib/modules/x.ko":  "vendor_dlkm",
	}

	for dst, want := range cases {
		rec := &manifest.Record{DstPath: dst}
		if got := Partition(rec); got != want {
			t.Errorf("Partition(%q) = %q, want %q", dst, got, want)
		}
	}
}

func TestClassifyClassApexApkJar(t *testing.T) {
	rec := mustParseOne(t, "-system/apex/com.foo.apex\n")
	if got := ClassifyClass(rec, ""); got != ClassAPEX {
		t.Errorf("got %v", got)
	}

	privApk := mustParseOne(t, "system/priv-app/Foo/Foo.apk;PRESIGNED\n")
	if got := ClassifyClass(privApk, ""); got != ClassAppsPriv {
		t.Errorf("got %v", got)
	}

	sysApk := mustParseOne(t, "system/app/Foo/Foo.apk;PRESIGNED\n")
	if got := ClassifyClass(sysApk, ""); got != ClassAppsSystem {
		t.Errorf("got %v", got)
	}

	jar := mustParseOne(t, "-system/framework/foo.jar\n")
	if got := ClassifyClass(jar, ""); got != ClassJavaLibraries {
		t.Errorf("got %v", got)
	}
}

func TestClassifyClassRFSAAndSharedLibs(t *testing.T) {
	rfsa := mustParseOne(t, "-vendor/lib/rfsa/adsprpc.so\n")
	if got := ClassifyClass(rfsa, ""); got != ClassRFSA {
		t.Errorf("got %v", got)
	}

	lib := mustParseOne(t, "-vendor/lib64/libfoo.so\n")
	if got := ClassifyClass(lib, ""); got != ClassSharedLibraries {
		t.Errorf("got %v", got)
	}
}

func TestLibrarySetABIDifference(t *testing.T) {
	s := NewLibrarySet()
	s.Add(&manifest.Record{DstPath: "vendor/lib/libfoo.so"})
	s.Add(&manifest.Record{DstPath: "vendor/lib64/libfoo.so"})
	s.Add(&manifest.Record{DstPath: "vendor/lib64/libbar.so"})

	if got := s.ABIFor("vendor", "libfoo.so"); got != ABIBoth {
		t.Errorf("libfoo ABI = %v, want both", got)
	}
	if got := s.ABIFor("vendor", "libbar.so"); got != ABI64 {
		t.Errorf("libbar ABI = %v, want 64", got)
	}
	if got := s.ABIFor("vendor", "libbaz.so"); got != ABINone {
		t.Errorf("libbaz ABI = %v, want none", got)
	}
}

func TestLibrarySetABIScopedPerPartition(t *testing.T) {
	s := NewLibrarySet()
	s.Add(&manifest.Record{DstPath: "system/lib/libx.so"})
	s.Add(&manifest.Record{DstPath: "vendor/lib64/libx.so"})

	if got := s.ABIFor("system", "libx.so"); got != ABI32 {
		t.Errorf("system libx ABI = %v, want 32", got)
	}
	if got := s.ABIFor("vendor", "libx.so"); got != ABI64 {
		t.Errorf("vendor libx ABI = %v, want 64", got)
	}
}

func TestClassifyBinNonELFIsShellScript(t *testing.T) {
	rec := mustParseOne(t, "-vendor/bin/init.sh\n")
	b := Classify(rec, "", nil)
	if b.Class != ClassShellScript {
		t.Errorf("class = %v, want shell script", b.Class)
	}
}
