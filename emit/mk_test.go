package emit

import (
	"strings"
	"testing"

	"github.com/LineageOS/android-tools-extract-utils/manifest"
)

func TestWriteProductCopyFiles(t *testing.T) {
	recs := []*manifest.Record{
		{DstPath: "vendor/etc/foo.xml"},
		{DstPath: "system/etc/bar.xml"},
	}

	var b strings.Builder
	err := WriteProductCopyFiles(&b, "device/foo/proprietary", recs, func(r *manifest.Record) string {
		if strings.HasPrefix(r.DstPath, "vendor/") {
			return "vendor"
		}
		return "system"
	})
	if err != nil {
		t.Fatal(err)
	}

	out := b.String()
	if !strings.Contains(out, "PRODUCT_COPY_FILES +=") {
		t.Fatal("missing PRODUCT_COPY_FILES header")
	}
	if !strings.Contains(out, "device/foo/proprietary/vendor/etc/foo.xml:$(TARGET_COPY_OUT_VENDOR)/etc/foo.xml") {
		t.Errorf("unexpected line: %s", out)
	}
}

func TestWriteProductCopyFilesEmptyIsNoop(t *testing.T) {
	var b strings.Builder
	if err := WriteProductCopyFiles(&b, "x", nil, nil); err != nil {
		t.Fatal(err)
	}
	if b.String() != "" {
		t.Fatalf("expected empty output, got %q", b.String())
	}
}

func TestWritePackagesInclusion(t *testing.T) {
	var b strings.Builder
	if err := WritePackagesInclusion(&b, []string{"libfoo", "libbar"}); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	if !strings.Contains(out, "PRODUCT_PACKAGES +=") || !strings.Contains(out, "libfoo") || !strings.Contains(out, "libbar") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestTruncateFirstSegment(t *testing.T) {
	if got := truncateFirstSegment("vendor/etc/foo.xml"); got != "etc/foo.xml" {
		t.Errorf("got %q", got)
	}
	if got := truncateFirstSegment("vendor"); got != "" {
		t.Errorf("got %q", got)
	}
}
