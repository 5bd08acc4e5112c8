package emit

import (
	"fmt"
	"io"
	"strings"

	"github.com/LineageOS/android-tools-extract-utils/manifest"
)

// WriteProductCopyFiles emits one `PRODUCT_COPY_FILES +=` block, one
// line per non-packaged record, ported from
// original_source/extract_utils/makefiles.py's write_product_copy_files.
// relPath is the vendor tree's proprietary-files prefix
// (`<outdir>/proprietary`).
func WriteProductCopyFiles(w io.Writer, relPath string, records []*manifest.Record, partitionOf func(*manifest.Record) string) error {
	if len(records) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("\nPRODUCT_COPY_FILES +=")

	for _, rec := range records {
		partition := partitionOf(rec)
		target := fmt.Sprintf("$(TARGET_COPY_OUT_%s)", strings.ToUpper(partition))
		relDst := truncateFirstSegment(rec.DstPath)
		fmt.Fprintf(&b, " \\\n    %s/%s:%s/%s", relPath, rec.DstPath, target, relDst)
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// truncateFirstSegment strips the leading partition path segment,
// keeping the rest, like makefiles.py's `file.dst[len(file.partition):]`
// slice except that the separating slash is dropped too.
func truncateFirstSegment(dst string) string {
	i := strings.IndexByte(dst, '/')
	if i < 0 {
		return ""
	}
	return dst[i+1:]
}

// WritePackagesInclusion emits `PRODUCT_PACKAGES += \` followed by one
// package name per line, ported from write_packages_inclusion.
func WritePackagesInclusion(w io.Writer, packageNames []string) error {
	if len(packageNames) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("\nPRODUCT_PACKAGES +=")
	for _, name := range packageNames {
		fmt.Fprintf(&b, " \\\n    %s", name)
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}
