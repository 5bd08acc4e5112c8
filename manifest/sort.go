package manifest

import (
	"regexp"
	"sort"
	"strings"
)

var (
	sortStripLeadingDash = regexp.MustCompile(`^-`)
	sortStripArgs        = regexp.MustCompile(`;.*`)
	sortStripDst         = regexp.MustCompile(`:.*`)
)

// sourceFileName strips the packaged marker, option tokens, and
// destination override from a manifest line, leaving just the source
// path used as the sort key — a direct port of
// original_source/sort-blobs-list.py's get_source_file_name.
func sourceFileName(line string) string {
	line = sortStripLeadingDash.ReplaceAllString(line, "")
	line = sortStripArgs.ReplaceAllString(line, "")
	line = sortStripDst.ReplaceAllString(line, "")
	return line
}

// CompareLines implements the same locale-"C" comparator as
// sort-blobs-list.py's strcoll_extract_utils. Go's default byte-wise
// string comparison already matches glibc's "C" collation, so
// strings.Compare stands in for locale.strcoll under LC_ALL=C.
func CompareLines(a, b string, dirFirst bool) int {
	if a == "" || b == "" {
		return strings.Compare(a, b)
	}

	sa, sb := sourceFileName(a), sourceFileName(b)

	if dirFirst {
		if !strings.Contains(sa, "/") && !strings.Contains(sb, "/") {
			return strings.Compare(sa, sb)
		}

		dirA := sa[:strings.LastIndex(sa, "/")+1]
		dirB := sb[:strings.LastIndex(sb, "/")+1]

		if dirA != dirB {
			if strings.HasPrefix(dirA, dirB) {
				return -1
			}
			if strings.HasPrefix(dirB, dirA) {
				return 1
			}
		}
	}

	return strings.Compare(sa, sb)
}

// SortLines sorts manifest lines in place using CompareLines, the
// sort-blobs-list-equivalent manifest normalization (SPEC_FULL.md
// SUPPLEMENTED FEATURE 5).
func SortLines(lines []string, dirFirst bool) {
	sort.SliceStable(lines, func(i, j int) bool {
		return CompareLines(lines[i], lines[j], dirFirst) < 0
	})
}

// SortSections splits text on blank-line-separated sections, sorts each
// section's lines independently, and rejoins them, mirroring
// sort-blobs-list.py's `__main__` block.
func SortSections(text string, dirFirst bool) string {
	sections := strings.Split(text, "\n\n")

	ordered := make([]string, 0, len(sections))
	for _, section := range sections {
		rawLines := strings.Split(section, "\n")
		lines := make([]string, len(rawLines))
		for i, l := range rawLines {
			lines[i] = strings.TrimSpace(l)
		}

		SortLines(lines, dirFirst)
		ordered = append(ordered, strings.Join(lines, "\n"))
	}

	return strings.TrimSpace(strings.Join(ordered, "\n\n")) + "\n"
}
