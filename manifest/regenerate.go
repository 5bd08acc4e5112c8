package manifest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// TreeLister is the minimal capability RegenerateFromTree needs from a
// resolve.Source, kept as a local interface so this package doesn't
// import resolve (which itself imports manifest).
type TreeLister interface {
	ListSubDirFiles(ctx context.Context, subPath string) ([]string, error)
}

// RegenerateFromTree scans partition/regex for files not present in skip,
// returning manifest source specs (`<partition>/<rel>`), the directory-
// scan regeneration described in SPEC_FULL.md SUPPLEMENTED FEATURE 1
// (module.py's GeneratedProprietaryFile.regenerate).
func RegenerateFromTree(ctx context.Context, tree TreeLister, partition, pattern string, skip []string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	skipSet := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipSet[s] = true
	}

	relPaths, err := tree.ListSubDirFiles(ctx, partition)
	if err != nil {
		return nil, err
	}

	var specs []string
	for _, rel := range relPaths {
		if !re.MatchString(rel) {
			continue
		}
		if skipSet[rel] {
			continue
		}
		specs = append(specs, partition+"/"+rel)
	}

	sort.Strings(specs)
	return specs, nil
}

// ParseSkipList parses a skip-file's contents (one relative path per
// non-comment, non-blank line) into a slice, mirroring
// module.py's use of utils.parse_lines for skip_file_list_name.
func ParseSkipList(lines []string) []string {
	var out []string
	for _, l := range lines {
		if l != "" && !strings.HasPrefix(l, "#") {
			out = append(out, l)
		}
	}
	return out
}

// RewriteSection replaces the named section's block in the list file at
// path with specs, matching selectLines' block convention: a `# section`
// comment line through the next blank line (or EOF). If the section isn't
// already present, its block is appended at the end of the file. This is
// the write side of --regenerate (SUPPLEMENTED FEATURE 1), keeping every
// other section byte-for-byte untouched.
func RewriteSection(path, section string, specs []string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read manifest %s: %w", path, err)
	}

	var out bytes.Buffer
	wantSection := strings.ToLower(section)
	scanner := bufio.NewScanner(bytes.NewReader(data))

	found := false
	inSection := false
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "#") && strings.ToLower(strings.Trim(trimmed, "# ")) == wantSection {
			found = true
			inSection = true
			out.WriteString(line)
			out.WriteString("\n")
			for _, spec := range specs {
				out.WriteString(spec)
				out.WriteString("\n")
			}
			continue
		}

		if inSection {
			if trimmed == "" {
				inSection = false
				out.WriteString(line)
				out.WriteString("\n")
			}
			continue
		}

		out.WriteString(line)
		out.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan manifest %s: %w", path, err)
	}

	if !found {
		out.WriteString("# ")
		out.WriteString(section)
		out.WriteString("\n")
		for _, spec := range specs {
			out.WriteString(spec)
			out.WriteString("\n")
		}
	}

	return os.WriteFile(path, out.Bytes(), 0644)
}
