package manifest

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// MalformedSpec is returned for any manifest line (or manifest-level
// invariant) that cannot be parsed, per §7's error taxonomy.
type MalformedSpec struct {
	Line   string
	Reason string
}

func (e *MalformedSpec) Error() string {
	return fmt.Sprintf("malformed manifest line %q: %s", e.Line, e.Reason)
}

// ParseOptions controls section selection and implicit-packaging
// inference (§4.D).
type ParseOptions struct {
	// Section, if non-empty, restricts parsing to the block starting at
	// the comment line matching Section (case-insensitive) through the
	// next blank line.
	Section string

	// EnableCheckELF turns on implicit packaging inference for shared
	// libraries and executables (§4.D's "check-ELF" mode).
	EnableCheckELF bool

	// Kang strips any hashes present on each line before building the
	// record, since kang mode regenerates hashes rather than enforcing
	// ones already recorded (file.py's `if kang: file.hash = None`).
	Kang bool
}

var manifestPackageExts = map[string]bool{
	".apk":  true,
	".jar":  true,
	".apex": true,
}

var manifestPartsLib = []string{"lib"}
var manifestPartsLib64 = []string{"lib64"}
var manifestPartsBin = []string{"bin"}
var manifestPartsLibRfsa = []string{"lib", "rfsa"}
var manifestPartsVintfManifest = []string{"etc", "vintf", "manifest"}

// Parse reads a manifest from r and returns its records sorted (locale-C)
// and deduplicated by full textual spec, per §3's invariants.
func Parse(r io.Reader, opts ParseOptions) ([]*Record, error) {
	lines, err := selectLines(r, opts.Section)
	if err != nil {
		return nil, err
	}

	sort.Strings(lines)
	lines = dedupStrings(lines)

	records := make([]*Record, 0, len(lines))
	seenDst := map[string]string{}

	for _, line := range lines {
		rec, err := parseLine(line)
		if err != nil {
			return nil, err
		}

		if opts.Kang {
			rec.PinnedHash = ""
			rec.FixupHash = ""
		}

		if isImplicitlyPackaged(rec, opts.EnableCheckELF) {
			rec.Packaged = true
		}

		if prior, ok := seenDst[rec.DstPath]; ok {
			return nil, &MalformedSpec{
				Line:   line,
				Reason: fmt.Sprintf("duplicate destination path %q (also produced by %q)", rec.DstPath, prior),
			}
		}
		seenDst[rec.DstPath] = line

		records = append(records, rec)
	}

	return records, nil
}

// selectLines strips comments/blanks and, if section is non-empty,
// restricts to the block whose header comment matches section
// case-insensitively, from that comment through the next blank line.
func selectLines(r io.Reader, section string) ([]string, error) {
	scanner := bufio.NewScanner(r)

	var lines []string
	var currentSection string
	wantSection := strings.ToLower(section)

	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())

		if raw == "" {
			currentSection = ""
			continue
		}

		if strings.HasPrefix(raw, "#") {
			currentSection = strings.ToLower(strings.Trim(raw, "# "))
			continue
		}

		if section == "" || currentSection == wantSection {
			lines = append(lines, raw)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}

	return lines, nil
}

func dedupStrings(sorted []string) []string {
	if len(sorted) == 0 {
		return sorted
	}

	out := sorted[:1]
	for _, s := range sorted[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}

// parseLine tokenizes a single normalized manifest line per §4.D / §6:
//  1. split on '|' to peel off up to two trailing hashes
//  2. leading '-' marks packaged=true
//  3. split on ';' to separate the path spec from option tokens
//  4. split the path spec on ':' into src[:dst]
func parseLine(line string) (*Record, error) {
	rec := newRecord()
	rec.Line = line

	work := line

	hashParts := strings.Split(work, "|")
	if len(hashParts) > 3 {
		return nil, &MalformedSpec{Line: line, Reason: "too many hashes"}
	}
	work = hashParts[0]
	if len(hashParts) >= 2 {
		rec.PinnedHash = strings.ToLower(hashParts[1])
	}
	if len(hashParts) == 3 {
		rec.FixupHash = strings.ToLower(hashParts[2])
	}

	if strings.HasPrefix(work, "-") {
		rec.Packaged = true
		work = work[1:]
	}
	if work == "" {
		return nil, &MalformedSpec{Line: line, Reason: "empty spec"}
	}

	segments := strings.Split(work, ";")
	pathSpec := segments[0]
	if pathSpec == "" {
		return nil, &MalformedSpec{Line: line, Reason: "empty path spec"}
	}

	pathParts := strings.SplitN(pathSpec, ":", 2)
	rec.SrcPath = pathParts[0]
	if len(pathParts) == 2 {
		rec.DstPath = pathParts[1]
	} else {
		rec.DstPath = pathParts[0]
	}

	for _, tok := range segments[1:] {
		if tok == "" {
			return nil, &MalformedSpec{Line: line, Reason: "empty argument token"}
		}
		if err := applyArgToken(rec, tok, line); err != nil {
			return nil, err
		}
	}

	return rec, nil
}

func applyArgToken(rec *Record, tok, line string) error {
	kv := strings.SplitN(tok, "=", 2)
	key := Arg(kv[0])

	switch {
	case boolArgs[key]:
		if len(kv) != 1 {
			return &MalformedSpec{Line: line, Reason: fmt.Sprintf("argument %s takes no value", key)}
		}
		rec.Flags[key] = true

	case scalarArgs[key]:
		if len(kv) != 2 || kv[1] == "" {
			return &MalformedSpec{Line: line, Reason: fmt.Sprintf("argument %s requires a value", key)}
		}
		rec.Scalars[key] = kv[1]

	case listArgs[key]:
		if len(kv) != 2 || kv[1] == "" {
			return &MalformedSpec{Line: line, Reason: fmt.Sprintf("argument %s requires a value", key)}
		}
		rec.Lists[key] = append(rec.Lists[key], strings.Split(kv[1], ",")...)

	default:
		// Arbitrary bareword token: treated as an APK certificate name.
		if len(kv) != 1 {
			return &MalformedSpec{Line: line, Reason: fmt.Sprintf("unrecognized argument %q", tok)}
		}
		rec.Certificates = append(rec.Certificates, tok)
	}

	return nil
}

// isImplicitlyPackaged infers packaged=true for APK/JAR/APEX suffixes, any
// `etc/vintf/manifest/...` path, and (when enableCheckELF is set) shared
// libraries and executables under lib/, lib64/, bin/, lib/rfsa/. Per §3
// this inference never downgrades an already-packaged record; callers
// should OR the result into rec.Packaged, never assign it directly.
func isImplicitlyPackaged(rec *Record, enableCheckELF bool) bool {
	if rec.ContainsPathParts(manifestPartsVintfManifest) {
		return true
	}

	if manifestPackageExts[rec.Ext()] {
		return true
	}

	if !enableCheckELF {
		return false
	}

	if rec.Ext() == ".so" {
		if rec.ContainsPathParts(manifestPartsLib) || rec.ContainsPathParts(manifestPartsLib64) {
			return true
		}
	}

	if rec.ContainsPathParts(manifestPartsBin) || rec.ContainsPathParts(manifestPartsLibRfsa) {
		return true
	}

	return false
}

// Format renders records back into manifest line syntax, the inverse of
// Parse used for kang-mode output regeneration (§4.G) and by
// parse(format(parse(M))) == parse(M) (§8).
func Format(rec *Record) string {
	var b strings.Builder

	if rec.Packaged {
		b.WriteByte('-')
	}

	b.WriteString(rec.SrcPath)
	if rec.DstPath != rec.SrcPath {
		b.WriteByte(':')
		b.WriteString(rec.DstPath)
	}

	for _, a := range sortedArgKeys(rec.Flags) {
		b.WriteByte(';')
		b.WriteString(string(a))
	}
	for _, a := range sortedScalarKeys(rec.Scalars) {
		fmt.Fprintf(&b, ";%s=%s", a, rec.Scalars[a])
	}
	for _, a := range sortedListKeys(rec.Lists) {
		fmt.Fprintf(&b, ";%s=%s", a, strings.Join(rec.Lists[a], ","))
	}
	for _, c := range rec.Certificates {
		b.WriteByte(';')
		b.WriteString(c)
	}

	if rec.PinnedHash != "" {
		b.WriteByte('|')
		b.WriteString(rec.PinnedHash)
	}
	if rec.FixupHash != "" {
		if rec.PinnedHash == "" {
			b.WriteString("|")
		}
		b.WriteByte('|')
		b.WriteString(rec.FixupHash)
	}

	return b.String()
}

func sortedArgKeys(m map[Arg]bool) []Arg {
	keys := make([]Arg, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedScalarKeys(m map[Arg]string) []Arg {
	keys := make([]Arg, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedListKeys(m map[Arg][]string) []Arg {
	keys := make([]Arg, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
