// Package manifest implements the Blob Record data model (§3) and the
// declarative manifest parser (§4.D): tokenizing a proprietary-files list
// into a single ordered collection of Record values, replacing the
// original tooling's parallel-array bookkeeping (spec.md §9) with one
// record type and an Args set.
package manifest

import "sort"

// Arg is one recognized option token from the manifest grammar (§6).
type Arg string

const (
	ArgPresigned        Arg = "PRESIGNED"
	ArgSkipAPKChecks    Arg = "SKIPAPKCHECKS"
	ArgFixSoname        Arg = "FIX_SONAME"
	ArgFixXML           Arg = "FIX_XML"
	ArgDisableCheckELF  Arg = "DISABLE_CHECKELF"
	ArgDisableDeps      Arg = "DISABLE_DEPS"
	ArgAB               Arg = "AB"
	ArgTrySrcFirst      Arg = "TRYSRCFIRST"
	ArgMakeCopyRule     Arg = "MAKE_COPY_RULE"
	ArgModule           Arg = "MODULE"
	ArgModuleSuffix     Arg = "MODULE_SUFFIX"
	ArgStem             Arg = "STEM"
	ArgOverrides        Arg = "OVERRIDES"
	ArgRequired         Arg = "REQUIRED"
	ArgSymlink          Arg = "SYMLINK"
)

// boolArgs is the set of args that carry no value.
var boolArgs = map[Arg]bool{
	ArgPresigned:       true,
	ArgSkipAPKChecks:   true,
	ArgFixSoname:       true,
	ArgFixXML:          true,
	ArgDisableCheckELF: true,
	ArgDisableDeps:     true,
	ArgAB:              true,
	ArgTrySrcFirst:     true,
	ArgMakeCopyRule:    true,
}

// listArgs is the set of args whose value is a comma-separated list.
var listArgs = map[Arg]bool{
	ArgOverrides: true,
	ArgRequired:  true,
	ArgSymlink:   true,
}

// scalarArgs is the set of args whose value is a single string.
var scalarArgs = map[Arg]bool{
	ArgModule:       true,
	ArgModuleSuffix: true,
	ArgStem:         true,
}

// Record is one Blob Record: a single entry in the proprietary-files
// manifest, fully parsed and normalized.
type Record struct {
	// Line is the original manifest line this record was parsed from,
	// used for dedup-by-full-textual-spec and MalformedSpec context.
	Line string

	Packaged bool
	SrcPath  string
	DstPath  string

	// Flags holds every arg that carries no value.
	Flags map[Arg]bool
	// Scalars holds MODULE=, MODULE_SUFFIX=, STEM=.
	Scalars map[Arg]string
	// Lists holds OVERRIDES=, REQUIRED=, SYMLINK= (each comma-split).
	Lists map[Arg][]string
	// Certificates holds bareword args, treated as APK certificate names.
	Certificates []string

	PinnedHash string
	FixupHash  string
}

func newRecord() *Record {
	return &Record{
		Flags:   map[Arg]bool{},
		Scalars: map[Arg]string{},
		Lists:   map[Arg][]string{},
	}
}

func (r *Record) HasArg(a Arg) bool { return r.Flags[a] }

func (r *Record) Presigned() bool       { return r.Flags[ArgPresigned] }
func (r *Record) SkipAPKChecks() bool   { return r.Flags[ArgSkipAPKChecks] }
func (r *Record) FixSoname() bool       { return r.Flags[ArgFixSoname] }
func (r *Record) FixXML() bool          { return r.Flags[ArgFixXML] }
func (r *Record) DisableCheckELF() bool { return r.Flags[ArgDisableCheckELF] }
func (r *Record) DisableDeps() bool     { return r.Flags[ArgDisableDeps] }
func (r *Record) AB() bool              { return r.Flags[ArgAB] }
func (r *Record) TrySrcFirst() bool     { return r.Flags[ArgTrySrcFirst] }
func (r *Record) MakeCopyRule() bool    { return r.Flags[ArgMakeCopyRule] }

func (r *Record) Module() (string, bool)       { v, ok := r.Scalars[ArgModule]; return v, ok }
func (r *Record) ModuleSuffix() (string, bool) { v, ok := r.Scalars[ArgModuleSuffix]; return v, ok }
func (r *Record) Stem() (string, bool)         { v, ok := r.Scalars[ArgStem]; return v, ok }

func (r *Record) Overrides() []string { return r.Lists[ArgOverrides] }
func (r *Record) Required() []string  { return r.Lists[ArgRequired] }
func (r *Record) Symlinks() []string  { return r.Lists[ArgSymlink] }

// Pinned reports whether either hash is present, activating pin
// enforcement for this record (§3, §4.G).
func (r *Record) Pinned() bool {
	return r.PinnedHash != "" || r.FixupHash != ""
}

// Basename, Dirname, Ext mirror File.basename/dirname/root+ext from
// original_source/extract_utils/file.py, computed from DstPath.
func (r *Record) Basename() string {
	parts := splitPath(r.DstPath)
	return parts[len(parts)-1]
}

func (r *Record) Dirname() string {
	base := r.Basename()
	if len(base)+1 >= len(r.DstPath) {
		return ""
	}
	return r.DstPath[:len(r.DstPath)-len(base)-1]
}

func (r *Record) Ext() string {
	base := r.Basename()
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[i:]
		}
	}
	return ""
}

func (r *Record) Parts() []string { return splitPath(r.DstPath) }

func splitPath(p string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			parts = append(parts, p[start:i])
			start = i + 1
		}
	}
	parts = append(parts, p[start:])
	return parts
}

// ContainsPathParts reports whether parts occurs contiguously anywhere in
// r's destination path parts (File.contains_path_parts).
func (r *Record) ContainsPathParts(parts []string) bool {
	haystack := r.Parts()
	n, m := len(haystack), len(parts)
	if m == 0 || m > n {
		return false
	}

	for i := 0; i+m <= n; i++ {
		match := true
		for j := 0; j < m; j++ {
			if haystack[i+j] != parts[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}

	return false
}

// StartsWithPathParts mirrors File.starts_with_path_parts: if the
// destination path begins with parts, the remaining trailing parts are
// returned; ok is false otherwise.
func (r *Record) StartsWithPathParts(parts []string) (remaining []string, ok bool) {
	haystack := r.Parts()
	if len(parts) > len(haystack) {
		return nil, false
	}
	for i, p := range parts {
		if haystack[i] != p {
			return nil, false
		}
	}
	return haystack[len(parts):], true
}

// Privileged reports whether the record's destination path contains a
// `priv-app/` component.
func (r *Record) Privileged() bool {
	return r.ContainsPathParts([]string{"priv-app"})
}

// SortByLine sorts records lexicographically by their originating line,
// the ordering §3 requires after parsing.
func SortByLine(records []*Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Line < records[j].Line
	})
}
