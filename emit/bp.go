// Package emit implements the Emitters (§4.I): Android.bp prebuilt-module
// stanzas, the product copy-file/package makefile, RRO overlay skeletons,
// and firmware makefile rules.
package emit

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// field is one ordered key/value pair of a stanza, preserving insertion
// order the way original_source/bp.py's plain dict (insertion-ordered in
// CPython) does; Go maps make no such guarantee so an explicit slice
// replaces it.
type field struct {
	key string
	val bpValue
}

// bpValue is anything that knows how to render itself into the same
// token stream original_source/bp.py's BpJSONEnconder produces: tab
// indentation per nesting level, a trailing comma after every entry
// (including the last), and an empty list rendered as a single space
// rather than "[]" for `shared_libs` specifically.
type bpValue interface {
	writeBp(w *strings.Builder, level int)
}

type bpBool bool

func (b bpBool) writeBp(w *strings.Builder, _ int) {
	if b {
		w.WriteString("true")
	} else {
		w.WriteString("false")
	}
}

type bpString string

func (s bpString) writeBp(w *strings.Builder, _ int) {
	w.WriteString(strconv.Quote(string(s)))
}

// bpList renders a JSON-style array. spaceOnEmpty/endingComma mirror
// BpJSONEnconder.__l_encode's special-casing of shared_libs arrays.
type bpList struct {
	items        []string
	spaceOnEmpty bool
	endingComma  bool
}

func (l bpList) writeBp(w *strings.Builder, _ int) {
	quoted := make([]string, len(l.items))
	for i, s := range l.items {
		quoted[i] = strconv.Quote(s)
	}
	out := strings.Join(quoted, ", ")
	if out == "" && l.spaceOnEmpty {
		out = " "
	} else if l.endingComma {
		out += ", "
	}
	w.WriteString("[")
	w.WriteString(out)
	w.WriteString("]")
}

// Stanza is one Android.bp module declaration: a rule name followed by
// a JSON-like tab-indented field map, ported directly from
// original_source/bp.py's BpBuilder rather than built on an AST parser
// library (see DESIGN.md).
type Stanza struct {
	rule   string
	fields []field
}

func NewStanza(rule string) *Stanza {
	return &Stanza{rule: rule}
}

func (s *Stanza) set(key string, val bpValue) *Stanza {
	s.fields = append(s.fields, field{key, val})
	return s
}

func (s *Stanza) Name(name string) *Stanza   { return s.set("name", bpString(name)) }
func (s *Stanza) Stem(stem string) *Stanza   { return s.set("stem", bpString(stem)) }
func (s *Stanza) Owner(vendor string) *Stanza {
	return s.set("owner", bpString(vendor))
}
func (s *Stanza) Src(relPath string) *Stanza      { return s.set("src", bpString(relPath)) }
func (s *Stanza) Apk(relPath string) *Stanza      { return s.set("apk", bpString(relPath)) }
func (s *Stanza) Jars(relPath string) *Stanza     { return s.set("jars", bpList{items: []string{relPath}}) }
func (s *Stanza) Filename(name string) *Stanza    { return s.set("filename", bpString(name)) }
func (s *Stanza) FilenameFromSrc() *Stanza        { return s.set("filename_from_src", bpBool(true)) }
func (s *Stanza) Prefer() *Stanza                 { return s.set("prefer", bpBool(true)) }
func (s *Stanza) NoStrip() *Stanza {
	return s.set("strip", newSubMap(field{"none", bpBool(true)}))
}
func (s *Stanza) Preopt() *Stanza {
	return s.set("dex_preopt", newSubMap(field{"enabled", bpBool(false)}))
}
func (s *Stanza) CheckElfFilesFalse() *Stanza     { return s.set("check_elf_files", bpBool(false)) }
func (s *Stanza) Privileged() *Stanza             { return s.set("privileged", bpBool(true)) }
func (s *Stanza) Presigned() *Stanza {
	s.set("preprocessed", bpBool(true))
	return s.set("presigned", bpBool(true))
}
func (s *Stanza) Certificate(cert string) *Stanza { return s.set("certificate", bpString(cert)) }
func (s *Stanza) InstalledLocation(p string) *Stanza {
	return s.set("installed_location", bpString(p))
}
func (s *Stanza) SymlinkTarget(p string) *Stanza { return s.set("symlink_target", bpString(p)) }

func (s *Stanza) RelativeInstallPath(p string) *Stanza {
	if p == "" {
		return s
	}
	return s.set("relative_install_path", bpString(p))
}

func (s *Stanza) SubDir(p string) *Stanza {
	if p == "" {
		return s
	}
	return s.set("sub_dir", bpString(p))
}

func (s *Stanza) Overrides(v []string) *Stanza {
	if len(v) == 0 {
		return s
	}
	return s.set("overrides", bpList{items: v})
}

func (s *Stanza) Required(v []string) *Stanza {
	if len(v) == 0 {
		return s
	}
	return s.set("required", bpList{items: v})
}

// PartitionSpecific mirrors specific_raw's PARTITION_SPECIFIC_MAP:
// vendor->soc_specific, product->product_specific,
// system_ext->system_ext_specific, odm->device_specific.
func (s *Stanza) PartitionSpecific(partition string) *Stanza {
	specific, ok := map[string]string{
		"vendor":     "soc",
		"product":    "product",
		"system_ext": "system_ext",
		"odm":        "device",
	}[partition]
	if !ok {
		return s
	}
	return s.set(specific+"_specific", bpBool(true))
}

// CompileMultilib sets compile_multilib to "32", "64", or "both".
func (s *Stanza) CompileMultilib(abi string) *Stanza {
	return s.set("compile_multilib", bpString(abi))
}

// Target adds one `target: { <arch>: { srcs: [...], shared_libs: [...] } }`
// entry, appending to any existing target block rather than replacing it
// (targets() in bp.py loops target() calls into the same sub-map).
func (s *Stanza) Target(arch, relPath string, sharedLibs []string) *Stanza {
	var tm *subMap
	for i := range s.fields {
		if s.fields[i].key == "target" {
			tm = s.fields[i].val.(*subMap)
			break
		}
	}
	if tm == nil {
		tm = newSubMap()
		s.set("target", tm)
	}

	archFields := []field{{"srcs", bpList{items: []string{relPath}}}}
	if sharedLibs != nil {
		archFields = append(archFields, field{"shared_libs", bpList{items: sharedLibs, endingComma: true, spaceOnEmpty: true}})
	}
	tm.fields = append(tm.fields, field{arch, newSubMap(archFields...)})
	return s
}

// subMap is a nested `{ ... }` block, used for target/strip/dex_preopt.
type subMap struct {
	fields []field
}

func newSubMap(fields ...field) *subMap {
	return &subMap{fields: fields}
}

func (m *subMap) writeBp(w *strings.Builder, level int) {
	writeMap(w, m.fields, level)
}

func writeMap(w *strings.Builder, fields []field, level int) {
	indent := strings.Repeat("\t", level+1)
	w.WriteString("{\n")
	for _, f := range fields {
		w.WriteString(indent)
		w.WriteString(f.key)
		w.WriteString(": ")
		f.val.writeBp(w, level+1)
		w.WriteString(",\n")
	}
	w.WriteString(strings.Repeat("\t", level))
	w.WriteString("}")
}

// WriteTo renders the stanza exactly as BpBuilder.write does: rule name,
// a space, the JSON-like field map, and a trailing blank line.
func (s *Stanza) WriteTo(w io.Writer) error {
	var b strings.Builder
	b.WriteString(s.rule)
	b.WriteString(" ")
	writeMap(&b, s.fields, 0)
	b.WriteString("\n\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func (s *Stanza) String() string {
	var b strings.Builder
	s.WriteTo(&b)
	return b.String()
}

// SortStanzas orders stanzas by name for deterministic file output,
// since the underlying manifest iteration order is already sorted but
// symlink/RRO stanzas are synthesized out of band.
func SortStanzas(stanzas []*Stanza) {
	name := func(s *Stanza) string {
		for _, f := range s.fields {
			if f.key == "name" {
				if v, ok := f.val.(bpString); ok {
					return string(v)
				}
			}
		}
		return ""
	}
	sort.Slice(stanzas, func(i, j int) bool { return name(stanzas[i]) < name(stanzas[j]) })
}

// Header renders the vendor namespace-imports header that precedes the
// generated Android.bp body, folding in any recipe-supplied extra
// imports (config.Hooks.VendorImports / RecipeV2.ExtraNamespaceImports).
func Header(vendorNamespace string, extraImports []string) string {
	var b strings.Builder
	b.WriteString("// Automatically generated file. DO NOT MODIFY\n\n")
	b.WriteString(fmt.Sprintf("soong_namespace {\n\timports: [\n\t\t%q,\n", vendorNamespace))
	for _, imp := range extraImports {
		b.WriteString(fmt.Sprintf("\t\t%q,\n", imp))
	}
	b.WriteString("\t],\n}\n\n")
	return b.String()
}
