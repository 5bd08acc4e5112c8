package emit

import (
	"fmt"
	"strings"

	"github.com/LineageOS/android-tools-extract-utils/classify"
	"github.com/LineageOS/android-tools-extract-utils/manifest"
)

// ruleForClass maps a classify.Class to the Android.bp builder name it
// emits under, mirroring module.py's per-class Soong module type table.
func ruleForClass(c classify.Class) string {
	switch c {
	case classify.ClassAPEX:
		return "prebuilt_apex"
	case classify.ClassAppsPriv, classify.ClassAppsSystem:
		return "android_app_import"
	case classify.ClassJavaLibraries:
		return "dex_import"
	case classify.ClassRFSA:
		return "prebuilt_rfsa"
	case classify.ClassSharedLibraries:
		return "cc_prebuilt_library_shared"
	case classify.ClassExecutables:
		return "cc_prebuilt_binary"
	case classify.ClassShellScript:
		return "sh_binary"
	default:
		return "prebuilt_etc"
	}
}

// LibToPackageFixupFn matches config.Hooks.LibToPackageFixup's shape,
// duplicated here rather than imported to avoid emit depending on config
// for a single function type.
type LibToPackageFixupFn func(lib, partition, filename string) (pkg string, ok bool)

// sharedLibNames rewrites a record's declared shared_libs list into
// package names via fixupFn, dropping anything the hook rejects.
func sharedLibNames(needed []string, partition, filename string, fixupFn LibToPackageFixupFn) []string {
	if fixupFn == nil {
		return needed
	}
	var out []string
	for _, lib := range needed {
		if pkg, ok := fixupFn(lib, partition, filename); ok {
			out = append(out, pkg)
		}
	}
	return out
}

// StanzaName derives the Android.bp module name for a record, honoring
// MODULE_SUFFIX= and MODULE= overrides. Exposed so callers merging
// multiple records into one stanza (e.g. a SHARED_LIBRARIES module's
// lib/ and lib64/ variants) can group by the same key BuildStanza uses.
func StanzaName(rec *manifest.Record) string {
	name := rec.Basename()
	if suffix, ok := rec.ModuleSuffix(); ok {
		name += suffix
	}
	if mod, ok := rec.Module(); ok {
		name = mod
	}
	return name
}

// RelPath returns a record's path relative to its partition root, the
// `src:`/`jars:`/`apk:` field value BuildStanza and MergeSharedLibraryTarget
// both use.
func RelPath(rec *manifest.Record, partition string) string {
	return strings.TrimPrefix(rec.DstPath, partition+"/")
}

// BuildStanza assembles the Android.bp prebuilt-module stanza for one
// classified packaged record, following module.py's File.write_bp_stanza
// per-class field selection (§4.H, §6).
func BuildStanza(b classify.Bucket, vendor string, elfTarget string, elfNeeded []string, fixupFn LibToPackageFixupFn) *Stanza {
	rec := b.Record
	name := StanzaName(rec)

	relPath := RelPath(rec, b.Partition)

	rule := ruleForClass(b.Class)
	if rule == "prebuilt_etc" && rec.Ext() == ".xml" {
		rule = "prebuilt_etc_xml"
	}

	s := NewStanza(rule).
		Name(name).
		Owner(vendor).
		Overrides(rec.Overrides()).
		Required(rec.Required()).
		PartitionSpecific(b.Partition)

	if stem, ok := rec.Stem(); ok {
		s.Stem(stem)
	}

	switch b.Class {
	case classify.ClassAPEX:
		s.Src(relPath).Prefer()

	case classify.ClassAppsPriv, classify.ClassAppsSystem:
		s.Apk(relPath)
		if b.Class == classify.ClassAppsPriv {
			s.Privileged()
		}
		if rec.Presigned() {
			s.Presigned()
		}
		for _, cert := range rec.Certificates {
			s.Certificate(cert)
		}
		if !rec.DisableCheckELF() {
			s.CheckElfFilesFalse()
		}

	case classify.ClassJavaLibraries:
		s.Jars(relPath)

	case classify.ClassSharedLibraries:
		s.CheckElfFilesFalse()
		s.CompileMultilib(b.ABI.String())
		libs := sharedLibNames(elfNeeded, b.Partition, rec.Basename(), fixupFn)
		s.Target(elfTarget, relPath, libs)

	case classify.ClassExecutables:
		s.Src(relPath)
		s.CheckElfFilesFalse()

	case classify.ClassShellScript:
		s.Src(relPath).SubDir(dirWithoutBin(rec.Dirname()))

	default:
		s.Src(relPath)
		s.FilenameFromSrc()
		s.RelativeInstallPath(dirWithoutBin(rec.Dirname()))
	}

	if rec.FixSoname() {
		s.NoStrip()
	}

	return s
}

func dirWithoutBin(dir string) string {
	return strings.TrimPrefix(strings.TrimPrefix(dir, "bin/"), "bin")
}

// MergeSharedLibraryTarget appends a further target: sub-block to an
// already-built SHARED_LIBRARIES stanza, so that a module's lib/ and
// lib64/ variants collapse into one cc_prebuilt_library_shared
// definition with compile_multilib: "both" and two target blocks,
// rather than two separate stanzas declaring the same module name
// (§8 end-to-end scenario 2).
func MergeSharedLibraryTarget(s *Stanza, elfTarget, relPath string, elfNeeded []string, partition, filename string, fixupFn LibToPackageFixupFn) *Stanza {
	libs := sharedLibNames(elfNeeded, partition, filename, fixupFn)
	return s.Target(elfTarget, relPath, libs)
}

// pathStem returns a path's final segment with its extension stripped,
// e.g. "vendor/bin/foo.sh" -> "foo".
func pathStem(path string) string {
	base := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		base = path[i+1:]
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}

// truncatePartition strips a symlink target's leading partition segment,
// leaving the installed_location relative to that partition's root, e.g.
// "vendor/bin/bar" -> "bin/bar".
func truncatePartition(target string) string {
	target = strings.TrimPrefix(target, "/")
	i := strings.IndexByte(target, '/')
	if i < 0 {
		return target
	}
	return target[i+1:]
}

// BuildSymlinkStanzas emits an install_symlink stanza per SYMLINK= entry
// on a packaged record, mirroring File.write_bp_symlink_stanza. Package
// names follow <src-stem>_<link-stem>_symlink (§4.I item 3), with a
// numeric suffix appended when two symlinks on the same record collide.
func BuildSymlinkStanzas(rec *manifest.Record, partition string) []*Stanza {
	srcStem := pathStem(rec.DstPath)

	var stanzas []*Stanza
	seen := map[string]int{}
	for _, target := range rec.Symlinks() {
		name := srcStem + "_" + pathStem(target) + "_symlink"
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}

		s := NewStanza("install_symlink").
			Name(name).
			InstalledLocation(truncatePartition(target)).
			SymlinkTarget("/" + rec.DstPath).
			PartitionSpecific(partition)
		stanzas = append(stanzas, s)
	}
	return stanzas
}
