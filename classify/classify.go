// Package classify implements the Package Classifier (§4.H): partition,
// class, and ABI bucketing over the packaged subset of a parsed
// manifest, grounded on original_source/extract_utils/module.py's
// File.part/File.arch classification and elf.py's ABI-from-ELF-class
// mapping.
package classify

import (
	"strings"

	"github.com/LineageOS/android-tools-extract-utils/fixup"
	"github.com/LineageOS/android-tools-extract-utils/manifest"
)

// Class is the emission bucket a packaged record falls into.
type Class int

const (
	ClassETC Class = iota
	ClassAPEX
	ClassAppsPriv
	ClassAppsSystem
	ClassJavaLibraries
	ClassRFSA
	ClassSharedLibraries
	ClassExecutables
	ClassShellScript
)

func (c Class) String() string {
	switch c {
	case ClassAPEX:
		return "APEX"
	case ClassAppsPriv:
		return "APPS(priv)"
	case ClassAppsSystem:
		return "APPS"
	case ClassJavaLibraries:
		return "JAVA_LIBRARIES"
	case ClassRFSA:
		return "RFSA"
	case ClassSharedLibraries:
		return "SHARED_LIBRARIES"
	case ClassExecutables:
		return "EXECUTABLES"
	case ClassShellScript:
		return "SHELL_SCRIPT"
	default:
		return "ETC"
	}
}

// ABI is the 32/64/both bucketing for SHARED_LIBRARIES records.
type ABI int

const (
	ABINone ABI = iota
	ABI32
	ABI64
	ABIBoth
)

func (a ABI) String() string {
	switch a {
	case ABI32:
		return "32"
	case ABI64:
		return "64"
	case ABIBoth:
		return "both"
	default:
		return ""
	}
}

// partitionPrefixes is searched for the longest matching prefix, so entry
// order does not matter even where prefixes nest (e.g. "system/vendor/odm/"
// inside "system/vendor/").
var partitionPrefixes = []struct {
	prefix    string
	partition string
}{
	{"product/", "product"},
	{"system/product/", "product"},
	{"system_ext/", "system_ext"},
	{"system/system_ext/", "system_ext"},
	{"odm/", "odm"},
	{"vendor/odm/", "odm"},
	{"system/vendor/odm/", "odm"},
	{"vendor_dlkm/", "vendor_dlkm"},
	{"vendor/", "vendor"},
	{"system/vendor/", "vendor"},
	{"recovery/", "recovery"},
	{"vendor_ramdisk/", "vendor_ramdisk"},
	{"system/", "system"},
}

// Partition returns the longest matching known partition prefix for a
// record's dst_path, defaulting to "system" when nothing matches.
func Partition(rec *manifest.Record) string {
	best := ""
	bestLen := -1
	for _, p := range partitionPrefixes {
		if strings.HasPrefix(rec.DstPath, p.prefix) && len(p.prefix) > bestLen {
			best = p.partition
			bestLen = len(p.prefix)
		}
	}
	if bestLen < 0 {
		return "system"
	}
	return best
}

// ClassifyClass determines a packaged record's emission class from its
// extension and directory path (§4.H).
func ClassifyClass(rec *manifest.Record, elfPath string) Class {
	ext := rec.Ext()

	switch ext {
	case ".apex":
		return ClassAPEX
	case ".apk":
		if rec.ContainsPathParts([]string{"priv-app"}) {
			return ClassAppsPriv
		}
		return ClassAppsSystem
	case ".jar":
		return ClassJavaLibraries
	}

	if rec.ContainsPathParts([]string{"lib", "rfsa"}) || rec.ContainsPathParts([]string{"lib64", "rfsa"}) {
		return ClassRFSA
	}
	if rec.ContainsPathParts([]string{"lib"}) || rec.ContainsPathParts([]string{"lib64"}) {
		return ClassSharedLibraries
	}
	if rec.ContainsPathParts([]string{"bin"}) {
		if fixup.IsELF(elfPath) {
			return ClassExecutables
		}
		return ClassShellScript
	}

	return ClassETC
}

// libraryBucket buckets one partition's SHARED_LIBRARIES records by
// directory (lib/ vs lib64/) so ABI can be derived from set difference.
type libraryBucket struct {
	lib32 map[string]bool
	lib64 map[string]bool
}

// LibrarySet keys libraryBucket by partition, mirroring makefiles.py's
// lib32_tree/lib64_tree being built from base_file_tree filtered to one
// partition before the 32/64 set-difference: a lib/libx.so on "system"
// must never collide with a lib64/libx.so on "vendor".
type LibrarySet struct {
	partitions map[string]*libraryBucket
}

func NewLibrarySet() *LibrarySet {
	return &LibrarySet{partitions: map[string]*libraryBucket{}}
}

func (s *LibrarySet) bucket(partition string) *libraryBucket {
	b, ok := s.partitions[partition]
	if !ok {
		b = &libraryBucket{lib32: map[string]bool{}, lib64: map[string]bool{}}
		s.partitions[partition] = b
	}
	return b
}

func (s *LibrarySet) Add(rec *manifest.Record) {
	b := s.bucket(Partition(rec))
	name := rec.Basename()
	if rec.ContainsPathParts([]string{"lib64"}) {
		b.lib64[name] = true
	} else if rec.ContainsPathParts([]string{"lib"}) {
		b.lib32[name] = true
	}
}

// ABIFor returns the 32/64/both bucket for a library name under a given
// partition, the set-theoretic difference described in §4.H.
func (s *LibrarySet) ABIFor(partition, name string) ABI {
	b, ok := s.partitions[partition]
	if !ok {
		return ABINone
	}
	in32 := b.lib32[name]
	in64 := b.lib64[name]
	switch {
	case in32 && in64:
		return ABIBoth
	case in32:
		return ABI32
	case in64:
		return ABI64
	default:
		return ABINone
	}
}

// Target maps an ELF file's machine/class to one of the four Android
// target triples used in Android.bp `target { <triple> { ... } }`
// blocks, or "" for a non-ELF (shell script) executable.
func Target(elfPath string) string {
	info, ok := fixup.ProbeELF(elfPath)
	if !ok {
		return ""
	}
	return info.Target
}

// Bucket is the fully resolved partition/class/ABI/target tuple for one
// packaged record, the row of the Emission Buckets matrix in §4.
type Bucket struct {
	Record    *manifest.Record
	Partition string
	Class     Class
	ABI       ABI
	Target    string
}

// Classify resolves the full Bucket for one packaged record. elfPath is
// the resolved on-disk path used for ELF probing when needed (EXECUTABLES
// target triple, bin/ ELF-vs-script disambiguation); callers that already
// know a record is not ELF-dependent may pass "".
func Classify(rec *manifest.Record, elfPath string, libs *LibrarySet) Bucket {
	partition := Partition(rec)
	class := ClassifyClass(rec, elfPath)

	b := Bucket{Record: rec, Partition: partition, Class: class}

	switch class {
	case ClassSharedLibraries:
		if libs != nil {
			b.ABI = libs.ABIFor(partition, rec.Basename())
		}
	case ClassExecutables:
		b.Target = Target(elfPath)
		if b.Target == "" {
			b.Class = ClassShellScript
		}
	}

	return b
}
