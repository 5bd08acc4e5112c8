// Package recipe provides built-in Recipe Hook Surface (§4.J) policies
// that a device recipe can wire directly into config.Hooks instead of
// re-implementing, grounded on
// original_source/extract_utils/fixups_lib.py's well-known shared-library
// rename table.
package recipe

import "strings"

// LibFixupFn rewrites a shared-library dependency name, or reports that
// it should be dropped from the dependency list entirely by returning
// ok=false, mirroring lib_fixup_fn_type.
type LibFixupFn func(lib, partition string) (renamed string, ok bool)

// RemoveLib drops a dependency unconditionally, mirroring
// lib_fixup_remove.
func RemoveLib(_ string, _ string) (string, bool) {
	return "", false
}

var archSuffixes = []string{"-arm-android", "-aarch64-android"}

// RemoveArchSuffix strips a `-arm-android`/`-aarch64-android` suffix from
// a compiler-rt library name, mirroring lib_fixup_remove_arch_suffix.
// Soong's own prebuilt already carries per-arch variants, so the
// dependency name in a shared_libs list must be arch-neutral.
func RemoveArchSuffix(lib, _ string) (string, bool) {
	for _, suffix := range archSuffixes {
		if strings.HasSuffix(lib, suffix) {
			return strings.TrimSuffix(lib, suffix), true
		}
	}
	return lib, true
}

// VendorCompat appends a `-vendorcompat` suffix, the naming convention
// LineageOS ships its own prebuilt of an older libprotobuf-cpp under to
// avoid colliding with the platform's version, mirroring
// lib_fixup_vendorcompat.
func VendorCompat(lib, _ string) (string, bool) {
	return lib + "-vendorcompat", true
}

// RemoveProtoVersionSuffix strips the trailing `-<version>` component off
// a libprotobuf-cpp dependency name, mirroring
// lib_fixup_remove_proto_version_suffix.
func RemoveProtoVersionSuffix(lib, _ string) (string, bool) {
	idx := strings.LastIndex(lib, "-")
	if idx < 0 {
		return lib, true
	}
	return lib[:idx], true
}

// libFixupTable is the well-known table of shared-library names that need
// rewriting regardless of device, ported from fixups_lib.py's
// module-level lib_fixups dict.
var libFixupTable = map[string]LibFixupFn{
	"libclang_rt.ubsan_standalone-arm-android":     RemoveArchSuffix,
	"libclang_rt.ubsan_standalone-aarch64-android": RemoveArchSuffix,
	"libprotobuf-cpp-lite-3.9.1":                   VendorCompat,
	"libprotobuf-cpp-full-3.9.1":                   VendorCompat,
	"libprotobuf-cpp-lite-21.12":                   RemoveProtoVersionSuffix,
	"libprotobuf-cpp-full-21.12":                   RemoveProtoVersionSuffix,
}

// LibToPackageFixup implements config.Hooks.LibToPackageFixup against the
// built-in table, falling back to the dependency name unchanged for
// anything not in it. A device recipe that needs additional entries
// should compose this with its own lookup rather than replacing it,
// e.g. by checking a device-specific map first and calling
// recipe.LibToPackageFixup as the fallback.
func LibToPackageFixup(lib, partition, _ string) (string, bool) {
	fn, ok := libFixupTable[lib]
	if !ok {
		return lib, true
	}
	return fn(lib, partition)
}
