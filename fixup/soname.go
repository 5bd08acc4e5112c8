package fixup

import (
	"context"
	"debug/elf"
	"fmt"
	"strings"

	"github.com/LineageOS/android-tools-extract-utils/tool"
)

// SonameFixer wraps patchelf's --set-soname, grounded on
// fixups_blob.py's fix_soname_impl, which always renames the DT_SONAME
// entry to the blob's own basename.
type SonameFixer struct {
	Patchelf *tool.Patchelf
}

func (s *SonameFixer) Fix(ctx context.Context, filePath, basename string) error {
	return s.Patchelf.SetSoname(ctx, filePath, basename)
}

// ELFInfo is the subset of an ELF file's header the classifier and the
// fixup pipeline both need: its Android target triple and its declared
// shared-library dependencies (DT_NEEDED). Reading it via stdlib
// debug/elf replaces elf.py's pyelftools-based get_file_arch_bits_libs;
// pyelftools has no idiomatic Go equivalent worth adding as a dependency
// when the standard library already parses ELF headers and dynamic
// sections directly.
type ELFInfo struct {
	Target string // e.g. "android_arm64"
	Bits   int    // 32 or 64
	Needed []string
}

var archTargetMap = map[elf.Machine]string{
	elf.EM_ARM:     "android_arm",
	elf.EM_AARCH64: "android_arm64",
	elf.EM_386:     "android_x86",
	elf.EM_X86_64:  "android_x86_64",
}

// ProbeELF reads a file's machine type, word size, and DT_NEEDED list.
// It returns ok=false (not an error) for non-ELF or malformed input,
// mirroring elf.py's blanket ELFError-to-(None, None, None) handling.
func ProbeELF(path string) (ELFInfo, bool) {
	f, err := elf.Open(path)
	if err != nil {
		return ELFInfo{}, false
	}
	defer f.Close()

	target, ok := archTargetMap[f.Machine]
	if !ok {
		return ELFInfo{}, false
	}

	bits := 32
	if f.Class == elf.ELFCLASS64 {
		bits = 64
	}

	var needed []string
	if libs, err := f.DynString(elf.DT_NEEDED); err == nil {
		for _, lib := range libs {
			needed = append(needed, strings.TrimSuffix(lib, ".so"))
		}
	}

	return ELFInfo{Target: target, Bits: bits, Needed: needed}, true
}

// IsELF reports whether path looks like an ELF file at all, used by the
// classifier to tell ELF executables under bin/ from scripts (§4.H).
func IsELF(path string) bool {
	_, ok := ProbeELF(path)
	return ok
}

func (e ELFInfo) String() string {
	return fmt.Sprintf("%s (%d-bit, needs %v)", e.Target, e.Bits, e.Needed)
}
