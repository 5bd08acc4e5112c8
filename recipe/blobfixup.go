// blobfixup.go ports the standalone primitives behind fixups_blob.py's
// chainable blob_fixup builder into individual functions a recipe's
// config.Hooks.BlobFixup callback can call directly, in place of building
// out the chain-builder DSL itself: config.Hooks.BlobFixup already keeps
// the simpler func(name, path string) error shape, so a device recipe
// composes these by hand instead of chaining .replace_needed().fix_soname().
package recipe

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/LineageOS/android-tools-extract-utils/fixup"
	"github.com/LineageOS/android-tools-extract-utils/tool"
)

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// RegexReplace rewrites filePath's contents by applying pattern.ReplaceAll,
// mirroring blob_fixup.regex_replace_impl.
func RegexReplace(filePath string, pattern *regexp.Regexp, replacement string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	out := pattern.ReplaceAll(data, []byte(replacement))
	return os.WriteFile(filePath, out, 0644)
}

// NeedsLib reports whether filePath's DT_NEEDED already lists lib, letting
// a recipe skip a redundant patchelf --add-needed the way
// blob_fixup.add_needed_impl's file_needs_lib guard does.
func NeedsLib(filePath, lib string) bool {
	info, ok := fixup.ProbeELF(filePath)
	if !ok {
		return false
	}
	// ProbeELF reports DT_NEEDED entries without their ".so" suffix.
	want := strings.TrimSuffix(lib, ".so")
	for _, needed := range info.Needed {
		if needed == want {
			return true
		}
	}
	return false
}

func patchFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{dir}, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var patches []string
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".patch" {
			patches = append(patches, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(patches)
	return patches, nil
}

// PatchDir applies every *.patch file under patchesPath (or patchesPath
// itself, if it names a single file) against dir in sorted order, skipping
// silently if they were already applied, mirroring blob_fixup.patch_impl's
// reverse-apply idempotency check.
func PatchDir(ctx context.Context, git *tool.Git, patchesPath, dir string) error {
	patches, err := patchFiles(patchesPath)
	if err != nil {
		return fmt.Errorf("list patches under %s: %w", patchesPath, err)
	}
	if len(patches) == 0 {
		return nil
	}
	if git.AlreadyApplied(ctx, dir, patches) {
		return nil
	}
	return git.Apply(ctx, dir, patches)
}

// PatchFile copies filePath into a scratch directory, applies patchesPath
// against it via PatchDir, then copies the (possibly modified) result back
// over filePath, mirroring blob_fixup.patch_file's
// copy_file_to_tmp/patch_dir/copy_file_from_tmp sequence.
func PatchFile(ctx context.Context, git *tool.Git, patchesPath, filePath string) error {
	tmpDir, err := os.MkdirTemp("", "extract-utils-blobfixup-*")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	tmpFile := filepath.Join(tmpDir, filepath.Base(filePath))
	if err := copyFile(filePath, tmpFile); err != nil {
		return fmt.Errorf("copy %s to scratch dir: %w", filePath, err)
	}
	if err := PatchDir(ctx, git, patchesPath, tmpDir); err != nil {
		return fmt.Errorf("apply patches to %s: %w", filePath, err)
	}
	return copyFile(tmpFile, filePath)
}

// ApktoolPatch decompiles an APK/JAR with apktool, applies patchesPath
// against the decompiled tree, repacks, and strips the resulting zip,
// mirroring blob_fixup.apktool_patch's unpack/patch_dir/pack/stripzip
// sequence.
func ApktoolPatch(ctx context.Context, apktool *tool.Apktool, stripzip *tool.StripZip, git *tool.Git, patchesPath, filePath string) error {
	tmpDir, err := os.MkdirTemp("", "extract-utils-apktool-*")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := apktool.Unpack(ctx, filePath, tmpDir); err != nil {
		return fmt.Errorf("apktool unpack %s: %w", filePath, err)
	}
	if err := PatchDir(ctx, git, patchesPath, tmpDir); err != nil {
		return fmt.Errorf("apply patches to %s: %w", filePath, err)
	}
	if err := apktool.Pack(ctx, tmpDir, filePath); err != nil {
		return fmt.Errorf("apktool pack %s: %w", filePath, err)
	}
	if err := stripzip.Strip(ctx, filePath); err != nil {
		return fmt.Errorf("stripzip %s: %w", filePath, err)
	}
	return nil
}
