// Package resolve implements the Source Resolver (§4.E): locating a Blob
// Record's source file inside the canonical tree with the documented
// path-fallback and symlink-follow rules, and the two Source
// implementations (disk, adb) that back it, grounded on
// original_source/extract_utils/source.py.
package resolve

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/LineageOS/android-tools-extract-utils/manifest"
)

// NotFound is returned when no candidate path exists in the canonical
// tree for a record.
type NotFound struct {
	Record *manifest.Record
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("%s: not found in canonical tree", e.Record.DstPath)
}

// Source abstracts the two backing stores a resolver can pull blobs from:
// an already-extracted disk tree, or a live device over adb.
type Source interface {
	// CopyFileRelPath copies the file at relPath (relative to the
	// source's root, honoring System-as-Root) into targetPath. ok is
	// false if the file does not exist in this source.
	CopyFileRelPath(ctx context.Context, relPath, targetPath string) (ok bool, err error)

	// CopyFirmware copies a firmware image (radio partition), which on
	// AdbSource reads from /dev/block/by-name/<partition>[slotSuffix]
	// rather than a regular file path.
	CopyFirmware(ctx context.Context, rec *manifest.Record, targetPath string) (ok bool, err error)

	// ListSubDirFiles lists every regular file under subPath, relative
	// to subPath, used by manifest regeneration (§9 SUPPLEMENTED
	// FEATURE 1).
	ListSubDirFiles(ctx context.Context, subPath string) ([]string, error)
}

// Resolver applies the path-fallback and symlink-follow rules of §4.E on
// top of a Source, then copies the located file into an output directory.
type Resolver struct {
	Source Source
	OutDir string
}

// candidatePaths returns the fallback path list for a record. Both
// DstPath and SrcPath (when they differ) are always tried — the core
// rename use case of §3's data model — with TRYSRCFIRST only inverting
// which one is tried first, mirroring source.py's _copy_file trying dst
// then unconditionally falling back to src when the record has one.
func candidatePaths(rec *manifest.Record) []string {
	first, second := rec.DstPath, rec.SrcPath
	if rec.TrySrcFirst() {
		first, second = rec.SrcPath, rec.DstPath
	}

	seen := map[string]bool{}
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	addGroup := func(p string) {
		add("/system/" + p)
		add(p)
		add("system/" + p)
	}

	addGroup(first)
	if second != first {
		addGroup(second)
	}

	return out
}

// Resolve locates rec's source file, copies it into r.OutDir preserving
// its relative destination path, and returns the absolute output path.
// A `/system/odm/…` candidate that isn't found is retried under
// `/vendor/odm/…` before giving up.
func (r *Resolver) Resolve(ctx context.Context, rec *manifest.Record, isFirmware bool) (string, error) {
	targetPath := filepath.Join(r.OutDir, rec.DstPath)
	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return "", fmt.Errorf("create output dir for %s: %w", rec.DstPath, err)
	}

	if isFirmware {
		ok, err := r.Source.CopyFirmware(ctx, rec, targetPath)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", &NotFound{Record: rec}
		}
		return targetPath, nil
	}

	for _, candidate := range candidatePaths(rec) {
		ok, err := r.Source.CopyFileRelPath(ctx, candidate, targetPath)
		if err != nil {
			return "", err
		}
		if ok {
			return targetPath, nil
		}

		if odomFallback, changed := redirectSystemOdmToVendorOdm(candidate); changed {
			ok, err := r.Source.CopyFileRelPath(ctx, odomFallback, targetPath)
			if err != nil {
				return "", err
			}
			if ok {
				return targetPath, nil
			}
		}
	}

	return "", &NotFound{Record: rec}
}

// redirectSystemOdmToVendorOdm implements the `/system/odm/*` →
// `/vendor/odm/*` compatibility redirect (§3).
func redirectSystemOdmToVendorOdm(candidate string) (string, bool) {
	const prefix = "/system/odm/"
	if !strings.HasPrefix(candidate, prefix) {
		trimmed := strings.TrimPrefix(candidate, "system/odm/")
		if trimmed == candidate {
			return "", false
		}
		return "vendor/odm/" + trimmed, true
	}
	return "/vendor/odm/" + strings.TrimPrefix(candidate, prefix), true
}

// DiskSource resolves files against an already-extracted canonical tree,
// applying the System-as-Root fallback: when `<root>/system/system`
// exists, `system/`-rooted lookups redirect through `<root>/system`
// instead of `<root>` directly (§9 SUPPLEMENTED FEATURE 7).
type DiskSource struct {
	Root             string
	systemSourceRoot string
}

func NewDiskSource(root string) *DiskSource {
	s := &DiskSource{Root: root, systemSourceRoot: root}

	sarSystemPath := filepath.Join(root, "system", "system")
	if info, err := os.Stat(sarSystemPath); err == nil && info.IsDir() {
		s.systemSourceRoot = filepath.Join(root, "system")
	}

	return s
}

func (s *DiskSource) sourceSubPathRoot(relPath string) string {
	if strings.HasPrefix(relPath, "system/") || strings.HasPrefix(relPath, "/system/") {
		return s.systemSourceRoot
	}
	return s.Root
}

func (s *DiskSource) CopyFileRelPath(_ context.Context, relPath, targetPath string) (bool, error) {
	root := s.sourceSubPathRoot(relPath)
	srcPath := filepath.Join(root, relPath)

	info, err := os.Lstat(srcPath)
	if err != nil {
		return false, nil
	}

	if info.Mode()&os.ModeSymlink != 0 {
		return s.followSymlink(srcPath, targetPath)
	}

	if !info.Mode().IsRegular() {
		return false, nil
	}

	if err := copyFilePreservingMode(srcPath, targetPath, info.Mode()); err != nil {
		return false, fmt.Errorf("copy %s: %w", relPath, err)
	}

	return true, nil
}

// followSymlink re-resolves a symlink's target through the same fallback
// sequence, so a dangling absolute link inside the image can still be
// satisfied by a relative sibling (§4.E).
func (s *DiskSource) followSymlink(linkPath, targetPath string) (bool, error) {
	dest, err := os.Readlink(linkPath)
	if err != nil {
		return false, nil
	}

	var relDest string
	if filepath.IsAbs(dest) {
		relDest = strings.TrimPrefix(dest, "/")
	} else {
		relDest = filepath.Join(filepath.Dir(strings.TrimPrefix(linkPath, s.Root+string(filepath.Separator))), dest)
	}

	for _, candidate := range []string{
		"/" + relDest,
		relDest,
		"system/" + relDest,
	} {
		ok, err := s.CopyFileRelPath(context.Background(), candidate, targetPath)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}

func (s *DiskSource) CopyFirmware(_ context.Context, rec *manifest.Record, targetPath string) (bool, error) {
	root := s.sourceSubPathRoot(rec.DstPath)
	for _, relPath := range []string{rec.DstPath, rec.SrcPath} {
		srcPath := filepath.Join(root, relPath)
		info, err := os.Stat(srcPath)
		if err != nil {
			continue
		}
		if err := copyFilePreservingMode(srcPath, targetPath, info.Mode()); err != nil {
			return false, fmt.Errorf("copy firmware %s: %w", relPath, err)
		}
		return true, nil
	}
	return false, nil
}

func (s *DiskSource) ListSubDirFiles(_ context.Context, subPath string) ([]string, error) {
	root := s.sourceSubPathRoot(subPath)
	sourceSubPath := filepath.Join(root, subPath)

	var out []string
	err := filepath.Walk(sourceSubPath, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(sourceSubPath, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	sort.Strings(out)
	return out, nil
}

func copyFilePreservingMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return nil
}

// AdbSource resolves files by pulling them from a connected device, per
// original_source/extract_utils/source.py's AdbSource.
type AdbSource struct {
	Runner      func(ctx context.Context, args ...string) (string, error)
	slotSuffix  string
}

// NewAdbSource performs the adb-server handshake (start-server, wait for
// device online, adb root, wait-for-device) with reconnect logic that
// tolerates `adb root` killing an existing TCP connection, then caches
// ro.boot.slot_suffix for firmware partition naming.
func NewAdbSource(ctx context.Context) (*AdbSource, error) {
	s := &AdbSource{Runner: runAdb}

	if _, err := s.Runner(ctx, "start-server"); err != nil {
		return nil, fmt.Errorf("start adb server: %w", err)
	}

	for {
		out, err := s.Runner(ctx, "get-state")
		if err == nil && strings.TrimSpace(out) == "device" {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}

	// `adb root` may kill the existing TCP connection; wait-for-device
	// re-establishes it rather than treating the reset as fatal.
	_, _ = s.Runner(ctx, "root")
	if _, err := s.Runner(ctx, "wait-for-device"); err != nil {
		return nil, fmt.Errorf("wait for device after adb root: %w", err)
	}

	slotSuffix, err := s.Runner(ctx, "shell", "getprop", "ro.boot.slot_suffix")
	if err != nil {
		return nil, fmt.Errorf("read slot suffix: %w", err)
	}
	s.slotSuffix = strings.TrimSpace(slotSuffix)

	return s, nil
}

func runAdb(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "adb", args...).Output()
	return string(out), err
}

func (s *AdbSource) CopyFileRelPath(ctx context.Context, relPath, targetPath string) (bool, error) {
	if _, err := s.Runner(ctx, "pull", relPath, targetPath); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *AdbSource) CopyFirmware(ctx context.Context, rec *manifest.Record, targetPath string) (bool, error) {
	partition := strings.TrimSuffix(rec.Basename(), rec.Ext())
	if rec.AB() {
		partition += s.slotSuffix
	}

	if _, err := s.Runner(ctx, "pull", "/dev/block/by-name/"+partition, targetPath); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *AdbSource) ListSubDirFiles(ctx context.Context, subPath string) ([]string, error) {
	out, err := s.Runner(ctx, "shell", fmt.Sprintf("cd %s; find * -type f", subPath))
	if err != nil {
		return nil, fmt.Errorf("list files under %s: %w", subPath, err)
	}

	var files []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line != "" {
			files = append(files, line)
		}
	}
	sort.Strings(files)
	return files, nil
}

// FindSubDirFiles lists files under sub_path filtered by a regex and a
// skip-list, returning `<sub_path>/<rel>` source specs, grounded on
// Source.find_sub_dir_files. Used by the --regenerate pass in
// internal/cmd.
func FindSubDirFiles(ctx context.Context, src Source, subPath, pattern string, skip []string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile regenerate regex: %w", err)
	}

	skipSet := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipSet[s] = true
	}

	relPaths, err := src.ListSubDirFiles(ctx, subPath)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, rel := range relPaths {
		if !re.MatchString(rel) {
			continue
		}
		if skipSet[rel] {
			continue
		}
		out = append(out, subPath+"/"+rel)
	}

	return out, nil
}
