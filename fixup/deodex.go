package fixup

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/LineageOS/android-tools-extract-utils/manifest"
	"github.com/LineageOS/android-tools-extract-utils/tool"
)

// dexRepackTimestamp is the fixed mtime used when repacking classes*.dex
// back into an archive, so a re-extraction that hits the same odexed
// system produces a byte-identical zip regardless of when it ran.
var dexRepackTimestamp = time.Date(2009, time.January, 1, 0, 0, 0, 0, time.UTC)

var deodexArches = []string{"arm64", "arm", "x86_64", "x86"}

// Deodexer runs the oat2dex sub-algorithm (spec.md §4.F). One Deodexer is
// shared across an entire tree so the arch probe only runs once: once no
// framework/<arch> directory is found the tree is marked fully deodexed
// and every later call short-circuits.
type Deodexer struct {
	SystemRoot string
	Vdex       *tool.VdexExtractor
	Cdex       *tool.CdexConverter
	Baksmali   *tool.Baksmali
	Smali      *tool.Smali

	probed        bool
	fullyDeodexed bool
	presentArches []string
}

var classesRenameRe = regexp.MustCompile(`^(.+)_classes(\d*)\.(dex|cdex)$`)

// Run attempts to reconstruct a classes.dex for the archive at
// archivePath and repack it in, returning whether a repack happened.
// It is a no-op if the tree has already been determined fully deodexed,
// or if the archive already contains a classes.dex.
func (d *Deodexer) Run(ctx context.Context, rec *manifest.Record, archivePath string) (bool, error) {
	arches := d.probeArches()
	if len(arches) == 0 {
		return false, nil
	}

	hasClasses, err := zipContains(archivePath, "classes.dex")
	if err != nil {
		return false, err
	}
	if hasClasses {
		return false, nil
	}

	name := strings.TrimSuffix(rec.Basename(), rec.Ext())

	tmpDir, err := os.MkdirTemp("", "oat2dex-*")
	if err != nil {
		return false, err
	}
	defer os.RemoveAll(tmpDir)

	dexFiles, err := d.extractDex(ctx, name, rec.Ext(), tmpDir, arches)
	if err != nil {
		return false, err
	}
	if len(dexFiles) == 0 {
		return false, nil
	}

	if err := repackDex(archivePath, dexFiles); err != nil {
		return false, err
	}
	return true, nil
}

// probeArches lists every /system/framework/<arch> present, in
// deodexArches order, caching the result across calls.
func (d *Deodexer) probeArches() []string {
	if d.probed {
		return d.presentArches
	}
	d.probed = true

	for _, arch := range deodexArches {
		fwDir := filepath.Join(d.SystemRoot, "system", "framework", arch)
		if info, err := os.Stat(fwDir); err == nil && info.IsDir() {
			d.presentArches = append(d.presentArches, arch)
		}
	}
	d.fullyDeodexed = len(d.presentArches) == 0

	return d.presentArches
}

// extractDex tries each present arch in order (§4.F), running the VDEX
// fast path or falling back to baksmali/smali disassemble-reassemble,
// and returns the first arch's resulting classes*.dex file paths. An
// arch whose odex/vdex/boot.oat lookup fails is skipped in favor of the
// next present arch rather than aborting the whole record.
func (d *Deodexer) extractDex(ctx context.Context, name, ext, tmpDir string, arches []string) ([]string, error) {
	for _, arch := range arches {
		archDir := filepath.Join(tmpDir, arch)
		if err := os.MkdirAll(archDir, 0755); err != nil {
			return nil, err
		}

		dexFiles, err := d.extractDexForArch(ctx, name, ext, arch, archDir)
		if err != nil {
			continue
		}
		if len(dexFiles) > 0 {
			return dexFiles, nil
		}
	}

	return nil, nil
}

// extractDexForArch runs the VDEX fast path, falling back to
// baksmali/smali disassemble-reassemble, for one specific arch.
func (d *Deodexer) extractDexForArch(ctx context.Context, name, ext, arch, tmpDir string) ([]string, error) {
	fwDir := filepath.Join(d.SystemRoot, "system", "framework", arch)
	oatDir := filepath.Join(filepath.Dir(fwDir), "oat", arch)

	odexPath := filepath.Join(oatDir, name+".odex")
	vdexPath := filepath.Join(oatDir, name+".vdex")

	if fileExists(odexPath) && fileExists(vdexPath) {
		return d.extractViaVdex(ctx, name, vdexPath, tmpDir)
	}

	bootClassPath, err := d.bootClassPath(name, ext, arch)
	if err != nil {
		return nil, err
	}

	if err := d.Baksmali.Deodex(ctx, odexPath, bootClassPath, tmpDir); err != nil {
		return nil, fmt.Errorf("baksmali deodex: %w", err)
	}

	dexPath := filepath.Join(tmpDir, "classes.dex")
	if err := d.Smali.Assemble(ctx, tmpDir, dexPath); err != nil {
		return nil, fmt.Errorf("smali assemble: %w", err)
	}

	return []string{dexPath}, nil
}

func (d *Deodexer) extractViaVdex(ctx context.Context, name, vdexPath, tmpDir string) ([]string, error) {
	if err := d.Vdex.Extract(ctx, vdexPath, tmpDir); err != nil {
		return nil, fmt.Errorf("vdex extract: %w", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, err
	}

	var dexFiles []string
	for _, e := range entries {
		m := classesRenameRe.FindStringSubmatch(e.Name())
		if m == nil || m[1] != name {
			continue
		}

		destName := "classes" + m[2] + ".dex"
		srcPath := filepath.Join(tmpDir, e.Name())
		destPath := filepath.Join(tmpDir, destName)

		if m[3] == "cdex" {
			if err := d.Cdex.Convert(ctx, srcPath, destPath); err != nil {
				return nil, fmt.Errorf("cdex convert: %w", err)
			}
		} else if srcPath != destPath {
			if err := os.Rename(srcPath, destPath); err != nil {
				return nil, err
			}
		}

		dexFiles = append(dexFiles, destPath)
	}

	sort.Strings(dexFiles)
	return dexFiles, nil
}

// bootClassPath locates the boot-classpath root used by baksmali: for
// JARs it first looks for a per-jar boot-<jarname>.oat, falling back to
// the arch's shared boot.oat.
func (d *Deodexer) bootClassPath(name, ext, arch string) (string, error) {
	oatDir := filepath.Join(d.SystemRoot, "system", "framework", "oat", arch)

	if ext == ".jar" {
		perJar := filepath.Join(oatDir, "boot-"+name+".oat")
		if fileExists(perJar) {
			return perJar, nil
		}
	}

	bootOat := filepath.Join(oatDir, "boot.oat")
	if !fileExists(bootOat) {
		return "", fmt.Errorf("no boot-classpath oat found under %s", oatDir)
	}
	return bootOat, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func zipContains(archivePath, name string) (bool, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return false, err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// repackDex rewrites archivePath, replacing any existing classes*.dex
// entries with dexFiles and giving each a fixed, reproducible mtime.
func repackDex(archivePath string, dexFiles []string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer r.Close()

	tmpPath := archivePath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	w := zip.NewWriter(out)

	replace := make(map[string]string)
	for _, dexPath := range dexFiles {
		replace[filepath.Base(dexPath)] = dexPath
	}

	for _, f := range r.File {
		if _, ok := replace[f.Name]; ok {
			continue
		}
		if err := copyZipEntry(w, f); err != nil {
			w.Close()
			out.Close()
			os.Remove(tmpPath)
			return err
		}
	}

	for name, path := range replace {
		if err := addZipFile(w, name, path); err != nil {
			w.Close()
			out.Close()
			os.Remove(tmpPath)
			return err
		}
	}

	if err := w.Close(); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, archivePath)
}

func copyZipEntry(w *zip.Writer, f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	fw, err := w.CreateHeader(&f.FileHeader)
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, rc)
	return err
}

func addZipFile(w *zip.Writer, name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	hdr := &zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	}
	hdr.SetMode(fs.FileMode(0644))
	hdr.Modified = dexRepackTimestamp

	fw, err := w.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = fw.Write(data)
	return err
}
