// Package acquire implements the Acquisition Pipeline (§4.C): turning a
// source image (factory zip, OTA payload, or an already-extracted
// directory) into a populated dump directory, reusing a prior extraction
// of the same image by content hash wherever possible, and dispatching
// image.Probe*/Extract* over whatever container formats the dump
// actually contains.
package acquire

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/LineageOS/android-tools-extract-utils/manifest"
	"github.com/LineageOS/android-tools-extract-utils/pin"
)

// DumpCache is the local content-addressed extraction cache: a dump
// directory produced from a source image is kept under a directory named
// after the source file's own MD5, so re-running against the same image
// bytes (even under a different file name) reuses the prior extraction
// instead of re-running the whole probe/extract chain, grounded on
// original_source/extract_utils/extract.py's get_dump_dir persistent-dir
// reuse (generalized here from "same name minus extension" to
// content-hash keyed, so a copy or a re-download of the same image still
// hits the cache).
type DumpCache struct {
	Root string
}

func (c *DumpCache) dirFor(hash string) string {
	return filepath.Join(c.Root, hash)
}

// Prepare hashes sourcePath and returns its cache directory, creating it
// if it doesn't already exist. reused reports whether the directory
// already held a prior extraction's contents, letting the caller skip
// the probe/extract chain entirely.
func (c *DumpCache) Prepare(sourcePath string) (dir, hash string, reused bool, err error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return "", "", false, fmt.Errorf("hash source image: %w", err)
	}
	h := md5.New()
	_, err = io.Copy(h, f)
	f.Close()
	if err != nil {
		return "", "", false, fmt.Errorf("hash source image: %w", err)
	}
	hash = hex.EncodeToString(h.Sum(nil))

	dir = c.dirFor(hash)

	entries, statErr := os.ReadDir(dir)
	switch {
	case statErr == nil && len(entries) > 0:
		return dir, hash, true, nil
	case statErr == nil:
		return dir, hash, false, nil
	case !os.IsNotExist(statErr):
		return "", "", false, fmt.Errorf("stat cache dir: %w", statErr)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", false, fmt.Errorf("create cache dir: %w", err)
	}

	return dir, hash, false, nil
}

// Purge discards a cache entry, used to force a re-extraction after a
// partial or corrupt run.
func (c *DumpCache) Purge(hash string) error {
	return os.RemoveAll(c.dirFor(hash))
}

// PinBackup stages copies of a vendor tree's already-present pinned blobs
// into a scratch directory before that tree is wiped for a
// non-incremental extraction run, then serves them back out as a
// pin.Candidate so a pin-hash match can be satisfied without touching the
// image dump or network at all, grounded on
// original_source/extract_utils/main.py's
// backup_module_pinned_files/process_module_pinned_file (§9 SUPPLEMENTED
// FEATURE 2).
type PinBackup struct {
	dir string
}

// NewPinBackup creates the scratch backup directory. Callers must Close
// it once the run finishes.
func NewPinBackup() (*PinBackup, error) {
	dir, err := os.MkdirTemp("", "extract-utils-pin-backup-*")
	if err != nil {
		return nil, fmt.Errorf("create pin backup dir: %w", err)
	}
	return &PinBackup{dir: dir}, nil
}

// Close removes the backup directory and everything staged in it.
func (b *PinBackup) Close() error {
	return os.RemoveAll(b.dir)
}

// Save copies the file currently at outputPath, the vendor tree's
// existing copy of rec before cleanup wipes it, into the backup
// directory. A record with no pin, or with nothing at outputPath yet, is
// a silent no-op.
func (b *PinBackup) Save(rec *manifest.Record, outputPath string) error {
	if !rec.Pinned() {
		return nil
	}
	if _, err := os.Stat(outputPath); err != nil {
		return nil
	}

	backupPath := filepath.Join(b.dir, rec.DstPath)
	if err := os.MkdirAll(filepath.Dir(backupPath), 0755); err != nil {
		return fmt.Errorf("create pin backup dir for %s: %w", rec.DstPath, err)
	}
	if err := copyFile(outputPath, backupPath); err != nil {
		return fmt.Errorf("back up %s: %w", rec.DstPath, err)
	}
	return nil
}

// Candidate returns rec's backed-up copy as a pin.Candidate, for use
// alongside the fresh-copy candidate in pin.FindReusable.
func (b *PinBackup) Candidate(rec *manifest.Record) pin.Candidate {
	return pin.Candidate{Label: "backup", Path: filepath.Join(b.dir, rec.DstPath)}
}

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
