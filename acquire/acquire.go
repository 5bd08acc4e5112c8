package acquire

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Options controls one acquisition run.
type Options struct {
	// Source is a path to a factory image or OTA zip, or a directory
	// already holding a previous extraction's output.
	Source             string
	ExtractPartitions  []string
	FirmwarePartitions []string
	ExtractFns         []ExtractFn
}

// Result reports what an acquisition run produced.
type Result struct {
	DumpDir string
	// Reused is true when a cache hit (local or remote) skipped the
	// probe/extract chain entirely.
	Reused bool
}

// Acquire resolves opts.Source to a populated dump directory, consulting
// cache and remote (either may be nil) before falling back to unpacking
// the source archive and running the extraction chain, mirroring
// original_source/extract_utils/extract.py's get_dump_dir + extract_image
// split into an explicit cache/fetch/extract/push sequence.
func Acquire(
	ctx context.Context,
	tools *Tools,
	cache *DumpCache,
	remote *RemoteCache,
	opts Options,
	logger zerolog.Logger,
) (*Result, error) {
	info, err := os.Stat(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}

	if info.IsDir() {
		logger.Info().Str("dir", opts.Source).Msg("extracting into source directory")
		if err := Extract(ctx, tools, opts.Source, opts.ExtractPartitions, opts.FirmwarePartitions, opts.ExtractFns, logger); err != nil {
			return nil, err
		}
		return &Result{DumpDir: opts.Source}, nil
	}

	if cache == nil {
		dumpDir, err := os.MkdirTemp("", "extract-utils-dump-*")
		if err != nil {
			return nil, fmt.Errorf("create temp dump dir: %w", err)
		}
		logger.Info().Str("dir", dumpDir).Msg("extracting to temporary dump dir")
		if err := unpackArchive(opts.Source, dumpDir); err != nil {
			return nil, err
		}
		if err := Extract(ctx, tools, dumpDir, opts.ExtractPartitions, opts.FirmwarePartitions, opts.ExtractFns, logger); err != nil {
			return nil, err
		}
		return &Result{DumpDir: dumpDir}, nil
	}

	dumpDir, hash, reused, err := cache.Prepare(opts.Source)
	if err != nil {
		return nil, err
	}
	if reused {
		logger.Info().Str("dir", dumpDir).Msg("reusing cached dump dir")
		return &Result{DumpDir: dumpDir, Reused: true}, nil
	}

	if remote != nil {
		fetched, err := remote.Fetch(ctx, hash, dumpDir)
		if err != nil {
			logger.Warn().Err(err).Msg("remote cache fetch failed, extracting locally")
		} else if fetched {
			return &Result{DumpDir: dumpDir, Reused: true}, nil
		}
	}

	logger.Info().Str("dir", dumpDir).Msg("extracting to new dump dir")
	if err := unpackArchive(opts.Source, dumpDir); err != nil {
		return nil, err
	}
	if err := Extract(ctx, tools, dumpDir, opts.ExtractPartitions, opts.FirmwarePartitions, opts.ExtractFns, logger); err != nil {
		return nil, err
	}

	if remote != nil {
		if err := remote.Push(ctx, hash, dumpDir); err != nil {
			logger.Warn().Err(err).Msg("failed to push dump dir to remote cache")
		}
	}

	return &Result{DumpDir: dumpDir}, nil
}

// unpackArchive extracts archivePath (a factory image or OTA zip) into
// destDir, then flattens a single wrapping top-level directory, mirroring
// shutil.unpack_archive + flatten_dir.
func unpackArchive(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	destPrefix := filepath.Clean(destDir) + string(os.PathSeparator)

	for _, f := range r.File {
		targetPath := filepath.Join(destDir, f.Name)
		if !strings.HasPrefix(targetPath, destPrefix) {
			return fmt.Errorf("archive entry escapes destination: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(targetPath, 0755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
			return err
		}

		if err := extractZipFile(f, targetPath); err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}

	return flattenDir(destDir)
}

func extractZipFile(f *zip.File, targetPath string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(targetPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

// flattenDir moves a single wrapping top-level directory's contents up
// one level, so an archive that ships its payload nested inside one
// folder ends up laid out the same as one that doesn't.
func flattenDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return nil
	}

	nested := filepath.Join(dir, entries[0].Name())
	nestedEntries, err := os.ReadDir(nested)
	if err != nil {
		return err
	}

	for _, e := range nestedEntries {
		if err := os.Rename(filepath.Join(nested, e.Name()), filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}

	return os.Remove(nested)
}
