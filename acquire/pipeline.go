package acquire

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/LineageOS/android-tools-extract-utils/image"
	"github.com/LineageOS/android-tools-extract-utils/tool"
	"github.com/rs/zerolog"
)

// ExtractFn is a device-specific extraction hook run after every built-in
// container format has been drained from the dump directory (the
// Extraction Hook Surface, §4.J), mirroring extract_fn_type. Both
// image.ExtractStarArchive and image.ExtractPixelFirmware are wired in as
// built-in ExtractFns by a recipe that needs them.
type ExtractFn func(ctx context.Context, dumpDir string) error

// Tools bundles the external adapters the extraction pipeline dispatches
// to, threaded explicitly through Extract rather than reached via
// package state.
type Tools struct {
	Simg2Img     *tool.Simg2Img
	Lpunpack     *tool.Lpunpack
	Brotli       *tool.Brotli
	Sdat2Img     *tool.Sdat2Img
	Fsck         *tool.Fsck
	Debugfs      *tool.Debugfs
	OtaExtractor *tool.OtaExtractor
}

// Extract drains every recognized container format out of dumpDir,
// removing each source file as its extraction succeeds, then runs
// extractFns over what's left. A direct port of
// original_source/extract_utils/extract.py's extract_image, restructured
// as a flat sequence of probe/extract/remove steps instead of the
// original's identically-shaped repeated blocks.
func Extract(
	ctx context.Context,
	tools *Tools,
	dumpDir string,
	extractPartitions, firmwarePartitions []string,
	extractFns []ExtractFn,
	logger zerolog.Logger,
) error {
	allPartitions := append(append([]string{}, extractPartitions...), firmwarePartitions...)

	payloadPath, err := image.FindPayloadPath(dumpDir)
	if err != nil {
		return fmt.Errorf("probe for payload.bin: %w", err)
	}
	if payloadPath != "" {
		logger.Info().Str("file", filepath.Base(payloadPath)).Msg("extracting payload.bin")
		if err := image.ExtractPayload(ctx, tools.OtaExtractor, payloadPath, dumpDir, allPartitions); err != nil {
			return fmt.Errorf("extract payload.bin: %w", err)
		}
		if err := os.Remove(payloadPath); err != nil {
			return fmt.Errorf("remove payload.bin: %w", err)
		}
	}

	sparseRawPaths, err := image.FindFilesWithFormat(dumpDir, image.FormatSparseRaw, []string{"super"})
	if err != nil {
		return fmt.Errorf("probe for sparse raw images: %w", err)
	}
	if len(sparseRawPaths) > 0 {
		logger.Info().Int("count", len(sparseRawPaths)).Msg("extracting sparse raw images")
		renamedPaths, err := image.ExtractSparseRawImgs(ctx, tools.Simg2Img, sparseRawPaths, dumpDir)
		if err != nil {
			return fmt.Errorf("extract sparse raw images: %w", err)
		}
		if err := removePaths(renamedPaths); err != nil {
			return err
		}
	}

	superPath, err := image.FindSuperImgPath(dumpDir)
	if err != nil {
		return fmt.Errorf("probe for super.img: %w", err)
	}
	if superPath != "" {
		logger.Info().Msg("extracting super.img")
		if err := image.ExtractSuperImg(ctx, tools.Lpunpack, superPath, dumpDir, allPartitions, logger); err != nil {
			return fmt.Errorf("extract super.img: %w", err)
		}
		if err := os.Remove(superPath); err != nil {
			return fmt.Errorf("remove super.img: %w", err)
		}
	}

	brotliPaths, err := image.FindFilesWithFormat(dumpDir, image.FormatBrotli, extractPartitions)
	if err != nil {
		return fmt.Errorf("probe for brotli images: %w", err)
	}
	if len(brotliPaths) > 0 {
		logger.Info().Int("count", len(brotliPaths)).Msg("extracting brotli images")
		if err := image.ExtractBrotliImgs(ctx, tools.Brotli, brotliPaths, dumpDir); err != nil {
			return fmt.Errorf("extract brotli images: %w", err)
		}
		if err := removePaths(brotliPaths); err != nil {
			return err
		}
	}

	sparseDataPaths, err := image.FindFilesWithFormat(dumpDir, image.FormatSparseData, extractPartitions)
	if err != nil {
		return fmt.Errorf("probe for sparse data images: %w", err)
	}
	if len(sparseDataPaths) > 0 {
		logger.Info().Int("count", len(sparseDataPaths)).Msg("extracting sparse data images")
		if err := image.ExtractSparseDataImgs(ctx, tools.Sdat2Img, sparseDataPaths, dumpDir); err != nil {
			return fmt.Errorf("extract sparse data images: %w", err)
		}
		if err := removePaths(sparseDataPaths); err != nil {
			return err
		}
	}

	erofsPaths, err := image.FindFilesWithFormat(dumpDir, image.FormatEROFS, extractPartitions)
	if err != nil {
		return fmt.Errorf("probe for EROFS images: %w", err)
	}
	if len(erofsPaths) > 0 {
		logger.Info().Int("count", len(erofsPaths)).Msg("extracting EROFS images")
		if err := image.ExtractErofs(ctx, tools.Fsck, erofsPaths, dumpDir); err != nil {
			return fmt.Errorf("extract EROFS images: %w", err)
		}
		if err := removePaths(erofsPaths); err != nil {
			return err
		}
	}

	ext4Paths, err := image.FindFilesWithFormat(dumpDir, image.FormatEXT4, extractPartitions)
	if err != nil {
		return fmt.Errorf("probe for ext4 images: %w", err)
	}
	if len(ext4Paths) > 0 {
		logger.Info().Int("count", len(ext4Paths)).Msg("extracting ext4 images")
		if err := image.ExtractExt4(ctx, tools.Debugfs, ext4Paths, dumpDir); err != nil {
			return fmt.Errorf("extract ext4 images: %w", err)
		}
		if err := removePaths(ext4Paths); err != nil {
			return err
		}
	}

	for _, fn := range extractFns {
		if err := fn(ctx, dumpDir); err != nil {
			return fmt.Errorf("run extraction hook: %w", err)
		}
	}

	return nil
}

func removePaths(paths []string) error {
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}
