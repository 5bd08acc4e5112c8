package image

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/LineageOS/android-tools-extract-utils/tool"
	"golang.org/x/sync/errgroup"
)

// ExtractExt4 rdumps each ext4 partition image into
// <outDir>/<partition-name>/ via debugfs, ported from extract_ext4. A
// per-partition *tool.IncompatibleTool is surfaced rather than treated
// as a generic ToolFailure, so callers can fall back to a different
// extraction strategy.
func ExtractExt4(ctx context.Context, debugfs *tool.Debugfs, filePaths []string, outDir string) error {
	group, gCtx := errgroup.WithContext(ctx)

	for _, fp := range filePaths {
		fp := fp
		group.Go(func() error {
			partitionName := strings.TrimSuffix(filepath.Base(fp), filepath.Ext(fp))
			partitionOutPath := filepath.Join(outDir, partitionName)
			if err := os.Mkdir(partitionOutPath, 0755); err != nil {
				return fmt.Errorf("mkdir %s: %w", partitionOutPath, err)
			}
			if err := debugfs.RdumpRoot(gCtx, fp, partitionOutPath); err != nil {
				return fmt.Errorf("debugfs rdump %s: %w", fp, err)
			}
			return nil
		})
	}

	return group.Wait()
}
