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

// ExtractErofs unpacks each EROFS partition image into
// <outDir>/<partition-name>/, ported from extract_erofs.
func ExtractErofs(ctx context.Context, fsck *tool.Fsck, filePaths []string, outDir string) error {
	group, gCtx := errgroup.WithContext(ctx)

	for _, fp := range filePaths {
		fp := fp
		group.Go(func() error {
			partitionName := strings.TrimSuffix(filepath.Base(fp), filepath.Ext(fp))
			partitionOutPath := filepath.Join(outDir, partitionName)
			if err := os.Mkdir(partitionOutPath, 0755); err != nil {
				return fmt.Errorf("mkdir %s: %w", partitionOutPath, err)
			}
			if err := fsck.ExtractErofs(gCtx, fp, partitionOutPath); err != nil {
				return fmt.Errorf("fsck.erofs %s: %w", fp, err)
			}
			return nil
		})
	}

	return group.Wait()
}
