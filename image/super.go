package image

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/LineageOS/android-tools-extract-utils/tool"
	"github.com/rs/zerolog"
)

// ExtractSuperImg unpacks each requested partition's A/current slot from
// a super.img via lpunpack, fanned out in parallel, then normalizes any
// "<partition>_a.img" it produced down to "<partition>.img", ported from
// original_source/extract_utils/extract.py's extract_super_img. A given
// partition may legitimately only exist under one of the two slot
// suffixes, so per-slot failures are logged rather than fatal, matching
// the source's non-fatal process_cmds_in_parallel call for this step.
func ExtractSuperImg(ctx context.Context, lpunpack *tool.Lpunpack, superImgPath, outDir string, partitions []string, logger zerolog.Logger) error {
	var wg sync.WaitGroup

	for _, partition := range partitions {
		for _, slot := range []string{"", "_a"} {
			partitionSlot := partition + slot
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := lpunpack.UnpackPartition(ctx, superImgPath, partitionSlot, outDir); err != nil {
					logger.Debug().Err(err).Str("partition", partitionSlot).Msg("lpunpack partition not present")
				}
			}()
		}
	}
	wg.Wait()

	for _, partition := range partitions {
		aPath := filepath.Join(outDir, partition+"_a.img")
		plainPath := filepath.Join(outDir, partition+".img")
		if _, err := os.Stat(aPath); err == nil {
			if err := os.Rename(aPath, plainPath); err != nil {
				return fmt.Errorf("rename %s: %w", aPath, err)
			}
		}
	}

	return nil
}
