package image

import (
	"context"
	"fmt"

	"github.com/LineageOS/android-tools-extract-utils/tool"
	"golang.org/x/sync/errgroup"
)

// ExtractPayload fans out one ota_extractor subprocess per partition
// (system/vendor/product/system_ext/odm plus any firmware partitions)
// against a single payload.bin, joining before returning. Each
// partition's failure is preserved as its own error rather than
// discarded (§9 REDESIGN FLAG resolution) and errgroup.WithContext
// cancels the remaining siblings on the first failure, grounded on
// internal/cmd/notary/notary_command.go's worker fan-out/join and
// original_source/extract_utils/extract.py's extract_payload_bin.
func ExtractPayload(ctx context.Context, extractor *tool.OtaExtractor, payloadPath, outDir string, partitions []string) error {
	group, gCtx := errgroup.WithContext(ctx)

	for _, partition := range partitions {
		partition := partition
		group.Go(func() error {
			if err := extractor.ExtractPartition(gCtx, payloadPath, outDir, partition); err != nil {
				return fmt.Errorf("extract partition %s from payload: %w", partition, err)
			}
			return nil
		})
	}

	return group.Wait()
}

// DefaultExtractPartitions is the partition set extracted when a recipe
// doesn't override it, mirroring DEFAULT_EXTRACTED_PARTITIONS.
var DefaultExtractPartitions = []string{"system", "odm", "product", "system_ext", "vendor"}
