package image

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/LineageOS/android-tools-extract-utils/tool"
	"golang.org/x/sync/errgroup"
)

const sparseChunkSuffix = "_sparsechunk"

var chunkSuffixRe = regexp.MustCompile(`^(.+)` + sparseChunkSuffix + `\.(\d+)$`)

// ExtractSparseRawImgs joins any `<partition>_sparsechunk.N` groups back
// into a single sparse image per partition (or renames a lone
// non-chunked sparse image to `.sparse`) and runs simg2img over each
// group, ported from extract_sparse_raw_imgs. It fails fast: a
// malformed or unreadable sparse image aborts the whole extraction, the
// same fatal=True the source passes for this step.
func ExtractSparseRawImgs(ctx context.Context, simg2img *tool.Simg2Img, filePaths []string, outDir string) ([]string, error) {
	chunksByPartition := map[string][]string{}
	var renamedPaths []string

	for _, fp := range filePaths {
		base := filepath.Base(fp)

		if m := chunkSuffixRe.FindStringSubmatch(base); m != nil {
			partition := m[1]
			idx, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, fmt.Errorf("parse chunk index for %s: %w", base, err)
			}

			chunks := chunksByPartition[partition]
			for len(chunks) <= idx {
				chunks = append(chunks, "")
			}
			chunks[idx] = fp
			chunksByPartition[partition] = chunks
			renamedPaths = append(renamedPaths, fp)
			continue
		}

		sparsePath := fp + ".sparse"
		if err := os.Rename(fp, sparsePath); err != nil {
			return nil, fmt.Errorf("rename %s: %w", fp, err)
		}
		renamedPaths = append(renamedPaths, sparsePath)
		chunksByPartition[base] = []string{sparsePath}
	}

	group, gCtx := errgroup.WithContext(ctx)
	partitions := make([]string, 0, len(chunksByPartition))
	for p := range chunksByPartition {
		partitions = append(partitions, p)
	}
	sort.Strings(partitions)

	for _, partition := range partitions {
		chunks := chunksByPartition[partition]
		outPath := filepath.Join(outDir, partition)
		group.Go(func() error {
			if err := simg2img.Expand(gCtx, chunks, outPath); err != nil {
				return fmt.Errorf("simg2img %s: %w", partition, err)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return renamedPaths, nil
}

// ExtractBrotliImgs decompresses each .new.dat.br file in filePaths in
// parallel, ported from extract_brotli_imgs (fatal=True: any failure
// aborts the run).
func ExtractBrotliImgs(ctx context.Context, brotli *tool.Brotli, filePaths []string, outDir string) error {
	group, gCtx := errgroup.WithContext(ctx)

	for _, fp := range filePaths {
		fp := fp
		group.Go(func() error {
			base := strings.TrimSuffix(filepath.Base(fp), filepath.Ext(fp))
			outPath := filepath.Join(outDir, base)
			if err := brotli.Decompress(gCtx, fp, outPath); err != nil {
				return fmt.Errorf("brotli decompress %s: %w", fp, err)
			}
			return nil
		})
	}

	return group.Wait()
}

// ExtractSparseDataImgs reassembles each `.new.dat` + `.transfer.list`
// pair into a raw `.img`, ported from extract_sparse_data_imgs.
func ExtractSparseDataImgs(ctx context.Context, sdat2img *tool.Sdat2Img, filePaths []string, outDir string) error {
	group, gCtx := errgroup.WithContext(ctx)

	for _, fp := range filePaths {
		fp := fp
		group.Go(func() error {
			if !strings.HasSuffix(fp, sparseDataExt) {
				return fmt.Errorf("%s does not end in %s", fp, sparseDataExt)
			}
			base := strings.TrimSuffix(fp, sparseDataExt)
			transferPath := base + ".transfer.list"
			outPath := filepath.Join(outDir, filepath.Base(base)+".img")

			if err := sdat2img.Convert(gCtx, transferPath, fp, outPath); err != nil {
				return fmt.Errorf("sdat2img %s: %w", fp, err)
			}
			return nil
		})
	}

	return group.Wait()
}
