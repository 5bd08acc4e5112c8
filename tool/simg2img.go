package tool

import "context"

// Simg2Img expands a sparse Android image into a raw one, one output file
// per input, mirroring extract_sparse_raw_imgs's simg2img invocation.
type Simg2Img struct {
	Runner Runner
	Path   string
}

// Expand concatenates chunkPaths (in their natural-sort order, for a
// multi-chunk super image) into a single raw image at outPath.
func (s *Simg2Img) Expand(ctx context.Context, chunkPaths []string, outPath string) error {
	args := append(append([]string{}, chunkPaths...), outPath)
	_, err := s.Runner.Run(ctx, s.Path, args...)
	return err
}
