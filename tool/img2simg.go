package tool

import "context"

// Img2Simg re-sparsifies a raw image into an Android sparse image.
type Img2Simg struct {
	Runner Runner
	Path   string
}

func (s *Img2Simg) Sparsify(ctx context.Context, rawPath, outPath string) error {
	_, err := s.Runner.Run(ctx, s.Path, rawPath, outPath)
	return err
}
