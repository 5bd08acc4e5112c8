package tool

import "context"

// Lpunpack extracts one named logical partition from a super image,
// mirroring extract_super_img's per-partition/per-slot invocations.
type Lpunpack struct {
	Runner Runner
	Path   string
}

func (l *Lpunpack) UnpackPartition(ctx context.Context, superImgPath, partitionSlot, outDir string) error {
	_, err := l.Runner.Run(ctx, l.Path, "--partition", partitionSlot, superImgPath, outDir)
	return err
}
