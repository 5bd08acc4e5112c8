package tool

import "context"

// Git wraps the `git apply` invocations the blob-patch recipe primitives
// use to apply a directory of *.patch files against an extracted blob.
type Git struct {
	Runner Runner
	Path   string
}

func (g *Git) apply(ctx context.Context, dir string, reverseCheck bool, patches []string) error {
	args := []string{"apply", "--unsafe-path", "--directory", dir}
	if reverseCheck {
		args = append(args, "--reverse", "--check")
	}
	args = append(args, patches...)
	_, err := g.Runner.Run(ctx, g.Path, args...)
	return err
}

// AlreadyApplied reports whether patches apply cleanly in reverse against
// dir, meaning they were already applied in a previous run.
func (g *Git) AlreadyApplied(ctx context.Context, dir string, patches []string) bool {
	reversed := make([]string, len(patches))
	for i, p := range patches {
		reversed[len(patches)-1-i] = p
	}
	return g.apply(ctx, dir, true, reversed) == nil
}

// Apply applies patches against dir in forward order.
func (g *Git) Apply(ctx context.Context, dir string, patches []string) error {
	return g.apply(ctx, dir, false, patches)
}
