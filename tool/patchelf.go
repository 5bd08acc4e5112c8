package tool

import "context"

// Patchelf wraps one of the three side-by-side patchelf builds selected by
// tool.Paths.PatchelfVersion, used by the SONAME/DT_NEEDED fixup pipeline.
type Patchelf struct {
	Runner Runner
	Path   string
}

func (p *Patchelf) SetSoname(ctx context.Context, filePath, soname string) error {
	_, err := p.Runner.Run(ctx, p.Path, "--set-soname", soname, filePath)
	return err
}

func (p *Patchelf) ReplaceNeeded(ctx context.Context, filePath, from, to string) error {
	_, err := p.Runner.Run(ctx, p.Path, "--replace-needed", from, to, filePath)
	return err
}

func (p *Patchelf) AddNeeded(ctx context.Context, filePath, lib string) error {
	_, err := p.Runner.Run(ctx, p.Path, "--add-needed", lib, filePath)
	return err
}

func (p *Patchelf) RemoveNeeded(ctx context.Context, filePath, lib string) error {
	_, err := p.Runner.Run(ctx, p.Path, "--remove-needed", lib, filePath)
	return err
}
