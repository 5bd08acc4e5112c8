package tool

import "context"

// VdexExtractor wraps the VDEX-to-DEX extractor used by the deodex
// sub-algorithm's fast path when a `.odex`/`.vdex` pair is present.
type VdexExtractor struct {
	Runner Runner
	Path   string
}

func (v *VdexExtractor) Extract(ctx context.Context, vdexPath, outDir string) error {
	_, err := v.Runner.Run(ctx, v.Path, vdexPath, "--output_dir="+outDir)
	return err
}

// CdexConverter wraps the CDEX-to-DEX converter run over any
// `classesN.cdex` a VdexExtractor produces before the archive is repacked.
type CdexConverter struct {
	Runner Runner
	Path   string
}

func (c *CdexConverter) Convert(ctx context.Context, cdexPath, dexPath string) error {
	_, err := c.Runner.Run(ctx, c.Path, cdexPath, dexPath)
	return err
}

// Baksmali/Smali wrap the disassemble-then-reassemble fallback path of the
// deodex sub-algorithm, used when no VDEX companion is present.
type Baksmali struct {
	Runner   Runner
	JavaPath string
	JarPath  string
}

func (b *Baksmali) Deodex(ctx context.Context, odexPath, bootClassPath, outDir string) error {
	_, err := b.Runner.Run(ctx, b.JavaPath, "-jar", b.JarPath, "deodex",
		"-b", bootClassPath, "-o", outDir, odexPath)
	return err
}

type Smali struct {
	Runner   Runner
	JavaPath string
	JarPath  string
}

func (s *Smali) Assemble(ctx context.Context, smaliDir, outDexPath string) error {
	_, err := s.Runner.Run(ctx, s.JavaPath, "-jar", s.JarPath, "assemble",
		"-o", outDexPath, smaliDir)
	return err
}
