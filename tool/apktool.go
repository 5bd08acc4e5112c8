package tool

import "context"

// Apktool wraps `java -jar apktool.jar` for the deodex reassembly fallback
// and the recipe-hook apktool_unpack/apktool_pack blob patch primitives.
type Apktool struct {
	Runner   Runner
	JavaPath string
	JarPath  string
}

func (a *Apktool) Unpack(ctx context.Context, apkPath, outDir string) error {
	_, err := a.Runner.Run(ctx, a.JavaPath, "-jar", a.JarPath, "d", apkPath, "-o", outDir, "-f")
	return err
}

func (a *Apktool) Pack(ctx context.Context, srcDir, outPath string) error {
	_, err := a.Runner.Run(ctx, a.JavaPath, "-jar", a.JarPath, "b", srcDir, "-o", outPath)
	return err
}

// StripZip wraps the stripzip tool that normalizes a repacked APK's zip
// timestamps/ordering after an apktool round trip.
type StripZip struct {
	Runner Runner
	Path   string
}

func (s *StripZip) Strip(ctx context.Context, apkPath string) error {
	_, err := s.Runner.Run(ctx, s.Path, apkPath)
	return err
}
