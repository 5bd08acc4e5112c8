package tool

import (
	"bufio"
	"bytes"
	"context"
	"strings"
)

// Brotli wraps the brotli decoder used to expand `<part>.new.dat.br` block
// OTA patches before sdat2img reassembles them into a raw image.
type Brotli struct {
	Runner Runner
	Path   string
}

func (b *Brotli) Decompress(ctx context.Context, srcPath, dstPath string) error {
	_, err := b.Runner.Run(ctx, b.Path, "-d", srcPath, "-o", dstPath)
	return err
}

// Sdat2Img reassembles a sparse-data + transfer-list pair into a raw image.
type Sdat2Img struct {
	Runner Runner
	Path   string
}

func (s *Sdat2Img) Convert(ctx context.Context, transferListPath, dataPath, outPath string) error {
	_, err := s.Runner.Run(ctx, s.Path, transferListPath, dataPath, outPath)
	return err
}

// OtaExtractor wraps the A/B payload.bin extractor, invoked once per
// partition by the acquisition pipeline's parallel fan-out.
type OtaExtractor struct {
	Runner Runner
	Path   string
}

func (o *OtaExtractor) ExtractPartition(ctx context.Context, payloadPath, outDir, partition string) error {
	_, err := o.Runner.Run(ctx, o.Path,
		"--payload", payloadPath,
		"--output-dir", outDir,
		"--partitions", partition,
	)
	return err
}

// Fsck wraps `fsck.erofs --extract=` for EROFS partition images.
type Fsck struct {
	Runner Runner
}

func (f *Fsck) ExtractErofs(ctx context.Context, imgPath, outDir string) error {
	_, err := f.Runner.Run(ctx, "fsck.erofs", "--extract="+outDir, imgPath)
	return err
}

// Debugfs wraps `debugfs -R rdump` for ext4 partition images. The
// implementation must fail with IncompatibleTool if the tool's own log
// output contains the short-read-on-symlink marker (§4.B).
type Debugfs struct {
	Runner Runner
}

// IncompatibleTool signals that debugfs cannot faithfully dump this ext4
// image (a truncated symlink target was encountered mid-rdump).
type IncompatibleTool struct {
	Reason string
}

func (e *IncompatibleTool) Error() string { return "incompatible tool: " + e.Reason }

const shortReadSymlinkMarker = "Attempt to read block from filesystem resulted in short read while reading symlink"

func (d *Debugfs) RdumpRoot(ctx context.Context, imgPath, outDir string) error {
	out, err := d.Runner.Run(ctx, "debugfs", "-R", "rdump / "+outDir, imgPath)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), shortReadSymlinkMarker) {
			return &IncompatibleTool{Reason: "debugfs rdump: " + shortReadSymlinkMarker}
		}
	}

	return nil
}

// CarrierSettingsExtractor wraps the unchanged, documented CLI contract for
// converting extracted CarrierSettings `.pb` files into RRO XML resources
// (§1's "OUT OF SCOPE" carrier-settings collaborator, wired via
// emit.CarrierSettingsPostprocessor).
type CarrierSettingsExtractor struct {
	Runner     Runner
	ScriptPath string
}

func (c *CarrierSettingsExtractor) Convert(ctx context.Context, inputDir, outputDir string) error {
	_, err := c.Runner.Run(ctx, "python3", c.ScriptPath, "-i", inputDir, "-v", outputDir)
	return err
}

// FbPackTool wraps the fbpacktool.py firmware-image unpack hook used by the
// Pixel-family device-specific extraction hook (§9 SUPPLEMENTED FEATURE 6).
type FbPackTool struct {
	Runner     Runner
	ScriptPath string
}

func (f *FbPackTool) Unpack(ctx context.Context, imgPath, outDir string) error {
	_, err := f.Runner.Run(ctx, "python3", f.ScriptPath, "unpack", "-o", outDir, imgPath)
	return err
}
