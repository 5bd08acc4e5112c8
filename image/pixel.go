package image

import (
	"context"
	"fmt"

	"github.com/LineageOS/android-tools-extract-utils/tool"
)

// ExtractPixelFirmware unpacks a Pixel-family firmware image (radio.img,
// bootloader.img, and similar) via fbpacktool, ported from
// extract_pixel.extract_pixel_firmware. Unlike the generic sparse/EROFS/ext4
// extractors this is a device-specific recipe hook rather than something
// dispatched from the magic-byte probe table, so it takes the destination
// work directory directly instead of returning a Format.
func ExtractPixelFirmware(ctx context.Context, fbpacktool *tool.FbPackTool, filePath, workDir string) error {
	if err := fbpacktool.Unpack(ctx, filePath, workDir); err != nil {
		return fmt.Errorf("fbpacktool unpack %s: %w", filePath, err)
	}
	return nil
}
