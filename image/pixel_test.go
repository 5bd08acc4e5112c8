package image

import (
	"context"
	"errors"
	"testing"

	"github.com/LineageOS/android-tools-extract-utils/tool"
)

func TestExtractPixelFirmwareInvokesFbPackTool(t *testing.T) {
	r := &fakeRunner{}
	fbpacktool := &tool.FbPackTool{Runner: r, ScriptPath: "/android/lineage/scripts/fbpacktool/fbpacktool.py"}

	err := ExtractPixelFirmware(context.Background(), fbpacktool, "/tmp/radio.img", "/tmp/out")
	if err != nil {
		t.Fatalf("ExtractPixelFirmware: %v", err)
	}

	if got := r.callCount(); got != 1 {
		t.Fatalf("expected 1 call, got %d", got)
	}
	call := r.calls[0]
	if call[len(call)-1] != "/tmp/radio.img" {
		t.Fatalf("expected image path as last arg, got %v", call)
	}
}

func TestExtractPixelFirmwareWrapsError(t *testing.T) {
	r := &fakeRunner{err: errors.New("unpack failed")}
	fbpacktool := &tool.FbPackTool{Runner: r, ScriptPath: "fbpacktool.py"}

	err := ExtractPixelFirmware(context.Background(), fbpacktool, "/tmp/bootloader.img", "/tmp/out")
	if err == nil {
		t.Fatal("expected error to propagate")
	}
}
