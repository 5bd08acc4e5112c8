package image

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/LineageOS/android-tools-extract-utils/tool"
	"github.com/rs/zerolog"
)

// slotRunner simulates lpunpack succeeding only for the "_a" slot of each
// partition, dropping a stub .img file the way the real tool would.
type slotRunner struct {
	outDir string
}

func (s *slotRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	// args: --partition <partitionSlot> <superImgPath> <outDir>
	partitionSlot := args[1]
	if len(partitionSlot) < 2 || partitionSlot[len(partitionSlot)-2:] != "_a" {
		return nil, errors.New("partition not present")
	}
	return nil, os.WriteFile(filepath.Join(s.outDir, partitionSlot+".img"), nil, 0644)
}

func TestExtractSuperImgNormalizesSlotSuffix(t *testing.T) {
	outDir := t.TempDir()
	r := &slotRunner{outDir: outDir}
	lpunpack := &tool.Lpunpack{Runner: r, Path: "lpunpack"}

	err := ExtractSuperImg(context.Background(), lpunpack, "/tmp/super.img", outDir, []string{"vendor"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("ExtractSuperImg: %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "vendor.img")); err != nil {
		t.Fatalf("expected vendor.img after slot normalization: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "vendor_a.img")); !os.IsNotExist(err) {
		t.Fatal("vendor_a.img should have been renamed away")
	}
}

func TestExtractSuperImgToleratesMissingSlot(t *testing.T) {
	outDir := t.TempDir()
	r := &fakeRunner{err: errors.New("partition absent")}
	lpunpack := &tool.Lpunpack{Runner: r, Path: "lpunpack"}

	err := ExtractSuperImg(context.Background(), lpunpack, "/tmp/super.img", outDir, []string{"odm"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("ExtractSuperImg should tolerate a missing slot, got: %v", err)
	}
}
