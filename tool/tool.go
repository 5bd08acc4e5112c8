// Package tool provides typed wrappers around the external binaries that
// extract-utils shells out to (image unpackers, ELF rewriters, decoders).
// Every adapter goes through Runner so a single place maps a nonzero exit
// code into a structured ToolFailure.
package tool

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// ToolFailure is returned whenever an external tool exits nonzero.
type ToolFailure struct {
	Tool   string
	Args   []string
	Code   int
	Stderr string
}

func (f *ToolFailure) Error() string {
	return fmt.Sprintf("%s %v: exit %d: %s", f.Tool, f.Args, f.Code, f.Stderr)
}

// Runner invokes a named binary with arguments and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner is the production Runner, backed by os/exec.
type execRunner struct{}

// NewRunner returns the default os/exec-backed Runner.
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return nil, fmt.Errorf("run %s: %w", name, err)
	}

	return nil, &ToolFailure{
		Tool:   name,
		Args:   args,
		Code:   exitErr.ExitCode(),
		Stderr: stderr.String(),
	}
}

// Paths resolves the fixed set of external tool locations from a root
// directory prefix, mirroring original_source/extract_utils/tools.py's
// module-level path constants.
type Paths struct {
	Root string

	// PatchelfVersion selects which of the three side-by-side patchelf
	// builds is used by default; individual blob fixups may override it.
	PatchelfVersion string
}

const DefaultPatchelfVersion = "0_9"

var PatchelfVersions = []string{"0_8", "0_9", "0_17_2"}

func NewPaths(root string) *Paths {
	return &Paths{Root: root, PatchelfVersion: DefaultPatchelfVersion}
}

func (p *Paths) bin(rel string) string {
	return p.Root + "/prebuilts/extract-tools/linux-x86/bin/" + rel
}

func (p *Paths) buildTool(rel string) string {
	return p.Root + "/prebuilts/build-tools/linux-x86/bin/" + rel
}

func (p *Paths) Simg2Img() string    { return p.bin("simg2img") }
func (p *Paths) Img2Simg() string    { return p.bin("img2simg") }
func (p *Paths) Lpunpack() string    { return p.bin("lpunpack") }
func (p *Paths) OtaExtractor() string { return p.bin("ota_extractor") }
func (p *Paths) StripZip() string    { return p.bin("stripzip") }
func (p *Paths) Brotli() string      { return p.buildTool("brotli") }

func (p *Paths) Patchelf(version string) string {
	if version == "" {
		version = p.PatchelfVersion
	}
	return p.bin("patchelf-" + version)
}

func (p *Paths) commonBin(rel string) string {
	return p.Root + "/prebuilts/extract-tools/common/" + rel
}

func (p *Paths) Apktool() string { return p.commonBin("apktool/apktool.jar") }

func (p *Paths) Java() string {
	return p.Root + "/prebuilts/jdk/jdk21/linux-x86/bin/java"
}

func (p *Paths) CarrierSettingsExtractor() string {
	return p.Root + "/lineage/scripts/carriersettings-extractor/carriersettings_extractor.py"
}

func (p *Paths) FbPackTool() string {
	return p.Root + "/lineage/scripts/fbpacktool/fbpacktool.py"
}
