// Package fixup implements the Fixup Pipeline (§4.F): the fixed stage-1
// steps keyed by file type, stage-2 per-record args, and the stage-3 user
// hook, plus hash book-keeping around them.
package fixup

import (
	"context"
	"fmt"

	"github.com/LineageOS/android-tools-extract-utils/config"
	"github.com/LineageOS/android-tools-extract-utils/manifest"
	"github.com/LineageOS/android-tools-extract-utils/pin"
	"github.com/rs/zerolog"
)

// Deps bundles the tool adapters and hook table the pipeline needs.
type Deps struct {
	Soname     *SonameFixer
	Deodex     *Deodexer
	DisableXML bool
	Hooks      *config.Hooks
}

// Result carries the hash book-keeping the caller needs for pinning and
// kang-mode reporting.
type Result struct {
	PreFixupHash  string
	PostFixupHash string
	FixedUp       bool
}

// Run executes the two-stage pipeline plus the user hook over one
// resolved blob at filePath, then computes the hash book-keeping (§4.F).
func Run(ctx context.Context, deps *Deps, rec *manifest.Record, filePath string, logger zerolog.Logger) (*Result, error) {
	preHash, err := pin.FileSHA1(filePath)
	if err != nil {
		return nil, fmt.Errorf("hash pre-fixup: %w", err)
	}

	name := rec.Basename()

	if !deps.Hooks.OrBlobFixupDry(name) {
		logger.Debug().Str("blob", name).Msg("Skipping fixups per recipe hook")
		return &Result{PreFixupHash: preHash, PostFixupHash: preHash}, nil
	}

	ext := rec.Ext()

	// Stage 1: fixed, keyed by file type.
	if (ext == ".apk" || ext == ".jar") && deps.Deodex != nil {
		repacked, err := deps.Deodex.Run(ctx, rec, filePath)
		if err != nil {
			return nil, fmt.Errorf("deodex %s: %w", name, err)
		}
		if repacked {
			logger.Debug().Str("blob", name).Msg("Repacked classes.dex from deodex output")
		}
	}

	if ext == ".xml" && !deps.DisableXML {
		if err := FixXMLDeclaration(filePath); err != nil {
			return nil, fmt.Errorf("fix xml declaration %s: %w", name, err)
		}
	}

	// Stage 2: per-record args.
	if rec.FixSoname() && deps.Soname != nil {
		if err := deps.Soname.Fix(ctx, filePath, name); err != nil {
			return nil, fmt.Errorf("fix soname %s: %w", name, err)
		}
	}
	if rec.FixXML() {
		if err := FixXMLDeclaration(filePath); err != nil {
			return nil, fmt.Errorf("fix xml (FIX_XML) %s: %w", name, err)
		}
	}

	// Stage 3: user hook.
	if err := deps.Hooks.OrBlobFixup(name, filePath); err != nil {
		return nil, fmt.Errorf("recipe blob_fixup %s: %w", name, err)
	}

	postHash, err := pin.FileSHA1(filePath)
	if err != nil {
		return nil, fmt.Errorf("hash post-fixup: %w", err)
	}

	fixedUp := preHash != postHash
	if fixedUp && rec.PinnedHash != "" && rec.FixupHash == "" {
		logger.Warn().Str("blob", name).Msg("Blob was pinned but fixed up; consider recording a fixup_hash")
	}

	return &Result{PreFixupHash: preHash, PostFixupHash: postHash, FixedUp: fixedUp}, nil
}
