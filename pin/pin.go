// Package pin implements Hash Pinning & Kang Mode (§4.G): SHA1 content
// hashing, reuse-by-hash decisions for pinned blobs, and kang-mode textual
// spec regeneration, grounded on original_source/extract_utils/hash.py
// and copy.py's pinned-hash-match branch.
package pin

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/LineageOS/android-tools-extract-utils/manifest"
)

// FileSHA1 hashes a file's contents with SHA1, matching
// original_source/extract_utils/hash.py's file_path_sha1 (hashlib.sha1
// streamed in 8 KiB chunks). Direct hashing is used rather than shelling
// out to sha1sum, the same choice the teacher makes for its own upload
// checksums in notarize/worker/worker.go.
func FileSHA1(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file to hash: %w", err)
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Decision is the outcome of comparing a candidate copy's hash against a
// record's pinned/fixup hashes (§4.G).
type Decision int

const (
	// DecisionMismatch means neither hash matched; the candidate is
	// unusable and extraction must fetch a fresh copy.
	DecisionMismatch Decision = iota
	// DecisionKeepAsIs means pinned_hash matched with no fixup_hash
	// declared: the blob needs no fixups, reuse it verbatim.
	DecisionKeepAsIs
	// DecisionKeepPostFixup means fixup_hash matched: the blob has
	// already had fixups applied, reuse it as-is.
	DecisionKeepPostFixup
	// DecisionNeedsFixup means pinned_hash matched but a different
	// fixup_hash is declared: reuse the fetch, but re-run fixups.
	DecisionNeedsFixup
)

// Evaluate implements copy.py's process_pinned_file_hash decision table.
func Evaluate(rec *manifest.Record, candidateHash string) Decision {
	switch {
	case candidateHash == rec.PinnedHash && rec.FixupHash == "":
		return DecisionKeepAsIs
	case rec.FixupHash != "" && candidateHash == rec.FixupHash:
		return DecisionKeepPostFixup
	case rec.PinnedHash != "" && candidateHash == rec.PinnedHash:
		return DecisionNeedsFixup
	default:
		return DecisionMismatch
	}
}

// Candidate is one place a matching prior copy might already exist:
// the output directory or the staged temp directory (§4.G).
type Candidate struct {
	Label string
	Path  string
}

// FindReusable scans candidates in order and returns the first whose
// on-disk hash satisfies Evaluate as something other than
// DecisionMismatch — the zero-subprocess reuse fast path required by
// spec.md §8's pin invariant.
func FindReusable(rec *manifest.Record, candidates []Candidate) (Candidate, Decision, string, bool) {
	for _, c := range candidates {
		if _, err := os.Stat(c.Path); err != nil {
			continue
		}

		hash, err := FileSHA1(c.Path)
		if err != nil {
			continue
		}

		decision := Evaluate(rec, hash)
		if decision != DecisionMismatch {
			return c, decision, hash, true
		}
	}

	return Candidate{}, DecisionMismatch, "", false
}

// HashMismatch is reported (non-fatal, red) when a blob's post-fixup hash
// doesn't match its declared fixup_hash (or pinned_hash if no fixup_hash
// is present).
type HashMismatch struct {
	Blob     string
	Expected string
	Actual   string
}

func (e *HashMismatch) Error() string {
	return fmt.Sprintf("%s: hash mismatch, expected %s got %s", e.Blob, e.Expected, e.Actual)
}

// PinnedButFixedUp is the yellow advisory emitted when a statically
// pinned blob (pinned_hash set, no fixup_hash) turns out to need fixups.
type PinnedButFixedUp struct {
	Blob string
}

func (e *PinnedButFixedUp) Error() string {
	return fmt.Sprintf("%s: pinned but was fixed up, consider adding a fixup_hash", e.Blob)
}

// VerifyPostFixup compares a blob's fresh post-fixup hash against its
// declared fixup_hash (preferred) or pinned_hash, returning a
// HashMismatch when they differ. Per §4.G this is never fatal.
func VerifyPostFixup(rec *manifest.Record, postFixupHash string) error {
	want := rec.FixupHash
	if want == "" {
		want = rec.PinnedHash
	}
	if want == "" || want == postFixupHash {
		return nil
	}
	return &HashMismatch{Blob: rec.DstPath, Expected: want, Actual: postFixupHash}
}

// KangSpec renders the normalized textual spec for a blob with freshly
// computed pre- and post-fixup hashes, the output format kang mode uses
// to regenerate a pinned manifest (§4.G, end-to-end scenario 3).
func KangSpec(rec *manifest.Record, preFixupHash, postFixupHash string) string {
	kanged := *rec
	kanged.PinnedHash = preFixupHash
	if postFixupHash != preFixupHash {
		kanged.FixupHash = postFixupHash
	} else {
		kanged.FixupHash = ""
	}

	return manifest.Format(&kanged)
}
