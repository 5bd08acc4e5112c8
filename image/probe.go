// Package image implements the Image Probe & Extractor (§4.B): magic-byte
// container-format sniffing and the per-format subprocess extraction
// chain that unpacks a factory image dump into the canonical tree.
package image

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Format identifies one on-disk container type recognized inside a dump
// directory, grounded on original_source/extract_utils/extract.py's
// find_*_paths magic-byte probes.
type Format int

const (
	FormatUnknown Format = iota
	FormatABPayload
	FormatSparseRaw
	FormatSuperImg
	FormatBrotli
	FormatSparseData
	FormatEROFS
	FormatEXT4
)

var (
	sparseRawMagic = []byte{0x3A, 0xFF, 0x26, 0xED}
	erofsMagic     = []byte{0xE2, 0xE1, 0xF5, 0xE0}
	ext4Magic      = []byte{0x53, 0xEF}
	payloadMagic   = []byte("CrAU")
)

const (
	brotliExt     = ".new.dat.br"
	sparseDataExt = ".new.dat"
)

// magicProbe is one entry of a fixed magic-constant probe table, the
// same shape other_examples/CircleCashTeam-magiskboot_go/format.go uses
// for its own boot-image header dispatch.
type magicProbe struct {
	format Format
	magic  []byte
	offset int64
}

var magicProbes = []magicProbe{
	{FormatABPayload, payloadMagic, 0},
	{FormatSparseRaw, sparseRawMagic, 0},
	{FormatEROFS, erofsMagic, 1024},
	{FormatEXT4, ext4Magic, 1080},
}

// ProbeFile reads just enough of path to classify it against the fixed
// magic table, plus the .new.dat(.br) extension checks that aren't
// magic-byte based.
func ProbeFile(path string) (Format, error) {
	base := filepath.Base(path)
	switch {
	case strings.HasSuffix(base, brotliExt):
		return FormatBrotli, nil
	case strings.HasSuffix(base, sparseDataExt):
		return FormatSparseData, nil
	case base == "super.img":
		return FormatSuperImg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()

	for _, p := range magicProbes {
		buf := make([]byte, len(p.magic))
		n, err := f.ReadAt(buf, p.offset)
		if err != nil || n != len(buf) {
			continue
		}
		if string(buf) == string(p.magic) {
			return p.format, nil
		}
	}

	return FormatUnknown, nil
}

// FindFilesWithFormat scans dir (non-recursively) for regular files
// matching format, restricted to names in allowedPartitions when it is
// non-nil (extract_partitions filtering from is_extract_partition_file_name).
func FindFilesWithFormat(dir string, format Format, allowedPartitions []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !isExtractPartitionFileName(allowedPartitions, e.Name()) {
			continue
		}

		full := filepath.Join(dir, e.Name())
		f, err := ProbeFile(full)
		if err != nil || f != format {
			continue
		}
		matches = append(matches, full)
	}

	sort.Strings(matches)
	return matches, nil
}

func isExtractPartitionFileName(allowed []string, name string) bool {
	if allowed == nil {
		return true
	}
	for _, p := range allowed {
		if name == p {
			return true
		}
	}
	root, _, ok := strings.Cut(name, ".")
	if !ok {
		return false
	}
	for _, p := range allowed {
		if root == p {
			return true
		}
	}
	return false
}

// FindPayloadPath locates a payload.bin anywhere directly under dir by
// its 'CrAU' magic, mirroring find_payload_path (unrestricted by
// partition name, unlike the other Find* helpers).
func FindPayloadPath(dir string) (string, error) {
	matches, err := FindFilesWithFormat(dir, FormatABPayload, nil)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}
	return matches[0], nil
}

// FindSuperImgPath returns dir/super.img if it exists.
func FindSuperImgPath(dir string) (string, error) {
	p := filepath.Join(dir, "super.img")
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		return p, nil
	}
	return "", nil
}

// IsOTAZip reports whether path is a zip archive, the top-level
// container format factory images and OTA packages both ship as
// (shutil.unpack_archive in extract_image).
func IsOTAZip(path string) bool {
	r, err := zip.OpenReader(path)
	if err != nil {
		return false
	}
	defer r.Close()
	return true
}
