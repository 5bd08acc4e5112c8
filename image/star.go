package image

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	starMagic     = "SINGLE_N_LONELY"
	starEndMarker = "LONELY_N_SINGLE"
	starMagicLen  = 256
	starNameLen   = 248
	starAlignment = 4096
)

// ExtractStarArchive unpacks a custom STAR archive (a small, ad-hoc
// tar-like format some OEMs use for radio/firmware bundles) into
// outputDir, a direct port of extract_star.py's binary layout: a
// 256-byte magic header, then repeating 248-byte name + 8-byte
// little-endian length + payload + zero-padding to a 4096-byte
// boundary, terminated by a name equal to the end marker.
func ExtractStarArchive(filePath, outputDir string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	magic, err := readPaddedString(f, starMagicLen)
	if err != nil {
		return err
	}
	if magic != starMagic {
		return fmt.Errorf("%s is not a STAR archive", filePath)
	}

	for {
		name, err := readPaddedString(f, starNameLen)
		if err != nil {
			return err
		}
		if name == starEndMarker {
			return nil
		}

		var size uint64
		if err := binary.Read(f, binary.LittleEndian, &size); err != nil {
			return fmt.Errorf("read entry length for %s: %w", name, err)
		}

		if err := extractStarFile(f, name, int64(size), outputDir); err != nil {
			return err
		}

		if err := starSeekPad(f, size); err != nil {
			return err
		}
	}
}

func readPaddedString(r io.Reader, length int) (string, error) {
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return strings.TrimRight(string(buf), "\x00"), nil
}

func extractStarFile(r io.Reader, name string, length int64, outputDir string) error {
	outPath := filepath.Join(outputDir, name)
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.CopyN(out, r, length)
	return err
}

func starSeekPad(f *os.File, size uint64) error {
	pad := size % starAlignment
	if pad == 0 {
		return nil
	}
	_, err := f.Seek(int64(starAlignment-pad), io.SeekCurrent)
	return err
}

// FindStarFiles filters candidateNames down to those actually present
// under workDir, ported from extract_star_file_names's existence check.
func FindStarFiles(workDir string, candidateNames []string) []string {
	var present []string
	for _, name := range candidateNames {
		if _, err := os.Stat(filepath.Join(workDir, name)); err == nil {
			present = append(present, filepath.Join(workDir, name))
		}
	}
	return present
}
