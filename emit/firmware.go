package emit

import (
	"fmt"
	"io"
	"strings"

	"github.com/LineageOS/android-tools-extract-utils/manifest"
	"github.com/LineageOS/android-tools-extract-utils/pin"
)

// WriteFirmwareABPartitions emits `AB_OTA_PARTITIONS +=` listing every
// record tagged AB, ported from write_mk_firmware_ab_partitions. It is a
// no-op when no record carries the AB tag.
func WriteFirmwareABPartitions(w io.Writer, records []*manifest.Record) error {
	var abFiles []*manifest.Record
	for _, rec := range records {
		if rec.AB() {
			abFiles = append(abFiles, rec)
		}
	}
	if len(abFiles) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("\nAB_OTA_PARTITIONS +=")
	for _, rec := range abFiles {
		fmt.Fprintf(&b, " \\\n    %s", rec.DstPath)
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteFirmwareSHA1Rules emits one `add-radio-file-sha1-checked` line per
// radio image found under vendorPath/relSubPath, ported from
// write_mk_firmware. relSubPath is typically "radio".
func WriteFirmwareSHA1Rules(w io.Writer, vendorPath, relSubPath string, records []*manifest.Record) error {
	var b strings.Builder
	for _, rec := range records {
		filePath := fmt.Sprintf("%s/%s/%s", vendorPath, relSubPath, rec.DstPath)
		hash, err := pin.FileSHA1(filePath)
		if err != nil {
			return fmt.Errorf("hash firmware file %s: %w", filePath, err)
		}
		fmt.Fprintf(&b, "\n$(call add-radio-file-sha1-checked,%s/%s,%s)", relSubPath, rec.DstPath, hash)
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteMkHeader writes the shared "Automatically generated file" banner
// used at the top of every emitted makefile.
func WriteMkHeader(w io.Writer) error {
	_, err := io.WriteString(w, "#\n# Automatically generated file. DO NOT MODIFY\n#\n")
	return err
}
