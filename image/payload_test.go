package image

import (
	"context"
	"errors"
	"testing"

	"github.com/LineageOS/android-tools-extract-utils/tool"
)

func TestExtractPayloadFansOutPerPartition(t *testing.T) {
	r := &fakeRunner{}
	extractor := &tool.OtaExtractor{Runner: r, Path: "ota_extractor"}

	err := ExtractPayload(context.Background(), extractor, "/tmp/payload.bin", "/tmp/out", DefaultExtractPartitions)
	if err != nil {
		t.Fatalf("ExtractPayload: %v", err)
	}

	if got := r.callCount(); got != len(DefaultExtractPartitions) {
		t.Fatalf("expected %d calls, got %d", len(DefaultExtractPartitions), got)
	}
}

func TestExtractPayloadPropagatesFailure(t *testing.T) {
	r := &fakeRunner{failName: "vendor", err: errors.New("boom")}
	extractor := &tool.OtaExtractor{Runner: r, Path: "ota_extractor"}

	err := ExtractPayload(context.Background(), extractor, "/tmp/payload.bin", "/tmp/out", DefaultExtractPartitions)
	if err == nil {
		t.Fatal("expected error to propagate from a failed partition")
	}
}
