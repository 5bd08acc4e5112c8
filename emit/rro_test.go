package emit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteRROManifest(t *testing.T) {
	out := WriteRROManifest("com.android.overlay", "vendor")
	if !strings.Contains(out, `package="com.android.overlay.vendor"`) {
		t.Errorf("unexpected manifest: %s", out)
	}
	if !strings.HasPrefix(out, `<?xml version="1.0"`) {
		t.Errorf("expected xml declaration first, got %s", out)
	}
}

func TestWriteRROStanza(t *testing.T) {
	s := WriteRROStanza("FooOverlay", "vendor")
	out := s.String()
	if !strings.HasPrefix(out, "runtime_resource_overlay {") {
		t.Errorf("unexpected rule: %s", out)
	}
	if !strings.Contains(out, `theme: "FooOverlay",`) {
		t.Errorf("missing theme: %s", out)
	}
	if !strings.Contains(out, "soc_specific: true,") {
		t.Errorf("expected vendor to map to soc_specific: %s", out)
	}
}

func TestWriteRROSkeleton(t *testing.T) {
	dir := t.TempDir()
	if err := WriteRROSkeleton(dir, "FooOverlay", "com.android.foo", "product"); err != nil {
		t.Fatal(err)
	}

	manifestPath := filepath.Join(dir, "FooOverlay", "AndroidManifest.xml")
	if _, err := os.Stat(manifestPath); err != nil {
		t.Fatalf("expected manifest at %s: %v", manifestPath, err)
	}
	bpPath := filepath.Join(dir, "FooOverlay", "Android.bp")
	data, err := os.ReadFile(bpPath)
	if err != nil {
		t.Fatalf("expected bp at %s: %v", bpPath, err)
	}
	if !strings.Contains(string(data), "runtime_resource_overlay") {
		t.Errorf("unexpected bp contents: %s", data)
	}
}
