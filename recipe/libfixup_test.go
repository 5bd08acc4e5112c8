package recipe

import "testing"

func TestRemoveArchSuffix(t *testing.T) {
	cases := []struct{ in, want string }{
		{"libclang_rt.ubsan_standalone-arm-android", "libclang_rt.ubsan_standalone"},
		{"libclang_rt.ubsan_standalone-aarch64-android", "libclang_rt.ubsan_standalone"},
		{"libfoo", "libfoo"},
	}
	for _, c := range cases {
		got, ok := RemoveArchSuffix(c.in, "vendor")
		if !ok {
			t.Fatalf("RemoveArchSuffix(%s) reported drop", c.in)
		}
		if got != c.want {
			t.Errorf("RemoveArchSuffix(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestVendorCompat(t *testing.T) {
	got, ok := VendorCompat("libprotobuf-cpp-lite-3.9.1", "vendor")
	if !ok || got != "libprotobuf-cpp-lite-3.9.1-vendorcompat" {
		t.Fatalf("VendorCompat = %s, %v", got, ok)
	}
}

func TestRemoveProtoVersionSuffix(t *testing.T) {
	got, ok := RemoveProtoVersionSuffix("libprotobuf-cpp-lite-21.12", "vendor")
	if !ok || got != "libprotobuf-cpp-lite" {
		t.Fatalf("RemoveProtoVersionSuffix = %s, %v", got, ok)
	}
}

func TestRemoveLib(t *testing.T) {
	got, ok := RemoveLib("libfoo", "vendor")
	if ok || got != "" {
		t.Fatalf("RemoveLib = %s, %v, want dropped", got, ok)
	}
}

func TestLibToPackageFixupBuiltinTable(t *testing.T) {
	got, ok := LibToPackageFixup("libclang_rt.ubsan_standalone-aarch64-android", "vendor", "somefile.so")
	if !ok || got != "libclang_rt.ubsan_standalone" {
		t.Fatalf("LibToPackageFixup = %s, %v", got, ok)
	}
}

func TestLibToPackageFixupPassesThroughUnknown(t *testing.T) {
	got, ok := LibToPackageFixup("libunrelated", "vendor", "somefile.so")
	if !ok || got != "libunrelated" {
		t.Fatalf("LibToPackageFixup(unknown) = %s, %v, want pass-through", got, ok)
	}
}
