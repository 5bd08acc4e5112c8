package config

// Hooks is the Recipe Hook Surface (§4.J): four typed callback slots a
// device recipe can override. It is a plain value threaded explicitly
// through the extraction run — never package-level state — so that
// nothing needs to reach back into a global to find out how a
// particular device wants a blob handled.
//
// A nil field means "use the built-in no-op / pass-through behavior";
// callers should use the Or* accessors rather than calling a field
// directly, since most recipes only override one or two slots.
type Hooks struct {
	// BlobFixupDry decides, before any per-blob editing runs, whether
	// name should be edited at all.
	BlobFixupDry func(name string) (accept bool)

	// BlobFixup performs device-specific editing of the blob at path.
	BlobFixup func(name, path string) error

	// VendorImports appends extra `imports { ... }` entries to the
	// namespace-import header of the generated prebuilt-module file.
	VendorImports func() []string

	// LibToPackageFixup rewrites a shared-library dependency name into
	// the package name that should appear in a `shared_libs`/`static_libs`
	// list. ok is false when the dependency should be dropped entirely.
	LibToPackageFixup func(lib, partition, filename string) (pkg string, ok bool)
}

func (h *Hooks) OrBlobFixupDry(name string) bool {
	if h == nil || h.BlobFixupDry == nil {
		return true
	}
	return h.BlobFixupDry(name)
}

func (h *Hooks) OrBlobFixup(name, path string) error {
	if h == nil || h.BlobFixup == nil {
		return nil
	}
	return h.BlobFixup(name, path)
}

func (h *Hooks) OrVendorImports() []string {
	if h == nil || h.VendorImports == nil {
		return nil
	}
	return h.VendorImports()
}

func (h *Hooks) OrLibToPackageFixup(lib, partition, filename string) (string, bool) {
	if h == nil || h.LibToPackageFixup == nil {
		return lib, true
	}
	return h.LibToPackageFixup(lib, partition, filename)
}
