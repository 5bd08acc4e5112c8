package config

// RecipeV2 is the current device recipe schema. Everything that can
// vary per device or per vendor tree lives here; the callback slots
// that vary per *hardware quirk* live in Hooks (see hooks.go) and are
// wired up in code, not in the config file, since they carry Go
// closures.
type RecipeV2 struct {
	// Device is the value compared against TARGET_DEVICE in the
	// generated makefile guards.
	Device string `json:"device" yaml:"device"`

	// CommonDevices lists sibling devices sharing this recipe's
	// "common" module, in addition to Device itself.
	CommonDevices []string `json:"common_devices" yaml:"common_devices"`

	// Vendor is the module owner recorded in every emitted
	// prebuilt-module stanza.
	Vendor string `json:"vendor" yaml:"vendor"`

	// AndroidBpOut and ProductMkOut are the target files that the
	// emitters append their output to.
	AndroidBpOut string `json:"android_bp_out" yaml:"android_bp_out"`
	ProductMkOut string `json:"product_mk_out" yaml:"product_mk_out"`

	// EnableCheckElf toggles ELF-based implicit packaging inference
	// and check_elf_files emission (§3, §4.D of the manifest grammar).
	EnableCheckElf bool `json:"enable_checkelf" yaml:"enable_checkelf"`

	// CacheDir is the local extraction cache root, keyed by the MD5
	// of the acquired OTA zip.
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`

	// RemoteCache optionally mirrors CacheDir to a shared S3 bucket.
	RemoteCache *RemoteCacheConfig `json:"remote_cache" yaml:"remote_cache"`

	// Webhook optionally posts a run summary after extraction completes.
	Webhook *WebhookConfig `json:"webhook" yaml:"webhook"`

	// ExtraNamespaceImports are appended to the prebuilt-module file's
	// namespace-import header, in addition to whatever a recipe's
	// VendorImports hook contributes at runtime.
	ExtraNamespaceImports []string `json:"extra_namespace_imports" yaml:"extra_namespace_imports"`

	// GeneratedSections lists manifest sections that `--regenerate`
	// rebuilds from a directory scan instead of a hand-maintained list,
	// mirroring module.py's GeneratedProprietaryFile.
	GeneratedSections []GeneratedSection `json:"generated_sections" yaml:"generated_sections"`

	// CommonRecipe optionally names a sibling recipe file for this
	// device's shared common module, the config-driven analog of
	// ExtractUtils.device_with_common's second ExtractUtilsModule.
	// --only-common loads this file in place of the device recipe.
	CommonRecipe string `json:"common_recipe" yaml:"common_recipe"`

	// FirmwareMkOut, if set, receives the AB_OTA_PARTITIONS and
	// add-radio-file-sha1-checked rules for every record resolved
	// against the firmware image (§4.I item 4). Left empty, no
	// firmware makefile is emitted.
	FirmwareMkOut string `json:"firmware_mk_out" yaml:"firmware_mk_out"`

	// FirmwareSubPath is the proprietary-tree subdirectory firmware
	// records are staged under, matching acquire.Options'
	// FirmwarePartitions entry ("radio" unless overridden).
	FirmwareSubPath string `json:"firmware_sub_path" yaml:"firmware_sub_path"`

	// CarrierSettings, if set, runs the CarrierSettings.pb
	// postprocessor and materializes its RRO overlay skeleton after
	// file copying and before makefile emission (SUPPLEMENTED FEATURE 4).
	CarrierSettings *CarrierSettingsConfig `json:"carrier_settings" yaml:"carrier_settings"`
}

// CarrierSettingsConfig points the CarrierSettings postprocessor at its
// extracted .pb source and names the runtime_resource_overlay package it
// regenerates in its place, ported from
// original_source/extract_utils/postprocess.py's carrier settings step.
type CarrierSettingsConfig struct {
	// InputDir holds the extracted CarrierSettings.pb tree, relative
	// to the acquired dump directory.
	InputDir string `json:"input_dir" yaml:"input_dir"`

	// PackageName is the RRO module name; TargetPackageName is the
	// app it overlays.
	PackageName       string `json:"package_name" yaml:"package_name"`
	TargetPackageName string `json:"target_package_name" yaml:"target_package_name"`
	Partition         string `json:"partition" yaml:"partition"`
}

func (r *RecipeV2) toV2() (*RecipeV2, error) {
	return r, nil
}

// RemoteCacheConfig describes the shared S3 bucket used to avoid
// re-extracting an OTA that a teammate already processed.
type RemoteCacheConfig struct {
	Bucket string `json:"bucket" yaml:"bucket"`
	Region string `json:"region" yaml:"region"`
	Prefix string `json:"prefix" yaml:"prefix"`
}

// GeneratedSection describes one manifest section that is rescanned from
// the resolved source tree rather than hand-maintained: every file under
// Partition matching Pattern, minus anything listed in SkipFile, becomes
// that section's content.
type GeneratedSection struct {
	Section   string `json:"section" yaml:"section"`
	Partition string `json:"partition" yaml:"partition"`
	Pattern   string `json:"pattern" yaml:"pattern"`
	SkipFile  string `json:"skip_file" yaml:"skip_file"`
}

// WebhookConfig describes the outbound run-summary notification.
type WebhookConfig struct {
	URL string `json:"url" yaml:"url"`

	// KeyID and KeyFile mirror the ES256-signing configuration shape
	// used for App Store Connect tokens: a key identifier and either
	// a path to a PKCS8 private key or an "ENV:" indirection.
	KeyID   string `json:"key_id" yaml:"key_id"`
	KeyFile string `json:"key_file" yaml:"key_file"`
	Issuer  string `json:"issuer" yaml:"issuer"`
}
