package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/LineageOS/android-tools-extract-utils/acquire"
	"github.com/LineageOS/android-tools-extract-utils/classify"
	"github.com/LineageOS/android-tools-extract-utils/config"
	"github.com/LineageOS/android-tools-extract-utils/emit"
	"github.com/LineageOS/android-tools-extract-utils/fixup"
	"github.com/LineageOS/android-tools-extract-utils/image"
	"github.com/LineageOS/android-tools-extract-utils/manifest"
	"github.com/LineageOS/android-tools-extract-utils/pin"
	"github.com/LineageOS/android-tools-extract-utils/resolve"
	"github.com/LineageOS/android-tools-extract-utils/tool"
	"github.com/rs/zerolog"
)

// RunOptions carries the CLI surface (§6) into the pipeline, kept
// independent of cobra so it can be unit-tested without a *cobra.Command.
type RunOptions struct {
	ListFile string
	Source   string

	Section    string
	Kang       bool
	NoCleanup  bool
	KeepDump   bool
	Regenerate bool
	// RegenMakefiles is accepted for CLI compatibility; Run always
	// rewrites Android.bp/the product makefile from scratch, so this
	// flag has no separate effect.
	RegenMakefiles bool
	Legacy     bool
	OnlyCommon bool
	// OnlyTarget is accepted for CLI compatibility with --only-common's
	// mutually-exclusive pair; running against the device recipe (rather
	// than recipe.CommonRecipe) is already Run's default behavior.
	OnlyTarget bool
}

// isFirmwareRecord reports whether rec's destination falls under one of
// the firmware partitions extracted separately by acquire.Options
// (§4.C), the Go analog of the original's FirmwareProprietaryFile list
// type: a firmware blob is resolved against the extracted firmware
// image rather than the system source tree.
func isFirmwareRecord(rec *manifest.Record, firmwarePartitions []string) bool {
	for _, p := range firmwarePartitions {
		if rec.DstPath == p || strings.HasPrefix(rec.DstPath, p+"/") {
			return true
		}
	}
	return false
}

func androidRoot() string {
	if root := os.Getenv("ANDROID_BUILD_TOP"); root != "" {
		return root
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func buildTools(root string) *acquire.Tools {
	paths := tool.NewPaths(root)
	runner := tool.NewRunner()

	return &acquire.Tools{
		Simg2Img:     &tool.Simg2Img{Runner: runner, Path: paths.Simg2Img()},
		Lpunpack:     &tool.Lpunpack{Runner: runner, Path: paths.Lpunpack()},
		Brotli:       &tool.Brotli{Runner: runner, Path: paths.Brotli()},
		Sdat2Img:     &tool.Sdat2Img{Runner: runner, Path: "sdat2img"},
		Fsck:         &tool.Fsck{Runner: runner},
		Debugfs:      &tool.Debugfs{Runner: runner},
		OtaExtractor: &tool.OtaExtractor{Runner: runner, Path: paths.OtaExtractor()},
	}
}

// extractHooks wires the two device-specific ExtractFns
// (SUPPLEMENTED FEATURE 6): the STAR archive format and Pixel firmware
// images layered on top of the built-in probe chain.
func extractHooks(root string) []acquire.ExtractFn {
	runner := tool.NewRunner()
	paths := tool.NewPaths(root)
	fbpacktool := &tool.FbPackTool{Runner: runner, ScriptPath: paths.FbPackTool()}

	return []acquire.ExtractFn{
		func(_ context.Context, dumpDir string) error {
			for _, starPath := range image.FindStarFiles(dumpDir, nil) {
				if err := image.ExtractStarArchive(starPath, dumpDir); err != nil {
					return fmt.Errorf("extract star archive %s: %w", starPath, err)
				}
			}
			return nil
		},
		func(ctx context.Context, dumpDir string) error {
			radioPath := filepath.Join(dumpDir, "radio.img")
			if _, err := os.Stat(radioPath); err != nil {
				return nil
			}
			return image.ExtractPixelFirmware(ctx, fbpacktool, radioPath, filepath.Join(dumpDir, "radio"))
		},
	}
}

// Run executes one full extraction pass: acquire the source into a dump
// directory, parse the manifest, resolve/fixup/pin/classify every
// packaged record, emit the vendor tree's build files, and (unless
// --keep-dump) tear the dump directory back down, mirroring
// original_source/extract_utils/main.py's ExtractUtils.run.
func Run(ctx context.Context, r *config.RecipeV2, hooks *config.Hooks, opts RunOptions, logger zerolog.Logger) error {
	if opts.Legacy {
		return fmt.Errorf("legacy Android.mk generation is not supported, use Android.bp")
	}
	// --only-common/--only-target split a device's target module from its
	// shared common module by pointing at two separate recipe/list-file
	// pairs, the same way device_with_common builds two distinct
	// ExtractUtilsModule objects rather than branching within one run; the
	// caller's wrapper invokes this binary once per module.
	if opts.OnlyCommon && r.CommonRecipe == "" {
		return fmt.Errorf("--only-common requires recipe.common_recipe to name the common module's recipe file")
	}

	root := androidRoot()
	tools := buildTools(root)
	firmwarePartitions := []string{"radio"}

	var cache *acquire.DumpCache
	if r.CacheDir != "" {
		cache = &acquire.DumpCache{Root: r.CacheDir}
	}

	var remote *acquire.RemoteCache
	if r.RemoteCache != nil {
		var err error
		remote, err = acquire.NewRemoteCache(ctx, r.RemoteCache.Bucket, r.RemoteCache.Region, r.RemoteCache.Prefix, logger)
		if err != nil {
			return fmt.Errorf("configure remote cache: %w", err)
		}
	}

	acquireResult, err := acquire.Acquire(ctx, tools, cache, remote, acquire.Options{
		Source:             opts.Source,
		ExtractPartitions:  image.DefaultExtractPartitions,
		FirmwarePartitions: firmwarePartitions,
		ExtractFns:         extractHooks(root),
	}, logger)
	if err != nil {
		return fmt.Errorf("acquire source: %w", err)
	}
	dumpDir := acquireResult.DumpDir
	logger.Info().Str("dump_dir", dumpDir).Bool("reused", acquireResult.Reused).Msg("source acquired")

	if !opts.KeepDump && !acquireResult.Reused && cache == nil {
		defer os.RemoveAll(dumpDir)
	}

	src := resolve.NewDiskSource(dumpDir)

	listFile, err := os.Open(opts.ListFile)
	if err != nil {
		return fmt.Errorf("open manifest %s: %w", opts.ListFile, err)
	}
	records, err := manifest.Parse(listFile, manifest.ParseOptions{
		Section:        opts.Section,
		EnableCheckELF: r.EnableCheckElf,
		Kang:           opts.Kang,
	})
	listFile.Close()
	if err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	if opts.Regenerate {
		if err := regenerateSections(ctx, src, r, opts.ListFile); err != nil {
			return fmt.Errorf("regenerate manifest sections: %w", err)
		}
	}

	vendorOutRoot := filepath.Dir(r.AndroidBpOut)
	if !opts.NoCleanup && opts.Section == "" {
		backup, err := acquire.NewPinBackup()
		if err != nil {
			return fmt.Errorf("create pin backup dir: %w", err)
		}
		defer backup.Close()

		for _, rec := range records {
			if err := backup.Save(rec, filepath.Join(vendorOutRoot, "proprietary", rec.DstPath)); err != nil {
				logger.Warn().Err(err).Str("blob", rec.Basename()).Msg("failed to back up pinned blob before cleanup")
			}
		}
		if err := os.RemoveAll(filepath.Join(vendorOutRoot, "proprietary")); err != nil {
			return fmt.Errorf("clean vendor output: %w", err)
		}
	}

	resolver := &resolve.Resolver{Source: src, OutDir: filepath.Join(vendorOutRoot, "proprietary")}

	fixupDeps := &fixup.Deps{
		Soname: &fixup.SonameFixer{Patchelf: &tool.Patchelf{Runner: tool.NewRunner(), Path: tool.NewPaths(root).Patchelf("")}},
		Hooks:  hooks,
	}

	libs := classify.NewLibrarySet()
	for _, rec := range records {
		if !rec.Packaged {
			continue
		}
		libs.Add(rec)
	}

	var (
		stanzas        []*emit.Stanza
		fixedUpBlobs   []string
		hashMismatches []string
	)
	// sharedLibStanzas groups a SHARED_LIBRARIES module's lib/ and lib64/
	// records by their emitted module name, so both collapse into the
	// single stanza (with two target: sub-blocks) that classify.LibrarySet's
	// "both" ABI bucket implies, instead of two colliding module definitions.
	sharedLibStanzas := map[string]*emit.Stanza{}

	for _, rec := range records {
		blobLogger := logger.With().Str("blob", rec.Basename()).Logger()

		filePath, err := resolver.Resolve(ctx, rec, isFirmwareRecord(rec, firmwarePartitions))
		if err != nil {
			blobLogger.Warn().Err(err).Msg("blob not found in source, skipping")
			continue
		}

		hash, err := pin.FileSHA1(filePath)
		if err != nil {
			return fmt.Errorf("hash %s: %w", rec.Basename(), err)
		}
		if rec.Pinned() && pin.Evaluate(rec, hash) == pin.DecisionMismatch {
			hashMismatches = append(hashMismatches, rec.Basename())
			blobLogger.Warn().Msg("pinned hash mismatch")
		}

		result, err := fixup.Run(ctx, fixupDeps, rec, filePath, blobLogger)
		if err != nil {
			return fmt.Errorf("fixup %s: %w", rec.Basename(), err)
		}
		if result.FixedUp {
			fixedUpBlobs = append(fixedUpBlobs, rec.Basename())
		}
		if err := pin.VerifyPostFixup(rec, result.PostFixupHash); err != nil {
			blobLogger.Warn().Err(err).Msg("post-fixup hash verification")
		}

		if !rec.Packaged {
			continue
		}

		elfInfo, _ := fixup.ProbeELF(filePath)
		bucket := classify.Classify(rec, filePath, libs)

		if bucket.Class == classify.ClassSharedLibraries {
			name := emit.StanzaName(rec)
			if existing, ok := sharedLibStanzas[name]; ok {
				emit.MergeSharedLibraryTarget(existing, elfInfo.Target, emit.RelPath(rec, bucket.Partition), elfInfo.Needed, bucket.Partition, rec.Basename(), hooks.OrLibToPackageFixup)
			} else {
				stanza := emit.BuildStanza(bucket, r.Vendor, elfInfo.Target, elfInfo.Needed, hooks.OrLibToPackageFixup)
				sharedLibStanzas[name] = stanza
				stanzas = append(stanzas, stanza)
			}
		} else {
			stanza := emit.BuildStanza(bucket, r.Vendor, elfInfo.Target, elfInfo.Needed, hooks.OrLibToPackageFixup)
			stanzas = append(stanzas, stanza)
		}
		stanzas = append(stanzas, emit.BuildSymlinkStanzas(rec, bucket.Partition)...)
	}

	emit.SortStanzas(stanzas)

	if r.CarrierSettings != nil {
		if err := runCarrierSettings(ctx, root, dumpDir, vendorOutRoot, r.CarrierSettings); err != nil {
			return fmt.Errorf("run carrier settings postprocessor: %w", err)
		}
	}

	if err := writeAndroidBp(r, hooks, stanzas); err != nil {
		return fmt.Errorf("write Android.bp: %w", err)
	}
	if err := writeProductMk(r, records); err != nil {
		return fmt.Errorf("write product makefile: %w", err)
	}
	if r.FirmwareMkOut != "" {
		if err := writeFirmwareMk(r, records, vendorOutRoot); err != nil {
			return fmt.Errorf("write firmware makefile: %w", err)
		}
	}

	if r.Webhook != nil {
		client := &emit.WebhookClient{Config: r.Webhook, Auth: config.NewWebhookAuth(r.Webhook)}
		summary := &emit.RunSummary{
			Device:         r.Device,
			RecordCount:    len(records),
			FixedUpBlobs:   fixedUpBlobs,
			HashMismatches: hashMismatches,
			KangMode:       opts.Kang,
			Success:        len(hashMismatches) == 0,
		}
		if err := client.Post(ctx, summary); err != nil {
			logger.Warn().Err(err).Msg("failed to post run summary webhook")
		}
	}

	return nil
}

func regenerateSections(ctx context.Context, src resolve.Source, r *config.RecipeV2, listFile string) error {
	for _, section := range r.GeneratedSections {
		var skip []string
		if section.SkipFile != "" {
			data, err := os.ReadFile(section.SkipFile)
			if err != nil {
				return fmt.Errorf("read skip list for section %s: %w", section.Section, err)
			}
			skip = manifest.ParseSkipList(splitLines(string(data)))
		}

		specs, err := resolve.FindSubDirFiles(ctx, src, section.Partition, section.Pattern, skip)
		if err != nil {
			return fmt.Errorf("regenerate section %s: %w", section.Section, err)
		}

		if err := manifest.RewriteSection(listFile, section.Section, specs); err != nil {
			return err
		}
	}
	return nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func writeAndroidBp(r *config.RecipeV2, hooks *config.Hooks, stanzas []*emit.Stanza) error {
	f, err := os.Create(r.AndroidBpOut)
	if err != nil {
		return err
	}
	defer f.Close()

	imports := append([]string{}, r.ExtraNamespaceImports...)
	imports = append(imports, hooks.OrVendorImports()...)

	if _, err := f.WriteString(emit.Header(r.Vendor, imports)); err != nil {
		return err
	}
	for _, s := range stanzas {
		if err := s.WriteTo(f); err != nil {
			return err
		}
	}
	return nil
}

// runCarrierSettings regenerates the per-carrier XML overlays from a
// pre-extracted CarrierSettings.pb blob and materializes the RRO
// overlay's Android.bp/AndroidManifest.xml skeleton, run after file
// copying and before makefile emission (SUPPLEMENTED FEATURE 4).
func runCarrierSettings(ctx context.Context, root, dumpDir, vendorOutRoot string, cs *config.CarrierSettingsConfig) error {
	extractor := &tool.CarrierSettingsExtractor{
		Runner:     tool.NewRunner(),
		ScriptPath: tool.NewPaths(root).CarrierSettingsExtractor(),
	}
	post := &emit.CarrierSettingsPostprocessor{Tool: extractor}

	overlayRoot := filepath.Join(vendorOutRoot, "rro_overlays")
	if err := post.Run(ctx, filepath.Join(dumpDir, cs.InputDir), filepath.Join(overlayRoot, cs.PackageName)); err != nil {
		return err
	}
	return emit.WriteRROSkeleton(overlayRoot, cs.PackageName, cs.TargetPackageName, cs.Partition)
}

// writeFirmwareMk emits the firmware makefile fragment (§4.I item 4):
// AB_OTA_PARTITIONS for every AB-tagged record, and one
// add-radio-file-sha1-checked line per record staged under the firmware
// sub-path, ported from write_mk_firmware/write_mk_firmware_ab_partitions.
func writeFirmwareMk(r *config.RecipeV2, records []*manifest.Record, vendorOutRoot string) error {
	f, err := os.Create(r.FirmwareMkOut)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := emit.WriteMkHeader(f); err != nil {
		return err
	}
	if err := emit.WriteFirmwareABPartitions(f, records); err != nil {
		return err
	}

	subPath := r.FirmwareSubPath
	if subPath == "" {
		subPath = "radio"
	}

	var firmwareRecords []*manifest.Record
	for _, rec := range records {
		if !isFirmwareRecord(rec, []string{subPath}) {
			continue
		}
		stripped := *rec
		stripped.DstPath = strings.TrimPrefix(strings.TrimPrefix(rec.DstPath, subPath+"/"), subPath)
		firmwareRecords = append(firmwareRecords, &stripped)
	}

	return emit.WriteFirmwareSHA1Rules(f, filepath.Join(vendorOutRoot, "proprietary"), subPath, firmwareRecords)
}

func writeProductMk(r *config.RecipeV2, records []*manifest.Record) error {
	f, err := os.Create(r.ProductMkOut)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := emit.WriteMkHeader(f); err != nil {
		return err
	}

	nonPackaged := make([]*manifest.Record, 0, len(records))
	var names []string
	required := make(map[string]bool)
	for _, rec := range records {
		for _, req := range rec.Required() {
			required[req] = true
		}
		// A MAKE_COPY_RULE= record is forced into PRODUCT_COPY_FILES even
		// though it is packaged, in addition to its usual PRODUCT_PACKAGES
		// entry (file.py's is_package/MAKE_COPY_RULE selection).
		if !rec.Packaged || rec.MakeCopyRule() {
			nonPackaged = append(nonPackaged, rec)
		}
		if !rec.Packaged {
			continue
		}
		if mod, ok := rec.Module(); ok {
			names = append(names, mod)
		} else {
			names = append(names, rec.Basename())
		}
	}

	kept := names[:0]
	for _, name := range names {
		if !required[name] {
			kept = append(kept, name)
		}
	}
	names = kept
	sort.Strings(names)

	if err := emit.WriteProductCopyFiles(f, "proprietary", nonPackaged, classify.Partition); err != nil {
		return err
	}
	return emit.WritePackagesInclusion(f, names)
}
