package emit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/LineageOS/android-tools-extract-utils/tool"
)

// WriteRROManifest emits the two-file RRO overlay skeleton's
// AndroidManifest.xml, ported from
// original_source/extract_utils/makefiles.py's write_androidmanifest_rro.
func WriteRROManifest(targetPackageName, partition string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<manifest xmlns:android="http://schemas.android.com/apk/res/android"
    package="%s.%s"
    android:versionCode="1"
    android:versionName="1.0">
    <application android:hasCode="false" />
    <overlay
        android:targetPackage="%s"
        android:isStatic="true"
        android:priority="0"/>
</manifest>
`, targetPackageName, partition, targetPackageName)
}

// WriteRROStanza builds the `runtime_resource_overlay` Android.bp
// stanza for the overlay module itself, ported from write_bp_rro.
func WriteRROStanza(packageName, partition string) *Stanza {
	return NewStanza("runtime_resource_overlay").
		Name(packageName).
		set("theme", bpString(packageName)).
		set("sdk_version", bpString("current")).
		set("aaptflags", bpList{items: []string{"--keep-raw-values"}}).
		PartitionSpecific(partition)
}

// WriteRROSkeleton materializes the overlay module's AndroidManifest.xml
// and Android.bp under <absPath>/<packageName>/, ported from
// write_rro_package.
func WriteRROSkeleton(absPath, packageName, targetPackageName, partition string) error {
	packagePath := filepath.Join(absPath, packageName)
	if err := os.MkdirAll(packagePath, 0755); err != nil {
		return err
	}

	manifestPath := filepath.Join(packagePath, "AndroidManifest.xml")
	if err := os.WriteFile(manifestPath, []byte(WriteRROManifest(targetPackageName, partition)), 0644); err != nil {
		return err
	}

	bpPath := filepath.Join(packagePath, "Android.bp")
	f, err := os.Create(bpPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WriteMkHeader(f); err != nil {
		return err
	}
	return WriteRROStanza(packageName, partition).WriteTo(f)
}

// CarrierSettingsPostprocessor wraps carriersettings_extractor, run over
// a pre-extracted CarrierSettings.pb blob to regenerate the per-carrier
// XML overlays that ship instead (SUPPLEMENTED FEATURE 4), ported from
// original_source/extract_utils/postprocess.py.
type CarrierSettingsPostprocessor struct {
	Tool *tool.CarrierSettingsExtractor
}

func (p *CarrierSettingsPostprocessor) Run(ctx context.Context, inputPath, outputPath string) error {
	if err := os.MkdirAll(outputPath, 0755); err != nil {
		return err
	}
	return p.Tool.Convert(ctx, inputPath, outputPath)
}
