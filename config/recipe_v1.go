package config

// RecipeV1 is the original flat recipe schema: a device name, the
// vendor namespace used for module ownership, and the two file paths
// the legacy `write_makefiles`-style tooling wrote to directly.
type RecipeV1 struct {
	Device       string `json:"device" yaml:"device"`
	Vendor       string `json:"vendor" yaml:"vendor"`
	AndroidBpOut string `json:"android_bp_out" yaml:"android_bp_out"`
	ProductMkOut string `json:"product_mk_out" yaml:"product_mk_out"`
}

func (r *RecipeV1) toV2() (*RecipeV2, error) {
	return &RecipeV2{
		Device:       r.Device,
		Vendor:       r.Vendor,
		AndroidBpOut: r.AndroidBpOut,
		ProductMkOut: r.ProductMkOut,
	}, nil
}
