package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"
)

type ConfigFormat uint8

const (
	ConfigFormatJSON ConfigFormat = iota
	ConfigFormatYAML
)

func (format ConfigFormat) decode(src io.Reader, dst any) error {
	switch format {
	case ConfigFormatJSON:
		return json.NewDecoder(src).Decode(dst)

	case ConfigFormatYAML:
		return yaml.NewDecoder(src).Decode(dst)

	default:
		return errors.New("unsupported config format")
	}
}

var ErrUnsupportedVersion = errors.New("unsupported recipe config version")

// recipe is implemented by every on-disk recipe schema version; the
// loader normalizes any of them into a RecipeV2 before returning.
type recipe interface {
	toV2() (*RecipeV2, error)
}

type recipeVersion struct {
	RecipeVersion int `json:"recipe_version" yaml:"recipe_version"`
}

func (ver *recipeVersion) getTargetType() (recipe, error) {
	switch ver.RecipeVersion {
	case 0, 1:
		return new(RecipeV1), nil

	case 2:
		return new(RecipeV2), nil

	default:
		return nil, ErrUnsupportedVersion
	}
}

// LoadRecipeFromFile reads a device recipe from srcFile, sniffing its
// schema version before decoding the full document, and upgrades it to
// the current RecipeV2 shape.
func LoadRecipeFromFile(srcFile string, format ConfigFormat) (*RecipeV2, error) {
	src, err := os.OpenFile(srcFile, os.O_RDONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open recipe file: %w", err)
	}
	defer src.Close()

	var ver recipeVersion
	if err = format.decode(src, &ver); err != nil {
		return nil, fmt.Errorf("decode recipe version: %w", err)
	} else if _, err = src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to start of recipe: %w", err)
	}

	target, err := ver.getTargetType()
	if err != nil {
		return nil, err
	} else if err = format.decode(src, target); err != nil {
		return nil, fmt.Errorf("decode recipe file: %w", err)
	}

	return target.toV2()
}
