package lumen

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// RenderOptions holds the rendering options the Option directive may mutate.
// It is passed to the scene builder at construction and threaded through
// explicitly; there is no hidden process-wide option state.
//
// The zero value is ready to use. Options may also be preloaded from a YAML
// file with LoadRenderOptions and then further adjusted by Option directives
// in the scene description.
type RenderOptions struct {
	// DisablePixelJitter forces all pixel samples to the pixel center.
	DisablePixelJitter bool `yaml:"disablepixeljitter"`

	// DisableWavelengthJitter forces all spectral samples to fixed
	// wavelengths.
	DisableWavelengthJitter bool `yaml:"disablewavelengthjitter"`

	// Seed overrides the random number seed.
	Seed int `yaml:"seed"`

	// MSEReferenceImage is the path of a reference image for MSE
	// computation.
	MSEReferenceImage string `yaml:"msereferenceimage"`

	// MSEReferenceOutput is the path MSE statistics are written to.
	MSEReferenceOutput string `yaml:"msereferenceout"`

	// ForceDiffuse replaces all materials with diffuse equivalents.
	ForceDiffuse bool `yaml:"forcediffuse"`

	// RecordPixelStatistics enables per-pixel statistics images.
	RecordPixelStatistics bool `yaml:"pixelstats"`
}

// DefaultRenderOptions returns the default rendering options.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{}
}

// LoadRenderOptions reads rendering options from a YAML file.
func LoadRenderOptions(path string) (RenderOptions, error) {
	opts := DefaultRenderOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("lumen: reading options file: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("lumen: parsing options file %q: %w", path, err)
	}
	return opts, nil
}

// normalizeOptionName lowercases an option name and strips underscores so
// that "disablePixelJitter" and "disable_pixel_jitter" both reach the same
// switch case.
func normalizeOptionName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "")
}

// parseOptionBool parses an option value that must be exactly "true" or
// "false".
func parseOptionBool(name, value string, loc FileLoc) (bool, error) {
	switch value {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("lumen: %s: %s: expected \"true\" or \"false\" for option %q", loc, value, name)
}

// parseOptionString parses an option value that must be a quoted string and
// returns its contents.
func parseOptionString(name, value string, loc FileLoc) (string, error) {
	if len(value) < 2 || value[0] != '"' || value[len(value)-1] != '"' {
		return "", fmt.Errorf("lumen: %s: %s: expected quoted string for option %q", loc, value, name)
	}
	return value[1 : len(value)-1], nil
}

// Apply applies one Option directive to the receiver. The recognized options
// form a closed set; an unknown name or a malformed value is an error, which
// the caller treats as fatal.
func (o *RenderOptions) Apply(name, value string, loc FileLoc) error {
	var err error
	switch normalizeOptionName(name) {
	case "disablepixeljitter":
		o.DisablePixelJitter, err = parseOptionBool(name, value, loc)
	case "disablewavelengthjitter":
		o.DisableWavelengthJitter, err = parseOptionBool(name, value, loc)
	case "msereferenceimage":
		o.MSEReferenceImage, err = parseOptionString(name, value, loc)
	case "msereferenceout":
		o.MSEReferenceOutput, err = parseOptionString(name, value, loc)
	case "seed":
		o.Seed, err = strconv.Atoi(value)
		if err != nil {
			err = fmt.Errorf("lumen: %s: %s: expected integer for option %q", loc, value, name)
		}
	case "forcediffuse":
		o.ForceDiffuse, err = parseOptionBool(name, value, loc)
	case "pixelstats":
		o.RecordPixelStatistics, err = parseOptionBool(name, value, loc)
	default:
		err = fmt.Errorf("lumen: %s: %s: unknown option", loc, name)
	}
	return err
}
