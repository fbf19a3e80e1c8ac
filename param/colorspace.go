package param

// ColorSpace identifies the RGB color space parameter values are expressed
// in. The interpreter only tracks the association; colorimetry itself is a
// collaborator concern.
type ColorSpace struct {
	name string
}

// Name returns the color space's canonical name.
func (c *ColorSpace) Name() string { return c.name }

// The supported color spaces.
var (
	SRGB    = &ColorSpace{name: "srgb"}
	Rec2020 = &ColorSpace{name: "rec2020"}
	ACES    = &ColorSpace{name: "aces2065-1"}
	DCIP3   = &ColorSpace{name: "dci-p3"}
)

var colorSpaces = map[string]*ColorSpace{
	SRGB.name:    SRGB,
	Rec2020.name: Rec2020,
	ACES.name:    ACES,
	DCIP3.name:   DCIP3,
}

// NamedColorSpace looks up a color space by name. It returns nil if the
// name is unknown.
func NamedColorSpace(name string) *ColorSpace {
	return colorSpaces[name]
}
