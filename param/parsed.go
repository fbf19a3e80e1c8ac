// Package param holds the parsed scene-description parameters the external
// parser produces and the typed dictionaries the interpreter consumes.
//
// A Parsed value is one raw "type name" [ values ] parameter as it appears
// in the input. A Dictionary layers parameters over attribute overrides and
// provides typed lookup; values the interpreter does not understand are
// stored opaquely for downstream collaborators (material and texture
// construction, spectra).
package param

import (
	"strconv"
	"strings"

	"github.com/lumenray/lumen"
)

// Parameter value types as they appear in scene descriptions.
const (
	TypeFloat     = "float"
	TypeInteger   = "integer"
	TypeString    = "string"
	TypeBool      = "bool"
	TypePoint2    = "point2"
	TypePoint3    = "point3"
	TypeVector2   = "vector2"
	TypeVector3   = "vector3"
	TypeNormal    = "normal"
	TypeSpectrum  = "spectrum"
	TypeRGB       = "rgb"
	TypeBlackbody = "blackbody"
	TypeTexture   = "texture"
	// TypeColor is the legacy spelling of "rgb"; the re-emitter's upgrade
	// mode rewrites it.
	TypeColor = "color"
)

// Parsed is a single raw parameter: a declared type, a name, and the value
// payload in whichever slice matches the type. Numeric payloads (float,
// integer, point, rgb, ...) all live in Numbers.
type Parsed struct {
	Type string
	Name string

	Numbers []float64
	Strings []string
	Bools   []bool

	Loc lumen.FileLoc

	// MayBeUnused suppresses the unused-parameter warning; attribute
	// overrides set it since they apply to many entities, most of which
	// ignore them.
	MayBeUnused bool

	// ColorSpace is the color space active when the parameter was parsed.
	ColorSpace *ColorSpace

	lookedUp bool
}

// isSpectrumType reports whether a declared type describes a spectral or
// color quantity.
func isSpectrumType(t string) bool {
	switch t {
	case TypeSpectrum, TypeRGB, TypeColor, TypeBlackbody:
		return true
	}
	return false
}

// appendValues writes the parameter's values in textual form.
func (p *Parsed) appendValues(sb *strings.Builder) {
	switch {
	case len(p.Numbers) > 0:
		for i, v := range p.Numbers {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
	case len(p.Strings) > 0:
		for i, s := range p.Strings {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteByte('"')
			sb.WriteString(s)
			sb.WriteByte('"')
		}
	case len(p.Bools) > 0:
		for i, b := range p.Bools {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.FormatBool(b))
		}
	}
}

// Definition returns the parameter in its canonical `"type name" [ values ]`
// textual form.
func (p *Parsed) Definition() string {
	var sb strings.Builder
	sb.WriteByte('"')
	sb.WriteString(p.Type)
	sb.WriteByte(' ')
	sb.WriteString(p.Name)
	sb.WriteString(`" [ `)
	p.appendValues(&sb)
	sb.WriteString(" ]")
	return sb.String()
}
