// Package scene interprets renderer scene descriptions.
//
// A scene description is a stream of directives: camera and film
// declarations, transform edits, attribute scopes, and geometry. The
// package defines the [Directives] interface, one method per directive,
// and two implementations:
//
//   - [Builder] consumes a stream and produces a [Scene] entity graph,
//     resolving transforms, materials, media, and instance definitions.
//   - [Formatter] re-emits the stream as canonical text, optionally
//     rewriting legacy directives and parameters to their current forms.
//
// Both implementations share the nesting bookkeeping for AttributeBegin,
// TransformBegin, and ObjectBegin scopes, so a stream that drives one
// cleanly drives the other.
package scene

import (
	"golang.org/x/image/math/f64"

	"github.com/lumenray/lumen"
	"github.com/lumenray/lumen/param"
)

// Directives is implemented by consumers of a scene-description stream.
// Each method corresponds to one directive and receives the location of
// the directive in the source file. A non-nil error is fatal: the caller
// must stop feeding the stream. Recoverable problems are logged through
// [lumen.Logger] and the directive is ignored.
type Directives interface {
	// Stream structure.
	Option(name, value string, loc lumen.FileLoc) error
	WorldBegin(loc lumen.FileLoc) error
	WorldEnd(loc lumen.FileLoc) error
	AttributeBegin(loc lumen.FileLoc) error
	AttributeEnd(loc lumen.FileLoc) error
	Attribute(target string, params []*param.Parsed, loc lumen.FileLoc) error

	// Transform edits.
	Identity(loc lumen.FileLoc) error
	Translate(dx, dy, dz float64, loc lumen.FileLoc) error
	Rotate(angle, ax, ay, az float64, loc lumen.FileLoc) error
	Scale(sx, sy, sz float64, loc lumen.FileLoc) error
	LookAt(ex, ey, ez, lx, ly, lz, ux, uy, uz float64, loc lumen.FileLoc) error
	ConcatTransform(m f64.Mat4, loc lumen.FileLoc) error
	Transform(m f64.Mat4, loc lumen.FileLoc) error
	TransformBegin(loc lumen.FileLoc) error
	TransformEnd(loc lumen.FileLoc) error
	CoordinateSystem(name string, loc lumen.FileLoc) error
	CoordSysTransform(name string, loc lumen.FileLoc) error
	ActiveTransformAll(loc lumen.FileLoc) error
	ActiveTransformStartTime(loc lumen.FileLoc) error
	ActiveTransformEndTime(loc lumen.FileLoc) error
	TransformTimes(start, end float64, loc lumen.FileLoc) error

	// Pre-world configuration.
	ColorSpace(name string, loc lumen.FileLoc) error
	Camera(name string, params []*param.Parsed, loc lumen.FileLoc) error
	Film(name string, params []*param.Parsed, loc lumen.FileLoc) error
	Sampler(name string, params []*param.Parsed, loc lumen.FileLoc) error
	Filter(name string, params []*param.Parsed, loc lumen.FileLoc) error
	Integrator(name string, params []*param.Parsed, loc lumen.FileLoc) error
	Accelerator(name string, params []*param.Parsed, loc lumen.FileLoc) error

	// World content.
	Texture(name, texType, className string, params []*param.Parsed, loc lumen.FileLoc) error
	Material(name string, params []*param.Parsed, loc lumen.FileLoc) error
	MakeNamedMaterial(name string, params []*param.Parsed, loc lumen.FileLoc) error
	NamedMaterial(name string, loc lumen.FileLoc) error
	MakeNamedMedium(name string, params []*param.Parsed, loc lumen.FileLoc) error
	MediumInterface(inside, outside string, loc lumen.FileLoc) error
	LightSource(name string, params []*param.Parsed, loc lumen.FileLoc) error
	AreaLightSource(name string, params []*param.Parsed, loc lumen.FileLoc) error
	ReverseOrientation(loc lumen.FileLoc) error
	Shape(name string, params []*param.Parsed, loc lumen.FileLoc) error
	ObjectBegin(name string, loc lumen.FileLoc) error
	ObjectEnd(loc lumen.FileLoc) error
	ObjectInstance(name string, loc lumen.FileLoc) error
}

var (
	_ Directives = (*Builder)(nil)
	_ Directives = (*Formatter)(nil)
)
