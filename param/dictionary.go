package param

import (
	"strings"

	"github.com/lumenray/lumen"
)

// Dictionary provides typed name→value lookup over a set of parsed
// parameters plus any attribute-override parameters active when the owning
// directive ran. Direct parameters shadow attribute overrides.
//
// Dictionaries are value types; Clone produces a copy whose slices are
// independent of the original.
type Dictionary struct {
	params     []*Parsed
	attributes []*Parsed
	colorSpace *ColorSpace
}

// NewDictionary builds a dictionary from directive parameters and a color
// space.
func NewDictionary(params []*Parsed, cs *ColorSpace) Dictionary {
	return Dictionary{params: params, colorSpace: cs}
}

// NewDictionaryWithAttributes builds a dictionary whose lookups fall back to
// attribute-override parameters when a name is not among the directive's own
// parameters.
func NewDictionaryWithAttributes(params, attributes []*Parsed, cs *ColorSpace) Dictionary {
	return Dictionary{params: params, attributes: attributes, colorSpace: cs}
}

// Clone returns a copy of the dictionary with freshly allocated parameter
// slices, so appends to one copy never alias the other.
func (d Dictionary) Clone() Dictionary {
	c := d
	c.params = append([]*Parsed(nil), d.params...)
	c.attributes = append([]*Parsed(nil), d.attributes...)
	return c
}

// ColorSpace returns the color space associated with the dictionary.
func (d Dictionary) ColorSpace() *ColorSpace {
	return d.colorSpace
}

// Parameters returns the dictionary's own parameters (not the attribute
// fallbacks) in input order.
func (d Dictionary) Parameters() []*Parsed {
	return d.params
}

// find returns the first parameter named name whose declared type is one of
// types (any type if types is empty), searching direct parameters before
// attribute overrides. The parameter is marked as looked up.
func (d Dictionary) find(name string, types ...string) *Parsed {
	match := func(p *Parsed) bool {
		if p.Name != name {
			return false
		}
		if len(types) == 0 {
			return true
		}
		for _, t := range types {
			if p.Type == t {
				return true
			}
		}
		return false
	}
	for _, p := range d.params {
		if match(p) {
			p.lookedUp = true
			return p
		}
	}
	for _, p := range d.attributes {
		if match(p) {
			p.lookedUp = true
			return p
		}
	}
	return nil
}

// Loc returns the source location of the named parameter, or the zero
// location if it is absent.
func (d Dictionary) Loc(name string) lumen.FileLoc {
	if p := d.find(name); p != nil {
		return p.Loc
	}
	return lumen.FileLoc{}
}

// GetOneFloat returns the first value of the named float parameter, or def
// if it is absent or empty.
func (d Dictionary) GetOneFloat(name string, def float64) float64 {
	if p := d.find(name, TypeFloat); p != nil && len(p.Numbers) > 0 {
		return p.Numbers[0]
	}
	return def
}

// GetOneInt returns the first value of the named integer parameter, or def.
func (d Dictionary) GetOneInt(name string, def int) int {
	if p := d.find(name, TypeInteger); p != nil && len(p.Numbers) > 0 {
		return int(p.Numbers[0])
	}
	return def
}

// GetOneString returns the first value of the named string parameter, or
// def.
func (d Dictionary) GetOneString(name, def string) string {
	if p := d.find(name, TypeString); p != nil && len(p.Strings) > 0 {
		return p.Strings[0]
	}
	return def
}

// GetOneBool returns the first value of the named bool parameter, or def.
func (d Dictionary) GetOneBool(name string, def bool) bool {
	if p := d.find(name, TypeBool); p != nil && len(p.Bools) > 0 {
		return p.Bools[0]
	}
	return def
}

// GetFloatArray returns all values of the named float parameter, or nil.
func (d Dictionary) GetFloatArray(name string) []float64 {
	if p := d.find(name, TypeFloat); p != nil {
		return p.Numbers
	}
	return nil
}

// GetIntArray returns all values of the named integer parameter, or nil.
func (d Dictionary) GetIntArray(name string) []int {
	p := d.find(name, TypeInteger)
	if p == nil {
		return nil
	}
	ints := make([]int, len(p.Numbers))
	for i, v := range p.Numbers {
		ints[i] = int(v)
	}
	return ints
}

// GetBoolArray returns all values of the named bool parameter, or nil.
func (d Dictionary) GetBoolArray(name string) []bool {
	if p := d.find(name, TypeBool); p != nil {
		return p.Bools
	}
	return nil
}

// GetPoint2Array returns the named point2 parameter as (x, y) pairs, or nil.
func (d Dictionary) GetPoint2Array(name string) [][2]float64 {
	p := d.find(name, TypePoint2)
	if p == nil || len(p.Numbers) < 2 {
		return nil
	}
	pts := make([][2]float64, len(p.Numbers)/2)
	for i := range pts {
		pts[i] = [2]float64{p.Numbers[2*i], p.Numbers[2*i+1]}
	}
	return pts
}

// GetPoint3Array returns the named point3 parameter as (x, y, z) triples,
// or nil.
func (d Dictionary) GetPoint3Array(name string) [][3]float64 {
	p := d.find(name, TypePoint3)
	if p == nil || len(p.Numbers) < 3 {
		return nil
	}
	pts := make([][3]float64, len(p.Numbers)/3)
	for i := range pts {
		pts[i] = [3]float64{p.Numbers[3*i], p.Numbers[3*i+1], p.Numbers[3*i+2]}
	}
	return pts
}

// GetNormal3Array returns the named normal parameter as (x, y, z)
// triples, or nil.
func (d Dictionary) GetNormal3Array(name string) [][3]float64 {
	p := d.find(name, TypeNormal)
	if p == nil || len(p.Numbers) < 3 {
		return nil
	}
	ns := make([][3]float64, len(p.Numbers)/3)
	for i := range ns {
		ns[i] = [3]float64{p.Numbers[3*i], p.Numbers[3*i+1], p.Numbers[3*i+2]}
	}
	return ns
}

// GetVector3Array returns the named vector3 parameter as (x, y, z)
// triples, or nil.
func (d Dictionary) GetVector3Array(name string) [][3]float64 {
	p := d.find(name, TypeVector3)
	if p == nil || len(p.Numbers) < 3 {
		return nil
	}
	vs := make([][3]float64, len(p.Numbers)/3)
	for i := range vs {
		vs[i] = [3]float64{p.Numbers[3*i], p.Numbers[3*i+1], p.Numbers[3*i+2]}
	}
	return vs
}

// GetOneRGB returns the named rgb (or legacy color) parameter's first
// triple. ok is false if no such parameter exists.
func (d Dictionary) GetOneRGB(name string) (rgb [3]float64, ok bool) {
	p := d.find(name, TypeRGB, TypeColor)
	if p == nil || len(p.Numbers) < 3 {
		return rgb, false
	}
	return [3]float64{p.Numbers[0], p.Numbers[1], p.Numbers[2]}, true
}

// GetTexture returns the texture name the named texture parameter refers
// to, or "".
func (d Dictionary) GetTexture(name string) string {
	if p := d.find(name, TypeTexture); p != nil && len(p.Strings) > 0 {
		return p.Strings[0]
	}
	return ""
}

// HasSpectrum reports whether the named parameter was supplied with any
// spectral or color type.
func (d Dictionary) HasSpectrum(name string) bool {
	for _, p := range d.params {
		if p.Name == name && isSpectrumType(p.Type) {
			return true
		}
	}
	return false
}

// FindSpectrum returns the named parameter if it was supplied with a
// spectral or color type, or nil.
func (d Dictionary) FindSpectrum(name string) *Parsed {
	for _, p := range d.params {
		if p.Name == name && isSpectrumType(p.Type) {
			p.lookedUp = true
			return p
		}
	}
	return nil
}

// remove deletes the first direct parameter matching name and types.
// Attribute overrides are never removed.
func (d *Dictionary) remove(name string, types ...string) bool {
	for i, p := range d.params {
		if p.Name != name {
			continue
		}
		matched := len(types) == 0
		for _, t := range types {
			if p.Type == t {
				matched = true
				break
			}
		}
		if matched {
			d.params = append(d.params[:i:i], d.params[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveFloat deletes the named float parameter.
func (d *Dictionary) RemoveFloat(name string) bool { return d.remove(name, TypeFloat) }

// RemoveInt deletes the named integer parameter.
func (d *Dictionary) RemoveInt(name string) bool { return d.remove(name, TypeInteger) }

// RemoveString deletes the named string parameter.
func (d *Dictionary) RemoveString(name string) bool { return d.remove(name, TypeString) }

// RemoveBool deletes the named bool parameter.
func (d *Dictionary) RemoveBool(name string) bool { return d.remove(name, TypeBool) }

// RemovePoint2 deletes the named point2 parameter.
func (d *Dictionary) RemovePoint2(name string) bool { return d.remove(name, TypePoint2) }

// RemovePoint3 deletes the named point3 parameter.
func (d *Dictionary) RemovePoint3(name string) bool { return d.remove(name, TypePoint3) }

// RemoveNormal deletes the named normal parameter.
func (d *Dictionary) RemoveNormal(name string) bool { return d.remove(name, TypeNormal) }

// RemoveVector3 deletes the named vector3 parameter.
func (d *Dictionary) RemoveVector3(name string) bool { return d.remove(name, TypeVector3) }

// RemoveTexture deletes the named texture parameter.
func (d *Dictionary) RemoveTexture(name string) bool { return d.remove(name, TypeTexture) }

// RemoveSpectrum deletes the named parameter whatever spectral or color
// type it was supplied with.
func (d *Dictionary) RemoveSpectrum(name string) bool {
	return d.remove(name, TypeSpectrum, TypeRGB, TypeColor, TypeBlackbody)
}

// RenameParameter renames the first direct parameter called old to new.
func (d *Dictionary) RenameParameter(old, new string) bool {
	for _, p := range d.params {
		if p.Name == old {
			p.Name = new
			return true
		}
	}
	return false
}

// ParameterList returns the dictionary's own parameters in canonical
// textual form, one per line, each prefixed with indent spaces.
func (d Dictionary) ParameterList(indent int) string {
	var sb strings.Builder
	pad := strings.Repeat(" ", indent)
	for _, p := range d.params {
		sb.WriteString(pad)
		sb.WriteString(p.Definition())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ReportUnused logs a warning for every direct parameter that was never
// looked up and is not marked MayBeUnused.
//
// The interpreter stores most parameters opaquely for downstream
// construction and looks up almost none of them itself, so it never
// calls this. The collaborator consuming a dictionary (material,
// texture, or light construction) calls it once it has looked up
// everything it understands.
func (d Dictionary) ReportUnused() {
	for _, p := range d.params {
		if !p.lookedUp && !p.MayBeUnused {
			lumen.Logger().Warn("unused parameter",
				"param", p.Name, "type", p.Type, "loc", p.Loc.String())
		}
	}
}
