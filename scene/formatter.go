package scene

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/image/math/f64"

	"github.com/lumenray/lumen"
	"github.com/lumenray/lumen/internal/plymesh"
	"github.com/lumenray/lumen/param"
)

// FormatterOption configures a [Formatter].
type FormatterOption func(*Formatter)

// WithUpgrade enables upgrade mode: legacy directive and parameter
// spellings are rewritten to the current schema as the stream is
// re-emitted.
func WithUpgrade() FormatterOption {
	return func(f *Formatter) { f.upgrade = true }
}

// WithMeshExtraction writes large triangle meshes to external PLY files
// named prefix_00001.ply, prefix_00002.ply, ... and replaces them with
// plymesh shapes referencing those files.
func WithMeshExtraction(prefix string) FormatterOption {
	return func(f *Formatter) {
		f.extractMeshes = true
		f.meshPrefix = prefix
	}
}

// Formatter re-emits a directive stream as canonical text. It keeps no
// scene graph; its only state is the nesting depth that drives
// indentation and the configured rewrite flags.
type Formatter struct {
	w io.Writer

	upgrade       bool
	extractMeshes bool
	meshPrefix    string
	meshCount     int

	nesting nestingStack
	err     error
}

// NewFormatter returns a Formatter writing to w.
func NewFormatter(w io.Writer, opts ...FormatterOption) *Formatter {
	f := &Formatter{w: w, meshPrefix: "mesh"}
	for _, o := range opts {
		o(f)
	}
	return f
}

// indent returns the whitespace prefix for the current nesting depth
// plus extra levels.
func (f *Formatter) indent(extra int) string {
	return strings.Repeat(" ", 4*(f.nesting.depth()+extra))
}

// printf writes formatted output, latching the first write error.
func (f *Formatter) printf(format string, args ...any) error {
	if f.err != nil {
		return f.err
	}
	if _, err := fmt.Fprintf(f.w, format, args...); err != nil {
		f.err = err
	}
	return f.err
}

func (f *Formatter) dict(params []*param.Parsed) param.Dictionary {
	return param.NewDictionary(params, param.SRGB)
}

func (f *Formatter) Option(name, value string, loc lumen.FileLoc) error {
	n := strings.ReplaceAll(strings.ToLower(name), "_", "")
	if n == "msereferenceimage" || n == "msereferenceout" {
		return f.printf("%sOption %q %q\n", f.indent(0), name, value)
	}
	return f.printf("%sOption %q %s\n", f.indent(0), name, value)
}

func (f *Formatter) Identity(loc lumen.FileLoc) error {
	return f.printf("%sIdentity\n", f.indent(0))
}

func (f *Formatter) Translate(dx, dy, dz float64, loc lumen.FileLoc) error {
	return f.printf("%sTranslate %s %s %s\n", f.indent(0), ftoa(dx), ftoa(dy), ftoa(dz))
}

func (f *Formatter) Rotate(angle, ax, ay, az float64, loc lumen.FileLoc) error {
	return f.printf("%sRotate %s %s %s %s\n",
		f.indent(0), ftoa(angle), ftoa(ax), ftoa(ay), ftoa(az))
}

func (f *Formatter) Scale(sx, sy, sz float64, loc lumen.FileLoc) error {
	return f.printf("%sScale %s %s %s\n", f.indent(0), ftoa(sx), ftoa(sy), ftoa(sz))
}

func (f *Formatter) LookAt(ex, ey, ez, lx, ly, lz, ux, uy, uz float64, loc lumen.FileLoc) error {
	in := f.indent(0)
	return f.printf("%sLookAt %s %s %s\n%s    %s %s %s\n%s    %s %s %s\n",
		in, ftoa(ex), ftoa(ey), ftoa(ez),
		in, ftoa(lx), ftoa(ly), ftoa(lz),
		in, ftoa(ux), ftoa(uy), ftoa(uz))
}

func (f *Formatter) matrixDirective(name string, m f64.Mat4) error {
	var sb strings.Builder
	sb.WriteString(f.indent(0))
	sb.WriteString(name)
	sb.WriteString(" [ ")
	for _, v := range m {
		sb.WriteString(ftoa(v))
		sb.WriteByte(' ')
	}
	sb.WriteString("]\n")
	return f.printf("%s", sb.String())
}

func (f *Formatter) ConcatTransform(m f64.Mat4, loc lumen.FileLoc) error {
	return f.matrixDirective("ConcatTransform", m)
}

func (f *Formatter) Transform(m f64.Mat4, loc lumen.FileLoc) error {
	return f.matrixDirective("Transform", m)
}

func (f *Formatter) CoordinateSystem(name string, loc lumen.FileLoc) error {
	return f.printf("%sCoordinateSystem %q\n", f.indent(0), name)
}

func (f *Formatter) CoordSysTransform(name string, loc lumen.FileLoc) error {
	return f.printf("%sCoordSysTransform %q\n", f.indent(0), name)
}

func (f *Formatter) ActiveTransformAll(loc lumen.FileLoc) error {
	return f.printf("%sActiveTransform All\n", f.indent(0))
}

func (f *Formatter) ActiveTransformStartTime(loc lumen.FileLoc) error {
	return f.printf("%sActiveTransform StartTime\n", f.indent(0))
}

func (f *Formatter) ActiveTransformEndTime(loc lumen.FileLoc) error {
	return f.printf("%sActiveTransform EndTime\n", f.indent(0))
}

func (f *Formatter) TransformTimes(start, end float64, loc lumen.FileLoc) error {
	return f.printf("%sTransformTimes %s %s\n", f.indent(0), ftoa(start), ftoa(end))
}

func (f *Formatter) ColorSpace(name string, loc lumen.FileLoc) error {
	return f.printf("%sColorSpace %q\n", f.indent(0), name)
}

func (f *Formatter) Camera(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	dict := f.dict(params)
	if f.upgrade && name == "environment" {
		f.printf("%sCamera \"spherical\" \"string mapping\" \"equirect\"\n", f.indent(0))
	} else {
		f.printf("%sCamera %q\n", f.indent(0), name)
	}
	if f.upgrade && name == "realistic" {
		dict.RemoveBool("simpleweighting")
	}
	return f.printf("%s", dict.ParameterList(f.indentCount(1)))
}

func (f *Formatter) Film(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	dict := f.dict(params)
	if f.upgrade && name == "image" {
		f.printf("%sFilm \"rgb\"\n", f.indent(0))
	} else {
		f.printf("%sFilm %q\n", f.indent(0), name)
	}
	return f.printf("%s", dict.ParameterList(f.indentCount(1)))
}

func (f *Formatter) Sampler(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	dict := f.dict(params)
	if f.upgrade {
		switch name {
		case "lowdiscrepancy", "02sequence":
			name = "paddedsobol"
		case "maxmindist":
			name = "pmj02bn"
		}
	}
	f.printf("%sSampler %q\n", f.indent(0), name)
	return f.printf("%s", dict.ParameterList(f.indentCount(1)))
}

func (f *Formatter) Filter(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	dict := f.dict(params)
	var extra string
	if f.upgrade {
		if xw := dict.GetFloatArray("xwidth"); len(xw) == 1 {
			dict.RemoveFloat("xwidth")
			extra += fmt.Sprintf("%s\"float xradius\" [ %s ]\n", f.indent(1), ftoa(xw[0]))
		}
		if yw := dict.GetFloatArray("ywidth"); len(yw) == 1 {
			dict.RemoveFloat("ywidth")
			extra += fmt.Sprintf("%s\"float yradius\" [ %s ]\n", f.indent(1), ftoa(yw[0]))
		}
		if name == "gaussian" {
			if alpha := dict.GetFloatArray("alpha"); len(alpha) == 1 {
				dict.RemoveFloat("alpha")
				extra += fmt.Sprintf("%s\"float sigma\" [ %s ]\n", f.indent(1),
					ftoa(gaussianSigmaFromAlpha(alpha[0])))
			}
		}
	}
	f.printf("%sPixelFilter %q\n", f.indent(0), name)
	return f.printf("%s%s", extra, dict.ParameterList(f.indentCount(1)))
}

func (f *Formatter) Integrator(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	dict := f.dict(params)
	var extra string
	if f.upgrade {
		if name == "sppm" {
			dict.RemoveInt("imagewritefrequency")
			if iters := dict.GetIntArray("numiterations"); len(iters) > 0 {
				dict.RemoveInt("numiterations")
				extra += fmt.Sprintf("%s\"integer iterations\" [ %d ]\n", f.indent(1), iters[0])
			}
		}
		if dict.GetOneString("lightsamplestrategy", "") == "spatial" {
			dict.RemoveString("lightsamplestrategy")
			extra += f.indent(1) + "\"string lightsamplestrategy\" \"bvh\"\n"
		}
	}
	if f.upgrade && name == "directlighting" {
		f.printf("%sIntegrator \"path\"\n", f.indent(0))
		extra += f.indent(1) + "\"integer maxdepth\" [ 1 ]\n"
	} else {
		f.printf("%sIntegrator %q\n", f.indent(0), name)
	}
	return f.printf("%s%s", extra, dict.ParameterList(f.indentCount(1)))
}

func (f *Formatter) Accelerator(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	dict := f.dict(params)
	f.printf("%sAccelerator %q\n", f.indent(0), name)
	return f.printf("%s", dict.ParameterList(f.indentCount(1)))
}

func (f *Formatter) WorldBegin(loc lumen.FileLoc) error {
	return f.printf("\n\nWorldBegin\n\n")
}

func (f *Formatter) AttributeBegin(loc lumen.FileLoc) error {
	err := f.printf("\n%sAttributeBegin\n", f.indent(0))
	f.nesting.push(scopeAttribute, loc)
	return err
}

func (f *Formatter) AttributeEnd(loc lumen.FileLoc) error {
	if err := f.nesting.pop(scopeAttribute, loc); err != nil {
		return err
	}
	return f.printf("%sAttributeEnd\n", f.indent(0))
}

func (f *Formatter) TransformBegin(loc lumen.FileLoc) error {
	err := f.printf("%sTransformBegin\n", f.indent(0))
	f.nesting.push(scopeTransform, loc)
	return err
}

func (f *Formatter) TransformEnd(loc lumen.FileLoc) error {
	if err := f.nesting.pop(scopeTransform, loc); err != nil {
		return err
	}
	return f.printf("%sTransformEnd\n", f.indent(0))
}

func (f *Formatter) Attribute(target string, params []*param.Parsed, loc lumen.FileLoc) error {
	dict := f.dict(params)
	f.printf("%sAttribute %q ", f.indent(0), target)
	if len(params) == 1 {
		// Just one parameter; keep it on the same line.
		return f.printf("%s\n", strings.TrimSuffix(dict.ParameterList(0), "\n"))
	}
	return f.printf("\n%s", dict.ParameterList(f.indentCount(1)))
}

func (f *Formatter) Texture(name, texType, className string, params []*param.Parsed, loc lumen.FileLoc) error {
	if f.upgrade && className == "scale" {
		if err := upgradeScaleTexture(texType, name, params); err != nil {
			return err
		}
	}
	dict := f.dict(params)

	var extra string
	if f.upgrade {
		if className == "imagemap" {
			if tri := dict.GetBoolArray("trilinear"); len(tri) == 1 {
				dict.RemoveBool("trilinear")
				filter := "\"bilinear\"\n"
				if tri[0] {
					filter = "\"trilinear\"\n"
				}
				extra += f.indent(1) + "\"string filter\" " + filter
			}
		}
		if className == "imagemap" || className == "ptex" {
			if n := dict.GetOneString("filename", ""); n != "" {
				dict.RemoveString("filename")
				extra += f.indent(1) + "\"string imagefile\" \"" + n + "\"\n"
			}
			if gamma := dict.GetOneFloat("gamma", 0); gamma != 0 {
				dict.RemoveFloat("gamma")
				extra += fmt.Sprintf("%s\"string encoding\" \"gamma %s\"\n", f.indent(1), ftoa(gamma))
			} else if g := dict.GetBoolArray("gamma"); len(g) == 1 {
				dict.RemoveBool("gamma")
				encoding := "\"linear\"\n"
				if g[0] {
					encoding = "\"sRGB\"\n"
				}
				extra += f.indent(1) + "\"string encoding\" " + encoding
			}
		}
	}

	if f.upgrade && texType == "color" {
		f.printf("%sTexture %q \"spectrum\" %q\n", f.indent(0), name, className)
	} else {
		f.printf("%sTexture %q %q %q\n", f.indent(0), name, texType, className)
	}
	return f.printf("%s%s", extra, dict.ParameterList(f.indentCount(1)))
}

func (f *Formatter) Material(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	dict := f.dict(params)
	var extra string
	if f.upgrade {
		var err error
		name, extra, err = f.upgradeMaterial(name, &dict, loc)
		if err != nil {
			return err
		}
	}
	f.printf("%sMaterial %q\n", f.indent(0), name)
	return f.printf("%s%s", extra, dict.ParameterList(f.indentCount(1)))
}

func (f *Formatter) MakeNamedMaterial(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	dict := f.dict(params)
	f.printf("%sMakeNamedMaterial %q\n", f.indent(0), name)
	var extra string
	if f.upgrade {
		matName := dict.GetOneString("type", "")
		newName, matExtra, err := f.upgradeMaterial(matName, &dict, loc)
		if err != nil {
			return err
		}
		dict.RemoveString("type")
		extra = fmt.Sprintf("%s\"string type\" [ %q ]\n", f.indent(1), newName) + matExtra
	}
	return f.printf("%s%s", extra, dict.ParameterList(f.indentCount(1)))
}

func (f *Formatter) NamedMaterial(name string, loc lumen.FileLoc) error {
	return f.printf("%sNamedMaterial %q\n", f.indent(0), name)
}

func (f *Formatter) MakeNamedMedium(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	dict := f.dict(params)
	f.printf("%sMakeNamedMedium %q\n", f.indent(0), name)
	return f.printf("%s", dict.ParameterList(f.indentCount(1)))
}

func (f *Formatter) MediumInterface(inside, outside string, loc lumen.FileLoc) error {
	return f.printf("%sMediumInterface %q %q\n", f.indent(0), inside, outside)
}

func (f *Formatter) LightSource(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	dict := f.dict(params)
	f.printf("%sLightSource %q\n", f.indent(0), name)

	var extra string
	if f.upgrade {
		totalScale := 1.0
		if !upgradeRGBToScale(&dict, "scale", &totalScale) {
			return fmt.Errorf("scene: %s: light source \"scale\" is now a float parameter and cannot be rewritten automatically", dict.Loc("scale"))
		}
		extra += f.upgradeBlackbody(&dict, &totalScale)
		dict.RemoveInt("nsamples")

		if dict.GetOneString("mapname", "") != "" {
			if name == "infinite" && !upgradeRGBToScale(&dict, "L", &totalScale) {
				return fmt.Errorf("scene: %s: non-constant \"L\" is not supported with \"mapname\" for the \"infinite\" light source", dict.Loc("L"))
			}
		} else if name == "projection" && !upgradeRGBToScale(&dict, "I", &totalScale) {
			return fmt.Errorf("scene: %s: \"I\" is not supported with \"mapname\" for the \"projection\" light source", dict.Loc("I"))
		}

		// After the map-dependent rewrites above, since this removes the
		// "mapname" parameter.
		extra += f.upgradeMapname(&dict)

		if totalScale != 1 {
			totalScale *= dict.GetOneFloat("scale", 1)
			dict.RemoveFloat("scale")
			f.printf("%s\"float scale\" [ %s ]\n", f.indent(1), ftoa(totalScale))
		}
	}
	return f.printf("%s%s", extra, dict.ParameterList(f.indentCount(1)))
}

func (f *Formatter) AreaLightSource(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	dict := f.dict(params)
	var extra string
	totalScale := 1.0
	if f.upgrade {
		if !upgradeRGBToScale(&dict, "scale", &totalScale) {
			return fmt.Errorf("scene: %s: area light \"scale\" is now a float parameter and cannot be rewritten automatically", dict.Loc("scale"))
		}
		extra += f.upgradeBlackbody(&dict, &totalScale)
		if name == "area" {
			name = "diffuse"
		}
		dict.RemoveInt("nsamples")
	}
	f.printf("%sAreaLightSource %q\n", f.indent(0), name)
	if totalScale != 1 {
		f.printf("%s\"float scale\" [ %s ]\n", f.indent(1), ftoa(totalScale))
	}
	return f.printf("%s%s", extra, dict.ParameterList(f.indentCount(1)))
}

func (f *Formatter) ReverseOrientation(loc lumen.FileLoc) error {
	return f.printf("%sReverseOrientation\n", f.indent(0))
}

// meshExtractionThreshold is the index-count cutoff below which a
// triangle mesh stays inline rather than moving to a PLY file.
const meshExtractionThreshold = 500

func (f *Formatter) Shape(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	dict := f.dict(params)

	if f.extractMeshes && name == "trianglemesh" {
		indices := dict.GetIntArray("indices")
		if len(indices) >= meshExtractionThreshold {
			f.meshCount++
			fn := fmt.Sprintf("%s_%05d.ply", f.meshPrefix, f.meshCount)

			mesh := plymesh.Mesh{
				Indices:     indices,
				P:           dict.GetPoint3Array("P"),
				N:           dict.GetNormal3Array("N"),
				S:           dict.GetVector3Array("S"),
				UV:          dict.GetPoint2Array("uv"),
				FaceIndices: dict.GetIntArray("faceIndices"),
			}
			if err := plymesh.WriteFile(fn, &mesh); err != nil {
				lumen.Logger().Error("unable to write PLY file",
					"file", fn, "err", err, "loc", loc.String())
			}

			dict.RemoveInt("indices")
			dict.RemovePoint3("P")
			dict.RemovePoint2("uv")
			dict.RemoveNormal("N")
			dict.RemoveVector3("S")
			dict.RemoveInt("faceIndices")

			f.printf("%sShape \"plymesh\" \"string filename\" %q\n", f.indent(0), fn)
			return f.printf("%s", dict.ParameterList(f.indentCount(1)))
		}
	}

	f.printf("%sShape %q\n", f.indent(0), name)

	if f.upgrade {
		if name == "trianglemesh" {
			// A single triangle's [0 1 2] indices are implied.
			indices := dict.GetIntArray("indices")
			if len(indices) == 3 && len(dict.GetPoint3Array("P")) == 3 &&
				indices[0] == 0 && indices[1] == 1 && indices[2] == 2 {
				dict.RemoveInt("indices")
			}
		}
		if name == "bilinearmesh" {
			indices := dict.GetIntArray("indices")
			if len(indices) == 4 && len(dict.GetPoint3Array("P")) == 4 &&
				indices[0] == 0 && indices[1] == 1 && indices[2] == 2 && indices[3] == 3 {
				dict.RemoveInt("indices")
			}
		}
		if name == "loopsubdiv" {
			if levels := dict.GetIntArray("nlevels"); len(levels) > 0 {
				f.printf("%s\"integer levels\" [ %d ]\n", f.indent(1), levels[0])
				dict.RemoveInt("nlevels")
			}
		}
		if name == "trianglemesh" || name == "plymesh" {
			dict.RemoveBool("discarddegenerateUVs")
		}
		if name == "plymesh" {
			if n := dict.GetOneString("filename", ""); n != "" {
				dict.RemoveString("filename")
				f.printf("%s\"string plyfile\" %q\n", f.indent(1), n)
			}
		}
		if name == "trianglemesh" {
			f.printf("%s", f.upgradeTriMeshUVs(&dict))
		}

		f.printf("%s", f.upgradeMaterialBumpmap(&dict))
		dict.RenameParameter("Kd", "reflectance")
	}

	return f.printf("%s", dict.ParameterList(f.indentCount(1)))
}

func (f *Formatter) ObjectBegin(name string, loc lumen.FileLoc) error {
	err := f.printf("%sObjectBegin %q\n", f.indent(0), name)
	f.nesting.push(scopeObject, loc)
	return err
}

func (f *Formatter) ObjectEnd(loc lumen.FileLoc) error {
	if err := f.nesting.pop(scopeObject, loc); err != nil {
		return err
	}
	return f.printf("%sObjectEnd\n", f.indent(0))
}

func (f *Formatter) ObjectInstance(name string, loc lumen.FileLoc) error {
	return f.printf("%sObjectInstance %q\n", f.indent(0), name)
}

func (f *Formatter) WorldEnd(loc lumen.FileLoc) error {
	return f.printf("%sWorldEnd\n", f.indent(0))
}

// indentCount returns the number of indent spaces at the current depth
// plus extra levels, for handing to Dictionary.ParameterList.
func (f *Formatter) indentCount(extra int) int {
	return 4 * (f.nesting.depth() + extra)
}
