package scene

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lumenray/lumen"
	"github.com/lumenray/lumen/param"
)

// Rewrites applied by the Formatter's upgrade mode: legacy directive and
// parameter spellings are mapped to their current forms. Lossy rewrites
// warn; rewrites that cannot be done safely are fatal.

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// upgradeRGBToScale folds a spectrally constant rgb parameter into a
// scalar scale factor. It reports false when the parameter is spectral
// but not constant, in which case no automatic rewrite is safe.
func upgradeRGBToScale(dict *param.Dictionary, name string, totalScale *float64) bool {
	if !dict.HasSpectrum(name) {
		return true
	}
	rgb, ok := dict.GetOneRGB(name)
	if !ok || rgb[0] != rgb[1] || rgb[1] != rgb[2] {
		return false
	}
	*totalScale *= rgb[0]
	dict.RemoveSpectrum(name)
	return true
}

// upgradeBlackbody rewrites two-valued legacy blackbody emission
// parameters, where the second value was a scale factor, into a bare
// temperature plus a contribution to the light's scale.
func (f *Formatter) upgradeBlackbody(dict *param.Dictionary, totalScale *float64) string {
	var extra strings.Builder
	for _, name := range []string{"L", "I"} {
		p := dict.FindSpectrum(name)
		if p == nil || p.Type != param.TypeBlackbody {
			continue
		}
		if len(p.Numbers) < 2 {
			// Already a bare temperature.
			continue
		}
		scale := dict.GetOneFloat("scale", 1)
		dict.RemoveFloat("scale")
		*totalScale *= scale * p.Numbers[1]

		temp := p.Numbers[0]
		dict.RemoveSpectrum(name)
		fmt.Fprintf(&extra, "%s\"blackbody %s\" [ %s ]\n", f.indent(1), name, ftoa(temp))
	}
	return extra.String()
}

// upgradeMapname renames the legacy "mapname" string parameter to
// "imagefile".
func (f *Formatter) upgradeMapname(dict *param.Dictionary) string {
	n := dict.GetOneString("mapname", "")
	if n == "" {
		return ""
	}
	dict.RemoveString("mapname")
	return f.indent(1) + "\"string imagefile\" \"" + n + "\"\n"
}

// upgradeMaterialIndex renames the legacy "index" refraction parameter
// to "eta" for materials that had it. Having both spellings is fatal.
func (f *Formatter) upgradeMaterialIndex(name string, dict *param.Dictionary, loc lumen.FileLoc) (string, error) {
	if name != "glass" && name != "uber" {
		return "", nil
	}
	if tex := dict.GetTexture("index"); tex != "" {
		if dict.GetTexture("eta") != "" {
			return "", fmt.Errorf("scene: %s: material %q has both \"index\" and \"eta\" parameters", loc, name)
		}
		dict.RemoveTexture("index")
		return f.indent(1) + "\"texture eta\" \"" + tex + "\"\n", nil
	}
	index := dict.GetFloatArray("index")
	if len(index) == 0 {
		return "", nil
	}
	if len(index) != 1 {
		return "", fmt.Errorf("scene: %s: multiple values provided for \"index\" parameter", loc)
	}
	if len(dict.GetFloatArray("eta")) > 0 {
		return "", fmt.Errorf("scene: %s: material %q has both \"index\" and \"eta\" parameters", loc, name)
	}
	dict.RemoveFloat("index")
	return fmt.Sprintf("%s\"float eta\" [ %s ]\n", f.indent(1), ftoa(index[0])), nil
}

// upgradeMaterialBumpmap renames the legacy "bumpmap" texture to
// "displacement".
func (f *Formatter) upgradeMaterialBumpmap(dict *param.Dictionary) string {
	bump := dict.GetTexture("bumpmap")
	if bump == "" {
		return ""
	}
	dict.RemoveTexture("bumpmap")
	return f.indent(1) + "\"texture displacement\" \"" + bump + "\"\n"
}

func upgradeUberOpacity(name string, dict *param.Dictionary, loc lumen.FileLoc) error {
	if dict.GetTexture("opacity") != "" {
		return fmt.Errorf("scene: %s: non-opaque \"opacity\" in %q material cannot be rewritten automatically", loc, name)
	}
	if !dict.HasSpectrum("opacity") {
		return nil
	}
	if rgb, ok := dict.GetOneRGB("opacity"); ok && rgb[0] == 1 && rgb[1] == 1 && rgb[2] == 1 {
		dict.RemoveSpectrum("opacity")
		return nil
	}
	return fmt.Errorf("scene: %s: non-opaque \"opacity\" in %q material cannot be rewritten automatically", loc, name)
}

// removeParamSilentIfConstant drops a legacy spectral parameter,
// reporting whether it was the given constant (and therefore dropped
// silently); any other spectral value is removed with a warning.
func removeParamSilentIfConstant(dict *param.Dictionary, paramName string, value float64, matName string, loc lumen.FileLoc) bool {
	rgb, ok := dict.GetOneRGB(paramName)
	matches := ok && rgb[0] == value && rgb[1] == value && rgb[2] == value
	if !matches && dict.HasSpectrum(paramName) {
		lumen.Logger().Warn("parameter removed when converting material",
			"material", matName, "param", paramName, "loc", loc.String())
	}
	dict.RemoveSpectrum(paramName)
	dict.RemoveTexture(paramName)
	return matches
}

// upgradeMaterial maps a legacy material name and its parameters to the
// current material schema. It returns the new name and extra parameter
// lines to emit before the remaining dictionary.
func (f *Formatter) upgradeMaterial(name string, dict *param.Dictionary, loc lumen.FileLoc) (string, string, error) {
	extra, err := f.upgradeMaterialIndex(name, dict, loc)
	if err != nil {
		return "", "", err
	}
	extra += f.upgradeMaterialBumpmap(dict)

	switch name {
	case "uber":
		newName := "coateddiffuse"
		if removeParamSilentIfConstant(dict, "Ks", 0, name, loc) {
			newName = "diffuse"
			dict.RemoveFloat("eta")
			dict.RemoveFloat("roughness")
		}
		removeParamSilentIfConstant(dict, "Kr", 0, name, loc)
		removeParamSilentIfConstant(dict, "Kt", 0, name, loc)
		dict.RenameParameter("Kd", "reflectance")
		if err := upgradeUberOpacity(name, dict, loc); err != nil {
			return "", "", err
		}
		return newName, extra, nil

	case "mix":
		if rgb, ok := dict.GetOneRGB("amount"); ok {
			amount := rgb[0]
			if rgb[0] != rgb[1] || rgb[1] != rgb[2] {
				amount = (rgb[0] + rgb[1] + rgb[2]) / 3
				lumen.Logger().Warn("changing rgb \"amount\" to scalar average",
					"amount", amount, "loc", loc.String())
			}
			extra += fmt.Sprintf("%s\"float amount\" [ %s ]\n", f.indent(1), ftoa(amount))
		} else if dict.HasSpectrum("amount") || dict.GetTexture("amount") != "" {
			lumen.Logger().Error("unable to rewrite non-rgb \"amount\" to a scalar",
				"loc", loc.String())
		}
		dict.RemoveSpectrum("amount")
		return name, extra, nil

	case "substrate":
		removeParamSilentIfConstant(dict, "Ks", 1, name, loc)
		dict.RenameParameter("Kd", "reflectance")
		return "coateddiffuse", extra, nil

	case "glass":
		removeParamSilentIfConstant(dict, "Kr", 1, name, loc)
		removeParamSilentIfConstant(dict, "Kt", 1, name, loc)
		return "dielectric", extra, nil

	case "plastic":
		newName := "coateddiffuse"
		if removeParamSilentIfConstant(dict, "Ks", 0, name, loc) {
			newName = "diffuse"
			dict.RemoveFloat("roughness")
			dict.RemoveFloat("eta")
		}
		dict.RenameParameter("Kd", "reflectance")
		return newName, extra, nil

	case "fourier":
		lumen.Logger().Warn("\"fourier\" material is no longer supported",
			"loc", loc.String())
		return name, extra, nil

	case "kdsubsurface":
		dict.RenameParameter("Kd", "reflectance")
		return "subsurface", extra, nil

	case "matte":
		dict.RenameParameter("Kd", "reflectance")
		return "diffuse", extra, nil

	case "metal":
		removeParamSilentIfConstant(dict, "Kr", 1, name, loc)
		return "conductor", extra, nil

	case "translucent":
		dict.RenameParameter("Kd", "transmittance")
		removeParamSilentIfConstant(dict, "reflect", 0, name, loc)
		removeParamSilentIfConstant(dict, "transmit", 1, name, loc)
		removeParamSilentIfConstant(dict, "Ks", 0, name, loc)
		dict.RemoveFloat("roughness")
		return "diffusetransmission", extra, nil

	case "mirror":
		extra += f.indent(1) + "\"float roughness\" [ 0 ]\n"
		extra += f.indent(1) + "\"spectrum eta\" [ \"metal-Ag-eta\" ]\n"
		extra += f.indent(1) + "\"spectrum k\" [ \"metal-Ag-k\" ]\n"
		removeParamSilentIfConstant(dict, "Kr", 0, name, loc)
		return "conductor", extra, nil
	}

	return name, extra, nil
}

// upgradeScaleTexture rewrites the legacy two-texture "scale" texture to
// the current texture + scalar form, editing the raw parameters before
// they become a dictionary. A spectrum-typed scale texture needs one of
// its two inputs reduced to a constant scalar; a non-constant rgb value
// cannot be reduced and is fatal.
func upgradeScaleTexture(texType, name string, params []*param.Parsed) error {
	if texType == "float" {
		for _, p := range params {
			if p.Name == "tex1" {
				p.Name = "tex"
			}
			if p.Name == "tex2" {
				p.Name = "scale"
			}
		}
		return nil
	}

	foundRGB, foundTexture := false, false
	for _, p := range params {
		if p.Name != "tex1" && p.Name != "tex2" {
			continue
		}
		if p.Type == param.TypeRGB {
			if foundRGB {
				return fmt.Errorf("scene: %s: two \"rgb\" values found for \"scale\" texture %q", p.Loc, name)
			}
			if len(p.Numbers) != 3 {
				return fmt.Errorf("scene: %s: didn't find 3 values for \"rgb\" %q", p.Loc, p.Name)
			}
			if p.Numbers[0] != p.Numbers[1] || p.Numbers[1] != p.Numbers[2] {
				return fmt.Errorf("scene: %s: non-constant \"rgb\" value for \"scale\" texture parameter %q", p.Loc, p.Name)
			}
			foundRGB = true
			p.Type = param.TypeFloat
			p.Name = "scale"
			p.Numbers = p.Numbers[:1]
		} else {
			if foundTexture {
				return fmt.Errorf("scene: %s: two textures found for \"scale\" texture %q", p.Loc, name)
			}
			p.Name = "tex"
			foundTexture = true
		}
	}
	return nil
}

// upgradeTriMeshUVs converts legacy "st" point2 coordinates or flat
// float "uv"/"st" arrays into the canonical "point2 uv" parameter.
func (f *Formatter) upgradeTriMeshUVs(dict *param.Dictionary) string {
	uv := dict.GetPoint2Array("st")
	if len(uv) > 0 {
		dict.RemovePoint2("st")
	} else {
		for _, name := range []string{"uv", "st"} {
			fuv := dict.GetFloatArray(name)
			if len(fuv) == 0 {
				continue
			}
			pts := make([][2]float64, len(fuv)/2)
			for i := range pts {
				pts[i] = [2]float64{fuv[2*i], fuv[2*i+1]}
			}
			dict.RemoveFloat(name)
			uv = pts
		}
	}
	if len(uv) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(f.indent(1))
	sb.WriteString("\"point2 uv\" [ ")
	for i, p := range uv {
		fmt.Fprintf(&sb, "%s %s ", ftoa(p[0]), ftoa(p[1]))
		if (i+1)%4 == 0 {
			sb.WriteByte('\n')
			sb.WriteString(f.indent(2))
		}
	}
	sb.WriteString("]\n")
	return sb.String()
}

// gaussianSigmaFromAlpha converts the legacy gaussian filter "alpha"
// falloff to the equivalent sigma.
func gaussianSigmaFromAlpha(alpha float64) float64 {
	return 1 / math.Sqrt(2*alpha)
}
