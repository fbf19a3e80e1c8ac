package param

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/lumenray/lumen"
)

func floatParam(name string, values ...float64) *Parsed {
	return &Parsed{Type: TypeFloat, Name: name, Numbers: values, ColorSpace: SRGB}
}

func stringParam(name string, values ...string) *Parsed {
	return &Parsed{Type: TypeString, Name: name, Strings: values, ColorSpace: SRGB}
}

func TestTypedGetters(t *testing.T) {
	d := NewDictionary([]*Parsed{
		floatParam("radius", 2.5),
		{Type: TypeInteger, Name: "count", Numbers: []float64{7}},
		stringParam("filename", "mesh.ply"),
		{Type: TypeBool, Name: "twosided", Bools: []bool{true}},
		{Type: TypeRGB, Name: "L", Numbers: []float64{0.5, 0.5, 0.5}},
	}, SRGB)

	if got := d.GetOneFloat("radius", 1); got != 2.5 {
		t.Errorf("GetOneFloat(radius) = %v, want 2.5", got)
	}
	if got := d.GetOneFloat("missing", 1); got != 1 {
		t.Errorf("GetOneFloat(missing) = %v, want default 1", got)
	}
	if got := d.GetOneInt("count", 0); got != 7 {
		t.Errorf("GetOneInt(count) = %v, want 7", got)
	}
	if got := d.GetOneString("filename", ""); got != "mesh.ply" {
		t.Errorf("GetOneString(filename) = %q, want mesh.ply", got)
	}
	if got := d.GetOneBool("twosided", false); !got {
		t.Error("GetOneBool(twosided) = false, want true")
	}
	rgb, ok := d.GetOneRGB("L")
	if !ok || rgb != [3]float64{0.5, 0.5, 0.5} {
		t.Errorf("GetOneRGB(L) = %v, %v, want (0.5,0.5,0.5), true", rgb, ok)
	}
	// Wrong-typed lookup must not match.
	if got := d.GetOneFloat("count", -1); got != -1 {
		t.Errorf("GetOneFloat(count) = %v, want default -1 (integer param)", got)
	}
}

func TestAttributeFallback(t *testing.T) {
	attrs := []*Parsed{floatParam("roughness", 0.1)}
	direct := []*Parsed{floatParam("roughness", 0.9)}

	d := NewDictionaryWithAttributes(direct, attrs, SRGB)
	if got := d.GetOneFloat("roughness", 0); got != 0.9 {
		t.Errorf("direct parameter should shadow attribute: got %v, want 0.9", got)
	}

	d2 := NewDictionaryWithAttributes(nil, attrs, SRGB)
	if got := d2.GetOneFloat("roughness", 0); got != 0.1 {
		t.Errorf("attribute fallback: got %v, want 0.1", got)
	}
}

func TestRemoveAndRename(t *testing.T) {
	d := NewDictionary([]*Parsed{
		floatParam("xwidth", 2),
		{Type: TypeRGB, Name: "Kd", Numbers: []float64{1, 0, 0}},
	}, SRGB)

	if !d.RemoveFloat("xwidth") {
		t.Error("RemoveFloat(xwidth) = false, want true")
	}
	if d.RemoveFloat("xwidth") {
		t.Error("second RemoveFloat(xwidth) = true, want false")
	}
	if !d.RenameParameter("Kd", "reflectance") {
		t.Error("RenameParameter(Kd) = false, want true")
	}
	if _, ok := d.GetOneRGB("reflectance"); !ok {
		t.Error("renamed parameter not found under new name")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	d := NewDictionary([]*Parsed{floatParam("a", 1)}, SRGB)
	c := d.Clone()
	c.RemoveFloat("a")
	if got := d.GetOneFloat("a", -1); got != 1 {
		t.Errorf("removal in clone affected original: GetOneFloat(a) = %v, want 1", got)
	}
}

func TestParameterList(t *testing.T) {
	d := NewDictionary([]*Parsed{
		floatParam("radius", 1.5),
		stringParam("filename", "out.png"),
	}, SRGB)

	got := d.ParameterList(4)
	want := "    \"float radius\" [ 1.5 ]\n    \"string filename\" [ \"out.png\" ]\n"
	if got != want {
		t.Errorf("ParameterList(4) = %q, want %q", got, want)
	}
}

func TestPointArrays(t *testing.T) {
	d := NewDictionary([]*Parsed{
		{Type: TypePoint2, Name: "uv", Numbers: []float64{0, 0, 1, 0, 1, 1}},
		{Type: TypePoint3, Name: "P", Numbers: []float64{0, 0, 0, 1, 0, 0, 0, 1, 0}},
	}, SRGB)

	uv := d.GetPoint2Array("uv")
	if len(uv) != 3 || uv[2] != [2]float64{1, 1} {
		t.Errorf("GetPoint2Array(uv) = %v, want 3 pairs ending (1,1)", uv)
	}
	p := d.GetPoint3Array("P")
	if len(p) != 3 || p[1] != [3]float64{1, 0, 0} {
		t.Errorf("GetPoint3Array(P) = %v, want 3 triples", p)
	}
}

func TestLocAndDefinition(t *testing.T) {
	loc := lumen.FileLoc{Filename: "scene.lsd", Line: 12, Column: 3}
	p := floatParam("radius", 2)
	p.Loc = loc
	d := NewDictionary([]*Parsed{p}, SRGB)

	if got := d.Loc("radius"); got != loc {
		t.Errorf("Loc(radius) = %v, want %v", got, loc)
	}
	if got := p.Definition(); !strings.Contains(got, `"float radius"`) {
		t.Errorf("Definition() = %q, want parameter header", got)
	}
}

func TestReportUnused(t *testing.T) {
	var buf bytes.Buffer
	lumen.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	defer lumen.SetLogger(nil)

	d := NewDictionary([]*Parsed{
		floatParam("radius", 1),
		floatParam("ignored", 2),
		{Type: TypeFloat, Name: "tolerated", Numbers: []float64{3}, MayBeUnused: true},
	}, SRGB)
	d.GetOneFloat("radius", 0)

	d.ReportUnused()

	out := buf.String()
	if !strings.Contains(out, "ignored") {
		t.Errorf("ReportUnused() did not warn about %q:\n%s", "ignored", out)
	}
	if strings.Contains(out, "radius") {
		t.Errorf("ReportUnused() warned about looked-up %q:\n%s", "radius", out)
	}
	if strings.Contains(out, "tolerated") {
		t.Errorf("ReportUnused() warned about MayBeUnused %q:\n%s", "tolerated", out)
	}
}
