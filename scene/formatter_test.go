package scene

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenray/lumen/param"
)

func TestFormatterBasicStream(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)

	feed(t,
		func() error { return f.Scale(2, 2, 2, testLoc(1)) },
		func() error { return f.WorldBegin(testLoc(2)) },
		func() error { return f.AttributeBegin(testLoc(3)) },
		func() error {
			return f.Material("matte", []*param.Parsed{rgbParam("Kd", 0.5, 0.5, 0.5)}, testLoc(4))
		},
		func() error { return f.Shape("sphere", []*param.Parsed{floatParam("radius", 1)}, testLoc(5)) },
		func() error { return f.AttributeEnd(testLoc(6)) },
		func() error { return f.WorldEnd(testLoc(7)) },
	)

	want := "Scale 2 2 2\n" +
		"\n\nWorldBegin\n\n" +
		"\nAttributeBegin\n" +
		"    Material \"matte\"\n" +
		"        \"rgb Kd\" [ 0.5 0.5 0.5 ]\n" +
		"    Shape \"sphere\"\n" +
		"        \"float radius\" [ 1 ]\n" +
		"AttributeEnd\n" +
		"WorldEnd\n"
	assert.Equal(t, want, buf.String())
}

func TestFormatterNestingMismatch(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)

	require.NoError(t, f.AttributeBegin(testLoc(1)))
	err := f.TransformEnd(testLoc(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AttributeBegin")
}

func TestFormatterUpgradeMaterials(t *testing.T) {
	t.Run("matte becomes diffuse", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewFormatter(&buf, WithUpgrade())
		require.NoError(t, f.Material("matte",
			[]*param.Parsed{rgbParam("Kd", 0.2, 0.4, 0.6)}, testLoc(1)))

		want := "Material \"diffuse\"\n" +
			"    \"rgb reflectance\" [ 0.2 0.4 0.6 ]\n"
		assert.Equal(t, want, buf.String())
	})

	t.Run("mirror becomes silver conductor", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewFormatter(&buf, WithUpgrade())
		require.NoError(t, f.Material("mirror", nil, testLoc(1)))

		want := "Material \"conductor\"\n" +
			"    \"float roughness\" [ 0 ]\n" +
			"    \"spectrum eta\" [ \"metal-Ag-eta\" ]\n" +
			"    \"spectrum k\" [ \"metal-Ag-k\" ]\n"
		assert.Equal(t, want, buf.String())
	})

	t.Run("glass index conflict is fatal", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewFormatter(&buf, WithUpgrade())
		err := f.Material("glass", []*param.Parsed{
			floatParam("index", 1.5),
			floatParam("eta", 1.5),
		}, testLoc(1))
		require.Error(t, err)
	})
}

func TestFormatterUpgradeOptionsBlock(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, WithUpgrade())

	feed(t,
		func() error { return f.Film("image", nil, testLoc(1)) },
		func() error { return f.Sampler("lowdiscrepancy", nil, testLoc(2)) },
		func() error {
			return f.Filter("gaussian", []*param.Parsed{
				floatParam("xwidth", 4),
				floatParam("alpha", 2),
			}, testLoc(3))
		},
	)

	want := "Film \"rgb\"\n" +
		"Sampler \"paddedsobol\"\n" +
		"PixelFilter \"gaussian\"\n" +
		"    \"float xradius\" [ 4 ]\n" +
		"    \"float sigma\" [ 0.5 ]\n"
	assert.Equal(t, want, buf.String())
}

func TestFormatterUpgradeLights(t *testing.T) {
	t.Run("blackbody scale folding", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewFormatter(&buf, WithUpgrade())
		require.NoError(t, f.LightSource("point", []*param.Parsed{
			{Type: param.TypeBlackbody, Name: "I", Numbers: []float64{3000, 2}},
		}, testLoc(1)))

		want := "LightSource \"point\"\n" +
			"    \"float scale\" [ 2 ]\n" +
			"    \"blackbody I\" [ 3000 ]\n"
		assert.Equal(t, want, buf.String())
	})

	t.Run("mapname becomes imagefile", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewFormatter(&buf, WithUpgrade())
		require.NoError(t, f.LightSource("infinite", []*param.Parsed{
			{Type: param.TypeString, Name: "mapname", Strings: []string{"sky.exr"}},
		}, testLoc(1)))

		want := "LightSource \"infinite\"\n" +
			"    \"string imagefile\" \"sky.exr\"\n"
		assert.Equal(t, want, buf.String())
	})

	t.Run("non-constant rgb scale is fatal", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewFormatter(&buf, WithUpgrade())
		err := f.LightSource("point", []*param.Parsed{
			rgbParam("scale", 1, 2, 3),
		}, testLoc(1))
		require.Error(t, err)
	})

	t.Run("area light rename", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewFormatter(&buf, WithUpgrade())
		require.NoError(t, f.AreaLightSource("area", nil, testLoc(1)))
		assert.Equal(t, "AreaLightSource \"diffuse\"\n", buf.String())
	})
}

func TestFormatterUpgradeScaleTexture(t *testing.T) {
	t.Run("float renames inputs", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewFormatter(&buf, WithUpgrade())
		require.NoError(t, f.Texture("sc", "float", "scale", []*param.Parsed{
			{Type: param.TypeTexture, Name: "tex1", Strings: []string{"base"}},
			floatParam("tex2", 0.5),
		}, testLoc(1)))

		out := buf.String()
		assert.Contains(t, out, "\"texture tex\" [ \"base\" ]")
		assert.Contains(t, out, "\"float scale\" [ 0.5 ]")
	})

	t.Run("non-constant rgb input is fatal", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewFormatter(&buf, WithUpgrade())
		err := f.Texture("sc", "spectrum", "scale", []*param.Parsed{
			rgbParam("tex1", 1, 2, 3),
			{Type: param.TypeTexture, Name: "tex2", Strings: []string{"base"}},
		}, testLoc(1))
		require.Error(t, err)
	})

	t.Run("legacy color type becomes spectrum", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewFormatter(&buf, WithUpgrade())
		require.NoError(t, f.Texture("tint", "color", "constant", nil, testLoc(1)))
		assert.Equal(t, "Texture \"tint\" \"spectrum\" \"constant\"\n", buf.String())
	})
}

func TestFormatterMeshExtraction(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "mesh")

	// Enough indices to cross the extraction threshold.
	nTris := 200
	indices := make([]float64, 0, 3*nTris)
	for i := 0; i < nTris; i++ {
		indices = append(indices, 0, 1, 2)
	}
	params := []*param.Parsed{
		{Type: param.TypeInteger, Name: "indices", Numbers: indices},
		{Type: param.TypePoint3, Name: "P", Numbers: []float64{0, 0, 0, 1, 0, 0, 0, 1, 0}},
	}

	var buf bytes.Buffer
	f := NewFormatter(&buf, WithMeshExtraction(prefix))
	require.NoError(t, f.Shape("trianglemesh", params, testLoc(1)))

	plyPath := prefix + "_00001.ply"
	if _, err := os.Stat(plyPath); err != nil {
		t.Fatalf("expected PLY file %s: %v", plyPath, err)
	}
	assert.Contains(t, buf.String(), "Shape \"plymesh\"")
	assert.Contains(t, buf.String(), plyPath)
	assert.NotContains(t, buf.String(), "indices")

	// A small mesh stays inline.
	buf.Reset()
	small := []*param.Parsed{
		{Type: param.TypeInteger, Name: "indices", Numbers: []float64{0, 1, 2}},
		{Type: param.TypePoint3, Name: "P", Numbers: []float64{0, 0, 0, 1, 0, 0, 0, 1, 0}},
	}
	require.NoError(t, f.Shape("trianglemesh", small, testLoc(2)))
	assert.Contains(t, buf.String(), "Shape \"trianglemesh\"")
	assert.Contains(t, buf.String(), "indices")
}
