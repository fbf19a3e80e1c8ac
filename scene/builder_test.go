package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenray/lumen"
	"github.com/lumenray/lumen/geom"
	"github.com/lumenray/lumen/param"
)

func floatParam(name string, values ...float64) *param.Parsed {
	return &param.Parsed{Type: param.TypeFloat, Name: name, Numbers: values}
}

func rgbParam(name string, r, g, b float64) *param.Parsed {
	return &param.Parsed{Type: param.TypeRGB, Name: name, Numbers: []float64{r, g, b}}
}

// feed runs a directive sequence, failing the test on the first fatal
// error.
func feed(t *testing.T, steps ...func() error) {
	t.Helper()
	for i, step := range steps {
		require.NoError(t, step(), "directive %d", i)
	}
}

func TestBuilderMinimalScene(t *testing.T) {
	var rendered *Scene
	b := NewBuilder(nil, func(s *Scene) error {
		rendered = s
		return nil
	})

	feed(t,
		func() error { return b.LookAt(0, 0, -5, 0, 0, 0, 0, 1, 0, testLoc(1)) },
		func() error { return b.Camera("perspective", []*param.Parsed{floatParam("fov", 45)}, testLoc(2)) },
		func() error { return b.Film("rgb", nil, testLoc(3)) },
		func() error { return b.Sampler("halton", nil, testLoc(4)) },
		func() error { return b.WorldBegin(testLoc(5)) },
		func() error { return b.LightSource("distant", nil, testLoc(6)) },
		func() error { return b.Material("diffuse", []*param.Parsed{rgbParam("reflectance", 0.5, 0.5, 0.5)}, testLoc(7)) },
		func() error { return b.Shape("sphere", []*param.Parsed{floatParam("radius", 1)}, testLoc(8)) },
		func() error { return b.WorldEnd(testLoc(9)) },
	)

	require.NotNil(t, rendered, "render callback not invoked")
	assert.Equal(t, "perspective", rendered.Camera.Name)
	assert.InDelta(t, 45.0, rendered.Camera.Parameters.GetOneFloat("fov", 0), 1e-12)
	assert.Equal(t, "halton", rendered.Sampler.Name)
	assert.Len(t, rendered.Lights, 1)

	// Default material plus the declared one.
	require.Len(t, rendered.Materials, 2)
	assert.Equal(t, "diffuse", rendered.Materials[0].Name)

	require.Len(t, rendered.Shapes, 1)
	shape := rendered.Shapes[0]
	assert.Equal(t, "sphere", shape.Name)
	idx, ok := shape.Material.Index()
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, -1, shape.AreaLightIndex)
}

func TestBuilderWrongStateIgnored(t *testing.T) {
	b := NewBuilder(nil, nil)

	// World-only directive before WorldBegin: logged and ignored.
	require.NoError(t, b.Shape("sphere", nil, testLoc(1)))
	assert.Empty(t, b.Scene().Shapes)

	require.NoError(t, b.WorldBegin(testLoc(2)))

	// Options-only directive after WorldBegin: logged and ignored.
	require.NoError(t, b.Film("gbuffer", nil, testLoc(3)))
	assert.Equal(t, "rgb", b.Scene().Film.Name)
}

func TestBuilderAttributeScopes(t *testing.T) {
	b := NewBuilder(nil, nil)
	feed(t,
		func() error { return b.WorldBegin(testLoc(1)) },
		func() error { return b.AttributeBegin(testLoc(2)) },
		func() error { return b.ReverseOrientation(testLoc(3)) },
		func() error { return b.Material("conductor", nil, testLoc(4)) },
		func() error { return b.Translate(5, 0, 0, testLoc(5)) },
		func() error { return b.Shape("sphere", nil, testLoc(6)) },
		func() error { return b.AttributeEnd(testLoc(7)) },
		func() error { return b.Shape("sphere", nil, testLoc(8)) },
	)

	shapes := b.Scene().Shapes
	require.Len(t, shapes, 2)

	inner, outer := shapes[0], shapes[1]
	assert.True(t, inner.ReverseOrientation)
	idx, _ := inner.Material.Index()
	assert.Equal(t, 1, idx)
	assert.False(t, inner.WorldFromObject.IsIdentity())

	// AttributeEnd restored orientation, material, and transform.
	assert.False(t, outer.ReverseOrientation)
	idx, _ = outer.Material.Index()
	assert.Equal(t, 0, idx)
	assert.True(t, outer.WorldFromObject.IsIdentity())
}

func TestBuilderMismatchedNesting(t *testing.T) {
	b := NewBuilder(nil, nil)
	feed(t,
		func() error { return b.WorldBegin(testLoc(1)) },
		func() error { return b.AttributeBegin(testLoc(2)) },
	)

	err := b.TransformEnd(testLoc(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TransformEnd")
	assert.Contains(t, err.Error(), "AttributeBegin")
	assert.Contains(t, err.Error(), "scene.txt:2:1")
}

func TestBuilderAreaLightPerShape(t *testing.T) {
	b := NewBuilder(nil, nil)
	feed(t,
		func() error { return b.WorldBegin(testLoc(1)) },
		func() error { return b.AttributeBegin(testLoc(2)) },
		func() error {
			return b.AreaLightSource("diffuse", []*param.Parsed{rgbParam("L", 1, 1, 1)}, testLoc(3))
		},
		func() error { return b.Shape("sphere", nil, testLoc(4)) },
		func() error { return b.Shape("disk", nil, testLoc(5)) },
		func() error { return b.AttributeEnd(testLoc(6)) },
		func() error { return b.Shape("sphere", nil, testLoc(7)) },
	)

	s := b.Scene()
	// Each emissive shape gets its own template copy.
	require.Len(t, s.AreaLights, 2)
	require.Len(t, s.Shapes, 3)
	assert.Equal(t, 0, s.Shapes[0].AreaLightIndex)
	assert.Equal(t, 1, s.Shapes[1].AreaLightIndex)
	// The pending light does not escape its scope.
	assert.Equal(t, -1, s.Shapes[2].AreaLightIndex)
}

func TestBuilderNamedMaterials(t *testing.T) {
	b := NewBuilder(nil, nil)
	feed(t,
		func() error { return b.WorldBegin(testLoc(1)) },
		func() error {
			return b.MakeNamedMaterial("gold", []*param.Parsed{
				{Type: param.TypeString, Name: "type", Strings: []string{"conductor"}},
			}, testLoc(2))
		},
		func() error { return b.NamedMaterial("gold", testLoc(3)) },
		func() error { return b.Shape("sphere", nil, testLoc(4)) },
	)

	s := b.Scene()
	require.Contains(t, s.NamedMaterials, "gold")
	require.Len(t, s.Shapes, 1)
	name, ok := s.Shapes[0].Material.Name()
	require.True(t, ok)
	assert.Equal(t, "gold", name)

	// Redefinition is fatal and names the first definition.
	err := b.MakeNamedMaterial("gold", nil, testLoc(5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scene.txt:2:1")
}

func TestBuilderNamedMediumRedefinition(t *testing.T) {
	b := NewBuilder(nil, nil)
	feed(t,
		func() error { return b.MakeNamedMedium("fog", nil, testLoc(1)) },
		func() error { return b.WorldBegin(testLoc(2)) },
		func() error { return b.MediumInterface("fog", "", testLoc(3)) },
		func() error { return b.Shape("sphere", nil, testLoc(4)) },
	)

	s := b.Scene()
	assert.Contains(t, s.Media, "fog")
	assert.Equal(t, "fog", s.Shapes[0].InsideMedium)
	assert.Equal(t, "", s.Shapes[0].OutsideMedium)

	err := b.MakeNamedMedium("fog", nil, testLoc(5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scene.txt:1:1")
}

func TestBuilderObjectInstancing(t *testing.T) {
	b := NewBuilder(nil, nil)
	feed(t,
		func() error { return b.WorldBegin(testLoc(1)) },
		func() error { return b.ObjectBegin("tree", testLoc(2)) },
		func() error { return b.Shape("trianglemesh", nil, testLoc(3)) },
		func() error { return b.ObjectEnd(testLoc(4)) },
		func() error { return b.Translate(10, 0, 0, testLoc(5)) },
		func() error { return b.ObjectInstance("tree", testLoc(6)) },
	)

	s := b.Scene()
	require.Contains(t, s.InstanceDefinitions, "tree")
	def := s.InstanceDefinitions["tree"]
	require.Len(t, def.Shapes, 1)
	// The template shape carries the definition name as a shape attribute.
	assert.Equal(t, "tree", def.Shapes[0].Parameters.GetOneString("name", ""))
	// Template geometry does not appear in the top-level shape list.
	assert.Empty(t, s.Shapes)

	require.Len(t, s.Instances, 1)
	inst := s.Instances[0]
	assert.Equal(t, "tree", inst.Name)
	require.NotNil(t, inst.WorldFromInstance)
	p := inst.WorldFromInstance.ApplyPoint(geom.Point3{})
	assert.InDelta(t, 10.0, p.X, 1e-12)
}

func TestBuilderObjectMisuse(t *testing.T) {
	t.Run("begin inside definition", func(t *testing.T) {
		b := NewBuilder(nil, nil)
		feed(t,
			func() error { return b.WorldBegin(testLoc(1)) },
			func() error { return b.ObjectBegin("a", testLoc(2)) },
		)
		require.Error(t, b.ObjectBegin("b", testLoc(3)))
	})

	t.Run("end without definition", func(t *testing.T) {
		b := NewBuilder(nil, nil)
		feed(t, func() error { return b.WorldBegin(testLoc(1)) })
		require.Error(t, b.ObjectEnd(testLoc(2)))
	})

	t.Run("instance inside definition", func(t *testing.T) {
		b := NewBuilder(nil, nil)
		feed(t,
			func() error { return b.WorldBegin(testLoc(1)) },
			func() error { return b.ObjectBegin("a", testLoc(2)) },
		)
		require.Error(t, b.ObjectInstance("a", testLoc(3)))
	})

	t.Run("undefined instance", func(t *testing.T) {
		b := NewBuilder(nil, nil)
		feed(t, func() error { return b.WorldBegin(testLoc(1)) })
		require.Error(t, b.ObjectInstance("ghost", testLoc(2)))
	})

	t.Run("redefined instance", func(t *testing.T) {
		b := NewBuilder(nil, nil)
		feed(t,
			func() error { return b.WorldBegin(testLoc(1)) },
			func() error { return b.ObjectBegin("a", testLoc(2)) },
			func() error { return b.ObjectEnd(testLoc(3)) },
		)
		err := b.ObjectBegin("a", testLoc(4))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scene.txt:2:1")
	})
}

func TestBuilderTransformDedup(t *testing.T) {
	b := NewBuilder(nil, nil)
	feed(t,
		func() error { return b.WorldBegin(testLoc(1)) },
		func() error { return b.Translate(1, 2, 3, testLoc(2)) },
		func() error { return b.Shape("sphere", nil, testLoc(3)) },
		func() error { return b.Shape("disk", nil, testLoc(4)) },
	)

	shapes := b.Scene().Shapes
	require.Len(t, shapes, 2)
	assert.Same(t, shapes[0].WorldFromObject, shapes[1].WorldFromObject)
	assert.Same(t, shapes[0].ObjectFromWorld, shapes[1].ObjectFromWorld)
}

func TestBuilderAnimatedShape(t *testing.T) {
	b := NewBuilder(nil, nil)
	feed(t,
		func() error { return b.TransformTimes(0.2, 0.8, testLoc(1)) },
		func() error { return b.WorldBegin(testLoc(2)) },
		func() error { return b.ActiveTransformEndTime(testLoc(3)) },
		func() error { return b.Translate(0, 4, 0, testLoc(4)) },
		func() error { return b.ActiveTransformAll(testLoc(5)) },
		func() error { return b.Shape("sphere", nil, testLoc(6)) },
	)

	s := b.Scene()
	assert.Empty(t, s.Shapes)
	require.Len(t, s.AnimatedShapes, 1)
	// The to-object direction is a cached identity handle; the animated
	// transform is applied on top of it.
	require.NotNil(t, s.AnimatedShapes[0].Identity)
	assert.True(t, s.AnimatedShapes[0].Identity.IsIdentity())
	at := s.AnimatedShapes[0].WorldFromObject
	assert.True(t, at.IsAnimated())
	assert.InDelta(t, 0.2, at.StartTime, 1e-12)
	assert.InDelta(t, 0.8, at.EndTime, 1e-12)
	assert.True(t, at.Start.IsIdentity())
	p := at.End.ApplyPoint(geom.Point3{})
	assert.InDelta(t, 4.0, p.Y, 1e-12)
}

func TestBuilderIdentityActiveSlots(t *testing.T) {
	b := NewBuilder(nil, nil)
	feed(t,
		func() error { return b.WorldBegin(testLoc(1)) },
		func() error { return b.Translate(1, 2, 3, testLoc(2)) },
		func() error { return b.ActiveTransformStartTime(testLoc(3)) },
		func() error { return b.Identity(testLoc(4)) },
		func() error { return b.ActiveTransformAll(testLoc(5)) },
		func() error { return b.Shape("sphere", nil, testLoc(6)) },
	)

	// Identity reset only the start slot; the end slot keeps the
	// translation, so the shape is animated.
	s := b.Scene()
	assert.Empty(t, s.Shapes)
	require.Len(t, s.AnimatedShapes, 1)
	at := s.AnimatedShapes[0].WorldFromObject
	assert.True(t, at.Start.IsIdentity())
	require.False(t, at.End.IsIdentity())
	p := at.End.ApplyPoint(geom.Point3{})
	assert.InDelta(t, 1.0, p.X, 1e-12)
	assert.InDelta(t, 2.0, p.Y, 1e-12)
	assert.InDelta(t, 3.0, p.Z, 1e-12)
}

func TestBuilderCoordinateSystems(t *testing.T) {
	b := NewBuilder(nil, nil)
	feed(t,
		func() error { return b.Translate(7, 0, 0, testLoc(1)) },
		func() error { return b.CoordinateSystem("lamp", testLoc(2)) },
		func() error { return b.Identity(testLoc(3)) },
		func() error { return b.CoordSysTransform("lamp", testLoc(4)) },
		func() error { return b.WorldBegin(testLoc(5)) },
		// Unknown name warns and leaves the transform alone.
		func() error { return b.CoordSysTransform("nope", testLoc(6)) },
		func() error { return b.Shape("sphere", nil, testLoc(7)) },
	)

	// WorldBegin reset the transform, so the shape is at the origin and
	// the restore before it did not leak into the world block.
	require.Len(t, b.Scene().Shapes, 1)
	assert.True(t, b.Scene().Shapes[0].WorldFromObject.IsIdentity())
}

func TestBuilderWorldEndDrainsOpenScopes(t *testing.T) {
	called := false
	b := NewBuilder(nil, func(*Scene) error {
		called = true
		return nil
	})
	feed(t,
		func() error { return b.WorldBegin(testLoc(1)) },
		func() error { return b.AttributeBegin(testLoc(2)) },
		func() error { return b.TransformBegin(testLoc(3)) },
		func() error { return b.WorldEnd(testLoc(4)) },
	)
	assert.True(t, called, "render callback not invoked despite open scopes")
}

func TestBuilderOptions(t *testing.T) {
	opts := lumen.DefaultRenderOptions()
	b := NewBuilder(&opts, nil)

	require.NoError(t, b.Option("seed", "42", testLoc(1)))
	assert.Equal(t, 42, opts.Seed)

	require.NoError(t, b.Option("disablepixeljitter", "true", testLoc(2)))
	assert.True(t, opts.DisablePixelJitter)

	// Malformed boolean and unknown option are fatal.
	require.Error(t, b.Option("forcediffuse", "yes", testLoc(3)))
	require.Error(t, b.Option("bogus", "1", testLoc(4)))
}

func TestBuilderAttributeTargets(t *testing.T) {
	b := NewBuilder(nil, nil)
	feed(t,
		func() error { return b.WorldBegin(testLoc(1)) },
		func() error {
			return b.Attribute("shape", []*param.Parsed{floatParam("radius", 3)}, testLoc(2))
		},
		// The override is a fallback: direct parameters win.
		func() error { return b.Shape("sphere", nil, testLoc(3)) },
		func() error {
			return b.Shape("sphere", []*param.Parsed{floatParam("radius", 9)}, testLoc(4))
		},
	)

	s := b.Scene()
	require.Len(t, s.Shapes, 2)
	assert.InDelta(t, 3.0, s.Shapes[0].Parameters.GetOneFloat("radius", 0), 1e-12)
	assert.InDelta(t, 9.0, s.Shapes[1].Parameters.GetOneFloat("radius", 0), 1e-12)

	require.Error(t, b.Attribute("camera", nil, testLoc(5)))
}
