package scene

import (
	"strconv"

	"github.com/lumenray/lumen"
	"github.com/lumenray/lumen/geom"
	"github.com/lumenray/lumen/param"
)

// MaterialRef identifies the material bound to a shape: either an index
// into [Scene.Materials] or the name of an entry in
// [Scene.NamedMaterials]. The zero value refers to the default material
// at index 0.
type MaterialRef struct {
	index int
	name  string
}

// MaterialIndex refers to Scene.Materials[i].
func MaterialIndex(i int) MaterialRef {
	return MaterialRef{index: i}
}

// MaterialName refers to Scene.NamedMaterials[name].
func MaterialName(name string) MaterialRef {
	return MaterialRef{index: -1, name: name}
}

// Index returns the material slot, or false if the reference is by name
// or carries no valid slot.
func (r MaterialRef) Index() (int, bool) {
	if r.name != "" || r.index < 0 {
		return 0, false
	}
	return r.index, true
}

// Name returns the named-material key, or false if the reference is by
// index.
func (r MaterialRef) Name() (string, bool) {
	return r.name, r.name != ""
}

func (r MaterialRef) String() string {
	if r.name != "" {
		return "material " + r.name
	}
	return "material #" + strconv.Itoa(r.index)
}

// Entity is the common portion of every scene entity: the plug-in name
// requested by the stream, its parameters, and where it was declared.
type Entity struct {
	Name       string
	Parameters param.Dictionary
	Loc        lumen.FileLoc
}

// TransformedEntity is an entity placed by the current transform at the
// time it was declared. Used for textures and media.
type TransformedEntity struct {
	Entity
	WorldFromObject AnimatedTransform
}

// CameraEntity records the Camera directive along with the transform
// from camera space to world space and the exterior medium.
type CameraEntity struct {
	Entity
	WorldFromCamera AnimatedTransform
	Medium          string
}

// LightEntity records a LightSource directive.
type LightEntity struct {
	Entity
	WorldFromLight AnimatedTransform
	Medium         string
}

// ShapeEntity is a shape whose placement does not vary over the frame.
// Both transform directions are cached handles.
type ShapeEntity struct {
	Entity
	WorldFromObject *geom.Transform
	ObjectFromWorld *geom.Transform

	ReverseOrientation bool
	Material           MaterialRef
	// Index into Scene.AreaLights, or -1 when the shape is not emissive.
	AreaLightIndex int
	InsideMedium   string
	OutsideMedium  string
}

// AnimatedShapeEntity is a shape whose placement differs between the two
// transform key times.
type AnimatedShapeEntity struct {
	Entity
	WorldFromObject AnimatedTransform
	// Identity is the cached identity handle standing in for the
	// object-from-world direction; consumers apply the animated
	// transform on top of it.
	Identity *geom.Transform

	ReverseOrientation bool
	Material           MaterialRef
	AreaLightIndex     int
	InsideMedium       string
	OutsideMedium      string
}

// InstanceDefinition is the geometry recorded between ObjectBegin and
// ObjectEnd, replayed by ObjectInstance.
type InstanceDefinition struct {
	Name           string
	Loc            lumen.FileLoc
	Shapes         []ShapeEntity
	AnimatedShapes []AnimatedShapeEntity
}

// InstanceEntity is one use of an instance definition. Exactly one of
// WorldFromInstance and AnimatedWorldFromInstance is set, depending on
// whether the current transform was animated at the ObjectInstance.
type InstanceEntity struct {
	Name string
	Loc  lumen.FileLoc

	WorldFromInstance         *geom.Transform
	AnimatedWorldFromInstance AnimatedTransform
}

// NamedTexture pairs a user-chosen texture name with the texture entity
// it declares. The entity's Name is the texture class ("imagemap",
// "scale", ...).
type NamedTexture struct {
	Name    string
	Texture TransformedEntity
}

// Scene is the entity graph a [Builder] produces: the pre-world
// configuration plus everything declared inside the world block, with
// transforms resolved and deduplicated.
type Scene struct {
	Options *lumen.RenderOptions

	Camera      CameraEntity
	Film        Entity
	Sampler     Entity
	Filter      Entity
	Integrator  Entity
	Accelerator Entity

	// Materials[0] is the default material, bound to shapes declared
	// before any Material directive.
	Materials      []Entity
	NamedMaterials map[string]Entity

	Media            map[string]TransformedEntity
	FloatTextures    []NamedTexture
	SpectrumTextures []NamedTexture

	Lights     []LightEntity
	AreaLights []Entity

	Shapes         []ShapeEntity
	AnimatedShapes []AnimatedShapeEntity

	InstanceDefinitions map[string]*InstanceDefinition
	Instances           []InstanceEntity
}
