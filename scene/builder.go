package scene

import (
	"fmt"

	"golang.org/x/image/math/f64"

	"github.com/lumenray/lumen"
	"github.com/lumenray/lumen/geom"
	"github.com/lumenray/lumen/intern"
	"github.com/lumenray/lumen/param"
)

// RenderFunc receives the finished entity graph at WorldEnd. The graph
// is immutable from that point; the function may hand it to concurrent
// consumers.
type RenderFunc func(*Scene) error

type apiState int

const (
	apiUninitialized apiState = iota
	apiOptionsBlock
	apiWorldBlock
)

// Builder interprets a directive stream into a [Scene]. Create one with
// [NewBuilder], feed it directives in stream order, and finish with
// WorldEnd, which invokes the render callback on the completed graph.
//
// A Builder is single-owner and not safe for concurrent use. Directive
// methods return a non-nil error only for fatal stream defects;
// recoverable problems are logged and the directive becomes a no-op.
type Builder struct {
	opts   *lumen.RenderOptions
	render RenderFunc

	state         apiState
	renderInvoked bool
	scene         *Scene

	curTransform       transformSet
	activeBits         uint32
	transformStartTime float64
	transformEndTime   float64

	// Per-slot translation taking the camera origin to the world
	// origin, established by Camera. Instance stamps compose with it so
	// instanced geometry stays camera-relative.
	renderFromWorld transformSet

	namedCoordinateSystems map[string]transformSet
	cache                  *TransformCache

	graphics         graphicsState
	pushedGraphics   []graphicsState
	pushedTransforms []transformSet
	pushedActiveBits []uint32
	nesting          nestingStack

	currentInstance *InstanceDefinition

	instancesCreated int
	instancesUsed    int
}

// NewBuilder returns a Builder in the options block with an identity
// transform on both time slots. opts may be nil; render may be nil, in
// which case WorldEnd only finalizes the graph (retrieve it with
// [Builder.Scene]).
func NewBuilder(opts *lumen.RenderOptions, render RenderFunc) *Builder {
	if opts == nil {
		def := lumen.DefaultRenderOptions()
		opts = &def
	}
	return &Builder{
		opts:   opts,
		render: render,

		state:              apiOptionsBlock,
		curTransform:       identitySet(),
		activeBits:         allTransformsBits,
		transformStartTime: 0,
		transformEndTime:   1,
		renderFromWorld:    identitySet(),

		namedCoordinateSystems: make(map[string]transformSet),
		cache:                  NewTransformCache(),

		graphics: defaultGraphicsState(),

		scene: &Scene{
			Options: opts,
			Materials: []Entity{
				{Name: "diffuse", Parameters: param.NewDictionary(nil, param.SRGB)},
			},
			Filter:              Entity{Name: "gaussian", Parameters: param.NewDictionary(nil, param.SRGB)},
			Film:                Entity{Name: "rgb", Parameters: param.NewDictionary(nil, param.SRGB)},
			NamedMaterials:      make(map[string]Entity),
			Media:               make(map[string]TransformedEntity),
			InstanceDefinitions: make(map[string]*InstanceDefinition),
		},
	}
}

// Scene returns the entity graph built so far. It is only complete
// after WorldEnd.
func (b *Builder) Scene() *Scene { return b.scene }

// TransformCacheStats reports how well transform deduplication worked.
func (b *Builder) TransformCacheStats() intern.Stats { return b.cache.Stats() }

func logIgnored(directive, reason string, loc lumen.FileLoc) {
	lumen.Logger().Error("directive ignored",
		"directive", directive, "reason", reason, "loc", loc.String())
}

func (b *Builder) verifyInitialized(directive string, loc lumen.FileLoc) bool {
	if b.state == apiUninitialized {
		logIgnored(directive, "builder not initialized", loc)
		return false
	}
	return true
}

func (b *Builder) verifyOptions(directive string, loc lumen.FileLoc) bool {
	if !b.verifyInitialized(directive, loc) {
		return false
	}
	if b.state == apiWorldBlock {
		logIgnored(directive, "options cannot be set inside world block", loc)
		return false
	}
	return true
}

func (b *Builder) verifyWorld(directive string, loc lumen.FileLoc) bool {
	if !b.verifyInitialized(directive, loc) {
		return false
	}
	if b.state == apiOptionsBlock {
		logIgnored(directive, "scene description must be inside world block", loc)
		return false
	}
	return true
}

// forActiveTransforms applies fn to each transform slot selected by the
// ActiveTransform directives.
func (b *Builder) forActiveTransforms(fn func(t geom.Transform) geom.Transform) {
	for i := 0; i < maxTransforms; i++ {
		if b.activeBits&(1<<i) != 0 {
			b.curTransform[i] = fn(b.curTransform[i])
		}
	}
}

func (b *Builder) makeDict(params, attributes []*param.Parsed) param.Dictionary {
	return param.NewDictionaryWithAttributes(params, attributes, b.graphics.colorSpace)
}

// animatedFromSet interns both slots of ts and binds them to the
// current transform times.
func (b *Builder) animatedFromSet(ts transformSet) AnimatedTransform {
	return AnimatedTransform{
		Start:     b.cache.Lookup(ts[startTransformIndex]),
		End:       b.cache.Lookup(ts[endTransformIndex]),
		StartTime: b.transformStartTime,
		EndTime:   b.transformEndTime,
	}
}

// Option applies a rendering option. Unknown names and malformed values
// are fatal.
func (b *Builder) Option(name, value string, loc lumen.FileLoc) error {
	if !b.verifyInitialized("Option", loc) {
		return nil
	}
	return b.opts.Apply(name, value, loc)
}

func (b *Builder) Identity(loc lumen.FileLoc) error {
	if !b.verifyInitialized("Identity", loc) {
		return nil
	}
	b.forActiveTransforms(func(geom.Transform) geom.Transform {
		return geom.Identity()
	})
	return nil
}

func (b *Builder) Translate(dx, dy, dz float64, loc lumen.FileLoc) error {
	if !b.verifyInitialized("Translate", loc) {
		return nil
	}
	t := geom.Translate(geom.Vector3{X: dx, Y: dy, Z: dz})
	b.forActiveTransforms(func(cur geom.Transform) geom.Transform {
		return cur.Mul(t)
	})
	return nil
}

func (b *Builder) Rotate(angle, ax, ay, az float64, loc lumen.FileLoc) error {
	if !b.verifyInitialized("Rotate", loc) {
		return nil
	}
	r := geom.Rotate(angle, geom.Vector3{X: ax, Y: ay, Z: az})
	b.forActiveTransforms(func(cur geom.Transform) geom.Transform {
		return cur.Mul(r)
	})
	return nil
}

func (b *Builder) Scale(sx, sy, sz float64, loc lumen.FileLoc) error {
	if !b.verifyInitialized("Scale", loc) {
		return nil
	}
	s := geom.Scale(sx, sy, sz)
	b.forActiveTransforms(func(cur geom.Transform) geom.Transform {
		return cur.Mul(s)
	})
	return nil
}

func (b *Builder) LookAt(ex, ey, ez, lx, ly, lz, ux, uy, uz float64, loc lumen.FileLoc) error {
	if !b.verifyInitialized("LookAt", loc) {
		return nil
	}
	// The current transform accumulates world-to-camera, so compose
	// with the inverse of the camera-to-world transform.
	l := geom.LookAt(
		geom.Point3{X: ex, Y: ey, Z: ez},
		geom.Point3{X: lx, Y: ly, Z: lz},
		geom.Vector3{X: ux, Y: uy, Z: uz},
	).Inverse()
	b.forActiveTransforms(func(cur geom.Transform) geom.Transform {
		return cur.Mul(l)
	})
	return nil
}

// ConcatTransform composes m, given column-major as in the text format,
// onto the active transform slots.
func (b *Builder) ConcatTransform(m f64.Mat4, loc lumen.FileLoc) error {
	if !b.verifyInitialized("ConcatTransform", loc) {
		return nil
	}
	t, _ := geom.FromMatrix(m)
	t = t.Transpose()
	b.forActiveTransforms(func(cur geom.Transform) geom.Transform {
		return cur.Mul(t)
	})
	return nil
}

// Transform replaces the active transform slots with m, given
// column-major as in the text format.
func (b *Builder) Transform(m f64.Mat4, loc lumen.FileLoc) error {
	if !b.verifyInitialized("Transform", loc) {
		return nil
	}
	t, _ := geom.FromMatrix(m)
	t = t.Transpose()
	b.forActiveTransforms(func(geom.Transform) geom.Transform {
		return t
	})
	return nil
}

func (b *Builder) CoordinateSystem(name string, loc lumen.FileLoc) error {
	if !b.verifyInitialized("CoordinateSystem", loc) {
		return nil
	}
	b.namedCoordinateSystems[name] = b.curTransform
	return nil
}

func (b *Builder) CoordSysTransform(name string, loc lumen.FileLoc) error {
	if !b.verifyInitialized("CoordSysTransform", loc) {
		return nil
	}
	ts, ok := b.namedCoordinateSystems[name]
	if !ok {
		lumen.Logger().Warn("unknown named coordinate system",
			"name", name, "loc", loc.String())
		return nil
	}
	b.curTransform = ts
	return nil
}

func (b *Builder) ActiveTransformAll(loc lumen.FileLoc) error {
	b.activeBits = allTransformsBits
	return nil
}

func (b *Builder) ActiveTransformStartTime(loc lumen.FileLoc) error {
	b.activeBits = startTransformBit
	return nil
}

func (b *Builder) ActiveTransformEndTime(loc lumen.FileLoc) error {
	b.activeBits = endTransformBit
	return nil
}

func (b *Builder) TransformTimes(start, end float64, loc lumen.FileLoc) error {
	if !b.verifyOptions("TransformTimes", loc) {
		return nil
	}
	b.transformStartTime = start
	b.transformEndTime = end
	return nil
}

func (b *Builder) ColorSpace(name string, loc lumen.FileLoc) error {
	if !b.verifyInitialized("ColorSpace", loc) {
		return nil
	}
	cs := param.NamedColorSpace(name)
	if cs == nil {
		logIgnored("ColorSpace", fmt.Sprintf("unknown color space %q", name), loc)
		return nil
	}
	b.graphics.colorSpace = cs
	return nil
}

// Camera records the camera and re-bases the world so that the camera
// origin becomes the world origin: for each time slot a translation-only
// correction is derived and later composed onto instance stamps.
func (b *Builder) Camera(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	if !b.verifyOptions("Camera", loc) {
		return nil
	}
	cameraFromWorld := b.curTransform
	worldFromCamera := cameraFromWorld.inverse()
	b.namedCoordinateSystems["camera"] = worldFromCamera

	var rebased transformSet
	for i := range worldFromCamera {
		p := worldFromCamera[i].ApplyPoint(geom.Point3{})
		b.renderFromWorld[i] = geom.Translate(geom.Vector3{X: -p.X, Y: -p.Y, Z: -p.Z})
		rebased[i] = b.renderFromWorld[i].Mul(worldFromCamera[i])
	}

	b.scene.Camera = CameraEntity{
		Entity: Entity{
			Name:       name,
			Parameters: b.makeDict(params, nil),
			Loc:        loc,
		},
		WorldFromCamera: b.animatedFromSet(rebased),
		Medium:          b.graphics.currentOutsideMedium,
	}
	return nil
}

func (b *Builder) Film(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	if !b.verifyOptions("Film", loc) {
		return nil
	}
	b.scene.Film = Entity{Name: name, Parameters: b.makeDict(params, nil), Loc: loc}
	return nil
}

func (b *Builder) Sampler(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	if !b.verifyOptions("Sampler", loc) {
		return nil
	}
	b.scene.Sampler = Entity{Name: name, Parameters: b.makeDict(params, nil), Loc: loc}
	return nil
}

func (b *Builder) Filter(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	if !b.verifyOptions("Filter", loc) {
		return nil
	}
	b.scene.Filter = Entity{Name: name, Parameters: b.makeDict(params, nil), Loc: loc}
	return nil
}

func (b *Builder) Integrator(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	if !b.verifyOptions("Integrator", loc) {
		return nil
	}
	b.scene.Integrator = Entity{Name: name, Parameters: b.makeDict(params, nil), Loc: loc}
	return nil
}

func (b *Builder) Accelerator(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	if !b.verifyOptions("Accelerator", loc) {
		return nil
	}
	b.scene.Accelerator = Entity{Name: name, Parameters: b.makeDict(params, nil), Loc: loc}
	return nil
}

func (b *Builder) WorldBegin(loc lumen.FileLoc) error {
	if !b.verifyOptions("WorldBegin", loc) {
		return nil
	}
	b.state = apiWorldBlock
	b.curTransform = identitySet()
	b.activeBits = allTransformsBits
	b.namedCoordinateSystems["world"] = b.curTransform
	return nil
}

func (b *Builder) AttributeBegin(loc lumen.FileLoc) error {
	if !b.verifyWorld("AttributeBegin", loc) {
		return nil
	}
	b.pushedGraphics = append(b.pushedGraphics, b.graphics.clone())
	b.pushedTransforms = append(b.pushedTransforms, b.curTransform)
	b.pushedActiveBits = append(b.pushedActiveBits, b.activeBits)
	b.nesting.push(scopeAttribute, loc)
	return nil
}

func (b *Builder) AttributeEnd(loc lumen.FileLoc) error {
	if !b.verifyWorld("AttributeEnd", loc) {
		return nil
	}
	if err := b.nesting.pop(scopeAttribute, loc); err != nil {
		return err
	}
	b.popState()
	return nil
}

// popState restores the most recently pushed graphics state, transform
// set, and active bits. The caller has already validated nesting.
func (b *Builder) popState() {
	b.graphics = b.pushedGraphics[len(b.pushedGraphics)-1]
	b.pushedGraphics = b.pushedGraphics[:len(b.pushedGraphics)-1]
	b.curTransform = b.pushedTransforms[len(b.pushedTransforms)-1]
	b.pushedTransforms = b.pushedTransforms[:len(b.pushedTransforms)-1]
	b.activeBits = b.pushedActiveBits[len(b.pushedActiveBits)-1]
	b.pushedActiveBits = b.pushedActiveBits[:len(b.pushedActiveBits)-1]
}

func (b *Builder) TransformBegin(loc lumen.FileLoc) error {
	if !b.verifyWorld("TransformBegin", loc) {
		return nil
	}
	b.pushedTransforms = append(b.pushedTransforms, b.curTransform)
	b.pushedActiveBits = append(b.pushedActiveBits, b.activeBits)
	b.nesting.push(scopeTransform, loc)
	return nil
}

func (b *Builder) TransformEnd(loc lumen.FileLoc) error {
	if !b.verifyWorld("TransformEnd", loc) {
		return nil
	}
	if err := b.nesting.pop(scopeTransform, loc); err != nil {
		return err
	}
	b.curTransform = b.pushedTransforms[len(b.pushedTransforms)-1]
	b.pushedTransforms = b.pushedTransforms[:len(b.pushedTransforms)-1]
	b.activeBits = b.pushedActiveBits[len(b.pushedActiveBits)-1]
	b.pushedActiveBits = b.pushedActiveBits[:len(b.pushedActiveBits)-1]
	return nil
}

// Attribute stages parameter overrides that apply to later entities of
// the target kind within the current scope. An unknown target is fatal.
func (b *Builder) Attribute(target string, params []*param.Parsed, loc lumen.FileLoc) error {
	if !b.verifyInitialized("Attribute", loc) {
		return nil
	}
	var dst *[]*param.Parsed
	switch target {
	case "shape":
		dst = &b.graphics.shapeAttributes
	case "light":
		dst = &b.graphics.lightAttributes
	case "material":
		dst = &b.graphics.materialAttributes
	case "medium":
		dst = &b.graphics.mediumAttributes
	case "texture":
		dst = &b.graphics.textureAttributes
	default:
		return fmt.Errorf("scene: %s: unknown attribute target %q", loc, target)
	}
	for _, p := range params {
		p.MayBeUnused = true
		p.ColorSpace = b.graphics.colorSpace
		*dst = append(*dst, p)
	}
	return nil
}

func (b *Builder) Texture(name, texType, className string, params []*param.Parsed, loc lumen.FileLoc) error {
	if !b.verifyWorld("Texture", loc) {
		return nil
	}
	if texType != "float" && texType != "spectrum" {
		return fmt.Errorf("scene: %s: texture type %q unknown", loc, texType)
	}
	list := &b.scene.SpectrumTextures
	if texType == "float" {
		list = &b.scene.FloatTextures
	}
	for _, t := range *list {
		if t.Name == name {
			return fmt.Errorf("scene: %s: redefining %s texture %q, first defined at %s",
				loc, texType, name, t.Texture.Loc)
		}
	}
	*list = append(*list, NamedTexture{
		Name: name,
		Texture: TransformedEntity{
			Entity: Entity{
				Name:       className,
				Parameters: b.makeDict(params, b.graphics.textureAttributes),
				Loc:        loc,
			},
			WorldFromObject: b.animatedFromSet(b.curTransform),
		},
	})
	return nil
}

func (b *Builder) Material(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	if !b.verifyWorld("Material", loc) {
		return nil
	}
	b.scene.Materials = append(b.scene.Materials, Entity{
		Name:       name,
		Parameters: b.makeDict(params, b.graphics.materialAttributes),
		Loc:        loc,
	})
	b.graphics.currentMaterial = MaterialIndex(len(b.scene.Materials) - 1)
	return nil
}

func (b *Builder) MakeNamedMaterial(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	if !b.verifyWorld("MakeNamedMaterial", loc) {
		return nil
	}
	if prev, ok := b.scene.NamedMaterials[name]; ok {
		return fmt.Errorf("scene: %s: named material %q redefined, first defined at %s",
			loc, name, prev.Loc)
	}
	b.scene.NamedMaterials[name] = Entity{
		Parameters: b.makeDict(params, b.graphics.materialAttributes),
		Loc:        loc,
	}
	return nil
}

func (b *Builder) NamedMaterial(name string, loc lumen.FileLoc) error {
	if !b.verifyWorld("NamedMaterial", loc) {
		return nil
	}
	b.graphics.currentMaterial = MaterialName(name)
	return nil
}

func (b *Builder) MakeNamedMedium(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	if !b.verifyInitialized("MakeNamedMedium", loc) {
		return nil
	}
	if prev, ok := b.scene.Media[name]; ok {
		return fmt.Errorf("scene: %s: named medium %q redefined, first defined at %s",
			loc, name, prev.Loc)
	}
	if b.curTransform.isAnimated() {
		lumen.Logger().Warn("animated transform on named medium; using start-time transform",
			"medium", name, "loc", loc.String())
	}
	b.scene.Media[name] = TransformedEntity{
		Entity: Entity{
			Name:       name,
			Parameters: b.makeDict(params, b.graphics.mediumAttributes),
			Loc:        loc,
		},
		WorldFromObject: b.animatedFromSet(b.curTransform),
	}
	return nil
}

func (b *Builder) MediumInterface(inside, outside string, loc lumen.FileLoc) error {
	if !b.verifyInitialized("MediumInterface", loc) {
		return nil
	}
	b.graphics.currentInsideMedium = inside
	b.graphics.currentOutsideMedium = outside
	return nil
}

func (b *Builder) LightSource(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	if !b.verifyWorld("LightSource", loc) {
		return nil
	}
	b.scene.Lights = append(b.scene.Lights, LightEntity{
		Entity: Entity{
			Name:       name,
			Parameters: b.makeDict(params, b.graphics.lightAttributes),
			Loc:        loc,
		},
		WorldFromLight: b.animatedFromSet(b.curTransform),
		Medium:         b.graphics.currentOutsideMedium,
	})
	return nil
}

// AreaLightSource stages a pending area light. It takes effect when a
// later Shape in this scope commits it; each such shape gets its own
// copy of the template.
func (b *Builder) AreaLightSource(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	if !b.verifyWorld("AreaLightSource", loc) {
		return nil
	}
	b.graphics.areaLightName = name
	b.graphics.areaLightParams = b.makeDict(params, b.graphics.lightAttributes)
	b.graphics.areaLightLoc = loc
	return nil
}

func (b *Builder) ReverseOrientation(loc lumen.FileLoc) error {
	if !b.verifyWorld("ReverseOrientation", loc) {
		return nil
	}
	b.graphics.reverseOrientation = !b.graphics.reverseOrientation
	return nil
}

func (b *Builder) Shape(name string, params []*param.Parsed, loc lumen.FileLoc) error {
	if !b.verifyWorld("Shape", loc) {
		return nil
	}
	dict := b.makeDict(params, b.graphics.shapeAttributes)

	areaLightIndex := -1
	if b.graphics.areaLightName != "" {
		if b.currentInstance != nil {
			lumen.Logger().Warn("area lights not supported with object instancing; ignored",
				"loc", loc.String())
		} else {
			b.scene.AreaLights = append(b.scene.AreaLights, Entity{
				Name:       b.graphics.areaLightName,
				Parameters: b.graphics.areaLightParams.Clone(),
				Loc:        b.graphics.areaLightLoc,
			})
			areaLightIndex = len(b.scene.AreaLights) - 1
		}
	}

	if b.curTransform.isAnimated() {
		entity := AnimatedShapeEntity{
			Entity:             Entity{Name: name, Parameters: dict, Loc: loc},
			WorldFromObject:    b.animatedFromSet(b.curTransform),
			Identity:           b.cache.Lookup(geom.Identity()),
			ReverseOrientation: b.graphics.reverseOrientation,
			Material:           b.graphics.currentMaterial,
			AreaLightIndex:     areaLightIndex,
			InsideMedium:       b.graphics.currentInsideMedium,
			OutsideMedium:      b.graphics.currentOutsideMedium,
		}
		if b.currentInstance != nil {
			b.currentInstance.AnimatedShapes = append(b.currentInstance.AnimatedShapes, entity)
		} else {
			b.scene.AnimatedShapes = append(b.scene.AnimatedShapes, entity)
		}
		return nil
	}

	entity := ShapeEntity{
		Entity:             Entity{Name: name, Parameters: dict, Loc: loc},
		WorldFromObject:    b.cache.Lookup(b.curTransform[startTransformIndex]),
		ObjectFromWorld:    b.cache.Lookup(b.curTransform[startTransformIndex].Inverse()),
		ReverseOrientation: b.graphics.reverseOrientation,
		Material:           b.graphics.currentMaterial,
		AreaLightIndex:     areaLightIndex,
		InsideMedium:       b.graphics.currentInsideMedium,
		OutsideMedium:      b.graphics.currentOutsideMedium,
	}
	if b.currentInstance != nil {
		b.currentInstance.Shapes = append(b.currentInstance.Shapes, entity)
	} else {
		b.scene.Shapes = append(b.scene.Shapes, entity)
	}
	return nil
}

// ObjectBegin opens an instance definition. It saves state like
// AttributeBegin and tags subsequent shapes with a synthetic "name"
// attribute carrying the definition name.
func (b *Builder) ObjectBegin(name string, loc lumen.FileLoc) error {
	if !b.verifyWorld("ObjectBegin", loc) {
		return nil
	}
	if b.currentInstance != nil {
		return fmt.Errorf("scene: %s: ObjectBegin called inside of instance definition", loc)
	}
	if prev, ok := b.scene.InstanceDefinitions[name]; ok {
		return fmt.Errorf("scene: %s: instance %q redefined, first defined at %s",
			loc, name, prev.Loc)
	}

	b.pushedGraphics = append(b.pushedGraphics, b.graphics.clone())
	b.pushedTransforms = append(b.pushedTransforms, b.curTransform)
	b.pushedActiveBits = append(b.pushedActiveBits, b.activeBits)
	b.nesting.push(scopeObject, loc)

	b.graphics.shapeAttributes = append(copyParams(b.graphics.shapeAttributes), &param.Parsed{
		Type:        param.TypeString,
		Name:        "name",
		Strings:     []string{name},
		Loc:         loc,
		MayBeUnused: true,
		ColorSpace:  b.graphics.colorSpace,
	})

	def := &InstanceDefinition{Name: name, Loc: loc}
	b.scene.InstanceDefinitions[name] = def
	b.currentInstance = def
	return nil
}

func (b *Builder) ObjectEnd(loc lumen.FileLoc) error {
	if !b.verifyWorld("ObjectEnd", loc) {
		return nil
	}
	if b.currentInstance == nil {
		return fmt.Errorf("scene: %s: ObjectEnd called outside of instance definition", loc)
	}
	if err := b.nesting.pop(scopeObject, loc); err != nil {
		return err
	}
	b.currentInstance = nil
	b.popState()
	b.instancesCreated++
	return nil
}

// ObjectInstance stamps a previously defined instance at the current
// transform, composed with the camera re-basing correction.
func (b *Builder) ObjectInstance(name string, loc lumen.FileLoc) error {
	if !b.verifyWorld("ObjectInstance", loc) {
		return nil
	}
	if b.currentInstance != nil {
		return fmt.Errorf("scene: %s: ObjectInstance called inside of instance definition", loc)
	}
	if _, ok := b.scene.InstanceDefinitions[name]; !ok {
		return fmt.Errorf("scene: %s: instance %q used before it was defined", loc, name)
	}
	b.instancesUsed++

	var worldFromInstance transformSet
	for i := range worldFromInstance {
		worldFromInstance[i] = b.renderFromWorld[i].Mul(b.curTransform[i])
	}

	if b.curTransform.isAnimated() {
		b.scene.Instances = append(b.scene.Instances, InstanceEntity{
			Name:                      name,
			Loc:                       loc,
			AnimatedWorldFromInstance: b.animatedFromSet(worldFromInstance),
		})
		return nil
	}
	b.scene.Instances = append(b.scene.Instances, InstanceEntity{
		Name:              name,
		Loc:               loc,
		WorldFromInstance: b.cache.Lookup(worldFromInstance[startTransformIndex]),
	})
	return nil
}

func (b *Builder) WorldEnd(loc lumen.FileLoc) error {
	if !b.verifyWorld("WorldEnd", loc) {
		return nil
	}
	if b.renderInvoked {
		logIgnored("WorldEnd", "world already ended", loc)
		return nil
	}

	b.nesting.drain(func(e scopeEntry) {
		lumen.Logger().Warn("missing scope end at end of world",
			"begin", e.kind.beginName(), "opened", e.loc.String())
		switch e.kind {
		case scopeAttribute, scopeObject:
			b.popState()
		case scopeTransform:
			b.curTransform = b.pushedTransforms[len(b.pushedTransforms)-1]
			b.pushedTransforms = b.pushedTransforms[:len(b.pushedTransforms)-1]
			b.activeBits = b.pushedActiveBits[len(b.pushedActiveBits)-1]
			b.pushedActiveBits = b.pushedActiveBits[:len(b.pushedActiveBits)-1]
		}
	})
	b.currentInstance = nil
	b.renderInvoked = true

	stats := b.cache.Stats()
	lumen.Logger().Debug("world complete",
		"shapes", len(b.scene.Shapes),
		"animatedShapes", len(b.scene.AnimatedShapes),
		"instancesCreated", b.instancesCreated,
		"instancesUsed", b.instancesUsed,
		"transforms", stats.Len,
		"transformCacheHitRate", stats.HitRate)

	if b.render != nil {
		return b.render(b.scene)
	}
	return nil
}
