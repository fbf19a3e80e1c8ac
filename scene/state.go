package scene

import (
	"github.com/lumenray/lumen"
	"github.com/lumenray/lumen/param"
)

// graphicsState is the attribute state saved and restored by
// AttributeBegin/AttributeEnd. It has value semantics: clone produces an
// independent copy whose slices do not alias the original.
type graphicsState struct {
	currentInsideMedium  string
	currentOutsideMedium string

	currentMaterial MaterialRef

	// Pending area light, staged by AreaLightSource and committed by
	// each subsequent Shape in this scope. Not cleared on commit.
	areaLightName   string
	areaLightParams param.Dictionary
	areaLightLoc    lumen.FileLoc

	colorSpace         *param.ColorSpace
	reverseOrientation bool

	// Attribute directive overrides, folded into parameter lookups as a
	// fallback layer for the matching entity kind.
	shapeAttributes    []*param.Parsed
	lightAttributes    []*param.Parsed
	materialAttributes []*param.Parsed
	mediumAttributes   []*param.Parsed
	textureAttributes  []*param.Parsed
}

func defaultGraphicsState() graphicsState {
	return graphicsState{
		currentMaterial: MaterialIndex(0),
		colorSpace:      param.SRGB,
	}
}

func (g graphicsState) clone() graphicsState {
	c := g
	c.areaLightParams = g.areaLightParams.Clone()
	c.shapeAttributes = copyParams(g.shapeAttributes)
	c.lightAttributes = copyParams(g.lightAttributes)
	c.materialAttributes = copyParams(g.materialAttributes)
	c.mediumAttributes = copyParams(g.mediumAttributes)
	c.textureAttributes = copyParams(g.textureAttributes)
	return c
}

func copyParams(s []*param.Parsed) []*param.Parsed {
	if s == nil {
		return nil
	}
	return append([]*param.Parsed(nil), s...)
}
