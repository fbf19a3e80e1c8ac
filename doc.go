// Package lumen is the scene-description front end of an offline renderer.
//
// # Overview
//
// lumen does not tokenize or parse scene files itself. An external parser
// splits the input into directives (Shape, Material, Translate, ...) and
// drives an implementation of the scene.Directives contract with one call
// per directive, in file order. Two implementations are provided:
//
//   - scene.Builder resolves the directive stream into a render-ready
//     scene graph (scene.Scene) and hands it to a render callback at
//     WorldEnd.
//   - scene.Formatter re-emits the stream as canonical text, optionally
//     upgrading deprecated directive forms to the current schema.
//
// # Quick Start
//
//	import (
//	    "github.com/lumenray/lumen"
//	    "github.com/lumenray/lumen/scene"
//	)
//
//	opts := lumen.DefaultRenderOptions()
//	b := scene.NewBuilder(&opts, func(s *scene.Scene) error {
//	    // hand the finished graph to the render driver
//	    return render(s)
//	})
//	// the parser calls b.Camera(...), b.WorldBegin(...), b.Shape(...), ...
//
// # Architecture
//
// The library is organized into:
//   - Root package: file locations, render options, logging.
//   - geom: transforms backed by 4x4 matrices.
//   - param: parsed parameters and typed parameter dictionaries.
//   - intern: content-addressed value interning (the transform cache).
//   - scene: the directive contract, graph builder, and re-emitter.
//
// # Out of Scope
//
// Sampling, light transport, texture evaluation, BSDF construction,
// acceleration structures, and the pixel loop are collaborators: lumen
// produces the entities they consume and stores their parameter
// dictionaries opaquely.
package lumen

// Version information
const (
	// Version is the current version of the library
	Version = "0.2.0"
)
