// Package compositor composites trees of layers on a GPU.
//
// # Overview
//
// Every layer exists twice. The authoring half ([layer.AuthoringNode]) is
// mutated by layout and script code on any goroutine. The render half
// ([layer.RenderNode]) is owned by the compositing goroutine, which draws
// it every frame. A commit copies the authoring tree into the render tree
// while the authoring side is paused, so drawing never observes a
// half-applied change and animations keep running while the authoring side
// is busy.
//
// # Quick Start
//
//	dev := software.New(800, 600)
//	c, err := compositor.New(dev)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	box := c.NewLayer()
//	box.SetBounds(geom.Sz(200, 100))
//	box.SetPosition(geom.Pt(150, 100))
//	box.SetBackgroundColor(color.RGBA{R: 255, A: 255})
//	c.RootLayer().AddSublayer(box)
//
//	res, err := c.CommitAndDraw(geom.IR(0, 0, 800, 600), compositor.Viewport{})
//
// # Architecture
//
// The module is organized into:
//   - geom: points, rects, quads and 4x4 matrices
//   - layer: both halves of every layer and the commit
//   - texture: tiling, upload and external buffer locking
//   - composite: the update and draw passes, stencil clipping, hole punching
//   - animation: keyframe runs sampled on the compositing goroutine
//   - gpu, gpu/software, gpu/wgpu: the device abstraction and its backends
//   - dispatch: the compositing goroutine locked to an OS thread
//
// # Coordinate System
//
// Layer positions are in page pixels with the origin at the top left and y
// growing down. FrameResult rects are window pixels with the same origin.
package compositor
