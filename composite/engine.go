// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package composite turns a committed render tree into draw calls.
//
// Every frame runs two depth-first passes over the tree. UpdatePass
// samples animations and computes each layer's draw transform, opacity,
// clip and visibility, accumulating the dirty region. DrawPass uploads
// pending content and draws it back to front, punching holes for external
// surfaces and clipping rotated masks through the stencil buffer.
//
// An Engine is owned by the compositing goroutine.
package composite

import (
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/gpu"
	"github.com/gogpu/compositor/layer"
	"github.com/gogpu/compositor/texture"
)

// State is the engine's position in the frame cycle.
type State int

const (
	// Idle is between frames.
	Idle State = iota
	// UpdatePass is computing draw transforms.
	UpdatePass
	// DrawPass is issuing draw calls.
	DrawPass
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case UpdatePass:
		return "UpdatePass"
	case DrawPass:
		return "DrawPass"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Engine errors.
var (
	// ErrNoDevice is returned by New without a device.
	ErrNoDevice = errors.New("composite: device is nil")

	// ErrClosed is returned by frames on a closed engine.
	ErrClosed = errors.New("composite: engine closed")

	// ErrBusy is returned when a frame starts while another is running.
	ErrBusy = errors.New("composite: frame already in progress")
)

// DefaultBorderColor is the debug border colour of layers without one.
var DefaultBorderColor = color.RGBA{R: 0xff, G: 0x40, B: 0x40, A: 0xff}

// DefaultBorderWidth is the debug border width of layers without one.
const DefaultBorderWidth = 2

// Option configures an Engine.
type Option func(*options)

type options struct {
	debugBorders bool
	placeholders bool
	clear        color.RGBA
}

// WithDebugBorders outlines every visible layer.
func WithDebugBorders(on bool) Option {
	return func(o *options) { o.debugBorders = on }
}

// WithPlaceholders draws a checkerboard over content that has not been
// uploaded yet.
func WithPlaceholders(on bool) Option {
	return func(o *options) { o.placeholders = on }
}

// WithClearColor sets the colour the viewport is cleared to.
func WithClearColor(c color.RGBA) Option {
	return func(o *options) { o.clear = c }
}

// Viewport locates the visible part of the page. Fixed-position layers
// are re-anchored from the layout rect to the visible rect.
type Viewport struct {
	// Visible is the visible rect in page coordinates.
	Visible geom.Rect

	// Layout is the rect fixed-position layers were laid out against.
	Layout geom.Rect

	// ContentsSize is the size of the whole page.
	ContentsSize geom.Size
}

// Engine draws render trees onto a device.
type Engine struct {
	dev       gpu.Device
	caps      gpu.Capabilities
	opts      options
	resources *ResourceTable

	layers   map[layer.ID]*layer.RenderNode
	releases texture.ReleaseList

	state     State
	viewport  Viewport
	dest      geom.IntRect
	now       time.Time
	result    FrameResult
	lastEmpty bool
	closed    bool
}

var _ layer.Renderer = (*Engine)(nil)

// New creates an engine drawing on dev.
func New(dev gpu.Device, opts ...Option) (*Engine, error) {
	if dev == nil {
		return nil, ErrNoDevice
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	res, err := NewResourceTable(dev)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		dev:       dev,
		caps:      dev.Capabilities(),
		opts:      o,
		resources: res,
		layers:    make(map[layer.ID]*layer.RenderNode),
	}
	slogger().Info("composite: engine created", "device", e.caps.Name, "maxTexture", e.caps.MaxTextureSize)
	return e, nil
}

// AddLayer registers n. The update pass calls it the first time it meets
// a node.
func (e *Engine) AddLayer(n *layer.RenderNode) {
	e.layers[n.ID()] = n
}

// RemoveLayer unregisters n.
func (e *Engine) RemoveLayer(n *layer.RenderNode) {
	delete(e.layers, n.ID())
}

// Device returns the device the engine draws on.
func (e *Engine) Device() gpu.Device { return e.dev }

// Capabilities returns the device limits read at creation.
func (e *Engine) Capabilities() gpu.Capabilities { return e.caps }

// Resources returns the shared resource table.
func (e *Engine) Resources() *ResourceTable { return e.resources }

// State returns the current frame state.
func (e *Engine) State() State { return e.state }

// Len returns the number of registered layers.
func (e *Engine) Len() int { return len(e.layers) }

// LastResult returns the result of the last frame.
func (e *Engine) LastResult() FrameResult { return e.result }

// Render runs both passes over the sublayers of root onto dest. Drawing is
// skipped when this frame and the previous one have empty dirty regions.
func (e *Engine) Render(root *layer.RenderNode, dest geom.IntRect, vp Viewport, now time.Time) (FrameResult, error) {
	if e.closed {
		return FrameResult{}, ErrClosed
	}
	if e.state != Idle {
		return FrameResult{}, ErrBusy
	}

	res := e.Update(root, dest, vp, now)
	if res.Empty() && res.WasEmpty {
		res.Skipped = true
		e.result = res
		slogger().Debug("composite: frame skipped")
		return res, nil
	}
	res, err := e.Draw(root)
	return res, err
}

// Close releases every texture of the registered layers and the shared
// resources. The device itself stays open.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.releases.Flush()
	for id, n := range e.layers {
		n.DeleteTextures()
		n.SetRenderer(nil)
		delete(e.layers, id)
	}
	e.resources.Release()
	slogger().Info("composite: engine closed")
	return nil
}
