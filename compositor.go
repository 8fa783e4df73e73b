package compositor

import (
	"errors"
	"sync/atomic"

	"github.com/gogpu/compositor/composite"
	"github.com/gogpu/compositor/dispatch"
	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/gpu"
	"github.com/gogpu/compositor/layer"
	"github.com/gogpu/compositor/texture"
)

// Viewport locates the visible part of the page.
type Viewport = composite.Viewport

// FrameResult reports what a frame touched.
type FrameResult = composite.FrameResult

// ErrClosed is returned by CommitAndDraw after Close.
var ErrClosed = errors.New("compositor: closed")

// Compositor ties an authoring tree to an engine drawing on one device.
//
// Layers are created and mutated through Tree from any goroutine.
// CommitAndDraw paints dirty layers on the calling goroutine, then copies
// the pending changes into the render tree and draws it on the
// dispatcher's goroutine. Without WithDispatcher the compositor runs its
// own dispatch.Loop.
type Compositor struct {
	opts   options
	tree   *layer.Tree
	engine *composite.Engine
	stats  *texture.Tracker
	root   *layer.AuthoringNode
	closed atomic.Bool

	// loop is the dispatcher New started, closed by Close.
	loop *dispatch.Loop
}

// New creates a compositor drawing on dev. The tree starts with an empty
// root layer, available from RootLayer.
func New(dev gpu.Device, opts ...Option) (*Compositor, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if dev == nil {
		return nil, composite.ErrNoDevice
	}
	var loop *dispatch.Loop
	if o.dispatcher == nil {
		loop = dispatch.New()
		o.dispatcher = loop
	}

	var engine *composite.Engine
	var err error
	o.dispatcher.Sync(func() {
		engine, err = composite.New(dev,
			composite.WithDebugBorders(o.debugBorders),
			composite.WithPlaceholders(o.placeholders),
			composite.WithClearColor(o.clear),
		)
	})
	if err != nil {
		if loop != nil {
			loop.Close()
		}
		return nil, err
	}

	edge := o.maxTileEdge
	if m := engine.Capabilities().MaxTextureSize; m > 0 {
		edge = min(edge, m)
	}
	stats := &texture.Tracker{}
	tree := layer.NewTree(
		layer.WithDispatcher(o.dispatcher),
		layer.WithCommitNotifier(o.notifier),
		layer.WithStats(stats),
		layer.WithTileEdge(edge),
		layer.WithStrictInvariants(o.strict),
		layer.WithClock(o.clock),
	)
	root := tree.NewLayer()
	root.SetName("root")
	tree.SetRoot(root)

	Logger().Info("compositor: created", "device", engine.Capabilities().Name, "tileEdge", edge)
	return &Compositor{
		opts:   o,
		tree:   tree,
		engine: engine,
		stats:  stats,
		root:   root,
		loop:   loop,
	}, nil
}

// Tree returns the layer tree.
func (c *Compositor) Tree() *layer.Tree { return c.tree }

// RootLayer returns the root created by New. The root is not drawn; its
// sublayers are.
func (c *Compositor) RootLayer() *layer.AuthoringNode { return c.root }

// NewLayer creates a detached layer in the compositor's tree.
func (c *Compositor) NewLayer() *layer.AuthoringNode { return c.tree.NewLayer() }

// Stats returns texture usage of every layer.
func (c *Compositor) Stats() texture.Stats { return c.stats.Stats() }

// CommitAndDraw commits pending authoring changes and draws the render
// tree into dest. Layer painters run on the calling goroutine. While a layout pass is in progress the commit is
// skipped and the previous render state is drawn.
func (c *Compositor) CommitAndDraw(dest geom.IntRect, vp Viewport) (FrameResult, error) {
	if c.closed.Load() {
		return FrameResult{}, ErrClosed
	}
	if c.tree.CommitPending() {
		c.tree.PrepareCommit()
	}
	var res FrameResult
	var err error
	c.opts.dispatcher.Sync(func() {
		committed := false
		if c.tree.CommitPending() {
			committed = c.tree.Commit()
		}
		res, err = c.engine.Render(c.tree.RenderRoot(), dest, vp, c.opts.clock())
		res.Committed = committed
	})
	return res, err
}

// Close destroys the layers and releases every texture. The device stays
// open. Close is idempotent. When New started the dispatch loop, Close
// stops it, after which layers must not be destroyed or given external
// sources.
func (c *Compositor) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	c.opts.dispatcher.Sync(func() {
		err = c.engine.Close()
	})
	c.root.Destroy()
	if c.loop != nil {
		if cerr := c.loop.Close(); err == nil {
			err = cerr
		}
	}
	Logger().Info("compositor: closed", "stats", c.stats.Stats())
	return err
}
