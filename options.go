package compositor

import (
	"image/color"
	"time"

	"github.com/gogpu/compositor/layer"
	"github.com/gogpu/compositor/texture"
)

// Option configures a Compositor during creation.
//
// Example:
//
//	c, err := compositor.New(dev,
//	    compositor.WithDebugBorders(true),
//	    compositor.WithDispatcher(loop),
//	)
type Option func(*options)

// options holds optional configuration for Compositor creation.
type options struct {
	debugBorders bool
	placeholders bool
	clear        color.RGBA
	maxTileEdge  int
	notifier     layer.CommitNotifier
	clock        func() time.Time
	strict       bool
	dispatcher   layer.Dispatcher
}

// defaultOptions returns the default compositor options.
func defaultOptions() options {
	return options{
		maxTileEdge: texture.MaxTileEdge,
		clock:       time.Now,
	}
}

// WithDebugBorders outlines every visible layer with its border colour,
// or the default debug colour when it has none.
func WithDebugBorders(on bool) Option {
	return func(o *options) {
		o.debugBorders = on
	}
}

// WithPlaceholders draws a checkerboard where layer content has not been
// uploaded yet.
func WithPlaceholders(on bool) Option {
	return func(o *options) {
		o.placeholders = on
	}
}

// WithClearColor sets the premultiplied colour each frame starts from.
func WithClearColor(c color.RGBA) Option {
	return func(o *options) {
		o.clear = c
	}
}

// WithMaxTileEdge caps the edge of content tiles. The device's maximum
// texture size caps it further. Non-positive values are ignored.
func WithMaxTileEdge(edge int) Option {
	return func(o *options) {
		if edge > 0 {
			o.maxTileEdge = edge
		}
	}
}

// WithCommitNotifier sets the callback that runs once each time the
// authoring tree goes from clean to having changes to commit. Hosts use it
// to schedule a frame.
//
// Example:
//
//	wake := make(chan struct{}, 1)
//	c, _ := compositor.New(dev, compositor.WithCommitNotifier(
//	    layer.CommitNotifierFunc(func() {
//	        select {
//	        case wake <- struct{}{}:
//	        default:
//	        }
//	    }),
//	))
func WithCommitNotifier(n layer.CommitNotifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithClock sets the time source for animations. Tests use it to step
// time deterministically.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithStrictInvariants makes broken tree invariants panic instead of
// logging a warning.
func WithStrictInvariants(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithDispatcher routes commits, draws and synchronous layer calls to the
// compositing goroutine, typically a [dispatch.Loop] the host also drives
// frames from. Without it New starts a loop of its own and Close stops it.
// A layer.InlineDispatcher is only safe when the host calls everything,
// authoring included, from one goroutine.
//
// [dispatch.Loop]: github.com/gogpu/compositor/dispatch.Loop
func WithDispatcher(d layer.Dispatcher) Option {
	return func(o *options) {
		if d != nil {
			o.dispatcher = d
		}
	}
}
