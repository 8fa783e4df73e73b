package compositor

import (
	"image/color"
	"testing"
	"time"

	"github.com/gogpu/compositor/layer"
	"github.com/gogpu/compositor/texture"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.maxTileEdge != texture.MaxTileEdge {
		t.Errorf("maxTileEdge = %d, want %d", o.maxTileEdge, texture.MaxTileEdge)
	}
	if o.clock == nil {
		t.Error("clock is nil")
	}
	if o.dispatcher != nil {
		t.Errorf("dispatcher = %T, want nil so New starts a loop", o.dispatcher)
	}
	if o.debugBorders || o.placeholders || o.strict {
		t.Error("debug options should default to off")
	}
}

func TestOptions(t *testing.T) {
	fixed := time.Unix(42, 0)
	notifier := layer.CommitNotifierFunc(func() {})

	tests := []struct {
		name  string
		opt   Option
		check func(o options) bool
	}{
		{"debug borders", WithDebugBorders(true), func(o options) bool { return o.debugBorders }},
		{"placeholders", WithPlaceholders(true), func(o options) bool { return o.placeholders }},
		{"clear colour", WithClearColor(color.RGBA{A: 255}), func(o options) bool { return o.clear.A == 255 }},
		{"tile edge", WithMaxTileEdge(512), func(o options) bool { return o.maxTileEdge == 512 }},
		{"tile edge ignores zero", WithMaxTileEdge(0), func(o options) bool { return o.maxTileEdge == texture.MaxTileEdge }},
		{"notifier", WithCommitNotifier(notifier), func(o options) bool { return o.notifier != nil }},
		{"clock", WithClock(func() time.Time { return fixed }), func(o options) bool { return o.clock().Equal(fixed) }},
		{"nil clock ignored", WithClock(nil), func(o options) bool { return o.clock != nil }},
		{"strict", WithStrictInvariants(true), func(o options) bool { return o.strict }},
		{"dispatcher", WithDispatcher(layer.InlineDispatcher{}), func(o options) bool { return o.dispatcher != nil }},
		{"nil dispatcher ignored", WithDispatcher(nil), func(o options) bool { return o.dispatcher == nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := defaultOptions()
			tt.opt(&o)
			if !tt.check(o) {
				t.Errorf("%s not applied: %+v", tt.name, o)
			}
		})
	}
}
