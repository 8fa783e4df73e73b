package main

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
	"time"

	"golang.org/x/image/draw"

	"github.com/gogpu/compositor/animation"
	"github.com/gogpu/compositor/layer"
)

// defaultDuration is used by animations without a duration.
const defaultDuration = time.Second

func buildRuns(anims []Animation) ([]*animation.Run, error) {
	runs := make([]*animation.Run, 0, len(anims))
	for i, a := range anims {
		r, err := buildRun(a)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		runs = append(runs, r)
	}
	return runs, nil
}

func buildRun(a Animation) (*animation.Run, error) {
	r := &animation.Run{
		Name:           a.Property,
		Duration:       a.Duration,
		IterationCount: a.Iterations,
	}
	if r.Duration == 0 {
		r.Duration = defaultDuration
	}
	switch a.Property {
	case "opacity":
		r.Property = animation.PropertyOpacity
	case "transform":
		r.Property = animation.PropertyTransform
	default:
		return nil, fmt.Errorf("unknown property %q", a.Property)
	}
	switch a.Direction {
	case "", "normal":
		r.Direction = animation.Normal
	case "alternate":
		r.Direction = animation.Alternate
	default:
		return nil, fmt.Errorf("unknown direction %q", a.Direction)
	}
	if a.Timing != "" {
		tf, err := parseTiming(a.Timing)
		if err != nil {
			return nil, err
		}
		r.Timing = tf
	}
	for _, k := range a.Keyframes {
		kf := animation.Keyframe{Time: k.Time, Opacity: k.Opacity, Transform: k.transform()}
		if k.Timing != "" {
			tf, err := parseTiming(k.Timing)
			if err != nil {
				return nil, err
			}
			kf.Timing = tf
		}
		r.Keyframes = append(r.Keyframes, kf)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// transform returns the keyframe's function list. Every keyframe of a
// run lists the same functions in the same order, so they blend op by op.
func (k Keyframe) transform() animation.TransformList {
	var list animation.TransformList
	if k.X != nil || k.Y != nil {
		var t animation.Translate
		if k.X != nil {
			t.X = *k.X
		}
		if k.Y != nil {
			t.Y = *k.Y
		}
		list = append(list, t)
	}
	if k.Rotate != nil {
		list = append(list, animation.Rotate{Angle: radians(*k.Rotate)})
	}
	if k.Scale != nil {
		list = append(list, animation.Scale{X: *k.Scale, Y: *k.Scale, Z: 1})
	}
	return list
}

var namedTimings = map[string]animation.TimingFunction{
	"linear":      animation.Linear{},
	"ease":        animation.Ease,
	"ease-in":     animation.EaseIn,
	"ease-out":    animation.EaseOut,
	"ease-in-out": animation.EaseInOut,
}

// parseTiming parses a CSS-style timing function such as "ease-in",
// "steps(4, start)" or "cubic-bezier(0.1, 0.7, 1, 0.1)".
func parseTiming(s string) (animation.TimingFunction, error) {
	s = strings.TrimSpace(s)
	if tf, ok := namedTimings[s]; ok {
		return tf, nil
	}
	name, rest, ok := strings.Cut(s, "(")
	args, closed := strings.CutSuffix(rest, ")")
	if !ok || !closed {
		return nil, fmt.Errorf("unknown timing function %q", s)
	}
	parts := strings.Split(args, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	switch name {
	case "steps":
		if len(parts) > 2 {
			return nil, fmt.Errorf("steps wants 1 or 2 arguments, got %q", s)
		}
		n, err := strconv.Atoi(parts[0])
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("steps count in %q must be a positive integer", s)
		}
		st := animation.Steps{N: n}
		if len(parts) == 2 {
			switch parts[1] {
			case "start":
				st.AtStart = true
			case "end":
			default:
				return nil, fmt.Errorf("steps position %q: want start or end", parts[1])
			}
		}
		return st, nil
	case "cubic-bezier":
		if len(parts) != 4 {
			return nil, fmt.Errorf("cubic-bezier wants 4 arguments, got %q", s)
		}
		var v [4]float64
		for i, p := range parts {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return nil, fmt.Errorf("cubic-bezier argument %q: %w", p, err)
			}
			v[i] = f
		}
		return animation.CubicBezier{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}, nil
	}
	return nil, fmt.Errorf("unknown timing function %q", s)
}

// patterns are the built-in painters a layer can draw its own content with.
var patterns = map[string]layer.Painter{
	"checker": layer.PainterFunc(paintChecker),
	"stripes": layer.PainterFunc(paintStripes),
}

const patternCell = 16

var (
	patternLight = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	patternDark  = color.RGBA{R: 0x55, G: 0x55, B: 0x66, A: 0xff}
)

func paintChecker(dst *image.RGBA, dirty image.Rectangle) {
	draw.Draw(dst, dirty, image.NewUniform(patternLight), image.Point{}, draw.Src)
	for y := dirty.Min.Y / patternCell * patternCell; y < dirty.Max.Y; y += patternCell {
		for x := dirty.Min.X / patternCell * patternCell; x < dirty.Max.X; x += patternCell {
			if (x/patternCell+y/patternCell)%2 == 0 {
				continue
			}
			cell := image.Rect(x, y, x+patternCell, y+patternCell).Intersect(dirty)
			draw.Draw(dst, cell, image.NewUniform(patternDark), image.Point{}, draw.Src)
		}
	}
}

func paintStripes(dst *image.RGBA, dirty image.Rectangle) {
	for y := dirty.Min.Y; y < dirty.Max.Y; y++ {
		c := patternLight
		if (y/patternCell)%2 == 1 {
			c = patternDark
		}
		draw.Draw(dst, image.Rect(dirty.Min.X, y, dirty.Max.X, y+1), image.NewUniform(c), image.Point{}, draw.Src)
	}
}
