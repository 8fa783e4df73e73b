// Command compdemo renders a YAML layer scene with the compositor and
// writes the frame as a PNG.
//
// Usage:
//
//	compdemo -scene testdata/scene.yaml -frames 30 -output frame.png
//	compdemo -scene scene.yaml -watch
//
// With -watch the scene file is reloaded whenever it changes and a new
// PNG is written after every commit, until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/dispatch"
	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/gpu"
)

type config struct {
	scene   string
	output  string
	device  string
	frames  int
	fps     int
	watch   bool
	borders bool
}

func main() {
	var (
		cfg     config
		verbose bool
	)
	flag.StringVar(&cfg.scene, "scene", "testdata/scene.yaml", "scene file")
	flag.StringVar(&cfg.output, "output", "frame.png", "output file")
	flag.StringVar(&cfg.device, "device", "software", "device: software or wgpu")
	flag.IntVar(&cfg.frames, "frames", 1, "frames to render before writing the output")
	flag.IntVar(&cfg.fps, "fps", 60, "frame rate")
	flag.BoolVar(&cfg.watch, "watch", false, "reload the scene when it changes")
	flag.BoolVar(&cfg.borders, "borders", false, "draw debug borders")
	flag.BoolVar(&verbose, "v", false, "log debug output")
	flag.Parse()

	if verbose {
		compositor.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("compdemo: %v", err)
	}
}

// frameDevice is a device whose frames can be read back.
type frameDevice interface {
	gpu.Device
	Image() *image.RGBA
}

// errDone ends the frame loop once enough frames were drawn.
var errDone = errors.New("done")

// demo is one running scene.
type demo struct {
	cfg   config
	loop  *dispatch.Loop
	dev   frameDevice
	comp  *compositor.Compositor
	dest  geom.IntRect
	vp    compositor.Viewport
	saved int
}

func run(ctx context.Context, cfg config) error {
	if cfg.frames <= 0 || cfg.fps <= 0 {
		return errors.New("frames and fps must be positive")
	}
	scene, err := LoadScene(cfg.scene)
	if err != nil {
		return err
	}

	loop := dispatch.New()
	defer loop.Close()

	var dev frameDevice
	loop.Sync(func() { dev, err = openDevice(cfg.device, scene.Width, scene.Height) })
	if err != nil {
		return err
	}
	defer loop.Sync(func() { dev.Close() })

	comp, err := compositor.New(dev,
		compositor.WithDispatcher(loop),
		compositor.WithDebugBorders(cfg.borders),
		compositor.WithPlaceholders(true),
		compositor.WithClearColor(premultiply(scene.Background.RGBA)),
	)
	if err != nil {
		return err
	}
	defer comp.Close()

	if err := scene.Build(comp, filepath.Dir(cfg.scene)); err != nil {
		return err
	}

	d := &demo{
		cfg:  cfg,
		loop: loop,
		dev:  dev,
		comp: comp,
		dest: geom.IR(0, 0, scene.Width, scene.Height),
		vp:   scene.Viewport(),
	}
	interval := time.Second / time.Duration(cfg.fps)

	if !cfg.watch {
		err := loop.RunFrames(ctx, interval, d.countedFrame())
		if errors.Is(err, errDone) {
			return nil
		}
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.RunFrames(gctx, interval, d.watchedFrame)
	})
	g.Go(func() error {
		return watchFile(gctx, cfg.scene, d.reload)
	})
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// countedFrame draws cfg.frames frames and writes the last one.
func (d *demo) countedFrame() func() error {
	drawn := 0
	return func() error {
		res, err := d.comp.CommitAndDraw(d.dest, d.vp)
		if err != nil {
			return err
		}
		drawn++
		if drawn < d.cfg.frames {
			return nil
		}
		if err := d.save(); err != nil {
			return err
		}
		log.Printf("compdemo: wrote %s after %d frames (%v)", d.cfg.output, drawn, res)
		return errDone
	}
}

// watchedFrame draws one frame and writes it when it committed changes.
func (d *demo) watchedFrame() error {
	res, err := d.comp.CommitAndDraw(d.dest, d.vp)
	if err != nil {
		return err
	}
	if !res.Committed {
		return nil
	}
	if err := d.save(); err != nil {
		return err
	}
	d.saved++
	log.Printf("compdemo: wrote %s (#%d, %v)", d.cfg.output, d.saved, d.comp.Stats())
	return nil
}

// reload rebuilds the scene. It runs on the watcher goroutine while
// frames keep drawing; the layout bracket keeps a half-built scene from
// being committed.
func (d *demo) reload() {
	scene, err := LoadScene(d.cfg.scene)
	if err != nil {
		log.Printf("compdemo: %v", err)
		return
	}
	if scene.Width != d.dest.Width || scene.Height != d.dest.Height {
		log.Printf("compdemo: scene size change to %dx%d ignored", scene.Width, scene.Height)
	}
	tree := d.comp.Tree()
	tree.BeginLayout()
	defer tree.EndLayout()
	if err := scene.Build(d.comp, filepath.Dir(d.cfg.scene)); err != nil {
		log.Printf("compdemo: %v", err)
	}
}

// save writes the device image to the output file. It runs on the loop.
func (d *demo) save() error {
	f, err := os.Create(d.cfg.output)
	if err != nil {
		return err
	}
	if err := png.Encode(f, d.dev.Image()); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", d.cfg.output, err)
	}
	return f.Close()
}

func premultiply(c color.RGBA) color.RGBA {
	a := uint32(c.A)
	return color.RGBA{
		R: uint8(uint32(c.R) * a / 255),
		G: uint8(uint32(c.G) * a / 255),
		B: uint8(uint32(c.B) * a / 255),
		A: c.A,
	}
}
