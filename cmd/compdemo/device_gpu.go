//go:build !nogpu

package main

import (
	"fmt"

	"github.com/gogpu/compositor/gpu/software"
	"github.com/gogpu/compositor/gpu/wgpu"
)

// openDevice creates the named device. It must run on the compositing
// goroutine.
func openDevice(name string, w, h int) (frameDevice, error) {
	switch name {
	case "software":
		return software.New(w, h), nil
	case "wgpu":
		d, err := wgpu.New(w, h)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown device %q", name)
}
