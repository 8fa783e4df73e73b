//go:build nogpu

package main

import (
	"fmt"

	"github.com/gogpu/compositor/gpu/software"
)

// openDevice creates the named device. Only the software device is built
// with the nogpu tag.
func openDevice(name string, w, h int) (frameDevice, error) {
	if name == "software" {
		return software.New(w, h), nil
	}
	return nil, fmt.Errorf("device %q not available in nogpu builds", name)
}
