// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import "testing"

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

func TestShadersCompile(t *testing.T) {
	for _, tt := range []struct {
		name string
		src  string
	}{
		{"color", colorShaderSource},
		{"texture", textureShaderSource},
	} {
		t.Run(tt.name, func(t *testing.T) {
			words, err := compileSPIRV(tt.src)
			if err != nil {
				t.Fatalf("compileSPIRV() = %v", err)
			}
			if len(words) < 5 || words[0] != spirvMagic {
				t.Fatalf("compileSPIRV() produced %d words, magic %#x", len(words), words[0])
			}
		})
	}
}
