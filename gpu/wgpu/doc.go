// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu implements gpu.Device on a gogpu/wgpu HAL device.
//
// Frames render offscreen into an RGBA8 colour target with a
// Depth24PlusStencil8 attachment. Draws are recorded between BeginFrame
// and EndFrame and submitted as one render pass; EndFrame waits for the
// GPU and reads the target back, so Image reflects the finished frame.
//
// Every distinct DrawState maps onto its own render pipeline. Pipelines
// are built on first use and cached for the lifetime of the device.
// Shaders are compiled from WGSL to SPIR-V with gogpu/naga.
//
// Building with the nogpu tag leaves only the package documentation and
// logger, for hosts without a HAL backend.
package wgpu
