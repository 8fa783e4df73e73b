// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/gpu"
)

// vertexStride is the byte size of one vertex: position (4 x f32),
// uv (2 x f32) and colour (4 x f32).
const vertexStride = 40

// targetFormat is the colour format of the render target.
const targetFormat = gputypes.TextureFormatRGBA8Unorm

// stencilFormat is the format of the depth/stencil attachment. Depth is
// unused.
const stencilFormat = gputypes.TextureFormatDepth24PlusStencil8

// shaderKind selects the shader module and fragment entry point.
type shaderKind uint8

const (
	shaderColor shaderKind = iota
	shaderTextureRGBA
	shaderTextureBGRA
)

// pipelineKey identifies a render pipeline. Stencil Ref is dynamic state
// and not part of the key.
type pipelineKey struct {
	shader     shaderKind
	blend      gpu.BlendMode
	colorWrite bool
	compare    gpu.CompareFunc
	passOp     gpu.StencilOp
	cull       bool
}

// keyFor returns the pipeline key of a draw.
func keyFor(kind shaderKind, st gpu.DrawState) pipelineKey {
	return pipelineKey{
		shader:     kind,
		blend:      st.Blend,
		colorWrite: st.ColorWrite,
		compare:    st.Stencil.Compare,
		passOp:     st.Stencil.PassOp,
		cull:       st.Cull,
	}
}

// textureShader returns the shader variant sampling a texture of format f.
func textureShader(f gpu.PixelFormat) shaderKind {
	if f == gpu.FormatBGRA {
		return shaderTextureBGRA
	}
	return shaderTextureRGBA
}

func compareFunction(c gpu.CompareFunc) gputypes.CompareFunction {
	switch c {
	case gpu.CompareEqual:
		return gputypes.CompareFunctionEqual
	case gpu.CompareLessEqual:
		return gputypes.CompareFunctionLessEqual
	default:
		return gputypes.CompareFunctionAlways
	}
}

func stencilOperation(op gpu.StencilOp) hal.StencilOperation {
	switch op {
	case gpu.StencilIncrementClamp:
		return hal.StencilOperationIncrementClamp
	case gpu.StencilReplace:
		return hal.StencilOperationReplace
	default:
		return hal.StencilOperationKeep
	}
}

func (k pipelineKey) String() string {
	return fmt.Sprintf("shader=%d blend=%d write=%v stencil=%d/%d cull=%v",
		k.shader, k.blend, k.colorWrite, k.compare, k.passOp, k.cull)
}

// pipelines owns the shader modules, layouts and the pipeline cache.
type pipelines struct {
	device hal.Device

	colorShader   hal.ShaderModule
	textureShader hal.ShaderModule

	textureLayout   hal.BindGroupLayout
	colorPipeLayout hal.PipelineLayout
	texPipeLayout   hal.PipelineLayout
	sampler         hal.Sampler

	cache map[pipelineKey]hal.RenderPipeline
}

// init compiles both shaders and creates the shared layouts and sampler.
func (p *pipelines) init(dev hal.Device) error {
	p.device = dev
	p.cache = make(map[pipelineKey]hal.RenderPipeline)

	var err error
	if p.colorShader, err = createShader(dev, "composite_color", colorShaderSource); err != nil {
		return err
	}
	if p.textureShader, err = createShader(dev, "composite_texture", textureShaderSource); err != nil {
		return err
	}

	p.textureLayout, err = dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "composite_texture_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create texture bind group layout: %w", err)
	}

	p.colorPipeLayout, err = dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "composite_color_pipe_layout",
	})
	if err != nil {
		return fmt.Errorf("create colour pipeline layout: %w", err)
	}
	p.texPipeLayout, err = dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "composite_texture_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.textureLayout},
	})
	if err != nil {
		return fmt.Errorf("create texture pipeline layout: %w", err)
	}

	p.sampler, err = dev.CreateSampler(&hal.SamplerDescriptor{
		Label:        "composite_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}
	return nil
}

// get returns the pipeline for key, creating it on first use.
func (p *pipelines) get(key pipelineKey) (hal.RenderPipeline, error) {
	if rp, ok := p.cache[key]; ok {
		return rp, nil
	}
	rp, err := p.create(key)
	if err != nil {
		return nil, err
	}
	p.cache[key] = rp
	slogger().Debug("wgpu: pipeline created", "key", key.String(), "cached", len(p.cache))
	return rp, nil
}

func (p *pipelines) create(key pipelineKey) (hal.RenderPipeline, error) {
	module, layout, entry := p.colorShader, p.colorPipeLayout, "fs_main"
	switch key.shader {
	case shaderTextureRGBA:
		module, layout, entry = p.textureShader, p.texPipeLayout, "fs_rgba"
	case shaderTextureBGRA:
		module, layout, entry = p.textureShader, p.texPipeLayout, "fs_bgra"
	}

	target := gputypes.ColorTargetState{
		Format:    targetFormat,
		WriteMask: gputypes.ColorWriteMaskAll,
	}
	if !key.colorWrite {
		target.WriteMask = gputypes.ColorWriteMaskNone
	}
	if key.blend == gpu.BlendPremultiplied {
		premul := gputypes.BlendStatePremultiplied()
		target.Blend = &premul
	}

	face := hal.StencilFaceState{
		Compare:     compareFunction(key.compare),
		FailOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      stencilOperation(key.passOp),
	}
	var writeMask uint32
	if key.passOp != gpu.StencilKeep {
		writeMask = 0xFF
	}

	cull := gputypes.CullModeNone
	if key.cull {
		cull = gputypes.CullModeBack
	}

	rp, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "composite_pipeline",
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    vertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: entry,
			Targets:    []gputypes.ColorTargetState{target},
		},
		DepthStencil: &hal.DepthStencilState{
			Format:            stencilFormat,
			DepthWriteEnabled: false,
			DepthCompare:      gputypes.CompareFunctionAlways,
			StencilFront:      face,
			StencilBack:       face,
			StencilReadMask:   0xFF,
			StencilWriteMask:  writeMask,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  cull,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline %v: %w", key, err)
	}
	return rp, nil
}

func vertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{{
		ArrayStride: vertexStride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x2, Offset: 16, ShaderLocation: 1},
			{Format: gputypes.VertexFormatFloat32x4, Offset: 24, ShaderLocation: 2},
		},
	}}
}

// Len returns the number of cached pipelines.
func (p *pipelines) Len() int { return len(p.cache) }

// destroy releases every pipeline resource in reverse creation order.
// Partially initialized state is fine.
func (p *pipelines) destroy() {
	if p.device == nil {
		return
	}
	for k, rp := range p.cache {
		p.device.DestroyRenderPipeline(rp)
		delete(p.cache, k)
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.texPipeLayout != nil {
		p.device.DestroyPipelineLayout(p.texPipeLayout)
		p.texPipeLayout = nil
	}
	if p.colorPipeLayout != nil {
		p.device.DestroyPipelineLayout(p.colorPipeLayout)
		p.colorPipeLayout = nil
	}
	if p.textureLayout != nil {
		p.device.DestroyBindGroupLayout(p.textureLayout)
		p.textureLayout = nil
	}
	if p.textureShader != nil {
		p.device.DestroyShaderModule(p.textureShader)
		p.textureShader = nil
	}
	if p.colorShader != nil {
		p.device.DestroyShaderModule(p.colorShader)
		p.colorShader = nil
	}
}
