// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halnative

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/d3dpipe/native"
)

// DiffuseWGSL is the fragment shader used while no pixel shader is set.
//
//go:embed shaders/diffuse.wgsl
var DiffuseWGSL string

// copyPitchAlignment is the row alignment texture-to-buffer copies need.
const copyPitchAlignment = 256

// pipelineKey identifies one render pipeline built from device state.
type pipelineKey struct {
	vs, ps   *shader
	decl     *declaration
	stride   uint32
	format   gputypes.TextureFormat
	topology gputypes.PrimitiveTopology
	blend    blendKey
}

// blendKey is the alpha blend render state a pipeline was built for.
type blendKey struct {
	enabled  bool
	src, dst uint32
}

// renderer holds the HAL objects shared by every draw of a device.
type renderer struct {
	uniformLayout hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout
	bindings      hal.BindGroup
	diffuse       hal.ShaderModule
	pipelines     map[pipelineKey]hal.RenderPipeline
}

// ensureRenderer creates the layouts, the constant bind group and the
// default fragment shader on first use.
func (d *Device) ensureRenderer() error {
	if d.r != nil {
		return nil
	}
	r := &renderer{pipelines: make(map[pipelineKey]hal.RenderPipeline)}
	fail := func(what string, err error) error {
		d.destroyRenderer(r)
		return fmt.Errorf("halnative: create %s: %w: %w", what, native.ErrOutOfVideoMemory, err)
	}

	var err error
	r.uniformLayout, err = d.dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "halnative_constants_layout",
		Entries: []gputypes.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		}},
	})
	if err != nil {
		return fail("bind group layout", err)
	}
	r.pipeLayout, err = d.dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "halnative_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{r.uniformLayout},
	})
	if err != nil {
		return fail("pipeline layout", err)
	}
	r.bindings, err = d.dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "halnative_constants",
		Layout: r.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: d.constants.NativeHandle(), Offset: 0, Size: constantRegisters * 16,
			}},
		},
	})
	if err != nil {
		return fail("bind group", err)
	}
	spirv, err := CompileWGSL(DiffuseWGSL)
	if err != nil {
		d.destroyRenderer(r)
		return fmt.Errorf("halnative: diffuse shader: %w", err)
	}
	r.diffuse, err = d.dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "halnative_diffuse",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fail("diffuse shader", err)
	}
	d.r = r
	return nil
}

// destroyRenderer releases r in reverse creation order.
func (d *Device) destroyRenderer(r *renderer) {
	if r == nil {
		return
	}
	for k, p := range r.pipelines {
		d.dev.DestroyRenderPipeline(p)
		delete(r.pipelines, k)
	}
	if r.diffuse != nil {
		d.dev.DestroyShaderModule(r.diffuse)
	}
	if r.bindings != nil {
		d.dev.DestroyBindGroup(r.bindings)
	}
	if r.pipeLayout != nil {
		d.dev.DestroyPipelineLayout(r.pipeLayout)
	}
	if r.uniformLayout != nil {
		d.dev.DestroyBindGroupLayout(r.uniformLayout)
	}
}

// dropPipelines destroys the cached pipelines that use released state.
func (d *Device) dropPipelines(match func(pipelineKey) bool) {
	if d.r == nil {
		return
	}
	for k, p := range d.r.pipelines {
		if match(k) {
			d.dev.DestroyRenderPipeline(p)
			delete(d.r.pipelines, k)
		}
	}
}

// pipeline returns the render pipeline for the current shaders,
// declaration, target format and blend state.
func (d *Device) pipeline(pt native.PrimitiveType, format gputypes.TextureFormat) (hal.RenderPipeline, error) {
	topology, ok := primitiveTopology(pt)
	if !ok {
		return nil, native.ErrInvalidCall
	}
	key := pipelineKey{
		vs:       d.vs,
		ps:       d.ps,
		decl:     d.decl,
		stride:   d.stride,
		format:   format,
		topology: topology,
		blend: blendKey{
			enabled: d.states[native.RSAlphaBlendEnable] != 0,
			src:     d.states[native.RSSrcBlend],
			dst:     d.states[native.RSDestBlend],
		},
	}
	if p, ok := d.r.pipelines[key]; ok {
		return p, nil
	}

	fsModule := d.r.diffuse
	if d.ps != nil {
		fsModule = d.ps.module
	}
	layout := d.decl.layout
	layout.ArrayStride = uint64(d.stride)
	p, err := d.dev.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "halnative_pipeline",
		Layout: d.r.pipeLayout,
		Vertex: hal.VertexState{
			Module:     d.vs.module,
			EntryPoint: "vs_main",
			Buffers:    []gputypes.VertexBufferLayout{layout},
		},
		Fragment: &hal.FragmentState{
			Module:     fsModule,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    format,
				Blend:     blendState(key.blend),
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: topology,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("halnative: create pipeline: %w: %w", native.ErrInvalidCall, err)
	}
	d.r.pipelines[key] = p
	return p, nil
}

func primitiveTopology(pt native.PrimitiveType) (gputypes.PrimitiveTopology, bool) {
	switch pt {
	case native.PrimitivePointList:
		return gputypes.PrimitiveTopologyPointList, true
	case native.PrimitiveLineList:
		return gputypes.PrimitiveTopologyLineList, true
	case native.PrimitiveLineStrip:
		return gputypes.PrimitiveTopologyLineStrip, true
	case native.PrimitiveTriangleList:
		return gputypes.PrimitiveTopologyTriangleList, true
	case native.PrimitiveTriangleStrip:
		return gputypes.PrimitiveTopologyTriangleStrip, true
	}
	return 0, false
}

// blendState translates the alpha blend render states. A nil result
// writes source colors unchanged.
func blendState(b blendKey) *gputypes.BlendState {
	if !b.enabled {
		return nil
	}
	src, ok1 := blendFactor(b.src)
	dst, ok2 := blendFactor(b.dst)
	if !ok1 || !ok2 {
		return nil
	}
	c := gputypes.BlendComponent{SrcFactor: src, DstFactor: dst, Operation: gputypes.BlendOperationAdd}
	return &gputypes.BlendState{Color: c, Alpha: c}
}

func blendFactor(v uint32) (gputypes.BlendFactor, bool) {
	switch v {
	case native.BlendZero:
		return gputypes.BlendFactorZero, true
	case native.BlendOne:
		return gputypes.BlendFactorOne, true
	case native.BlendSrcAlpha:
		return gputypes.BlendFactorSrcAlpha, true
	case native.BlendInvSrcAlpha:
		return gputypes.BlendFactorOneMinusSrcAlpha, true
	}
	return 0, false
}

// canRender reports whether the current target has a device texture a
// render pass can draw into.
func (d *Device) canRender() bool {
	g := d.target.gpu
	return g != nil && !g.destroyed && d.target.desc.Multisample == native.MultisampleNone
}

// streamVertices returns n vertices of the stream from start.
func (d *Device) streamVertices(start, n uint32) []byte {
	from := uint64(start) * uint64(d.stride)
	return d.stream.data[from : from+uint64(n)*uint64(d.stride)]
}

// indexedVertices expands n indices from start into a vertex run.
// Indexed draws are expanded on the host so every HAL backend sees the
// same non-indexed draw.
func (d *Device) indexedVertices(base int32, start, n uint32) ([]byte, error) {
	stride := uint64(d.stride)
	size := uint64(d.indices.format.BytesPerPixel())
	out := make([]byte, 0, uint64(n)*stride)
	for i := range uint64(n) {
		at := (uint64(start) + i) * size
		var idx uint64
		if size == 2 {
			idx = uint64(binary.LittleEndian.Uint16(d.indices.data[at:]))
		} else {
			idx = uint64(binary.LittleEndian.Uint32(d.indices.data[at:]))
		}
		from := (uint64(base) + idx) * stride
		if from+stride > uint64(len(d.stream.data)) {
			return nil, fmt.Errorf("halnative: index %d past the vertex stream: %w", idx, native.ErrInvalidCall)
		}
		out = append(out, d.stream.data[from:from+stride]...)
	}
	return out, nil
}

// render draws the vertices in data into the current render target with
// one render pass.
func (d *Device) render(pt native.PrimitiveType, data []byte) error {
	target := d.target
	format, ok := textureFormat(target.desc.Format)
	if !ok {
		return native.ErrInvalidCall
	}
	scissor := target.bounds()
	if d.states[native.RSScissorTestEnable] != 0 {
		scissor = intersect(scissor, d.scissor)
		if scissor.Left >= scissor.Right || scissor.Top >= scissor.Bottom {
			return nil
		}
	}
	if err := d.ensureRenderer(); err != nil {
		return err
	}
	p, err := d.pipeline(pt, format)
	if err != nil {
		return err
	}

	vb, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "halnative_draw_vertices",
		Size:  uint64(alignUp(uint32(len(data)), 4)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("halnative: create draw buffer: %w: %w", native.ErrOutOfVideoMemory, err)
	}
	defer d.dev.DestroyBuffer(vb)
	if err := d.queue.WriteBuffer(vb, 0, padded(data)); err != nil {
		return fmt.Errorf("halnative: write draw buffer: %w: %w", native.ErrDriverInternalError, err)
	}

	view, err := d.dev.CreateTextureView(target.gpu.tex, &hal.TextureViewDescriptor{
		Label:           "halnative_target_view",
		Format:          format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		BaseMipLevel:    target.level,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: 1,
	})
	if err != nil {
		return fmt.Errorf("halnative: create target view: %w: %w", native.ErrDriverInternalError, err)
	}
	defer d.dev.DestroyTextureView(view)

	encoder, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "halnative_draw"})
	if err != nil {
		return fmt.Errorf("halnative: create command encoder: %w: %w", native.ErrDriverInternalError, err)
	}
	defer encoder.Destroy()
	if err := encoder.BeginEncoding("halnative_draw"); err != nil {
		return fmt.Errorf("halnative: begin encoding: %w: %w", native.ErrDriverInternalError, err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "halnative_draw_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    view,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}},
	})
	rp.SetPipeline(p)
	rp.SetBindGroup(0, d.r.bindings, nil)
	rp.SetVertexBuffer(0, vb, 0)
	//nolint:gosec // G115: clamped to the target bounds
	rp.SetScissorRect(uint32(scissor.Left), uint32(scissor.Top), uint32(scissor.Width()), uint32(scissor.Height()))
	rp.Draw(uint32(uint64(len(data))/uint64(d.stride)), 1, 0, 0)
	rp.End()

	if err := d.submit(encoder); err != nil {
		return err
	}
	target.stale = true
	d.stats.Rendered++
	return nil
}

// submit ends encoding, submits the commands and waits for the device.
func (d *Device) submit(encoder hal.CommandEncoder) error {
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("halnative: end encoding: %w: %w", native.ErrDriverInternalError, err)
	}
	defer d.dev.FreeCommandBuffer(cmd)
	if _, err := d.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return fmt.Errorf("halnative: submit: %w: %w", native.ErrDriverInternalError, err)
	}
	if err := d.dev.WaitIdle(); err != nil {
		return fmt.Errorf("halnative: wait: %w: %w", native.ErrDeviceLost, err)
	}
	return nil
}

// sync brings the host copy of im up to date after draws rendered into
// its device texture.
func (d *Device) sync(im *image) error {
	if !im.stale {
		return nil
	}
	if im.gpu == nil || im.gpu.destroyed {
		im.stale = false
		return nil
	}
	if err := d.readback(im); err != nil {
		return err
	}
	im.stale = false
	return nil
}

// readback copies the device level of im into its host copy through a
// mapped staging buffer.
func (d *Device) readback(im *image) error {
	w, h := im.desc.Width, im.desc.Height
	bytesPerRow := uint32(im.pitch())
	alignedBytesPerRow := alignUp(bytesPerRow, copyPitchAlignment)
	size := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "halnative_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("halnative: create staging buffer: %w: %w", native.ErrOutOfVideoMemory, err)
	}
	defer d.dev.DestroyBuffer(staging)

	encoder, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "halnative_readback"})
	if err != nil {
		return fmt.Errorf("halnative: create command encoder: %w: %w", native.ErrDriverInternalError, err)
	}
	defer encoder.Destroy()
	if err := encoder.BeginEncoding("halnative_readback"); err != nil {
		return fmt.Errorf("halnative: begin encoding: %w: %w", native.ErrDriverInternalError, err)
	}
	tex := im.gpu.tex
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: tex, MipLevel: im.level},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	if err := d.submit(encoder); err != nil {
		return err
	}

	m, err := d.dev.MapBuffer(staging, 0, size)
	if err != nil {
		return fmt.Errorf("halnative: map staging buffer: %w: %w", native.ErrDriverInternalError, err)
	}
	defer d.dev.UnmapBuffer(staging) //nolint:errcheck // mapping is read-only
	src := unsafe.Slice((*byte)(m.Ptr), size)
	for row := range h {
		so := int(row) * int(alignedBytesPerRow)
		do := int(row) * int(bytesPerRow)
		copy(im.data[do:do+int(bytesPerRow)], src[so:so+int(bytesPerRow)])
	}
	d.stats.Readbacks++
	return nil
}

func intersect(a, b native.Rect) native.Rect {
	return native.Rect{
		Left:   max(a.Left, b.Left),
		Top:    max(a.Top, b.Top),
		Right:  min(a.Right, b.Right),
		Bottom: min(a.Bottom, b.Bottom),
	}
}
