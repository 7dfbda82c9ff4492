// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package d3d

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/d3dpipe/internal/metrics"
	"github.com/gogpu/d3dpipe/native"
)

// Batching limits.
const (
	// MaxBatchQuads is the number of quads one draw call can carry and
	// the size of the shared quad index buffer.
	MaxBatchQuads = 4096

	// MaxVertices is the capacity of the streaming vertex buffer.
	MaxVertices = MaxBatchQuads * 4

	// MaxBatchTriangles is the number of triangles one draw call can carry.
	MaxBatchTriangles = MaxVertices / 3

	// VertexSize is the size of one device vertex: position xyz, packed
	// ARGB color, two texture coordinate pairs.
	VertexSize = 32

	// FloatsPerVertex is the input stride of the coordinate slice:
	// x, y, z, tu1, tv1, tu2, tv2.
	FloatsPerVertex = 7

	// ColorBytesPerVertex is the input stride of the color slice: r, g, b, a.
	ColorBytesPerVertex = 4
)

// vertexElements matches the layout written by packVertices.
var vertexElements = []native.VertexElement{
	{Stream: 0, Offset: 0, Type: native.DeclFloat3, Usage: native.DeclUsagePosition},
	{Stream: 0, Offset: 12, Type: native.DeclD3DColor, Usage: native.DeclUsageColor},
	{Stream: 0, Offset: 16, Type: native.DeclFloat2, Usage: native.DeclUsageTexCoord, UsageIndex: 0},
	{Stream: 0, Offset: 24, Type: native.DeclFloat2, Usage: native.DeclUsageTexCoord, UsageIndex: 1},
}

// initDevice builds the quad index buffer, vertex declaration,
// pass-through vertex shader and streaming vertex buffer, binds them and
// sets the default render states. Objects that already exist are kept.
func (c *Context) initDevice() error {
	const op = "init device"
	dev := c.dev

	if c.ib == nil {
		ib, err := c.createQuadIndices()
		if err != nil {
			return err
		}
		c.ib = ib
	}
	if c.decl == nil {
		decl, err := dev.CreateVertexDeclaration(vertexElements)
		if err != nil {
			return nativeError(KindAllocation, op, err)
		}
		c.decl = decl
	}
	if c.vs == nil {
		code := c.opts.vsCode
		if len(code) == 0 {
			bs, ok := dev.(native.BuiltinShaders)
			if !ok {
				return &Error{Kind: KindCapability, Op: op, Code: native.ErrNotAvailable,
					Err: fmt.Errorf("%w: no pass-through vertex shader", ErrMissingCaps)}
			}
			var err error
			if code, err = bs.PassThroughVertexShader(); err != nil {
				return nativeError(KindCapability, op, err)
			}
		}
		vs, err := dev.CreateVertexShader(code)
		if err != nil {
			return nativeError(KindCapability, op, err)
		}
		c.vs = vs
	}
	if c.vb == nil {
		vb, err := c.rm.CreateVertexBuffer()
		if err != nil {
			return err
		}
		c.vb = vb
	}
	c.cursor = 0
	c.inScene = false

	steps := []struct {
		name string
		fn   func() error
	}{
		{"set indices", func() error { return dev.SetIndices(c.ib) }},
		{"set vertex declaration", func() error { return dev.SetVertexDeclaration(c.decl) }},
		{"set vertex shader", func() error { return dev.SetVertexShader(c.vs) }},
		{"set stream source", func() error { return dev.SetStreamSource(0, c.vb.vb, 0, VertexSize) }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return nativeError(KindUnknown, s.name, err)
		}
	}

	states := []struct {
		state native.RenderState
		value uint32
	}{
		{native.RSLighting, 0},
		{native.RSCullMode, native.CullNone},
		{native.RSAlphaBlendEnable, 1},
		{native.RSSrcBlend, native.BlendOne},
		{native.RSDestBlend, native.BlendInvSrcAlpha},
		{native.RSZFunc, native.CmpLessEqual},
		{native.RSZEnable, 0},
		{native.RSZWriteEnable, 0},
		{native.RSScissorTestEnable, 0},
	}
	for _, s := range states {
		if err := dev.SetRenderState(s.state, s.value); err != nil {
			return nativeError(KindUnknown, "set render state", err)
		}
	}

	c.world = Identity()
	c.depthTest = false
	return c.uploadWVP()
}

// createQuadIndices builds the index buffer shared by every quad batch:
// quad i uses vertices 4i..4i+3 as two triangles (0,1,2) and (2,1,3).
func (c *Context) createQuadIndices() (native.IndexBuffer, error) {
	const op = "create index buffer"
	size := uint32(MaxBatchQuads * 6 * 2)
	ib, err := c.dev.CreateIndexBuffer(size, native.UsageWriteOnly, native.FormatIndex16, c.defaultPool)
	if err != nil {
		return nil, nativeError(KindAllocation, op, err)
	}
	data, err := ib.Lock(0, size, 0)
	if err != nil {
		ib.Release()
		return nil, nativeError(KindAllocation, op, err)
	}
	fillQuadIndices(data)
	if err := ib.Unlock(); err != nil {
		ib.Release()
		return nil, nativeError(KindAllocation, op, err)
	}
	return ib, nil
}

func fillQuadIndices(data []byte) {
	pattern := [6]uint16{0, 1, 2, 2, 1, 3}
	for q := 0; q < MaxBatchQuads; q++ {
		base := uint16(q * 4)
		for j, p := range pattern {
			binary.LittleEndian.PutUint16(data[(q*6+j)*2:], base+p)
		}
	}
}

// BeginScene opens a scene. It is a no-op while a scene is open.
func (c *Context) BeginScene() error {
	const op = "begin scene"
	if err := c.ready(op); err != nil {
		return err
	}
	if c.inScene {
		return nil
	}
	if err := c.dev.BeginScene(); err != nil {
		return nativeError(KindUnknown, op, err)
	}
	c.inScene = true
	c.stats.SceneBegins++
	c.metrics.SceneBegin()
	return nil
}

// EndScene closes the open scene. It is a no-op when no scene is open.
func (c *Context) EndScene() error {
	const op = "end scene"
	if c == nil {
		return contractError(op, ErrNilContext)
	}
	if !c.inScene || c.dev == nil {
		return nil
	}
	c.inScene = false
	if err := c.dev.EndScene(); err != nil {
		return nativeError(KindUnknown, op, err)
	}
	return nil
}

// InScene reports whether a scene is open.
func (c *Context) InScene() bool { return c.inScene }

// VertexCursor returns the next write position in the streaming vertex
// buffer, in vertices.
func (c *Context) VertexCursor() uint32 { return c.cursor }

// DrawIndexedQuads draws numVertices/4 quads. coords holds
// FloatsPerVertex floats per vertex and colors ColorBytesPerVertex
// bytes (r, g, b, a) per vertex. Large inputs are split into batches of
// at most MaxBatchQuads quads.
func (c *Context) DrawIndexedQuads(coords []float32, colors []byte, numVertices int) error {
	const op = "draw indexed quads"
	if err := c.ready(op); err != nil {
		return err
	}
	if err := checkVertexInput(op, coords, colors, numVertices); err != nil {
		return err
	}
	if numVertices%4 != 0 {
		return contractError(op, fmt.Errorf("%w: %d vertices is not a whole number of quads", ErrInvalidArgument, numVertices))
	}
	if numVertices == 0 {
		return nil
	}
	if err := c.BeginScene(); err != nil {
		return err
	}

	for quads := numVertices / 4; quads > 0; {
		n := min(quads, MaxBatchQuads)
		verts := uint32(n * 4)
		start, err := c.streamVertices(op, coords, colors, verts)
		if err != nil {
			return err
		}
		//nolint:gosec // G115: start < MaxVertices
		err = c.dev.DrawIndexedPrimitive(native.PrimitiveTriangleList, int32(start), 0, verts, 0, uint32(n*2))
		if err != nil {
			return nativeError(KindUnknown, op, err)
		}
		c.stats.DrawCalls++
		c.stats.Quads += uint64(n)
		c.metrics.Batch(metrics.PrimitiveQuads, n)

		coords = coords[verts*FloatsPerVertex:]
		colors = colors[verts*ColorBytesPerVertex:]
		quads -= n
	}
	return nil
}

// DrawTriangleList draws numTriangles independent triangles, split into
// batches of at most MaxBatchTriangles.
func (c *Context) DrawTriangleList(coords []float32, colors []byte, numTriangles int) error {
	const op = "draw triangle list"
	if err := c.ready(op); err != nil {
		return err
	}
	if numTriangles < 0 {
		return contractError(op, fmt.Errorf("%w: %d triangles", ErrInvalidArgument, numTriangles))
	}
	if err := checkVertexInput(op, coords, colors, numTriangles*3); err != nil {
		return err
	}
	if numTriangles == 0 {
		return nil
	}
	if err := c.BeginScene(); err != nil {
		return err
	}

	for tris := numTriangles; tris > 0; {
		n := min(tris, MaxBatchTriangles)
		verts := uint32(n * 3)
		start, err := c.streamVertices(op, coords, colors, verts)
		if err != nil {
			return err
		}
		if err := c.dev.DrawPrimitive(native.PrimitiveTriangleList, start, uint32(n)); err != nil {
			return nativeError(KindUnknown, op, err)
		}
		c.stats.DrawCalls++
		c.stats.Triangles += uint64(n)
		c.metrics.Batch(metrics.PrimitiveTriangles, n)

		coords = coords[verts*FloatsPerVertex:]
		colors = colors[verts*ColorBytesPerVertex:]
		tris -= n
	}
	return nil
}

func checkVertexInput(op string, coords []float32, colors []byte, numVertices int) error {
	if numVertices < 0 {
		return contractError(op, fmt.Errorf("%w: %d vertices", ErrInvalidArgument, numVertices))
	}
	if len(coords) < numVertices*FloatsPerVertex || len(colors) < numVertices*ColorBytesPerVertex {
		return contractError(op, fmt.Errorf("%w: %d vertices need %d floats and %d color bytes, got %d and %d",
			ErrInvalidArgument, numVertices, numVertices*FloatsPerVertex, numVertices*ColorBytesPerVertex,
			len(coords), len(colors)))
	}
	return nil
}

// streamVertices copies n vertices into the ring buffer and returns the
// vertex index they start at.
//
// The cursor wraps to 0 whenever the batch would cross the end of the
// buffer, so a lock never spans the end. A lock at cursor 0 discards the
// buffer; any other lock promises not to overwrite data in flight.
func (c *Context) streamVertices(op string, coords []float32, colors []byte, n uint32) (uint32, error) {
	if c.vb == nil || c.vb.vb == nil {
		return 0, contractError(op, ErrNotInitialized)
	}
	capacity := c.vb.capacity
	if c.cursor+n > capacity {
		c.cursor = 0
	}
	flags := native.LockNoOverwrite
	if c.cursor == 0 {
		flags = native.LockDiscard
	}

	buf, err := c.vb.vb.Lock(c.cursor*VertexSize, n*VertexSize, flags)
	if err != nil {
		return 0, nativeError(KindUnknown, op, err)
	}
	packVertices(buf, coords, colors, int(n))
	if err := c.vb.vb.Unlock(); err != nil {
		return 0, nativeError(KindUnknown, op, err)
	}

	start := c.cursor
	c.cursor = (c.cursor + n) % capacity
	return start, nil
}

// packVertices writes n device vertices. Colors are repacked from
// r, g, b, a bytes into an ARGB word.
func packVertices(dst []byte, coords []float32, colors []byte, n int) {
	le := binary.LittleEndian
	for i := 0; i < n; i++ {
		v := dst[i*VertexSize : (i+1)*VertexSize]
		f := coords[i*FloatsPerVertex : (i+1)*FloatsPerVertex]
		col := colors[i*ColorBytesPerVertex : (i+1)*ColorBytesPerVertex]

		le.PutUint32(v[0:], math.Float32bits(f[0]))
		le.PutUint32(v[4:], math.Float32bits(f[1]))
		le.PutUint32(v[8:], math.Float32bits(f[2]))
		le.PutUint32(v[12:], packARGB(col[0], col[1], col[2], col[3]))
		le.PutUint32(v[16:], math.Float32bits(f[3]))
		le.PutUint32(v[20:], math.Float32bits(f[4]))
		le.PutUint32(v[24:], math.Float32bits(f[5]))
		le.PutUint32(v[28:], math.Float32bits(f[6]))
	}
}

func packARGB(r, g, b, a byte) uint32 {
	return uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}
