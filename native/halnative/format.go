// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halnative

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/d3dpipe/native"
)

// textureFormat returns the device format backing f. Depth formats all
// share the combined depth/stencil format.
func textureFormat(f native.Format) (gputypes.TextureFormat, bool) {
	switch f {
	case native.FormatA8R8G8B8, native.FormatX8R8G8B8:
		return gputypes.TextureFormatBGRA8Unorm, true
	case native.FormatA8B8G8R8, native.FormatX8B8G8R8:
		return gputypes.TextureFormatRGBA8Unorm, true
	case native.FormatA8, native.FormatL8:
		return gputypes.TextureFormatR8Unorm, true
	case native.FormatD32, native.FormatD24S8, native.FormatD24X8, native.FormatD16:
		return gputypes.TextureFormatDepth24PlusStencil8, true
	}
	return gputypes.TextureFormatUndefined, false
}

// textureUsage maps resource usage to device usage.
func textureUsage(u native.Usage, f native.Format) gputypes.TextureUsage {
	if f.IsDepthStencil() {
		return gputypes.TextureUsageRenderAttachment
	}
	usage := gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst | gputypes.TextureUsageCopySrc
	if u&native.UsageRenderTarget != 0 {
		usage |= gputypes.TextureUsageRenderAttachment
	}
	return usage
}

// vertexFormat maps a declaration type to a vertex attribute format.
func vertexFormat(t native.DeclType) (gputypes.VertexFormat, uint32, bool) {
	switch t {
	case native.DeclFloat1:
		return gputypes.VertexFormatFloat32, 4, true
	case native.DeclFloat2:
		return gputypes.VertexFormatFloat32x2, 8, true
	case native.DeclFloat3:
		return gputypes.VertexFormatFloat32x3, 12, true
	case native.DeclFloat4:
		return gputypes.VertexFormatFloat32x4, 16, true
	case native.DeclD3DColor:
		return gputypes.VertexFormatUnorm8x4, 4, true
	}
	return 0, 0, false
}

// deviceVisible reports whether resources in pool p get a device copy.
func deviceVisible(p native.Pool) bool {
	return p == native.PoolDefault || p == native.PoolManaged
}
