// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native defines the boundary between d3dpipe and a platform
// graphics device.
//
// The types in this package mirror the Direct3D9 object model: a Factory
// enumerates adapters and creates devices, a Device creates resources and
// records draw calls, and every resource exclusively owns its native
// handle until Release is called.
//
// Implementations:
//
//   - native/d3d9native: Direct3D9 through github.com/gonutz/d3d9 (Windows only)
//   - native/halnative: headless device built on github.com/gogpu/wgpu/hal
//
// All methods return a Result (or an error wrapping one) so that callers
// can distinguish device loss from allocation failure without inspecting
// backend-specific error types.
package native
