// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package d3d manages Direct3D9-class devices and the resources created
// on them.
//
// A PipelineManager validates every adapter once and lazily creates one
// Context per usable adapter. A Context owns its device, the streaming
// vertex and index buffers, and a ResourceManager that tracks every
// resource by Handle so that default-pool resources can be swept before
// a device reset.
//
// # Device loss
//
// Callers poll Context.TestDeviceState. On DeviceNeedsReset they call
// ResetContext, which releases every default-pool resource, resets the
// device and rebuilds the shared pipeline objects. Managed and
// system-memory resources survive.
//
// # Errors
//
// Failures are *Error values carrying a Kind (capability, transient,
// allocation, contract) and the native result code. Use KindOf and
// errors.Is to classify them.
//
// # Threading
//
// A Context and its ResourceManager must be used from one goroutine.
package d3d
