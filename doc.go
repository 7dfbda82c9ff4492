// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package d3dpipe is a device and resource lifecycle manager for a 2D
// compositing pipeline on Direct3D9-class GPUs.
//
// # Overview
//
// The module is split into layers:
//
//   - native: the device API boundary (factory, device, resources, result codes)
//   - native/d3d9native: Direct3D9 on Windows
//   - native/halnative: a portable device over gogpu/wgpu/hal
//   - d3d: resource tracking, device contexts, the adapter pipeline manager
//   - bridge: a flat handle-based API returning numeric result codes
//
// This root package carries the process-wide pieces: the logger and the
// configuration read from NWT_* environment variables or a TOML file.
//
// # Quick Start
//
//	cfg, err := d3dpipe.ConfigFromEnv()
//	if err != nil {
//		return err
//	}
//	log, closer, err := d3dpipe.NewTraceLogger(cfg)
//	if err != nil {
//		return err
//	}
//	defer closer.Close()
//	d3dpipe.SetLogger(log)
//
//	mgr, err := d3d.NewPipelineManager(factory, cfg)
//	if err != nil {
//		// fall back to a software renderer
//	}
//	defer mgr.Close()
//
//	ctx, err := mgr.DeviceContext(0)
//
// # Threading
//
// A pipeline manager and every context it creates must be used from one
// goroutine. Logging setup is safe from any goroutine.
package d3dpipe
