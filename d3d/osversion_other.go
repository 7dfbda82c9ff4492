// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !windows

package d3d

// CurrentOSVersion returns a non-Windows version.
func CurrentOSVersion() OSVersion {
	return OSVersion{}
}
