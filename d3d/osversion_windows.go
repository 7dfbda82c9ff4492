// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package d3d

import "golang.org/x/sys/windows"

// CurrentOSVersion returns the running Windows version.
func CurrentOSVersion() OSVersion {
	v := windows.RtlGetVersion()
	return OSVersion{
		Windows: true,
		Major:   v.MajorVersion,
		Minor:   v.MinorVersion,
		Build:   v.BuildNumber,
	}
}
