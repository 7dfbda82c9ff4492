// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package d3d

import "fmt"

// OSVersion identifies the host operating system.
type OSVersion struct {
	Windows      bool
	Major, Minor uint32
	Build        uint32
}

// MinOSVersion is the oldest supported Windows release (XP).
var MinOSVersion = OSVersion{Windows: true, Major: 5, Minor: 1}

// Mask returns the family of v.
func (v OSVersion) Mask() OSMask {
	switch {
	case !v.Windows:
		return OSOther
	case v.Major < 6:
		return OSXP
	case v.Major == 6 && v.Minor == 0:
		return OSVista
	default:
		return OSWin7Plus
	}
}

// Supported reports whether v is at least MinOSVersion. Non-Windows
// hosts only run portable devices and are always supported.
func (v OSVersion) Supported() bool {
	if !v.Windows {
		return true
	}
	if v.Major != MinOSVersion.Major {
		return v.Major > MinOSVersion.Major
	}
	return v.Minor >= MinOSVersion.Minor
}

// String returns a readable version.
func (v OSVersion) String() string {
	if !v.Windows {
		return "non-windows"
	}
	return fmt.Sprintf("windows %d.%d.%d", v.Major, v.Minor, v.Build)
}
