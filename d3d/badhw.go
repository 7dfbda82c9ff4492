// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package d3d

import "github.com/gogpu/d3dpipe/native"

// OSMask is a set of operating system families.
type OSMask uint32

// Operating system families.
const (
	OSXP       OSMask = 1 << 0
	OSVista    OSMask = 1 << 1
	OSWin7Plus OSMask = 1 << 2
	// OSOther covers non-Windows hosts of a portable device.
	OSOther OSMask = 1 << 3

	OSWindows = OSXP | OSVista | OSWin7Plus
	OSAll     = OSWindows | OSOther
)

// Driver version sentinels.
const (
	// AllDevices in an entry's DeviceID matches every device of the vendor.
	AllDevices uint32 = 0xFFFFFFFF

	// NoVersion blocks every driver version.
	NoVersion uint64 = ^uint64(0)

	// MaxVersion compares greater than any real driver version, so an
	// entry carrying it blocks until a fixed driver version is known.
	MaxVersion uint64 = ^uint64(0) - 1
)

// BadHardwareEntry blocks a vendor/device pair on some operating systems
// for drivers older than MinDriverVersion.
type BadHardwareEntry struct {
	VendorID         uint32
	DeviceID         uint32
	MinDriverVersion uint64
	OS               OSMask
}

// DefaultBadHardware is the built-in table. It is scanned in order and
// the first matching entry decides. The zero-vendor row terminates it.
var DefaultBadHardware = []BadHardwareEntry{
	// Matrox: no driver passes.
	{VendorID: 0x102B, DeviceID: AllDevices, MinDriverVersion: NoVersion, OS: OSAll},

	// Intel 915/945 family.
	{VendorID: 0x8086, DeviceID: 0x2582, MinDriverVersion: NoVersion, OS: OSAll},
	{VendorID: 0x8086, DeviceID: 0x2592, MinDriverVersion: NoVersion, OS: OSAll},
	{VendorID: 0x8086, DeviceID: 0x2772, MinDriverVersion: NoVersion, OS: OSAll},
	{VendorID: 0x8086, DeviceID: 0x27A2, MinDriverVersion: NoVersion, OS: OSAll},

	// ATI Mobility Radeon X1300-X1600 with early XP drivers.
	{VendorID: 0x1002, DeviceID: 0x7149, MinDriverVersion: native.DriverVersion(6, 14, 10, 6706), OS: OSXP},
	{VendorID: 0x1002, DeviceID: 0x71C5, MinDriverVersion: native.DriverVersion(6, 14, 10, 6706), OS: OSXP},

	// NVIDIA GeForce FX 5200 and Quadro NVS 280.
	{VendorID: 0x10DE, DeviceID: 0x0322, MinDriverVersion: NoVersion, OS: OSAll},
	{VendorID: 0x10DE, DeviceID: 0x032A, MinDriverVersion: MaxVersion, OS: OSVista | OSWin7Plus},

	{}, // end
}

// matches reports whether the entry covers the vendor/device pair.
func (e BadHardwareEntry) matches(vendor, device uint32) bool {
	return e.VendorID == vendor && (e.DeviceID == AllDevices || e.DeviceID == device)
}

// Blocks reports whether the entry blocks driver version v on os.
func (e BadHardwareEntry) Blocks(v uint64, os OSMask) bool {
	if e.OS&os == 0 {
		return false
	}
	return e.MinDriverVersion == NoVersion || v < e.MinDriverVersion
}

// LookupBadHardware returns the first entry of table that covers the
// vendor/device pair. Only that entry decides; later entries for the same
// pair are never consulted, even when its OS mask excludes the running
// OS. The scan stops at the zero-vendor row.
func LookupBadHardware(table []BadHardwareEntry, vendor, device uint32) (BadHardwareEntry, bool) {
	for _, e := range table {
		if e.VendorID == 0 {
			break
		}
		if e.matches(vendor, device) {
			return e, true
		}
	}
	return BadHardwareEntry{}, false
}

// IsBadHardware reports whether an adapter is blocked by table on os.
func IsBadHardware(table []BadHardwareEntry, id native.AdapterIdentifier, os OSMask) bool {
	e, ok := LookupBadHardware(table, id.VendorID, id.DeviceID)
	return ok && e.Blocks(id.DriverVersion, os)
}
