// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package d3d

import (
	"testing"

	"github.com/gogpu/d3dpipe/native"
)

func TestLookupBadHardware(t *testing.T) {
	table := []BadHardwareEntry{
		{VendorID: 0x1002, DeviceID: 0x7149, MinDriverVersion: 100, OS: OSXP},
		{VendorID: 0x1002, DeviceID: 0x7149, MinDriverVersion: 200, OS: OSWin7Plus},
		{VendorID: 0x1002, DeviceID: AllDevices, MinDriverVersion: NoVersion, OS: OSVista},
		{},
		{VendorID: 0x8086, DeviceID: AllDevices, MinDriverVersion: NoVersion, OS: OSAll},
	}

	tests := []struct {
		name     string
		vendor   uint32
		device   uint32
		wantOK   bool
		wantMinV uint64
	}{
		{"first entry wins", 0x1002, 0x7149, true, 100},
		{"wildcard device", 0x1002, 0x9999, true, NoVersion},
		{"unknown vendor", 0x10DE, 0x7149, false, 0},
		{"entries after terminator ignored", 0x8086, 0x2582, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := LookupBadHardware(table, tt.vendor, tt.device)
			if ok != tt.wantOK {
				t.Fatalf("LookupBadHardware ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && e.MinDriverVersion != tt.wantMinV {
				t.Errorf("MinDriverVersion = %d, want %d", e.MinDriverVersion, tt.wantMinV)
			}
		})
	}
}

func TestFirstMatchDecides(t *testing.T) {
	table := []BadHardwareEntry{
		{VendorID: 0x10DE, DeviceID: 0x0322, MinDriverVersion: NoVersion, OS: OSXP},
		{VendorID: 0x10DE, DeviceID: AllDevices, MinDriverVersion: NoVersion, OS: OSWin7Plus},
		{},
	}
	tests := []struct {
		name   string
		device uint32
		os     OSMask
		want   bool
	}{
		{"specific entry on its os", 0x0322, OSXP, true},
		{"specific entry shadows wildcard on other os", 0x0322, OSWin7Plus, false},
		{"wildcard for other devices", 0x0400, OSWin7Plus, true},
		{"wildcard outside its os", 0x0400, OSXP, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := native.AdapterIdentifier{VendorID: 0x10DE, DeviceID: tt.device, DriverVersion: native.DriverVersion(8, 17, 12, 9000)}
			if got := IsBadHardware(table, id, tt.os); got != tt.want {
				t.Errorf("IsBadHardware(%#x, %v) = %v, want %v", tt.device, tt.os, got, tt.want)
			}
		})
	}
}

func TestBadHardwareBlocks(t *testing.T) {
	v := native.DriverVersion(6, 14, 10, 6706)
	tests := []struct {
		name  string
		entry BadHardwareEntry
		drv   uint64
		os    OSMask
		want  bool
	}{
		{"no version blocks everything", BadHardwareEntry{MinDriverVersion: NoVersion, OS: OSAll}, ^uint64(0) - 1, OSXP, true},
		{"older driver", BadHardwareEntry{MinDriverVersion: v, OS: OSXP}, v - 1, OSXP, true},
		{"equal driver passes", BadHardwareEntry{MinDriverVersion: v, OS: OSXP}, v, OSXP, false},
		{"newer driver passes", BadHardwareEntry{MinDriverVersion: v, OS: OSXP}, v + 1, OSXP, false},
		{"other os", BadHardwareEntry{MinDriverVersion: NoVersion, OS: OSXP}, 0, OSWin7Plus, false},
		{"max version blocks real drivers", BadHardwareEntry{MinDriverVersion: MaxVersion, OS: OSWin7Plus},
			native.DriverVersion(31, 0, 15, 3000), OSWin7Plus, true},
		{"max version blocks near-maximal versions", BadHardwareEntry{MinDriverVersion: MaxVersion, OS: OSWin7Plus},
			native.DriverVersion(0xFFFF, 0xFFFF, 0xFFFF, 0xFFFD), OSWin7Plus, true},
		{"max version blocks high product numbers", BadHardwareEntry{MinDriverVersion: MaxVersion, OS: OSWin7Plus},
			native.DriverVersion(0x8000, 0, 0, 0), OSWin7Plus, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Blocks(tt.drv, tt.os); got != tt.want {
				t.Errorf("Blocks(%#x, %v) = %v, want %v", tt.drv, tt.os, got, tt.want)
			}
		})
	}
}

func TestDefaultBadHardware(t *testing.T) {
	tests := []struct {
		name string
		id   native.AdapterIdentifier
		os   OSMask
		want bool
	}{
		{
			name: "matrox any device any driver",
			id:   native.AdapterIdentifier{VendorID: 0x102B, DeviceID: 0x0525, DriverVersion: native.DriverVersion(9, 9, 9, 9)},
			os:   OSWin7Plus,
			want: true,
		},
		{
			name: "matrox on portable host",
			id:   native.AdapterIdentifier{VendorID: 0x102B, DeviceID: 0x0001},
			os:   OSOther,
			want: true,
		},
		{
			name: "intel 945",
			id:   native.AdapterIdentifier{VendorID: 0x8086, DeviceID: 0x2772, DriverVersion: native.DriverVersion(8, 15, 10, 2000)},
			os:   OSXP,
			want: true,
		},
		{
			name: "other intel device",
			id:   native.AdapterIdentifier{VendorID: 0x8086, DeviceID: 0x0166},
			os:   OSWin7Plus,
			want: false,
		},
		{
			name: "ati old xp driver",
			id:   native.AdapterIdentifier{VendorID: 0x1002, DeviceID: 0x7149, DriverVersion: native.DriverVersion(6, 14, 10, 6600)},
			os:   OSXP,
			want: true,
		},
		{
			name: "ati fixed xp driver",
			id:   native.AdapterIdentifier{VendorID: 0x1002, DeviceID: 0x7149, DriverVersion: native.DriverVersion(6, 14, 10, 6706)},
			os:   OSXP,
			want: false,
		},
		{
			name: "ati old driver on vista",
			id:   native.AdapterIdentifier{VendorID: 0x1002, DeviceID: 0x7149, DriverVersion: native.DriverVersion(6, 14, 10, 6600)},
			os:   OSVista,
			want: false,
		},
		{
			name: "quadro nvs 280 on xp",
			id:   native.AdapterIdentifier{VendorID: 0x10DE, DeviceID: 0x032A, DriverVersion: native.DriverVersion(6, 14, 11, 9000)},
			os:   OSXP,
			want: false,
		},
		{
			name: "quadro nvs 280 on win7",
			id:   native.AdapterIdentifier{VendorID: 0x10DE, DeviceID: 0x032A, DriverVersion: native.DriverVersion(8, 17, 12, 9000)},
			os:   OSWin7Plus,
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBadHardware(DefaultBadHardware, tt.id, tt.os); got != tt.want {
				t.Errorf("IsBadHardware() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultBadHardwareTerminated(t *testing.T) {
	last := DefaultBadHardware[len(DefaultBadHardware)-1]
	if last.VendorID != 0 {
		t.Errorf("last entry vendor = %#x, want 0", last.VendorID)
	}
	for i, e := range DefaultBadHardware[:len(DefaultBadHardware)-1] {
		if e.VendorID == 0 {
			t.Errorf("entry %d has zero vendor before the end", i)
		}
		if e.OS == 0 {
			t.Errorf("entry %d has empty OS mask", i)
		}
	}
}

func TestOSVersion(t *testing.T) {
	tests := []struct {
		v         OSVersion
		mask      OSMask
		supported bool
	}{
		{OSVersion{}, OSOther, true},
		{OSVersion{Windows: true, Major: 5, Minor: 0}, OSXP, false},
		{OSVersion{Windows: true, Major: 5, Minor: 1, Build: 2600}, OSXP, true},
		{OSVersion{Windows: true, Major: 5, Minor: 2}, OSXP, true},
		{OSVersion{Windows: true, Major: 6, Minor: 0}, OSVista, true},
		{OSVersion{Windows: true, Major: 6, Minor: 1}, OSWin7Plus, true},
		{OSVersion{Windows: true, Major: 10, Minor: 0, Build: 19045}, OSWin7Plus, true},
		{OSVersion{Windows: true, Major: 4, Minor: 9}, OSXP, false},
	}
	for _, tt := range tests {
		t.Run(tt.v.String(), func(t *testing.T) {
			if got := tt.v.Mask(); got != tt.mask {
				t.Errorf("Mask() = %v, want %v", got, tt.mask)
			}
			if got := tt.v.Supported(); got != tt.supported {
				t.Errorf("Supported() = %v, want %v", got, tt.supported)
			}
		})
	}
}
