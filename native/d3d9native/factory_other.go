// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !windows

// Package d3d9native implements the native device boundary on Direct3D9.
// It is only available on Windows.
package d3d9native

import (
	"fmt"

	"github.com/gogpu/d3dpipe/native"
)

// NewFactory always fails outside Windows.
func NewFactory() (native.Factory, error) {
	return nil, fmt.Errorf("d3d9native: Direct3D9 requires windows: %w", native.ErrNotAvailable)
}
