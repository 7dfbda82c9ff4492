// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package d3d

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gogpu/d3dpipe"
	"github.com/gogpu/d3dpipe/internal/metrics"
	"github.com/gogpu/d3dpipe/native"
)

// AdapterState is the lifecycle state of an adapter slot.
type AdapterState int

// Adapter states. A slot moves from AdapterNotInited to either
// AdapterCreated or AdapterInitFailed and never leaves those. A failed
// adapter is not retried for the lifetime of the manager.
const (
	AdapterNotInited AdapterState = iota
	AdapterInitFailed
	AdapterCreated
)

// String returns the state name.
func (s AdapterState) String() string {
	switch s {
	case AdapterNotInited:
		return "not_inited"
	case AdapterInitFailed:
		return "init_failed"
	case AdapterCreated:
		return "created"
	}
	return fmt.Sprintf("AdapterState(%d)", int(s))
}

// AdapterInfo describes an adapter slot.
type AdapterInfo struct {
	Ordinal    int
	Identifier native.AdapterIdentifier
	State      AdapterState
	// Reason is the failure that moved the slot to AdapterInitFailed.
	Reason error
}

type adapterSlot struct {
	ctx    *Context
	state  AdapterState
	window uintptr
	id     native.AdapterIdentifier
	reason error
}

// PipelineManager owns the native factory and one lazily created
// Context per usable adapter.
//
// The manager is created by the composition root and passed to whatever
// needs device contexts. It is not safe for concurrent use.
type PipelineManager struct {
	factory native.Factory
	cfg     d3dpipe.Config
	devType native.DeviceType
	os      OSVersion
	opts    options
	log     *slog.Logger
	metrics *metrics.Collectors

	slots  []adapterSlot
	closed bool
}

// NewPipelineManager validates every adapter of factory and returns a
// manager if at least one passes. The manager takes ownership of
// factory and releases it on Close, or before returning an error.
//
// Adapter validation rejects, unless cfg.ForceGPU is set, adapters on
// the bad-hardware list; then adapters missing a required capability;
// then adapters whose device type cannot be created for the current
// display mode.
func NewPipelineManager(factory native.Factory, cfg d3dpipe.Config, opts ...Option) (*PipelineManager, error) {
	if factory == nil {
		return nil, &Error{Kind: KindCapability, Op: "new pipeline manager", Code: native.ErrNotAvailable, Err: ErrNoFactory}
	}
	o := buildOptions(opts)

	osv := CurrentOSVersion()
	if o.osVersion != nil {
		osv = *o.osVersion
	}

	m := &PipelineManager{
		factory: factory,
		cfg:     cfg,
		devType: cfg.DeviceType(),
		os:      osv,
		opts:    o,
		log:     o.log(),
	}
	if o.registerer != nil {
		m.metrics = metrics.New(o.registerer)
	}

	if !cfg.SkipOSCheck && !osv.Supported() {
		factory.Release()
		return nil, &Error{Kind: KindCapability, Op: "new pipeline manager", Code: native.ErrNotAvailable,
			Err: fmt.Errorf("%w: %s", ErrOSUnsupported, osv)}
	}

	if err := m.checkAdaptersInfo(); err != nil {
		factory.Release()
		return nil, err
	}
	return m, nil
}

// checkAdaptersInfo validates every adapter and fails only if all fail.
func (m *PipelineManager) checkAdaptersInfo() error {
	n := m.factory.AdapterCount()
	m.slots = make([]adapterSlot, n)
	m.log.Info("d3d: checking adapters", "count", n, "type", m.devType, "os", m.os, "forcegpu", m.cfg.ForceGPU)

	usable := 0
	var errs []error
	for i := range m.slots {
		slot := &m.slots[i]
		slot.window = m.opts.focusWindow
		if id, err := m.factory.AdapterIdentifier(i); err == nil {
			slot.id = id
		}
		if err := m.checkAdapter(i); err != nil {
			slot.state = AdapterInitFailed
			slot.reason = err
			errs = append(errs, fmt.Errorf("adapter %d: %w", i, err))
			m.log.Warn("d3d: adapter rejected", "adapter", i,
				"vendor", fmt.Sprintf("0x%04X", slot.id.VendorID),
				"device", fmt.Sprintf("0x%04X", slot.id.DeviceID),
				"driver", native.FormatDriverVersion(slot.id.DriverVersion),
				"err", err)
			continue
		}
		usable++
		m.log.Info("d3d: adapter accepted", "adapter", i, "description", slot.id.Description)
	}
	m.publishStates()

	if usable == 0 {
		return &Error{Kind: KindCapability, Op: "check adapters", Code: native.ErrNotAvailable,
			Err: errors.Join(append([]error{ErrNoUsableAdapter}, errs...)...)}
	}
	return nil
}

func (m *PipelineManager) checkAdapter(i int) error {
	if !m.cfg.ForceGPU {
		id, err := m.factory.AdapterIdentifier(i)
		if err != nil {
			return nativeError(KindCapability, "adapter identifier", err)
		}
		if IsBadHardware(m.opts.badHardware, id, m.os.Mask()) {
			return &Error{Kind: KindCapability, Op: "check hardware", Code: native.ErrNotAvailable,
				Err: fmt.Errorf("%w: vendor 0x%04X device 0x%04X driver %s", ErrBlockedHardware,
					id.VendorID, id.DeviceID, native.FormatDriverVersion(id.DriverVersion))}
		}
	}

	caps, err := m.factory.DeviceCaps(i, m.devType)
	if err != nil {
		return nativeError(KindCapability, "device caps", err)
	}
	if missing := MissingCaps(caps); len(missing) > 0 {
		return &Error{Kind: KindCapability, Op: "check caps", Code: native.ErrNotAvailable,
			Err: fmt.Errorf("%w: %s", ErrMissingCaps, strings.Join(missing, ", "))}
	}

	return m.checkDeviceType(i)
}

// checkDeviceType verifies that the device type can be created for the
// adapter's current display mode.
func (m *PipelineManager) checkDeviceType(i int) error {
	mode, err := m.factory.AdapterDisplayMode(i)
	if err != nil {
		return nativeError(KindCapability, "display mode", err)
	}
	if err := m.factory.CheckDeviceType(i, m.devType, mode.Format, mode.Format, true); err != nil {
		return nativeError(KindCapability, "check device type", err)
	}
	return nil
}

// MissingCaps returns the names of the required capabilities caps lacks.
func MissingCaps(caps native.Caps) []string {
	checks := []struct {
		name string
		have uint32
		need uint32
	}{
		{"scissor test", caps.RasterCaps, native.RasterCapsScissorTest},
		{"src blend one", caps.SrcBlendCaps, native.PBlendCapsOne},
		{"src blend zero", caps.SrcBlendCaps, native.PBlendCapsZero},
		{"dest blend zero", caps.DestBlendCaps, native.PBlendCapsZero},
		{"dest blend one", caps.DestBlendCaps, native.PBlendCapsOne},
		{"dest blend inv src alpha", caps.DestBlendCaps, native.PBlendCapsInvSrcAlpha},
		{"z cmp less equal", caps.ZCmpCaps, native.PCmpCapsLessEqual},
		{"z cmp always", caps.ZCmpCaps, native.PCmpCapsAlways},
		{"cull none", caps.PrimitiveMiscCaps, native.PMiscCapsCullNone},
		{"blend op", caps.PrimitiveMiscCaps, native.PMiscCapsBlendOp},
		{"mask z", caps.PrimitiveMiscCaps, native.PMiscCapsMaskZ},
	}
	var missing []string
	for _, c := range checks {
		if !native.Has(c.have, c.need) {
			missing = append(missing, c.name)
		}
	}
	if native.ShaderVersionMajor(caps.PixelShaderVersion) < 3 || caps.PixelShaderVersion>>16 != 0xFFFF {
		missing = append(missing, "pixel shader 3.0")
	}
	return missing
}

// AdapterCount returns the number of adapter slots.
func (m *PipelineManager) AdapterCount() int {
	if m == nil {
		return 0
	}
	return len(m.slots)
}

// AdapterState returns the state of an adapter slot.
func (m *PipelineManager) AdapterState(ordinal int) (AdapterState, error) {
	if m == nil {
		return AdapterNotInited, contractError("adapter state", ErrNilManager)
	}
	if ordinal < 0 || ordinal >= len(m.slots) {
		return AdapterNotInited, contractError("adapter state", ErrAdapterOutOfRange)
	}
	return m.slots[ordinal].state, nil
}

// Adapters describes every adapter slot.
func (m *PipelineManager) Adapters() []AdapterInfo {
	if m == nil {
		return nil
	}
	out := make([]AdapterInfo, len(m.slots))
	for i, s := range m.slots {
		out[i] = AdapterInfo{Ordinal: i, Identifier: s.id, State: s.state, Reason: s.reason}
	}
	return out
}

// DeviceType returns the device type selected by the configuration.
func (m *PipelineManager) DeviceType() native.DeviceType {
	if m == nil {
		return native.DeviceTypeHAL
	}
	return m.devType
}

// SetFocusWindow sets the window used when the adapter's context is
// created. It has no effect once the context exists.
func (m *PipelineManager) SetFocusWindow(ordinal int, window uintptr) error {
	if m == nil {
		return contractError("set focus window", ErrNilManager)
	}
	if ordinal < 0 || ordinal >= len(m.slots) {
		return contractError("set focus window", ErrAdapterOutOfRange)
	}
	m.slots[ordinal].window = window
	return nil
}

// DeviceContext returns the context of an adapter, creating it on first
// use. The device type is verified again before creation because the
// display configuration may have changed since the manager was built.
// A failed creation marks the adapter as failed for good.
func (m *PipelineManager) DeviceContext(ordinal int) (*Context, error) {
	const op = "device context"
	if m == nil {
		return nil, contractError(op, ErrNilManager)
	}
	if m.closed {
		return nil, contractError(op, ErrClosed)
	}
	if ordinal < 0 || ordinal >= len(m.slots) {
		return nil, contractError(op, fmt.Errorf("%w: %d of %d", ErrAdapterOutOfRange, ordinal, len(m.slots)))
	}

	slot := &m.slots[ordinal]
	switch slot.state {
	case AdapterCreated:
		return slot.ctx, nil
	case AdapterInitFailed:
		return nil, &Error{Kind: KindCapability, Op: op, Code: native.ErrNotAvailable,
			Err: fmt.Errorf("%w: adapter %d: %w", ErrAdapterFailed, ordinal, slot.reason)}
	}

	ctx, err := m.createContext(ordinal, slot)
	if err != nil {
		slot.state = AdapterInitFailed
		slot.reason = err
		m.publishStates()
		m.log.Warn("d3d: context creation failed", "adapter", ordinal, "err", err)
		return nil, err
	}
	slot.ctx = ctx
	slot.state = AdapterCreated
	m.publishStates()
	return ctx, nil
}

func (m *PipelineManager) createContext(ordinal int, slot *adapterSlot) (*Context, error) {
	if err := m.checkDeviceType(ordinal); err != nil {
		return nil, err
	}
	opts := []Option{
		WithLogger(m.log),
		WithDeviceType(m.devType),
		WithVSync(m.cfg.VSync),
		WithFocusWindow(slot.window),
	}
	if m.opts.vsCode != nil {
		opts = append(opts, WithVertexShader(m.opts.vsCode))
	}
	opts = append(opts, m.opts.ctxOpts...)
	opts = append(opts, withMetrics(m.metrics.Adapter(strconv.Itoa(ordinal))))
	return NewContext(m.factory, ordinal, opts...)
}

// MatchingDepthStencilFormat returns the first depth/stencil format in
// DepthStencilFormats order that the adapter supports and that matches
// targetFormat.
func (m *PipelineManager) MatchingDepthStencilFormat(ordinal int, adapterFormat, targetFormat native.Format) (native.Format, error) {
	if m == nil {
		return native.FormatUnknown, contractError("match depth/stencil format", ErrNilManager)
	}
	if m.closed {
		return native.FormatUnknown, contractError("match depth/stencil format", ErrClosed)
	}
	if ordinal < 0 || ordinal >= len(m.slots) {
		return native.FormatUnknown, contractError("match depth/stencil format", ErrAdapterOutOfRange)
	}
	return matchingDepthStencilFormat(m.factory, ordinal, m.devType, adapterFormat, targetFormat)
}

// Close releases every context and the factory. Close is idempotent.
func (m *PipelineManager) Close() error {
	if m == nil || m.closed {
		return nil
	}
	m.closed = true
	for i := range m.slots {
		if ctx := m.slots[i].ctx; ctx != nil {
			ctx.Release()
			m.slots[i].ctx = nil
		}
	}
	m.factory.Release()
	m.log.Info("d3d: pipeline manager closed")
	return nil
}

func (m *PipelineManager) publishStates() {
	if m.metrics == nil {
		return
	}
	counts := make(map[string]int)
	for _, s := range m.slots {
		counts[s.state.String()]++
	}
	m.metrics.SetAdapterStates(counts)
}
