// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package d3d

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/d3dpipe/internal/metrics"
	"github.com/gogpu/d3dpipe/native"
)

// State is the coarse lifecycle state of a Context.
type State int

// Context states.
const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateDeviceLost
	StateReleased
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDeviceLost:
		return "device-lost"
	case StateReleased:
		return "released"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// DeviceState is the result of polling the device.
type DeviceState int

// Device states returned by TestDeviceState.
const (
	DeviceOK DeviceState = iota
	// DeviceLost means rendering must stop until the device can be reset.
	DeviceLost
	// DeviceNeedsReset means ResetContext must be called.
	DeviceNeedsReset
	// DeviceRemoved means the adapter is gone; the context must be rebuilt.
	DeviceRemoved
	DeviceUnknown
)

// String returns the device state name.
func (s DeviceState) String() string {
	switch s {
	case DeviceOK:
		return "ok"
	case DeviceLost:
		return "lost"
	case DeviceNeedsReset:
		return "needs-reset"
	case DeviceRemoved:
		return "removed"
	}
	return "unknown"
}

// Stats are per-context counters.
type Stats struct {
	DrawCalls               uint64
	Quads                   uint64
	Triangles               uint64
	SceneBegins             uint64
	TargetSwitches          uint64
	RedundantTargetSwitches uint64
	Resets                  uint64
}

// Context owns one device and its live rendering state.
//
// A Context is created by NewContext (or PipelineManager.DeviceContext),
// which either returns a ready context or an error; no partially built
// context is ever returned.
//
// Context is not safe for concurrent use. All calls must come from the
// rendering goroutine.
type Context struct {
	factory native.Factory
	adapter int
	opts    options
	log     *slog.Logger
	metrics *metrics.Adapter

	state       State
	dev         native.Device
	devEx       native.DeviceEx
	caps        native.Caps
	mode        native.DisplayMode
	params      native.PresentParams
	defaultPool native.Pool

	hwVertexProcessing bool

	rm *ResourceManager

	// Shared pipeline objects built by initDevice.
	ib     native.IndexBuffer
	decl   native.VertexDeclaration
	vs     native.Shader
	vb     *VertexBuffer
	cursor uint32 // in vertices

	inScene bool

	target     native.Surface
	targetDesc native.SurfaceDesc
	depth      native.Surface
	clip       native.Rect
	clipOn     bool

	world, proj      Matrix
	pixAdjX, pixAdjY float64
	depthTest        bool

	stats Stats
}

// NewContext creates a device on the given adapter and builds the
// shared pipeline objects. On failure everything created so far is
// released and a nil context is returned.
//
// If factory also implements native.FactoryEx, the Ex device is
// preferred.
func NewContext(factory native.Factory, adapter int, opts ...Option) (*Context, error) {
	if factory == nil {
		return nil, contractError("new context", ErrNoFactory)
	}
	o := buildOptions(opts)
	c := &Context{
		factory: factory,
		adapter: adapter,
		opts:    o,
		log:     o.log().With("adapter", adapter),
		metrics: o.metrics,
		world:   Identity(),
		proj:    Identity(),
	}
	if err := c.InitContext(o.vsync); err != nil {
		return nil, err
	}
	return c, nil
}

// Adapter returns the adapter ordinal.
func (c *Context) Adapter() int {
	if c == nil {
		return -1
	}
	return c.adapter
}

// State returns the lifecycle state.
func (c *Context) State() State {
	if c == nil {
		return StateReleased
	}
	return c.state
}

// Caps returns the device capabilities.
func (c *Context) Caps() native.Caps { return c.caps }

// DisplayMode returns the adapter display mode captured at init.
func (c *Context) DisplayMode() native.DisplayMode { return c.mode }

// PresentParams returns the parameters the device was created or last
// reset with.
func (c *Context) PresentParams() native.PresentParams { return c.params }

// Device returns the native device, or nil once released.
func (c *Context) Device() native.Device {
	if c == nil {
		return nil
	}
	return c.dev
}

// IsEx reports whether the device is an Ex device.
func (c *Context) IsEx() bool {
	if c == nil {
		return false
	}
	return c.devEx != nil
}

// DefaultPool returns the pool used for resources that are not render
// targets: default on Ex devices, managed otherwise.
func (c *Context) DefaultPool() native.Pool { return c.defaultPool }

// ResourceManager returns the context's resource manager.
func (c *Context) ResourceManager() *ResourceManager {
	if c == nil {
		return nil
	}
	return c.rm
}

// Stats returns a copy of the context counters.
func (c *Context) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return c.stats
}

// InitContext (re)creates the device. It selects the device type,
// queries caps, creates the device (Ex first when available), chooses
// the default pool and builds the shared pipeline objects. Any failure
// tears down everything created so far.
func (c *Context) InitContext(vsync bool) error {
	const op = "init context"
	if c == nil {
		return contractError(op, ErrNilContext)
	}
	if c.state == StateReleased {
		return contractError(op, ErrReleased)
	}
	c.teardown()
	c.state = StateInitializing
	c.opts.vsync = vsync

	if err := c.createDevice(); err != nil {
		c.teardown()
		c.state = StateUninitialized
		c.log.Warn("d3d: context init failed", "err", err)
		return err
	}

	c.rm = newResourceManager(c)
	if err := c.initDevice(); err != nil {
		c.teardown()
		c.state = StateUninitialized
		c.log.Warn("d3d: device objects init failed", "err", err)
		return err
	}

	c.state = StateReady
	c.log.Info("d3d: context ready",
		"type", c.opts.deviceType, "ex", c.IsEx(), "pool", c.defaultPool,
		"hwvp", c.hwVertexProcessing, "vsync", vsync)
	return nil
}

func (c *Context) createDevice() error {
	const op = "create device"
	devType := c.opts.deviceType

	caps, err := c.factory.DeviceCaps(c.adapter, devType)
	if err != nil {
		return nativeError(KindCapability, op, err)
	}
	mode, err := c.factory.AdapterDisplayMode(c.adapter)
	if err != nil {
		return nativeError(KindCapability, op, err)
	}
	c.caps, c.mode = caps, mode

	flags := native.CreateFPUPreserve
	if native.Has(caps.DevCaps, native.DevCapsHWTransformAndLight) {
		flags |= native.CreateHardwareVertexProcessing
		c.hwVertexProcessing = true
	} else {
		flags |= native.CreateSoftwareVertexProcessing
		c.hwVertexProcessing = false
	}

	interval := native.PresentIntervalImmediate
	if c.opts.vsync {
		interval = native.PresentIntervalOne
	}
	pp := native.PresentParams{
		BackBufferWidth:  1,
		BackBufferHeight: 1,
		BackBufferFormat: native.FormatUnknown,
		BackBufferCount:  1,
		SwapEffect:       native.SwapEffectDiscard,
		Window:           c.opts.focusWindow,
		Windowed:         true,
		PresentInterval:  interval,
	}

	if fx, ok := c.factory.(native.FactoryEx); ok {
		exParams := pp
		dev, err := fx.CreateDeviceEx(c.adapter, devType, c.opts.focusWindow, flags, &exParams)
		if err == nil {
			c.dev, c.devEx = dev, dev
			c.params = exParams
			c.defaultPool = native.PoolDefault
			return nil
		}
		c.log.Warn("d3d: Ex device creation failed, falling back", "err", err)
	}

	dev, err := c.factory.CreateDevice(c.adapter, devType, c.opts.focusWindow, flags, &pp)
	if err != nil {
		return nativeError(KindCapability, op, err)
	}
	c.dev = dev
	c.params = pp
	c.defaultPool = native.PoolManaged
	return nil
}

// teardown releases every device object. The context can be
// reinitialized afterwards.
func (c *Context) teardown() {
	if c.rm != nil {
		c.rm.ReleaseAll()
		c.rm = nil
	}
	c.releaseDeviceObjects()
	if c.dev != nil {
		c.dev.Release()
		c.dev, c.devEx = nil, nil
	}
	c.inScene = false
	c.target, c.depth = nil, nil
	c.clipOn = false
}

// releaseDeviceObjects releases the shared pipeline objects that are not
// tracked by the resource manager.
func (c *Context) releaseDeviceObjects() {
	if c.ib != nil {
		c.ib.Release()
		c.ib = nil
	}
	if c.decl != nil {
		c.decl.Release()
		c.decl = nil
	}
	if c.vs != nil {
		c.vs.Release()
		c.vs = nil
	}
}

// forget drops the context's references to a resource about to be released.
func (c *Context) forget(r Resource) {
	if v, ok := r.(*VertexBuffer); ok && v == c.vb {
		c.vb = nil
		c.cursor = 0
	}
	if rt, ok := r.(RenderTarget); ok {
		if s := rt.TargetSurface(); s != nil && s == c.target {
			c.target = nil
			c.targetDesc = native.SurfaceDesc{}
			c.clipOn = false
		}
		if d := rt.DepthSurface(); d != nil && d == c.depth {
			c.depth = nil
		}
	}
}

// ready checks that the device can accept calls.
func (c *Context) ready(op string) error {
	switch {
	case c == nil:
		return contractError(op, ErrNilContext)
	case c.state == StateReleased:
		return contractError(op, ErrReleased)
	case c.dev == nil:
		return contractError(op, ErrNotInitialized)
	case c.state == StateDeviceLost:
		return &Error{Kind: KindTransient, Op: op, Code: native.ErrDeviceLost, Err: ErrDeviceLost}
	}
	return nil
}

// TestDeviceState polls the device. Callers must stop rendering on
// DeviceLost and call ResetContext on DeviceNeedsReset.
func (c *Context) TestDeviceState() DeviceState {
	if c == nil || c.dev == nil {
		return DeviceUnknown
	}
	var err error
	if c.devEx != nil {
		err = c.devEx.CheckDeviceState(c.opts.focusWindow)
	} else {
		err = c.dev.TestCooperativeLevel()
	}

	switch r := native.ResultOf(err); {
	case r.Succeeded():
		return DeviceOK
	case r == native.ErrDeviceLost:
		c.setLost()
		return DeviceLost
	case r == native.ErrDeviceNotReset:
		c.setLost()
		return DeviceNeedsReset
	case r == native.ErrDeviceRemoved, r == native.ErrDeviceHung:
		c.setLost()
		return DeviceRemoved
	default:
		c.log.Warn("d3d: unexpected device state", "code", r)
		return DeviceUnknown
	}
}

func (c *Context) setLost() {
	if c.state == StateReady {
		c.log.Warn("d3d: device lost")
		c.state = StateDeviceLost
	}
}

// ResetContext recovers a lost device: it releases every default pool
// resource, resets the device with the last present parameters and
// rebuilds the shared pipeline objects. Default pool resources created
// by callers are gone afterwards and must be recreated.
func (c *Context) ResetContext() error {
	const op = "reset context"
	switch {
	case c == nil:
		return contractError(op, ErrNilContext)
	case c.state == StateReleased:
		return contractError(op, ErrReleased)
	case c.dev == nil:
		return contractError(op, ErrNotInitialized)
	}

	if c.inScene {
		_ = c.dev.EndScene()
		c.inScene = false
	}
	c.rm.ReleaseDefaultPoolResources()
	// Depth buffers are device memory even when their target is not.
	c.rm.Each(func(r Resource) bool {
		r.base().releaseDepth()
		return true
	})
	c.releaseDeviceObjects()
	c.target, c.depth = nil, nil
	c.targetDesc = native.SurfaceDesc{}
	c.clipOn = false

	pp := c.params
	if err := c.dev.Reset(&pp); err != nil {
		c.state = StateDeviceLost
		c.metrics.Reset(false)
		c.log.Warn("d3d: device reset failed", "err", err)
		return &Error{Kind: KindTransient, Op: op, Code: native.ResultOf(err), Err: err}
	}
	c.params = pp

	if err := c.initDevice(); err != nil {
		c.state = StateDeviceLost
		c.metrics.Reset(false)
		return err
	}
	c.state = StateReady
	c.stats.Resets++
	c.metrics.Reset(true)
	c.log.Info("d3d: device reset", "resources", c.rm.Len())
	return nil
}

// Present ends any open scene and presents the device swap chain.
// Device loss moves the context to StateDeviceLost.
func (c *Context) Present(window uintptr) error {
	const op = "present"
	if err := c.ready(op); err != nil {
		return err
	}
	if err := c.EndScene(); err != nil {
		return err
	}
	return c.presentResult(op, c.dev.Present(window))
}

// PresentSwapChain ends any open scene and presents sc.
func (c *Context) PresentSwapChain(sc *SwapChain) error {
	const op = "present swap chain"
	if err := c.ready(op); err != nil {
		return err
	}
	if sc == nil || sc.sc == nil {
		return contractError(op, ErrNilResource)
	}
	if err := c.EndScene(); err != nil {
		return err
	}
	return c.presentResult(op, sc.sc.Present())
}

func (c *Context) presentResult(op string, err error) error {
	if err == nil {
		return nil
	}
	r := native.ResultOf(err)
	if r.Succeeded() {
		// Occluded windows report a success code.
		return nil
	}
	if r.IsDeviceLoss() {
		c.setLost()
	}
	return nativeError(KindUnknown, op, err)
}

// Release frees every resource and the device. The context cannot be
// used afterwards. Release is idempotent.
func (c *Context) Release() {
	if c == nil || c.state == StateReleased {
		return
	}
	if c.inScene && c.dev != nil {
		_ = c.dev.EndScene()
	}
	c.teardown()
	c.state = StateReleased
	c.log.Info("d3d: context released")
}
