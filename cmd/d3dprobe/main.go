// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command d3dprobe checks the adapters of a native backend and draws a
// test quad on the first usable one.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/gogpu/wgpu/hal/software"
	_ "github.com/gogpu/wgpu/hal/vulkan"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/gogpu/d3dpipe"
	"github.com/gogpu/d3dpipe/d3d"
	"github.com/gogpu/d3dpipe/native"
	"github.com/gogpu/d3dpipe/native/d3d9native"
	"github.com/gogpu/d3dpipe/native/halnative"
)

func main() {
	var (
		backend = flag.String("backend", "software", "native backend: software, noop, hal or d3d9")
		config  = flag.String("config", "", "TOML configuration file")
		adapter = flag.Int("adapter", -1, "adapter to draw on (-1: first usable)")
		size    = flag.Int("size", 64, "render target size")
		metrics = flag.Bool("metrics", false, "print collected metrics")
		window  = flag.Uint64("window", 0, "focus window handle (required by d3d9 on most drivers)")
	)
	flag.Parse()

	cfg, err := loadConfig(*config)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, closer, err := d3dpipe.NewTraceLogger(cfg)
	if err != nil {
		log.Fatalf("trace: %v", err)
	}
	defer closer.Close()
	d3dpipe.SetLogger(logger)

	factory, err := openFactory(*backend)
	if err != nil {
		log.Fatalf("backend %s: %v", *backend, err)
	}

	reg := prometheus.NewRegistry()
	opts := []d3d.Option{d3d.WithRegisterer(reg)}
	if *window != 0 {
		opts = append(opts, d3d.WithFocusWindow(uintptr(*window)))
	}
	if *backend != "d3d9" {
		// Only the Direct3D9 backend depends on the Windows version.
		opts = append(opts, d3d.WithOSVersion(d3d.OSVersion{}))
	}
	m, err := d3d.NewPipelineManager(factory, cfg, opts...)
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}
	defer m.Close()

	printAdapters(m)

	ordinal := *adapter
	if ordinal < 0 {
		ordinal = firstUsable(m)
	}
	if ordinal < 0 {
		log.Fatal("no usable adapter")
	}
	pixel, err := smokeTest(m, ordinal, *size)
	if err != nil {
		log.Fatalf("adapter %d: %v", ordinal, err)
	}
	// The noop backend keeps no pixels.
	if *backend != "noop" && !sameColor(pixel, quadColor) {
		log.Fatalf("adapter %d: first pixel % X, drew % X", ordinal, pixel, quadColor)
	}
	printAdapters(m)

	if *metrics {
		if err := printMetrics(os.Stdout, reg); err != nil {
			log.Fatalf("metrics: %v", err)
		}
	}
}

func loadConfig(path string) (d3dpipe.Config, error) {
	if path == "" {
		return d3dpipe.ConfigFromEnv()
	}
	return d3dpipe.LoadConfig(path)
}

func openFactory(name string) (native.Factory, error) {
	switch name {
	case "software":
		return halnative.NewFactory(software.API{})
	case "noop":
		return halnative.NewFactory(&noop.API{})
	case "hal":
		return halnative.Open(gputypes.BackendVulkan)
	case "d3d9":
		return d3d9native.NewFactory()
	}
	return nil, fmt.Errorf("unknown backend %q", name)
}

func printAdapters(m *d3d.PipelineManager) {
	for _, a := range m.Adapters() {
		fmt.Printf("adapter %d: %s [%04X:%04X] driver %s: %s",
			a.Ordinal, a.Identifier.Description, a.Identifier.VendorID, a.Identifier.DeviceID,
			native.FormatDriverVersion(a.Identifier.DriverVersion), a.State)
		if a.Reason != nil {
			fmt.Printf(" (%v)", a.Reason)
		}
		fmt.Println()
	}
}

func firstUsable(m *d3d.PipelineManager) int {
	for _, a := range m.Adapters() {
		if a.State != d3d.AdapterInitFailed {
			return a.Ordinal
		}
	}
	return -1
}

// quadColor is the vertex color of the test quad, in D3DCOLOR byte order.
var quadColor = []byte{0x20, 0x80, 0xE0, 0xFF}

// sameColor compares the color channels of two pixels, allowing one step
// of rounding.
func sameColor(a, b []byte) bool {
	if len(a) < 3 || len(b) < 3 {
		return false
	}
	for i := range 3 {
		if d := int(a[i]) - int(b[i]); d < -1 || d > 1 {
			return false
		}
	}
	return true
}

// smokeTest fills a render target with one quad of quadColor, reads it
// back and returns its first pixel.
func smokeTest(m *d3d.PipelineManager, ordinal, size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid size %d", size)
	}
	ctx, err := m.DeviceContext(ordinal)
	if err != nil {
		return nil, err
	}
	rm := ctx.ResourceManager()
	//nolint:gosec // G115: positive, checked above
	rt, err := rm.CreateRenderTarget(uint32(size), uint32(size), true)
	if err != nil {
		return nil, err
	}
	defer rm.ReleaseResource(rt)

	if _, err := ctx.SetRenderTarget(rt, false, false); err != nil {
		return nil, err
	}
	s := float64(size)
	proj := d3d.Matrix{
		2 / s, 0, 0, -1,
		0, -2 / s, 0, 1,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	if err := ctx.SetProjViewMatrix(false, proj); err != nil {
		return nil, err
	}

	coords := make([]float32, 0, 4*d3d.FloatsPerVertex)
	for _, p := range [][2]float32{{0, 0}, {float32(s), 0}, {float32(s), float32(s)}, {0, float32(s)}} {
		coords = append(coords, p[0], p[1], 0, 0, 0, 0, 0)
	}
	colors := bytes.Repeat(quadColor, 4)

	if err := ctx.BeginScene(); err != nil {
		return nil, err
	}
	if err := ctx.DrawIndexedQuads(coords, colors, 4); err != nil {
		return nil, err
	}
	if err := ctx.EndScene(); err != nil {
		return nil, err
	}

	bpp := rt.Format().BytesPerPixel()
	pixels := make([]byte, size*size*bpp)
	if err := ctx.ReadPixels(rt, pixels); err != nil {
		return nil, err
	}
	st := ctx.Stats()
	fmt.Printf("adapter %d: %dx%d %s target (ex=%v, pool=%s), %d draws, %d quads, first pixel % X\n",
		ordinal, rt.Width(), rt.Height(), rt.Format(), ctx.IsEx(), ctx.DefaultPool(),
		st.DrawCalls, st.Quads, pixels[:bpp])
	return pixels[:bpp], nil
}

// printMetrics writes the gathered families in the text exposition
// format.
func printMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
