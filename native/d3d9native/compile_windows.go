// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package d3d9native

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/gogpu/d3dpipe/native"
)

// PassThroughHLSL transforms positions by the matrix in constant
// registers c0-c3 and passes color and texture coordinates on.
const PassThroughHLSL = `
float4x4 wvp : register(c0);

struct VSInput {
	float3 position : POSITION;
	float4 color    : COLOR0;
	float2 uv0      : TEXCOORD0;
	float2 uv1      : TEXCOORD1;
};

struct VSOutput {
	float4 position : POSITION;
	float4 color    : COLOR0;
	float2 uv0      : TEXCOORD0;
	float2 uv1      : TEXCOORD1;
};

VSOutput main(VSInput input) {
	VSOutput output;
	output.position = mul(wvp, float4(input.position, 1.0));
	output.color = input.color;
	output.uv0 = input.uv0;
	output.uv1 = input.uv1;
	return output;
}
`

var (
	d3dcompiler47 = windows.NewLazySystemDLL("d3dcompiler_47.dll")
	procCompile   = d3dcompiler47.NewProc("D3DCompile")
)

type blob struct {
	vtbl *struct {
		QueryInterface   uintptr
		AddRef           uintptr
		Release          uintptr
		GetBufferPointer uintptr
		GetBufferSize    uintptr
	}
}

func (b *blob) bytes() []byte {
	ptr, _, _ := syscall.SyscallN(b.vtbl.GetBufferPointer, uintptr(unsafe.Pointer(b)))
	n, _, _ := syscall.SyscallN(b.vtbl.GetBufferSize, uintptr(unsafe.Pointer(b)))
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n))
	return out
}

func (b *blob) release() {
	_, _, _ = syscall.SyscallN(b.vtbl.Release, uintptr(unsafe.Pointer(b)))
}

// Compile compiles HLSL source to shader bytecode for target, such as
// "vs_2_0".
func Compile(source, entryPoint, target string) ([]byte, error) {
	if err := procCompile.Find(); err != nil {
		return nil, fmt.Errorf("d3d9native: %w: %w", native.ErrNotAvailable, err)
	}
	if source == "" {
		return nil, native.ErrInvalidCall
	}
	src := []byte(source)
	entry := append([]byte(entryPoint), 0)
	tgt := append([]byte(target), 0)
	var code, msgs *blob
	r, _, _ := procCompile.Call(
		uintptr(unsafe.Pointer(&src[0])),
		uintptr(len(src)),
		0, 0, 0,
		uintptr(unsafe.Pointer(&entry[0])),
		uintptr(unsafe.Pointer(&tgt[0])),
		0, 0,
		uintptr(unsafe.Pointer(&code)),
		uintptr(unsafe.Pointer(&msgs)),
	)
	var detail string
	if msgs != nil {
		detail = string(msgs.bytes())
		msgs.release()
	}
	if r != 0 {
		return nil, fmt.Errorf("d3d9native: compile %s: %w: %s", target, native.Result(uint32(r)), detail)
	}
	defer code.release()
	return code.bytes(), nil
}
