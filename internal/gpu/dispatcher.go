// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// dispatcher.go defines the GPU dispatch orchestration for the
// shading-rate compute pipeline. It manages shader compilation, buffer
// allocation, and the 3-stage dispatch sequence that mirrors the CPU
// reference in internal/ratecompute.

package gpu

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// =============================================================================
// Embedded WGSL Shader Sources
// =============================================================================

//go:embed shaders/importance.wgsl
var shaderImportance string

//go:embed shaders/quantize.wgsl
var shaderQuantize string

//go:embed shaders/temporal.wgsl
var shaderTemporal string

// =============================================================================
// Constants
// =============================================================================

const (
	// wgDim is the workgroup edge length used by all three shaders.
	// Each shader declares @workgroup_size(8, 8); dispatches are 2D.
	wgDim = 8

	// fenceTimeout is the maximum time to wait for GPU work to complete.
	fenceTimeout = 5 * time.Second
)

// =============================================================================
// Stage
// =============================================================================

// Stage identifies one of the three stages in the shading-rate compute
// pipeline.
type Stage int

const (
	// StageImportance fuses edge, normal, distance, and motion signals
	// into per-pixel importance.
	// Input: color + normal + depth + motion. Output: importance.
	StageImportance Stage = iota

	// StageQuantize reduces importance into tiles and maps each tile's
	// peak value to a raw tier.
	// Input: importance. Output: tile_vals + raw_rates.
	StageQuantize

	// StageTemporal blends tile values with history and re-quantizes.
	// Input: tile_vals + history_in. Output: history_out + stable_rates.
	StageTemporal

	// StageCount is the total number of pipeline stages.
	StageCount
)

// String returns the human-readable name of the compute stage.
func (s Stage) String() string {
	switch s {
	case StageImportance:
		return "importance"
	case StageQuantize:
		return "quantize"
	case StageTemporal:
		return "temporal"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// =============================================================================
// Buffers
// =============================================================================

// Dims describes one session's buffer geometry. Buffers are allocated
// once per session and reused across frames; only a resolution or grid
// change forces reallocation.
type Dims struct {
	// Width and Height are the frame resolution in pixels.
	Width  int
	Height int

	// GridWidth and GridHeight are the tier grid dimensions.
	GridWidth  int
	GridHeight int

	// ColorChannels is the interleaved channel count of the color
	// buffer (3 or 4).
	ColorChannels int
}

// Buffers holds all GPU buffer references for one pipeline session.
// Each buffer maps to one or more shader bindings across the three
// stages.
type Buffers struct {
	// Params is the uniform buffer containing Params.
	// Bound at group(0) binding(0) in all stages.
	Params hal.Buffer

	// Color, Normal, Depth, Motion are the per-frame input buffers,
	// uploaded by UploadFrame and read by the importance stage. Motion
	// is always allocated so the bind group layout stays fixed; the
	// HasMotion param gates its use.
	Color  hal.Buffer
	Normal hal.Buffer
	Depth  hal.Buffer
	Motion hal.Buffer

	// Importance holds per-pixel fused importance.
	// Written by importance, read by quantize.
	Importance hal.Buffer

	// TileVals holds the per-entry continuous importance.
	// Written by quantize, read by temporal.
	TileVals hal.Buffer

	// RawRates holds the pre-stabilization tier per entry.
	RawRates hal.Buffer

	// History is the double-buffered smoothed-importance history.
	// Frame parity selects which half is read and which is written so
	// a reader never aliases a writer across frames in flight.
	History [2]hal.Buffer

	// StableRates is the stabilized tier grid, the pipeline's output.
	// It stays GPU-resident for the renderer to encode into its
	// hardware rate format; CopySrc allows that encode pass to read it.
	StableRates hal.Buffer

	dims Dims
}

// Dims returns the geometry the buffers were allocated for.
func (b *Buffers) Dims() Dims { return b.dims }

// =============================================================================
// Dispatcher
// =============================================================================

// Dispatcher orchestrates the shading-rate compute pipeline on a
// gogpu/wgpu HAL device. It compiles the three WGSL shaders through
// naga at Init, owns the per-stage pipelines, and encodes the 3-stage
// dispatch sequence each frame.
//
// Pipeline stages (in dispatch order):
//  1. importance -- per-pixel signal fusion
//  2. quantize   -- tile max-reduction + tier thresholding
//  3. temporal   -- history blend + hysteresis re-quantization
//
// Stage ordering within a frame is enforced by the compute pass
// sequence in a single command buffer; each stage's storage writes are
// visible to the next stage's reads when the passes execute in
// submission order.
//
// Reference: internal/ratecompute (CPU implementation)
type Dispatcher struct {
	mu sync.RWMutex

	// device is the HAL device providing GPU resource creation.
	device hal.Device

	// queue is the HAL queue for command submission and buffer writes.
	queue hal.Queue

	pipelines       [StageCount]hal.ComputePipeline
	pipelineLayouts [StageCount]hal.PipelineLayout
	bgLayouts       [StageCount]hal.BindGroupLayout
	shaderModules   [StageCount]hal.ShaderModule
	shaderSources   [StageCount]string

	initialized bool
}

// NewDispatcher creates a dispatcher attached to the given HAL device
// and queue. Init must be called before Dispatch.
func NewDispatcher(device hal.Device, queue hal.Queue) *Dispatcher {
	d := &Dispatcher{
		device: device,
		queue:  queue,
	}
	d.shaderSources = [StageCount]string{
		StageImportance: shaderImportance,
		StageQuantize:   shaderQuantize,
		StageTemporal:   shaderTemporal,
	}
	return d
}

// stageBindGroupLayoutEntries returns the bind group layout entries for
// a given compute stage. These entries match the @group(0) @binding(N)
// annotations in the corresponding WGSL shader files exactly.
func stageBindGroupLayoutEntries(stage Stage) []gputypes.BindGroupLayoutEntry {
	// Every stage has the Params uniform at binding 0.
	paramsUniform := gputypes.BindGroupLayoutEntry{
		Binding:    0,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}
	storageRO := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
		}
	}
	storageRW := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
		}
	}

	switch stage {
	case StageImportance:
		// @binding(0) uniform params
		// @binding(1) storage(read) color
		// @binding(2) storage(read) normal
		// @binding(3) storage(read) depth
		// @binding(4) storage(read) motion
		// @binding(5) storage(read_write) importance
		return []gputypes.BindGroupLayoutEntry{
			paramsUniform, storageRO(1), storageRO(2), storageRO(3), storageRO(4), storageRW(5),
		}

	case StageQuantize:
		// @binding(0) uniform params
		// @binding(1) storage(read) importance
		// @binding(2) storage(read_write) tile_vals
		// @binding(3) storage(read_write) raw_rates
		return []gputypes.BindGroupLayoutEntry{
			paramsUniform, storageRO(1), storageRW(2), storageRW(3),
		}

	case StageTemporal:
		// @binding(0) uniform params
		// @binding(1) storage(read) tile_vals
		// @binding(2) storage(read) history_in
		// @binding(3) storage(read_write) history_out
		// @binding(4) storage(read_write) stable_rates
		return []gputypes.BindGroupLayoutEntry{
			paramsUniform, storageRO(1), storageRO(2), storageRW(3), storageRW(4),
		}

	default:
		return nil
	}
}

// Init compiles all WGSL shaders to SPIR-V via naga and creates the
// compute pipelines. Safe to call multiple times; subsequent calls are
// no-ops if already initialized.
func (d *Dispatcher) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return nil
	}

	for i := Stage(0); i < StageCount; i++ {
		src := d.shaderSources[i]
		if src == "" {
			return fmt.Errorf("isr gpu: missing shader source for stage %s", i)
		}

		stageName := fmt.Sprintf("isr_%s", i)

		// 1. Compile WGSL to SPIR-V.
		spirvBytes, err := naga.Compile(src)
		if err != nil {
			d.destroyPartialInit(i)
			return fmt.Errorf("isr gpu: compile shader for %s: %w", i, err)
		}
		spirv := make([]uint32, len(spirvBytes)/4)
		for j := range spirv {
			spirv[j] = uint32(spirvBytes[j*4]) |
				uint32(spirvBytes[j*4+1])<<8 |
				uint32(spirvBytes[j*4+2])<<16 |
				uint32(spirvBytes[j*4+3])<<24
		}

		// 2. Create shader module.
		module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  stageName,
			Source: hal.ShaderSource{SPIRV: spirv},
		})
		if err != nil {
			d.destroyPartialInit(i)
			return fmt.Errorf("isr gpu: create shader module for %s: %w", i, err)
		}
		d.shaderModules[i] = module

		// 3. Create bind group layout for this stage's bindings.
		entries := stageBindGroupLayoutEntries(i)
		bgLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   stageName + "_bgl",
			Entries: entries,
		})
		if err != nil {
			d.destroyPartialInit(i + 1)
			return fmt.Errorf("isr gpu: create bind group layout for %s: %w", i, err)
		}
		d.bgLayouts[i] = bgLayout

		// 4. Create pipeline layout.
		pipelineLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
			Label:            stageName + "_pl",
			BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
		})
		if err != nil {
			d.destroyPartialInit(i + 1)
			return fmt.Errorf("isr gpu: create pipeline layout for %s: %w", i, err)
		}
		d.pipelineLayouts[i] = pipelineLayout

		// 5. Create compute pipeline.
		pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
			Label:  stageName,
			Layout: pipelineLayout,
			Compute: hal.ComputeState{
				Module:     module,
				EntryPoint: "main",
			},
		})
		if err != nil {
			d.destroyPartialInit(i + 1)
			return fmt.Errorf("isr gpu: create compute pipeline for %s: %w", i, err)
		}
		d.pipelines[i] = pipeline

		slogger().Debug("isr gpu: pipeline created",
			"stage", i.String(),
			"bindings", len(entries),
			"shader_bytes", len(src))
	}

	slogger().Info("isr gpu: all pipelines initialized",
		"stages", int(StageCount))

	d.initialized = true
	return nil
}

// destroyPartialInit cleans up resources for stages [0, upTo) during a
// failed Init, preventing leaks on partial initialization.
func (d *Dispatcher) destroyPartialInit(upTo Stage) {
	for j := Stage(0); j < upTo; j++ {
		if d.pipelines[j] != nil {
			d.device.DestroyComputePipeline(d.pipelines[j])
			d.pipelines[j] = nil
		}
		if d.pipelineLayouts[j] != nil {
			d.device.DestroyPipelineLayout(d.pipelineLayouts[j])
			d.pipelineLayouts[j] = nil
		}
		if d.bgLayouts[j] != nil {
			d.device.DestroyBindGroupLayout(d.bgLayouts[j])
			d.bgLayouts[j] = nil
		}
		if d.shaderModules[j] != nil {
			d.device.DestroyShaderModule(d.shaderModules[j])
			d.shaderModules[j] = nil
		}
	}
}

// Close releases all GPU resources held by the dispatcher. After Close,
// the dispatcher must be re-initialized with Init before use.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyPartialInit(StageCount)
	d.initialized = false
}

// Initialized reports whether Init has completed.
func (d *Dispatcher) Initialized() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.initialized
}

// WorkgroupCount returns the 2D workgroup counts covering w x h
// elements with 8x8 workgroups (ceiling division).
func WorkgroupCount(w, h int) (x, y uint32) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	return uint32((w + wgDim - 1) / wgDim), uint32((h + wgDim - 1) / wgDim)
}

// AllocateBuffers creates the session's GPU buffers. The caller must
// call DestroyBuffers when the session ends or the geometry changes.
func (d *Dispatcher) AllocateBuffers(dims Dims) (*Buffers, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.initialized {
		return nil, fmt.Errorf("isr gpu: dispatcher not initialized, call Init() first")
	}

	pixels := uint64(dims.Width) * uint64(dims.Height)
	entries := uint64(dims.GridWidth) * uint64(dims.GridHeight)

	// Buffer usage flags:
	// - storageCPU:  GPU storage with CPU write access (frame uploads).
	// - storageGPU:  GPU-only storage (inter-stage results).
	// - storageZero: GPU storage that must be zero-initialized (history).
	// - uniformCPU:  uniform buffer with CPU write access (params).
	// - storageOut:  GPU storage readable by the renderer's encode pass.
	storageCPU := gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
	storageGPU := gputypes.BufferUsageStorage
	storageZero := gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
	uniformCPU := gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst
	storageOut := gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst

	bufs := &Buffers{dims: dims}

	type bufSpec struct {
		target   *hal.Buffer
		label    string
		size     uint64
		usage    gputypes.BufferUsage
		zeroInit bool
	}

	specs := []bufSpec{
		{&bufs.Params, "isr_params", paramsSize, uniformCPU, false},
		{&bufs.Color, "isr_color", pixels * uint64(dims.ColorChannels) * 4, storageCPU, false},
		{&bufs.Normal, "isr_normal", pixels * 3 * 4, storageCPU, false},
		{&bufs.Depth, "isr_depth", pixels * 4, storageCPU, false},
		{&bufs.Motion, "isr_motion", pixels * 2 * 4, storageCPU, false},
		{&bufs.Importance, "isr_importance", pixels * 4, storageGPU, false},
		{&bufs.TileVals, "isr_tile_vals", entries * 4, storageGPU, false},
		{&bufs.RawRates, "isr_raw_rates", entries * 4, storageGPU, false},
		{&bufs.History[0], "isr_history_0", entries * 4, storageZero, true},
		{&bufs.History[1], "isr_history_1", entries * 4, storageZero, true},
		{&bufs.StableRates, "isr_stable_rates", entries * 4, storageOut, true},
	}

	for _, s := range specs {
		size := s.size
		if size < 4 {
			size = 4
		}
		buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: s.label,
			Size:  size,
			Usage: s.usage,
		})
		if err != nil {
			d.DestroyBuffers(bufs)
			return nil, fmt.Errorf("isr gpu: create %s buffer: %w", s.label, err)
		}
		*s.target = buf

		if s.zeroInit && size > 0 {
			zeros := make([]byte, size)
			d.queue.WriteBuffer(buf, 0, zeros)
		}
	}

	slogger().Debug("isr gpu: buffers allocated",
		"frame", fmt.Sprintf("%dx%d", dims.Width, dims.Height),
		"grid", fmt.Sprintf("%dx%d", dims.GridWidth, dims.GridHeight),
		"importance_bytes", pixels*4,
		"history_bytes", entries*4)

	return bufs, nil
}

// DestroyBuffers releases all GPU buffers in bufs. After this call the
// buffers must not be used.
func (d *Dispatcher) DestroyBuffers(bufs *Buffers) {
	if bufs == nil {
		return
	}
	destroy := func(b hal.Buffer) {
		if b != nil {
			d.device.DestroyBuffer(b)
		}
	}
	destroy(bufs.Params)
	destroy(bufs.Color)
	destroy(bufs.Normal)
	destroy(bufs.Depth)
	destroy(bufs.Motion)
	destroy(bufs.Importance)
	destroy(bufs.TileVals)
	destroy(bufs.RawRates)
	destroy(bufs.History[0])
	destroy(bufs.History[1])
	destroy(bufs.StableRates)

	// Zero out all fields to prevent accidental reuse.
	*bufs = Buffers{}
}

// UploadFrame writes one frame's input images into the session buffers.
// motion may be nil; the Params.HasMotion flag gates its use in the
// shader, so stale motion data is never read.
func (d *Dispatcher) UploadFrame(bufs *Buffers, color, normal, depth, motion []float32) {
	d.queue.WriteBuffer(bufs.Color, 0, floatsToBytes(color))
	d.queue.WriteBuffer(bufs.Normal, 0, floatsToBytes(normal))
	d.queue.WriteBuffer(bufs.Depth, 0, floatsToBytes(depth))
	if motion != nil {
		d.queue.WriteBuffer(bufs.Motion, 0, floatsToBytes(motion))
	}
}

// HistoryIndices returns the history buffer indices for a frame: the
// half read as history_in and the half written as history_out.
// Selection by frame parity guarantees one completed update's write is
// the next update's read and reader and writer never alias the same
// buffer.
func HistoryIndices(frame uint64) (read, write int) {
	if frame%2 == 0 {
		return 0, 1
	}
	return 1, 0
}

// stageBindGroupEntries returns the bind group entries for a stage,
// mapping each binding index to the correct session buffer. historyRead
// and historyWrite select the double-buffer halves for the temporal
// stage.
func stageBindGroupEntries(stage Stage, bufs *Buffers, historyRead, historyWrite int) []gputypes.BindGroupEntry {
	entry := func(binding uint32, buf hal.Buffer) gputypes.BindGroupEntry {
		return gputypes.BindGroupEntry{
			Binding: binding,
			Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(),
				Offset: 0,
				Size:   0, // 0 = entire buffer
			},
		}
	}

	switch stage {
	case StageImportance:
		return []gputypes.BindGroupEntry{
			entry(0, bufs.Params),
			entry(1, bufs.Color),
			entry(2, bufs.Normal),
			entry(3, bufs.Depth),
			entry(4, bufs.Motion),
			entry(5, bufs.Importance),
		}

	case StageQuantize:
		return []gputypes.BindGroupEntry{
			entry(0, bufs.Params),
			entry(1, bufs.Importance),
			entry(2, bufs.TileVals),
			entry(3, bufs.RawRates),
		}

	case StageTemporal:
		return []gputypes.BindGroupEntry{
			entry(0, bufs.Params),
			entry(1, bufs.TileVals),
			entry(2, bufs.History[historyRead]),
			entry(3, bufs.History[historyWrite]),
			entry(4, bufs.StableRates),
		}

	default:
		return nil
	}
}

// dispatchResources tracks per-frame GPU resources for cleanup.
type dispatchResources struct {
	device     hal.Device
	bindGroups []hal.BindGroup
	cmdBuf     hal.CommandBuffer
	fence      hal.Fence
}

// cleanup destroys all tracked per-frame resources.
func (r *dispatchResources) cleanup() {
	if r.fence != nil {
		r.device.DestroyFence(r.fence)
	}
	if r.cmdBuf != nil {
		r.device.FreeCommandBuffer(r.cmdBuf)
	}
	for _, g := range r.bindGroups {
		r.device.DestroyBindGroup(g)
	}
}

// Dispatch runs the complete 3-stage pipeline for one frame.
//
// The dispatch sequence is:
//  1. importance: color+normal+depth+motion -> importance
//     (ceil(width/8) x ceil(height/8) workgroups)
//  2. quantize:   importance -> tile_vals + raw_rates
//     (ceil(grid_width/8) x ceil(grid_height/8) workgroups)
//  3. temporal:   tile_vals + history -> history' + stable_rates
//     (same grid workgroups)
//
// frame selects the history double-buffer parity; params.HistoryValid
// must reflect whether a prior update completed since the last reset.
// The call blocks until the GPU signals the completion fence, so the
// next Update can never observe a half-written history.
func (d *Dispatcher) Dispatch(bufs *Buffers, params Params, frame uint64) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.initialized {
		return fmt.Errorf("isr gpu: dispatcher not initialized, call Init() first")
	}
	if bufs == nil {
		return fmt.Errorf("isr gpu: buffers must not be nil")
	}

	// Upload the frame parameter block.
	d.queue.WriteBuffer(bufs.Params, 0, params.toBytes())

	historyRead, historyWrite := HistoryIndices(frame)

	type stageDispatch struct {
		stage Stage
		w, h  int
	}
	dims := bufs.dims
	stages := [StageCount]stageDispatch{
		{StageImportance, dims.Width, dims.Height},
		{StageQuantize, dims.GridWidth, dims.GridHeight},
		{StageTemporal, dims.GridWidth, dims.GridHeight},
	}

	res := &dispatchResources{device: d.device}
	defer res.cleanup()

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "isr_update",
	})
	if err != nil {
		return fmt.Errorf("isr gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("isr_update"); err != nil {
		return fmt.Errorf("isr gpu: begin encoding: %w", err)
	}

	for _, sd := range stages {
		wgX, wgY := WorkgroupCount(sd.w, sd.h)
		if wgX == 0 || wgY == 0 {
			continue
		}

		bg, bgErr := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:   fmt.Sprintf("isr_%s_bg", sd.stage),
			Layout:  d.bgLayouts[sd.stage],
			Entries: stageBindGroupEntries(sd.stage, bufs, historyRead, historyWrite),
		})
		if bgErr != nil {
			encoder.DiscardEncoding()
			return fmt.Errorf("isr gpu: create bind group for %s: %w", sd.stage, bgErr)
		}
		res.bindGroups = append(res.bindGroups, bg)

		pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{
			Label: fmt.Sprintf("isr_%s", sd.stage),
		})
		pass.SetPipeline(d.pipelines[sd.stage])
		pass.SetBindGroup(0, bg, nil)
		pass.Dispatch(wgX, wgY, 1)
		pass.End()

		slogger().Debug("isr gpu: dispatched stage",
			"stage", sd.stage.String(),
			"workgroups", fmt.Sprintf("%dx%d", wgX, wgY))
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("isr gpu: end encoding: %w", err)
	}
	res.cmdBuf = cmdBuf

	return d.submitAndWait(res)
}

// submitAndWait submits the command buffer and waits for GPU completion.
func (d *Dispatcher) submitAndWait(res *dispatchResources) error {
	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("isr gpu: create fence: %w", err)
	}
	res.fence = fence

	if err := d.queue.Submit([]hal.CommandBuffer{res.cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("isr gpu: submit: %w", err)
	}

	ok, err := d.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("isr gpu: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("isr gpu: GPU timeout after %v", fenceTimeout)
	}
	return nil
}
