package raytracer

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/accel"
	"github.com/Carmen-Shannon/oxy-rt/engine/accumulator"
	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

//go:embed shaders/raytrace.wgsl
var raytraceWGSL string

// shaderSource expands the ray-tracing shader and checks it against the host upload types.
func shaderSource() (string, error) {
	return shader.Prepare(raytraceWGSL,
		shader.Expect[gpuCamera]("Camera"),
		shader.Expect[PushConstants]("PushConstants"),
		shader.Expect[gpuNode]("Node"),
		shader.Expect[gpuTriangle]("Triangle"),
		shader.Expect[gpuInstance]("Instance"),
		shader.Expect[material.GPUMaterial]("Material"),
	)
}

const (
	workgroupSize = 8
	noOverride    = ^uint32(0)
)

// gpuNode mirrors Node in raytrace.wgsl. Internal nodes store the right child in Offset;
// leaves store the first primitive and a non-zero Count.
type gpuNode struct {
	Min    [3]float32
	Offset uint32
	Max    [3]float32
	Count  uint32
}

type gpuTriangle struct {
	V0       [3]float32
	Material uint32
	E1       [3]float32
	Prim     uint32
	E2       [3]float32
	_        uint32
}

type gpuInstance struct {
	WorldToObject    mgl32.Mat4
	Normal           [12]float32
	BLASRoot         uint32
	MaterialOverride uint32
	CustomIndex      uint32
	Mask             uint32
}

type gpuCamera struct {
	InverseViewProjection mgl32.Mat4
	Eye                   [3]float32
	Width                 uint32
	Height                uint32
	TLASNodes             uint32
	_                     [2]uint32
}

// meshSlot locates one mesh inside the packed BLAS arrays.
type meshSlot struct {
	root         uint32
	materialBase uint32
}

// WGPUBackend traces in a compute shader. It is also the residency sink of the acceleration
// structures: BLAS and TLAS builds are packed on arrival and uploaded before the next dispatch,
// which orders them ahead of it on the queue.
type WGPUBackend struct {
	mu  sync.Mutex
	gpu renderer.GPU

	pipeline    *wgpu.ComputePipeline
	frameLayout *wgpu.BindGroupLayout
	sceneLayout *wgpu.BindGroupLayout
	frameGroup  *wgpu.BindGroup
	sceneGroup  *wgpu.BindGroup

	camera    renderer.GrowBuffer
	push      renderer.GrowBuffer
	accum     renderer.GrowBuffer
	blasNodes renderer.GrowBuffer
	triangles renderer.GrowBuffer
	tlasNodes renderer.GrowBuffer
	instances renderer.GrowBuffer
	materials renderer.GrowBuffer
	table     renderer.GrowBuffer

	meshes       map[geometry.MeshID]meshSlot
	hostNodes    []gpuNode
	hostTris     []gpuTriangle
	hostTLAS     []gpuNode
	hostInsts    []gpuInstance
	hostMats     []geometry.Material
	sceneDirty   bool
	sbtVersion   int
	accumPixels  int
	frameRebound bool
}

var (
	_ Backend         = &WGPUBackend{}
	_ accel.Residency = &WGPUBackend{}
)

// NewWGPUBackend compiles the ray-tracing pipeline on the device.
//
// Parameters:
//   - gpu: the device context
//
// Returns:
//   - *WGPUBackend: the backend
//   - error: pipeline creation failure
func NewWGPUBackend(gpu renderer.GPU) (*WGPUBackend, error) {
	b := &WGPUBackend{
		gpu:    gpu,
		meshes: make(map[geometry.MeshID]meshSlot),
	}
	storage := wgpu.BufferUsageStorage
	b.camera = renderer.GrowBuffer{Label: "RT Camera", Usage: wgpu.BufferUsageUniform}
	b.push = renderer.GrowBuffer{Label: "RT Push Constants", Usage: wgpu.BufferUsageUniform}
	b.accum = renderer.GrowBuffer{Label: "RT Accumulation", Usage: storage | wgpu.BufferUsageCopySrc}
	b.blasNodes = renderer.GrowBuffer{Label: "BLAS Nodes", Usage: storage}
	b.triangles = renderer.GrowBuffer{Label: "BLAS Triangles", Usage: storage}
	b.tlasNodes = renderer.GrowBuffer{Label: "TLAS Nodes", Usage: storage}
	b.instances = renderer.GrowBuffer{Label: "TLAS Instances", Usage: storage}
	b.materials = renderer.GrowBuffer{Label: "Materials", Usage: storage}
	b.table = renderer.GrowBuffer{Label: "Shader Binding Table", Usage: storage}

	device := gpu.Device()
	compute := wgpu.ShaderStageCompute
	var err error
	b.frameLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "RT Frame Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			renderer.BufferLayoutEntry(0, compute, wgpu.BufferBindingTypeUniform),
			renderer.BufferLayoutEntry(1, compute, wgpu.BufferBindingTypeUniform),
			renderer.BufferLayoutEntry(2, compute, wgpu.BufferBindingTypeStorage),
		},
	})
	if err != nil {
		return nil, renderer.Classify("create rt frame layout", err)
	}
	sceneEntries := make([]wgpu.BindGroupLayoutEntry, 6)
	for i := range sceneEntries {
		sceneEntries[i] = renderer.BufferLayoutEntry(uint32(i), compute, wgpu.BufferBindingTypeReadOnlyStorage)
	}
	b.sceneLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "RT Scene Layout",
		Entries: sceneEntries,
	})
	if err != nil {
		b.Release()
		return nil, renderer.Classify("create rt scene layout", err)
	}
	source, err := shaderSource()
	if err != nil {
		b.Release()
		return nil, err
	}
	b.pipeline, err = renderer.ComputePipeline(gpu, "Ray Trace", source, "main", b.frameLayout, b.sceneLayout)
	if err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

// ResidentBLAS appends a bottom-level structure to the packed arrays.
func (b *WGPUBackend) ResidentBLAS(rec *accel.BLASRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.meshes[rec.Mesh.ID]; ok {
		return nil
	}

	nodeBase := uint32(len(b.hostNodes))
	triBase := uint32(len(b.hostTris))
	slot := meshSlot{root: nodeBase, materialBase: uint32(len(b.hostMats))}
	b.hostMats = append(b.hostMats, rec.Mesh.Materials...)
	b.hostMats = append(b.hostMats, geometry.DefaultMaterial())
	fallback := slot.materialBase + uint32(len(rec.Mesh.Materials))

	for _, n := range rec.BVH.Nodes {
		g := gpuNode{Min: n.Bounds.Min, Max: n.Bounds.Max, Count: n.Count}
		if n.Leaf() {
			g.Offset = triBase + n.Offset
		} else {
			g.Offset = nodeBase + n.Offset
		}
		b.hostNodes = append(b.hostNodes, g)
	}
	for _, t := range rec.Triangles {
		mat := fallback
		if int(t.Prim) < len(rec.Mesh.MaterialIndices) {
			if idx := rec.Mesh.MaterialIndices[t.Prim]; idx >= 0 && int(idx) < len(rec.Mesh.Materials) {
				mat = slot.materialBase + uint32(idx)
			}
		}
		b.hostTris = append(b.hostTris, gpuTriangle{V0: t.V0, Material: mat, E1: t.Edge1, Prim: t.Prim, E2: t.Edge2})
	}
	b.meshes[rec.Mesh.ID] = slot
	b.sceneDirty = true
	return nil
}

// ResidentTLAS repacks the top level. Instances are stored in leaf order so leaf ranges index them directly.
func (b *WGPUBackend) ResidentTLAS(instances []accel.TLASInstance, nodes accel.BVH) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hostTLAS = b.hostTLAS[:0]
	for _, n := range nodes.Nodes {
		b.hostTLAS = append(b.hostTLAS, gpuNode{Min: n.Bounds.Min, Offset: n.Offset, Max: n.Bounds.Max, Count: n.Count})
	}
	b.hostInsts = b.hostInsts[:0]
	for _, p := range nodes.Order {
		inst := &instances[p]
		slot, ok := b.meshes[inst.BLAS.Mesh.ID]
		if !ok {
			return fmt.Errorf("tlas instance %d references mesh %d with no resident blas", inst.CustomIndex, inst.BLAS.Mesh.ID)
		}
		g := gpuInstance{
			WorldToObject:    inst.WorldToObject,
			BLASRoot:         slot.root,
			MaterialOverride: noOverride,
			CustomIndex:      inst.CustomIndex,
			Mask:             uint32(inst.Mask),
		}
		g.Normal = common.Mat3Std430(inst.Source.Normal)
		if o := inst.Source.MaterialOverride; o != scene.NoMaterialOverride && int(o) < len(inst.BLAS.Mesh.Materials) {
			g.MaterialOverride = slot.materialBase + uint32(o)
		}
		b.hostInsts = append(b.hostInsts, g)
	}
	b.sceneDirty = true
	return nil
}

func (b *WGPUBackend) Trace(tlas *accel.TLAS, sbt *ShaderBindingTable, pc PushConstants, frame Frame, acc *accumulator.Accumulator) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pipeline == nil {
		return fmt.Errorf("trace: backend released")
	}

	if err := b.uploadScene(sbt); err != nil {
		return err
	}

	pixels := frame.Width * frame.Height
	if pixels != b.accumPixels {
		b.accum.Release()
		buf, err := b.gpu.CreateBuffer(b.accum.Label, b.accum.Usage, nil, uint64(pixels)*16)
		if err != nil {
			return err
		}
		b.accum.Buf = buf
		b.accumPixels = pixels
		b.frameRebound = true
	}

	cam := gpuCamera{
		InverseViewProjection: frame.InverseViewProjection,
		Eye:                   frame.Eye,
		Width:                 uint32(frame.Width),
		Height:                uint32(frame.Height),
		TLASNodes:             uint32(len(b.hostTLAS)),
	}
	for _, w := range []struct {
		buf  *renderer.GrowBuffer
		data []byte
	}{
		{&b.camera, common.StructToBytes(&cam)},
		{&b.push, pc.Bytes()},
	} {
		replaced, err := w.buf.Write(b.gpu, w.data)
		if err != nil {
			return err
		}
		b.frameRebound = b.frameRebound || replaced
	}

	if b.frameRebound || b.frameGroup == nil {
		if b.frameGroup != nil {
			b.frameGroup.Release()
		}
		bg, err := renderer.BufferBindGroup(b.gpu.Device(), "RT Frame", b.frameLayout, b.camera.Buf, b.push.Buf, b.accum.Buf)
		if err != nil {
			return err
		}
		b.frameGroup = bg
		b.frameRebound = false
	}

	encoder, err := b.gpu.Device().CreateCommandEncoder(nil)
	if err != nil {
		return renderer.Classify("create rt encoder", err)
	}
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(b.pipeline)
	pass.SetBindGroup(0, b.frameGroup, nil)
	pass.SetBindGroup(1, b.sceneGroup, nil)
	pass.DispatchWorkgroups(
		uint32((frame.Width+workgroupSize-1)/workgroupSize),
		uint32((frame.Height+workgroupSize-1)/workgroupSize),
		1,
	)
	pass.End()
	pass.Release()
	if err := b.gpu.Submit(encoder, nil); err != nil {
		return err
	}
	acc.Record()
	return nil
}

// uploadScene writes the packed structures when they or the binding table changed.
func (b *WGPUBackend) uploadScene(sbt *ShaderBindingTable) error {
	if !b.sceneDirty && b.sbtVersion == sbt.Version() && b.sceneGroup != nil {
		return nil
	}
	table, err := sbt.Bytes()
	if err != nil {
		return err
	}
	mats := material.PackAll(b.hostMats, func(m *geometry.Material) uint32 {
		return uint32(sbt.HitGroupFor(m))
	})

	rebound := false
	for _, w := range []struct {
		buf  *renderer.GrowBuffer
		data []byte
	}{
		{&b.blasNodes, common.SliceToBytes(b.hostNodes)},
		{&b.triangles, common.SliceToBytes(b.hostTris)},
		{&b.tlasNodes, common.SliceToBytes(b.hostTLAS)},
		{&b.instances, common.SliceToBytes(b.hostInsts)},
		{&b.materials, common.SliceToBytes(mats)},
		{&b.table, table},
	} {
		replaced, err := w.buf.Write(b.gpu, w.data)
		if err != nil {
			return err
		}
		rebound = rebound || replaced
	}

	if rebound || b.sceneGroup == nil {
		if b.sceneGroup != nil {
			b.sceneGroup.Release()
		}
		bg, err := renderer.BufferBindGroup(b.gpu.Device(), "RT Scene", b.sceneLayout,
			b.blasNodes.Buf, b.triangles.Buf, b.tlasNodes.Buf, b.instances.Buf, b.materials.Buf, b.table.Buf)
		if err != nil {
			return err
		}
		b.sceneGroup = bg
	}
	b.sceneDirty = false
	b.sbtVersion = sbt.Version()
	logger.Debugf("uploaded %d blas nodes, %d triangles, %d instances", len(b.hostNodes), len(b.hostTris), len(b.hostInsts))
	return nil
}

// AccumBuffer returns the running-sum image, one vec4 per pixel, for the resolve pass.
func (b *WGPUBackend) AccumBuffer() *wgpu.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accum.Buf
}

// ForgetBLAS drops every packed structure; the next residency calls repack from scratch.
func (b *WGPUBackend) ForgetBLAS() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.meshes)
	b.hostNodes, b.hostTris, b.hostMats = nil, nil, nil
	b.hostTLAS, b.hostInsts = nil, nil
	b.sceneDirty = true
}

// Release frees the pipeline and every device buffer.
func (b *WGPUBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, g := range []*wgpu.BindGroup{b.frameGroup, b.sceneGroup} {
		if g != nil {
			g.Release()
		}
	}
	b.frameGroup, b.sceneGroup = nil, nil
	for _, buf := range []*renderer.GrowBuffer{&b.camera, &b.push, &b.accum, &b.blasNodes, &b.triangles, &b.tlasNodes, &b.instances, &b.materials, &b.table} {
		buf.Release()
	}
	b.accumPixels = 0
	if b.pipeline != nil {
		b.pipeline.Release()
		b.pipeline = nil
	}
	for _, l := range []*wgpu.BindGroupLayout{b.frameLayout, b.sceneLayout} {
		if l != nil {
			l.Release()
		}
	}
	b.frameLayout, b.sceneLayout = nil, nil
}
