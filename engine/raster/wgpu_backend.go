package raster

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

//go:embed shaders/raster.wgsl
var rasterWGSL string

const noOverride = ^uint32(0)

// shaderSource expands the raster shader and checks it against the host upload types.
func shaderSource() (string, error) {
	return shader.Prepare(rasterWGSL,
		shader.Expect[gpuFrame]("FrameUniform"),
		shader.Expect[gpuInstance]("InstanceData"),
		shader.Expect[material.GPUMaterial]("Material"),
	)
}

type gpuVertex struct {
	Position [3]float32
	Normal   [3]float32
	Material uint32
}

type gpuFrame struct {
	ViewProjection mgl32.Mat4
	Eye            [3]float32
	LightType      int32
	LightPosition  [3]float32
	LightIntensity float32
}

type gpuInstance struct {
	World            mgl32.Mat4
	Normal           [12]float32
	MaterialOverride uint32
	_                [3]uint32
}

// gpuMesh is a mesh expanded to one vertex per triangle corner so the material index can
// ride on the vertex.
type gpuMesh struct {
	vertices     *wgpu.Buffer
	vertexCount  uint32
	materialBase uint32
}

// WGPUBackend records one render pass per frame with one draw per instance.
// The color target is set per frame by the caller, typically the acquired surface view.
type WGPUBackend struct {
	mu  sync.Mutex
	gpu renderer.GPU

	pipeline *wgpu.RenderPipeline
	layout   *wgpu.BindGroupLayout
	group    *wgpu.BindGroup

	frameBuf  renderer.GrowBuffer
	instBuf   renderer.GrowBuffer
	matBuf    renderer.GrowBuffer
	materials []material.GPUMaterial
	meshes    map[geometry.MeshID]*gpuMesh

	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView
	width        int
	height       int

	target   *wgpu.TextureView
	frame    Frame
	calls    []DrawCall
	rebind   bool
	matDirty bool
}

var _ Backend = &WGPUBackend{}

// NewWGPUBackend creates the raster pipeline for the surface format.
//
// Parameters:
//   - gpu: the device context
//
// Returns:
//   - *WGPUBackend: the backend
//   - error: pipeline creation failure
func NewWGPUBackend(gpu renderer.GPU) (*WGPUBackend, error) {
	b := &WGPUBackend{
		gpu:      gpu,
		meshes:   make(map[geometry.MeshID]*gpuMesh),
		frameBuf: renderer.GrowBuffer{Label: "Raster Frame", Usage: wgpu.BufferUsageUniform},
		instBuf:  renderer.GrowBuffer{Label: "Raster Instances", Usage: wgpu.BufferUsageStorage},
		matBuf:   renderer.GrowBuffer{Label: "Raster Materials", Usage: wgpu.BufferUsageStorage},
	}
	device := gpu.Device()
	vf := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	var err error
	b.layout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Raster Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			renderer.BufferLayoutEntry(0, vf, wgpu.BufferBindingTypeUniform),
			renderer.BufferLayoutEntry(1, wgpu.ShaderStageVertex, wgpu.BufferBindingTypeReadOnlyStorage),
			renderer.BufferLayoutEntry(2, wgpu.ShaderStageFragment, wgpu.BufferBindingTypeReadOnlyStorage),
		},
	})
	if err != nil {
		return nil, renderer.Classify("create raster layout", err)
	}

	source, err := shaderSource()
	if err != nil {
		b.Release()
		return nil, err
	}
	module, err := gpu.ShaderModule("Raster", source)
	if err != nil {
		b.Release()
		return nil, err
	}
	defer module.Release()
	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Raster",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.layout},
	})
	if err != nil {
		b.Release()
		return nil, renderer.Classify("create raster pipeline layout", err)
	}
	defer pipelineLayout.Release()

	b.pipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Raster Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: 28,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
					{Format: wgpu.VertexFormatUint32, Offset: 24, ShaderLocation: 2},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    gpu.SurfaceFormat(),
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
	})
	if err != nil {
		b.Release()
		return nil, renderer.Classify("create raster pipeline", err)
	}
	return b, nil
}

// SetTarget sets the color attachment of the next frame.
func (b *WGPUBackend) SetTarget(view *wgpu.TextureView) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = view
}

func (b *WGPUBackend) Begin(frame Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.target == nil {
		return fmt.Errorf("raster: no color target set")
	}
	if frame.Width != b.width || frame.Height != b.height || b.depthView == nil {
		if err := b.resizeDepth(frame.Width, frame.Height); err != nil {
			return err
		}
	}
	b.frame = frame
	b.calls = b.calls[:0]
	return nil
}

func (b *WGPUBackend) resizeDepth(width, height int) error {
	b.releaseDepth()
	tex, err := b.gpu.Device().CreateTexture(&wgpu.TextureDescriptor{
		Label: "Raster Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return renderer.Classify("create depth texture", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return renderer.Classify("create depth view", err)
	}
	b.depthTexture, b.depthView = tex, view
	b.width, b.height = width, height
	return nil
}

// Draw uploads the mesh on first use and queues the instance.
func (b *WGPUBackend) Draw(call DrawCall) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.meshes[call.Mesh.ID]; !ok {
		if err := b.uploadMesh(call.Mesh); err != nil {
			return err
		}
	}
	b.calls = append(b.calls, call)
	return nil
}

func (b *WGPUBackend) uploadMesh(mesh *geometry.Mesh) error {
	base := uint32(len(b.materials))
	for i := range mesh.Materials {
		b.materials = append(b.materials, material.Pack(&mesh.Materials[i], 0))
	}
	def := geometry.DefaultMaterial()
	b.materials = append(b.materials, material.Pack(&def, 0))
	fallback := base + uint32(len(mesh.Materials))

	verts := make([]gpuVertex, 0, len(mesh.Indices))
	for t := 0; t < mesh.TriangleCount(); t++ {
		mat := fallback
		if t < len(mesh.MaterialIndices) {
			if idx := mesh.MaterialIndices[t]; idx >= 0 && int(idx) < len(mesh.Materials) {
				mat = base + uint32(idx)
			}
		}
		for k := 0; k < 3; k++ {
			v := &mesh.Vertices[mesh.Indices[3*t+k]]
			verts = append(verts, gpuVertex{Position: v.Position, Normal: v.Normal, Material: mat})
		}
	}

	buf, err := b.gpu.CreateBuffer(fmt.Sprintf("Mesh %d Vertex Buffer", mesh.ID), wgpu.BufferUsageVertex, common.SliceToBytes(verts), 0)
	if err != nil {
		return err
	}
	b.meshes[mesh.ID] = &gpuMesh{vertices: buf, vertexCount: uint32(len(verts)), materialBase: base}
	b.matDirty = true
	return nil
}

// End uploads the frame's uniforms and records the pass.
func (b *WGPUBackend) End() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	f := gpuFrame{
		ViewProjection: b.frame.ViewProjection,
		Eye:            b.frame.Eye,
		LightType:      int32(b.frame.Light.Type),
		LightPosition:  b.frame.Light.Position,
		LightIntensity: b.frame.Light.Intensity,
	}
	insts := make([]gpuInstance, len(b.calls))
	for i, c := range b.calls {
		insts[i] = gpuInstance{
			World:            c.Instance.World,
			Normal:           common.Mat3Std430(c.Instance.Normal),
			MaterialOverride: noOverride,
		}
		if o := c.Instance.MaterialOverride; o != scene.NoMaterialOverride && int(o) < len(c.Mesh.Materials) {
			insts[i].MaterialOverride = b.meshes[c.Mesh.ID].materialBase + uint32(o)
		}
	}

	writes := []struct {
		buf  *renderer.GrowBuffer
		data []byte
	}{
		{&b.frameBuf, common.StructToBytes(&f)},
		{&b.instBuf, common.SliceToBytes(insts)},
	}
	if b.matDirty || b.matBuf.Buf == nil {
		writes = append(writes, struct {
			buf  *renderer.GrowBuffer
			data []byte
		}{&b.matBuf, common.SliceToBytes(b.materials)})
		b.matDirty = false
	}
	for _, w := range writes {
		replaced, err := w.buf.Write(b.gpu, w.data)
		if err != nil {
			return err
		}
		b.rebind = b.rebind || replaced
	}
	if b.rebind || b.group == nil {
		if b.group != nil {
			b.group.Release()
		}
		bg, err := renderer.BufferBindGroup(b.gpu.Device(), "Raster", b.layout, b.frameBuf.Buf, b.instBuf.Buf, b.matBuf.Buf)
		if err != nil {
			return err
		}
		b.group = bg
		b.rebind = false
	}

	encoder, err := b.gpu.Device().CreateCommandEncoder(nil)
	if err != nil {
		return renderer.Classify("create raster encoder", err)
	}
	cc := b.frame.ClearColor
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       b.target,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: float64(cc[0]), G: float64(cc[1]), B: float64(cc[2]), A: float64(cc[3])},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})
	pass.SetPipeline(b.pipeline)
	pass.SetBindGroup(0, b.group, nil)
	for i, c := range b.calls {
		m := b.meshes[c.Mesh.ID]
		pass.SetVertexBuffer(0, m.vertices, 0, wgpu.WholeSize)
		pass.Draw(m.vertexCount, 1, 0, uint32(i))
	}
	pass.End()
	pass.Release()
	return b.gpu.Submit(encoder, nil)
}

func (b *WGPUBackend) releaseDepth() {
	if b.depthView != nil {
		b.depthView.Release()
		b.depthView = nil
	}
	if b.depthTexture != nil {
		b.depthTexture.Release()
		b.depthTexture = nil
	}
}

// Release frees meshes, targets and the pipeline.
func (b *WGPUBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, m := range b.meshes {
		m.vertices.Release()
		delete(b.meshes, id)
	}
	b.materials = nil
	b.releaseDepth()
	if b.group != nil {
		b.group.Release()
		b.group = nil
	}
	b.frameBuf.Release()
	b.instBuf.Release()
	b.matBuf.Release()
	if b.pipeline != nil {
		b.pipeline.Release()
		b.pipeline = nil
	}
	if b.layout != nil {
		b.layout.Release()
		b.layout = nil
	}
	b.target = nil
}
