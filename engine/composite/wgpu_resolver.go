package composite

import (
	_ "embed"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/params"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed shaders/composite.wgsl
var compositeWGSL string

type gpuResolve struct {
	Width       uint32
	Height      uint32
	Samples     uint32
	EncodeGamma uint32
	Exposure    float32
	Gamma       float32
	_           [2]float32
	Background  [4]float32
}

// GPUFrame describes one resolve on the device.
type GPUFrame struct {
	Target *wgpu.TextureView
	Mode   params.RenderMode
	// Accum is the ray tracer's running-sum buffer; ignored in raster mode.
	Accum   *wgpu.Buffer
	Samples uint32
	Width   int
	Height  int
	// Background is written where no samples exist yet.
	Background common.RGBA
}

// WGPUResolver is the device-side counterpart of Compositor. In ray-trace mode it resolves
// the accumulation buffer into the target; in raster mode the target already holds the
// raster image. The overlay is blended last with premultiplied "over".
type WGPUResolver struct {
	mu   sync.Mutex
	gpu  renderer.GPU
	comp *Compositor

	layout      *wgpu.BindGroupLayout
	resolvePipe *wgpu.RenderPipeline
	overlayPipe *wgpu.RenderPipeline
	group       *wgpu.BindGroup

	uniform    renderer.GrowBuffer
	emptyAccum *wgpu.Buffer
	overlayTex *wgpu.Texture
	overlayVw  *wgpu.TextureView
	ow, oh     int
	boundAccum *wgpu.Buffer
	staging    []byte
	encode     bool
}

// NewWGPUResolver creates the resolve and overlay pipelines for the surface format.
// Exposure and gamma are read from comp on every resolve.
func NewWGPUResolver(gpu renderer.GPU, comp *Compositor) (*WGPUResolver, error) {
	r := &WGPUResolver{
		gpu:     gpu,
		comp:    comp,
		uniform: renderer.GrowBuffer{Label: "Resolve Params", Usage: wgpu.BufferUsageUniform},
	}
	format := gpu.SurfaceFormat()
	r.encode = format != wgpu.TextureFormatBGRA8UnormSrgb && format != wgpu.TextureFormatRGBA8UnormSrgb

	device := gpu.Device()
	tex := wgpu.BindGroupLayoutEntry{Binding: 2, Visibility: wgpu.ShaderStageFragment}
	tex.Texture.SampleType = wgpu.TextureSampleTypeFloat
	tex.Texture.ViewDimension = wgpu.TextureViewDimension2D
	var err error
	r.layout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Composite Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			renderer.BufferLayoutEntry(0, wgpu.ShaderStageFragment, wgpu.BufferBindingTypeUniform),
			renderer.BufferLayoutEntry(1, wgpu.ShaderStageFragment, wgpu.BufferBindingTypeReadOnlyStorage),
			tex,
		},
	})
	if err != nil {
		return nil, renderer.Classify("create composite layout", err)
	}

	source, err := shader.Prepare(compositeWGSL, shader.Expect[gpuResolve]("Resolve"))
	if err != nil {
		r.Release()
		return nil, err
	}
	module, err := gpu.ShaderModule("Composite", source)
	if err != nil {
		r.Release()
		return nil, err
	}
	defer module.Release()
	pl, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Composite",
		BindGroupLayouts: []*wgpu.BindGroupLayout{r.layout},
	})
	if err != nil {
		r.Release()
		return nil, renderer.Classify("create composite pipeline layout", err)
	}
	defer pl.Release()

	if r.resolvePipe, err = r.pipeline(pl, module, "fs_resolve", nil); err != nil {
		r.Release()
		return nil, err
	}
	premultipliedOver := &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
	}
	if r.overlayPipe, err = r.pipeline(pl, module, "fs_overlay", premultipliedOver); err != nil {
		r.Release()
		return nil, err
	}
	if r.emptyAccum, err = gpu.CreateBuffer("Empty Accumulation", wgpu.BufferUsageStorage, nil, 16); err != nil {
		r.Release()
		return nil, err
	}
	if err = r.resizeOverlay(1, 1); err != nil {
		r.Release()
		return nil, err
	}
	return r, nil
}

func (r *WGPUResolver) pipeline(layout *wgpu.PipelineLayout, module *wgpu.ShaderModule, entry string, blend *wgpu.BlendState) (*wgpu.RenderPipeline, error) {
	p, err := r.gpu.Device().CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Composite " + entry,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_fullscreen",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: entry,
			Targets: []wgpu.ColorTargetState{{
				Format:    r.gpu.SurfaceFormat(),
				Blend:     blend,
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
	})
	if err != nil {
		return nil, renderer.Classify("create composite pipeline "+entry, err)
	}
	return p, nil
}

func (r *WGPUResolver) resizeOverlay(width, height int) error {
	r.releaseOverlay()
	tex, err := r.gpu.Device().CreateTexture(&wgpu.TextureDescriptor{
		Label:     "Overlay Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return renderer.Classify("create overlay texture", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return renderer.Classify("create overlay view", err)
	}
	r.overlayTex, r.overlayVw = tex, view
	r.ow, r.oh = width, height
	r.boundAccum = nil
	return nil
}

// uploadOverlay converts the overlay to 8-bit premultiplied texels.
func (r *WGPUResolver) uploadOverlay(overlay Overlay) error {
	w, h := overlay.Bounds()
	if w <= 0 || h <= 0 {
		return nil
	}
	if w != r.ow || h != r.oh {
		if err := r.resizeOverlay(w, h); err != nil {
			return err
		}
	}
	if n := w * h * 4; len(r.staging) != n {
		r.staging = make([]byte, n)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := overlay.At(x, y)
			o := (y*w + x) * 4
			for k := 0; k < 4; k++ {
				r.staging[o+k] = uint8(common.Clamp(c[k], 0, 1)*255 + 0.5)
			}
		}
	}
	r.gpu.Queue().WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  r.overlayTex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		r.staging,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(w * 4),
			RowsPerImage: uint32(h),
		},
		&wgpu.Extent3D{
			Width:              uint32(w),
			Height:             uint32(h),
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

// Resolve records the resolve and overlay passes into the frame's target and submits them.
func (r *WGPUResolver) Resolve(frame GPUFrame, overlay Overlay) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := gpuResolve{
		Width:      uint32(frame.Width),
		Height:     uint32(frame.Height),
		Samples:    frame.Samples,
		Exposure:   r.comp.Exposure(),
		Gamma:      r.comp.Gamma(),
		Background: frame.Background,
	}
	if r.encode {
		u.EncodeGamma = 1
	}
	replaced, err := r.uniform.Write(r.gpu, common.StructToBytes(&u))
	if err != nil {
		return err
	}
	if overlay != nil {
		if err := r.uploadOverlay(overlay); err != nil {
			return err
		}
	}

	accum := frame.Accum
	if accum == nil || frame.Mode != params.ModeRayTrace {
		accum = r.emptyAccum
	}
	if replaced || r.group == nil || accum != r.boundAccum {
		if err := r.bind(accum); err != nil {
			return err
		}
	}

	encoder, err := r.gpu.Device().CreateCommandEncoder(nil)
	if err != nil {
		return renderer.Classify("create composite encoder", err)
	}
	if frame.Mode == params.ModeRayTrace {
		r.pass(encoder, frame.Target, r.resolvePipe, wgpu.LoadOpClear)
	}
	if overlay != nil {
		r.pass(encoder, frame.Target, r.overlayPipe, wgpu.LoadOpLoad)
	}
	return r.gpu.Submit(encoder, nil)
}

func (r *WGPUResolver) pass(encoder *wgpu.CommandEncoder, target *wgpu.TextureView, p *wgpu.RenderPipeline, load wgpu.LoadOp) {
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    target,
			LoadOp:  load,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	pass.SetPipeline(p)
	pass.SetBindGroup(0, r.group, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()
	pass.Release()
}

func (r *WGPUResolver) bind(accum *wgpu.Buffer) error {
	if r.group != nil {
		r.group.Release()
	}
	bg, err := r.gpu.Device().CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Composite Bind Group",
		Layout: r.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.uniform.Buf, Offset: 0, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: accum, Offset: 0, Size: wgpu.WholeSize},
			{Binding: 2, TextureView: r.overlayVw},
		},
	})
	if err != nil {
		r.group = nil
		return renderer.Classify("create composite bind group", err)
	}
	r.group = bg
	r.boundAccum = accum
	logger.Debug("composite bind group rebuilt")
	return nil
}

func (r *WGPUResolver) releaseOverlay() {
	if r.overlayVw != nil {
		r.overlayVw.Release()
		r.overlayVw = nil
	}
	if r.overlayTex != nil {
		r.overlayTex.Release()
		r.overlayTex = nil
	}
}

// Release frees pipelines, textures and buffers.
func (r *WGPUResolver) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.group != nil {
		r.group.Release()
		r.group = nil
	}
	r.releaseOverlay()
	r.uniform.Release()
	if r.emptyAccum != nil {
		r.emptyAccum.Release()
		r.emptyAccum = nil
	}
	for _, p := range []*wgpu.RenderPipeline{r.resolvePipe, r.overlayPipe} {
		if p != nil {
			p.Release()
		}
	}
	r.resolvePipe, r.overlayPipe = nil, nil
	if r.layout != nil {
		r.layout.Release()
		r.layout = nil
	}
}
