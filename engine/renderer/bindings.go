package renderer

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// BufferLayoutEntry describes one buffer binding of a bind group layout.
func BufferLayoutEntry(binding uint32, visibility wgpu.ShaderStage, kind wgpu.BufferBindingType) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
	}
	entry.Buffer.Type = kind
	return entry
}

// BufferBindGroup binds buffers to consecutive bindings starting at 0, each over its whole size.
//
// Parameters:
//   - device: the device creating the group
//   - label: debug label
//   - layout: layout whose entries match buffers in order
//   - buffers: one buffer per binding
//
// Returns:
//   - *wgpu.BindGroup: the bind group
//   - error: classified creation failure
func BufferBindGroup(device *wgpu.Device, label string, layout *wgpu.BindGroupLayout, buffers ...*wgpu.Buffer) (*wgpu.BindGroup, error) {
	entries := make([]wgpu.BindGroupEntry, len(buffers))
	for i, buf := range buffers {
		if buf == nil {
			return nil, fmt.Errorf("bind group %s: binding %d has no buffer", label, i)
		}
		entries[i] = wgpu.BindGroupEntry{
			Binding: uint32(i),
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}
	bg, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label + " Bind Group",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, Classify("create bind group "+label, err)
	}
	return bg, nil
}

// ComputePipeline compiles a WGSL module and creates a compute pipeline over the given layouts.
func ComputePipeline(g GPU, label, source, entryPoint string, layouts ...*wgpu.BindGroupLayout) (*wgpu.ComputePipeline, error) {
	module, err := g.ShaderModule(label, source)
	if err != nil {
		return nil, err
	}
	defer module.Release()

	layout, err := g.Device().CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, Classify("create pipeline layout "+label, err)
	}
	defer layout.Release()

	p, err := g.Device().CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  label + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: entryPoint,
		},
	})
	if err != nil {
		return nil, Classify("create compute pipeline "+label, err)
	}
	return p, nil
}

// GrowBuffer is a device buffer that is replaced by a larger one when an upload does not fit.
type GrowBuffer struct {
	Label string
	Usage wgpu.BufferUsage
	Buf   *wgpu.Buffer
	size  uint64
}

// Write uploads data, reallocating when it does not fit.
//
// Returns:
//   - bool: whether the buffer was replaced and bind groups referencing it must be recreated
//   - error: classified allocation failure
func (b *GrowBuffer) Write(g GPU, data []byte) (bool, error) {
	if b.Buf != nil && b.size >= uint64(len(data)) {
		if len(data) > 0 {
			g.Queue().WriteBuffer(b.Buf, 0, data)
		}
		return false, nil
	}
	b.Release()
	size := max(uint64(len(data)), 16)
	size = (size + 15) &^ 15
	buf, err := g.CreateBuffer(b.Label, b.Usage, data, size)
	if err != nil {
		return true, err
	}
	b.Buf, b.size = buf, size
	return true, nil
}

// Release frees the device buffer.
func (b *GrowBuffer) Release() {
	if b.Buf != nil {
		b.Buf.Release()
		b.Buf = nil
	}
	b.size = 0
}
