package raytracer

// pcg is the PCG-RXS-M-XS hash; raytrace.wgsl uses the same function so both backends
// draw the same sequence for a pixel and frame.
func pcg(v uint32) uint32 {
	state := v*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

type rng struct {
	state uint32
}

// newRNG seeds a sequence from a pixel index and the frame counter.
func newRNG(pixel, frame uint32) rng {
	return rng{state: pcg(pixel ^ pcg(frame+0x9e3779b9))}
}

// float returns a value in [0, 1).
func (r *rng) float() float32 {
	r.state = pcg(r.state)
	return float32(r.state>>8) / (1 << 24)
}
