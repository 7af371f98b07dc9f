package raytracer

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-rt/engine/accel"
	"github.com/Carmen-Shannon/oxy-rt/engine/accumulator"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/params"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/Carmen-Shannon/oxy-rt/engine/shading"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// rayEpsilon offsets secondary rays off the surface they leave.
const rayEpsilon float32 = 1e-3

// SoftwareBackend traces on the CPU, one row band per pool task.
type SoftwareBackend struct {
	mu      sync.Mutex
	workers int
	pool    worker.DynamicWorkerPool
	sample  []float32
}

var _ Backend = &SoftwareBackend{}

// NewSoftwareBackend creates a CPU backend.
//
// Parameters:
//   - options: functional options (worker count)
//
// Returns:
//   - *SoftwareBackend: the backend
func NewSoftwareBackend(options ...SoftwareBackendBuilderOption) *SoftwareBackend {
	b := &SoftwareBackend{workers: max(runtime.NumCPU(), 1)}
	for _, opt := range options {
		opt(b)
	}
	b.pool = worker.NewDynamicWorkerPool(b.workers, 256, 1*time.Second)
	return b
}

// traceContext is the read-only state shared by every pixel of one dispatch.
type traceContext struct {
	tlas      *accel.TLAS
	sbt       *ShaderBindingTable
	instances []accel.TLASInstance
	pc        PushConstants
	light     params.LightState
}

func (b *SoftwareBackend) Trace(tlas *accel.TLAS, sbt *ShaderBindingTable, pc PushConstants, frame Frame, acc *accumulator.Accumulator) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	w, h := frame.Width, frame.Height
	if w <= 0 || h <= 0 {
		return fmt.Errorf("trace: invalid frame size %dx%d", w, h)
	}
	if n := w * h * 4; cap(b.sample) < n {
		b.sample = make([]float32, n)
	} else {
		b.sample = b.sample[:n]
	}

	tc := &traceContext{
		tlas:      tlas,
		sbt:       sbt,
		instances: tlas.Instances(),
		pc:        pc,
		light:     pc.Light(),
	}

	bands := min(h, b.workers*4)
	rowsPer := (h + bands - 1) / bands
	var wg sync.WaitGroup
	for band := 0; band*rowsPer < h; band++ {
		y0, y1 := band*rowsPer, min((band+1)*rowsPer, h)
		wg.Add(1)
		b.pool.SubmitTask(worker.Task{
			ID: band,
			Do: func() (any, error) {
				defer wg.Done()
				for y := y0; y < y1; y++ {
					for x := 0; x < w; x++ {
						c := tc.pixel(x, y, frame)
						copy(b.sample[(y*w+x)*4:], c[:])
					}
				}
				return nil, nil
			},
		})
	}
	wg.Wait()

	return acc.Accumulate(b.sample)
}

// pixel traces one camera sample. Frame 0 samples the pixel center so the first image
// lines up with the raster path; later frames jitter inside the pixel.
func (tc *traceContext) pixel(x, y int, frame Frame) [4]float32 {
	r := newRNG(uint32(y*frame.Width+x), tc.pc.FrameCounter)
	jx, jy := float32(0.5), float32(0.5)
	if tc.pc.FrameCounter > 0 {
		jx, jy = r.float(), r.float()
	}
	origin, dir := camera.PrimaryRayFrom(frame.InverseViewProjection, frame.Eye, float32(x)+jx, float32(y)+jy, frame.Width, frame.Height)
	ray := accel.NewRay(origin, dir.Normalize())

	hit, ok := tc.tlas.Intersect(ray, 0, math32.Inf(1))
	if !ok {
		return tc.pc.ClearColor
	}
	c := tc.shade(ray, hit, 0, &r)
	return [4]float32{c[0], c[1], c[2], 1}
}

// radiance follows a secondary ray. Secondary misses return no light.
func (tc *traceContext) radiance(ray accel.Ray, depth uint32, r *rng) mgl32.Vec3 {
	hit, ok := tc.tlas.Intersect(ray, 0, math32.Inf(1))
	if !ok {
		return mgl32.Vec3{}
	}
	return tc.shade(ray, hit, depth, r)
}

// shade runs the closest-hit routine selected through the binding table.
func (tc *traceContext) shade(ray accel.Ray, hit accel.Hit, depth uint32, r *rng) mgl32.Vec3 {
	inst := &tc.instances[hit.Instance]
	mat := materialOf(inst, hit.Prim)
	n := shadingNormal(inst, hit)
	n = shading.FaceForward(n, ray.Dir)

	shader := ShaderHitPhong
	if rec, err := tc.sbt.Record(GroupHit, tc.sbt.HitGroupFor(&mat)); err == nil {
		shader = rec.Shader
	}

	switch shader {
	case ShaderHitEmissive:
		return mat.Emission
	case ShaderHitMirror:
		if depth+1 < tc.pc.MaxBounces {
			tint := mat.Specular
			if tint.Len() == 0 {
				tint = mgl32.Vec3{1, 1, 1}
			}
			refl := accel.NewRay(hit.Point.Add(n.Mul(rayEpsilon)), shading.Reflect(ray.Dir, n))
			in := tc.radiance(refl, depth+1, r)
			return mgl32.Vec3{tint[0] * in[0], tint[1] * in[1], tint[2] * in[2]}
		}
	}
	return tc.phong(ray, hit, &mat, n, depth, r)
}

func (tc *traceContext) phong(ray accel.Ray, hit accel.Hit, mat *geometry.Material, n mgl32.Vec3, depth uint32, r *rng) mgl32.Vec3 {
	origin := hit.Point.Add(n.Mul(rayEpsilon))
	ls := shading.SampleLight(tc.light, hit.Point)
	shadowed := false
	if ls.Intensity > 0 && n.Dot(ls.Dir) > 0 {
		shadowed = tc.tlas.Occluded(accel.NewRay(origin, ls.Dir), 0, ls.Distance-rayEpsilon)
	}
	c := shading.Direct(mat, n, ray.Dir.Mul(-1), ls, shadowed)

	if tc.pc.PathTracing == 0 || depth+1 >= tc.pc.MaxBounces {
		return c
	}
	// Cosine-weighted bounce; the pdf cancels the Lambert cosine and 1/pi.
	in := tc.radiance(accel.NewRay(origin, cosineSample(n, r)), depth+1, r)
	return c.Add(mgl32.Vec3{mat.Diffuse[0] * in[0], mat.Diffuse[1] * in[1], mat.Diffuse[2] * in[2]})
}

func materialOf(inst *accel.TLASInstance, prim uint32) geometry.Material {
	mesh := inst.BLAS.Mesh
	if o := inst.Source.MaterialOverride; o != scene.NoMaterialOverride && int(o) < len(mesh.Materials) {
		return mesh.Materials[o]
	}
	return mesh.MaterialOf(int(prim))
}

// shadingNormal interpolates vertex normals at the hit, falling back to the geometric normal.
func shadingNormal(inst *accel.TLASInstance, hit accel.Hit) mgl32.Vec3 {
	mesh := inst.BLAS.Mesh
	i := int(hit.Prim) * 3
	if i+2 >= len(mesh.Indices) {
		return hit.Normal
	}
	w := 1 - hit.U - hit.V
	n := mesh.Vertices[mesh.Indices[i]].Normal.Mul(w).
		Add(mesh.Vertices[mesh.Indices[i+1]].Normal.Mul(hit.U)).
		Add(mesh.Vertices[mesh.Indices[i+2]].Normal.Mul(hit.V))
	n = inst.Source.Normal.Mul3x1(n)
	if l := n.Len(); l > 1e-6 {
		return n.Mul(1 / l)
	}
	return hit.Normal
}

func cosineSample(n mgl32.Vec3, r *rng) mgl32.Vec3 {
	r1, r2 := r.float(), r.float()
	phi := 2 * math32.Pi * r1
	sr := math32.Sqrt(r2)
	local := mgl32.Vec3{sr * math32.Cos(phi), sr * math32.Sin(phi), math32.Sqrt(1 - r2)}

	a := mgl32.Vec3{1, 0, 0}
	if math32.Abs(n[0]) > 0.9 {
		a = mgl32.Vec3{0, 1, 0}
	}
	t := a.Cross(n).Normalize()
	bt := n.Cross(t)
	return t.Mul(local[0]).Add(bt.Mul(local[1])).Add(n.Mul(local[2]))
}

// Release drops the sample buffer.
func (b *SoftwareBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sample = nil
}
