package raster

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/shading"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// transformChunk is the number of vertices one pool task transforms.
const transformChunk = 4096

// clipVertex is a vertex after the vertex stage: clip position plus world-space attributes.
type clipVertex struct {
	clip   mgl32.Vec4
	world  mgl32.Vec3
	normal mgl32.Vec3
}

// screenVertex is a clipped vertex after the perspective divide and viewport mapping.
type screenVertex struct {
	x, y, z float32
	invW    float32
	world   mgl32.Vec3
	normal  mgl32.Vec3
}

// SoftwareBackend rasterizes on the CPU into a float RGBA image with a z-buffer.
type SoftwareBackend struct {
	mu      sync.Mutex
	workers int
	pool    worker.DynamicWorkerPool

	target  *renderer.Image
	depth   []float32
	frame   Frame
	frustum common.Frustum
	verts   []clipVertex
	culled  int
}

var _ Backend = &SoftwareBackend{}

// NewSoftwareBackend creates a CPU rasterizer.
//
// Parameters:
//   - options: functional options (worker count)
//
// Returns:
//   - *SoftwareBackend: the backend
func NewSoftwareBackend(options ...SoftwareBackendBuilderOption) *SoftwareBackend {
	b := &SoftwareBackend{
		workers: max(runtime.NumCPU(), 1),
		target:  renderer.NewImage(0, 0),
	}
	for _, opt := range options {
		opt(b)
	}
	b.pool = worker.NewDynamicWorkerPool(b.workers, 256, 1*time.Second)
	return b
}

func (b *SoftwareBackend) Begin(frame Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame = frame
	b.frustum = common.ExtractFrustum(frame.ViewProjection)
	b.culled = 0
	b.target.Resize(frame.Width, frame.Height)
	b.target.Fill(frame.ClearColor)
	if n := frame.Width * frame.Height; len(b.depth) != n {
		b.depth = make([]float32, n)
	}
	for i := range b.depth {
		b.depth[i] = 1
	}
	return nil
}

func (b *SoftwareBackend) Draw(call DrawCall) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	inst := &call.Instance
	mesh := call.Mesh
	lo, hi := worldBounds(mesh.Bounds, inst.World)
	if !b.frustum.IntersectsAABB(lo, hi) {
		b.culled++
		return nil
	}

	b.transform(inst.World, inst.Normal, mesh)
	for t := 0; t < mesh.TriangleCount(); t++ {
		mat := materialOf(inst, mesh, t)
		i0, i1, i2 := mesh.Indices[3*t], mesh.Indices[3*t+1], mesh.Indices[3*t+2]
		poly := clipNear([]clipVertex{b.verts[i0], b.verts[i1], b.verts[i2]})
		if len(poly) < 3 {
			continue
		}
		sv := make([]screenVertex, len(poly))
		for i, v := range poly {
			sv[i] = b.toScreen(v)
		}
		for i := 1; i+1 < len(sv); i++ {
			b.fill(&mat, sv[0], sv[i], sv[i+1])
		}
	}
	return nil
}

// transform runs the vertex stage for mesh on the worker pool.
func (b *SoftwareBackend) transform(world mgl32.Mat4, normal mgl32.Mat3, mesh *geometry.Mesh) {
	n := len(mesh.Vertices)
	if cap(b.verts) < n {
		b.verts = make([]clipVertex, n)
	}
	b.verts = b.verts[:n]
	mvp := b.frame.ViewProjection.Mul4(world)

	var wg sync.WaitGroup
	for start := 0; start < n; start += transformChunk {
		end := min(start+transformChunk, n)
		wg.Add(1)
		b.pool.SubmitTask(worker.Task{
			ID: start,
			Do: func() (any, error) {
				defer wg.Done()
				for i := start; i < end; i++ {
					v := &mesh.Vertices[i]
					b.verts[i] = clipVertex{
						clip:   mvp.Mul4x1(v.Position.Vec4(1)),
						world:  common.TransformPoint(world, v.Position),
						normal: normal.Mul3x1(v.Normal),
					}
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (b *SoftwareBackend) toScreen(v clipVertex) screenVertex {
	invW := 1 / v.clip.W()
	return screenVertex{
		x:      (v.clip.X()*invW + 1) * 0.5 * float32(b.frame.Width),
		y:      (1 - v.clip.Y()*invW) * 0.5 * float32(b.frame.Height),
		z:      v.clip.Z() * invW,
		invW:   invW,
		world:  v.world,
		normal: v.normal,
	}
}

// fill rasterizes one triangle, testing coverage at pixel centers. Both windings are drawn.
func (b *SoftwareBackend) fill(mat *geometry.Material, a, c1, c2 screenVertex) {
	area := edge(a.x, a.y, c1.x, c1.y, c2.x, c2.y)
	if math32.Abs(area) < 1e-12 {
		return
	}
	w, h := b.frame.Width, b.frame.Height
	minX := max(int(math32.Floor(min(a.x, c1.x, c2.x)-0.5)), 0)
	maxX := min(int(math32.Ceil(max(a.x, c1.x, c2.x)-0.5)), w-1)
	minY := max(int(math32.Floor(min(a.y, c1.y, c2.y)-0.5)), 0)
	maxY := min(int(math32.Ceil(max(a.y, c1.y, c2.y)-0.5)), h-1)
	inv := 1 / area

	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			w0 := edge(c1.x, c1.y, c2.x, c2.y, px, py) * inv
			w1 := edge(c2.x, c2.y, a.x, a.y, px, py) * inv
			w2 := edge(a.x, a.y, c1.x, c1.y, px, py) * inv
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*a.z + w1*c1.z + w2*c2.z
			idx := y*w + x
			if z < 0 || z >= b.depth[idx] {
				continue
			}
			b.depth[idx] = z

			// Perspective-correct attribute weights.
			p0, p1, p2 := w0*a.invW, w1*c1.invW, w2*c2.invW
			norm := 1 / (p0 + p1 + p2)
			p0, p1, p2 = p0*norm, p1*norm, p2*norm
			pos := a.world.Mul(p0).Add(c1.world.Mul(p1)).Add(c2.world.Mul(p2))
			n := a.normal.Mul(p0).Add(c1.normal.Mul(p1)).Add(c2.normal.Mul(p2))
			b.target.Set(x, y, b.shade(mat, pos, n))
		}
	}
}

// shade evaluates direct lighting without visibility; the raster path has no shadows.
func (b *SoftwareBackend) shade(mat *geometry.Material, p, n mgl32.Vec3) common.RGBA {
	if l := n.Len(); l > 1e-6 {
		n = n.Mul(1 / l)
	} else {
		n = mgl32.Vec3{0, 1, 0}
	}
	toEye := b.frame.Eye.Sub(p)
	n = shading.FaceForward(n, toEye.Mul(-1))
	v := toEye.Normalize()
	c := shading.Direct(mat, n, v, shading.SampleLight(b.frame.Light, p), false)
	return common.RGBA{c[0], c[1], c[2], 1}
}

func (b *SoftwareBackend) End() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.culled > 0 {
		logger.Debugf("frustum culled %d instances", b.culled)
	}
	return nil
}

// Image returns the color target of the last frame.
func (b *SoftwareBackend) Image() *renderer.Image {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.target
}

// Release drops the color and depth targets.
func (b *SoftwareBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = renderer.NewImage(0, 0)
	b.depth = nil
	b.verts = nil
}

func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// clipNear clips a polygon against the z >= 0 plane of clip space.
func clipNear(in []clipVertex) []clipVertex {
	out := make([]clipVertex, 0, len(in)+1)
	for i := range in {
		cur, next := in[i], in[(i+1)%len(in)]
		curIn, nextIn := cur.clip.Z() >= 0, next.clip.Z() >= 0
		if curIn {
			out = append(out, cur)
		}
		if curIn != nextIn {
			t := cur.clip.Z() / (cur.clip.Z() - next.clip.Z())
			out = append(out, clipVertex{
				clip:   cur.clip.Add(next.clip.Sub(cur.clip).Mul(t)),
				world:  cur.world.Add(next.world.Sub(cur.world).Mul(t)),
				normal: cur.normal.Add(next.normal.Sub(cur.normal).Mul(t)),
			})
		}
	}
	return out
}

// worldBounds transforms a mesh-space box by world and returns the enclosing box.
func worldBounds(bounds geometry.Bounds, world mgl32.Mat4) (lo, hi [3]float32) {
	inf := math32.Inf(1)
	lo = [3]float32{inf, inf, inf}
	hi = [3]float32{-inf, -inf, -inf}
	for c := 0; c < 8; c++ {
		corner := bounds.Min
		if c&1 != 0 {
			corner[0] = bounds.Max[0]
		}
		if c&2 != 0 {
			corner[1] = bounds.Max[1]
		}
		if c&4 != 0 {
			corner[2] = bounds.Max[2]
		}
		p := common.TransformPoint(world, corner)
		for a := 0; a < 3; a++ {
			lo[a] = min(lo[a], p[a])
			hi[a] = max(hi[a], p[a])
		}
	}
	return lo, hi
}
