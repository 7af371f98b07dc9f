package scene

import (
	"math/rand"

	"github.com/Carmen-Shannon/oxy-rt/engine/config"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Distribute returns n world transforms laid out by d, preceded by an identity transform when
// d.Center is set. Random layouts are reproducible from d.Seed.
func Distribute(d config.Distribution, n int) []mgl32.Mat4 {
	out := make([]mgl32.Mat4, 0, n+1)
	if d.Center {
		out = append(out, mgl32.Ident4())
	}
	r := rand.New(rand.NewSource(d.Seed))

	for i := 0; i < n; i++ {
		var p mgl32.Vec3
		switch d.Kind {
		case config.DistributionGrid:
			spacing := d.Spacing
			if spacing <= 0 {
				spacing = 1.5
			}
			side := int(math32.Ceil(math32.Sqrt(float32(n))))
			col, row := i%side, i/side
			half := float32(side-1) * 0.5
			p = mgl32.Vec3{(float32(col) - half) * spacing, 0, (float32(row) - half) * spacing}
		case config.DistributionRing:
			radius := d.Radius
			if radius <= 0 {
				radius = 2
			}
			s, c := math32.Sincos(2 * math32.Pi * float32(i) / float32(n))
			p = mgl32.Vec3{c * radius, 0, s * radius}
		case config.DistributionRandom:
			ext := extentOr(d.Extent, 5)
			for a := range 3 {
				p[a] = (r.Float32()*2 - 1) * ext[a]
			}
		case config.DistributionNormal:
			sigma := d.Sigma
			if sigma <= 0 {
				sigma = 1
			}
			for a := range 3 {
				p[a] = float32(r.NormFloat64()) * sigma
			}
		}

		m := mgl32.Translate3D(p[0], p[1], p[2])
		if d.RandomRotation {
			axis := mgl32.Vec3{r.Float32()*2 - 1, r.Float32()*2 - 1, r.Float32()*2 - 1}
			if axis.Len() < 1e-3 {
				axis = mgl32.Vec3{0, 1, 0}
			}
			m = m.Mul4(mgl32.HomogRotate3D(r.Float32()*2*math32.Pi, axis.Normalize()))
		}
		if sr := d.ScaleRange; sr[0] > 0 {
			s := sr[0] + r.Float32()*(sr[1]-sr[0])
			m = m.Mul4(mgl32.Scale3D(s, s, s))
		}
		out = append(out, m)
	}
	return out
}

func extentOr(e [3]float32, def float32) [3]float32 {
	if e == ([3]float32{}) {
		return [3]float32{def, def, def}
	}
	return e
}
