package animator

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/Carmen-Shannon/oxy-rt/engine/config"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// FromConfig turns a configured track into a Track bound to one placed instance.
// Orbits are centered on the origin and start at the placement's position, so the returned base
// has the placement's translation removed. Spin and bob phases are drawn from the track seed and
// the instance index, which is the only state a track carries.
//
// Parameters:
//   - tc: the configured track
//   - world: the instance's placement transform
//   - index: the instance's index within its mesh entry
//
// Returns:
//   - mgl32.Mat4: the base transform to bind
//   - Track: the track, Static when tc animates nothing
func FromConfig(tc config.Track, world mgl32.Mat4, index int) (mgl32.Mat4, Track) {
	r := rand.New(rand.NewSource(tc.Seed*7919 + int64(index)))
	base := world
	var tracks []Track
	for _, kind := range tc.Kinds {
		switch strings.ToLower(kind) {
		case config.TrackOrbit:
			pos := world.Col(3).Vec3()
			base = world
			base.SetCol(3, mgl32.Vec4{0, 0, 0, 1})
			speed := tc.Speed
			if speed == 0 {
				speed = 0.5
			}
			tracks = append(tracks, Orbit{
				Radius: math32.Hypot(pos[0], pos[2]),
				Speed:  speed,
				Height: pos[1] + tc.Height,
				Phase:  math32.Atan2(pos[2], pos[0]),
			})
		case config.TrackSpin:
			speed := tc.Speed
			if speed == 0 {
				speed = 1
			}
			tracks = append(tracks, Spin{Axis: tc.Axis, Speed: speed, Phase: r.Float32() * 2 * math32.Pi})
		case config.TrackBob:
			amp, freq := tc.Amplitude, tc.Frequency
			if amp == 0 {
				amp = 0.25
			}
			if freq == 0 {
				freq = 0.5
			}
			tracks = append(tracks, Bob{Amplitude: amp, Frequency: freq, Phase: r.Float32() * 2 * math32.Pi})
		}
	}
	switch len(tracks) {
	case 0:
		return world, Static{}
	case 1:
		return base, tracks[0]
	}
	return base, Composite{Tracks: tracks}
}

// BindPlacements binds every animated placement of an assembled scene.
//
// Parameters:
//   - d: the driver to bind into
//   - placements: placements from scene.Build
//
// Returns:
//   - int: the number of bound instances
//   - error: if an instance no longer exists
func BindPlacements(d Driver, placements []scene.Placement) (int, error) {
	n := 0
	for _, p := range placements {
		if !p.Animated {
			continue
		}
		base, track := FromConfig(p.Track, p.World, p.Index)
		if err := d.Bind(p.Instance, base, track); err != nil {
			return n, fmt.Errorf("bind placement %d: %w", p.Instance, err)
		}
		n++
	}
	return n, nil
}
