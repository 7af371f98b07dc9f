package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController owns the camera's pose. It orbits the eye around a target on a sphere
// whose pole is the configured up axis, and pans eye and target together.
// Camera reads the pose each Update and derives its matrices from it.
type CameraController interface {
	// Position returns the eye in world space.
	Position() mgl32.Vec3

	// Target returns the look-at and orbit pivot point.
	Target() mgl32.Vec3

	// Up returns the axis the orbit elevation is measured against.
	Up() mgl32.Vec3

	// SetTarget moves the pivot and keeps the orbit angles and radius.
	SetTarget(target mgl32.Vec3)

	// SetEye places the eye and derives radius, azimuth and elevation around the current target.
	SetEye(eye mgl32.Vec3)

	// Drag orbits by a cursor movement in pixels.
	//
	// Parameters:
	//   - dx: horizontal movement, changes azimuth
	//   - dy: vertical movement, changes elevation
	Drag(dx, dy float32)

	// Zoom moves the eye toward the target for positive delta, within the radius bounds.
	Zoom(delta float32)

	// PanRight translates eye and target along the camera's right axis.
	PanRight(delta float32)

	// PanForward translates eye and target along the view direction.
	PanForward(delta float32)

	// Radius returns the distance from eye to target.
	Radius() float32

	// Azimuth returns the angle around the up axis in radians.
	Azimuth() float32

	// Elevation returns the angle above the plane orthogonal to the up axis in radians.
	Elevation() float32
}
