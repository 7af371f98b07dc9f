package camera

import "github.com/go-gl/mathgl/mgl32"

type CameraBuilderOption func(*cameraImpl)

// WithUp sets the up vector of a controller-less camera. An attached controller overrides it.
func WithUp(up mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.state.Up = up
	}
}

// WithLens sets the vertical field of view in radians and the clip distances.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - near: near clipping plane distance
//   - far: far clipping plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the lens
func WithLens(fovY, near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.state.FovY, c.state.Near, c.state.Far = fovY, near, far
	}
}

func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.state.Aspect = aspect
	}
}

// WithPose places a controller-less camera at eye looking at target.
func WithPose(eye, target mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.state.Eye, c.state.Target = eye, target
	}
}

// WithController attaches a CameraController whose pose drives the view.
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
