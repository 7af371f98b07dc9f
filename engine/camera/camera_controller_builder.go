package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithUpAxis sets the orbit pole. Scene files choose X, Y or Z.
func WithUpAxis(up mgl32.Vec3) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.setUp(up)
	}
}

// WithOrbit sets the spherical pose directly and discards the default eye.
//
// Parameters:
//   - radius: distance from the target
//   - azimuth: angle around the up axis in radians
//   - elevation: angle above the plane orthogonal to up in radians
//
// Returns:
//   - CameraControllerOption: functional option to set the orbit
func WithOrbit(radius, azimuth, elevation float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.radius, cc.azimuth, cc.elevation = radius, azimuth, elevation
		cc.pendingEye = nil
	}
}

// WithEyeTarget places the camera at eye looking at target. The spherical pose is
// derived once every option has run.
func WithEyeTarget(eye, target mgl32.Vec3) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.target = target
		cc.pendingEye = &eye
	}
}

func WithRadiusBounds(min, max float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.minRadius, cc.maxRadius = min, max
	}
}

func WithElevationBounds(min, max float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.minElevation, cc.maxElevation = min, max
	}
}

// WithSpeeds sets the input multipliers.
//
// Parameters:
//   - mouse: radians per dragged pixel
//   - zoom: radius change per scroll unit
//   - pan: world units per pan unit
//
// Returns:
//   - CameraControllerOption: functional option to set the speeds
func WithSpeeds(mouse, zoom, pan float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.mouseSensitivity, cc.zoomSpeed, cc.panSpeed = mouse, zoom, pan
	}
}
