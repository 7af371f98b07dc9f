package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraControllerImpl struct {
	mu sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3

	// up is the orbit pole; side and front complete a right-handed basis with side x up = front.
	up    mgl32.Vec3
	side  mgl32.Vec3
	front mgl32.Vec3

	radius    float32
	azimuth   float32 // around up, 0 = front
	elevation float32

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	mouseSensitivity float32
	zoomSpeed        float32
	panSpeed         float32

	// pendingEye is resolved after every option ran so the up axis is known.
	pendingEye *mgl32.Vec3
}

var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a Y-up controller looking from (4, 4, 4) at (0, 1, 0).
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		target: mgl32.Vec3{0, 1, 0},

		minRadius:    0.25,
		maxRadius:    500.0,
		minElevation: -math32.Pi/2 + 0.05,
		maxElevation: math32.Pi/2 - 0.05,

		mouseSensitivity: 0.005,
		zoomSpeed:        0.5,
		panSpeed:         0.1,
	}
	cc.setUp(mgl32.Vec3{0, 1, 0})
	eye := mgl32.Vec3{4, 4, 4}
	cc.pendingEye = &eye

	for _, option := range options {
		option(cc)
	}

	if cc.pendingEye != nil {
		cc.setEye(*cc.pendingEye)
		cc.pendingEye = nil
	}
	cc.updatePosition()
	return cc
}

// setUp installs the orbit basis. Axis-aligned poles keep the usual cyclic basis
// (Y: X,Z; Z: Y,X; X: Z,Y); any other pole gets an arbitrary orthonormal completion.
func (cc *cameraControllerImpl) setUp(up mgl32.Vec3) {
	if up.Len() < 1e-6 {
		up = mgl32.Vec3{0, 1, 0}
	}
	up = up.Normalize()
	var side mgl32.Vec3
	switch {
	case up.ApproxEqual(mgl32.Vec3{0, 1, 0}):
		side = mgl32.Vec3{1, 0, 0}
	case up.ApproxEqual(mgl32.Vec3{0, 0, 1}):
		side = mgl32.Vec3{0, 1, 0}
	case up.ApproxEqual(mgl32.Vec3{1, 0, 0}):
		side = mgl32.Vec3{0, 0, 1}
	default:
		side = mgl32.Vec3{0, 1, 0}.Cross(up)
		if side.Len() < 1e-6 {
			side = mgl32.Vec3{1, 0, 0}.Cross(up)
		}
		side = side.Normalize()
	}
	cc.up, cc.side, cc.front = up, side, side.Cross(up)
}

// setEye derives spherical coordinates from an eye position. Caller must hold the mutex or own cc.
func (cc *cameraControllerImpl) setEye(eye mgl32.Vec3) {
	d := eye.Sub(cc.target)
	r := d.Len()
	if r < 1e-6 {
		return
	}
	cc.radius = r
	cc.elevation = math32.Asin(common.Clamp(d.Dot(cc.up)/r, -1, 1))
	cc.azimuth = math32.Atan2(d.Dot(cc.side), d.Dot(cc.front))
}

// updatePosition clamps the orbit and recomputes the eye. Caller must hold the mutex.
func (cc *cameraControllerImpl) updatePosition() {
	cc.radius = common.Clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = common.Clamp(cc.elevation, cc.minElevation, cc.maxElevation)
	sinElev, cosElev := math32.Sincos(cc.elevation)
	sinAzim, cosAzim := math32.Sincos(cc.azimuth)
	offset := cc.side.Mul(cosElev * sinAzim).
		Add(cc.up.Mul(sinElev)).
		Add(cc.front.Mul(cosElev * cosAzim))
	cc.position = cc.target.Add(offset.Mul(cc.radius))
}

// localAxes returns the camera's right and forward axes, both zero when eye and target coincide.
func (cc *cameraControllerImpl) localAxes() (right, forward mgl32.Vec3) {
	back := cc.position.Sub(cc.target)
	if back.Len() < 1e-8 {
		return
	}
	back = back.Normalize()
	right = cc.up.Cross(back)
	if right.Len() < 1e-8 {
		return mgl32.Vec3{}, mgl32.Vec3{}
	}
	return right.Normalize(), back.Mul(-1)
}

func (cc *cameraControllerImpl) translate(offset mgl32.Vec3) {
	cc.target = cc.target.Add(offset)
	cc.position = cc.position.Add(offset)
}

func (cc *cameraControllerImpl) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *cameraControllerImpl) Target() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *cameraControllerImpl) Up() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.up
}

func (cc *cameraControllerImpl) SetTarget(target mgl32.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
	cc.updatePosition()
}

func (cc *cameraControllerImpl) SetEye(eye mgl32.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.setEye(eye)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Drag(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth -= dx * cc.mouseSensitivity
	cc.elevation += dy * cc.mouseSensitivity
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius -= delta * cc.zoomSpeed
	cc.updatePosition()
}

func (cc *cameraControllerImpl) PanRight(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	right, _ := cc.localAxes()
	cc.translate(right.Mul(delta * cc.panSpeed))
}

func (cc *cameraControllerImpl) PanForward(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	_, forward := cc.localAxes()
	cc.translate(forward.Mul(delta * cc.panSpeed))
}

func (cc *cameraControllerImpl) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *cameraControllerImpl) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *cameraControllerImpl) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}
