package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/go-gl/mathgl/mgl32"
)

// State is a comparable snapshot of everything that affects the image the camera sees.
type State struct {
	Eye    mgl32.Vec3
	Target mgl32.Vec3
	Up     mgl32.Vec3
	FovY   float32
	Aspect float32
	Near   float32
	Far    float32
}

// Camera holds the perspective settings and derives view and projection matrices.
// With a controller attached, the pose and up axis are read from it on every Update.
type Camera interface {
	// Eye returns the world-space camera position used by the last Update.
	Eye() mgl32.Vec3

	// State returns a comparable snapshot of the camera for accumulation signatures.
	State() State

	// ViewProjection returns projection * view with WebGPU [0, 1] depth.
	ViewProjection() mgl32.Mat4

	// InverseViewProjection returns the inverse of ViewProjection, used to unproject primary rays.
	InverseViewProjection() mgl32.Mat4

	// PrimaryRay returns the world-space ray through a point of the image plane.
	// Pixel (i, j) is sampled at (i+0.5, j+0.5); rasterization uses the same convention.
	//
	// Parameters:
	//   - px, py: image-plane coordinates in pixels, origin at the top-left corner
	//   - width, height: image size in pixels
	//
	// Returns:
	//   - origin: the ray origin (camera position)
	//   - dir: the unnormalized ray direction
	PrimaryRay(px, py float32, width, height int) (origin, dir mgl32.Vec3)

	// Update pulls the controller pose and recomputes the matrices. Without a controller it does nothing.
	Update()

	// SetAspect sets width / height and recomputes the matrices.
	SetAspect(aspect float32)
}

type cameraImpl struct {
	mu sync.Mutex

	state State

	viewProjection    mgl32.Mat4
	invViewProjection mgl32.Mat4

	controller CameraController
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera with a 45 degree vertical field of view and Y up.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		state: State{
			Eye:    mgl32.Vec3{0, 0, 1},
			Up:     mgl32.Vec3{0, 1, 0},
			FovY:   mgl32.DegToRad(45),
			Aspect: 1,
			Near:   0.1,
			Far:    1000,
		},
	}
	for _, option := range options {
		option(c)
	}
	c.recompute()
	return c
}

func (c *cameraImpl) Eye() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Eye
}

func (c *cameraImpl) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *cameraImpl) ViewProjection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjection
}

func (c *cameraImpl) InverseViewProjection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invViewProjection
}

func (c *cameraImpl) PrimaryRay(px, py float32, width, height int) (origin, dir mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return PrimaryRayFrom(c.invViewProjection, c.state.Eye, px, py, width, height)
}

// PrimaryRayFrom unprojects an image-plane point to a ray from eye through the far plane.
// Renderers call it with a State-consistent matrix copy to avoid locking per pixel.
func PrimaryRayFrom(invViewProj mgl32.Mat4, eye mgl32.Vec3, px, py float32, width, height int) (mgl32.Vec3, mgl32.Vec3) {
	ndcX := 2*px/float32(width) - 1
	ndcY := 1 - 2*py/float32(height)
	far := mgl32.TransformCoordinate(mgl32.Vec3{ndcX, ndcY, 1}, invViewProj)
	return eye, far.Sub(eye)
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	c.recompute()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Aspect = aspect
	c.recompute()
}

// recompute refreshes the pose from the controller and rebuilds the matrices. Caller must hold the mutex.
func (c *cameraImpl) recompute() {
	if c.controller != nil {
		c.state.Eye = c.controller.Position()
		c.state.Target = c.controller.Target()
		c.state.Up = c.controller.Up()
	}
	s := c.state
	view := mgl32.LookAtV(s.Eye, s.Target, s.Up)
	c.viewProjection = common.Perspective(s.FovY, s.Aspect, s.Near, s.Far).Mul4(view)
	c.invViewProjection = c.viewProjection.Inv()
}
