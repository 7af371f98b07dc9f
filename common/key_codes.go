package common

// Virtual key codes for the viewer's key bindings.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyW     = 87  // move forward
	KeyA     = 65  // strafe left
	KeyS     = 83  // move back
	KeyD     = 68  // strafe right
	KeyQ     = 81  // quit
	KeyR     = 82  // toggle ray tracing
	KeyP     = 80  // toggle path tracing
	KeyL     = 76  // toggle light type
	KeySpace = 32  // toggle animation
	KeyMinus = 45  // light intensity down
	KeyEqual = 61  // light intensity up
	KeyEsc   = 256 // quit (GLFW)
)

// Mouse buttons as reported by GLFW.
const (
	MouseButtonLeft   = 0
	MouseButtonRight  = 1
	MouseButtonMiddle = 2
)
