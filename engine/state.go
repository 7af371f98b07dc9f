package engine

// State is the frame loop's current phase.
type State int32

const (
	StateIdle State = iota
	StateSceneUpdate
	StateAccelUpdate
	StateRender
	StateComposite
	StatePresent
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateSceneUpdate:
		return "scene-update"
	case StateAccelUpdate:
		return "accel-update"
	case StateRender:
		return "render"
	case StateComposite:
		return "composite"
	case StatePresent:
		return "present"
	case StateShutdown:
		return "shutdown"
	}
	return "idle"
}
