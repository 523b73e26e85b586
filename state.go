package serverio

// State is a phase of the server lifecycle.
type State int32

const (
	Starting State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// transition moves the state only if it currently equals from.
func (s *Server) transition(from, to State) bool {
	if !s.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}

	s.metrics.SetState(to.String())
	return true
}

func (s *Server) force(to State) {
	s.state.Store(int32(to))
	s.metrics.SetState(to.String())
}
