package dispatcher

var _ Dispatcher = new(Spawn)

// Spawn starts a new goroutine per task with no upper bound. It never rejects a task, so
// a flood of connections is limited by nothing but the process resources.
type Spawn struct {
	onPanic func(any)
}

func NewSpawn() *Spawn {
	return new(Spawn)
}

// OnPanic sets a callback for panics recovered from tasks.
func (s *Spawn) OnPanic(cb func(any)) *Spawn {
	s.onPanic = cb
	return s
}

func (s *Spawn) Schedule(task Task) error {
	go run(task, s.onPanic)
	return nil
}
