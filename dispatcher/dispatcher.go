package dispatcher

import (
	"errors"

	"github.com/indigo-web/serverio/config"
)

var (
	ErrOverloaded = errors.New("dispatcher is overloaded")
	ErrClosed     = errors.New("dispatcher is closed")
)

// Task is a unit of background work. It neither returns a result nor can be cancelled.
type Task func()

// Dispatcher runs tasks asynchronously, with no ordering guarantees between them.
type Dispatcher interface {
	// Schedule enqueues the task. It never blocks and never runs the task synchronously.
	// An error means the task was rejected and will never run.
	Schedule(task Task) error
}

// New returns the unbounded Spawn dispatcher if the config sets zero workers, and the
// bounded Pool otherwise.
func New(cfg config.Dispatcher) Dispatcher {
	if cfg.Workers == 0 {
		return NewSpawn()
	}

	return NewPool(cfg.Workers, cfg.Backlog)
}

func run(task Task, onPanic func(any)) {
	defer func() {
		if r := recover(); r != nil && onPanic != nil {
			onPanic(r)
		}
	}()

	task()
}
