package ws

import (
	"context"
	"errors"
)

// ErrRoomClosed is returned when a mutation is submitted to a room whose
// last connection has gone.
var ErrRoomClosed = errors.New("room closed")

type job struct {
	fn   func() error
	done chan error
}

// executor is a room's single writer: one goroutine owns the mutation
// queue, so order-affecting operations for a room run one at a time in
// arrival order. Two concurrent moves on the same column can therefore
// never interleave their read-modify-write sequences.
type executor struct {
	jobs chan job
	quit chan struct{}
}

func newExecutor() *executor {
	e := &executor{
		jobs: make(chan job),
		quit: make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *executor) run() {
	for {
		select {
		case j := <-e.jobs:
			j.done <- j.fn()
		case <-e.quit:
			// Fail pending submissions instead of leaving them waiting
			for {
				select {
				case j := <-e.jobs:
					j.done <- ErrRoomClosed
				default:
					return
				}
			}
		}
	}
}

// do runs fn on the executor goroutine and waits for it to finish.
func (e *executor) do(ctx context.Context, fn func() error) error {
	j := job{fn: fn, done: make(chan error, 1)}

	select {
	case e.jobs <- j:
	case <-e.quit:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *executor) stop() {
	close(e.quit)
}
