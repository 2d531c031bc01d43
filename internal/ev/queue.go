// Package ev hands work from the connection's listener goroutine to
// the goroutine that dispatches events.
package ev

import (
	"deedles.dev/kyo/internal/cq"
)

// Queue collects functions added from any goroutine and hands them
// out in batches.
type Queue = cq.BulkQueue[func() error, *Events]

func NewQueue() *Queue {
	return cq.New(func(v []func() error) *Events {
		return &Events{
			events: v,
		}
	})
}

// Events represents a batch of queued events.
type Events struct {
	events []func() error
}

// Len returns the number of events that have not been run.
func (q *Events) Len() int {
	return len(q.events)
}

// Run runs the events in order. It stops at the first event that
// returns an error, leaving the rest unprocessed, and returns that
// error.
func (q *Events) Run() error {
	for len(q.events) > 0 {
		ev := q.events[0]
		q.events = q.events[1:]
		if err := ev(); err != nil {
			return err
		}
	}
	q.events = nil
	return nil
}
