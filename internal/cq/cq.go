// Package cq implements a concurrent queue that hands out everything
// added to it since the last read as a single batch.
package cq

import "deedles.dev/xsync"

// BulkQueue collects values sent to Add from any goroutine. Each value
// received from Get is a batch built from every value added since the
// previous one.
type BulkQueue[T, B any] struct {
	stop  xsync.Stopper
	batch func([]T) B

	add chan T
	get chan B
}

// New starts a queue that builds its batches with batch. The slice
// passed to batch is never modified afterwards.
func New[T, B any](batch func([]T) B) *BulkQueue[T, B] {
	q := BulkQueue[T, B]{
		batch: batch,
		add:   make(chan T),
		get:   make(chan B),
	}
	go q.run()

	return &q
}

// Stop stops the queue. Values that have not been read are dropped.
func (q *BulkQueue[T, B]) Stop() {
	q.stop.Stop()
}

func (q *BulkQueue[T, B]) Add() chan<- T {
	return q.add
}

func (q *BulkQueue[T, B]) Get() <-chan B {
	return q.get
}

func (q *BulkQueue[T, B]) run() {
	var s []T
	var get chan B
	var b B

	for {
		select {
		case <-q.stop.Done():
			return

		case v := <-q.add:
			s = append(s, v)
			b = q.batch(s)
			get = q.get

		case get <- b:
			var zero B
			s, b, get = nil, zero, nil
		}
	}
}
