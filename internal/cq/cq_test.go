package cq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatches(t *testing.T) {
	q := New(func(v []int) []int { return v })
	defer q.Stop()

	for i := range 3 {
		q.Add() <- i
	}
	assert.Equal(t, []int{0, 1, 2}, <-q.Get())

	select {
	case batch := <-q.Get():
		require.FailNow(t, "unexpected batch", "%v", batch)
	case <-time.After(10 * time.Millisecond):
	}

	q.Add() <- 3
	assert.Equal(t, []int{3}, <-q.Get())
}
