package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock(t *testing.T) {
	c := NewDeterministicClock()
	assert.Zero(t, c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())

	c.Reset()
	assert.Zero(t, c.Current())
	assert.Equal(t, int64(1), c.Next(), "rerun starts over")
}

func TestDeterministicClock_Concurrent(t *testing.T) {
	c := NewDeterministicClock()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c.Next()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1000), c.Current())
}
