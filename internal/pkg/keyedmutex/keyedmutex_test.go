package keyedmutex

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMap_SameKeySerializes(t *testing.T) {
	m := New()
	var concurrent int32
	var maxConcurrent int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.With("shared", func() error {
				n := atomic.AddInt32(&concurrent, 1)
				if n > atomic.LoadInt32(&maxConcurrent) {
					atomic.StoreInt32(&maxConcurrent, n)
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&concurrent, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxConcurrent, "calls for the same key must never run concurrently")
}

func TestMap_DifferentKeysRunConcurrently(t *testing.T) {
	m := New()
	start := make(chan struct{})
	var wg sync.WaitGroup
	results := make([]bool, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_ = m.With(string(rune('a'+i)), func() error {
				time.Sleep(20 * time.Millisecond)
				results[i] = true
				return nil
			})
		}(i)
	}
	close(start)
	wg.Wait()

	assert.True(t, results[0])
	assert.True(t, results[1])
}

func TestMap_PropagatesFnError(t *testing.T) {
	m := New()
	err := m.With("k", func() error { return assert.AnError })
	assert.Equal(t, assert.AnError, err)
}
