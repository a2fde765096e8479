package wg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitTimeout(t *testing.T) {
	wg := NewWaitGroup("receiver")
	assert.True(t, wg.WaitTimeout(time.Millisecond))

	release := make(chan struct{})
	wg.Go(func() {
		<-release
	})
	assert.Equal(t, int64(1), wg.Current())
	assert.False(t, wg.WaitTimeout(20*time.Millisecond))

	close(release)
	assert.True(t, wg.WaitTimeout(time.Second))
	assert.Equal(t, int64(0), wg.Current())
}

func TestWait(t *testing.T) {
	wg := NewWaitGroup()
	for i := 0; i < 3; i++ {
		wg.Go(func() {
			time.Sleep(5 * time.Millisecond)
		})
	}
	wg.Wait()
	assert.Equal(t, int64(0), wg.Current())
}
