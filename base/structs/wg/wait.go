package wg

import (
	"sync"
	"time"

	"github.com/YiuTerran/go-netclient/base/log"
	"github.com/samber/lo"
	"go.uber.org/atomic"
)

/**  可以监控还剩多少job的WaitGroup，支持限时等待
**/

const progressInterval = 3 * time.Second

type WaitGroup struct {
	real sync.WaitGroup
	cnt  atomic.Int64
	name string
}

func NewWaitGroup(name ...string) *WaitGroup {
	n, _ := lo.Find(name, func(s string) bool { return s != "" })
	return &WaitGroup{
		name: lo.Ternary(n == "", "wg", n),
	}
}

func (wg *WaitGroup) Current() int64 {
	return wg.cnt.Load()
}

func (wg *WaitGroup) Add(delta int) {
	wg.cnt.Add(int64(delta))
	wg.real.Add(delta)
}

func (wg *WaitGroup) Incr() {
	wg.Add(1)
}

func (wg *WaitGroup) Done() {
	wg.cnt.Dec()
	wg.real.Done()
}

// Go 在新协程里执行f，结束后自动Done
func (wg *WaitGroup) Go(f func()) {
	wg.Incr()
	go func() {
		defer wg.Done()
		f()
	}()
}

// Wait 一直等待，每隔几秒打印剩余任务数
func (wg *WaitGroup) Wait() {
	done := wg.waitChan()
	for {
		select {
		case <-done:
			return
		case <-time.After(progressInterval):
			log.Info("%s waiting %d task to be done...", wg.name, wg.Current())
		}
	}
}

// WaitTimeout 最多等待timeout，全部完成返回true
// 超时后等待的协程会继续存在直到任务结束
func (wg *WaitGroup) WaitTimeout(timeout time.Duration) bool {
	if wg.Current() == 0 {
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-wg.waitChan():
		return true
	case <-timer.C:
		log.Warn("%s still has %d task after %v", wg.name, wg.Current(), timeout)
		return false
	}
}

func (wg *WaitGroup) waitChan() <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		wg.real.Wait()
		close(ch)
	}()
	return ch
}
