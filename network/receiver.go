package network

import (
	"context"
	"time"

	"github.com/YiuTerran/go-netclient/base/log"
	"github.com/YiuTerran/go-netclient/network/frame"
	"github.com/YiuTerran/go-netclient/network/metrics"
	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultYieldInterval    = time.Millisecond
	DefaultErrorPause       = 100 * time.Millisecond
	DefaultReconnectInitial = 500 * time.Millisecond
	DefaultReconnectMax     = 5 * time.Second
)

// NewBackOff 重连间隔从initial开始翻倍，最多max，不限总时长
func NewBackOff(initial, max time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.Multiplier = 2
	b.MaxInterval = max
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Receiver 接收循环，TCP和WebSocket共用
// 读数据->拆包->交给Sink，断线后按退避策略重连
type Receiver struct {
	Transport Transport
	// Sink 每个完整的帧调用一次，在接收协程里执行
	Sink func(frame.Frame)
	// Reconnect 为false时断线后循环直接退出
	Reconnect     bool
	YieldInterval time.Duration
	ErrorPause    time.Duration
	BackOff       backoff.BackOff
	Logger        log.Logger
	Metrics       *metrics.Metrics

	reassembler *frame.Reassembler
}

func (r *Receiver) init() {
	if r.Logger == nil {
		r.Logger = log.Fields{}.WithPrefix("receiver")
	}
	if r.YieldInterval <= 0 {
		r.YieldInterval = DefaultYieldInterval
		r.Logger.Debug("invalid YieldInterval, reset to %v", r.YieldInterval)
	}
	if r.ErrorPause <= 0 {
		r.ErrorPause = DefaultErrorPause
		r.Logger.Debug("invalid ErrorPause, reset to %v", r.ErrorPause)
	}
	if r.BackOff == nil {
		r.BackOff = NewBackOff(DefaultReconnectInitial, DefaultReconnectMax)
	}
	if r.Sink == nil {
		r.Sink = func(frame.Frame) {}
	}
	if r.reassembler == nil {
		r.reassembler = frame.NewReassembler(r.Logger)
		r.reassembler.OnDiscard = func(error, int) {
			r.Metrics.Discarded()
		}
	}
}

// Run 阻塞直到ctx结束，或者连接断开且不自动重连
func (r *Receiver) Run(ctx context.Context, addr string, port int) {
	r.init()
	defer r.reassembler.Reset()

	for {
		if ctx.Err() != nil {
			return
		}
		if r.Transport.State() != Connected {
			if !r.Reconnect {
				r.Logger.Info("%s connection lost, receive loop exit", r.Transport.Name())
				return
			}
			if !r.redial(ctx, addr, port) {
				return
			}
			continue
		}

		data, err := r.Transport.ReadMsg()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if r.Transport.State() == Connected {
				r.Logger.Error("%s read error: %v", r.Transport.Name(), err)
				if !sleep(ctx, r.ErrorPause) {
					return
				}
			} else {
				r.Logger.Warn("%s connection lost: %v", r.Transport.Name(), err)
			}
			continue
		}
		for _, f := range r.reassembler.Feed(data) {
			r.Metrics.FrameReceived()
			r.Sink(f)
		}
		if !sleep(ctx, r.YieldInterval) {
			return
		}
	}
}

// redial 返回false表示ctx已经结束
func (r *Receiver) redial(ctx context.Context, addr string, port int) bool {
	r.Transport.Disconnect()
	r.reassembler.Reset()
	err := r.Transport.Connect(ctx, addr, port)
	if ctx.Err() != nil {
		r.Transport.Disconnect()
		return false
	}
	if err != nil {
		r.Metrics.ConnectFailed()
		delay := r.BackOff.NextBackOff()
		if delay == backoff.Stop {
			delay = DefaultReconnectMax
		}
		r.Logger.Warn("reconnect %s %s:%d failed: %v, retry in %v", r.Transport.Name(), addr, port, err, delay)
		return sleep(ctx, delay)
	}
	r.BackOff.Reset()
	r.Metrics.Reconnected()
	r.Logger.Info("reconnected %s %s:%d", r.Transport.Name(), addr, port)
	return true
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
