package network

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/YiuTerran/go-netclient/network/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

// fakeTransport 用channel模拟一条连接，读到errLost时连接断开
type fakeTransport struct {
	state     atomic.Int32
	chunks    chan []byte
	connects  atomic.Int32
	failFirst atomic.Int32
}

var errLost = errors.New("lost")

func newFake() *fakeTransport {
	return &fakeTransport{chunks: make(chan []byte, 64)}
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Connect(ctx context.Context, _ string, _ int) error {
	f.connects.Inc()
	if f.failFirst.Load() > 0 {
		f.failFirst.Dec()
		return errors.New("refused")
	}
	f.state.Store(int32(Connected))
	return nil
}

func (f *fakeTransport) ReadMsg() ([]byte, error) {
	select {
	case b := <-f.chunks:
		if b == nil {
			f.state.Store(int32(Disconnected))
			return nil, errLost
		}
		return b, nil
	case <-time.After(5 * time.Millisecond):
		return nil, nil
	}
}

func (f *fakeTransport) WriteMsg([]byte) error { return nil }
func (f *fakeTransport) Disconnect()          { f.state.Store(int32(Disconnected)) }
func (f *fakeTransport) State() State         { return State(f.state.Load()) }
func (f *fakeTransport) Close()               { f.Disconnect() }

type collector struct {
	sync.Mutex
	frames []frame.Frame
}

func (c *collector) add(f frame.Frame) {
	c.Lock()
	c.frames = append(c.frames, f)
	c.Unlock()
}

func (c *collector) len() int {
	c.Lock()
	defer c.Unlock()
	return len(c.frames)
}

func fastBackOff() *Receiver {
	return &Receiver{BackOff: NewBackOff(time.Millisecond, 5*time.Millisecond)}
}

func TestReceiverSplitChunks(t *testing.T) {
	tr := newFake()
	require.NoError(t, tr.Connect(context.Background(), "", 0))
	c := &collector{}
	r := fastBackOff()
	r.Transport = tr
	r.Sink = c.add

	b, _ := frame.Encode(2000, []byte("hello"))
	tr.chunks <- b[:3]
	tr.chunks <- b[3:10]
	tr.chunks <- b[10:]
	two, _ := frame.Encode(2001, nil)
	tr.chunks <- append(append([]byte{}, b...), two...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, "127.0.0.1", 1)
		close(done)
	}()
	assert.Eventually(t, func() bool { return c.len() == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, int32(2000), c.frames[0].MsgID)
	assert.Equal(t, "hello", string(c.frames[0].Payload))
	assert.Equal(t, int32(2000), c.frames[1].MsgID)
	assert.Equal(t, int32(2001), c.frames[2].MsgID)
}

func TestReceiverReconnects(t *testing.T) {
	tr := newFake()
	tr.failFirst.Store(2)
	c := &collector{}
	r := fastBackOff()
	r.Transport = tr
	r.Sink = c.add
	r.Reconnect = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx, "127.0.0.1", 1)

	// 初始未连接，失败两次之后连上
	assert.Eventually(t, func() bool { return tr.State() == Connected }, time.Second, time.Millisecond)
	assert.Equal(t, int32(3), tr.connects.Load())

	// 半个帧之后断线，重连后残留数据不能和新数据拼在一起
	b, _ := frame.Encode(1, []byte("abc"))
	tr.chunks <- b[:5]
	tr.chunks <- nil
	assert.Eventually(t, func() bool { return tr.connects.Load() == 4 }, time.Second, time.Millisecond)
	tr.chunks <- b
	assert.Eventually(t, func() bool { return c.len() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "abc", string(c.frames[0].Payload))
}

func TestReceiverExitsWithoutReconnect(t *testing.T) {
	tr := newFake()
	require.NoError(t, tr.Connect(context.Background(), "", 0))
	r := fastBackOff()
	r.Transport = tr

	done := make(chan struct{})
	go func() {
		r.Run(context.Background(), "127.0.0.1", 1)
		close(done)
	}()
	tr.chunks <- nil
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("receive loop did not exit")
	}
	assert.Equal(t, int32(1), tr.connects.Load())
}

func TestReceiverStopsWhileRedialing(t *testing.T) {
	tr := newFake()
	tr.failFirst.Store(1 << 20)
	r := &Receiver{Transport: tr, Reconnect: true, BackOff: NewBackOff(time.Hour, time.Hour)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, "127.0.0.1", 1)
		close(done)
	}()
	assert.Eventually(t, func() bool { return tr.connects.Load() >= 1 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("receive loop ignored cancel")
	}
	assert.Equal(t, Disconnected, tr.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "unknown", State(9).String())
}
