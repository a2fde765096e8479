package network

import (
	"context"
	"errors"
)

var (
	ErrNotConnected = errors.New("network: not connected")
	ErrPeerClosed   = errors.New("network: closed by peer")
)

// State 连接状态
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "unknown"
}

// Transport 对一条客户端连接的抽象，TCP和WebSocket各有一个实现
// ReadMsg只会被接收协程调用，其余方法goroutine safe
type Transport interface {
	// Name 用于日志和监控
	Name() string
	// Connect 建立连接，失败时状态为Disconnected
	Connect(ctx context.Context, addr string, port int) error
	// ReadMsg 阻塞读一段数据，返回(nil, nil)表示暂时没有数据
	ReadMsg() ([]byte, error)
	// WriteMsg 写一个完整的帧，失败时连接会被标记为断开
	WriteMsg(b []byte) error
	// Disconnect 可以重复调用，结束后状态一定是Disconnected
	Disconnect()
	State() State
	// Close 释放所有资源，之后不能再Connect
	Close()
}
