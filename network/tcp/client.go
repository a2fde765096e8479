package tcp

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/YiuTerran/go-netclient/base/log"
	"github.com/YiuTerran/go-netclient/network"
	"github.com/YiuTerran/go-netclient/network/frame"
	"go.uber.org/atomic"
)

const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultReadTimeout    = 120 * time.Second
	DefaultWriteTimeout   = 5 * time.Second
)

// Client 基于TCP流的客户端连接
type Client struct {
	sync.Mutex
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	BufferSize     int
	Logger         log.Logger

	conn      net.Conn
	readBuf   []byte
	state     atomic.Int32
	closeFlag atomic.Bool
}

type Option func(*Client)

func NewClient(options ...Option) *Client {
	c := &Client{
		ConnectTimeout: DefaultConnectTimeout,
		ReadTimeout:    DefaultReadTimeout,
		WriteTimeout:   DefaultWriteTimeout,
		BufferSize:     frame.ReceiveBufferSize,
	}
	for _, option := range options {
		option(c)
	}
	c.init()
	return c
}

func ConnectTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.ConnectTimeout = d
	}
}

func ReadTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.ReadTimeout = d
	}
}

func WriteTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.WriteTimeout = d
	}
}

func BufferSize(size int) Option {
	return func(c *Client) {
		c.BufferSize = size
	}
}

func Logger(logger log.Logger) Option {
	return func(c *Client) {
		c.Logger = logger
	}
}

func (c *Client) init() {
	if c.Logger == nil {
		c.Logger = log.Fields{}.WithPrefix("tcp")
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
		c.Logger.Debug("invalid ConnectTimeout, reset to %v", c.ConnectTimeout)
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
		c.Logger.Debug("invalid ReadTimeout, reset to %v", c.ReadTimeout)
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
		c.Logger.Debug("invalid WriteTimeout, reset to %v", c.WriteTimeout)
	}
	if c.BufferSize <= 0 {
		c.BufferSize = frame.ReceiveBufferSize
		c.Logger.Debug("invalid BufferSize, reset to %v", c.BufferSize)
	}
	c.readBuf = make([]byte, c.BufferSize)
}

func (c *Client) Name() string {
	return "tcp"
}

func (c *Client) State() network.State {
	return network.State(c.state.Load())
}

func (c *Client) setState(s network.State) {
	c.state.Store(int32(s))
}

// Connect 已有的连接会先被关闭
func (c *Client) Connect(ctx context.Context, addr string, port int) error {
	if c.closeFlag.Load() {
		return fmt.Errorf("tcp connect: %w", net.ErrClosed)
	}
	c.Disconnect()
	c.setState(network.Connecting)

	target := net.JoinHostPort(addr, strconv.Itoa(port))
	dialer := net.Dialer{Timeout: c.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		c.setState(network.Disconnected)
		return fmt.Errorf("tcp connect %s: %w", target, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	c.Lock()
	if c.closeFlag.Load() {
		c.Unlock()
		_ = conn.Close()
		c.setState(network.Disconnected)
		return fmt.Errorf("tcp connect: %w", net.ErrClosed)
	}
	c.conn = conn
	c.setState(network.Connected)
	c.Unlock()
	c.Logger.Info("connected to %s", target)
	return nil
}

// Disconnect 关闭socket，阻塞中的ReadMsg会立即返回
func (c *Client) Disconnect() {
	c.Lock()
	conn := c.conn
	c.conn = nil
	c.setState(network.Disconnected)
	c.Unlock()
	if conn != nil {
		if err := conn.Close(); err != nil {
			c.Logger.Debug("close tcp conn: %v", err)
		}
	}
}

func (c *Client) Close() {
	c.closeFlag.Store(true)
	c.Disconnect()
}

// current 在锁外使用连接，连接被替换或关闭后读写会返回错误
func (c *Client) current() net.Conn {
	c.Lock()
	defer c.Unlock()
	return c.conn
}

// dropConn 只有conn仍然是当前连接时才标记断开
func (c *Client) dropConn(conn net.Conn) {
	c.Lock()
	if c.conn == conn {
		c.conn = nil
		c.setState(network.Disconnected)
	}
	c.Unlock()
	_ = conn.Close()
}
