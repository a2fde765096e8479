package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/YiuTerran/go-netclient/base/log"
	"github.com/YiuTerran/go-netclient/network"
	"github.com/YiuTerran/go-netclient/network/frame"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
)

/**
  *  websocket客户端连接，每个websocket消息里是一段帧数据
**/

const (
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultCloseTimeout     = time.Second
	initWriteQueueSize      = 64
)

// Client websocket的客户端
type Client struct {
	sync.Mutex
	HandshakeTimeout time.Duration
	CloseTimeout     time.Duration
	// Path 握手路径，默认为空
	Path string
	// Secure 使用wss
	Secure     bool
	TextFormat bool
	Logger     log.Logger

	dialer    websocket.Dialer
	conn      *Conn
	state     atomic.Int32
	closeFlag atomic.Bool
}

type Option func(*Client)

func NewClient(options ...Option) *Client {
	c := &Client{
		HandshakeTimeout: DefaultHandshakeTimeout,
		CloseTimeout:     DefaultCloseTimeout,
	}
	for _, option := range options {
		option(c)
	}
	c.init()
	return c
}

func HandshakeTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.HandshakeTimeout = d
	}
}

func CloseTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.CloseTimeout = d
	}
}

func Path(p string) Option {
	return func(c *Client) {
		c.Path = p
	}
}

func Secure(secure bool) Option {
	return func(c *Client) {
		c.Secure = secure
	}
}

func TextFormat(text bool) Option {
	return func(c *Client) {
		c.TextFormat = text
	}
}

func Logger(logger log.Logger) Option {
	return func(c *Client) {
		c.Logger = logger
	}
}

func (c *Client) init() {
	if c.Logger == nil {
		c.Logger = log.Fields{}.WithPrefix("ws")
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
		c.Logger.Debug("invalid HandshakeTimeout, reset to %v", c.HandshakeTimeout)
	}
	if c.CloseTimeout <= 0 {
		c.CloseTimeout = DefaultCloseTimeout
		c.Logger.Debug("invalid CloseTimeout, reset to %v", c.CloseTimeout)
	}
	c.dialer = websocket.Dialer{
		HandshakeTimeout: c.HandshakeTimeout,
	}
}

func (c *Client) Name() string {
	return "ws"
}

func (c *Client) State() network.State {
	return network.State(c.state.Load())
}

func (c *Client) setState(s network.State) {
	c.state.Store(int32(s))
}

// URL 拼出ws://host:port/path
func (c *Client) URL(addr string, port int) string {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(addr, strconv.Itoa(port)),
		Path:   c.Path,
	}
	if c.Secure {
		u.Scheme = "wss"
	}
	return u.String()
}

func (c *Client) Connect(ctx context.Context, addr string, port int) error {
	if c.closeFlag.Load() {
		return fmt.Errorf("ws connect: %w", net.ErrClosed)
	}
	c.Disconnect()
	c.setState(network.Connecting)

	target := c.URL(addr, port)
	wsConn, _, err := c.dialer.DialContext(ctx, target, nil)
	if err != nil {
		c.setState(network.Disconnected)
		return fmt.Errorf("ws connect %s: %w", target, err)
	}
	wsConn.SetReadLimit(frame.MaxFrameLength)

	c.Lock()
	if c.closeFlag.Load() {
		c.Unlock()
		_ = wsConn.Close()
		c.setState(network.Disconnected)
		return fmt.Errorf("ws connect: %w", net.ErrClosed)
	}
	c.conn = newConn(wsConn, c.TextFormat, c.dropConn, c.Logger)
	c.setState(network.Connected)
	c.Unlock()
	c.Logger.Info("connected to %s", target)
	return nil
}

// Disconnect 尽量发送close帧后关闭连接
func (c *Client) Disconnect() {
	c.Lock()
	conn := c.conn
	c.conn = nil
	c.setState(network.Disconnected)
	c.Unlock()
	if conn != nil {
		conn.Close(c.CloseTimeout)
	}
}

func (c *Client) Close() {
	c.closeFlag.Store(true)
	c.Disconnect()
}

func (c *Client) current() *Conn {
	c.Lock()
	defer c.Unlock()
	return c.conn
}

// dropConn 连接出错时调用，只处理当前连接
func (c *Client) dropConn(conn *Conn) {
	c.Lock()
	if c.conn == conn {
		c.conn = nil
		c.setState(network.Disconnected)
	}
	c.Unlock()
	conn.Destroy()
}

// ReadMsg 读一个websocket消息，只能在接收协程调用
func (c *Client) ReadMsg() ([]byte, error) {
	conn := c.current()
	if conn == nil {
		return nil, network.ErrNotConnected
	}
	b, err := conn.ReadMsg()
	if err != nil {
		c.dropConn(conn)
		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			return nil, fmt.Errorf("ws read: %w: %v", network.ErrPeerClosed, err)
		}
		return nil, fmt.Errorf("ws read: %w", err)
	}
	return b, nil
}

// WriteMsg 只是放进发送队列，真正的写在发送协程里
func (c *Client) WriteMsg(b []byte) error {
	conn := c.current()
	if conn == nil {
		return network.ErrNotConnected
	}
	return conn.WriteMsg(b)
}
