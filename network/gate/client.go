package gate

/**  网络客户端的组合根：连接、接收协程、协议注册表和消息队列
  *  接收协程只负责入队，处理器在调用Tick/Drain的协程里执行
**/

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/YiuTerran/go-netclient/base/log"
	"github.com/YiuTerran/go-netclient/base/structs/wg"
	"github.com/YiuTerran/go-netclient/network"
	"github.com/YiuTerran/go-netclient/network/dispatch"
	"github.com/YiuTerran/go-netclient/network/frame"
	"github.com/YiuTerran/go-netclient/network/metrics"
	"github.com/YiuTerran/go-netclient/network/protocol"
	"github.com/YiuTerran/go-netclient/network/serializer"
	"github.com/YiuTerran/go-netclient/network/tcp"
	"github.com/YiuTerran/go-netclient/network/ws"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
)

var (
	ErrUnknownMessage = errors.New("gate: unknown message")
	ErrNotStarted     = errors.New("gate: client not started")
	ErrClosed         = errors.New("gate: client closed")
)

type Client struct {
	sync.Mutex
	// ID 日志和监控里区分不同的客户端
	ID string

	transport  network.Transport
	registry   *protocol.Registry
	dispatcher *dispatch.Dispatcher
	serializer serializer.Serializer
	baseLogger log.Logger
	logger     log.Logger
	metrics    *metrics.Metrics

	reconnect        bool
	reconnectInitial time.Duration
	reconnectMax     time.Duration
	yieldInterval    time.Duration
	errorPause       time.Duration
	stopTimeout      time.Duration
	enableMetrics    bool
	registerer       prometheus.Registerer
	tcpOptions       []tcp.Option
	wsOptions        []ws.Option

	addr      string
	port      int
	cancel    context.CancelFunc
	wg        *wg.WaitGroup
	closeFlag atomic.Bool
}

func newClient(options ...Option) *Client {
	c := &Client{
		ID:               uuid.NewString(),
		reconnect:        true,
		reconnectInitial: network.DefaultReconnectInitial,
		reconnectMax:     network.DefaultReconnectMax,
		yieldInterval:    network.DefaultYieldInterval,
		errorPause:       network.DefaultErrorPause,
		stopTimeout:      DefaultStopTimeout,
	}
	for _, option := range options {
		option(c)
	}
	c.logger = log.With(c.baseLogger, log.Fields{"client": c.ID}.WithPrefix("gate"))
	c.normalize()
	return c
}

// componentLogger 子组件的日志带上客户端ID
func (c *Client) componentLogger(prefix string) log.Logger {
	return log.With(c.baseLogger, log.Fields{"client": c.ID}.WithPrefix(prefix))
}

// New 使用自定义的Transport
func New(t network.Transport, options ...Option) *Client {
	c := newClient(options...)
	c.setup(t)
	return c
}

func NewTcpClient(options ...Option) *Client {
	c := newClient(options...)
	opts := append([]tcp.Option{tcp.Logger(c.componentLogger("tcp"))}, c.tcpOptions...)
	c.setup(tcp.NewClient(opts...))
	return c
}

func NewWsClient(options ...Option) *Client {
	c := newClient(options...)
	opts := append([]ws.Option{ws.Logger(c.componentLogger("ws"))}, c.wsOptions...)
	c.setup(ws.NewClient(opts...))
	return c
}

func (c *Client) setup(t network.Transport) {
	if t == nil {
		log.Fatal("transport must not be nil")
	}
	c.transport = t
	if c.enableMetrics {
		if err := metrics.Register(c.registerer); err != nil {
			c.logger.Error("register metrics failed: %v", err)
		} else {
			c.metrics = metrics.New(t.Name(), c.ID)
		}
	}
	c.registry = protocol.NewRegistry(c.componentLogger("protocol"))
	c.dispatcher = dispatch.New(c.componentLogger("dispatch"), c.metrics)
	c.wg = wg.NewWaitGroup(t.Name() + " receiver")
}

// Transport 底层连接
func (c *Client) Transport() network.Transport {
	return c.transport
}

func (c *Client) State() network.State {
	return c.transport.State()
}

func (c *Client) IsConnected() bool {
	return c.transport.State() == network.Connected
}

// Start 连接并启动接收协程，连接失败只记日志，是否重试取决于AutoReconnect
// 已经启动过的会先Stop
func (c *Client) Start(addr string, port int) {
	if err := c.start(addr, port); err != nil {
		c.logger.Error("start %s client to %s:%d: %v", c.transport.Name(), addr, port, err)
	}
}

func (c *Client) start(addr string, port int) error {
	if c.closeFlag.Load() {
		return ErrClosed
	}
	c.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	c.Lock()
	c.addr = addr
	c.port = port
	c.cancel = cancel
	c.Unlock()

	err := c.transport.Connect(ctx, addr, port)
	if err != nil {
		c.metrics.ConnectFailed()
	}
	r := &network.Receiver{
		Transport:     c.transport,
		Sink:          c.publish,
		Reconnect:     c.reconnect,
		YieldInterval: c.yieldInterval,
		ErrorPause:    c.errorPause,
		BackOff:       network.NewBackOff(c.reconnectInitial, c.reconnectMax),
		Logger:        c.componentLogger("receiver"),
		Metrics:       c.metrics,
	}
	c.wg.Go(func() {
		r.Run(ctx, addr, port)
	})
	return err
}

func (c *Client) publish(f frame.Frame) {
	c.dispatcher.Publish(f.MsgID, f.Payload)
}

// Stop 停止接收协程并断开连接，清空未处理的消息，注册信息保留
func (c *Client) Stop() {
	c.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.Unlock()

	if cancel != nil {
		cancel()
	}
	// 关闭连接让阻塞中的读返回
	c.transport.Disconnect()
	if !c.wg.WaitTimeout(c.stopTimeout) {
		c.logger.Warn("receive loop still running after %v", c.stopTimeout)
	}
	c.transport.Disconnect()
	c.dispatcher.Clear()
}

// Reconnect 用上一次Start的地址重新连接，关闭自动重连时由调用方使用
func (c *Client) Reconnect() error {
	c.Lock()
	addr, port := c.addr, c.port
	c.Unlock()
	if addr == "" {
		return ErrNotStarted
	}
	c.logger.Info("reconnect to %s:%d", addr, port)
	return c.start(addr, port)
}

// Close 停止并清空所有注册信息，可以重复调用
func (c *Client) Close() {
	if !c.closeFlag.CompareAndSwap(false, true) {
		return
	}
	c.Stop()
	c.dispatcher.Reset()
	c.registry.Clear()
	c.transport.Close()
	c.metrics.Forget()
	c.logger.Info("client closed")
}

// Run 启动后按interval调用Drain，直到ctx结束后关闭客户端
func (c *Client) Run(ctx context.Context, addr string, port int, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTickInterval
		c.logger.Debug("invalid tick interval, reset to %v", interval)
	}
	c.Start(addr, port)
	defer c.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.Drain()
			return
		case <-ticker.C:
			c.Drain()
		}
	}
}

func (c *Client) String() string {
	return fmt.Sprintf("%s client %s", c.transport.Name(), c.ID)
}
