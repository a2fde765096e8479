package gate

import (
	"time"

	"github.com/YiuTerran/go-netclient/base/log"
	"github.com/YiuTerran/go-netclient/network"
	"github.com/YiuTerran/go-netclient/network/serializer"
	"github.com/YiuTerran/go-netclient/network/tcp"
	"github.com/YiuTerran/go-netclient/network/ws"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultStopTimeout  = time.Second
	DefaultTickInterval = 16 * time.Millisecond
)

type Option func(*Client)

// AutoReconnect 默认打开，关闭后断线需要调用Reconnect
func AutoReconnect(enable bool) Option {
	return func(c *Client) {
		c.reconnect = enable
	}
}

// ReconnectInterval 重连退避的初始间隔和最大间隔
func ReconnectInterval(initial, max time.Duration) Option {
	return func(c *Client) {
		c.reconnectInitial = initial
		c.reconnectMax = max
	}
}

func YieldInterval(d time.Duration) Option {
	return func(c *Client) {
		c.yieldInterval = d
	}
}

func ErrorPause(d time.Duration) Option {
	return func(c *Client) {
		c.errorPause = d
	}
}

func StopTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.stopTimeout = d
	}
}

func UseSerializer(s serializer.Serializer) Option {
	return func(c *Client) {
		c.serializer = s
	}
}

func Logger(logger log.Logger) Option {
	return func(c *Client) {
		c.baseLogger = logger
	}
}

// Metrics 把计数器注册到reg，reg为nil时使用默认的registry
func Metrics(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.enableMetrics = true
		c.registerer = reg
	}
}

// TcpOptions 只对NewTcpClient生效
func TcpOptions(options ...tcp.Option) Option {
	return func(c *Client) {
		c.tcpOptions = append(c.tcpOptions, options...)
	}
}

// WsOptions 只对NewWsClient生效
func WsOptions(options ...ws.Option) Option {
	return func(c *Client) {
		c.wsOptions = append(c.wsOptions, options...)
	}
}

func (c *Client) normalize() {
	if c.stopTimeout <= 0 {
		c.stopTimeout = DefaultStopTimeout
		c.logger.Debug("invalid StopTimeout, reset to %v", c.stopTimeout)
	}
	if c.yieldInterval <= 0 {
		c.yieldInterval = network.DefaultYieldInterval
		c.logger.Debug("invalid YieldInterval, reset to %v", c.yieldInterval)
	}
	if c.errorPause <= 0 {
		c.errorPause = network.DefaultErrorPause
		c.logger.Debug("invalid ErrorPause, reset to %v", c.errorPause)
	}
	if c.reconnectInitial <= 0 {
		c.reconnectInitial = network.DefaultReconnectInitial
		c.logger.Debug("invalid reconnect interval, reset to %v", c.reconnectInitial)
	}
	if c.reconnectMax < c.reconnectInitial {
		c.reconnectMax = network.DefaultReconnectMax
		if c.reconnectMax < c.reconnectInitial {
			c.reconnectMax = c.reconnectInitial
		}
		c.logger.Debug("invalid max reconnect interval, reset to %v", c.reconnectMax)
	}
	if c.serializer == nil {
		c.serializer = serializer.JSON{}
	}
}
