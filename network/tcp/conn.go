package tcp

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/YiuTerran/go-netclient/network"
)

// ReadMsg 读一次socket，只能在接收协程调用
// 读超时返回(nil, nil)，连接关闭或出错时标记断开
func (c *Client) ReadMsg() ([]byte, error) {
	conn := c.current()
	if conn == nil {
		return nil, network.ErrNotConnected
	}
	_ = conn.SetReadDeadline(time.Now().Add(c.ReadTimeout))
	n, err := conn.Read(c.readBuf)
	if n > 0 {
		// 先交出已读到的数据，错误在下一次读时再处理
		b := make([]byte, n)
		copy(b, c.readBuf[:n])
		return b, nil
	}
	if err == nil {
		return nil, nil
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return nil, nil
	}
	c.dropConn(conn)
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("tcp read: %w", network.ErrPeerClosed)
	}
	return nil, fmt.Errorf("tcp read: %w", err)
}

// WriteMsg 同步写，b必须是完整的帧
func (c *Client) WriteMsg(b []byte) error {
	conn := c.current()
	if conn == nil {
		return network.ErrNotConnected
	}
	_ = conn.SetWriteDeadline(time.Now().Add(c.WriteTimeout))
	if _, err := conn.Write(b); err != nil {
		c.dropConn(conn)
		if errors.Is(err, net.ErrClosed) {
			return network.ErrNotConnected
		}
		return fmt.Errorf("tcp write: %w", err)
	}
	return nil
}
