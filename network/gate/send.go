package gate

import (
	"fmt"

	"github.com/YiuTerran/go-netclient/network"
	"github.com/YiuTerran/go-netclient/network/frame"
	"github.com/YiuTerran/go-netclient/network/protocol"
)

// Send 通过注册表找到消息ID后序列化发送
func (c *Client) Send(msg protocol.Message) error {
	if msg == nil {
		return fmt.Errorf("%w: nil", ErrUnknownMessage)
	}
	id, ok := c.registry.IDOf(msg)
	if !ok {
		c.logger.Error("send %T: protocol %s not registered", msg, msg.ProtoName())
		return fmt.Errorf("%w: %s", ErrUnknownMessage, msg.ProtoName())
	}
	return c.SendTo(id, msg)
}

// SendTo 用当前的序列化方式编码v
func (c *Client) SendTo(id int32, v any) error {
	payload, err := c.serializer.Marshal(v)
	if err != nil {
		c.logger.Error("%s marshal msg %d (%T) failed: %v", c.serializer.Name(), id, v, err)
		return fmt.Errorf("marshal msg %d: %w", id, err)
	}
	return c.SendRaw(id, payload)
}

func (c *Client) SendString(id int32, content string) error {
	return c.SendRaw(id, []byte(content))
}

// SendRaw 连接断开时消息直接丢弃
func (c *Client) SendRaw(id int32, payload []byte) error {
	b, err := frame.Encode(id, payload)
	if err != nil {
		c.logger.Error("encode msg %d failed: %v", id, err)
		return err
	}
	if !c.IsConnected() {
		c.logger.Warn("%s not connected, drop msg %d", c.transport.Name(), id)
		return network.ErrNotConnected
	}
	if err = c.transport.WriteMsg(b); err != nil {
		c.logger.Error("send msg %d failed: %v", id, err)
		return err
	}
	c.metrics.FrameSent()
	return nil
}
