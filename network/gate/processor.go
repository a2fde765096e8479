package gate

import (
	"fmt"

	"github.com/YiuTerran/go-netclient/network/dispatch"
	"github.com/YiuTerran/go-netclient/network/protocol"
)

// 反序列化失败时错误里最多带这么多字节的payload
const payloadPreview = 256

func (c *Client) RegisterProcessor(id int32, h dispatch.Handler) bool {
	return c.dispatcher.RegisterProcessor(id, h)
}

func (c *Client) UnregisterProcessor(id int32) bool {
	return c.dispatcher.UnregisterProcessor(id)
}

func (c *Client) RegisterProtocol(id int32, t protocol.Type) bool {
	return c.registry.Register(id, t)
}

func (c *Client) IDForType(name string) (int32, bool) {
	return c.registry.IDFor(name)
}

func (c *Client) TypeForID(id int32) (protocol.Type, bool) {
	return c.registry.TypeFor(id)
}

// Registry 协议注册表，可以配合protocol.Register使用
func (c *Client) Registry() *protocol.Registry {
	return c.registry
}

// Tick 处理所有排队的消息，在业务协程里定时调用
func (c *Client) Tick() {
	c.dispatcher.Drain()
}

// Drain 同Tick，返回处理的数量
func (c *Client) Drain() int {
	return c.dispatcher.Drain()
}

// Pending 还没处理的消息数
func (c *Client) Pending() int {
	return c.dispatcher.Pending()
}

func (c *Client) unmarshal(id int32, payload []byte, v any) error {
	if err := c.serializer.Unmarshal(payload, v); err != nil {
		preview := payload
		if len(preview) > payloadPreview {
			preview = preview[:payloadPreview]
		}
		return fmt.Errorf("%s unmarshal msg %d to %T: %w, payload: %q", c.serializer.Name(), id, v, err, preview)
	}
	return nil
}

// RegisterMessageProcessor 按注册表里的类型创建对象并反序列化后回调
func (c *Client) RegisterMessageProcessor(id int32, fn func(any) error) bool {
	if fn == nil {
		c.logger.Error("nil message processor for msg %d", id)
		return false
	}
	return c.RegisterProcessor(id, func(ev *dispatch.Event) error {
		t, ok := c.registry.TypeFor(ev.MsgID)
		if !ok {
			return fmt.Errorf("%w: id %d", ErrUnknownMessage, ev.MsgID)
		}
		v := t.New()
		if err := c.unmarshal(ev.MsgID, ev.Payload, v); err != nil {
			return err
		}
		return fn(v)
	})
}

// Handle 注册一个强类型的处理器，payload按当前的序列化方式解到*T
func Handle[T any](c *Client, id int32, fn func(*T) error) bool {
	if fn == nil {
		c.logger.Error("nil handler for msg %d", id)
		return false
	}
	return c.RegisterProcessor(id, func(ev *dispatch.Event) error {
		v := new(T)
		if err := c.unmarshal(ev.MsgID, ev.Payload, v); err != nil {
			return err
		}
		return fn(v)
	})
}
