package dispatch

/**  接收协程和业务协程之间的消息队列
  *  接收协程调用Publish，业务协程定时调用Drain，处理器都在Drain的协程里执行
**/

import (
	"fmt"

	"github.com/YiuTerran/go-netclient/base/log"
	"github.com/YiuTerran/go-netclient/base/structs/ringbuffer"
	"github.com/YiuTerran/go-netclient/base/structs/syncmap"
	"github.com/YiuTerran/go-netclient/network/metrics"
)

const initQueueSize = 64

// Event 一条待处理的消息
type Event struct {
	MsgID   int32
	Payload []byte
}

// Handler 消息处理器，返回的错误只记日志
type Handler func(*Event) error

type Dispatcher struct {
	queue      *ringbuffer.RingBuffer[*Event]
	processors syncmap.Map[int32, Handler]
	logger     log.Logger
	metrics    *metrics.Metrics
}

// New m可以为nil
func New(logger log.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = log.Fields{}.WithPrefix("dispatch")
	}
	return &Dispatcher{
		queue:   ringbuffer.New[*Event](initQueueSize),
		logger:  logger,
		metrics: m,
	}
}

// RegisterProcessor 同一个id只保留最后一个处理器
func (d *Dispatcher) RegisterProcessor(id int32, h Handler) bool {
	if h == nil {
		d.logger.Error("nil processor for msg %d", id)
		return false
	}
	if _, loaded := d.processors.Swap(id, h); loaded {
		d.logger.Debug("processor for msg %d replaced", id)
	}
	return true
}

func (d *Dispatcher) UnregisterProcessor(id int32) bool {
	_, ok := d.processors.LoadAndDelete(id)
	return ok
}

func (d *Dispatcher) HasProcessor(id int32) bool {
	return d.processors.Has(id)
}

// Publish 没有处理器的消息直接丢弃
func (d *Dispatcher) Publish(id int32, payload []byte) bool {
	if !d.processors.Has(id) {
		d.logger.Warn("no processor for msg %d, drop %d bytes", id, len(payload))
		d.metrics.Dropped()
		return false
	}
	d.queue.WriteItem(&Event{MsgID: id, Payload: payload})
	return true
}

// Drain 按到达顺序处理队列里所有消息，返回取出的数量
// 处理器在入队后被注销的消息会被跳过，单个处理器的错误或panic不影响后续消息
func (d *Dispatcher) Drain() int {
	n := 0
	for {
		ev, err := d.queue.ReadItem()
		if err != nil {
			return n
		}
		n++
		h, ok := d.processors.Load(ev.MsgID)
		if !ok {
			continue
		}
		d.invoke(h, ev)
	}
}

func (d *Dispatcher) invoke(h Handler, ev *Event) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.HandlerFailed()
			d.logger.Error("%s", log.FormatPanic(fmt.Sprintf("processor for msg %d", ev.MsgID), r))
		}
	}()
	if err := h(ev); err != nil {
		d.metrics.HandlerFailed()
		d.logger.Error("processor for msg %d failed: %v", ev.MsgID, err)
	}
}

// Pending 队列里待处理的数量
func (d *Dispatcher) Pending() int {
	return d.queue.Length()
}

// Clear 只清空队列
func (d *Dispatcher) Clear() {
	d.queue.Reset()
}

// Reset 清空队列和所有处理器
func (d *Dispatcher) Reset() {
	d.queue.Reset()
	d.processors.Clear()
}
