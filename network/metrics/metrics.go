package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

/**  客户端的prometheus计数器
  *  默认不注册，调用Register之后才会暴露出去
**/

const namespace = "netclient"

var labels = []string{"transport", "client"}

var (
	framesIn = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "frame",
		Name:      "received_total",
		Help:      "Complete frames decoded from the connection.",
	}, labels)
	framesOut = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "frame",
		Name:      "sent_total",
		Help:      "Frames written to the connection.",
	}, labels)
	discards = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "frame",
		Name:      "discarded_total",
		Help:      "Receive buffers discarded because of invalid framing.",
	}, labels)
	dropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dispatch",
		Name:      "dropped_total",
		Help:      "Inbound messages dropped because no processor was registered.",
	}, labels)
	handlerErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dispatch",
		Name:      "handler_errors_total",
		Help:      "Processor invocations that returned an error or panicked.",
	}, labels)
	reconnects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "conn",
		Name:      "reconnects_total",
		Help:      "Successful reconnects after the connection was lost.",
	}, labels)
	connectFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "conn",
		Name:      "connect_failures_total",
		Help:      "Failed connect attempts.",
	}, labels)

	collectors = []*prometheus.CounterVec{
		framesIn, framesOut, discards, dropped, handlerErrors, reconnects, connectFailures,
	}
)

// Register 把计数器注册到reg，重复注册不算错误
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// Metrics 绑定了transport和client标签的计数器，nil可以直接调用
type Metrics struct {
	transport string
	client    string

	framesIn        prometheus.Counter
	framesOut       prometheus.Counter
	discards        prometheus.Counter
	dropped         prometheus.Counter
	handlerErrors   prometheus.Counter
	reconnects      prometheus.Counter
	connectFailures prometheus.Counter
}

func New(transport, client string) *Metrics {
	return &Metrics{
		transport:       transport,
		client:          client,
		framesIn:        framesIn.WithLabelValues(transport, client),
		framesOut:       framesOut.WithLabelValues(transport, client),
		discards:        discards.WithLabelValues(transport, client),
		dropped:         dropped.WithLabelValues(transport, client),
		handlerErrors:   handlerErrors.WithLabelValues(transport, client),
		reconnects:      reconnects.WithLabelValues(transport, client),
		connectFailures: connectFailures.WithLabelValues(transport, client),
	}
}

func (m *Metrics) FrameReceived() {
	if m != nil {
		m.framesIn.Inc()
	}
}

func (m *Metrics) FrameSent() {
	if m != nil {
		m.framesOut.Inc()
	}
}

func (m *Metrics) Discarded() {
	if m != nil {
		m.discards.Inc()
	}
}

func (m *Metrics) Dropped() {
	if m != nil {
		m.dropped.Inc()
	}
}

func (m *Metrics) HandlerFailed() {
	if m != nil {
		m.handlerErrors.Inc()
	}
}

func (m *Metrics) Reconnected() {
	if m != nil {
		m.reconnects.Inc()
	}
}

func (m *Metrics) ConnectFailed() {
	if m != nil {
		m.connectFailures.Inc()
	}
}

// Forget 删除这个客户端的所有序列，客户端销毁时调用
func (m *Metrics) Forget() {
	if m == nil {
		return
	}
	for _, c := range collectors {
		c.DeleteLabelValues(m.transport, m.client)
	}
}
