package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/YiuTerran/go-netclient/base/log"
	"github.com/YiuTerran/go-netclient/network"
	"github.com/gorilla/websocket"
	"github.com/smallnest/chanx"
)

// Conn 一条websocket连接，写操作通过无界队列交给单独的协程
type Conn struct {
	sync.Mutex
	conn      *websocket.Conn
	writeChan *chanx.UnboundedChan[[]byte]
	cancel    context.CancelFunc
	msgType   int
	closeFlag bool
	logger    log.Logger
}

func newConn(conn *websocket.Conn, textFormat bool, onError func(*Conn), logger log.Logger) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	wsConn := &Conn{
		conn:      conn,
		writeChan: chanx.NewUnboundedChan[[]byte](ctx, initWriteQueueSize),
		cancel:    cancel,
		msgType:   websocket.BinaryMessage,
		logger:    logger,
	}
	if textFormat {
		wsConn.msgType = websocket.TextMessage
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case b, ok := <-wsConn.writeChan.Out:
				if !ok {
					return
				}
				if err := conn.WriteMessage(wsConn.msgType, b); err != nil {
					if !wsConn.closed() {
						logger.Error("fail to write ws msg: %v", err)
						onError(wsConn)
					}
					return
				}
			}
		}
	}()
	return wsConn
}

func (wsConn *Conn) closed() bool {
	wsConn.Lock()
	defer wsConn.Unlock()
	return wsConn.closeFlag
}

// shutdown 停止接收新的写请求，返回false表示之前已经关闭过
func (wsConn *Conn) shutdown() bool {
	wsConn.Lock()
	defer wsConn.Unlock()
	if wsConn.closeFlag {
		return false
	}
	wsConn.closeFlag = true
	close(wsConn.writeChan.In)
	return true
}

// Close 发送close帧并关闭，timeout是close帧的写超时
func (wsConn *Conn) Close(timeout time.Duration) {
	if !wsConn.shutdown() {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := wsConn.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(timeout)); err != nil &&
		!errors.Is(err, websocket.ErrCloseSent) {
		wsConn.logger.Debug("send ws close frame: %v", err)
	}
	_ = wsConn.conn.Close()
	wsConn.cancel()
}

// Destroy 不做关闭握手，直接断开
func (wsConn *Conn) Destroy() {
	wsConn.shutdown()
	_ = wsConn.conn.Close()
	wsConn.cancel()
}

func (wsConn *Conn) ReadMsg() ([]byte, error) {
	_, b, err := wsConn.conn.ReadMessage()
	return b, err
}

// WriteMsg b在写完之前不能被修改
func (wsConn *Conn) WriteMsg(b []byte) error {
	wsConn.Lock()
	defer wsConn.Unlock()
	if wsConn.closeFlag {
		return network.ErrNotConnected
	}
	if len(b) == 0 {
		return nil
	}
	wsConn.writeChan.In <- b
	return nil
}
