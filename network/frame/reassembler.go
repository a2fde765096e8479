package frame

import (
	"errors"
	"fmt"

	"github.com/YiuTerran/go-netclient/base/log"
)

// 缓冲区清空后容量超过这个值就释放掉
const shrinkThreshold = 4 * ReceiveBufferSize

// Reassembler 处理粘包/拆包，把任意切分的字节流还原成完整的帧
// 只能被接收协程使用，不是goroutine safe
type Reassembler struct {
	buf    []byte
	logger log.Logger
	// OnDiscard 缓冲区被整体丢弃时回调，参数是原因和丢弃的字节数
	OnDiscard func(reason error, dropped int)
}

func NewReassembler(logger log.Logger) *Reassembler {
	if logger == nil {
		logger = log.Fields{}.WithPrefix("frame")
	}
	return &Reassembler{logger: logger}
}

// Feed 追加一段数据，返回其中所有完整的帧，顺序与到达顺序一致
// 不完整的尾部留在缓冲区等下一次数据
// 遇到非法长度时整个缓冲区丢弃，不尝试重新同步
func (r *Reassembler) Feed(chunk []byte) []Frame {
	if len(chunk) == 0 {
		return nil
	}
	r.buf = append(r.buf, chunk...)

	var frames []Frame
	cursor := 0
	for {
		f, n, err := Decode(r.buf[cursor:])
		if errors.Is(err, ErrIncomplete) {
			break
		}
		if err != nil {
			r.discard(err)
			return frames
		}
		frames = append(frames, f)
		cursor += n
	}

	rest := len(r.buf) - cursor
	if cursor > 0 {
		copy(r.buf, r.buf[cursor:])
		r.buf = r.buf[:rest]
	}
	if rest > MaxFrameLength {
		// 正常情况下不完整的帧不会超过上限，超过说明数据流已经不可信
		r.discard(fmt.Errorf("%w: %d bytes buffered without a complete frame", ErrMessageTooLong, rest))
		return frames
	}
	if rest == 0 && cap(r.buf) > shrinkThreshold {
		r.buf = nil
	}
	return frames
}

func (r *Reassembler) discard(reason error) {
	dropped := len(r.buf)
	r.logger.Error("discard receive buffer(%d bytes): %v", dropped, reason)
	r.buf = nil
	if r.OnDiscard != nil {
		r.OnDiscard(reason, dropped)
	}
}

// Buffered 当前缓存的不完整数据长度
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

// Reset 丢弃所有缓存，重连或停止时调用
func (r *Reassembler) Reset() {
	r.buf = nil
}
