package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ---------------------------------
// | length | msgID | payload      |
// ---------------------------------
// length: u32 大端，等于 4 + len(payload)，不包含自身
// msgID:  i32 大端
const (
	// HeaderLength 长度 + 消息ID
	HeaderLength = 8
	// MaxMessageLength length字段允许的最大值
	MaxMessageLength = 1024 * 1024
	// MaxFrameLength 一个完整帧在线上的最大字节数
	MaxFrameLength = 4 + MaxMessageLength
	// MaxPayloadLength payload的最大字节数
	MaxPayloadLength = MaxMessageLength - 4
	// ReceiveBufferSize 每次读socket使用的缓冲区大小
	ReceiveBufferSize = 8192
)

var (
	ErrMessageTooLong = errors.New("frame: message too long")
	ErrInvalidLength  = errors.New("frame: invalid length")
	ErrIncomplete     = errors.New("frame: incomplete")
)

// Frame 一个完整的消息
type Frame struct {
	MsgID   int32
	Payload []byte
}

func (f Frame) String() string {
	return fmt.Sprintf("frame(id=%d, len=%d)", f.MsgID, len(f.Payload))
}

// Encode 编码成线上格式，和Decode互逆
func Encode(id int32, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLength {
		return nil, fmt.Errorf("%w: payload %d > %d", ErrMessageTooLong, len(payload), MaxPayloadLength)
	}
	msg := make([]byte, HeaderLength+len(payload))
	binary.BigEndian.PutUint32(msg[0:4], uint32(4+len(payload)))
	binary.BigEndian.PutUint32(msg[4:8], uint32(id))
	copy(msg[HeaderLength:], payload)
	return msg, nil
}

// validLength length至少要能放下msgID
func validLength(length uint32) bool {
	return length >= 4 && length <= MaxMessageLength
}

// Decode 从b的头部解出一个帧，返回消耗的字节数
// 数据不够时返回ErrIncomplete；payload是b的拷贝
func Decode(b []byte) (Frame, int, error) {
	if len(b) < HeaderLength {
		return Frame{}, 0, ErrIncomplete
	}
	length := binary.BigEndian.Uint32(b[0:4])
	if !validLength(length) {
		return Frame{}, 0, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	total := 4 + int(length)
	if len(b) < total {
		return Frame{}, 0, ErrIncomplete
	}
	payload := make([]byte, total-HeaderLength)
	copy(payload, b[HeaderLength:total])
	return Frame{
		MsgID:   int32(binary.BigEndian.Uint32(b[4:8])),
		Payload: payload,
	}, total, nil
}
