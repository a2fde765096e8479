package serializer

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// Proto payload是protobuf编码，消息ID已经在帧头里了，这里不再额外加前缀
type Proto struct{}

func (Proto) Name() string {
	return "protobuf"
}

func (Proto) Marshal(v any) ([]byte, error) {
	msg, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotProtoMessage, v)
	}
	return proto.Marshal(msg)
}

func (Proto) Unmarshal(data []byte, v any) error {
	msg, ok := v.(proto.Message)
	if !ok {
		return fmt.Errorf("%w: got %T", ErrNotProtoMessage, v)
	}
	return proto.Unmarshal(data, msg)
}
