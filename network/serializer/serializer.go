package serializer

import "errors"

var ErrNotProtoMessage = errors.New("serializer: protobuf message required")

// Serializer 负责payload和对象之间的转换，必须goroutine safe
type Serializer interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}
