package serializer

import (
	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// JSON 默认的序列化方式，和encoding/json兼容
type JSON struct{}

func (JSON) Name() string {
	return "json"
}

func (JSON) Marshal(v any) ([]byte, error) {
	return jsonAPI.Marshal(v)
}

// Unmarshal v必须是指针
func (JSON) Unmarshal(data []byte, v any) error {
	return jsonAPI.Unmarshal(data, v)
}
