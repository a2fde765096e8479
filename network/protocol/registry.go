package protocol

/**  消息ID和消息类型的双向映射
  *  id和名字都是唯一的，重复注册以最后一次为准
**/

import (
	"github.com/YiuTerran/go-netclient/base/log"
	"github.com/YiuTerran/go-netclient/base/structs/syncmap"
)

// Message 发送时通过ProtoName找到消息ID
type Message interface {
	ProtoName() string
}

// Type 描述一种消息，Name是注册用的字符串标签，New创建一个空的实例用于反序列化
type Type struct {
	Name string
	New  func() any
}

type Registry struct {
	byID   syncmap.Map[int32, Type]
	byName syncmap.Map[string, int32]
	logger log.Logger
}

func NewRegistry(logger log.Logger) *Registry {
	if logger == nil {
		logger = log.Fields{}.WithPrefix("protocol")
	}
	return &Registry{logger: logger}
}

// Register 绑定id和t，已有的绑定会被覆盖，旧的反向映射一并删除
func (r *Registry) Register(id int32, t Type) bool {
	if t.Name == "" || t.New == nil {
		r.logger.Error("invalid protocol type for id %d: name=%q, factory nil=%v", id, t.Name, t.New == nil)
		return false
	}
	if old, ok := r.byID.Swap(id, t); ok && old.Name != t.Name {
		r.logger.Warn("protocol id %d rebound from %s to %s", id, old.Name, t.Name)
		r.dropName(old.Name, id)
	}
	if oldID, ok := r.byName.Swap(t.Name, id); ok && oldID != id {
		r.logger.Warn("protocol %s rebound from id %d to %d", t.Name, oldID, id)
		r.dropID(oldID, t.Name)
	}
	return true
}

// dropName 名字仍然指向id时才删除
func (r *Registry) dropName(name string, id int32) {
	if cur, ok := r.byName.Load(name); ok && cur == id {
		r.byName.Delete(name)
	}
}

func (r *Registry) dropID(id int32, name string) {
	if cur, ok := r.byID.Load(id); ok && cur.Name == name {
		r.byID.Delete(id)
	}
}

func (r *Registry) TypeFor(id int32) (Type, bool) {
	return r.byID.Load(id)
}

func (r *Registry) IDFor(name string) (int32, bool) {
	return r.byName.Load(name)
}

func (r *Registry) IDOf(msg Message) (int32, bool) {
	if msg == nil {
		return 0, false
	}
	return r.byName.Load(msg.ProtoName())
}

// Size 已注册的id数量
func (r *Registry) Size() int {
	return r.byID.Size()
}

func (r *Registry) Clear() {
	r.byID.Clear()
	r.byName.Clear()
}

// Register 用类型参数注册，New返回*T
func Register[T any](r *Registry, id int32, name string) bool {
	return r.Register(id, Type{
		Name: name,
		New:  func() any { return new(T) },
	})
}
