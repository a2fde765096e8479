package syncmap

/**  泛型包装的sync.Map
  *  读多写少的注册表（协议映射、消息处理器）用它，调用方不用加锁
**/

import (
	"sync"
)

// Map 是类型安全的sync.Map，零值可用，首次使用后不能复制
type Map[K comparable, V any] struct {
	inner sync.Map
}

func (m *Map[K, V]) Delete(key K) {
	m.inner.Delete(key)
}

// Load 不存在时返回V的零值和false
func (m *Map[K, V]) Load(key K) (value V, ok bool) {
	val, ok := m.inner.Load(key)
	if !ok {
		return value, false
	}
	return val.(V), true
}

func (m *Map[K, V]) LoadAndDelete(key K) (value V, loaded bool) {
	val, loaded := m.inner.LoadAndDelete(key)
	if !loaded {
		return value, false
	}
	return val.(V), true
}

func (m *Map[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	val, loaded := m.inner.LoadOrStore(key, value)
	return val.(V), loaded
}

// Swap 写入新值，返回被覆盖的旧值
func (m *Map[K, V]) Swap(key K, value V) (previous V, loaded bool) {
	val, loaded := m.inner.Swap(key, value)
	if !loaded {
		return previous, false
	}
	return val.(V), true
}

func (m *Map[K, V]) Has(key K) bool {
	_, ok := m.inner.Load(key)
	return ok
}

// Range 不是快照，遍历期间可以并发修改；f返回false停止
func (m *Map[K, V]) Range(f func(key K, value V) bool) {
	m.inner.Range(func(key, value any) bool {
		return f(key.(K), value.(V))
	})
}

func (m *Map[K, V]) Store(key K, value V) {
	m.inner.Store(key, value)
}

// Size 需要遍历，O(n)
func (m *Map[K, V]) Size() int {
	size := 0
	m.inner.Range(func(_, _ any) bool {
		size++
		return true
	})
	return size
}

// Clear 逐个删除，和并发写入之间没有原子性保证
func (m *Map[K, V]) Clear() {
	m.inner.Range(func(key, _ any) bool {
		m.inner.Delete(key)
		return true
	})
}

func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0)
	m.Range(func(key K, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}
