package ringbuffer

// 参考smallnest/ringbuffer的读写指针实现，改成泛型
// 和原版不同，写满时自动扩容而不是报错，用作无界的FIFO队列
// 锁在结构内部，一写一读的场景调用方不用再加锁

import (
	"errors"
	"sync"
)

var (
	ErrIsEmpty = errors.New("ring buffer is empty")
)

const minSize = 16

// RingBuffer 线程安全的环形队列
type RingBuffer[T any] struct {
	buf    []T
	size   int
	r      int // next position to read
	w      int // next position to write
	isFull bool
	mu     sync.Mutex
}

// New 初始容量为size，不足minSize按minSize算
func New[T any](size int) *RingBuffer[T] {
	if size < minSize {
		size = minSize
	}
	return &RingBuffer[T]{
		buf:  make([]T, size),
		size: size,
	}
}

// WriteItem 追加到队尾，满了就扩容到两倍
func (r *RingBuffer[T]) WriteItem(c T) {
	r.mu.Lock()
	if r.isFull {
		r.grow()
	}
	r.buf[r.w] = c
	r.w++
	if r.w == r.size {
		r.w = 0
	}
	if r.w == r.r {
		r.isFull = true
	}
	r.mu.Unlock()
}

// grow 只在满的时候调用，此时r==w
func (r *RingBuffer[T]) grow() {
	buf := make([]T, r.size*2)
	n := copy(buf, r.buf[r.r:])
	copy(buf[n:], r.buf[:r.w])
	r.r = 0
	r.w = r.size
	r.size = len(buf)
	r.buf = buf
	r.isFull = false
}

// ReadItem 从队头取出一个，空的时候返回ErrIsEmpty
func (r *RingBuffer[T]) ReadItem() (b T, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == r.r && !r.isFull {
		err = ErrIsEmpty
		return
	}
	var zero T
	b = r.buf[r.r]
	// 释放引用，方便gc
	r.buf[r.r] = zero
	r.r++
	if r.r == r.size {
		r.r = 0
	}
	r.isFull = false
	return
}

// Length 可读的数量
func (r *RingBuffer[T]) Length() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.length()
}

func (r *RingBuffer[T]) length() int {
	if r.w == r.r {
		if r.isFull {
			return r.size
		}
		return 0
	}
	if r.w > r.r {
		return r.w - r.r
	}
	return r.size - r.r + r.w
}

// Capacity 当前底层数组的大小，会随扩容变化
func (r *RingBuffer[T]) Capacity() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

func (r *RingBuffer[T]) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.isFull && r.w == r.r
}

// Items 按顺序复制所有可读元素，不移动读指针
func (r *RingBuffer[T]) Items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.length()
	if n == 0 {
		return nil
	}
	items := make([]T, n)
	for i := 0; i < n; i++ {
		items[i] = r.buf[(r.r+i)%r.size]
	}
	return items
}

// Reset 清空队列，保留容量
func (r *RingBuffer[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.r = 0
	r.w = 0
	r.isFull = false
}
