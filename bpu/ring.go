// The MIT License (MIT)
//
// Copyright (c) 2025 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package bpu

// ring is a fixed-capacity FIFO with index access for in-place coalescing.
// Unlike kcp-go's RingBuffer it never grows: BPU's queues are intentionally
// tiny and the keep-last coalescing policy makes depth beyond a small
// constant irrelevant, so push simply fails once full instead of resizing.
type ring[T any] struct {
	head     int // index of the next element to pop
	tail     int // index of the next empty slot to push into
	count    int
	elements []T
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{elements: make([]T, capacity)}
}

// cap returns the fixed capacity of the ring.
func (r *ring[T]) cap() int {
	return len(r.elements)
}

// Count returns the number of elements currently queued.
func (r *ring[T]) Count() int {
	return r.count
}

// push appends v at the tail. It returns false without modifying the ring
// when the ring is already at capacity.
func (r *ring[T]) push(v T) bool {
	if r.count == len(r.elements) {
		return false
	}
	r.elements[r.tail] = v
	r.tail = (r.tail + 1) % len(r.elements)
	r.count++
	return true
}

// pop removes and returns the element at the head. ok is false when the
// ring is empty.
func (r *ring[T]) pop() (v T, ok bool) {
	if r.count == 0 {
		return v, false
	}
	v = r.elements[r.head]
	r.head = (r.head + 1) % len(r.elements)
	r.count--
	return v, true
}

// at returns the i-th element counted from the head (oldest first), for
// i in [0, Count()). It does not mutate the ring.
func (r *ring[T]) at(i int) T {
	return r.elements[(r.head+i)%len(r.elements)]
}

// set overwrites the i-th element counted from the head in place, used by
// coalescing to replace an existing same-kind entry without disturbing
// queue order.
func (r *ring[T]) set(i int, v T) {
	r.elements[(r.head+i)%len(r.elements)] = v
}
