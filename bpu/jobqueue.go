// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
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

// jobQueue holds lowered work items and always coalesces by kind
// (keep-last), regardless of timestamp.
type jobQueue struct {
	r *ring[Job]
}

func newJobQueue(capacity int) *jobQueue {
	return &jobQueue{r: newRing[Job](capacity)}
}

func (q *jobQueue) count() int { return q.r.Count() }

// pushCoalesce admits j into the queue. It always increments JobIn, and
// exactly one of JobMerge (a same-kind job already queued is overwritten),
// JobDrop (the queue is full and no same-kind job exists to merge with), or
// neither (a fresh slot was used).
//
// A requeued job that loses a race to a fresher sibling of the same kind is
// expected behavior, not a bug: BPU prefers freshness over completeness, so
// callers must not special-case jobs popped for retry.
func (q *jobQueue) pushCoalesce(j Job, st *Stats) {
	st.JobIn++

	for i := 0; i < q.r.Count(); i++ {
		if q.r.at(i).Type == j.Type {
			q.r.set(i, j)
			st.JobMerge++
			return
		}
	}

	if !q.r.push(j) {
		st.JobDrop++
	}
}

func (q *jobQueue) pop(st *Stats) (Job, bool) {
	j, ok := q.r.pop()
	if ok {
		st.JobOut++
	}
	return j, ok
}

// dirtyMask returns the 64-bit bitmap where bit k is set iff a job of kind
// k (1 <= k <= 63) is currently queued.
func (q *jobQueue) dirtyMask() uint64 {
	var mask uint64
	for i := 0; i < q.r.Count(); i++ {
		k := q.r.at(i).Type
		if k >= 1 && k <= 63 {
			mask |= 1 << uint(k)
		}
	}
	return mask
}
