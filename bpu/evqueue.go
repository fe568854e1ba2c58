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

// eventQueue holds inbound events and coalesces same-kind arrivals that
// fall within the configured time window.
type eventQueue struct {
	r                *ring[Event]
	coalesceWindowMS uint32
}

func newEventQueue(capacity int, coalesceWindowMS int) *eventQueue {
	return &eventQueue{
		r:                newRing[Event](capacity),
		coalesceWindowMS: uint32(coalesceWindowMS),
	}
}

func (q *eventQueue) count() int { return q.r.Count() }

// pushCoalesce admits e into the queue, always incrementing stats.EvIn. It
// increments exactly one of EvMerge, EvOut-unrelated EvDrop, or leaves the
// event queued, per spec.md's "exactly one of {out, merge, drop}" rule
// (EvOut is counted separately, by pop).
func (q *eventQueue) pushCoalesce(e Event, st *Stats) {
	st.EvIn++

	if policyFor(e.Type) == policyMergeLastWindow {
		for i := 0; i < q.r.Count(); i++ {
			existing := q.r.at(i)
			if existing.Type != e.Type {
				continue
			}
			// unsigned wraparound arithmetic, per spec: a 32-bit timestamp
			// rollover must not make a fresh merge window look stale.
			if (e.TMs - existing.TMs) <= q.coalesceWindowMS {
				q.r.set(i, e)
				st.EvMerge++
				return
			}
		}
	}

	if !q.r.push(e) {
		st.EvDrop++
	}
}

// pop removes the head event in FIFO order.
func (q *eventQueue) pop(st *Stats) (Event, bool) {
	e, ok := q.r.pop()
	if ok {
		st.EvOut++
	}
	return e, ok
}
