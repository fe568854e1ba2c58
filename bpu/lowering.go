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

// maxCopiedEventPayload is the most of an event's payload a lowered job
// retains: 2 tag bytes (tag, original length) leave 30 of the 32 payload
// bytes available.
const maxCopiedEventPayload = maxJobPayload - 2

// lower drains the event queue exhaustively, converting every queued event
// into a job and enqueuing it. Aging is observational only: it increments
// counters but never changes routing, per spec.
func lower(evq *eventQueue, jobq *jobQueue, nowMs uint32, agedMS uint32, st *Stats) {
	for {
		e, ok := evq.pop(st)
		if !ok {
			return
		}

		if (nowMs - e.TMs) >= agedMS {
			st.PickAged++
			switch e.Type {
			case KindSensor:
				st.AgedHitSensor++
			case KindHB:
				st.AgedHitHB++
			case KindTelem:
				st.AgedHitTelem++
			}
		}

		jobq.pushCoalesce(lowerEvent(e, nowMs), st)
	}
}

func lowerEvent(e Event, nowMs uint32) Job {
	j := Job{
		Type:  jobKindFor(e.Type),
		Flags: e.Flags,
		TMs:   nowMs,
	}

	j.Payload[0] = tagFor(e.Type)
	j.Payload[1] = e.Len

	n := int(e.Len)
	if n > maxCopiedEventPayload {
		n = maxCopiedEventPayload
	}
	copy(j.Payload[2:2+n], e.Payload[:n])
	j.Len = byte(2 + n)

	return j
}
