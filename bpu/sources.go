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

import "encoding/binary"

// sourceScheduler fires the three periodic pseudo-sources (SENSOR, HB,
// TELEM) keyed by per-source next-fire timestamps, using signed wraparound
// comparisons exactly like kcp-go's retransmission timers: a source fires
// when (int32)(now - tNext) >= 0, after which tNext is advanced by the
// source's period relative to now (drift is tolerated by design; catch-up
// happens at the tick driver, not here).
type sourceScheduler struct {
	sensorPeriod, hbPeriod, telemPeriod uint32
	tNextSensor, tNextHB, tNextTelem    uint32 // zero value fires every source on the very first tick
}

func newSourceScheduler(sensorMS, hbMS, telemMS int) *sourceScheduler {
	return &sourceScheduler{
		sensorPeriod: uint32(sensorMS),
		hbPeriod:     uint32(hbMS),
		telemPeriod:  uint32(telemMS),
	}
}

// fire evaluates all three sources against nowMs, pushing any that fire
// into evq and bumping the matching pick_* counter.
func (s *sourceScheduler) fire(nowMs uint32, evq *eventQueue, st *Stats) {
	if timeDiff(nowMs, s.tNextSensor) >= 0 {
		s.tNextSensor = nowMs + s.sensorPeriod
		st.PickSensor++
		evq.pushCoalesce(sensorEvent(nowMs), st)
	}
	if timeDiff(nowMs, s.tNextHB) >= 0 {
		s.tNextHB = nowMs + s.hbPeriod
		st.PickHB++
		evq.pushCoalesce(hbEvent(nowMs), st)
	}
	if timeDiff(nowMs, s.tNextTelem) >= 0 {
		s.tNextTelem = nowMs + s.telemPeriod
		st.PickTelem++
		evq.pushCoalesce(telemEvent(nowMs), st)
	}
}

func sensorEvent(nowMs uint32) Event {
	e := Event{Type: KindSensor, Len: 2, TMs: nowMs}
	binary.LittleEndian.PutUint16(e.Payload[:2], uint16((nowMs/10)%(1<<16)))
	return e
}

func hbEvent(nowMs uint32) Event {
	e := Event{Type: KindHB, Len: 1, TMs: nowMs}
	e.Payload[0] = 0x01
	return e
}

func telemEvent(nowMs uint32) Event {
	e := Event{Type: KindTelem, Len: 4, TMs: nowMs}
	binary.LittleEndian.PutUint32(e.Payload[:4], nowMs)
	return e
}
