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

import (
	"encoding/hex"
	"time"
)

// LogSink is the human-readable diagnostic channel contract (spec §6).
type LogSink interface {
	Write(p []byte) (int, error)
}

// Engine wires the two-stage staging pipeline (events -> jobs) and the
// flush/shaping loop into a single tick-driven core. It owns the event
// queue, job queue, source scheduler, framer, and stats block; all state
// transitions happen inside Tick, which runs to completion without
// suspension, per the single-threaded cooperative scheduling model.
type Engine struct {
	cfg Config

	evq     *eventQueue
	jobq    *jobQueue
	sources *sourceScheduler
	flush   *flushLoop
	framer  *framer

	log LogSink

	stats        Stats
	lastSnapshot time.Time
}

// NewEngine constructs an Engine bound to sink for outbound frames and log
// for diagnostic output. log may be nil to discard snapshot lines.
func NewEngine(cfg Config, sink ByteSink, log LogSink) *Engine {
	f := newFramer(sink)
	jobq := newJobQueue(cfg.JobQN)
	e := &Engine{
		cfg:     cfg,
		evq:     newEventQueue(cfg.EvtQN, cfg.CoalesceWindowMS),
		jobq:    jobq,
		sources: newSourceScheduler(cfg.SensorMS, cfg.HBMS, cfg.TelemMS),
		flush:   newFlushLoop(f, jobq, cfg),
		framer:  f,
		log:     log,
	}
	e.enableHexDump()
	return e
}

// enableHexDump wires the framer's onSent hook to log every encoded frame
// as hex, honoring Config.DebugDumpTxHex.
func (e *Engine) enableHexDump() {
	if !e.cfg.DebugDumpTxHex || e.log == nil {
		return
	}
	e.framer.onSent = func(encoded []byte) {
		n, err := e.log.Write([]byte(hex.Dump(encoded)))
		if err == nil {
			e.stats.LogBytesTotal += uint32(n)
		}
	}
}

// IngestEvent admits a producer-originated event into the event queue,
// coalescing it per the event's kind policy. Producers never observe
// backpressure: a full queue silently counts a drop.
func (e *Engine) IngestEvent(ev Event) {
	e.evq.pushCoalesce(ev, &e.stats)
}

// Tick runs one full pass: sources fire, the event queue is drained into
// jobs, and the flush loop spends this tick's byte budget. It is the only
// entry point that mutates engine state besides IngestEvent, and it never
// suspends mid-pass.
func (e *Engine) Tick(nowMs uint32) {
	start := time.Now()

	e.stats.Tick++
	e.sources.fire(nowMs, e.evq, &e.stats)
	lower(e.evq, e.jobq, nowMs, uint32(e.cfg.AgedMS), &e.stats)
	e.flush.run(&e.stats)

	elapsedUs := uint32(time.Since(start).Microseconds())
	e.stats.WorkUsLast = elapsedUs
	if elapsedUs > e.stats.WorkUsMax {
		e.stats.WorkUsMax = elapsedUs
	}

	e.maybeLogSnapshot()
}

// Snapshot returns the current observable state: every counter plus queue
// depths and the job dirty mask.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Stats:     e.stats,
		EvQDepth:  e.evq.count(),
		JobQDepth: e.jobq.count(),
		Dirty:     e.jobq.dirtyMask(),
	}
}

// maybeLogSnapshot emits a snapshot line to the log sink at most once per
// 200ms, matching the stats block's documented emission cadence.
func (e *Engine) maybeLogSnapshot() {
	if e.log == nil {
		return
	}
	if !e.lastSnapshot.IsZero() && time.Since(e.lastSnapshot) < 200*time.Millisecond {
		return
	}
	e.lastSnapshot = time.Now()

	line := e.Snapshot().String() + "\n"
	n, err := e.log.Write([]byte(line))
	if err == nil {
		e.stats.LogBytesTotal += uint32(n)
	}
}
