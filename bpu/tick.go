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

import "time"

// Clock is the monotonic clock source contract (spec §6): both now_ms and
// now_us are allowed to wrap, and every comparison against them uses
// signed-difference semantics.
type Clock interface {
	NowMs() uint32
	NowUs() uint32
}

// systemClock implements Clock against the process monotonic clock,
// truncating to the wrapping 32-bit resolution the wire protocol and the
// scheduling comparisons use.
type systemClock struct{ start time.Time }

// NewSystemClock returns a Clock anchored at the current time, so NowMs/
// NowUs start near zero instead of near the full range of uint32 — useful
// for demos and tests where wraparound isn't the thing under test.
func NewSystemClock() Clock {
	return &systemClock{start: time.Now()}
}

func (c *systemClock) NowMs() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

func (c *systemClock) NowUs() uint32 {
	return uint32(time.Since(c.start).Microseconds())
}

// Driver runs a catch-up fixed-step tick at TickMS cadence: each wake
// computes now := clock.NowMs() and, while (int32)(now-lastTick) >=
// TickMS, advances lastTick by TickMS and invokes onTick(lastTick). Missed
// ticks each execute a full pass rather than collapsing into one, so
// source cadence is preserved even after a scheduling delay.
type Driver struct {
	clock    Clock
	tickMS   uint32
	lastTick uint32
	started  bool
}

// NewDriver creates a tick driver for the given clock and tick period.
func NewDriver(clock Clock, tickMS int) *Driver {
	return &Driver{clock: clock, tickMS: uint32(tickMS), lastTick: clock.NowMs(), started: true}
}

// Advance runs onTick once per missed tick period since the last call (or
// since construction, if this is the first call), and returns the number
// of ticks executed.
func (d *Driver) Advance(onTick func(nowMs uint32)) int {
	now := d.clock.NowMs()
	if !d.started {
		d.lastTick = now
		d.started = true
	}

	n := 0
	for timeDiff(now, d.lastTick) >= int32(d.tickMS) {
		d.lastTick += d.tickMS
		onTick(d.lastTick)
		n++
	}
	return n
}

// Run blocks, calling Advance on every wake of a ticker whose period is a
// fraction of TickMS (so catch-up ticks are observed promptly), until
// stop is closed.
func (d *Driver) Run(onTick func(nowMs uint32), stop <-chan struct{}) {
	wake := time.NewTicker(time.Duration(d.tickMS) * time.Millisecond / 2)
	defer wake.Stop()

	for {
		select {
		case <-stop:
			return
		case <-wake.C:
			d.Advance(onTick)
		}
	}
}
