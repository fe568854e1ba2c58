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

// flushLoop enforces the per-tick byte budget, observes the sink's free
// space, frames jobs, and applies priority-based degradation when it
// cannot send. It is invoked once per tick with a freshly reset budget.
type flushLoop struct {
	f             *framer
	jobq          *jobQueue
	enableDegrade bool
	outMinFree    int
	budgetBytes   int
}

func newFlushLoop(f *framer, jobq *jobQueue, cfg Config) *flushLoop {
	return &flushLoop{
		f:             f,
		jobq:          jobq,
		enableDegrade: cfg.EnableDegrade,
		outMinFree:    cfg.OutMinFree,
		budgetBytes:   cfg.TXBudgetBytes,
	}
}

// run drains as much of the job queue as the byte budget and the sink's
// free space allow, then counts the tick as flush_full or flush_partial if
// anything was sent. It breaks out of the
// loop (the anti-spin guard) the moment an iteration neither sends a frame
// nor reduces the remaining budget, since that signals a decision that
// will repeat identically next iteration.
func (fl *flushLoop) run(st *Stats) {
	budgetLeft := fl.budgetBytes
	sentAny := false

	for budgetLeft > 0 && fl.jobq.count() > 0 {
		before := budgetLeft
		if fl.flushOne(&budgetLeft, st) {
			sentAny = true
		} else if budgetLeft == before {
			break
		}
	}

	switch {
	case !sentAny:
		// nothing sent this tick: neither flush_full nor flush_partial.
	case fl.jobq.count() == 0:
		st.FlushFull++
	default:
		st.FlushPartial++
	}
}

// flushOne pops and attempts to transmit a single job, mutating
// budgetLeft and the relevant counters. It returns true iff a frame was
// actually written to the sink.
func (fl *flushLoop) flushOne(budgetLeft *int, st *Stats) bool {
	st.FlushTry++

	j, ok := fl.jobq.pop(st)
	if !ok {
		return false
	}

	worst := worstCaseWireBytes(int(j.Len))
	if worst > *budgetLeft {
		st.UartSkipBudget++
		if fl.enableDegrade && j.Type == JobTelem {
			st.DegradeDrop++
			return false
		}
		fl.jobq.pushCoalesce(j, st)
		st.DegradeRequeue++
		return false
	}

	if fl.f.sink.AvailableForWrite() < fl.outMinFree {
		st.UartSkipTxbuf++
		fl.jobq.pushCoalesce(j, st)
		st.DegradeRequeue++
		return false
	}

	wireLen := int(j.Len)
	if wireLen > 255 {
		wireLen = 255
	}
	written, sent, err := fl.f.sendFrame(byte(j.Type), j.Payload[:wireLen], wireLen)
	if err != nil || !sent {
		fl.jobq.pushCoalesce(j, st)
		st.DegradeRequeue++
		return false
	}

	*budgetLeft -= written
	st.UartSent++
	st.UartBytes += uint32(written)
	st.OutBytesTotal += uint32(written)
	st.FlushOk++
	return true
}
