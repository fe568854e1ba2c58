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

import "fmt"

// Stats is the flat record of monotonically non-decreasing counters BPU
// exposes for observability, modeled on kcp-go's DefaultSnmp block: plain
// exported uint32 fields, reset only at construction, with Header/ToSlice
// helpers for CSV export.
type Stats struct {
	Tick uint32

	EvIn, EvOut, EvMerge, EvDrop     uint32
	JobIn, JobOut, JobMerge, JobDrop uint32

	UartSent, UartSkipBudget, UartSkipTxbuf uint32
	UartBytes                               uint32

	FlushTry, FlushOk, FlushPartial, FlushFull uint32

	PickSensor, PickHB, PickTelem, PickAged uint32
	AgedHitSensor, AgedHitHB, AgedHitTelem  uint32

	DegradeDrop, DegradeRequeue uint32

	WorkUsLast, WorkUsMax uint32

	OutBytesTotal uint32
	LogBytesTotal uint32
}

// Snapshot is a point-in-time view of Stats plus queue depths and the job
// dirty mask, the payload of the periodic log line.
type Snapshot struct {
	Stats
	EvQDepth  int
	JobQDepth int
	Dirty     uint64
}

// Header returns the CSV column names for ToSlice, in the same order.
func (s Snapshot) Header() []string {
	return []string{
		"tick",
		"ev_in", "ev_out", "ev_merge", "ev_drop", "evq",
		"job_in", "job_out", "job_merge", "job_drop", "jobq",
		"dirty",
		"uart_sent", "uart_skip_budget", "uart_skip_txbuf", "uart_bytes",
		"flush_try", "flush_ok", "flush_partial", "flush_full",
		"pick_sensor", "pick_hb", "pick_telem", "pick_aged",
		"aged_hit_sensor", "aged_hit_hb", "aged_hit_telem",
		"degrade_drop", "degrade_requeue",
		"work_us_last", "work_us_max",
		"out_bytes_total", "log_bytes_total",
	}
}

// ToSlice renders the snapshot in the same column order as Header, for
// encoding/csv writers.
func (s Snapshot) ToSlice() []string {
	return []string{
		fmt.Sprint(s.Tick),
		fmt.Sprint(s.EvIn), fmt.Sprint(s.EvOut), fmt.Sprint(s.EvMerge), fmt.Sprint(s.EvDrop), fmt.Sprint(s.EvQDepth),
		fmt.Sprint(s.JobIn), fmt.Sprint(s.JobOut), fmt.Sprint(s.JobMerge), fmt.Sprint(s.JobDrop), fmt.Sprint(s.JobQDepth),
		fmt.Sprint(s.Dirty),
		fmt.Sprint(s.UartSent), fmt.Sprint(s.UartSkipBudget), fmt.Sprint(s.UartSkipTxbuf), fmt.Sprint(s.UartBytes),
		fmt.Sprint(s.FlushTry), fmt.Sprint(s.FlushOk), fmt.Sprint(s.FlushPartial), fmt.Sprint(s.FlushFull),
		fmt.Sprint(s.PickSensor), fmt.Sprint(s.PickHB), fmt.Sprint(s.PickTelem), fmt.Sprint(s.PickAged),
		fmt.Sprint(s.AgedHitSensor), fmt.Sprint(s.AgedHitHB), fmt.Sprint(s.AgedHitTelem),
		fmt.Sprint(s.DegradeDrop), fmt.Sprint(s.DegradeRequeue),
		fmt.Sprint(s.WorkUsLast), fmt.Sprint(s.WorkUsMax),
		fmt.Sprint(s.OutBytesTotal), fmt.Sprint(s.LogBytesTotal),
	}
}

// String renders a single diagnostic log line, the shape emitted at most
// once per 200ms by the engine.
func (s Snapshot) String() string {
	return fmt.Sprintf(
		"tick=%d evQ=%d/%d-%d-%d-%d jobQ=%d/%d-%d-%d-%d dirty=%#x "+
			"uart=%d/%d/%d bytes=%d flush=%d/%d/%d/%d pick=%d/%d/%d aged=%d(%d/%d/%d) "+
			"degrade=%d/%d work_us=%d/%d out=%d log=%d",
		s.Tick,
		s.EvQDepth, s.EvIn, s.EvOut, s.EvMerge, s.EvDrop,
		s.JobQDepth, s.JobIn, s.JobOut, s.JobMerge, s.JobDrop,
		s.Dirty,
		s.UartSent, s.UartSkipBudget, s.UartSkipTxbuf, s.UartBytes,
		s.FlushTry, s.FlushOk, s.FlushPartial, s.FlushFull,
		s.PickSensor, s.PickHB, s.PickTelem, s.PickAged, s.AgedHitSensor, s.AgedHitHB, s.AgedHitTelem,
		s.DegradeDrop, s.DegradeRequeue,
		s.WorkUsLast, s.WorkUsMax,
		s.OutBytesTotal, s.LogBytesTotal,
	)
}
