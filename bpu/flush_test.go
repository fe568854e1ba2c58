package bpu

import "testing"

func cfgForFlush(budget, outMinFree int, degrade bool) Config {
	cfg := DefaultConfig()
	cfg.TXBudgetBytes = budget
	cfg.OutMinFree = outMinFree
	cfg.EnableDegrade = degrade
	cfg.JobQN = 8
	return cfg
}

func TestFlushLoopSendsUntilQueueEmpty(t *testing.T) {
	sink := newFakeSink(1 << 20)
	f := newFramer(sink)
	jobq := newJobQueue(8)
	var st Stats

	jobq.pushCoalesce(Job{Type: JobSensor, Len: 4}, &st)
	jobq.pushCoalesce(Job{Type: JobHB, Len: 1}, &st)

	fl := newFlushLoop(f, jobq, cfgForFlush(1000, 0, true))
	fl.run(&st)

	if jobq.count() != 0 {
		t.Fatalf("job queue depth after flush = %d, want 0", jobq.count())
	}
	if st.FlushFull != 1 {
		t.Fatalf("FlushFull = %d, want 1", st.FlushFull)
	}
	if st.UartSent != 2 {
		t.Fatalf("UartSent = %d, want 2", st.UartSent)
	}
}

func TestFlushLoopNothingSentWhenQueueEmpty(t *testing.T) {
	sink := newFakeSink(1 << 20)
	f := newFramer(sink)
	jobq := newJobQueue(8)
	var st Stats

	fl := newFlushLoop(f, jobq, cfgForFlush(1000, 0, true))
	fl.run(&st)

	if st.FlushFull != 0 || st.FlushPartial != 0 {
		t.Fatalf("expected neither flush_full nor flush_partial when idle, got full=%d partial=%d",
			st.FlushFull, st.FlushPartial)
	}
}

func TestFlushLoopBudgetExhaustionLeavesPartial(t *testing.T) {
	sink := newFakeSink(1 << 20)
	f := newFramer(sink)
	jobq := newJobQueue(8)
	var st Stats

	jobq.pushCoalesce(Job{Type: JobSensor, Len: 4}, &st)
	jobq.pushCoalesce(Job{Type: JobHB, Len: 4}, &st)

	// budget big enough for exactly one small frame, too small for two.
	tight := worstCaseWireBytes(4) + 1
	fl := newFlushLoop(f, jobq, cfgForFlush(tight, 0, true))
	fl.run(&st)

	if st.FlushPartial != 1 {
		t.Fatalf("FlushPartial = %d, want 1", st.FlushPartial)
	}
	if jobq.count() != 1 {
		t.Fatalf("job queue depth = %d, want 1 (one job left for next tick)", jobq.count())
	}
}

func TestFlushLoopDegradeDropsTelemOnBudgetExhaustion(t *testing.T) {
	sink := newFakeSink(1 << 20)
	f := newFramer(sink)
	jobq := newJobQueue(8)
	var st Stats

	jobq.pushCoalesce(Job{Type: JobTelem, Len: maxJobPayload}, &st)

	fl := newFlushLoop(f, jobq, cfgForFlush(1, 0, true)) // budget far too small
	fl.run(&st)

	if st.DegradeDrop != 1 {
		t.Fatalf("DegradeDrop = %d, want 1", st.DegradeDrop)
	}
	if jobq.count() != 0 {
		t.Fatalf("telem job should be dropped, not requeued, depth = %d", jobq.count())
	}
}

func TestFlushLoopRequeuesNonTelemOnBudgetExhaustion(t *testing.T) {
	sink := newFakeSink(1 << 20)
	f := newFramer(sink)
	jobq := newJobQueue(8)
	var st Stats

	jobq.pushCoalesce(Job{Type: JobSensor, Len: maxJobPayload}, &st)

	fl := newFlushLoop(f, jobq, cfgForFlush(1, 0, true))
	fl.run(&st)

	if st.DegradeRequeue != 1 {
		t.Fatalf("DegradeRequeue = %d, want 1", st.DegradeRequeue)
	}
	if jobq.count() != 1 {
		t.Fatalf("sensor job should be requeued, depth = %d", jobq.count())
	}
}

func TestFlushLoopRequeuesOnInsufficientSinkSpace(t *testing.T) {
	sink := newFakeSink(0) // never has room
	f := newFramer(sink)
	jobq := newJobQueue(8)
	var st Stats

	jobq.pushCoalesce(Job{Type: JobSensor, Len: 4}, &st)

	fl := newFlushLoop(f, jobq, cfgForFlush(1000, 1, true))
	fl.run(&st)

	if st.UartSkipTxbuf != 1 {
		t.Fatalf("UartSkipTxbuf = %d, want 1", st.UartSkipTxbuf)
	}
	if jobq.count() != 1 {
		t.Fatalf("job should be requeued when sink has no free space, depth = %d", jobq.count())
	}
	if st.UartSent != 0 {
		t.Fatalf("UartSent = %d, want 0", st.UartSent)
	}
}

func TestFlushLoopAntiSpinGuardStopsLoop(t *testing.T) {
	// Sink never has free space and degrade is disabled, so every attempt
	// requeues without consuming budget. The loop must terminate instead
	// of spinning forever.
	sink := newFakeSink(0)
	f := newFramer(sink)
	jobq := newJobQueue(8)
	var st Stats

	jobq.pushCoalesce(Job{Type: JobSensor, Len: 4}, &st)

	fl := newFlushLoop(f, jobq, cfgForFlush(1000, 1, false))
	fl.run(&st) // must return; a broken anti-spin guard would hang the test

	if jobq.count() != 1 {
		t.Fatalf("job queue depth = %d, want 1 (never successfully sent)", jobq.count())
	}
	if st.FlushTry == 0 {
		t.Fatalf("expected at least one flush attempt to be recorded")
	}
}
