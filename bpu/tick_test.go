package bpu

import "testing"

// fakeClock lets tests drive Driver without depending on wall-clock time.
type fakeClock struct{ ms uint32 }

func (c *fakeClock) NowMs() uint32 { return c.ms }
func (c *fakeClock) NowUs() uint32 { return c.ms * 1000 }

func TestDriverFiresOnceWhenOneTickElapsed(t *testing.T) {
	clk := &fakeClock{}
	d := NewDriver(clk, 20)

	clk.ms = 20
	var fired []uint32
	n := d.Advance(func(now uint32) { fired = append(fired, now) })

	if n != 1 {
		t.Fatalf("Advance returned %d, want 1", n)
	}
	if len(fired) != 1 || fired[0] != 20 {
		t.Fatalf("fired = %v, want [20]", fired)
	}
}

func TestDriverCatchesUpMissedTicks(t *testing.T) {
	clk := &fakeClock{}
	d := NewDriver(clk, 20)

	clk.ms = 0
	d.Advance(func(uint32) {}) // establish the baseline, fires nothing yet

	clk.ms = 100 // 5 tick periods elapsed in one wake
	var fired []uint32
	n := d.Advance(func(now uint32) { fired = append(fired, now) })

	if n != 5 {
		t.Fatalf("Advance returned %d, want 5 catch-up ticks", n)
	}
	want := []uint32{20, 40, 60, 80, 100}
	for i, w := range want {
		if fired[i] != w {
			t.Fatalf("fired[%d] = %d, want %d", i, fired[i], w)
		}
	}
}

func TestDriverNoFireBeforeOneTickElapses(t *testing.T) {
	clk := &fakeClock{}
	d := NewDriver(clk, 20)

	clk.ms = 0
	d.Advance(func(uint32) {})

	clk.ms = 10
	n := d.Advance(func(uint32) { t.Fatalf("must not fire before a full tick period elapses") })
	if n != 0 {
		t.Fatalf("Advance returned %d, want 0", n)
	}
}

func TestTimeDiffWraparound(t *testing.T) {
	const nearMax = ^uint32(0) - 2
	if timeDiff(nearMax+5, nearMax) < 0 {
		t.Fatalf("timeDiff should treat a small forward step across wraparound as positive")
	}
	if timeDiff(nearMax, nearMax+5) > 0 {
		t.Fatalf("timeDiff should treat the reverse comparison as negative")
	}
}
