package bpu

import (
	"bytes"
	"testing"
)

// fakeSink is an in-memory ByteSink for tests, recording every write and
// optionally reporting limited free space.
type fakeSink struct {
	buf       bytes.Buffer
	freeBytes int
	failWrite bool
}

func newFakeSink(free int) *fakeSink {
	return &fakeSink{freeBytes: free}
}

func (s *fakeSink) Write(p []byte) (int, error) {
	if s.failWrite {
		return 0, errFrameShort // any error value serves for the test
	}
	return s.buf.Write(p)
}

func (s *fakeSink) AvailableForWrite() int { return s.freeBytes }

func TestFramerRoundTripLaw(t *testing.T) {
	sink := newFakeSink(1 << 20)
	f := newFramer(sink)

	payloads := [][]byte{
		{},
		{0x00},
		{0x00, 0x00, 0x00},
		{0x01, 0x02, 0x03, 0x04, 0x05},
		bytes.Repeat([]byte{0xFF}, maxFrameLen),
	}

	for _, p := range payloads {
		sink.buf.Reset()
		wantSeq := f.seq
		n, ok, err := f.sendFrame(byte(JobSensor), p, len(p))
		if err != nil || !ok {
			t.Fatalf("sendFrame(%v) failed: ok=%v err=%v", p, ok, err)
		}
		if n != sink.buf.Len() {
			t.Fatalf("sendFrame reported %d written, sink holds %d", n, sink.buf.Len())
		}

		encoded := sink.buf.Bytes()
		if encoded[len(encoded)-1] != 0x00 {
			t.Fatalf("frame missing trailing delimiter: %v", encoded)
		}
		decoded, err := decodeFrame(encoded[:len(encoded)-1])
		if err != nil {
			t.Fatalf("decodeFrame failed for payload %v: %v", p, err)
		}
		if decoded.Type != byte(JobSensor) {
			t.Fatalf("decoded type = %d, want %d", decoded.Type, JobSensor)
		}
		if decoded.Seq != wantSeq {
			t.Fatalf("decoded seq = %d, want %d", decoded.Seq, wantSeq)
		}
		if !bytes.Equal(decoded.Payload, p) {
			t.Fatalf("decoded payload = %v, want %v", decoded.Payload, p)
		}
	}
}

func TestFramerSeqIncrementsOnlyOnSuccess(t *testing.T) {
	sink := newFakeSink(1 << 20)
	f := newFramer(sink)

	if _, ok, _ := f.sendFrame(byte(JobHB), []byte{1}, 1); !ok {
		t.Fatalf("expected first send to succeed")
	}
	if f.seq != 1 {
		t.Fatalf("seq after one send = %d, want 1", f.seq)
	}

	// an oversized length must be rejected without bumping seq.
	oversized := make([]byte, maxFrameLen+1)
	if _, ok, err := f.sendFrame(byte(JobHB), oversized, len(oversized)); ok || err != nil {
		t.Fatalf("expected oversized frame to be rejected cleanly, got ok=%v err=%v", ok, err)
	}
	if f.seq != 1 {
		t.Fatalf("seq changed after a rejected send: %d", f.seq)
	}
}

func TestFramerOnSentHookFires(t *testing.T) {
	sink := newFakeSink(1 << 20)
	f := newFramer(sink)

	var captured []byte
	f.onSent = func(encoded []byte) {
		captured = append([]byte(nil), encoded...)
	}

	if _, ok, err := f.sendFrame(byte(JobCMD), []byte{0xAB}, 1); !ok || err != nil {
		t.Fatalf("sendFrame failed: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(captured, sink.buf.Bytes()) {
		t.Fatalf("onSent captured %v, want %v", captured, sink.buf.Bytes())
	}
}

func TestDecodeFrameRejectsBadCRC(t *testing.T) {
	sink := newFakeSink(1 << 20)
	f := newFramer(sink)
	if _, ok, err := f.sendFrame(byte(JobTelem), []byte{1, 2, 3}, 3); !ok || err != nil {
		t.Fatalf("sendFrame failed: ok=%v err=%v", ok, err)
	}
	encoded := append([]byte(nil), sink.buf.Bytes()...)
	encoded = encoded[:len(encoded)-1] // strip delimiter

	// corrupt a payload byte in the decoded space by flipping a bit in the
	// raw encoded stream; any single-bit flip in a non-code byte changes
	// the decoded content and should break the CRC check.
	encoded[len(encoded)-1] ^= 0x01
	if _, err := decodeFrame(encoded); err == nil {
		t.Fatalf("expected CRC mismatch after corrupting encoded bytes")
	}
}

func TestWorstCaseWireBytesMonotonic(t *testing.T) {
	prev := worstCaseWireBytes(0)
	for n := 1; n <= maxJobPayload; n++ {
		cur := worstCaseWireBytes(n)
		if cur < prev {
			t.Fatalf("worstCaseWireBytes not monotonic at n=%d: %d < %d", n, cur, prev)
		}
		prev = cur
	}
}

func TestWorstCaseWireBytesCoversActualFrame(t *testing.T) {
	sink := newFakeSink(1 << 20)
	f := newFramer(sink)
	for n := 0; n <= maxFrameLen; n++ {
		sink.buf.Reset()
		payload := bytes.Repeat([]byte{0x00}, n) // worst case for COBS overhead
		written, ok, err := f.sendFrame(byte(JobSensor), payload, n)
		if !ok || err != nil {
			t.Fatalf("sendFrame(n=%d) failed: ok=%v err=%v", n, ok, err)
		}
		if bound := worstCaseWireBytes(n); written > bound {
			t.Fatalf("n=%d: actual wire bytes %d exceeds worst-case bound %d", n, written, bound)
		}
	}
}
