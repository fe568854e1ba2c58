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

import "github.com/pkg/errors"

const (
	frameMagic     byte = 0xB2
	maxFrameLen         = 64
	preFrameFixed       = 4 // magic, type, seq, len
	crcSize             = 2
)

// rawHeader is the fixed, pre-encoding byte layout of a frame, modeled on
// smux's rawHeader: a small fixed-size array with named accessors rather
// than a struct, so the wire bytes and the in-memory representation are
// the same allocation.
type rawHeader [preFrameFixed]byte

func (h rawHeader) magic() byte { return h[0] }
func (h rawHeader) typ() byte   { return h[1] }
func (h rawHeader) seq() byte   { return h[2] }
func (h rawHeader) len() byte   { return h[3] }

// ByteSink is the link driver contract (spec §6): a non-blocking byte
// stream that can report how much it can currently absorb without
// blocking.
type ByteSink interface {
	Write(p []byte) (int, error)
	AvailableForWrite() int
}

// framer turns (type, payload) pairs into COBS-encoded, CRC-16/CCITT
// protected, 0x00-delimited frames and writes them to a ByteSink.
type framer struct {
	sink   ByteSink
	seq    byte
	pre    []byte // scratch: magic,type,seq,len,payload,crc_lo,crc_hi
	encBuf []byte // scratch: COBS-encoded output + delimiter

	// onSent, if set, is invoked with the exact bytes written to the sink
	// after every successful frame transmission (DEBUG_DUMP_TX_HEX).
	onSent func(encoded []byte)
}

func newFramer(sink ByteSink) *framer {
	maxPre := preFrameFixed + maxFrameLen + crcSize
	return &framer{
		sink:   sink,
		pre:    make([]byte, 0, maxPre),
		encBuf: make([]byte, cobsMaxEncodedLen(maxPre)+1),
	}
}

// sendFrame encodes and writes a single frame. It returns the exact number
// of bytes written to the sink on success. It fails (ok=false) without
// touching the sink or the sequence counter when len > maxFrameLen or the
// encoding scratch would overflow.
func (f *framer) sendFrame(typ byte, payload []byte, length int) (written int, ok bool, err error) {
	if length > maxFrameLen || length > len(payload) {
		return 0, false, nil
	}

	preLen := preFrameFixed + length + crcSize
	if cap(f.pre) < preLen {
		return 0, false, nil
	}
	pre := f.pre[:preLen]
	pre[0] = frameMagic
	pre[1] = typ
	pre[2] = f.seq
	pre[3] = byte(length)
	copy(pre[preFrameFixed:], payload[:length])

	crc := crc16CCITT(pre[1 : preFrameFixed+length]) // type,seq,len,payload
	pre[preFrameFixed+length] = byte(crc)
	pre[preFrameFixed+length+1] = byte(crc >> 8)

	need := cobsMaxEncodedLen(preLen) + 1
	if len(f.encBuf) < need {
		return 0, false, nil
	}
	n, encErr := cobsEncode(f.encBuf, pre)
	if encErr != nil {
		return 0, false, nil
	}
	f.encBuf[n] = 0x00 // delimiter
	total := n + 1

	nw, err := f.sink.Write(f.encBuf[:total])
	if err != nil {
		return 0, false, errors.Wrap(err, "framer: sink write")
	}
	if f.onSent != nil {
		f.onSent(f.encBuf[:total])
	}
	f.seq++
	return nw, true, nil
}

// decodedFrame is the result of reversing a transmitted frame, used by
// tests and by any receiver-side tooling that wants to validate what the
// framer actually put on the wire.
type decodedFrame struct {
	Type    byte
	Seq     byte
	Len     byte
	Payload []byte
}

var errFrameCRC = errors.New("bpu: frame crc mismatch")
var errFrameShort = errors.New("bpu: frame shorter than header")

// decodeFrame reverses sendFrame's encoding: encoded must be the COBS
// region without the trailing 0x00 delimiter. It validates the CRC and the
// leading magic byte.
func decodeFrame(encoded []byte) (decodedFrame, error) {
	dst := make([]byte, cobsMaxEncodedLen(len(encoded))+1)
	n, err := cobsDecode(dst, encoded)
	if err != nil {
		return decodedFrame{}, errors.Wrap(err, "bpu: cobs decode")
	}
	pre := dst[:n]
	if len(pre) < preFrameFixed+crcSize {
		return decodedFrame{}, errFrameShort
	}
	var h rawHeader
	copy(h[:], pre[:preFrameFixed])
	if h.magic() != frameMagic {
		return decodedFrame{}, errors.New("bpu: bad frame magic")
	}
	payloadLen := int(h.len())
	if len(pre) != preFrameFixed+payloadLen+crcSize {
		return decodedFrame{}, errFrameShort
	}
	gotCRC := uint16(pre[preFrameFixed+payloadLen]) | uint16(pre[preFrameFixed+payloadLen+1])<<8
	wantCRC := crc16CCITT(pre[1 : preFrameFixed+payloadLen])
	if gotCRC != wantCRC {
		return decodedFrame{}, errFrameCRC
	}
	payload := make([]byte, payloadLen)
	copy(payload, pre[preFrameFixed:preFrameFixed+payloadLen])
	return decodedFrame{Type: h.typ(), Seq: h.seq(), Len: h.len(), Payload: payload}, nil
}

// worstCaseWireBytes returns the conservative upper bound on on-wire bytes
// for a job of the given payload length, as specified by the flush loop's
// budget check: decoded_len = 4 + len + 2 (header+crc), overhead =
// floor(decoded_len/254) + 2, worst = decoded_len + overhead + 1 (delimiter).
func worstCaseWireBytes(payloadLen int) int {
	decodedLen := preFrameFixed + payloadLen + crcSize
	overhead := decodedLen/254 + 2
	return decodedLen + overhead + 1
}
