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

// Package sink provides ByteSink and LogSink implementations that carry a
// bpu.Engine's output over a real transport: a KCP session for the wire,
// a snappy-compressed file for diagnostics, and a time-rotated CSV stats log.
package sink

import (
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"
	kcp "github.com/xtaci/kcp-go/v5"
)

// cryptMethod maps a cipher name to its constructor and required key size.
type cryptMethod struct {
	keySize int
	build   func(key []byte) (kcp.BlockCrypt, error)
}

// The menu is deliberately smaller than kcptun's: an embedded agent picks
// one cipher at provisioning time and never changes it in the field, so
// there is no reason to carry ciphers that exist only for interop with a
// general-purpose tunnel's negotiation-free "try anything" CLI.
var cryptMethods = map[string]cryptMethod{
	"null":    {0, func(key []byte) (kcp.BlockCrypt, error) { return nil, nil }},
	"none":    {0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewNoneBlockCrypt(key) }},
	"xor":     {0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewSimpleXORBlockCrypt(key) }},
	"salsa20": {0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewSalsa20BlockCrypt(key) }},
	"aes-128": {16, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewAESBlockCrypt(key) }},
	"aes-192": {24, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewAESBlockCrypt(key) }},
}

// SelectBlockCrypt translates a human-readable cipher name into the
// concrete kcp.BlockCrypt, falling back to AES on an unknown name or a
// construction error, and reporting the effective name actually used.
func SelectBlockCrypt(method string, pass []byte) (kcp.BlockCrypt, string) {
	m, ok := cryptMethods[method]
	if !ok {
		block, err := kcp.NewAESBlockCrypt(pass)
		if err != nil {
			log.Printf("sink: failed to create default aes cipher: %v", err)
		}
		return block, "aes"
	}

	key := pass
	if m.keySize > 0 && len(pass) >= m.keySize {
		key = pass[:m.keySize]
	}
	block, err := m.build(key)
	if err != nil {
		log.Printf("sink: failed to create %s cipher: %v, falling back to aes", method, err)
		block, _ = kcp.NewAESBlockCrypt(pass)
		return block, "aes"
	}
	return block, method
}

// KCPOptions configures the dial and session tuning applied by DialKCPSink.
type KCPOptions struct {
	RemoteAddr   string
	Crypt        string
	Key          []byte
	DataShard    int
	ParityShard  int
	MTU          int
	SndWnd       int
	RcvWnd       int
	NoDelay      int
	Interval     int
	Resend       int
	NoCongestion int
}

// DefaultKCPOptions mirrors the "fast" profile tuning, sized for a small
// embedded producer rather than a bulk file-transfer tunnel.
func DefaultKCPOptions(remoteAddr string, key []byte) KCPOptions {
	return KCPOptions{
		RemoteAddr:   remoteAddr,
		Crypt:        "aes",
		Key:          key,
		DataShard:    0,
		ParityShard:  0,
		MTU:          512,
		SndWnd:       32,
		RcvWnd:       32,
		NoDelay:      0,
		Interval:     30,
		Resend:       2,
		NoCongestion: 1,
	}
}

// KCPSink adapts a *kcp.UDPSession into a bpu.ByteSink. *kcp.UDPSession
// exposes no public "bytes still in flight" accessor — WaitSnd lives on the
// unexported kcp control block, not on UDPSession itself — so AvailableForWrite
// keeps its own running count of unacknowledged bytes instead, decaying it
// over time against GetSRTT(): a full send window is assumed to drain, on
// average, once per smoothed round trip, the same ack-clocking assumption
// kcp's own congestion window is built on.
type KCPSink struct {
	conn   *kcp.UDPSession
	mtu    int
	sndWnd int

	mu        sync.Mutex
	inFlight  int
	lastDrain time.Time
}

// DialKCPSink opens a KCP session to opts.RemoteAddr and wraps it as a
// ByteSink. Reed-Solomon FEC is engaged automatically by kcp-go whenever
// DataShard/ParityShard are non-zero.
func DialKCPSink(opts KCPOptions) (*KCPSink, error) {
	block, effective := SelectBlockCrypt(opts.Crypt, opts.Key)
	log.Println("sink: cipher in effect:", effective)

	conn, err := kcp.DialWithOptions(opts.RemoteAddr, block, opts.DataShard, opts.ParityShard)
	if err != nil {
		return nil, errors.Wrap(err, "sink: dial kcp")
	}
	conn.SetStreamMode(true)
	conn.SetWriteDelay(false)
	conn.SetNoDelay(opts.NoDelay, opts.Interval, opts.Resend, opts.NoCongestion)
	conn.SetWindowSize(opts.SndWnd, opts.RcvWnd)
	conn.SetMtu(opts.MTU)

	return &KCPSink{conn: conn, mtu: opts.MTU, sndWnd: opts.SndWnd, lastDrain: time.Now()}, nil
}

func (s *KCPSink) Write(p []byte) (int, error) {
	n, err := s.conn.Write(p)
	if err != nil {
		return n, errors.Wrap(err, "sink: kcp write")
	}
	s.mu.Lock()
	s.inFlight += n
	s.mu.Unlock()
	return n, nil
}

// drainLocked ages s.inFlight down by however much of a send window should
// plausibly have been acked since the last call, based on elapsed wall time
// and the session's current smoothed RTT. Caller must hold s.mu.
func (s *KCPSink) drainLocked(now time.Time) {
	elapsed := now.Sub(s.lastDrain)
	s.lastDrain = now
	if elapsed <= 0 {
		return
	}

	srtt := time.Duration(s.conn.GetSRTT()) * time.Millisecond
	if srtt <= 0 {
		srtt = 30 * time.Millisecond // no RTT sample yet; assume the fast-profile default interval
	}

	capacity := s.sndWnd * s.mtu
	drained := int(int64(capacity) * int64(elapsed) / int64(srtt))
	s.inFlight -= drained
	if s.inFlight < 0 {
		s.inFlight = 0
	}
}

// AvailableForWrite estimates free send-buffer capacity in bytes: the
// configured window capacity minus the bytes this sink still believes are
// in flight. It clamps at zero so a window that is momentarily
// over-subscribed never reports a negative figure.
func (s *KCPSink) AvailableForWrite() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drainLocked(time.Now())
	free := s.sndWnd*s.mtu - s.inFlight
	if free < 0 {
		free = 0
	}
	return free
}

// Close releases the underlying KCP session.
func (s *KCPSink) Close() error {
	return s.conn.Close()
}
