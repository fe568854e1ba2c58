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

// Package bpu implements an embedded batch-processing and egress-shaping
// core: a two-stage staging pipeline (events -> jobs) plus a tick-driven
// flush loop that keeps an outbound byte-oriented link stable under a
// per-tick byte budget and downstream backpressure.
package bpu

// EventKind enumerates the inbound event types a producer may emit.
type EventKind byte

const (
	KindCMD EventKind = iota + 1
	KindSensor
	KindHB
	KindTelem
)

func (k EventKind) String() string {
	switch k {
	case KindCMD:
		return "CMD"
	case KindSensor:
		return "SENSOR"
	case KindHB:
		return "HB"
	case KindTelem:
		return "TELEM"
	default:
		return "UNKNOWN"
	}
}

// JobKind mirrors EventKind 1:1 and carries the wire type identifier used
// in the transmitted frame header.
type JobKind byte

const (
	JobCMD    JobKind = JobKind(KindCMD)
	JobSensor JobKind = JobKind(KindSensor)
	JobHB     JobKind = JobKind(KindHB)
	JobTelem  JobKind = JobKind(KindTelem)
)

// eventTag is the first payload byte of a lowered job, identifying which
// event kind produced it irrespective of the job's wire type.
const (
	tagSensor byte = 0x01
	tagHB     byte = 0x02
	tagTelem  byte = 0x03
	tagCMD    byte = 0x04
)

func tagFor(k EventKind) byte {
	switch k {
	case KindSensor:
		return tagSensor
	case KindHB:
		return tagHB
	case KindTelem:
		return tagTelem
	case KindCMD:
		return tagCMD
	default:
		return 0
	}
}

func jobKindFor(k EventKind) JobKind {
	return JobKind(k)
}

// maxEventPayload is the largest payload an Event may carry.
const maxEventPayload = 16

// maxJobPayload is the largest payload a Job may carry.
const maxJobPayload = 32

// Event is a producer-originated record entering the event queue.
type Event struct {
	Type    EventKind
	Flags   byte
	Len     byte // 0..maxEventPayload
	TMs     uint32
	Payload [maxEventPayload]byte
}

// Job is a lowered, ready-to-transmit work item.
type Job struct {
	Type    JobKind
	Flags   byte
	Len     byte // 0..maxJobPayload
	TMs     uint32
	Payload [maxJobPayload]byte
}

// coalescePolicy describes how the event queue treats repeated arrivals of
// the same kind.
type coalescePolicy int

const (
	policyNone coalescePolicy = iota
	policyMergeLastWindow
)

func policyFor(k EventKind) coalescePolicy {
	if k == KindCMD {
		return policyNone
	}
	return policyMergeLastWindow
}

// timeDiff computes a signed 32-bit difference over wraparound-capable
// unsigned 32-bit timestamps, matching the idiom used throughout kcp-go and
// smux (`_itimediff`) for comparing ever-increasing tick counters.
func timeDiff(later, earlier uint32) int32 {
	return int32(later - earlier)
}
