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

package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// CompressedLogSink is a bpu.LogSink that snappy-compresses everything
// written to it into a single file at a fixed path (no rotation), the same wrapping comp.go
// applies to a net.Conn, applied here to a plain *os.File instead.
type CompressedLogSink struct {
	mu sync.Mutex
	f  *os.File
	w  *snappy.Writer
}

// NewCompressedLogSink opens (creating if necessary) path for append and
// wraps it in a snappy writer. Every Write call is flushed immediately so a
// crash never loses a buffered-but-unflushed diagnostic line.
func NewCompressedLogSink(path string) (*CompressedLogSink, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, errors.Wrap(err, "sink: open log file")
	}
	return &CompressedLogSink{f: f, w: snappy.NewBufferedWriter(f)}, nil
}

func (c *CompressedLogSink) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.w.Write(p); err != nil {
		return 0, errors.WithStack(err)
	}
	if err := c.w.Flush(); err != nil {
		return 0, errors.WithStack(err)
	}
	return len(p), nil
}

// Close flushes and closes the underlying file.
func (c *CompressedLogSink) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.w.Close(); err != nil {
		c.f.Close()
		return errors.WithStack(err)
	}
	return c.f.Close()
}

// SnapshotSource is anything able to produce a CSV-able stats snapshot;
// bpu.Snapshot, as returned by bpu.Engine's Snapshot(), satisfies it.
type SnapshotSource interface {
	Header() []string
	ToSlice() []string
}

// StatsCSVLogger periodically appends a snapshot row to a CSV file, one row
// per tick interval, writing a header row only when the file is empty. It
// mirrors SnmpLogger's filepath.Split + Format(logfile) rotation pattern,
// except the timestamp used to expand the filename is the now passed into
// Tick rather than a fresh time.Now(), so callers can feed it directly from
// the engine's own tick cadence and still get a deterministic file name.
type StatsCSVLogger struct {
	path     string
	interval time.Duration
	take     func() SnapshotSource

	lastWrite time.Time
}

// NewStatsCSVLogger returns a logger that, on each Tick call, appends a
// row to path at most once per interval. take is called lazily only when a
// row is actually due, so callers can pass a cheap closure over the
// engine's live Snapshot().
func NewStatsCSVLogger(path string, interval time.Duration, take func() SnapshotSource) *StatsCSVLogger {
	return &StatsCSVLogger{path: path, interval: interval, take: take}
}

// Tick appends a row if the configured interval has elapsed since the last
// write. It is safe to call on every engine tick; most calls are no-ops.
func (l *StatsCSVLogger) Tick(now time.Time) error {
	if l.path == "" {
		return nil
	}
	if !l.lastWrite.IsZero() && now.Sub(l.lastWrite) < l.interval {
		return nil
	}
	l.lastWrite = now

	logdir, logfile := filepath.Split(l.path)
	f, err := os.OpenFile(logdir+now.Format(logfile), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return errors.Wrap(err, "sink: open stats csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	snap := l.take()
	if stat, err := f.Stat(); err == nil && stat.Size() == 0 {
		if err := w.Write(append([]string{"unix"}, snap.Header()...)); err != nil {
			return errors.Wrap(err, "sink: write csv header")
		}
	}
	if err := w.Write(append([]string{fmt.Sprint(now.Unix())}, snap.ToSlice()...)); err != nil {
		return errors.Wrap(err, "sink: write csv row")
	}
	w.Flush()
	return w.Error()
}
