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

package main

import (
	"crypto/sha1"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/Ferki-git-creator/bpu-v2-9b-r1/bpu"
	"github.com/Ferki-git-creator/bpu-v2-9b-r1/sink"
)

// SALT is used for pbkdf2 key expansion, kept identical across the fleet so
// every agent derives the same session key from the same pre-shared secret.
const SALT = "bpu-agent"

// VERSION is injected by buildflags.
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "bpu-agent"
	myApp.Usage = "embedded batch-processing and egress-shaping agent"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "remoteaddr, r",
			Value: "collector:29900",
			Usage: "concentrator address, eg: \"IP:29900\"",
		},
		cli.StringFlag{
			Name:   "key",
			Value:  "it's a secret",
			Usage:  "pre-shared secret between agent and concentrator",
			EnvVar: "BPU_KEY",
		},
		cli.StringFlag{
			Name:  "crypt",
			Value: "aes",
			Usage: "aes, aes-128, aes-192, salsa20, xor, none, null",
		},
		cli.IntFlag{Name: "mtu", Value: 512, Usage: "maximum transmission unit for UDP packets"},
		cli.IntFlag{Name: "sndwnd", Value: 32, Usage: "send window size (num of packets)"},
		cli.IntFlag{Name: "rcvwnd", Value: 32, Usage: "receive window size (num of packets)"},
		cli.IntFlag{Name: "datashard, ds", Value: 0, Usage: "reed-solomon erasure coding - datashard"},
		cli.IntFlag{Name: "parityshard, ps", Value: 0, Usage: "reed-solomon erasure coding - parityshard"},

		cli.IntFlag{Name: "tick-ms", Value: 20, Usage: "tick period in milliseconds"},
		cli.IntFlag{Name: "sensor-ms", Value: 80, Usage: "SENSOR source period in milliseconds"},
		cli.IntFlag{Name: "hb-ms", Value: 200, Usage: "HB source period in milliseconds"},
		cli.IntFlag{Name: "telem-ms", Value: 1000, Usage: "TELEM source period in milliseconds"},
		cli.IntFlag{Name: "coalesce-window-ms", Value: 20, Usage: "event merge window in milliseconds"},
		cli.IntFlag{Name: "aged-ms", Value: 200, Usage: "age threshold for the aged_hit_* counters"},
		cli.IntFlag{Name: "tx-budget-bytes", Value: 200, Usage: "per-tick outbound byte budget"},
		cli.BoolFlag{Name: "enable-degrade", Usage: "drop TELEM instead of requeuing it when its frame does not fit the per-tick byte budget"},
		cli.IntFlag{Name: "out-min-free", Value: 96, Usage: "minimum sink free space required before a frame is sent"},
		cli.IntFlag{Name: "evt-qn", Value: 8, Usage: "event queue capacity"},
		cli.IntFlag{Name: "job-qn", Value: 4, Usage: "job queue capacity"},
		cli.BoolFlag{Name: "hexdump", Usage: "log a hex dump of every transmitted frame (DEBUG_DUMP_TX_HEX)"},

		cli.StringFlag{Name: "log", Value: "", Usage: "specify a log file to output, default goes to stderr"},
		cli.StringFlag{Name: "statslog", Value: "", Usage: "append periodic stats snapshots to this CSV file"},
		cli.IntFlag{Name: "statsperiod", Value: 5, Usage: "stats snapshot period, in seconds"},
		cli.BoolFlag{Name: "quiet", Usage: "suppress per-tick diagnostic lines"},
		cli.StringFlag{Name: "c", Value: "", Usage: "config from json file, which will override the command from shell"},
	}
	myApp.Action = run
	myApp.Run(os.Args)
}

func run(c *cli.Context) error {
	config := Config{
		RemoteAddr:       c.String("remoteaddr"),
		Key:              c.String("key"),
		Crypt:            c.String("crypt"),
		MTU:              c.Int("mtu"),
		SndWnd:           c.Int("sndwnd"),
		RcvWnd:           c.Int("rcvwnd"),
		DataShard:        c.Int("datashard"),
		ParityShard:      c.Int("parityshard"),
		TickMS:           c.Int("tick-ms"),
		SensorMS:         c.Int("sensor-ms"),
		HBMS:             c.Int("hb-ms"),
		TelemMS:          c.Int("telem-ms"),
		CoalesceWindowMS: c.Int("coalesce-window-ms"),
		AgedMS:           c.Int("aged-ms"),
		TXBudgetBytes:    c.Int("tx-budget-bytes"),
		EnableDegrade:    c.Bool("enable-degrade"),
		OutMinFree:       c.Int("out-min-free"),
		EvtQN:            c.Int("evt-qn"),
		JobQN:            c.Int("job-qn"),
		DebugDumpTxHex:   c.Bool("hexdump"),
		Log:              c.String("log"),
		StatsLog:         c.String("statslog"),
		StatsPeriod:      c.Int("statsperiod"),
		Quiet:            c.Bool("quiet"),
	}

	if c.String("c") != "" {
		if err := parseJSONConfig(&config, c.String("c")); err != nil {
			log.Fatalf("%+v", err)
		}
	}

	if config.Log != "" {
		f, err := os.OpenFile(config.Log, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("%+v", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	log.Println("version:", VERSION)
	log.Println("remote address:", config.RemoteAddr)
	log.Println("encryption:", config.Crypt)
	log.Println("mtu:", config.MTU, "sndwnd:", config.SndWnd, "rcvwnd:", config.RcvWnd)
	log.Println("datashard:", config.DataShard, "parityshard:", config.ParityShard)
	log.Println("tick_ms:", config.TickMS, "sensor_ms:", config.SensorMS, "hb_ms:", config.HBMS, "telem_ms:", config.TelemMS)
	log.Println("tx_budget_bytes:", config.TXBudgetBytes, "enable_degrade:", config.EnableDegrade)
	log.Println("statslog:", config.StatsLog, "statsperiod:", config.StatsPeriod)

	if config.TXBudgetBytes < 32 {
		color.Red("WARNING: tx_budget_bytes is very small (%d); every frame will likely be skipped or degraded.", config.TXBudgetBytes)
	}
	if config.OutMinFree > 0 && config.OutMinFree*4 > config.SndWnd*config.MTU {
		color.Red("WARNING: out_min_free (%d) is large relative to the configured send window; expect frequent uart_skip_txbuf.", config.OutMinFree)
	}

	log.Println("initiating key derivation")
	pass := pbkdf2.Key([]byte(config.Key), []byte(SALT), 4096, 32, sha1.New)
	log.Println("key derivation done")

	kcpOpts := sink.DefaultKCPOptions(config.RemoteAddr, pass)
	kcpOpts.Crypt = config.Crypt
	kcpOpts.MTU = config.MTU
	kcpOpts.SndWnd = config.SndWnd
	kcpOpts.RcvWnd = config.RcvWnd
	kcpOpts.DataShard = config.DataShard
	kcpOpts.ParityShard = config.ParityShard

	byteSink, err := sink.DialKCPSink(kcpOpts)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	defer byteSink.Close()

	var logSink bpu.LogSink
	if config.Quiet {
		logSink = nil
	} else {
		logSink = stderrLogSink{}
	}

	cfg := bpu.Config{
		TickMS:           config.TickMS,
		SensorMS:         config.SensorMS,
		HBMS:             config.HBMS,
		TelemMS:          config.TelemMS,
		CoalesceWindowMS: config.CoalesceWindowMS,
		AgedMS:           config.AgedMS,
		TXBudgetBytes:    config.TXBudgetBytes,
		EnableDegrade:    config.EnableDegrade,
		OutMinFree:       config.OutMinFree,
		EvtQN:            config.EvtQN,
		JobQN:            config.JobQN,
		DebugDumpTxHex:   config.DebugDumpTxHex,
	}

	engine := bpu.NewEngine(cfg, byteSink, logSink)
	installSigUSR1Handler(engine)

	var csvLogger *sink.StatsCSVLogger
	if config.StatsLog != "" {
		csvLogger = sink.NewStatsCSVLogger(config.StatsLog, time.Duration(config.StatsPeriod)*time.Second,
			func() sink.SnapshotSource { snap := engine.Snapshot(); return snap })
	}

	driver := bpu.NewDriver(bpu.NewSystemClock(), config.TickMS)
	stop := make(chan struct{})

	driver.Run(func(nowMs uint32) {
		engine.Tick(nowMs)
		if csvLogger != nil {
			if err := csvLogger.Tick(time.Now()); err != nil {
				log.Println("statslog:", err)
			}
		}
	}, stop)

	return nil
}

// stderrLogSink adapts the standard logger as a bpu.LogSink so engine
// snapshot lines and hex dumps flow through the same log.SetOutput target
// as every other diagnostic line.
type stderrLogSink struct{}

func (stderrLogSink) Write(p []byte) (int, error) {
	log.Print(string(p))
	return len(p), nil
}
