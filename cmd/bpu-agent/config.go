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
	"encoding/json"
	"os"
)

// Config holds everything the agent binary needs: link/transport settings
// plus the embedded bpu.Config tuning, flattened into one JSON document so
// a single -c file can override both.
type Config struct {
	RemoteAddr  string `json:"remoteaddr"`
	Key         string `json:"key"`
	Crypt       string `json:"crypt"`
	MTU         int    `json:"mtu"`
	SndWnd      int    `json:"sndwnd"`
	RcvWnd      int    `json:"rcvwnd"`
	DataShard   int    `json:"datashard"`
	ParityShard int    `json:"parityshard"`

	TickMS           int `json:"tick_ms"`
	SensorMS         int `json:"sensor_ms"`
	HBMS             int `json:"hb_ms"`
	TelemMS          int `json:"telem_ms"`
	CoalesceWindowMS int `json:"coalesce_window_ms"`
	AgedMS           int `json:"aged_ms"`
	TXBudgetBytes    int `json:"tx_budget_bytes"`
	EnableDegrade    bool `json:"enable_degrade"`
	OutMinFree       int `json:"out_min_free"`
	EvtQN            int `json:"evt_qn"`
	JobQN            int `json:"job_qn"`
	DebugDumpTxHex   bool `json:"debug_dump_tx_hex"`

	Log        string `json:"log"`
	StatsLog   string `json:"statslog"`
	StatsPeriod int   `json:"statsperiod"`
	Quiet      bool   `json:"quiet"`
}

func parseJSONConfig(config *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(config)
}
