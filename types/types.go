package types

import "regmap-go/x/conv"

// ---- Common service state (retained) ----

type ServiceState struct {
	Level  string `json:"level"`  // e.g. "idle", "running", "degraded", "stopped"
	Status string `json:"status"` // freeform short code
	TS     int64  `json:"ts_ms"`
}

// ---- Logger records ----

// Record is one averaged logger row. Values are micro-units per column.
type Record struct {
	Time      string  `json:"time"` // HH:MM:SS wall clock
	Values    []int32 `json:"values"`
	Triggered bool    `json:"triggered"`
}

// CSV renders "HH:MM:SS,v1,...,vn,t" with micro-unit values as fixed-point
// decimals and the trigger state as a trailing 0/1 column.
func (r Record) CSV() string {
	var num [24]byte
	b := make([]byte, 0, len(r.Time)+2+12*len(r.Values))
	b = append(b, r.Time...)
	for _, v := range r.Values {
		b = append(b, ',')
		b = append(b, conv.Micro(num[:], int64(v))...)
	}
	b = append(b, ',')
	if r.Triggered {
		b = append(b, '1')
	} else {
		b = append(b, '0')
	}
	return string(b)
}

// BurstRow is one trace row: milliseconds since burst start, then one raw
// sample per column.
type BurstRow struct {
	TMs    int64   `json:"t_ms"`
	Values []int32 `json:"values"`
}

// LogStats is the datalogger's retained counter snapshot.
type LogStats struct {
	Samples uint32 `json:"samples"`
	Records uint32 `json:"records"`
}

// Heartbeat is the periodic liveness payload.
type Heartbeat struct {
	UptimeMs int64  `json:"uptime_ms"`
	Samples  uint32 `json:"samples"`
	Records  uint32 `json:"records"`
}

// ---- Generic replies ----

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
