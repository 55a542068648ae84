// Package datalogger samples a set of register-mapped devices on a fixed
// beat, averages the readings per column, and fans the resulting records
// out to sinks and the bus.
//
// The service is driven over the bus. A types.LogConfig on
// {"config", "datalogger"} (re)builds the source set and starts sampling;
// each averaging window closes with a types.Record published on
// {"log", "record"}, retained on {"log", "last"}, and written as one CSV
// line to every sink. A BurstReq on {"log", "burst"} answers with raw
// trace rows.
package datalogger

import (
	"context"
	"sync"
	"time"

	"regmap-go/bus"
	"regmap-go/drivers/tca95xx"
	"regmap-go/errcode"
	"regmap-go/platform"
	"regmap-go/regmap"
	"regmap-go/types"
	"regmap-go/x/mathx"
	"regmap-go/x/timex"
)

var (
	topicConfig = bus.Topic{"config", "datalogger"}
	topicState  = bus.Topic{"log", "state"}
	topicStats  = bus.Topic{"log", "stats"}
	topicRecord = bus.Topic{"log", "record"}
	topicLast   = bus.Topic{"log", "last"}
	topicBurst  = bus.Topic{"log", "burst"}
)

const (
	defaultMeasureEvery = 100 * time.Millisecond
	defaultAverageEvery = time.Second

	// maxBurstRows caps an unbounded burst request.
	maxBurstRows = 4096
)

// TriggerInput reports an external line level. It is polled once per
// averaging window, when the record is assembled.
type TriggerInput func() bool

// Options carries the platform pieces the service cannot conjure from
// configuration: the bus table, the record sinks, and the trigger line.
type Options struct {
	Buses   platform.I2CFactory
	Sinks   []platform.Sink
	Trigger TriggerInput

	// MaskSink builds the sink for a config-supplied PathMask. Platforms
	// without a filesystem leave it nil and PathMask is ignored.
	MaskSink func(mask string) platform.Sink
}

// BurstReq asks for a raw trace: up to Count rows, within LimitMs, with
// EveryMs of fixed spacing between sweeps (0 = back to back). Zero Count
// means "as many as fit".
type BurstReq struct {
	Count   int    `json:"count"`
	EveryMs uint32 `json:"every_ms"`
	LimitMs uint32 `json:"limit_ms"`
}

// boundSource is one configured device facade and the columns it owns.
type boundSource struct {
	id  string
	src regmap.Source
	n   int
}

// Service is the datalogger. Create with New, then Run on its own
// goroutine; everything else happens over the bus.
type Service struct {
	conn *bus.Connection
	opts Options

	mu      sync.Mutex // guards sources/labels against Labels()
	sources []boundSource
	labels  []string

	sums   []int64
	counts []int64

	// cfgSink is owned by the service: opened from LogConfig.PathMask,
	// replaced on reconfigure, closed on shutdown.
	cfgSink platform.Sink

	measureEvery time.Duration
	averageEvery time.Duration
	nextMeasure  time.Time
	nextAverage  time.Time
	running      bool

	samples uint32
	records uint32

	level          string
	sampleErrInWin bool
}

// New wires a service to its connection. Run starts it.
func New(conn *bus.Connection, opts Options) *Service {
	return &Service{conn: conn, opts: opts, level: "idle"}
}

// Labels returns the current column names, "<device id>.<label>" per
// column, in record order.
func (s *Service) Labels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.labels))
	copy(out, s.labels)
	return out
}

// Run is the service loop. It blocks until ctx is cancelled.
//
// One timer carries both deadlines. Wake-ups land on whichever of
// nextMeasure/nextAverage comes first; after handling, missed slots are
// skipped rather than replayed, so a stall degrades resolution instead of
// bunching samples.
func (s *Service) Run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(topicConfig)
	defer cfgSub.Unsubscribe()
	burstSub := s.conn.Subscribe(topicBurst)
	defer burstSub.Unsubscribe()

	s.publishState("idle", "awaiting_config", nil)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		if s.running {
			next := s.nextMeasure
			if s.nextAverage.Before(next) {
				next = s.nextAverage
			}
			timex.ResetTimer(timer, time.Until(next))
		} else {
			timex.ResetTimer(timer, time.Hour)
		}

		select {
		case <-ctx.Done():
			if s.cfgSink != nil {
				s.cfgSink.Close()
			}
			s.publishState("stopped", "context_done", nil)
			return

		case msg := <-cfgSub.Channel():
			cfg, ok := msg.Payload.(types.LogConfig)
			if !ok {
				s.publishState("error", "bad_config_payload", errcode.InvalidPayload)
				continue
			}
			if err := s.applyConfig(cfg); err != nil {
				s.publishState("error", "config_rejected", err)
				continue
			}
			now := time.Now()
			s.nextMeasure = now.Add(s.measureEvery)
			s.nextAverage = now.Add(s.averageEvery)
			s.running = true
			s.publishState("running", "configured", nil)

		case msg := <-burstSub.Channel():
			s.handleBurst(ctx, msg)

		case <-timer.C:
			if !s.running {
				continue
			}
			now := time.Now()
			if !now.Before(s.nextMeasure) {
				if err := s.sampleOnce(); err != nil && s.level == "running" {
					s.publishState("degraded", "sample_failed", err)
				}
				s.advanceMeasure(now)
			}
			if !now.Before(s.nextAverage) {
				err := s.emitRecord(now)
				switch {
				case err != nil && s.level != "degraded":
					s.publishState("degraded", "sink_write_failed", err)
				case err == nil && !s.sampleErrInWin && s.level == "degraded":
					s.publishState("running", "recovered", nil)
				}
				s.sampleErrInWin = false
				s.advanceAverage(now)
			}
		}
	}
}

func (s *Service) advanceMeasure(now time.Time) {
	s.nextMeasure = s.nextMeasure.Add(s.measureEvery)
	for !s.nextMeasure.After(now) {
		s.nextMeasure = s.nextMeasure.Add(s.measureEvery)
	}
}

func (s *Service) advanceAverage(now time.Time) {
	s.nextAverage = s.nextAverage.Add(s.averageEvery)
	for !s.nextAverage.After(now) {
		s.nextAverage = s.nextAverage.Add(s.averageEvery)
	}
}

// applyConfig rebuilds switches and sources from cfg. Columns, sums and
// labels are replaced wholesale; a rejected config leaves the previous set
// untouched.
func (s *Service) applyConfig(cfg types.LogConfig) error {
	measure := time.Duration(cfg.MeasurePeriodMs) * time.Millisecond
	if measure <= 0 {
		measure = defaultMeasureEvery
	}
	average := time.Duration(cfg.AveragePeriodMs) * time.Millisecond
	if average <= 0 {
		average = defaultAverageEvery
	}

	switches := make(map[string]*tca95xx.Device, len(cfg.Switches))
	for _, sw := range cfg.Switches {
		busH, ok := s.opts.Buses.ByID(sw.Bus)
		if !ok {
			return &errcode.E{C: errcode.InvalidParams, Op: "datalogger.config", Msg: "unknown bus " + sw.Bus}
		}
		var dev *tca95xx.Device
		var err error
		switch sw.Type {
		case tca95xx.Type9545:
			dev, err = tca95xx.New9545(busH, sw.Addr)
		case tca95xx.Type9548:
			dev, err = tca95xx.New9548(busH, sw.Addr)
		default:
			return &errcode.E{C: errcode.UnknownDevice, Op: "datalogger.config", Msg: "switch type " + sw.Type}
		}
		if err != nil {
			return err
		}
		switches[sw.ID] = dev
	}

	var (
		srcs   []boundSource
		labels []string
	)
	for _, d := range cfg.Devices {
		busH, ok := s.opts.Buses.ByID(d.Bus)
		if !ok {
			return &errcode.E{C: errcode.InvalidParams, Op: "datalogger.config", Msg: "unknown bus " + d.Bus}
		}
		var grp *regmap.FocusGroup
		if d.Switch != "" {
			sw, ok := switches[d.Switch]
			if !ok {
				return &errcode.E{C: errcode.InvalidParams, Op: "datalogger.config", Msg: "unknown switch " + d.Switch}
			}
			grp = &regmap.FocusGroup{Mine: d.Channel, Siblings: d.Siblings, Switch: sw}
		}
		build, ok := regmap.LookupBuilder(d.Type)
		if !ok {
			return &errcode.E{C: errcode.UnknownDevice, Op: "datalogger.config", Msg: "device type " + d.Type}
		}
		src, err := build(regmap.BuildInput{Bus: busH, Addr: d.Addr, Group: grp, Cycle: d.Cycle, Params: d.Params})
		if err != nil {
			return err
		}
		ls := src.Labels()
		srcs = append(srcs, boundSource{id: d.ID, src: src, n: len(ls)})
		for _, l := range ls {
			labels = append(labels, d.ID+"."+l)
		}
	}

	s.mu.Lock()
	s.sources, s.labels = srcs, labels
	s.mu.Unlock()
	s.sums = make([]int64, len(labels))
	s.counts = make([]int64, len(labels))
	s.measureEvery, s.averageEvery = measure, average

	if s.opts.MaskSink != nil {
		if s.cfgSink != nil {
			s.cfgSink.Close()
			s.cfgSink = nil
		}
		if cfg.PathMask != "" {
			s.cfgSink = s.opts.MaskSink(cfg.PathMask)
		}
	}
	return nil
}

// sampleOnce sweeps every source and accumulates per-column sums. A failing
// source skips its columns for this tick; the others still count. Returns
// the first error.
func (s *Service) sampleOnce() error {
	var firstErr error
	i := 0
	for _, b := range s.sources {
		vals, err := b.src.Sample()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			i += b.n
			continue
		}
		for _, v := range vals {
			s.sums[i] += int64(v)
			s.counts[i]++
			i++
		}
	}
	s.samples++
	if firstErr != nil {
		s.sampleErrInWin = true
	}
	return firstErr
}

// emitRecord closes the averaging window: per-column integer means, trigger
// poll, CSV to every sink, record to the bus. Sink failures are reported
// but never stop the record from reaching the remaining sinks or the bus.
func (s *Service) emitRecord(now time.Time) error {
	vals := make([]int32, len(s.sums))
	for i := range s.sums {
		if s.counts[i] > 0 {
			vals[i] = int32(mathx.RoundDivI(s.sums[i], s.counts[i]))
		}
		s.sums[i], s.counts[i] = 0, 0
	}

	trig := false
	if s.opts.Trigger != nil {
		trig = s.opts.Trigger()
	}
	rec := types.Record{Time: now.Format("15:04:05"), Values: vals, Triggered: trig}

	line := rec.CSV()
	var firstErr error
	for _, sk := range s.opts.Sinks {
		if err := sk.WriteLine(line); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.cfgSink != nil {
		if err := s.cfgSink.WriteLine(line); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.conn.Publish(s.conn.NewMessage(topicRecord, rec, false))
	s.conn.Publish(s.conn.NewMessage(topicLast, rec, true))
	s.records++
	s.conn.Publish(s.conn.NewMessage(topicStats, types.LogStats{Samples: s.samples, Records: s.records}, true))
	return firstErr
}

func (s *Service) handleBurst(ctx context.Context, msg *bus.Message) {
	req, ok := msg.Payload.(BurstReq)
	if !ok {
		s.conn.Reply(msg, types.ErrorReply{Error: string(errcode.InvalidPayload)}, false)
		return
	}
	if !s.running {
		s.conn.Reply(msg, types.ErrorReply{Error: "not_running"}, false)
		return
	}
	rows := s.burst(ctx, req)
	s.conn.Reply(msg, rows, false)

	// The burst ran on the sampling goroutine; skip the slots it ate.
	now := time.Now()
	s.advanceMeasure(now)
	s.advanceAverage(now)
}

// burst sweeps the sources back to back (or on a fixed beat when EveryMs
// is set) and returns raw rows stamped with milliseconds since start.
func (s *Service) burst(ctx context.Context, req BurstReq) []types.BurstRow {
	n := req.Count
	if n <= 0 || n > maxBurstRows {
		n = maxBurstRows
	}
	limit := time.Duration(req.LimitMs) * time.Millisecond
	if limit <= 0 {
		limit = time.Second
	}
	every := time.Duration(req.EveryMs) * time.Millisecond

	start := time.Now()
	deadline := start.Add(limit)
	capHint := n
	if capHint > 256 {
		capHint = 256
	}
	rows := make([]types.BurstRow, 0, capHint)
	next := start
	for len(rows) < n {
		now := time.Now()
		if now.After(deadline) {
			break
		}
		rows = append(rows, types.BurstRow{TMs: now.Sub(start).Milliseconds(), Values: s.sampleRow()})
		if every > 0 {
			next = next.Add(every)
			if next.After(deadline) {
				break
			}
			if !timex.SleepUntil(ctx.Done(), next) {
				break
			}
		}
	}
	return rows
}

// sampleRow is one raw sweep. Failed sources leave zeroes in their columns.
func (s *Service) sampleRow() []int32 {
	row := make([]int32, len(s.labels))
	i := 0
	for _, b := range s.sources {
		vals, err := b.src.Sample()
		if err != nil {
			i += b.n
			continue
		}
		for _, v := range vals {
			row[i] = v
			i++
		}
	}
	s.samples++
	return row
}

func (s *Service) publishState(level, status string, err error) {
	s.level = level
	if err != nil {
		println("Warn: log", level, status, err.Error())
	} else {
		println("Info: log", level, status)
	}
	st := types.ServiceState{Level: level, Status: status, TS: timex.NowMs()}
	s.conn.Publish(s.conn.NewMessage(topicState, st, true))
}
