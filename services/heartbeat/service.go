package heartbeat

import (
	"context"
	"time"

	"regmap-go/bus"
	"regmap-go/types"
)

var (
	topicConfigHeartbeat = bus.Topic{"config", "heartbeat"}
	topicStats           = bus.Topic{"log", "stats"}
	topicBeat            = bus.Topic{"heartbeat"}
)

// Service publishes a periodic liveness beat: uptime plus the datalogger's
// sample/record counters, picked up from its retained stats topic.
type Service struct{}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)
	statsSub := conn.Subscribe(topicStats)
	defer conn.Unsubscribe(statsSub)

	start := time.Now()
	var stats types.LogStats

	tick := time.NewTicker(1 * time.Second)
	defer tick.Stop()

	// loop until context is cancelled, respond to tick, stats and config
	for {
		select {
		case <-ctx.Done():
			println("Info: heartbeat service stopping")
			return
		case t := <-tick.C:
			beat := types.Heartbeat{
				UptimeMs: time.Since(start).Milliseconds(),
				Samples:  stats.Samples,
				Records:  stats.Records,
			}
			conn.Publish(conn.NewMessage(topicBeat, beat, true))
			println("Info:", t.Format("15:04:05"), "heartbeat samples", stats.Samples, "records", stats.Records)
		case msg := <-statsSub.Channel():
			if st, ok := msg.Payload.(types.LogStats); ok {
				stats = st
			}
		case msg := <-cfgSub.Channel():
			cfg, ok := msg.Payload.(types.HeartbeatConfig)
			if !ok || cfg.PeriodMs == 0 {
				continue
			}
			tick.Reset(time.Duration(cfg.PeriodMs) * time.Millisecond)
			println("Info: heartbeat period set to", cfg.PeriodMs, "ms")
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
