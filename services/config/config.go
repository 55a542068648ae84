// Package config publishes per-service configuration as retained bus
// messages. A device profile is embedded JSON (defaults.go) selected by
// the profile name carried in the context; each top-level key becomes one
// retained message on {"config", <key>}, with known keys decoded into
// their typed structs so subscribers never touch JSON.
package config

import (
	"context"
	"encoding/json"
	"errors"

	"regmap-go/bus"
	"regmap-go/types"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

type ctxKey int

const deviceKey ctxKey = 0

// WithDevice returns a context carrying the device profile name resolved
// at start.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, deviceKey, device)
}

// EmbeddedConfigLookup resolves a profile name to raw JSON. Generated
// builds and tests may override it.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

type Service struct {
	Name string
}

func NewService() *Service {
	return &Service{Name: serviceName}
}

// Start publishes the profile and then answers republish requests on
// {"config", "republish"} until ctx is cancelled.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go s.run(ctx, conn)
}

func (s *Service) run(ctx context.Context, conn *bus.Connection) {
	// Subscribe first: once the initial publish is visible, republish
	// requests cannot be lost.
	sub := conn.Subscribe(bus.Topic{configPrefix, "republish"})
	defer sub.Unsubscribe()
	if err := s.publishConfig(ctx, conn); err != nil {
		println("Warn: config", err.Error())
	}
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sub.Channel():
			err := s.publishConfig(ctx, conn)
			if err != nil {
				println("Warn: config republish", err.Error())
			}
			if msg.ReplyTo == nil {
				continue
			}
			if err != nil {
				conn.Reply(msg, types.ErrorReply{Error: err.Error()}, false)
			} else {
				conn.Reply(msg, types.OKReply{OK: true}, false)
			}
		}
	}
}

// publishConfig parses the device profile and publishes one retained
// message per key. Unknown keys pass through as decoded JSON for forward
// compatibility.
func (s *Service) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(deviceKey).(string)
	if device == "" {
		return errors.New("config: missing device profile in context")
	}
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return errors.New("config: no embedded profile for device " + device)
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(raw, &sections); err != nil {
		return errors.New("config: profile " + device + ": " + err.Error())
	}

	for k, sec := range sections {
		payload, err := typed(k, sec)
		if err != nil {
			return err
		}
		conn.Publish(conn.NewMessage(bus.Topic{configPrefix, k}, payload, true))
	}
	return nil
}

// typed decodes known service keys into their config structs; everything
// else is passed along as generic decoded JSON.
func typed(key string, raw json.RawMessage) (any, error) {
	switch key {
	case "datalogger":
		var cfg types.LogConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, errors.New("config: datalogger: " + err.Error())
		}
		return cfg, nil
	case "heartbeat":
		var cfg types.HeartbeatConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, errors.New("config: heartbeat: " + err.Error())
		}
		return cfg, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errors.New("config: " + key + ": " + err.Error())
	}
	return v, nil
}
