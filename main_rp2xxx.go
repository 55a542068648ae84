//go:build rp2040 || rp2350

package main

import (
	"context"
	"time"

	"regmap-go/platform"
	"regmap-go/services/datalogger"
)

func appContext() (context.Context, context.CancelFunc) {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	return context.WithCancel(context.Background())
}

func profileName() string { return "kraken" }

// Records stream off the board over uart0; the receiver end is
// cmd/kraken-recv.
func recordSinks() []platform.Sink {
	return []platform.Sink{platform.NewUARTSink(platform.DefaultRecordWriter(115200), 1024)}
}

func triggerInput() datalogger.TriggerInput {
	return platform.DefaultTriggerLevel()
}

// No filesystem on the board; PathMask in a config is ignored.
func maskSink() func(string) platform.Sink { return nil }
