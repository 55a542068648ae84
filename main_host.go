//go:build !rp2040 && !rp2350

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"regmap-go/platform"
	"regmap-go/services/datalogger"
)

var (
	flagProfile = flag.String("profile", "kraken", "embedded device profile")
	flagMask    = flag.String("mask", "data/DataLog_2006-01-02.csv", "record file path, a Go time layout")
	flagStdout  = flag.Bool("stdout", true, "echo records to stdout")
)

func appContext() (context.Context, context.CancelFunc) {
	flag.Parse()
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func profileName() string { return *flagProfile }

func recordSinks() []platform.Sink {
	sinks := []platform.Sink{platform.NewFileSink(*flagMask)}
	if *flagStdout {
		sinks = append(sinks, platform.NewWriterSink(os.Stdout))
	}
	return sinks
}

// No trigger line on hosts; records carry triggered=0.
func triggerInput() datalogger.TriggerInput { return nil }

// Configs may name their own record file; it rides alongside the flag
// driven sinks.
func maskSink() func(string) platform.Sink {
	return func(mask string) platform.Sink { return platform.NewFileSink(mask) }
}
