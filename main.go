// Kraken datalogger entry point. Platform pieces (lifetime, buses, sinks,
// trigger) come from the build-tagged files next to this one; everything
// else is wired over the bus.
package main

import (
	"regmap-go/bus"
	"regmap-go/platform"
	"regmap-go/services/config"
	"regmap-go/services/datalogger"
	"regmap-go/services/heartbeat"

	// device catalogue for the config-driven builder registry
	_ "regmap-go/drivers/ads1x15"
	_ "regmap-go/drivers/aht20"
	_ "regmap-go/drivers/hih8121"
	_ "regmap-go/drivers/lsm9ds1"
	_ "regmap-go/drivers/ltc4015"
)

func main() {
	ctx, stop := appContext()
	defer stop()

	println("release the kraken")

	b := bus.NewBus(16)

	cfg := config.NewService()
	cfg.Start(config.WithDevice(ctx, profileName()), b.NewConnection("config"))

	hb := &heartbeat.Service{}
	_ = hb.Start(ctx, b.NewConnection("heartbeat"))

	sinks := recordSinks()
	lg := datalogger.New(b.NewConnection("datalogger"), datalogger.Options{
		Buses:    platform.DefaultI2CFactory(),
		Sinks:    sinks,
		Trigger:  triggerInput(),
		MaskSink: maskSink(),
	})
	go lg.Run(ctx)

	<-ctx.Done()
	for _, s := range sinks {
		_ = s.Close()
	}
	println("Info: kraken stopped")
}
