package config

// Embedded device profiles. Key: profile name handed to WithDevice.
// Val: raw JSON, one top-level key per service. Populate more profiles at
// build time or by overriding EmbeddedConfigLookup.
//
// Addresses are decimal: 112/113 = 0x70/0x71 (TCA9548A), 39 = 0x27
// (HIH8121), 72 = 0x48 (ADS1115). The ADC cycle 4..7 sweeps the four
// single-ended inputs.

const cfgKraken = `{
  "datalogger": {
    "measure_period_ms": 100,
    "average_period_ms": 1000,
    "path_mask": "data/DataLog_2006-01-02.csv",
    "switches": [
      {"id": "mux0", "type": "tca9548a", "bus": "i2c0", "addr": 113},
      {"id": "mux1", "type": "tca9548a", "bus": "i2c0", "addr": 112}
    ],
    "devices": [
      {"id": "rh0", "type": "hih8121", "bus": "i2c0", "addr": 39,
       "switch": "mux0", "channel": 0, "siblings": [1]},
      {"id": "rh1", "type": "hih8121", "bus": "i2c0", "addr": 39,
       "switch": "mux0", "channel": 1, "siblings": [0]},
      {"id": "adc0", "type": "ads1115", "bus": "i2c0", "addr": 72,
       "switch": "mux1", "channel": 3, "cycle": [4, 5, 6, 7]}
    ]
  },
  "heartbeat": {"period_ms": 2000}
}`

var embeddedConfigs = map[string][]byte{
	"kraken": []byte(cfgKraken),
}
