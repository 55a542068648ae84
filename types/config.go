package types

// Logger configuration supplied on topic {"config", "datalogger"}.

type LogConfig struct {
	MeasurePeriodMs uint32       `json:"measure_period_ms"`
	AveragePeriodMs uint32       `json:"average_period_ms"`
	PathMask        string       `json:"path_mask,omitempty"` // time layout for FileSink
	Switches        []SwitchSpec `json:"switches,omitempty"`
	Devices         []DeviceSpec `json:"devices"`
}

// SwitchSpec declares a channel switch shared by devices on its bus.
type SwitchSpec struct {
	ID   string `json:"id"`
	Type string `json:"type"` // registered device type, e.g. "tca9545a"
	Bus  string `json:"bus"`
	Addr uint16 `json:"addr,omitempty"` // 0 = the type's default address
}

// DeviceSpec declares one measurement source column group.
type DeviceSpec struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"` // registered device type
	Bus      string            `json:"bus"`
	Addr     uint16            `json:"addr,omitempty"`
	Switch   string            `json:"switch,omitempty"`   // SwitchSpec.ID, empty = direct
	Channel  int               `json:"channel,omitempty"`  // my switch channel
	Siblings []int             `json:"siblings,omitempty"` // channels cleared while focused
	Cycle    []uint64          `json:"cycle,omitempty"`    // driver-specific rotation
	Params   map[string]uint64 `json:"params,omitempty"`   // initial field writes
}

// HeartbeatConfig is supplied on topic {"config", "heartbeat"}.
type HeartbeatConfig struct {
	PeriodMs uint32 `json:"period_ms"`
}
