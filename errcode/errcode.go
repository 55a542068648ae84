package errcode

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Busy           Code = "busy"
	Unsupported    Code = "unsupported"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"

	// Configuration errors: the request itself is wrong.
	UnknownField     Code = "unknown_field"
	ValueRange       Code = "value_range"
	UnknownDataReg   Code = "unknown_data_reg"
	AmbiguousDataReg Code = "ambiguous_data_reg"

	// Registry and addressing errors.
	UnknownDevice Code = "unknown_device"
	BadAddress    Code = "bad_address"
	InvalidMap    Code = "invalid_map"

	// State errors: the request is fine but the device state cannot serve it.
	FieldUnread Code = "field_unread"

	// Transport errors.
	BusIO   Code = "bus_io"
	Timeout Code = "timeout"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is reports whether target is this wrapper's Code, so
// errors.Is(err, errcode.ValueRange) matches through any wrapping.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
