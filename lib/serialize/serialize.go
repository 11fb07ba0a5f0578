package serialize

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// --------------------------------------------------------------------------
// Modes
// --------------------------------------------------------------------------

// Mode selects the encoding strategy of the pipeline
type Mode string

const (
	ModeAuto Mode = "auto"
	ModeRaw  Mode = "raw"
	ModeJSON Mode = "json"
	ModeGob  Mode = "gob"
)

// ParseMode converts a user supplied mode name into a Mode.
// An empty string maps to ModeAuto, "pickle" is accepted as an alias for ModeGob.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "raw":
		return ModeRaw, nil
	case "json":
		return ModeJSON, nil
	case "gob", "pickle":
		return ModeGob, nil
	default:
		return "", fmt.Errorf("%w: unknown serialization mode %q (expected auto, raw, json, gob)", ErrInvalidValue, s)
	}
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrSerialization is returned when a value can not be encoded or decoded
	ErrSerialization = errors.New("serialization error")
	// ErrInvalidValue is returned when a value violates a precondition of the mode
	ErrInvalidValue = errors.New("invalid value")
)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// SerializeFunc is applied to a value before it is encoded by the mode
type SerializeFunc func(value any) (any, error)

// DeserializeFunc replaces the decoding step of the mode
type DeserializeFunc func(data []byte) (any, error)

// Options describe how a single value is converted.
// The zero value is ModeAuto without any hooks.
type Options struct {
	Mode        Mode
	Serialize   SerializeFunc
	Deserialize DeserializeFunc
	Model       Model
}

func (o Options) mode() Mode {
	if o.Mode == "" {
		return ModeAuto
	}
	return o.Mode
}

// Register records a concrete type for gob interface encoding.
// It has to be called for every custom type that is stored with ModeGob
// (or that falls back to gob in ModeAuto).
func Register(value any) {
	gob.Register(value)
}

// --------------------------------------------------------------------------
// Pipeline
// --------------------------------------------------------------------------

// ToBytes encodes a value according to opts
func ToBytes(value any, opts Options) ([]byte, error) {
	if opts.Model != nil {
		data, err := opts.Model.Encode(value)
		if err != nil {
			return nil, fmt.Errorf("%w: model encode: %v", ErrSerialization, err)
		}
		return data, nil
	}

	if opts.Serialize != nil {
		v, err := opts.Serialize(value)
		if err != nil {
			return nil, fmt.Errorf("%w: serialize func: %v", ErrSerialization, err)
		}
		value = v
	}

	switch opts.mode() {
	case ModeRaw:
		data, ok := value.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: raw mode requires []byte, got %T", ErrInvalidValue, value)
		}
		return data, nil
	case ModeJSON:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		return data, nil
	case ModeGob:
		return gobEncode(value)
	case ModeAuto:
		switch v := value.(type) {
		case []byte:
			return v, nil
		case string:
			return []byte(v), nil
		}
		if data, err := json.Marshal(value); err == nil {
			return data, nil
		}
		return gobEncode(value)
	default:
		return nil, fmt.Errorf("%w: unknown serialization mode %q", ErrInvalidValue, opts.Mode)
	}
}

// FromBytes decodes data according to opts
func FromBytes(data []byte, opts Options) (any, error) {
	if opts.Model != nil {
		v, err := opts.Model.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%w: model decode: %v", ErrSerialization, err)
		}
		return v, nil
	}

	if opts.Deserialize != nil {
		v, err := opts.Deserialize(data)
		if err != nil {
			return nil, fmt.Errorf("%w: deserialize func: %v", ErrSerialization, err)
		}
		return v, nil
	}

	switch opts.mode() {
	case ModeRaw:
		return data, nil
	case ModeJSON:
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		return v, nil
	case ModeGob:
		return gobDecode(data)
	case ModeAuto:
		var v any
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		if v, err := gobDecode(data); err == nil {
			return v, nil
		}
		if utf8.Valid(data) {
			return string(data), nil
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: unknown serialization mode %q", ErrInvalidValue, opts.Mode)
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// gobEncode encodes the value through an interface so the concrete type is transmitted
func gobEncode(value any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&value); err != nil {
		return nil, fmt.Errorf("%w: gob: %v", ErrSerialization, err)
	}
	return buf.Bytes(), nil
}

func gobDecode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: gob: empty input", ErrSerialization)
	}
	var value any
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&value); err != nil {
		return nil, fmt.Errorf("%w: gob: %v", ErrSerialization, err)
	}
	return value, nil
}
