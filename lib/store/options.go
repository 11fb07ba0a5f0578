package store

import (
	"time"

	"github.com/ValentinKolb/anyKV/lib/serialize"
)

// callOptions is the resolved, validated set of options of a single call
type callOptions struct {
	ser            serialize.Options
	ttl            time.Duration
	raiseOnMissing bool
	ignoreErrors   bool
}

// Option overrides a store setting for a single call.
// Precedence: call option > store config > system default.
type Option func(*callOptions)

// WithMode sets the serialization mode
func WithMode(mode serialize.Mode) Option {
	return func(o *callOptions) {
		o.ser.Mode = mode
	}
}

// WithSerializeFunc sets a function applied to values before they are encoded
func WithSerializeFunc(fn serialize.SerializeFunc) Option {
	return func(o *callOptions) {
		o.ser.Serialize = fn
	}
}

// WithDeserializeFunc sets a function that replaces the decoding of values
func WithDeserializeFunc(fn serialize.DeserializeFunc) Option {
	return func(o *callOptions) {
		o.ser.Deserialize = fn
	}
}

// WithModel sets a typed model, it takes precedence over mode and functions
func WithModel(model serialize.Model) Option {
	return func(o *callOptions) {
		o.ser.Model = model
	}
}

// WithTTL sets the time to live of a written value (drivers without TTL support ignore it)
func WithTTL(ttl time.Duration) Option {
	return func(o *callOptions) {
		o.ttl = ttl
	}
}

// WithRaiseOnMissing sets whether reading a missing key returns ErrNotFound or a nil value
func WithRaiseOnMissing(raise bool) Option {
	return func(o *callOptions) {
		o.raiseOnMissing = raise
	}
}

// IgnoreErrors makes Delete swallow errors of the medium.
// Read only errors are never ignored.
func IgnoreErrors() Option {
	return func(o *callOptions) {
		o.ignoreErrors = true
	}
}

// resolve merges the store config with the call options
func (s *Store) resolve(opts []Option) (callOptions, error) {
	o := callOptions{
		ser: serialize.Options{
			Mode:        s.cfg.Mode,
			Serialize:   s.cfg.Serialize,
			Deserialize: s.cfg.Deserialize,
			Model:       s.cfg.Model,
		},
		ttl:            time.Duration(s.cfg.DefaultTTL) * time.Second,
		raiseOnMissing: s.cfg.RaiseOnMissing,
	}
	for _, opt := range opts {
		opt(&o)
	}

	mode, err := serialize.ParseMode(string(o.ser.Mode))
	if err != nil {
		return o, wrapError(s.cfg.URI, err)
	}
	o.ser.Mode = mode
	if o.ttl < 0 {
		return o, NewError(RetCInvalidValue, s.cfg.URI, "ttl must not be negative")
	}
	return o, nil
}
