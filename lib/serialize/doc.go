// Package serialize converts arbitrary Go values to bytes and back. It is the
// single place where the store decides how a value is represented on a backend,
// so every driver only ever sees []byte.
//
// The package focuses on:
//   - A small set of modes with well-defined read and write rules
//   - Explicit per-call encode/decode functions
//   - Typed models that decode straight into a concrete Go type
//
// Modes:
//
//   - ModeRaw: values must already be []byte and are returned unchanged.
//
//   - ModeJSON: values are always encoded with encoding/json and decoded into
//     generic Go values (map[string]any, []any, float64, string, bool, nil).
//
//   - ModeGob: values are encoded with encoding/gob through an interface value,
//     so the concrete type survives a round trip. Custom types have to be
//     registered with Register before they can be decoded.
//
//   - ModeAuto (default): on write, []byte passes through, strings are written
//     as UTF-8, JSON-encodable values are written as JSON and everything else
//     falls back to gob. On read the decoders are tried in the order JSON, gob,
//     UTF-8 text, and finally the raw bytes are returned.
//
// Numbers:
//
//	JSON has a single number type, so the generic decoders of ModeJSON and ModeAuto
//	return every number as float64: a stored int 42 reads back as 42.0. To get
//	integers back, read with a typed model (JSON[int]()) or with store.GetAs[int],
//	or use ModeGob, which keeps the concrete type.
//
// Precedence:
//
//	A Model always wins and ignores the mode. An explicit SerializeFunc runs
//	before the mode on write, an explicit DeserializeFunc replaces decoding on
//	read.
//
// Thread Safety:
//
//	All functions are stateless and safe for concurrent use.
package serialize
