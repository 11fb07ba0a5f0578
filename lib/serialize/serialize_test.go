package serialize

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

type testPoint struct {
	X, Y int
	Name string
}

func init() {
	Register(testPoint{})
}

// TestRoundTrip tests that values survive ToBytes followed by FromBytes in every mode
func TestRoundTrip(t *testing.T) {
	binary := []byte{0x80, 0x81, 0xfe, 0xff}

	cases := []struct {
		name  string
		mode  Mode
		value any
	}{
		{"auto/text", ModeAuto, "hello world"},
		{"auto/bytes", ModeAuto, binary},
		{"auto/map", ModeAuto, map[string]any{"a": 1.5, "b": "x", "c": []any{true, nil}}},
		{"auto/number", ModeAuto, 42.0},
		{"auto/bool", ModeAuto, true},
		{"auto/nil", ModeAuto, nil},
		{"raw/bytes", ModeRaw, []byte("raw value")},
		{"json/text", ModeJSON, "hello"},
		{"json/map", ModeJSON, map[string]any{"nested": map[string]any{"k": "v"}}},
		{"json/nil", ModeJSON, nil},
		{"gob/int", ModeGob, 42},
		{"gob/text", ModeGob, "hello"},
		{"gob/struct", ModeGob, testPoint{X: 1, Y: 2, Name: "p"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := Options{Mode: tc.mode}
			data, err := ToBytes(tc.value, opts)
			if err != nil {
				t.Fatalf("ToBytes failed: %v", err)
			}
			got, err := FromBytes(data, opts)
			if err != nil {
				t.Fatalf("FromBytes failed: %v", err)
			}
			if !reflect.DeepEqual(got, tc.value) {
				t.Errorf("Expected %#v, got %#v", tc.value, got)
			}
		})
	}
}

func TestAutoWriteRepresentation(t *testing.T) {
	data, err := ToBytes("hello", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("Expected text to be stored as UTF-8, got %q", data)
	}

	data, err = ToBytes(map[string]int{"a": 1}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("Expected map to be stored as JSON, got %q", data)
	}

	// channels can not be JSON encoded, gob fails as well
	if _, err := ToBytes(make(chan int), Options{}); !errors.Is(err, ErrSerialization) {
		t.Errorf("Expected ErrSerialization, got %v", err)
	}
}

func TestRawModeRequiresBytes(t *testing.T) {
	_, err := ToBytes("not bytes", Options{Mode: ModeRaw})
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Expected ErrInvalidValue, got %v", err)
	}

	// the explicit function result must be bytes as well
	_, err = ToBytes("x", Options{Mode: ModeRaw, Serialize: func(v any) (any, error) { return v, nil }})
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Expected ErrInvalidValue, got %v", err)
	}
}

func TestJSONModeErrors(t *testing.T) {
	if _, err := ToBytes(func() {}, Options{Mode: ModeJSON}); !errors.Is(err, ErrSerialization) {
		t.Errorf("Expected ErrSerialization on encode, got %v", err)
	}
	if _, err := FromBytes([]byte("{not json"), Options{Mode: ModeJSON}); !errors.Is(err, ErrSerialization) {
		t.Errorf("Expected ErrSerialization on decode, got %v", err)
	}
}

func TestExplicitFunctions(t *testing.T) {
	lower := func(v any) (any, error) { return []byte(strings.ToLower(v.(string))), nil }
	upper := func(b []byte) (any, error) { return strings.ToUpper(string(b)), nil }

	data, err := ToBytes("HELLO", Options{Serialize: lower})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte("hello")) {
		t.Errorf("Expected serialize func to run first, got %q", data)
	}

	v, err := FromBytes(data, Options{})
	if err != nil || v != "hello" {
		t.Errorf("Expected hello, got %v (%v)", v, err)
	}

	v, err = FromBytes(data, Options{Deserialize: upper, Mode: ModeJSON})
	if err != nil || v != "HELLO" {
		t.Errorf("Expected deserialize func to replace decoding, got %v (%v)", v, err)
	}

	failing := func([]byte) (any, error) { return nil, errors.New("boom") }
	if _, err := FromBytes(data, Options{Deserialize: failing}); !errors.Is(err, ErrSerialization) {
		t.Errorf("Expected ErrSerialization, got %v", err)
	}
}

func TestModels(t *testing.T) {
	p := testPoint{X: 3, Y: 4, Name: "model"}

	for name, model := range map[string]Model{"json": JSON[testPoint](), "gob": Gob[testPoint]()} {
		t.Run(name, func(t *testing.T) {
			// the mode must be ignored if a model is set
			opts := Options{Mode: ModeRaw, Model: model}
			data, err := ToBytes(p, opts)
			if err != nil {
				t.Fatal(err)
			}
			got, err := FromBytes(data, opts)
			if err != nil {
				t.Fatal(err)
			}
			if got != p {
				t.Errorf("Expected %#v, got %#v", p, got)
			}
		})
	}

	// without the model the auto mode returns the structured form
	data, _ := ToBytes(p, Options{})
	got, _ := FromBytes(data, Options{})
	if _, ok := got.(map[string]any); !ok {
		t.Errorf("Expected map without model, got %T", got)
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{"": ModeAuto, "AUTO": ModeAuto, "raw": ModeRaw, "json": ModeJSON, "gob": ModeGob, "pickle": ModeGob}
	for in, want := range cases {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseMode("yaml"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Expected ErrInvalidValue for unknown mode, got %v", err)
	}
}
