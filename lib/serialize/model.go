package serialize

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
)

// Model is a typed codec. When a Model is set it is the only codec used
// for a value, the mode is ignored.
type Model interface {
	// Encode converts a value into its stored representation
	Encode(value any) ([]byte, error)
	// Decode converts a stored representation back into the typed value
	Decode(data []byte) (any, error)
}

// JSON returns a Model that stores values as JSON and decodes them into T
func JSON[T any]() Model {
	return jsonModel[T]{}
}

// Gob returns a Model that stores values with gob and decodes them into T.
// Unlike ModeGob no type registration is necessary, since T is known on both sides.
func Gob[T any]() Model {
	return gobModel[T]{}
}

type jsonModel[T any] struct{}

func (jsonModel[T]) Encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

func (jsonModel[T]) Decode(data []byte) (any, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

type gobModel[T any] struct{}

func (gobModel[T]) Encode(value any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobModel[T]) Decode(data []byte) (any, error) {
	var v T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
