package model

import (
	"bytes"
	"errors"

	"github.com/bytedance/sonic"
)

// ErrNullValue is returned when an optional field is present but null.
var ErrNullValue = errors.New("optional field must not be null")

// Optional distinguishes "field absent" from "field set to its zero value".
// A JSON key that is missing leaves Set false; `false` or "" are legitimate set values.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Get returns the value and whether it was set.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return ErrNullValue
	}
	var v T
	if err := sonic.ConfigStd.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = v
	o.Set = true
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return sonic.ConfigStd.Marshal(o.Value)
}
