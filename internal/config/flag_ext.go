package config

import (
	"fmt"
	"strconv"
)

// optional is a flag.Value that records whether it appeared on the command
// line, so an absent flag never overrides the JSON file.
type optional[T any] struct {
	v     T
	set   bool
	parse func(string) (T, error)
}

func (o *optional[T]) String() string { return fmt.Sprint(o.v) }

func (o *optional[T]) Set(s string) error {
	v, err := o.parse(s)
	if err != nil {
		return err
	}
	o.v, o.set = v, true
	return nil
}

// apply copies the parsed value into dst if the flag was given.
func (o *optional[T]) apply(dst *T) {
	if o.set {
		*dst = o.v
	}
}

type optionalBool struct {
	optional[bool]
}

// IsBoolFlag lets "-u" stand for "-u=true".
func (*optionalBool) IsBoolFlag() bool { return true }

func stringFlag() *optional[string] {
	return &optional[string]{parse: func(s string) (string, error) { return s, nil }}
}

func intFlag() *optional[int] {
	return &optional[int]{parse: strconv.Atoi}
}

func boolFlag() *optionalBool {
	return &optionalBool{optional[bool]{parse: strconv.ParseBool}}
}
