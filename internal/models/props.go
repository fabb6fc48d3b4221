package models

import (
	"math"
	"reflect"
	"sort"
)

// Props is the property bag attached to every event. Values are scalars
// (string, number, boolean, nil) or slices of scalars.
type Props map[string]any

// Merge copies the layers into a new map. Later layers win on conflict.
func Merge(layers ...Props) Props {
	size := 0
	for _, l := range layers {
		size += len(l)
	}
	out := make(Props, size)
	for _, l := range layers {
		for k, v := range l {
			out[k] = v
		}
	}
	return out
}

// Sanitize returns a copy of p without values of unsupported shape, and the
// sorted keys that were dropped.
func (p Props) Sanitize() (Props, []string) {
	if len(p) == 0 {
		return nil, nil
	}
	out := make(Props, len(p))
	var dropped []string
	for k, v := range p {
		if !ValidValue(v) {
			dropped = append(dropped, k)
			continue
		}
		out[k] = v
	}
	sort.Strings(dropped)
	return out, dropped
}

// ValidValue reports whether v is a scalar or a slice of scalars. Non-finite
// floats are not valid.
func ValidValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	if isScalar(rv) {
		return true
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		el := rv.Index(i)
		if el.Kind() == reflect.Interface {
			if el.IsNil() {
				continue
			}
			el = el.Elem()
		}
		if !isScalar(el) {
			return false
		}
	}
	return true
}

func isScalar(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	case reflect.Float32, reflect.Float64:
		// NaN and ±Inf have no JSON encoding.
		f := v.Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return v.Type() == reflect.TypeOf(ActorID{})
}
