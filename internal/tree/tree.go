// Package tree implements the value model shared by the state nodes: a closed
// set of primitives, ordered sequences ([]any) and keyed mappings
// (map[string]any), with normalisation, deep copies and structural equality.
package tree

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"
)

// ErrUnsupported is returned when a value falls outside the closed value set.
var ErrUnsupported = errors.New("tree: unsupported value")

var timeType = reflect.TypeOf(time.Time{})

var basicTypes = map[reflect.Kind]reflect.Type{
	reflect.Bool:    reflect.TypeOf(false),
	reflect.String:  reflect.TypeOf(""),
	reflect.Int:     reflect.TypeOf(int(0)),
	reflect.Int8:    reflect.TypeOf(int8(0)),
	reflect.Int16:   reflect.TypeOf(int16(0)),
	reflect.Int32:   reflect.TypeOf(int32(0)),
	reflect.Int64:   reflect.TypeOf(int64(0)),
	reflect.Uint:    reflect.TypeOf(uint(0)),
	reflect.Uint8:   reflect.TypeOf(uint8(0)),
	reflect.Uint16:  reflect.TypeOf(uint16(0)),
	reflect.Uint32:  reflect.TypeOf(uint32(0)),
	reflect.Uint64:  reflect.TypeOf(uint64(0)),
	reflect.Float32: reflect.TypeOf(float32(0)),
	reflect.Float64: reflect.TypeOf(float64(0)),
}

// Normalize returns a deep copy of value converted into the closed value set.
// Maps keyed by strings become map[string]any, slices and arrays become []any
// and named primitive types are converted to their builtin counterpart.
// json.Number values are turned into int64 or float64.
func Normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if number, ok := value.(json.Number); ok {
		return normalizeNumber(number)
	}
	n := normalizer{visiting: map[visit]struct{}{}}
	return n.value(reflect.ValueOf(value), "")
}

func normalizeNumber(number json.Number) (any, error) {
	if i, err := number.Int64(); err == nil {
		return i, nil
	}
	f, err := number.Float64()
	if err != nil {
		return nil, fmt.Errorf("%w: number %q", ErrUnsupported, number.String())
	}
	return f, nil
}

// visit identifies a reference value on the current descent. Slices also
// carry their length so a shorter view of the same array is not a cycle.
type visit struct {
	kind reflect.Kind
	ptr  uintptr
	len  int
}

// normalizer tracks the references being descended into. Entries are
// removed on the way back up, so shared values are fine and only values
// that contain themselves fail.
type normalizer struct {
	visiting map[visit]struct{}
}

func (n normalizer) enter(v reflect.Value, path string) (func(), error) {
	key := visit{kind: v.Kind(), ptr: v.Pointer()}
	if v.Kind() == reflect.Slice {
		key.len = v.Len()
	}
	if _, ok := n.visiting[key]; ok {
		return nil, fmt.Errorf("%w: cyclic value at %s", ErrUnsupported, describe(path))
	}
	n.visiting[key] = struct{}{}
	return func() { delete(n.visiting, key) }, nil
}

func (n normalizer) value(v reflect.Value, path string) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		elem := v.Elem()
		if elem.IsValid() && elem.CanInterface() {
			if number, ok := elem.Interface().(json.Number); ok {
				return normalizeNumber(number)
			}
		}
		if v.Kind() == reflect.Pointer {
			leave, err := n.enter(v, path)
			if err != nil {
				return nil, err
			}
			defer leave()
		}
		return n.value(elem, path)
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map key %s at %s", ErrUnsupported, v.Type().Key(), describe(path))
		}
		if v.IsNil() {
			return map[string]any{}, nil
		}
		leave, err := n.enter(v, path)
		if err != nil {
			return nil, err
		}
		defer leave()
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			normalized, err := n.value(iter.Value(), join(path, key))
			if err != nil {
				return nil, err
			}
			out[key] = normalized
		}
		return out, nil
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice {
			if v.IsNil() {
				return []any{}, nil
			}
			leave, err := n.enter(v, path)
			if err != nil {
				return nil, err
			}
			defer leave()
		}
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			normalized, err := n.value(v.Index(i), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = normalized
		}
		return out, nil
	case reflect.Struct:
		if v.Type() == timeType {
			return v.Interface(), nil
		}
		return nil, fmt.Errorf("%w: %s at %s", ErrUnsupported, v.Type(), describe(path))
	default:
		basic, ok := basicTypes[v.Kind()]
		if !ok {
			return nil, fmt.Errorf("%w: %s at %s", ErrUnsupported, v.Type(), describe(path))
		}
		if v.Type() == basic {
			return v.Interface(), nil
		}
		return v.Convert(basic).Interface(), nil
	}
}

// Clone deep copies a normalized value.
func Clone(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = Clone(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = Clone(item)
		}
		return out
	default:
		return value
	}
}

// Equal reports whether a and b are structurally equal. Numbers compare by
// value regardless of their Go type, so int(4), int64(4) and float64(4) are
// all equal. NaN equals NaN so reassigning it is not a change.
func Equal(a, b any) bool {
	if ai, ok := asInt(a); ok {
		if bi, ok := asInt(b); ok {
			return ai == bi
		}
	}
	if af, ok := asFloat(a); ok {
		bf, ok := asFloat(b)
		return ok && (af == bf || (math.IsNaN(af) && math.IsNaN(bf)))
	}

	switch left := a.(type) {
	case nil:
		return b == nil
	case map[string]any:
		right, ok := b.(map[string]any)
		if !ok || len(left) != len(right) {
			return false
		}
		for key, value := range left {
			other, exists := right[key]
			if !exists || !Equal(value, other) {
				return false
			}
		}
		return true
	case []any:
		right, ok := b.([]any)
		if !ok || len(left) != len(right) {
			return false
		}
		for i := range left {
			if !Equal(left[i], right[i]) {
				return false
			}
		}
		return true
	case time.Time:
		right, ok := b.(time.Time)
		return ok && left.Equal(right)
	default:
		return reflect.DeepEqual(a, b)
	}
}

// Number reports the float64 value of a numeric value.
func Number(value any) (float64, bool) {
	return asFloat(value)
}

// Int reports the int64 value of an integral numeric value.
func Int(value any) (int64, bool) {
	return asInt(value)
}

func asInt(value any) (int64, bool) {
	if value == nil {
		return 0, false
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

func asFloat(value any) (float64, bool) {
	if value == nil {
		return 0, false
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	return 0, false
}

func join(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}

func describe(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}
