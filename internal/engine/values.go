package engine

import (
	"strconv"

	"github.com/dop251/goja"
)

// IsNullish reports whether v is nil, undefined or null.
func IsNullish(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

// String returns v as a Go string if it is a JS string.
func String(v goja.Value) (string, bool) {
	if IsNullish(v) {
		return "", false
	}
	s, ok := v.Export().(string)
	return s, ok
}

// Int returns v as an int if it is a JS number.
func Int(v goja.Value) (int, bool) {
	if IsNullish(v) {
		return 0, false
	}
	switch v.Export().(type) {
	case int64, float64:
		return int(v.ToInteger()), true
	}
	return 0, false
}

// Bool returns the truthiness of v; nil and undefined are false.
func Bool(v goja.Value) bool {
	if v == nil {
		return false
	}
	return v.ToBoolean()
}

// Object returns v as an object, or nil if v is nullish or a primitive.
func Object(v goja.Value) *goja.Object {
	if IsNullish(v) {
		return nil
	}
	if o, ok := v.(*goja.Object); ok {
		return o
	}
	return nil
}

// Elements returns the elements of an array-like value in index order.
func Elements(v goja.Value) []goja.Value {
	obj := Object(v)
	if obj == nil {
		return nil
	}
	n, ok := Int(obj.Get("length"))
	if !ok || n <= 0 {
		return nil
	}
	out := make([]goja.Value, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, obj.Get(strconv.Itoa(i)))
	}
	return out
}
