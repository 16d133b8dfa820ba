package cellcore

import (
	"fmt"
	"reflect"
	"sort"
)

// CanonicalEqual reports whether a and b are structurally identical once
// normalized: map key order is irrelevant, slices compare element-wise, and
// scalar leaves compare by value. This is the canonical deep form equality
// used for change-detection dedup, implemented via reflection rather than
// through a serialized intermediate form.
func CanonicalEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return canonicalEqualValue(reflect.ValueOf(a), reflect.ValueOf(b))
}

func canonicalEqualValue(a, b reflect.Value) bool {
	for a.Kind() == reflect.Interface || a.Kind() == reflect.Ptr {
		if a.IsNil() {
			break
		}
		a = a.Elem()
	}
	for b.Kind() == reflect.Interface || b.Kind() == reflect.Ptr {
		if b.IsNil() {
			break
		}
		b = b.Elem()
	}

	if a.Kind() != b.Kind() {
		// Allow numeric kind mismatches (e.g. int vs int64) to compare by
		// converted value, matching loosely-typed source semantics.
		if isNumericKind(a.Kind()) && isNumericKind(b.Kind()) {
			return numericValue(a) == numericValue(b)
		}
		return false
	}

	switch a.Kind() {
	case reflect.Invalid:
		return !b.IsValid()
	case reflect.Slice, reflect.Array:
		if a.Len() != b.Len() {
			return false
		}
		for i := 0; i < a.Len(); i++ {
			if !canonicalEqualValue(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Map:
		if a.Len() != b.Len() {
			return false
		}
		keys := stringifyKeys(a)
		for _, k := range keys {
			av := mapLookup(a, k)
			bv := mapLookup(b, k)
			if !av.IsValid() || !bv.IsValid() {
				return false
			}
			if !canonicalEqualValue(av, bv) {
				return false
			}
		}
		return true
	case reflect.Struct:
		if a.NumField() != b.NumField() {
			return false
		}
		for i := 0; i < a.NumField(); i++ {
			if !canonicalEqualValue(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true
	default:
		if isNumericKind(a.Kind()) {
			return numericValue(a) == numericValue(b)
		}
		return a.Interface() == b.Interface()
	}
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func numericValue(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	return 0
}

func stringifyKeys(m reflect.Value) []string {
	keys := make([]string, 0, m.Len())
	seen := make(map[string]struct{}, m.Len())
	for _, k := range m.MapKeys() {
		s := keyString(k)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		keys = append(keys, s)
	}
	sort.Strings(keys)
	return keys
}

func keyString(k reflect.Value) string {
	for k.Kind() == reflect.Interface {
		k = k.Elem()
	}
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(k.Interface())
}

func mapLookup(m reflect.Value, key string) reflect.Value {
	iter := m.MapRange()
	for iter.Next() {
		if keyString(iter.Key()) == key {
			return iter.Value()
		}
	}
	return reflect.Value{}
}
