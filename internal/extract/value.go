package extract

import (
	"reflect"
	"strconv"
	"strings"
)

// Pick reads the first present, non-null value for any of the candidate keys
// out of container. The container may be a map[string]any straight from
// json.Unmarshal, a typed struct, or a pointer to one; struct fields are
// matched by json tag first, then by case-insensitive field name. A nil
// container, a missing key, or a null value all yield def. Pick never panics.
func Pick(container, def any, keys ...string) any {
	for _, key := range keys {
		if v, ok := lookup(container, key); ok {
			return v
		}
	}
	return def
}

// PickString is Pick for text fields. Empty strings count as missing, so
// fallback chains skip past blank values the way they skip nulls. Numeric
// scalars are rendered (vendor payloads carry ids both as strings and
// numbers).
func PickString(container any, def string, keys ...string) string {
	for _, key := range keys {
		v, ok := lookup(container, key)
		if !ok {
			continue
		}
		if s := asString(v); s != "" {
			return s
		}
	}
	return def
}

// PickFloat is Pick for numeric fields; it accepts native numbers and
// numeric strings. Returns def and false when nothing parses.
func PickFloat(container any, keys ...string) (float64, bool) {
	for _, key := range keys {
		v, ok := lookup(container, key)
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// PickMap returns the first candidate value that is an object.
func PickMap(container any, keys ...string) map[string]any {
	for _, key := range keys {
		if v, ok := lookup(container, key); ok {
			if m, ok := v.(map[string]any); ok && len(m) > 0 {
				return m
			}
		}
	}
	return nil
}

// PickSlice returns the first candidate value that is a non-empty list.
func PickSlice(container any, keys ...string) []any {
	for _, key := range keys {
		if v, ok := lookup(container, key); ok {
			if s, ok := v.([]any); ok && len(s) > 0 {
				return s
			}
		}
	}
	return nil
}

func lookup(container any, key string) (any, bool) {
	if container == nil {
		return nil, false
	}
	if m, ok := container.(map[string]any); ok {
		v, ok := m[key]
		if !ok || v == nil {
			return nil, false
		}
		return v, true
	}

	rv := reflect.ValueOf(container)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() || !fieldMatches(f, key) {
			continue
		}
		fv := rv.Field(i)
		switch fv.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
			if fv.IsNil() {
				return nil, false
			}
		}
		return fv.Interface(), true
	}
	return nil, false
}

func fieldMatches(f reflect.StructField, key string) bool {
	if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name == key {
		return true
	}
	return strings.EqualFold(f.Name, key)
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}
