package normalize

import "time"

// Lookup helpers for reading values out of normalized payloads by key path.

func Nested(m map[string]any, path ...string) (any, bool) {
	var cur any = m
	for _, key := range path {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = node[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func Map(m map[string]any, path ...string) map[string]any {
	v, ok := Nested(m, path...)
	if !ok {
		return nil
	}
	res, _ := v.(map[string]any)
	return res
}

func Slice(m map[string]any, path ...string) []any {
	v, ok := Nested(m, path...)
	if !ok {
		return nil
	}
	res, _ := v.([]any)
	return res
}

func String(m map[string]any, path ...string) string {
	v, ok := Nested(m, path...)
	if !ok {
		return ""
	}
	res, _ := v.(string)
	return res
}

func Bool(m map[string]any, path ...string) bool {
	v, ok := Nested(m, path...)
	if !ok {
		return false
	}
	res, _ := v.(bool)
	return res
}

func Float(m map[string]any, path ...string) (float64, bool) {
	v, ok := Nested(m, path...)
	if !ok {
		return 0, false
	}
	res, ok := v.(float64)
	return res, ok
}

func Time(m map[string]any, path ...string) (time.Time, bool) {
	s := String(m, path...)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
