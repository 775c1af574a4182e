package docstore

import "time"

// Readers for loosely typed document fields. Firestore returns int64 and
// map[string]interface{}, the in-memory store returns whatever was written, so
// both shapes are accepted.

func String(d Doc, key string) string {
	s, _ := d[key].(string)
	return s
}

func Bool(d Doc, key string) bool {
	b, _ := d[key].(bool)
	return b
}

func Int(d Doc, key string) int {
	switch v := d[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func Float(d Doc, key string) float64 {
	switch v := d[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// Time returns nil for a missing or null field.
func Time(d Doc, key string) *time.Time {
	switch v := d[key].(type) {
	case time.Time:
		t := v.UTC()
		return &t
	case *time.Time:
		if v == nil {
			return nil
		}
		t := v.UTC()
		return &t
	}
	return nil
}

func StringMap(d Doc, key string) map[string]string {
	out := map[string]string{}
	raw, ok := d[key].(map[string]any)
	if !ok {
		return out
	}
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func Maps(d Doc, key string) []Doc {
	raw, ok := d[key].([]any)
	if !ok {
		if typed, ok := d[key].([]Doc); ok {
			return typed
		}
		return nil
	}
	out := make([]Doc, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
