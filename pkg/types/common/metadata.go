package common

import "reflect"

// Get returns the value stored under key.
func (m Metadata) Get(key string) (interface{}, bool) {
	v, ok := m[key]
	return v, ok
}

// Set stores a copy of value under key and returns the bag, allocating it
// when m is nil.
func (m Metadata) Set(key string, value interface{}) Metadata {
	if m == nil {
		m = make(Metadata)
	}
	m[key] = cloneValue(value)
	return m
}

// Clone returns a deep copy. Nested maps and slices are copied; other values
// are copied by assignment. A nil or empty bag clones to nil.
func (m Metadata) Clone() Metadata {
	if len(m) == 0 {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// Equal compares two bags by value. nil and empty are equal.
func (m Metadata) Equal(o Metadata) bool {
	if len(m) == 0 || len(o) == 0 {
		return len(m) == len(o)
	}
	return reflect.DeepEqual(map[string]interface{}(m), map[string]interface{}(o))
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Metadata:
		return t.Clone()
	case map[string]interface{}:
		return map[string]interface{}(Metadata(t).Clone())
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
