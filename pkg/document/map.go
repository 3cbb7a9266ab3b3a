package document

import "time"

// Has reports whether key holds a non-absent value.
func (m Map) Has(key string) bool {
	return m[key] != nil
}

// String returns the text stored at key or "".
func (m Map) String(key string) string {
	if s, ok := m[key].(String); ok {
		return string(s)
	}
	return ""
}

// Int returns the integer stored at key, truncating floats.
func (m Map) Int(key string) int64 {
	switch v := m[key].(type) {
	case Int:
		return int64(v)
	case Float:
		return int64(v)
	}
	return 0
}

// Float returns the number stored at key.
func (m Map) Float(key string) float64 {
	switch v := m[key].(type) {
	case Int:
		return float64(v)
	case Float:
		return float64(v)
	}
	return 0
}

// Bool returns the boolean stored at key.
func (m Map) Bool(key string) bool {
	b, _ := m[key].(Bool)
	return bool(b)
}

// Time returns the time stored at key in either domain or store-native form.
func (m Map) Time(key string) time.Time {
	switch v := m[key].(type) {
	case Time:
		return time.Time(v)
	case Timestamp:
		return v.Time()
	}
	return time.Time{}
}

// List returns the list stored at key.
func (m Map) List(key string) List {
	l, _ := m[key].(List)
	return l
}

// Map returns the nested map stored at key.
func (m Map) Map(key string) Map {
	n, _ := m[key].(Map)
	return n
}

// Strings returns the text items of the list stored at key.
func (m Map) Strings(key string) []string {
	list := m.List(key)
	if len(list) == 0 {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(String); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// Maps returns the object items of the list stored at key.
func (m Map) Maps(key string) []Map {
	list := m.List(key)
	if len(list) == 0 {
		return nil
	}
	out := make([]Map, 0, len(list))
	for _, item := range list {
		if n, ok := item.(Map); ok {
			out = append(out, n)
		}
	}
	return out
}

// Merge returns a copy of m with every top-level key of partial replacing the existing value.
func (m Map) Merge(partial Map) Map {
	out := make(Map, len(m)+len(partial))
	for key, value := range m {
		out[key] = value
	}
	for key, value := range partial {
		out[key] = value
	}
	return out
}

// Walk calls fn for every string leaf in v.
func Walk(v Value, fn func(s string)) {
	switch n := v.(type) {
	case String:
		fn(string(n))
	case List:
		for _, item := range n {
			Walk(item, fn)
		}
	case Map:
		for _, item := range n {
			Walk(item, fn)
		}
	}
}
