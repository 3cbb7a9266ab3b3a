// Package document models values stored in the bounded document store.
//
// A document is a tree of Value nodes. Value is a closed set of variants: scalars,
// Time (a domain timestamp), Timestamp (the store-native timestamp), List and Map.
// A nil Value means "absent" and is never written to the store.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Value is one node of a document tree.
type Value interface {
	isValue()
}

type (
	// String is a text scalar.
	String string
	// Int is an integral scalar.
	Int int64
	// Float is a floating point scalar.
	Float float64
	// Bool is a boolean scalar.
	Bool bool
	// Time is a domain timestamp; Sanitize converts it to Timestamp.
	Time time.Time
	// List is an ordered sequence of values.
	List []Value
	// Map is a set of named values.
	Map map[string]Value
)

// Timestamp is the store-native timestamp representation.
type Timestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int32 `json:"nanos"`
}

func (String) isValue()    {}
func (Int) isValue()       {}
func (Float) isValue()     {}
func (Bool) isValue()      {}
func (Time) isValue()      {}
func (Timestamp) isValue() {}
func (List) isValue()      {}
func (Map) isValue()       {}

// TimestampOf converts t to its store-native form.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanos: int32(t.Nanosecond())}
}

// Time converts the timestamp back to UTC time.
func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC()
}

// MarshalJSON encodes domain times as RFC 3339 strings.
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339Nano))
}

// Marshal encodes a document tree as JSON.
func Marshal(v Value) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

// Parse decodes JSON produced by Marshal back into a document tree.
// Objects holding exactly "seconds" and "nanos" numbers are read as Timestamp.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return fromRaw(raw), nil
}

// ParseMap decodes JSON whose top level is an object.
func ParseMap(data []byte) (Map, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	m, ok := v.(Map)
	if !ok {
		return nil, fmt.Errorf("parse document: top level is %T, want object", v)
	}
	return m, nil
}

func fromRaw(raw interface{}) Value {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		return String(v)
	case bool:
		return Bool(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return Int(i)
		}
		f, _ := v.Float64()
		return Float(f)
	case []interface{}:
		list := make(List, 0, len(v))
		for _, item := range v {
			list = append(list, fromRaw(item))
		}
		return list
	case map[string]interface{}:
		if ts, ok := timestampFromRaw(v); ok {
			return ts
		}
		m := make(Map, len(v))
		for key, item := range v {
			m[key] = fromRaw(item)
		}
		return m
	default:
		return String(fmt.Sprint(v))
	}
}

func timestampFromRaw(obj map[string]interface{}) (Timestamp, bool) {
	if len(obj) != 2 {
		return Timestamp{}, false
	}
	secs, ok := obj["seconds"].(json.Number)
	if !ok {
		return Timestamp{}, false
	}
	nanos, ok := obj["nanos"].(json.Number)
	if !ok {
		return Timestamp{}, false
	}
	s, err := secs.Int64()
	if err != nil {
		return Timestamp{}, false
	}
	n, err := nanos.Int64()
	if err != nil {
		return Timestamp{}, false
	}
	return Timestamp{Seconds: s, Nanos: int32(n)}, true
}
