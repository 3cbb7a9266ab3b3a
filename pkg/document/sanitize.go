package document

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/noah-isme/correction-api/pkg/chunk"
)

// ErrCorruptedField is returned by Restore when a chunked field does not reassemble
// to its recorded length.
var ErrCorruptedField = errors.New("document: corrupted chunked field")

// ChunkRule chunks one text field of every item in a collection.
//
// Given a Map key Collection holding a List of Maps, each item's Field is split with
// chunk.Encode: the primary segment stays in Field, overflow segments go to ChunksField
// (written only when non-empty) and the original character count to LengthField.
type ChunkRule struct {
	Collection  string
	Field       string
	ChunksField string
	LengthField string
	Limit       int
}

// Sanitizer prepares document trees for the store and reverses that preparation on read.
type Sanitizer struct {
	rules map[string]ChunkRule
}

// NewSanitizer builds a sanitizer applying the provided chunk rules.
func NewSanitizer(rules ...ChunkRule) *Sanitizer {
	byCollection := make(map[string]ChunkRule, len(rules))
	for _, rule := range rules {
		if rule.Limit < 1 {
			rule.Limit = 1
		}
		byCollection[rule.Collection] = rule
	}
	return &Sanitizer{rules: byCollection}
}

// Sanitize returns a storeable copy of v. Absent values are omitted at every depth
// (zero domain times count as absent), domain times become Timestamps and every field
// matched by a ChunkRule is chunked. The input is not modified.
func (s *Sanitizer) Sanitize(v Value) Value {
	switch n := v.(type) {
	case nil:
		return nil
	case Time:
		if time.Time(n).IsZero() {
			return nil
		}
		return TimestampOf(time.Time(n))
	case List:
		return s.sanitizeList(n, nil)
	case Map:
		out := make(Map, len(n))
		for key, child := range n {
			var clean Value
			if list, ok := child.(List); ok {
				if rule, ok := s.rules[key]; ok {
					clean = s.sanitizeList(list, &rule)
				} else {
					clean = s.sanitizeList(list, nil)
				}
			} else {
				clean = s.Sanitize(child)
			}
			if clean != nil {
				out[key] = clean
			}
		}
		return out
	default:
		return v
	}
}

func (s *Sanitizer) sanitizeList(list List, rule *ChunkRule) List {
	out := make(List, 0, len(list))
	for _, item := range list {
		clean := s.Sanitize(item)
		if clean == nil {
			continue
		}
		if rule != nil {
			if m, ok := clean.(Map); ok {
				applyChunkRule(m, *rule)
			}
		}
		out = append(out, clean)
	}
	return out
}

func applyChunkRule(item Map, rule ChunkRule) {
	text, ok := item[rule.Field].(String)
	if !ok {
		return
	}
	field := chunk.Encode(string(text), rule.Limit)
	item[rule.Field] = String(field.Primary)
	item[rule.LengthField] = Int(utf8.RuneCountInString(string(text)))
	delete(item, rule.ChunksField)
	if len(field.Overflow) > 0 {
		segments := make(List, 0, len(field.Overflow))
		for _, segment := range field.Overflow {
			segments = append(segments, String(segment))
		}
		item[rule.ChunksField] = segments
	}
}

// Restore reverses Sanitize: chunked fields are reassembled and checked against their
// recorded length, Timestamps become domain Times. Chunk bookkeeping keys are removed.
func (s *Sanitizer) Restore(v Value) (Value, error) {
	switch n := v.(type) {
	case Timestamp:
		return Time(n.Time()), nil
	case List:
		return s.restoreList(n, nil)
	case Map:
		out := make(Map, len(n))
		for key, child := range n {
			var (
				restored Value
				err      error
			)
			if list, ok := child.(List); ok {
				if rule, ok := s.rules[key]; ok {
					restored, err = s.restoreList(list, &rule)
				} else {
					restored, err = s.restoreList(list, nil)
				}
			} else {
				restored, err = s.Restore(child)
			}
			if err != nil {
				return nil, err
			}
			out[key] = restored
		}
		return out, nil
	default:
		return v, nil
	}
}

// RestoreMap is Restore for a top-level map.
func (s *Sanitizer) RestoreMap(m Map) (Map, error) {
	v, err := s.Restore(m)
	if err != nil {
		return nil, err
	}
	return v.(Map), nil
}

// SanitizeMap is Sanitize for a top-level map.
func (s *Sanitizer) SanitizeMap(m Map) Map {
	if m == nil {
		return Map{}
	}
	return s.Sanitize(m).(Map)
}

func (s *Sanitizer) restoreList(list List, rule *ChunkRule) (List, error) {
	out := make(List, 0, len(list))
	for i, item := range list {
		restored, err := s.Restore(item)
		if err != nil {
			return nil, err
		}
		if rule != nil {
			if m, ok := restored.(Map); ok {
				if err := joinChunks(m, *rule); err != nil {
					return nil, fmt.Errorf("%s[%d].%s: %w", rule.Collection, i, rule.Field, err)
				}
			}
		}
		out = append(out, restored)
	}
	return out, nil
}

func joinChunks(item Map, rule ChunkRule) error {
	primary, ok := item[rule.Field].(String)
	if !ok {
		delete(item, rule.ChunksField)
		delete(item, rule.LengthField)
		return nil
	}
	field := chunk.Field{Primary: string(primary), Overflow: item.Strings(rule.ChunksField)}
	var text string
	if item.Has(rule.LengthField) {
		var err error
		text, err = chunk.DecodeChecked(field, int(item.Int(rule.LengthField)))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptedField, err)
		}
	} else {
		text = chunk.Decode(field)
	}
	item[rule.Field] = String(text)
	delete(item, rule.ChunksField)
	delete(item, rule.LengthField)
	return nil
}
