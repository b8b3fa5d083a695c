package node

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Converter converts a raw stored value on read. Conversion failures fall
// back to the caller's default instead of propagating.
type Converter func(string) (any, error)

// Int converts a stored value to int.
func Int(s string) (any, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Float converts a stored value to float64.
func Float(s string) (any, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// HexInt converts a stored value to int, interpreting it as base-16 with or
// without a 0x prefix. Hardware addresses and PAN IDs read back this way.
func HexInt(s string) (any, error) {
	cleaned := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	v, err := strconv.ParseInt(cleaned, 16, 64)
	if err != nil {
		return nil, err
	}
	return int(v), nil
}

// Store is the per-device keyed data store mapping field names to values.
//
// Values are either plain scalars or live cells. Writing to a field that
// holds a *LiveCell updates the cell in place, preserving identity for
// holders of a prior reference; non-string values are formatted into the
// cell's string state. Only writing another *LiveCell rebinds the field.
// String values are trimmed on write.
//
// A single mutex serializes readers and writers; the serializer worker and
// test code holding live-cell references are the concurrent actors.
type Store struct {
	mu   sync.Mutex
	data map[string]any
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]any),
	}
}

// Set writes value under field.
//
// If the field currently holds a live cell, the cell is updated in place:
// strings directly, anything else formatted via fmt.Sprint. Previously
// taken cell references keep observing the field. Writing a new *LiveCell
// rebinds the field instead.
func (s *Store) Set(field string, value any) {
	if str, ok := value.(string); ok {
		value = strings.TrimSpace(str)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cell, ok := s.data[field].(*LiveCell); ok {
		if _, incoming := value.(*LiveCell); !incoming {
			if str, ok := value.(string); ok {
				cell.Set(str)
			} else {
				cell.Set(fmt.Sprint(value))
			}
			return
		}
	}

	s.data[field] = value
}

// Get returns the raw value bound to field, which may be a *LiveCell.
func (s *Store) Get(field string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[field]
	return v, ok
}

// Data reads field, optionally converting it. Missing fields, nil values
// and conversion failures all yield def; the store is never mutated by a
// read. Live cells are read through to their current value before
// conversion.
func (s *Store) Data(field string, conv Converter, def any) any {
	s.mu.Lock()
	value, ok := s.data[field]
	s.mu.Unlock()

	if !ok || value == nil {
		return def
	}

	if cell, isCell := value.(*LiveCell); isCell {
		value = cell.Value()
	}

	if conv == nil {
		return value
	}

	str, isStr := value.(string)
	if !isStr {
		return value
	}

	converted, err := conv(str)
	if err != nil {
		return def
	}
	return converted
}

// DataString reads field as a string, reading through live cells.
func (s *Store) DataString(field, def string) string {
	v := s.Data(field, nil, def)
	switch value := v.(type) {
	case string:
		return value
	default:
		return def
	}
}

// Clear removes every field. Used on state-reset operations such as leaving
// a network.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]any)
}
