// Package codemap builds and serializes pampa.codemap.json. The top-level
// object preserves insertion order; value objects are emitted with keys in
// ascending lexicographic order. Both properties are part of the artifact
// contract and interchangeable with the Node implementation.
package codemap

import (
	"bytes"
	"encoding/json"
)

// OrderedMap is a JSON object that serializes keys in insertion order.
type OrderedMap struct {
	keys   []string
	values map[string]any
}

// NewOrderedMap creates an empty ordered map.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{
		keys:   make([]string, 0),
		values: make(map[string]any),
	}
}

// Set inserts or replaces a key. First insertion fixes the key's position.
func (o *OrderedMap) Set(key string, value any) {
	if o.values == nil {
		o.values = make(map[string]any)
	}

	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}

	o.values[key] = value
}

// Get returns the value stored under key.
func (o *OrderedMap) Get(key string) (any, bool) {
	if o == nil || o.values == nil {
		return nil, false
	}

	v, ok := o.values[key]
	return v, ok
}

// Delete removes a key, preserving the order of the remaining keys.
func (o *OrderedMap) Delete(key string) {
	if o == nil || o.values == nil {
		return
	}

	if _, ok := o.values[key]; !ok {
		return
	}

	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of keys.
func (o *OrderedMap) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in insertion order.
func (o *OrderedMap) Keys() []string {
	if o == nil {
		return []string{}
	}

	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// MarshalJSON writes the object with keys in insertion order. Values are
// marshalled with encoding/json, which emits struct-backed and map-backed
// objects with lexicographically sorted keys, satisfying the value-object
// ordering contract.
func (o *OrderedMap) MarshalJSON() ([]byte, error) {
	if o == nil || len(o.keys) == 0 {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		keyBytes, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}

		valueBytes, err := json.Marshal(o.values[key])
		if err != nil {
			return nil, err
		}

		buf.Write(keyBytes)
		buf.WriteByte(':')
		buf.Write(valueBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
