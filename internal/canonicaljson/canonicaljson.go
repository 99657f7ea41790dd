// Copyright 2025 Shadow Atlas Contributors
//
// Package canonicaljson renders the committed payload format required by
// spec.md §6: sorted object keys, no trailing whitespace, no floating-point
// numbers anywhere in the document.

package canonicaljson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrFloatingPoint is returned when the input contains a JSON number with a
// fractional or exponent part. Hashes in the committed payload are always
// hex strings; any float reaching this package indicates an upstream bug.
var ErrFloatingPoint = errors.New("canonicaljson: floating-point number not allowed in committed payload")

// Marshal renders v as canonical JSON: object keys sorted, compact
// formatting, and no float64 values anywhere in the document.
func Marshal(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicaljson: marshal: %w", err)
	}
	return Canonicalize(raw)
}

// Canonicalize takes arbitrary JSON bytes and re-renders them with sorted
// object keys and compact formatting, rejecting any floating-point number.
func Canonicalize(raw []byte) ([]byte, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var v interface{}
	if err := decoder.Decode(&v); err != nil {
		return nil, fmt.Errorf("canonicaljson: decode: %w", err)
	}

	canonical, err := canonicalizeValue(v)
	if err != nil {
		return nil, err
	}

	out, err := json.Marshal(canonical)
	if err != nil {
		return nil, fmt.Errorf("canonicaljson: re-marshal: %w", err)
	}
	return out, nil
}

func canonicalizeValue(v interface{}) (interface{}, error) {
	switch vv := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(orderedMap, 0, len(vv))
		for _, k := range keys {
			child, err := canonicalizeValue(vv[k])
			if err != nil {
				return nil, err
			}
			ordered = append(ordered, kv{key: k, value: child})
		}
		return ordered, nil
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, e := range vv {
			child, err := canonicalizeValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil
	case json.Number:
		if isInteger(vv.String()) {
			return vv, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrFloatingPoint, vv.String())
	default:
		return vv, nil
	}
}

func isInteger(s string) bool {
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'E' {
			return false
		}
	}
	return true
}

// kv is one key/value pair in an orderedMap.
type kv struct {
	key   string
	value interface{}
}

// orderedMap marshals as a JSON object preserving insertion order, which
// canonicalizeValue has already sorted lexicographically by key.
type orderedMap []kv

func (m orderedMap) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 64)
	buf = append(buf, '{')
	for i, pair := range m {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyJSON, err := json.Marshal(pair.key)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyJSON...)
		buf = append(buf, ':')
		valJSON, err := json.Marshal(pair.value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, valJSON...)
	}
	buf = append(buf, '}')
	return buf, nil
}
