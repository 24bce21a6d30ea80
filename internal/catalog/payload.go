// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package catalog

import (
	"math"
	"strconv"
)

// Payload is a decoded JSON object from the catalog API. Numbers are kept
// as json.Number so integer ids never round-trip through float64.
//
// Accessors never panic: a missing key, null, or a value of the wrong type
// reports ok=false.
type Payload map[string]any

// number is satisfied by json.Number from both encoding/json and goccy/go-json.
type number interface {
	Int64() (int64, error)
	Float64() (float64, error)
	String() string
}

// Int64 returns an integral numeric value. Fractional numbers are rejected.
func (p Payload) Int64(key string) (int64, bool) {
	return toInt64(p[key])
}

// Float returns any numeric value as float64.
func (p Payload) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// String returns a string value. Empty strings are returned as-is.
func (p Payload) String(key string) (string, bool) {
	s, ok := p[key].(string)
	return s, ok
}

// Objects returns the JSON objects inside an array value, skipping
// elements that are not objects.
func (p Payload) Objects(key string) []Payload {
	arr, ok := p[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Payload, 0, len(arr))
	for _, el := range arr {
		switch obj := el.(type) {
		case map[string]any:
			out = append(out, Payload(obj))
		case Payload:
			out = append(out, obj)
		}
	}
	return out
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		// "550.0" style encodings
		f, err := strconv.ParseFloat(n.String(), 64)
		if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}
