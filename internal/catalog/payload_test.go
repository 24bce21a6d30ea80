// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package catalog

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func decodePayload(t *testing.T, raw string) Payload {
	t.Helper()
	var p Payload
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return p
}

func TestPayload_Int64(t *testing.T) {
	p := decodePayload(t, `{
		"id": 550,
		"big": 9007199254740993,
		"float_whole": 12.0,
		"fraction": 1.5,
		"text": "550",
		"null": null,
		"flag": true
	}`)

	tests := []struct {
		key    string
		want   int64
		wantOK bool
	}{
		{"id", 550, true},
		{"big", 9007199254740993, true},
		{"float_whole", 12, true},
		{"fraction", 0, false},
		{"text", 0, false},
		{"null", 0, false},
		{"flag", 0, false},
		{"missing", 0, false},
	}
	for _, tt := range tests {
		got, ok := p.Int64(tt.key)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Int64(%q) = (%d, %v), want (%d, %v)", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestPayload_FloatAndString(t *testing.T) {
	p := decodePayload(t, `{"vote_average": 8.4, "popularity": 61, "title": "", "id": 3}`)

	if f, ok := p.Float("vote_average"); !ok || f != 8.4 {
		t.Errorf("Float(vote_average) = (%v, %v)", f, ok)
	}
	if f, ok := p.Float("popularity"); !ok || f != 61 {
		t.Errorf("Float(popularity) = (%v, %v)", f, ok)
	}
	if _, ok := p.Float("title"); ok {
		t.Error("Float(title) should not be ok")
	}
	if s, ok := p.String("title"); !ok || s != "" {
		t.Errorf("String(title) = (%q, %v), want empty and ok", s, ok)
	}
	if _, ok := p.String("id"); ok {
		t.Error("String(id) should not be ok")
	}
}

func TestPayload_Objects(t *testing.T) {
	p := decodePayload(t, `{"cast": [{"id": 1}, 7, "x", {"id": 2}], "crew": {"id": 1}}`)

	cast := p.Objects("cast")
	if len(cast) != 2 {
		t.Fatalf("Objects(cast) len = %d, want 2", len(cast))
	}
	if id, _ := cast[1].Int64("id"); id != 2 {
		t.Errorf("cast[1].id = %d, want 2", id)
	}
	if got := p.Objects("crew"); got != nil {
		t.Errorf("Objects(crew) = %v, want nil for a non-array", got)
	}
	if got := p.Objects("missing"); got != nil {
		t.Errorf("Objects(missing) = %v, want nil", got)
	}
}

func TestPayload_PlainValues(t *testing.T) {
	p := Payload{"id": float64(42), "n": 3, "neg": int64(-1)}

	if id, ok := p.Int64("id"); !ok || id != 42 {
		t.Errorf("Int64(id) = (%d, %v)", id, ok)
	}
	if n, ok := p.Int64("n"); !ok || n != 3 {
		t.Errorf("Int64(n) = (%d, %v)", n, ok)
	}
	if f, ok := p.Float("neg"); !ok || f != -1 {
		t.Errorf("Float(neg) = (%v, %v)", f, ok)
	}
}
