// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package m3u

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Well-known EXTINF attribute keys.
const (
	AttrTvgID      = "tvg-id"
	AttrTvgName    = "tvg-name"
	AttrTvgLogo    = "tvg-logo"
	AttrTvgType    = "tvg-type"
	AttrGroupTitle = "group-title"
)

// DefaultGroup is the category of entries without a group-title.
const DefaultGroup = "Uncategorized"

// ContentType classifies an entry. It is derived, never authoritative.
type ContentType string

const (
	ContentLive   ContentType = "live"
	ContentMovie  ContentType = "movie"
	ContentSeries ContentType = "series"
)

// Attributes is an insertion-ordered map of lowercase attribute keys to values.
// The zero value is ready to use.
type Attributes struct {
	keys   []string
	values map[string]string
}

// Set stores value under the lowercased key. A repeated key keeps its first
// position and takes the latest value.
func (a *Attributes) Set(key, value string) {
	key = strings.ToLower(key)
	if a.values == nil {
		a.values = make(map[string]string)
	}
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

// Lookup returns the value for key and whether it was present.
func (a Attributes) Lookup(key string) (string, bool) {
	v, ok := a.values[strings.ToLower(key)]
	return v, ok
}

// Get returns the value for key, or "" if absent.
func (a Attributes) Get(key string) string {
	v, _ := a.Lookup(key)
	return v
}

// Keys returns the attribute keys in insertion order.
func (a Attributes) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Len returns the number of attributes.
func (a Attributes) Len() int { return len(a.keys) }

type attrPair struct {
	K string `json:"k"`
	V string `json:"v"`
}

// MarshalJSON encodes the attributes as an ordered list of pairs.
func (a Attributes) MarshalJSON() ([]byte, error) {
	pairs := make([]attrPair, 0, len(a.keys))
	for _, k := range a.keys {
		pairs = append(pairs, attrPair{K: k, V: a.values[k]})
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON decodes the ordered pair list written by MarshalJSON.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	var pairs []attrPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return fmt.Errorf("decode attributes: %w", err)
	}
	*a = Attributes{}
	for _, p := range pairs {
		a.Set(p.K, p.V)
	}
	return nil
}

// Entry is one playable playlist item. Every Entry carries both a header-derived
// name and a URL.
type Entry struct {
	Name        string      `json:"name"`
	Duration    int         `json:"duration"`
	URL         string      `json:"url"`
	Attributes  Attributes  `json:"attributes"`
	ContentType ContentType `json:"content_type"`
}

func (e *Entry) TvgID() string   { return e.Attributes.Get(AttrTvgID) }
func (e *Entry) TvgName() string { return e.Attributes.Get(AttrTvgName) }
func (e *Entry) TvgLogo() string { return e.Attributes.Get(AttrTvgLogo) }

// Group returns the category the entry is indexed under.
func (e *Entry) Group() string {
	if g, ok := e.Attributes.Lookup(AttrGroupTitle); ok {
		return g
	}
	return DefaultGroup
}
