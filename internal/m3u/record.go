// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package m3u

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	prefixExtinf    = "#EXTINF:"
	prefixExtVLCOpt = "#EXTVLCOPT:"
	prefixExtGrp    = "#EXTGRP:"
	prefixExtM3U    = "#EXTM3U"
)

// Header is the parsed content of an #EXTINF line waiting for its URL.
type Header struct {
	Duration   int
	Name       string
	Attributes Attributes
}

// ExtinfOutcome tags which parse tier accepted an #EXTINF line.
type ExtinfOutcome int

const (
	// OutcomeMalformed means neither tier matched; the line is discarded.
	OutcomeMalformed ExtinfOutcome = iota
	// OutcomeSuccess means the attributed form matched.
	OutcomeSuccess
	// OutcomeFallback means only the minimal duration+name form matched.
	OutcomeFallback
)

func (o ExtinfOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFallback:
		return "fallback"
	default:
		return "malformed"
	}
}

// RecordKind classifies the outcome of ParseRecord.
type RecordKind int

const (
	// KindSkip: the line produced nothing and the pending header was reset or
	// left unused (malformed #EXTINF or a URL without a header).
	KindSkip RecordKind = iota
	// KindHeader: a new pending header.
	KindHeader
	// KindDirective: an ignored directive or comment; pending state unchanged.
	KindDirective
	// KindEntry: a URL completed the pending header.
	KindEntry
)

// Skip reasons reported in Record.Reason.
const (
	ReasonMalformedExtinf = "malformed-extinf"
	ReasonOrphanURL       = "orphan-url"
)

// Record is the result of interpreting one line.
type Record struct {
	Kind   RecordKind
	Header *Header // set for KindHeader
	Entry  *Entry  // set for KindEntry
	Reason string  // set for KindSkip
}

// ParseRecord interprets one trimmed line given the currently pending header.
// It is a pure function; the caller owns the pending state:
//
//	KindHeader    -> pending = rec.Header
//	KindEntry     -> pending = nil
//	KindSkip      -> pending = nil
//	KindDirective -> pending unchanged
func ParseRecord(line string, pending *Header) Record {
	switch {
	case strings.HasPrefix(line, prefixExtinf):
		h, outcome := ParseExtinf(line)
		if outcome == OutcomeMalformed {
			return Record{Kind: KindSkip, Reason: ReasonMalformedExtinf}
		}
		return Record{Kind: KindHeader, Header: &h}
	case strings.HasPrefix(line, prefixExtVLCOpt), strings.HasPrefix(line, prefixExtGrp):
		return Record{Kind: KindDirective}
	case strings.HasPrefix(line, "#"):
		return Record{Kind: KindDirective}
	}

	if pending == nil {
		return Record{Kind: KindSkip, Reason: ReasonOrphanURL}
	}
	return Record{Kind: KindEntry, Entry: &Entry{
		Name:        pending.Name,
		Duration:    pending.Duration,
		URL:         line,
		Attributes:  pending.Attributes,
		ContentType: DeriveContentType(pending.Name, pending.Attributes),
	}}
}

// attrRe captures key="value" and key='value' pairs.
var attrRe = regexp.MustCompile(`([A-Za-z0-9_-]+)=(?:"([^"]*)"|'([^']*)')`)

// ParseExtinf parses an #EXTINF line, trying the attributed form first and the
// minimal "#EXTINF:<duration>,<name>" form second.
func ParseExtinf(line string) (Header, ExtinfOutcome) {
	if h, ok := parseAttributed(line); ok {
		applyDefaults(&h)
		return h, OutcomeSuccess
	}
	if h, ok := parseMinimal(line); ok {
		applyDefaults(&h)
		return h, OutcomeFallback
	}
	return Header{}, OutcomeMalformed
}

// parseAttributed matches "#EXTINF:<duration> <attributes>,<name>". The name
// starts at the first comma after the last attribute, so quoted values may
// hold commas and so may the name itself.
func parseAttributed(line string) (Header, bool) {
	duration, rest, ok := cutDuration(line)
	if !ok || rest == "" || !isSpace(rest[0]) {
		return Header{}, false
	}

	var h Header
	pos := 0
	for {
		m := attrRe.FindStringSubmatchIndex(rest[pos:])
		if m == nil || strings.IndexByte(rest[pos:pos+m[0]], ',') >= 0 {
			break
		}
		vs, ve := m[4], m[5]
		if vs < 0 {
			vs, ve = m[6], m[7]
		}
		value := rest[pos+vs : pos+ve]
		h.Attributes.Set(rest[pos+m[2]:pos+m[3]], value)
		pos += m[1]
	}

	comma := strings.IndexByte(rest[pos:], ',')
	if comma < 0 {
		return Header{}, false
	}
	h.Duration = duration
	h.Name = strings.TrimSpace(rest[pos+comma+1:])
	return h, true
}

// parseMinimal matches "#EXTINF:<duration>,<name>" with no attributes.
func parseMinimal(line string) (Header, bool) {
	duration, rest, ok := cutDuration(line)
	if !ok || !strings.HasPrefix(rest, ",") {
		return Header{}, false
	}
	return Header{Duration: duration, Name: strings.TrimSpace(rest[1:])}, true
}

// cutDuration parses the signed integer right after "#EXTINF:" and returns the
// remainder of the line.
func cutDuration(line string) (int, string, bool) {
	s, ok := strings.CutPrefix(line, prefixExtinf)
	if !ok {
		return 0, "", false
	}
	end := 0
	if end < len(s) && s[end] == '-' {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, "", false
	}
	d, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, "", false
	}
	return d, s[end:], true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}

func applyDefaults(h *Header) {
	if v, ok := h.Attributes.Lookup(AttrTvgName); !ok || v == "" {
		h.Attributes.Set(AttrTvgName, h.Name)
	}
	if _, ok := h.Attributes.Lookup(AttrTvgID); !ok {
		h.Attributes.Set(AttrTvgID, "")
	}
	if _, ok := h.Attributes.Lookup(AttrTvgLogo); !ok {
		h.Attributes.Set(AttrTvgLogo, "")
	}
	if v, ok := h.Attributes.Lookup(AttrGroupTitle); !ok || strings.TrimSpace(v) == "" {
		h.Attributes.Set(AttrGroupTitle, DefaultGroup)
	}
}

var (
	seriesMarkers = []string{
		"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9",
		"e0", "e1", "e2", "e3", "e4", "e5", "e6", "e7", "e8", "e9",
		"season", "episode",
	}
	movieMarkers = []string{"movie", "film"}
	yearRe       = regexp.MustCompile(`\((?:19|20)\d{2}\)`)
)

// DeriveContentType classifies an entry from its tvg-type attribute, falling
// back to name heuristics.
func DeriveContentType(name string, attrs Attributes) ContentType {
	switch strings.ToLower(strings.TrimSpace(attrs.Get(AttrTvgType))) {
	case "serie", "series", "episode":
		return ContentSeries
	case "movie", "film":
		return ContentMovie
	}

	lower := strings.ToLower(name)
	for _, m := range seriesMarkers {
		if strings.Contains(lower, m) {
			return ContentSeries
		}
	}
	for _, m := range movieMarkers {
		if strings.Contains(lower, m) {
			return ContentMovie
		}
	}
	if yearRe.MatchString(lower) {
		return ContentMovie
	}
	return ContentLive
}
