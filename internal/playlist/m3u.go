// SPDX-License-Identifier: MIT

// Package playlist renders parsed entries back into M3U text.
package playlist

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/ManuGH/m3uingest/internal/m3u"
)

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// WriteM3U writes entries as an extended M3U playlist. Attributes are written in
// their original order so that parsing the output yields the same entries.
func WriteM3U(w io.Writer, entries []*m3u.Entry) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("#EXTM3U\n")
	for _, e := range entries {
		bw.WriteString("#EXTINF:")
		bw.WriteString(strconv.Itoa(e.Duration))
		for _, k := range e.Attributes.Keys() {
			bw.WriteByte(' ')
			bw.WriteString(k)
			bw.WriteByte('=')
			bw.WriteString(quote(e.Attributes.Get(k)))
		}
		bw.WriteByte(',')
		bw.WriteString(strings.TrimSpace(lineBreaks.Replace(e.Name)))
		bw.WriteByte('\n')
		bw.WriteString(strings.TrimSpace(lineBreaks.Replace(e.URL)))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteCategory writes only the entries of one category, in playlist order.
func WriteCategory(w io.Writer, p *m3u.Playlist, category string) error {
	return WriteM3U(w, p.Categories.Entries(category))
}

// quote wraps v in double quotes, or single quotes when v itself contains a
// double quote. A value holding both kinds loses its double quotes.
func quote(v string) string {
	v = lineBreaks.Replace(v)
	if !strings.Contains(v, `"`) {
		return `"` + v + `"`
	}
	if !strings.Contains(v, "'") {
		return "'" + v + "'"
	}
	return `"` + strings.ReplaceAll(v, `"`, "'") + `"`
}
