// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package m3u

// Categories groups entries by group-title. Categories keep first-appearance
// order and entries keep insertion order. The slices hold references into the
// owning Playlist's entry list.
type Categories struct {
	order  []string
	byName map[string][]*Entry
}

func newCategories() *Categories {
	return &Categories{byName: make(map[string][]*Entry)}
}

func (c *Categories) add(e *Entry) {
	g := e.Group()
	if _, ok := c.byName[g]; !ok {
		c.order = append(c.order, g)
	}
	c.byName[g] = append(c.byName[g], e)
}

// Names returns the category names in first-appearance order.
func (c *Categories) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Entries returns the entries of category name, or nil if unknown.
func (c *Categories) Entries(name string) []*Entry {
	if c == nil {
		return nil
	}
	return c.byName[name]
}

// Len returns the number of categories.
func (c *Categories) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Count returns the total number of indexed entries.
func (c *Categories) Count() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, es := range c.byName {
		n += len(es)
	}
	return n
}

// Playlist is a parse result: the entry list plus its category index.
// It must be treated as read-only once returned.
type Playlist struct {
	Entries    []*Entry
	Categories *Categories
}

// NewPlaylist builds a Playlist and its category index from entries, in order.
func NewPlaylist(entries []*Entry) *Playlist {
	p := &Playlist{Categories: newCategories()}
	for _, e := range entries {
		p.append(e)
	}
	return p
}

// EmptyPlaylist returns a playlist with no entries.
func EmptyPlaylist() *Playlist {
	return &Playlist{Categories: newCategories()}
}

func (p *Playlist) append(e *Entry) {
	p.Entries = append(p.Entries, e)
	p.Categories.add(e)
}

// Len returns the number of entries.
func (p *Playlist) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Entries)
}
