// Package catalog exposes the static chart catalog consumed read-only by
// the rest of the app. Charts render as third-party iframe pages; the core
// only validates identifier references against this list.
package catalog

import (
	_ "embed"
	"encoding/json"
	"sync"
)

//go:embed charts.json
var raw []byte

// Chart describes one embeddable chart page.
type Chart struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Details  string `json:"details"`
}

// Catalog is the ordered chart list plus the known category names.
type Catalog struct {
	Charts     []Chart
	Categories []string

	byID map[int]Chart
}

var (
	cat  *Catalog
	once sync.Once
)

// Load returns the catalog parsed from the embedded data. The embedded
// JSON is validated at build/test time, so a parse failure is a build
// defect and panics.
func Load() *Catalog {
	once.Do(func() {
		var doc struct {
			Charts     []Chart  `json:"charts"`
			Categories []string `json:"categories"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			panic("catalog: invalid embedded charts.json: " + err.Error())
		}
		cat = &Catalog{Charts: doc.Charts, Categories: doc.Categories}
		cat.byID = make(map[int]Chart, len(doc.Charts))
		for _, c := range doc.Charts {
			cat.byID[c.ID] = c
		}
	})
	return cat
}

// Lookup returns the chart with the given id.
func (c *Catalog) Lookup(id int) (Chart, bool) {
	ch, ok := c.byID[id]
	return ch, ok
}

// FilterKnown drops identifiers that no longer resolve against the
// catalog. Dangling references degrade gracefully at render instead of
// erroring.
func (c *Catalog) FilterKnown(ids []int) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := c.byID[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Resolve maps identifiers to charts, skipping dangling references, in
// the order given.
func (c *Catalog) Resolve(ids []int) []Chart {
	out := make([]Chart, 0, len(ids))
	for _, id := range ids {
		if ch, ok := c.byID[id]; ok {
			out = append(out, ch)
		}
	}
	return out
}

// ByCategory groups the catalog's charts by category, preserving chart
// order within each group.
func (c *Catalog) ByCategory() map[string][]Chart {
	out := make(map[string][]Chart, len(c.Categories))
	for _, ch := range c.Charts {
		out[ch.Category] = append(out[ch.Category], ch)
	}
	return out
}
