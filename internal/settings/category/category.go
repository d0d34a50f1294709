// Package category converts tracking-protection category bitmasks to and
// from the comma-separated table list the runtime's URL classifier reads.
package category

import (
	"fmt"
	"strings"
)

// Category is a bitmask of tracker categories to block.
type Category int32

const (
	// None blocks nothing.
	None Category = 0
	// Ad blocks advertisement trackers.
	Ad Category = 1 << 0
	// Analytic blocks analytics trackers.
	Analytic Category = 1 << 1
	// Social blocks social trackers.
	Social Category = 1 << 2
	// Content blocks content trackers.
	Content Category = 1 << 3
	// Test blocks the test trackers and the base tracking table.
	Test Category = 1 << 4

	// All is every category.
	All = Ad | Analytic | Social | Content | Test
)

// Table lists understood by the classifier.
const (
	tableTrackers = "test-track-simple,base-track-digest256"
	tableAd       = "ads-track-digest256"
	tableAnalytic = "analytics-track-digest256"
	tableSocial   = "social-track-digest256"
	tableContent  = "content-track-digest256"
)

// entries fixes the order categories are written in.
var entries = []struct {
	cat   Category
	table string
	name  string
}{
	{Test, tableTrackers, "test"},
	{Ad, tableAd, "ad"},
	{Analytic, tableAnalytic, "analytic"},
	{Social, tableSocial, "social"},
	{Content, tableContent, "content"},
}

// Encode builds the table list for c. None encodes to the empty string.
// Bits outside All are ignored.
func Encode(c Category) string {
	tables := make([]string, 0, len(entries))
	for _, e := range entries {
		if c&e.cat != 0 {
			tables = append(tables, e.table)
		}
	}
	return strings.Join(tables, ",")
}

// Decode returns the categories whose tables appear in list.
// Unknown tables are ignored.
func Decode(list string) Category {
	var c Category
	for _, e := range entries {
		if strings.Contains(list, e.table) {
			c |= e.cat
		}
	}
	return c
}

// Parse converts category names ("ad", "analytic", "social", "content",
// "test", "all", "none") to a bitmask. Names are case-insensitive.
func Parse(names []string) (Category, error) {
	var c Category
	for _, n := range names {
		switch lower := strings.ToLower(strings.TrimSpace(n)); lower {
		case "all":
			c |= All
		case "none", "":
		default:
			found := false
			for _, e := range entries {
				if e.name == lower {
					c |= e.cat
					found = true
					break
				}
			}
			if !found {
				return None, fmt.Errorf("unknown tracking category %q", n)
			}
		}
	}
	return c, nil
}

// Names returns the category names set in c, in encoding order.
func (c Category) Names() []string {
	var names []string
	for _, e := range entries {
		if c&e.cat != 0 {
			names = append(names, e.name)
		}
	}
	return names
}

// String returns the names joined with "|", or "none".
func (c Category) String() string {
	names := c.Names()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}
