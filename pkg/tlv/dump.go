package tlv

import (
	"fmt"
	"strings"
)

// Dump renders records one per line as "TAG name: VALUE", padding names to
// labelWidth. Entries with a Describe hook get their extra lines indented
// under the record. A nil registry prints "?" for every name.
func Dump(records Records, reg *Registry, labelWidth int) string {
	lines := make([]string, 0, len(records))

	for _, r := range records {
		name := "?"
		var entry Entry
		var known bool
		if reg != nil {
			entry, known = reg.ByTag(r.Tag)
			if known {
				name = entry.Name
			}
		}

		lines = append(lines, fmt.Sprintf("%-4s %-*s: %s", r.Tag.Hex(), labelWidth, name, r.Value))

		if known && entry.Describe != nil {
			for _, d := range entry.Describe(r.Bytes()) {
				lines = append(lines, "     - "+d)
			}
		}
	}

	return strings.Join(lines, "\n")
}
