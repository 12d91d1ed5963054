// Package hierarchy resolves condition-category dominance. A dominant
// category suppresses its children only while it is itself retained, so
// resolution runs to a fixed point instead of a single pass.
package hierarchy

import (
	"sort"

	"github.com/seenhealth/hccinfhir/hcc/tables"
)

// Resolve returns the categories that survive the model's dominance rules,
// sorted. Each pass collects every category suppressed by a currently
// retained one and removes them together, so the outcome does not depend on
// rule order. Resolving an already-resolved set returns it unchanged.
func Resolve(categories []string, t *tables.ModelTables) []string {
	retained := make(map[string]bool, len(categories))
	for _, cc := range categories {
		retained[cc] = true
	}

	for {
		var remove []string
		for cc := range retained {
			for _, child := range t.Suppresses(cc) {
				if retained[child] {
					remove = append(remove, child)
				}
			}
		}
		if len(remove) == 0 {
			break
		}
		for _, cc := range remove {
			delete(retained, cc)
		}
	}

	out := make([]string, 0, len(retained))
	for cc := range retained {
		out = append(out, cc)
	}
	sort.Strings(out)
	return out
}
