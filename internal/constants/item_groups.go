package constants

import "strings"

var (
	// PackagingGroups are matched as substrings of the lower-cased item group,
	// so "Printed Films" and "Cartons - Export" both count.
	PackagingGroups = map[string]bool{
		"packaging": true,
		"cartons":   true,
		"films":     true,
		"labels":    true,
	}

	// DefaultUOM is used when an item carries no stock unit.
	DefaultUOM = "Nos"
)

func IsPackagingGroup(group string) bool {
	g := strings.ToLower(strings.TrimSpace(group))
	if g == "" {
		return false
	}
	for name := range PackagingGroups {
		if strings.Contains(g, name) {
			return true
		}
	}
	return false
}
