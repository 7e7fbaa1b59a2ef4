package pipeline

import (
	"quxat/internal"
	"quxat/internal/util"
)

// Group partitions standardized organizations by exact match-key equality,
// preserving first-seen order both across and within groups. Records whose
// name normalizes to an empty key are never merged with anything: each gets
// a singleton group of its own.
//
// There is deliberately no fuzzy or substring matching across keys. Partial
// matching is how one franchise location's accreditation used to bleed onto
// its siblings; name variants that do not share a key stay separate.
func Group(orgs []internal.Organization) [][]internal.Organization {
	byKey := map[string]int{}
	groups := make([][]internal.Organization, 0, len(orgs))

	for _, org := range orgs {
		key := util.MatchKey(org.Name)
		if key == "" {
			groups = append(groups, []internal.Organization{org})
			continue
		}
		if idx, ok := byKey[key]; ok {
			groups[idx] = append(groups[idx], org)
			continue
		}
		byKey[key] = len(groups)
		groups = append(groups, []internal.Organization{org})
	}

	return groups
}
