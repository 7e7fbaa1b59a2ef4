package reference

import (
	"encoding/json"
	"os"

	"quxat/internal/util"
)

// Entry is one row of a trusted accreditation roster. VerificationRequired
// set to false marks the name as valid without a city check.
type Entry struct {
	Name                 string `json:"name"`
	City                 string `json:"city,omitempty"`
	VerificationRequired *bool  `json:"verification_required,omitempty"`
}

// Index maps match-key names to their known match-key cities. It is built
// once per run and treated as immutable.
type Index struct {
	cities         map[string]map[string]struct{}
	verifiedNoCity map[string]struct{}
}

func BuildIndex(entries []Entry) *Index {
	idx := &Index{
		cities:         map[string]map[string]struct{}{},
		verifiedNoCity: map[string]struct{}{},
	}
	for _, e := range entries {
		name := util.MatchKey(e.Name)
		if name == "" {
			continue
		}
		if _, ok := idx.cities[name]; !ok {
			idx.cities[name] = map[string]struct{}{}
		}
		if city := util.MatchKey(e.City); city != "" {
			idx.cities[name][city] = struct{}{}
		}
		if e.VerificationRequired != nil && !*e.VerificationRequired {
			idx.verifiedNoCity[name] = struct{}{}
		}
	}
	return idx
}

// LoadIndex reads a roster file. A missing or unparseable file yields an
// empty index, which rejects every lookup: the verifiable types fail closed
// rather than crashing the run.
func LoadIndex(path string) *Index {
	blob, err := os.ReadFile(path)
	if err != nil {
		return BuildIndex(nil)
	}
	return BuildIndex(ParseRoster(blob))
}

// ParseRoster accepts either a bare array of entries or an object wrapping
// them under "organizations", "entries", or "data".
func ParseRoster(blob []byte) []Entry {
	var list []Entry
	if err := json.Unmarshal(blob, &list); err == nil {
		return list
	}

	var wrapper struct {
		Organizations []Entry `json:"organizations"`
		Entries       []Entry `json:"entries"`
		Data          []Entry `json:"data"`
	}
	if err := json.Unmarshal(blob, &wrapper); err != nil {
		return nil
	}
	if len(wrapper.Organizations) > 0 {
		return wrapper.Organizations
	}
	if len(wrapper.Entries) > 0 {
		return wrapper.Entries
	}
	return wrapper.Data
}

// Accepts reports whether the (name, city) pair is on the roster. lenient
// controls the policy for roster names with no recorded city data.
func (idx *Index) Accepts(nameKey, cityKey string, lenient bool) bool {
	if _, ok := idx.verifiedNoCity[nameKey]; ok {
		return true
	}
	known, ok := idx.cities[nameKey]
	if !ok {
		return false
	}
	if len(known) == 0 {
		return lenient
	}
	_, ok = known[cityKey]
	return ok
}

func (idx *Index) Len() int { return len(idx.cities) }
