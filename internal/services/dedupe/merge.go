// Package dedupe merges sightings of the same business reported by several directories.
package dedupe

import (
	"strings"

	"leadscout/internal/domain"
)

// Key is the identity of a business: its trimmed, lowercased name and address.
type Key struct {
	Name    string
	Address string
}

func KeyOf(r domain.BusinessRecord) Key {
	return Key{
		Name:    strings.ToLower(domain.CleanText(r.Name)),
		Address: strings.ToLower(domain.CleanText(r.Address)),
	}
}

// Merge collapses records sharing a Key. The first sighting fixes the output
// position; sources are unioned and each empty scalar field is filled from the
// earliest later sighting that has it. Records without a name or address are
// dropped.
func Merge(records []domain.BusinessRecord) []domain.BusinessRecord {
	out := make([]domain.BusinessRecord, 0, len(records))
	index := make(map[Key]int, len(records))
	for _, r := range records {
		k := KeyOf(r)
		if k.Name == "" || k.Address == "" {
			continue
		}
		i, seen := index[k]
		if !seen {
			r.Sources = domain.Sources(nil).Union(r.Sources)
			index[k] = len(out)
			out = append(out, r)
			continue
		}
		m := &out[i]
		m.Sources = m.Sources.Union(r.Sources)
		fill(&m.Phone, r.Phone)
		fill(&m.BusinessType, r.BusinessType)
		fill(&m.KnownWebsite, r.KnownWebsite)
		if m.DiscoveredAt.IsZero() {
			m.DiscoveredAt = r.DiscoveredAt
		}
	}
	return out
}

func fill(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}
