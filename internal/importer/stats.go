package importer

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
)

// LookupStat records how often a raw lookup string was seen and what it
// resolved to on its most recent sighting. Found distinguishes a miss from a
// zero-valued object.
type LookupStat[T any] struct {
	Count  int
	Object T
	Found  bool
}

// MarshalJSON renders {"count": n, "object": ...} with a null object on a miss.
func (s LookupStat[T]) MarshalJSON() ([]byte, error) {
	var object any
	if s.Found {
		object = s.Object
	}
	return json.Marshal(struct {
		Count  int `json:"count"`
		Object any `json:"object"`
	}{s.Count, object})
}

// StatTable accumulates LookupStats keyed by the exact raw string.
type StatTable[T any] struct {
	stats map[string]LookupStat[T]
}

func newStatTable[T any]() *StatTable[T] {
	return &StatTable[T]{stats: make(map[string]LookupStat[T])}
}

// sight counts one occurrence of key. It runs before resolution so a failed
// lookup is still counted.
func (t *StatTable[T]) sight(key string) {
	s := t.stats[key]
	s.Count++
	t.stats[key] = s
}

// resolved stores the latest lookup outcome for key. Every sighting
// overwrites the previous outcome.
func (t *StatTable[T]) resolved(key string, object *T) {
	s := t.stats[key]
	if object != nil {
		s.Object, s.Found = *object, true
	} else {
		var zero T
		s.Object, s.Found = zero, false
	}
	t.stats[key] = s
}

// Snapshot returns a copy of the table.
func (t *StatTable[T]) Snapshot() map[string]LookupStat[T] {
	return maps.Clone(t.stats)
}

// Len returns the number of distinct keys.
func (t *StatTable[T]) Len() int {
	return len(t.stats)
}

// Unmatched lists keys whose latest lookup missed, most frequent first and
// alphabetical among equal counts.
func (t *StatTable[T]) Unmatched() []string {
	var keys []string
	for k, s := range t.stats {
		if !s.Found {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b string) int {
		if ca, cb := t.stats[a].Count, t.stats[b].Count; ca != cb {
			return cb - ca
		}
		return strings.Compare(a, b)
	})
	return keys
}

// TableSummary aggregates one stat table.
type TableSummary struct {
	Distinct  int `json:"distinct"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
	Sightings int `json:"sightings"`
}

func (t *StatTable[T]) summary() TableSummary {
	var sum TableSummary
	for _, s := range t.stats {
		sum.Distinct++
		sum.Sightings += s.Count
		if s.Found {
			sum.Matched++
		} else {
			sum.Unmatched++
		}
	}
	return sum
}
