package models

import (
	"maps"

	"github.com/google/uuid"
)

// Entity is a canonical referent (person, organization, ...) resolvable by name.
type Entity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// RelationType is a canonical relationship kind resolvable by description.
type RelationType struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// Fact is one candidate relationship supplied for import. Properties hold
// the source name, role and target name under caller-chosen keys, plus any
// extra data.
type Fact struct {
	ID         string            `json:"id,omitempty"`
	Properties map[string]string `json:"properties"`
	CreatedAt  string            `json:"created_at,omitempty"`
}

// NewFact builds a fact with a fresh ID. The properties map is copied.
func NewFact(props map[string]string) Fact {
	return Fact{
		ID:         uuid.New().String(),
		Properties: maps.Clone(props),
	}
}

// Get returns the named property, or "" when the fact does not carry it.
func (f Fact) Get(name string) string {
	return f.Properties[name]
}

// With returns a copy of the fact with one property set. The receiver is
// left untouched.
func (f Fact) With(name, value string) Fact {
	props := maps.Clone(f.Properties)
	if props == nil {
		props = make(map[string]string, 1)
	}
	props[name] = value
	f.Properties = props
	return f
}

// MatchRecord is the resolved triple produced for one processed fact.
// Unresolved members are nil.
type MatchRecord struct {
	Source       *Entity       `json:"source"`
	RelationType *RelationType `json:"relation_type"`
	Target       *Entity       `json:"target"`
}

// Complete reports whether all three members resolved.
func (m MatchRecord) Complete() bool {
	return m.Source != nil && m.RelationType != nil && m.Target != nil
}
