package bins

import (
	"strings"
	"time"
)

// Type identifies a collection service run by the council.
type Type string

const (
	TypeRefuse    Type = "refuse"
	TypeRecycling Type = "recycling"
	TypeFood      Type = "food"
	TypeGarden    Type = "garden"
)

// Types lists every recognized collection type.
var Types = []Type{TypeRefuse, TypeRecycling, TypeFood, TypeGarden}

// ParseType maps an upstream service name onto a Type. Unrecognized
// services return false and are not materialized.
func ParseType(serviceName string) (Type, bool) {
	switch Type(strings.ToLower(strings.TrimSpace(serviceName))) {
	case TypeRefuse:
		return TypeRefuse, true
	case TypeRecycling:
		return TypeRecycling, true
	case TypeFood:
		return TypeFood, true
	case TypeGarden:
		return TypeGarden, true
	}
	return "", false
}

// Collection holds the schedule and current occurrence for one collection
// type at one property, exactly as reported upstream. Date fields are
// normalized to midnight in the council's timezone; LastCompleted keeps the
// full timestamp so completions remain unambiguous across midnight.
type Collection struct {
	Type           Type
	NextCollection *time.Time
	LastCollection *time.Time
	LastCompleted  *time.Time
	LiveStatus     string
	StatusReason   string
	StatusSource   string
	Schedule       string
	Round          string
	RoundGroup     string
}

// Snapshot is the result of one fetch cycle. Only collection types present
// in the upstream response appear in Collections. Snapshots are never
// persisted; each cycle replaces the previous one wholesale.
type Snapshot struct {
	Collections map[Type]Collection
	FetchedAt   time.Time
}

// Get returns the collection for a type, if the address has that service.
func (s *Snapshot) Get(t Type) (Collection, bool) {
	if s == nil {
		return Collection{}, false
	}
	c, ok := s.Collections[t]
	return c, ok
}

// SortedTypes returns the materialized types in canonical order.
func (s *Snapshot) SortedTypes() []Type {
	var out []Type
	if s == nil {
		return out
	}
	for _, t := range Types {
		if _, ok := s.Collections[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
