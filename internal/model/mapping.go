// Package model defines the core domain models used throughout the application.
package model

import (
	"sort"
	"time"
)

// AttributionType indicates how a refcode-to-campaign mapping was established.
type AttributionType string

// Attribution type constants, ordered from highest to lowest trust.
const (
	// TypeDeterministicURL means the refcode was proven present in a
	// campaign's destination URL.
	TypeDeterministicURL AttributionType = "deterministic_url_refcode"
	// TypeManualConfirmed means a human explicitly verified the mapping.
	TypeManualConfirmed AttributionType = "manual_confirmed"
	// TypeDeterministicRefcode is the legacy non-URL deterministic match.
	// Provisionally untrusted until reclassified.
	TypeDeterministicRefcode AttributionType = "deterministic_refcode"
	// TypeHeuristicPartialURL means a partial URL token matched.
	TypeHeuristicPartialURL AttributionType = "heuristic_partial_url"
	// TypeHeuristicPattern means the mapping was inferred from a naming
	// convention.
	TypeHeuristicPattern AttributionType = "heuristic_pattern"
	// TypeHeuristicFuzzy means name similarity only. Directional use only.
	TypeHeuristicFuzzy AttributionType = "heuristic_fuzzy"
)

// KnownAttributionType reports whether t is a member of the closed
// enumeration.
func KnownAttributionType(t AttributionType) bool {
	switch t {
	case TypeDeterministicURL, TypeManualConfirmed, TypeDeterministicRefcode,
		TypeHeuristicPartialURL, TypeHeuristicPattern, TypeHeuristicFuzzy:
		return true
	}
	return false
}

// IsTruth reports whether the type qualifies its refcode for truth-set
// membership. Only URL-proven and human-confirmed mappings count.
func (t AttributionType) IsTruth() bool {
	return t == TypeDeterministicURL || t == TypeManualConfirmed
}

// AttributionMapping associates a refcode with a campaign/source descriptor.
// Mappings are never reclassified in place; a re-match creates a new record
// that supersedes the old one.
type AttributionMapping struct {
	CreatedAt      time.Time
	ID             string
	OrganizationID string
	Refcode        string
	Source         string // Channel name or external campaign id
	SupersededBy   string // ID of the mapping that replaced this one, if any
	Type           AttributionType
	// Confidence is legacy/advisory only. It never decides truth-set
	// membership.
	Confidence float64
	// AttributedRevenue and AttributedTransactions are denormalized snapshot
	// caches from the remote store. Display hints only; authoritative figures
	// are always recomputed from raw transactions.
	AttributedRevenue      float64
	AttributedTransactions int
}

// Active reports whether this mapping has not been superseded.
func (m *AttributionMapping) Active() bool {
	return m.SupersededBy == ""
}

// NormalizedRefcode returns the mapping's refcode in canonical matching form.
func (m *AttributionMapping) NormalizedRefcode() string {
	return NormalizeRefcode(m.Refcode)
}

// RawMapping is the loosely-typed mapping record as it arrives from the
// remote store. Legacy rows may lack an explicit attribution type and carry
// only the old deterministic flag. RawMapping never escapes the boundary:
// Normalize converts it to a strict AttributionMapping.
type RawMapping struct {
	CreatedAt              time.Time
	ID                     string
	OrganizationID         string
	Refcode                string
	Source                 string
	AttributionType        string
	SupersededBy           string
	Confidence             float64
	AttributedRevenue      float64
	AttributedTransactions int
	IsDeterministic        bool
}

// ClassifyMapping assigns one attribution type to a raw mapping record.
// Rules, in priority order: a known explicit type is returned verbatim; the
// legacy deterministic flag maps to deterministic_refcode; everything else
// fails closed to heuristic_fuzzy. Unknown input is never promoted to a
// trusted type. Pure function, never errors.
func ClassifyMapping(raw RawMapping) AttributionType {
	if t := AttributionType(raw.AttributionType); KnownAttributionType(t) {
		return t
	}
	if raw.IsDeterministic {
		return TypeDeterministicRefcode
	}
	return TypeHeuristicFuzzy
}

// Normalize converts a raw remote record into a strict AttributionMapping,
// resolving its classification via ClassifyMapping.
func (r RawMapping) Normalize() AttributionMapping {
	return AttributionMapping{
		ID:                     r.ID,
		OrganizationID:         r.OrganizationID,
		Refcode:                r.Refcode,
		Source:                 r.Source,
		Type:                   ClassifyMapping(r),
		Confidence:             r.Confidence,
		AttributedRevenue:      r.AttributedRevenue,
		AttributedTransactions: r.AttributedTransactions,
		SupersededBy:           r.SupersededBy,
		CreatedAt:              r.CreatedAt,
	}
}

// MatcherResult is the aggregate outcome of a remote matcher run.
type MatcherResult struct {
	MatchBreakdown map[AttributionType]int
	TotalMatched   int
}

// BreakdownOrder returns the breakdown tags in a stable display order,
// highest match count first and ties broken by tag name.
func (r *MatcherResult) BreakdownOrder() []AttributionType {
	tags := make([]AttributionType, 0, len(r.MatchBreakdown))
	for tag := range r.MatchBreakdown {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if r.MatchBreakdown[tags[i]] != r.MatchBreakdown[tags[j]] {
			return r.MatchBreakdown[tags[i]] > r.MatchBreakdown[tags[j]]
		}
		return tags[i] < tags[j]
	})
	return tags
}
