// Package attribution implements the classification and aggregation engine
// that turns raw revenue transactions and refcode mappings into trustworthy
// rollups, keeping heuristic matches visibly separate from verified ones.
package attribution

import (
	"log/slog"

	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/model"
)

// TruthSet is the single authority on whether a refcode's attribution is
// verified. Membership is decided here and nowhere else; every downstream
// computation that partitions revenue must consult the same TruthSet rather
// than re-derive the rule.
type TruthSet struct {
	truth     map[string]struct{}
	heuristic map[string]struct{}

	TruthCount     int
	HeuristicCount int
}

// IsTruth reports whether the refcode's attribution is verified.
func (s *TruthSet) IsTruth(refcode string) bool {
	_, ok := s.truth[model.NormalizeRefcode(refcode)]
	return ok
}

// IsHeuristic reports whether the refcode is mapped, but only heuristically.
// A refcode that is also in the truth set is never heuristic: truth takes
// priority.
func (s *TruthSet) IsHeuristic(refcode string) bool {
	key := model.NormalizeRefcode(refcode)
	if _, ok := s.truth[key]; ok {
		return false
	}
	_, ok := s.heuristic[key]
	return ok
}

// IsMapped reports whether any active mapping covers the refcode.
func (s *TruthSet) IsMapped(refcode string) bool {
	key := model.NormalizeRefcode(refcode)
	if _, ok := s.truth[key]; ok {
		return true
	}
	_, ok := s.heuristic[key]
	return ok
}

// Refcodes returns the verified refcodes in no particular order.
func (s *TruthSet) Refcodes() []string {
	out := make([]string, 0, len(s.truth))
	for rc := range s.truth {
		out = append(out, rc)
	}
	return out
}

// ExtractTruthSet derives the set of verified refcodes from a mapping
// snapshot. Mappings with an empty refcode are skipped entirely; superseded
// mappings are ignored. TruthCount and HeuristicCount tally every active
// mapping with a usable refcode, so TruthCount + HeuristicCount always equals
// the number of such mappings. When two active mappings share a refcode the
// most recently created one decides set membership and the conflict is logged
// rather than letting both count.
func ExtractTruthSet(mappings []model.AttributionMapping) *TruthSet {
	s := &TruthSet{
		truth:     make(map[string]struct{}, len(mappings)),
		heuristic: make(map[string]struct{}),
	}

	for _, m := range mappings {
		if !m.Active() || m.NormalizedRefcode() == "" {
			continue
		}
		if m.Type.IsTruth() {
			s.TruthCount++
		} else {
			s.HeuristicCount++
		}
	}

	for refcode, m := range reconcile(mappings) {
		if m.Type.IsTruth() {
			s.truth[refcode] = struct{}{}
		} else {
			s.heuristic[refcode] = struct{}{}
		}
	}
	return s
}

// reconcile collapses a mapping snapshot to one active mapping per refcode.
func reconcile(mappings []model.AttributionMapping) map[string]model.AttributionMapping {
	authoritative := make(map[string]model.AttributionMapping, len(mappings))
	for _, m := range mappings {
		if !m.Active() {
			continue
		}
		refcode := m.NormalizedRefcode()
		if refcode == "" {
			continue
		}
		prev, exists := authoritative[refcode]
		if !exists {
			authoritative[refcode] = m
			continue
		}
		slog.Warn("duplicate active mapping for refcode, keeping most recent",
			"refcode", refcode,
			"kept", mostRecent(prev, m).ID,
			"dropped", leastRecent(prev, m).ID)
		authoritative[refcode] = mostRecent(prev, m)
	}
	return authoritative
}

func mostRecent(a, b model.AttributionMapping) model.AttributionMapping {
	if b.CreatedAt.After(a.CreatedAt) {
		return b
	}
	return a
}

func leastRecent(a, b model.AttributionMapping) model.AttributionMapping {
	if b.CreatedAt.After(a.CreatedAt) {
		return a
	}
	return b
}
