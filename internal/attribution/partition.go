package attribution

import (
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/model"
)

// RevenuePartition splits a transaction snapshot into matched, heuristic, and
// unmatched revenue buckets. The partition is exhaustive: every transaction
// lands in exactly one bucket, so the three revenue figures always sum to the
// raw total.
type RevenuePartition struct {
	MatchedRevenue   float64 `json:"matched_revenue"`
	HeuristicRevenue float64 `json:"heuristic_revenue"`
	UnmatchedRevenue float64 `json:"unmatched_revenue"`
	TotalRevenue     float64 `json:"total_revenue"`

	MatchedCount   int `json:"matched_count"`
	HeuristicCount int `json:"heuristic_count"`
	UnmatchedCount int `json:"unmatched_count"`

	// MatchRatePercent is verified revenue over total revenue, in [0,100].
	// Zero when there is no revenue at all.
	MatchRatePercent float64 `json:"match_rate_percent"`
}

// PartitionRevenue buckets every transaction by its refcode's standing in the
// truth set. Truth is checked before heuristic, so a refcode that appears in
// both (a data inconsistency) resolves to matched and is never double
// counted. Transactions without a refcode fall into the unmatched bucket;
// nothing is ever dropped from the total.
//
// Accumulation is done in integer cents to keep sums exact across large
// transaction sets.
func PartitionRevenue(txns []model.Transaction, truthSet *TruthSet) RevenuePartition {
	var matched, heuristic, unmatched int64
	var p RevenuePartition

	for _, txn := range txns {
		cents := txn.AmountCents()
		refcode := txn.NormalizedRefcode()
		switch {
		case refcode != "" && truthSet.IsTruth(refcode):
			matched += cents
			p.MatchedCount++
		case refcode != "" && truthSet.IsHeuristic(refcode):
			heuristic += cents
			p.HeuristicCount++
		default:
			unmatched += cents
			p.UnmatchedCount++
		}
	}

	total := matched + heuristic + unmatched
	p.MatchedRevenue = model.AmountFromCents(matched)
	p.HeuristicRevenue = model.AmountFromCents(heuristic)
	p.UnmatchedRevenue = model.AmountFromCents(unmatched)
	p.TotalRevenue = model.AmountFromCents(total)
	if total > 0 {
		p.MatchRatePercent = float64(matched) / float64(total) * 100
	}
	return p
}
