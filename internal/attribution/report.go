package attribution

import (
	"sort"

	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/model"
)

// Provenance labels whether a figure is backed exclusively by verified
// attributions or includes heuristic inference. Every figure the reporting
// surface emits carries one of these so a viewer cannot mistake an inferred
// number for a verified one.
type Provenance string

// Provenance constants.
const (
	ProvenanceVerified  Provenance = "verified"
	ProvenanceHeuristic Provenance = "includes_heuristic"
)

// RefcodePerformance is one row of the per-refcode performance table,
// recomputed from raw transactions. The mapping's denormalized revenue cache
// is never trusted here.
type RefcodePerformance struct {
	Refcode          string                `json:"refcode"`
	Source           string                `json:"source"`
	Type             model.AttributionType `json:"attribution_type"`
	Provenance       Provenance            `json:"provenance"`
	Revenue          float64               `json:"revenue"`
	TransactionCount int                   `json:"transaction_count"`
}

// ChannelRollup aggregates attributed revenue by source descriptor. A rollup
// that includes any heuristically attributed revenue is labeled as such.
type ChannelRollup struct {
	Channel          string     `json:"channel"`
	Provenance       Provenance `json:"provenance"`
	Revenue          float64    `json:"revenue"`
	TransactionCount int        `json:"transaction_count"`
}

// Report is the full aggregation surface handed to rendering. Plain data,
// no UI concerns.
type Report struct {
	Partition      RevenuePartition       `json:"partition"`
	TruthCount     int                    `json:"truth_count"`
	HeuristicCount int                    `json:"heuristic_count"`
	Refcodes       []RefcodePerformance   `json:"refcodes"`
	Channels       []ChannelRollup        `json:"channels"`
	Suggestions    []model.SuggestedMatch `json:"suggestions"`
}

// BuildReport recomputes the complete reporting surface from a snapshot of
// transactions and mappings. Pure, synchronous, idempotent; refresh means
// refetch and call this again.
func BuildReport(txns []model.Transaction, mappings []model.AttributionMapping, opts SuggestionOptions) *Report {
	truthSet := ExtractTruthSet(mappings)

	report := &Report{
		Partition:      PartitionRevenue(txns, truthSet),
		TruthCount:     truthSet.TruthCount,
		HeuristicCount: truthSet.HeuristicCount,
		Refcodes:       refcodePerformance(txns, mappings, truthSet),
		Suggestions:    GenerateSuggestions(txns, truthSet, opts),
	}
	report.Channels = channelRollups(report.Refcodes)
	return report
}

// refcodePerformance recomputes revenue per mapped refcode from raw
// transactions, one row per authoritative mapping.
func refcodePerformance(txns []model.Transaction, mappings []model.AttributionMapping, truthSet *TruthSet) []RefcodePerformance {
	type tally struct {
		cents int64
		count int
	}
	tallies := make(map[string]*tally)
	for _, txn := range txns {
		refcode := txn.NormalizedRefcode()
		if refcode == "" || !truthSet.IsMapped(refcode) {
			continue
		}
		tl, ok := tallies[refcode]
		if !ok {
			tl = &tally{}
			tallies[refcode] = tl
		}
		tl.cents += txn.AmountCents()
		tl.count++
	}

	rows := make([]RefcodePerformance, 0, len(tallies))
	for refcode, m := range reconcile(mappings) {
		tl := tallies[refcode]
		if tl == nil {
			tl = &tally{}
		}
		provenance := ProvenanceHeuristic
		if m.Type.IsTruth() {
			provenance = ProvenanceVerified
		}
		rows = append(rows, RefcodePerformance{
			Refcode:          refcode,
			Source:           m.Source,
			Type:             m.Type,
			Provenance:       provenance,
			Revenue:          model.AmountFromCents(tl.cents),
			TransactionCount: tl.count,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Revenue != rows[j].Revenue {
			return rows[i].Revenue > rows[j].Revenue
		}
		return rows[i].Refcode < rows[j].Refcode
	})
	return rows
}

// channelRollups folds per-refcode rows into per-source totals. A channel
// touched by any heuristic row loses its verified label.
func channelRollups(rows []RefcodePerformance) []ChannelRollup {
	type agg struct {
		cents     int64
		count     int
		heuristic bool
	}
	byChannel := make(map[string]*agg)
	for _, row := range rows {
		channel := row.Source
		if channel == "" {
			channel = "Unattributed Source"
		}
		a, ok := byChannel[channel]
		if !ok {
			a = &agg{}
			byChannel[channel] = a
		}
		a.cents += model.CentsFromAmount(row.Revenue)
		a.count += row.TransactionCount
		if row.Provenance != ProvenanceVerified {
			a.heuristic = true
		}
	}

	rollups := make([]ChannelRollup, 0, len(byChannel))
	for channel, a := range byChannel {
		provenance := ProvenanceVerified
		if a.heuristic {
			provenance = ProvenanceHeuristic
		}
		rollups = append(rollups, ChannelRollup{
			Channel:          channel,
			Provenance:       provenance,
			Revenue:          model.AmountFromCents(a.cents),
			TransactionCount: a.count,
		})
	}

	sort.Slice(rollups, func(i, j int) bool {
		if rollups[i].Revenue != rollups[j].Revenue {
			return rollups[i].Revenue > rollups[j].Revenue
		}
		return rollups[i].Channel < rollups[j].Channel
	})
	return rollups
}
