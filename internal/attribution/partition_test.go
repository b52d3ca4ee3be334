package attribution

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/model"
)

func txn(refcode string, amount float64) model.Transaction {
	return model.Transaction{
		ID:      fmt.Sprintf("txn-%s-%.2f", refcode, amount),
		Refcode: refcode,
		Amount:  amount,
	}
}

func TestPartitionRevenueCaseInsensitiveTruthMatch(t *testing.T) {
	// A URL-proven mapping matches its transactions regardless of case.
	truthSet := ExtractTruthSet([]model.AttributionMapping{
		mapping("META_FALL24", model.TypeDeterministicURL),
	})

	p := PartitionRevenue([]model.Transaction{txn("meta_fall24", 100)}, truthSet)

	assert.InDelta(t, 100.0, p.MatchedRevenue, 0.001)
	assert.InDelta(t, 0.0, p.HeuristicRevenue, 0.001)
	assert.InDelta(t, 0.0, p.UnmatchedRevenue, 0.001)
	assert.InDelta(t, 100.0, p.MatchRatePercent, 0.001)
}

func TestPartitionRevenueHeuristicStaysOutOfMatched(t *testing.T) {
	truthSet := ExtractTruthSet([]model.AttributionMapping{
		mapping("sms_gotv", model.TypeHeuristicPattern),
	})

	p := PartitionRevenue([]model.Transaction{txn("sms_gotv", 50)}, truthSet)

	assert.InDelta(t, 50.0, p.HeuristicRevenue, 0.001)
	assert.InDelta(t, 0.0, p.MatchedRevenue, 0.001)
	assert.InDelta(t, 0.0, p.MatchRatePercent, 0.001)
}

func TestPartitionRevenueNoRefcodeIsUnmatched(t *testing.T) {
	truthSet := ExtractTruthSet(nil)

	p := PartitionRevenue([]model.Transaction{txn("", 30)}, truthSet)

	assert.InDelta(t, 30.0, p.UnmatchedRevenue, 0.001)
	assert.Equal(t, 1, p.UnmatchedCount)
	assert.InDelta(t, 0.0, p.MatchRatePercent, 0.001)
}

func TestPartitionRevenueZeroTotal(t *testing.T) {
	p := PartitionRevenue(nil, ExtractTruthSet(nil))
	assert.InDelta(t, 0.0, p.MatchRatePercent, 0.001)
	assert.InDelta(t, 0.0, p.TotalRevenue, 0.001)
}

func TestPartitionRevenueConservation(t *testing.T) {
	mappings := []model.AttributionMapping{
		mapping("meta_fall24", model.TypeDeterministicURL),
		mapping("sms_gotv", model.TypeHeuristicPattern),
		mapping("em_news", model.TypeManualConfirmed),
	}
	txns := []model.Transaction{
		txn("meta_fall24", 100.10),
		txn("META_FALL24", 0.01),
		txn("sms_gotv", 50.55),
		txn("em_news", 19.99),
		txn("stray_code", 7.32),
		txn("", 30),
	}

	truthSet := ExtractTruthSet(mappings)
	p := PartitionRevenue(txns, truthSet)

	var total float64
	for _, tx := range txns {
		total += tx.Amount
	}
	assert.InDelta(t, total, p.MatchedRevenue+p.HeuristicRevenue+p.UnmatchedRevenue, 0.001)
	assert.InDelta(t, total, p.TotalRevenue, 0.001)
	assert.Equal(t, len(txns), p.MatchedCount+p.HeuristicCount+p.UnmatchedCount)

	require.Greater(t, p.MatchRatePercent, 0.0)
	assert.LessOrEqual(t, p.MatchRatePercent, 100.0)
}

func TestPartitionRevenueTruthBeatsHeuristicOnConflict(t *testing.T) {
	// Data inconsistency: a refcode covered by both a truth and a heuristic
	// mapping. Its revenue counts as matched, exactly once.
	older := mapping("fb_push", model.TypeHeuristicFuzzy)
	newer := mapping("fb_push", model.TypeDeterministicURL)
	newer.CreatedAt = older.CreatedAt.Add(1)

	truthSet := ExtractTruthSet([]model.AttributionMapping{older, newer})
	p := PartitionRevenue([]model.Transaction{txn("fb_push", 40)}, truthSet)

	assert.InDelta(t, 40.0, p.MatchedRevenue, 0.001)
	assert.InDelta(t, 0.0, p.HeuristicRevenue, 0.001)
	assert.InDelta(t, 40.0, p.TotalRevenue, 0.001)
}

func TestPartitionRevenueNoFloatDrift(t *testing.T) {
	// Lots of 0.10 amounts would drift under naive float64 accumulation.
	truthSet := ExtractTruthSet([]model.AttributionMapping{
		mapping("meta_drip", model.TypeDeterministicURL),
	})
	txns := make([]model.Transaction, 0, 10000)
	for i := 0; i < 10000; i++ {
		txns = append(txns, model.Transaction{
			ID:      fmt.Sprintf("txn-%d", i),
			Refcode: "meta_drip",
			Amount:  0.10,
		})
	}

	p := PartitionRevenue(txns, truthSet)
	assert.Equal(t, 1000.0, p.MatchedRevenue)
	assert.Equal(t, 100.0, p.MatchRatePercent)
}
