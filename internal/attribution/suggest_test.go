package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/model"
)

func TestInferCampaign(t *testing.T) {
	tests := []struct {
		refcode      string
		wantCampaign string
		wantType     model.MatchType
	}{
		{"fb_winter_push", "Meta Ads Campaign", model.MatchPattern},
		{"meta_fall24", "Meta Ads Campaign", model.MatchPattern},
		{"storefb2024", "Meta Ads Campaign", model.MatchFuzzy},
		{"facebook-drive", "Meta Ads Campaign", model.MatchFuzzy},
		{"sms_gotv", "SMS Campaign", model.MatchPattern},
		{"textblast9", "SMS Campaign", model.MatchFuzzy},
		{"email_weekly", "Email Campaign", model.MatchFuzzy},
		{"em_digest", "Email Campaign", model.MatchFuzzy},
		{"xyz123", "Unknown Source", model.MatchFuzzy},
	}

	for _, tt := range tests {
		t.Run(tt.refcode, func(t *testing.T) {
			campaign, matchType, reason := InferCampaign(tt.refcode)
			assert.Equal(t, tt.wantCampaign, campaign)
			assert.Equal(t, tt.wantType, matchType)
			assert.NotEmpty(t, reason)
		})
	}
}

func TestGenerateSuggestionsThresholdAndRanking(t *testing.T) {
	truthSet := ExtractTruthSet(nil)
	txns := []model.Transaction{
		txn("fb_winter_push", 250), // above threshold
		txn("xyz123", 50),          // below threshold
		txn("sms_gotv", 80),
		txn("sms_gotv", 70), // together 150, above threshold
	}

	suggestions := GenerateSuggestions(txns, truthSet, SuggestionOptions{MinRevenue: 100})

	require.Len(t, suggestions, 2)
	// Ranked by revenue descending.
	assert.Equal(t, "fb_winter_push", suggestions[0].Refcode)
	assert.Equal(t, "Meta Ads Campaign", suggestions[0].SuggestedCampaign)
	assert.Equal(t, model.MatchPattern, suggestions[0].MatchType)
	assert.InDelta(t, 250.0, suggestions[0].Revenue, 0.001)

	assert.Equal(t, "sms_gotv", suggestions[1].Refcode)
	assert.Equal(t, 2, suggestions[1].TransactionCount)
	assert.InDelta(t, 150.0, suggestions[1].Revenue, 0.001)
}

func TestGenerateSuggestionsSkipsMappedRefcodes(t *testing.T) {
	truthSet := ExtractTruthSet([]model.AttributionMapping{
		mapping("fb_winter_push", model.TypeManualConfirmed),
		mapping("sms_gotv", model.TypeHeuristicFuzzy),
	})
	txns := []model.Transaction{
		txn("fb_winter_push", 500), // already truth-mapped
		txn("sms_gotv", 500),       // already heuristically mapped
		txn("meta_new", 500),
	}

	suggestions := GenerateSuggestions(txns, truthSet, SuggestionOptions{})

	require.Len(t, suggestions, 1)
	assert.Equal(t, "meta_new", suggestions[0].Refcode)
}

func TestGenerateSuggestionsLimit(t *testing.T) {
	truthSet := ExtractTruthSet(nil)
	var txns []model.Transaction
	for i := 0; i < 25; i++ {
		txns = append(txns, model.Transaction{
			ID:      string(rune('a' + i)),
			Refcode: "code_" + string(rune('a'+i)),
			Amount:  200 + float64(i),
		})
	}

	suggestions := GenerateSuggestions(txns, truthSet, SuggestionOptions{})
	assert.Len(t, suggestions, DefaultSuggestionLimit)

	// Highest revenue first.
	for i := 1; i < len(suggestions); i++ {
		assert.GreaterOrEqual(t, suggestions[i-1].Revenue, suggestions[i].Revenue)
	}
}

func TestGenerateSuggestionsIgnoresEmptyRefcodes(t *testing.T) {
	suggestions := GenerateSuggestions([]model.Transaction{txn("", 1000)}, ExtractTruthSet(nil), SuggestionOptions{})
	assert.Empty(t, suggestions)
}
