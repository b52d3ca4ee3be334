package attribution

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/model"
)

func mapping(refcode string, typ model.AttributionType) model.AttributionMapping {
	return model.AttributionMapping{
		ID:      "map-" + refcode + "-" + string(typ),
		Refcode: refcode,
		Type:    typ,
	}
}

func TestExtractTruthSet(t *testing.T) {
	tests := []struct {
		name               string
		mappings           []model.AttributionMapping
		wantTruth          []string
		wantNotTruth       []string
		wantTruthCount     int
		wantHeuristicCount int
	}{
		{
			name: "url proven and manual confirmed are truth",
			mappings: []model.AttributionMapping{
				mapping("META_FALL24", model.TypeDeterministicURL),
				mapping("sms_gotv", model.TypeManualConfirmed),
				mapping("em_news", model.TypeHeuristicPattern),
			},
			wantTruth:          []string{"meta_fall24", "sms_gotv"},
			wantNotTruth:       []string{"em_news"},
			wantTruthCount:     2,
			wantHeuristicCount: 1,
		},
		{
			name: "legacy deterministic is not truth",
			mappings: []model.AttributionMapping{
				mapping("fb_push", model.TypeDeterministicRefcode),
			},
			wantNotTruth:       []string{"fb_push"},
			wantHeuristicCount: 1,
		},
		{
			name: "empty refcodes skipped entirely",
			mappings: []model.AttributionMapping{
				mapping("", model.TypeDeterministicURL),
				mapping("   ", model.TypeManualConfirmed),
				mapping("real", model.TypeDeterministicURL),
			},
			wantTruth:      []string{"real"},
			wantTruthCount: 1,
		},
		{
			name:     "empty input",
			mappings: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ExtractTruthSet(tt.mappings)
			for _, rc := range tt.wantTruth {
				assert.True(t, s.IsTruth(rc), "expected %q in truth set", rc)
			}
			for _, rc := range tt.wantNotTruth {
				assert.False(t, s.IsTruth(rc), "expected %q outside truth set", rc)
			}
			assert.Equal(t, tt.wantTruthCount, s.TruthCount)
			assert.Equal(t, tt.wantHeuristicCount, s.HeuristicCount)
		})
	}
}

func TestExtractTruthSetCountConservation(t *testing.T) {
	mappings := []model.AttributionMapping{
		mapping("a", model.TypeDeterministicURL),
		mapping("b", model.TypeManualConfirmed),
		mapping("c", model.TypeHeuristicFuzzy),
		mapping("d", model.TypeHeuristicPartialURL),
		mapping("", model.TypeDeterministicURL), // skipped
		mapping("e", model.TypeDeterministicRefcode),
	}

	s := ExtractTruthSet(mappings)

	withRefcode := 0
	for _, m := range mappings {
		if m.NormalizedRefcode() != "" {
			withRefcode++
		}
	}
	assert.Equal(t, withRefcode, s.TruthCount+s.HeuristicCount)
}

func TestExtractTruthSetSupersededIgnored(t *testing.T) {
	old := mapping("meta_fall24", model.TypeHeuristicFuzzy)
	old.SupersededBy = "map-new"
	confirmed := mapping("meta_fall24", model.TypeManualConfirmed)
	confirmed.ID = "map-new"

	s := ExtractTruthSet([]model.AttributionMapping{old, confirmed})
	assert.True(t, s.IsTruth("meta_fall24"))
	assert.False(t, s.IsHeuristic("meta_fall24"))
	assert.Equal(t, 1, s.TruthCount)
	assert.Equal(t, 0, s.HeuristicCount)
}

func TestExtractTruthSetDuplicateActiveLatestWins(t *testing.T) {
	earlier := mapping("sms_gotv", model.TypeDeterministicURL)
	earlier.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := mapping("sms_gotv", model.TypeHeuristicPattern)
	later.CreatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	s := ExtractTruthSet([]model.AttributionMapping{earlier, later})
	assert.False(t, s.IsTruth("sms_gotv"))
	assert.True(t, s.IsHeuristic("sms_gotv"))
	// Both active mappings still tally.
	assert.Equal(t, 1, s.TruthCount)
	assert.Equal(t, 1, s.HeuristicCount)
}

func TestTruthSetTruthPriorityOverHeuristic(t *testing.T) {
	// Same creation time: map iteration aside, a refcode must never be
	// reported as both truth and heuristic.
	s := ExtractTruthSet([]model.AttributionMapping{
		mapping("fb_winter", model.TypeDeterministicURL),
		mapping("fb_winter", model.TypeHeuristicFuzzy),
	})
	if s.IsTruth("fb_winter") {
		assert.False(t, s.IsHeuristic("fb_winter"))
	} else {
		assert.True(t, s.IsHeuristic("fb_winter"))
	}
	assert.True(t, s.IsMapped("fb_winter"))
}
