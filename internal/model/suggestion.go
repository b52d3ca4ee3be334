package model

// MatchType labels how a suggested campaign was inferred.
type MatchType string

// Match type constants.
const (
	// MatchPattern means the refcode follows a known naming convention
	// (for example an underscore-delimited channel prefix).
	MatchPattern MatchType = "pattern"
	// MatchFuzzy means a substring resemblance only.
	MatchFuzzy MatchType = "fuzzy"
)

// SuggestedMatch is a transient, non-persisted inference for an unmapped
// refcode. A suggestion never enters the truth set directly; confirming one
// is the only path that promotes it, and that writes a new manual_confirmed
// AttributionMapping.
type SuggestedMatch struct {
	Refcode           string    `json:"refcode"`
	SuggestedCampaign string    `json:"suggested_campaign"`
	Reason            string    `json:"reason"`
	MatchType         MatchType `json:"match_type"`
	Revenue           float64   `json:"revenue"`
	TransactionCount  int       `json:"transaction_count"`
}
