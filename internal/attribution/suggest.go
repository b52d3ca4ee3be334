package attribution

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/model"
)

// Default suggestion thresholds.
const (
	// DefaultMinRevenue is the revenue floor below which an unmapped refcode
	// is not worth surfacing.
	DefaultMinRevenue = 100.0
	// DefaultSuggestionLimit caps the number of suggestions returned.
	DefaultSuggestionLimit = 10
)

// SuggestionOptions tunes suggestion generation. Zero values fall back to the
// defaults.
type SuggestionOptions struct {
	MinRevenue float64
	Limit      int
}

// GenerateSuggestions infers likely campaigns for unmapped refcodes carrying
// meaningful revenue. Only refcodes absent from the existing mapping set are
// considered; groups below the revenue threshold are dropped; results are
// ranked by revenue descending and capped. Suggestions are advisory and never
// enter the truth set; promotion happens only through an explicit confirm.
func GenerateSuggestions(txns []model.Transaction, truthSet *TruthSet, opts SuggestionOptions) []model.SuggestedMatch {
	if opts.MinRevenue <= 0 {
		opts.MinRevenue = DefaultMinRevenue
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultSuggestionLimit
	}

	type group struct {
		cents int64
		count int
	}
	groups := make(map[string]*group)
	for _, txn := range txns {
		refcode := txn.NormalizedRefcode()
		if refcode == "" || truthSet.IsMapped(refcode) {
			continue
		}
		g, ok := groups[refcode]
		if !ok {
			g = &group{}
			groups[refcode] = g
		}
		g.cents += txn.AmountCents()
		g.count++
	}

	minCents := model.CentsFromAmount(opts.MinRevenue)
	suggestions := make([]model.SuggestedMatch, 0, len(groups))
	for refcode, g := range groups {
		if g.cents < minCents {
			continue
		}
		campaign, matchType, reason := InferCampaign(refcode)
		suggestions = append(suggestions, model.SuggestedMatch{
			Refcode:           refcode,
			Revenue:           model.AmountFromCents(g.cents),
			TransactionCount:  g.count,
			SuggestedCampaign: campaign,
			MatchType:         matchType,
			Reason:            reason,
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Revenue != suggestions[j].Revenue {
			return suggestions[i].Revenue > suggestions[j].Revenue
		}
		return suggestions[i].Refcode < suggestions[j].Refcode
	})
	if len(suggestions) > opts.Limit {
		suggestions = suggestions[:opts.Limit]
	}
	return suggestions
}

// InferCampaign guesses a campaign label for a refcode from naming
// conventions. Pure function of the refcode string; case-insensitive.
// The match type is pattern only when the refcode follows a known
// underscore-delimited prefix convention, fuzzy otherwise.
func InferCampaign(refcode string) (campaign string, matchType model.MatchType, reason string) {
	rc := model.NormalizeRefcode(refcode)

	switch {
	case containsAny(rc, "meta", "fb", "facebook"):
		campaign = "Meta Ads Campaign"
		if hasAnyPrefix(rc, "meta_", "fb_") {
			return campaign, model.MatchPattern,
				fmt.Sprintf("Refcode %q follows the Meta naming convention", rc)
		}
		return campaign, model.MatchFuzzy,
			fmt.Sprintf("Refcode %q resembles a Meta ads token", rc)
	case containsAny(rc, "sms", "text"):
		campaign = "SMS Campaign"
		if strings.HasPrefix(rc, "sms_") {
			return campaign, model.MatchPattern,
				fmt.Sprintf("Refcode %q follows the SMS naming convention", rc)
		}
		return campaign, model.MatchFuzzy,
			fmt.Sprintf("Refcode %q resembles an SMS token", rc)
	case containsAny(rc, "email", "em_"):
		return "Email Campaign", model.MatchFuzzy,
			fmt.Sprintf("Refcode %q resembles an email token", rc)
	default:
		return "Unknown Source", model.MatchFuzzy,
			fmt.Sprintf("No naming convention recognized for refcode %q", rc)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
