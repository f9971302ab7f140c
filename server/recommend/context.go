package recommend

import (
	"fmt"
	"strings"
)

const briefingSystemPrompt = `You are a personal grocery deal assistant. You receive a shopper's habits and a list of current promotions matched to products they actually buy. Write a short, friendly briefing in plain language: highlight the best deals first, mention the estimated savings, and group related items. Never invent promotions that are not in the list. Answer in the shopper's language when the product names make it obvious.`

// BuildBriefingContext renders the recommendation into the prompt context for
// the briefing LLM.
func BuildBriefingContext(result *Recommendation) string {
	var b strings.Builder

	habits := result.Profile.Habits
	if habits != nil {
		b.WriteString("## Shopper habits\n")
		fmt.Fprintf(&b, "- %d shopping trips, %.1f per week, avg €%.2f per trip\n",
			habits.TripCount, habits.FrequencyPerWeek, habits.AvgTripTotal)
		if len(habits.PreferredStores) > 0 {
			stores := make([]string, 0, len(habits.PreferredStores))
			for _, s := range habits.PreferredStores {
				stores = append(stores, fmt.Sprintf("%s (%.0f%%)", s.Name, s.Pct*100))
			}
			fmt.Fprintf(&b, "- Preferred stores: %s\n", strings.Join(stores, ", "))
		}
		if habits.AvgHealthScore != nil {
			fmt.Fprintf(&b, "- Average health score of purchases: %.1f/5\n", *habits.AvgHealthScore)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Matched promotions\n")
	for _, match := range result.Matches {
		fmt.Fprintf(&b, "### %s (%s)\n", match.Item.NormalizedName, match.Item.InterestCategory)
		fmt.Fprintf(&b, "Why relevant: %s\n", match.Item.Reason)
		for _, rp := range match.Promos {
			line := rp.Promo.NormalizedName
			if rp.Promo.Brand != "" {
				line = rp.Promo.Brand + " " + line
			}
			if rp.Promo.PromoMechanism != "" {
				line += " - " + rp.Promo.PromoMechanism
			}
			if rp.Promo.PromoPrice != nil {
				line += fmt.Sprintf(" - €%.2f", *rp.Promo.PromoPrice)
				if rp.Promo.OriginalPrice != nil {
					line += fmt.Sprintf(" (was €%.2f)", *rp.Promo.OriginalPrice)
				}
			}
			if rp.Promo.SourceRetailer != "" {
				line += " @ " + rp.Promo.SourceRetailer
			}
			fmt.Fprintf(&b, "- %s\n", line)
		}
		b.WriteString("\n")
	}

	if savings := EstimatedSavings(result.Matches); savings > 0 {
		fmt.Fprintf(&b, "Estimated total savings if every deal is used once: €%.2f\n", savings)
	}

	return b.String()
}

// EstimatedSavings sums original-minus-promo price over all matched promos
// with complete pricing, counting each promo once.
func EstimatedSavings(matches []*ItemMatch) float64 {
	seen := map[string]struct{}{}
	total := 0.0
	for _, match := range matches {
		for _, rp := range match.Promos {
			if _, ok := seen[rp.Promo.ID]; ok {
				continue
			}
			seen[rp.Promo.ID] = struct{}{}
			if rp.Promo.OriginalPrice == nil || rp.Promo.PromoPrice == nil {
				continue
			}
			if diff := *rp.Promo.OriginalPrice - *rp.Promo.PromoPrice; diff > 0 {
				total += diff
			}
		}
	}
	return total
}
