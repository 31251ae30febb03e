package service

import (
	"fmt"
	"sort"
	"strings"

	"gourmet/internal/model"
	"gourmet/internal/utils"
)

// Prompt is a bounded, fully deterministic model prompt over a candidate
// subset. CandidateIDs is the exact id set the scoring client may reference.
type Prompt struct {
	System     string
	User       string
	Candidates []model.RestaurantCandidate
	RadiusKm   float64
}

// IDs returns the candidate ids included in the prompt
func (p *Prompt) IDs() map[string]bool {
	ids := make(map[string]bool, len(p.Candidates))
	for _, c := range p.Candidates {
		ids[c.ID] = true
	}
	return ids
}

// PromptBuilder turns a preference query and a candidate list into a bounded
// scoring prompt. K is fixed at construction, never user-controlled.
type PromptBuilder struct {
	topK int
}

// NewPromptBuilder creates a prompt builder with a fixed candidate cap
func NewPromptBuilder(topK int) *PromptBuilder {
	if topK <= 0 {
		topK = 15
	}
	return &PromptBuilder{topK: topK}
}

const scoringSystemPrompt = `You are a restaurant recommendation assistant.
You are given a user's food preference and a numbered list of nearby restaurants.
For each restaurant, judge how well it matches the preference.

Respond ONLY with valid JSON in this exact shape:
{"restaurants":[{"id":"<restaurant id>","score":0.0,"description":"one or two sentences on why this restaurant fits"}],"overall_score":0.0}

Rules:
- score must be a number between 0 and 1
- include every listed restaurant exactly once, using its id verbatim
- never invent restaurants that are not in the list
- overall_score reflects how well the whole set matches the preference
- descriptions must mention concrete details (cuisine, dishes, price, distance)`

// Build selects the top-K candidates by a composite of distance and rating
// and renders the prompt. Identical inputs always produce identical output.
func (b *PromptBuilder) Build(pref model.PreferenceQuery, candidates []model.RestaurantCandidate, radiusKm float64) (*Prompt, error) {
	if strings.TrimSpace(pref.FreeText) == "" {
		return nil, fmt.Errorf("preference text must not be empty")
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates to build prompt from")
	}

	selected := b.selectTopK(candidates, radiusKm)

	var sb strings.Builder
	sb.WriteString("User preference: ")
	sb.WriteString(strings.TrimSpace(pref.FreeText))
	sb.WriteString("\n")

	if len(pref.DietaryRestrictions) > 0 {
		sb.WriteString(fmt.Sprintf("Dietary restrictions: %s\n", strings.Join(pref.DietaryRestrictions, ", ")))
	}
	if len(pref.CuisineFavorites) > 0 {
		sb.WriteString(fmt.Sprintf("Favorite cuisines: %s\n", strings.Join(pref.CuisineFavorites, ", ")))
	}
	if pref.SpiceLevel >= 1 && pref.SpiceLevel <= 5 {
		sb.WriteString(fmt.Sprintf("Preferred spice level: %d/5\n", pref.SpiceLevel))
	}
	if pref.PriceTier != "" {
		sb.WriteString(fmt.Sprintf("Preferred price tier: %s\n", pref.PriceTier))
	}

	sb.WriteString("\nRestaurants:\n")
	hintTerms := append(append([]string{}, pref.CuisineFavorites...), pref.DietaryRestrictions...)
	for i, c := range selected {
		sb.WriteString(fmt.Sprintf("%d. id=%s | %s | cuisines: %s | rating: %.1f/5 | price: %s | %.1f km away",
			i+1, c.ID, c.Name, strings.Join(c.CuisineTypes, ", "), c.Rating, c.PriceRange, c.DistanceKm))
		if matched := utils.MatchingCuisines(hintTerms, c.CuisineTypes); len(matched) > 0 {
			sb.WriteString(fmt.Sprintf(" | matches user favorites: %s", strings.Join(matched, ", ")))
		}
		sb.WriteString("\n")
	}

	return &Prompt{
		System:     scoringSystemPrompt,
		User:       sb.String(),
		Candidates: selected,
		RadiusKm:   radiusKm,
	}, nil
}

// selectTopK orders candidates by a composite of closeness and rating and
// keeps the first K. Ties break on id so the selection is stable.
func (b *PromptBuilder) selectTopK(candidates []model.RestaurantCandidate, radiusKm float64) []model.RestaurantCandidate {
	ranked := make([]model.RestaurantCandidate, len(candidates))
	copy(ranked, candidates)

	composite := func(c model.RestaurantCandidate) float64 {
		closeness := 1.0
		if radiusKm > 0 {
			closeness = 1 - c.DistanceKm/radiusKm
			if closeness < 0 {
				closeness = 0
			}
		}
		return 0.5*closeness + 0.5*(c.Rating/5)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := composite(ranked[i]), composite(ranked[j])
		if si != sj {
			return si > sj
		}
		return ranked[i].ID < ranked[j].ID
	})

	if len(ranked) > b.topK {
		ranked = ranked[:b.topK]
	}
	return ranked
}
