package utils

import (
	"strings"
)

// cuisineAliases maps common preference terms to cuisine/diet labels the
// candidate source uses. Lookup is deliberately loose: users type "veggie",
// sources tag "Vegetarian".
var cuisineAliases = map[string][]string{
	"vegetarian": {"vegetarian", "veggie", "plant-based", "vegan"},
	"vegan":      {"vegan", "plant-based"},
	"halal":      {"halal"},
	"spicy":      {"spicy", "hot", "pedas", "szechuan", "sichuan"},
	"seafood":    {"seafood", "fish", "sushi"},
	"noodles":    {"noodle", "noodles", "ramen", "mie", "pasta"},
	"chicken":    {"chicken", "ayam", "fried chicken"},
	"bbq":        {"bbq", "barbecue", "grill", "grilled", "sate", "satay"},
	"dessert":    {"dessert", "sweet", "bakery", "cake", "ice cream"},
	"coffee":     {"coffee", "cafe", "kopi"},
	"healthy":    {"healthy", "salad", "organic"},
	"indonesian": {"indonesian", "padang", "javanese", "sundanese", "nasi"},
	"japanese":   {"japanese", "sushi", "ramen", "donburi"},
	"chinese":    {"chinese", "dim sum", "szechuan", "cantonese"},
	"indian":     {"indian", "curry", "biryani"},
	"thai":       {"thai", "tom yum"},
	"italian":    {"italian", "pizza", "pasta"},
	"western":    {"western", "burger", "steak"},
}

// FuzzyMatchCuisine reports whether a user preference term matches a cuisine
// label from the candidate source.
func FuzzyMatchCuisine(term, cuisine string) bool {
	termLower := strings.ToLower(strings.TrimSpace(term))
	cuisineLower := strings.ToLower(strings.TrimSpace(cuisine))

	if termLower == "" || cuisineLower == "" {
		return false
	}

	// Exact and contains matches
	if termLower == cuisineLower {
		return true
	}
	if strings.Contains(cuisineLower, termLower) || strings.Contains(termLower, cuisineLower) {
		return true
	}

	// Alias table, both directions
	for key, values := range cuisineAliases {
		if strings.Contains(termLower, key) {
			for _, alias := range values {
				if strings.Contains(cuisineLower, alias) {
					return true
				}
			}
		}
		if strings.Contains(cuisineLower, key) {
			for _, alias := range values {
				if strings.Contains(termLower, alias) {
					return true
				}
			}
		}
	}

	return false
}

// MatchingCuisines returns the candidate cuisine labels that fuzzy-match any
// of the user's preference terms, in candidate order.
func MatchingCuisines(terms, cuisines []string) []string {
	var matched []string
	for _, cuisine := range cuisines {
		for _, term := range terms {
			if FuzzyMatchCuisine(term, cuisine) {
				matched = append(matched, cuisine)
				break
			}
		}
	}
	return matched
}
