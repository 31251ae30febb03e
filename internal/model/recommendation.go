package model

import "time"

// RecommendationRequest is the body of POST /restaurants/recommendations.
// Exactly one of Location/Coordinates must be set; Preference is required.
type RecommendationRequest struct {
	Location    string       `json:"location,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Preference  string       `json:"preference" binding:"required"`
	UserID      string       `json:"userId,omitempty"`
	Radius      float64      `json:"radius,omitempty"`
	Limit       int          `json:"limit,omitempty"`

	// Structured hints. The free-text preference stays authoritative for
	// ranking rationale; these only steer candidate annotation.
	DietaryRestrictions []string `json:"dietaryRestrictions,omitempty"`
	CuisineFavorites    []string `json:"cuisineFavorites,omitempty"`
	SpiceLevel          int      `json:"spiceLevel,omitempty"` // 1..5
	PriceTier           string   `json:"priceTier,omitempty"`  // $, $$, $$$, $$$$
}

// PreferenceQuery is the preference portion of a request, as seen by the
// prompt builder.
type PreferenceQuery struct {
	FreeText            string
	DietaryRestrictions []string
	CuisineFavorites    []string
	SpiceLevel          int
	PriceTier           string
}

// Query extracts the preference query from the request
func (r *RecommendationRequest) Query() PreferenceQuery {
	return PreferenceQuery{
		FreeText:            r.Preference,
		DietaryRestrictions: r.DietaryRestrictions,
		CuisineFavorites:    r.CuisineFavorites,
		SpiceLevel:          r.SpiceLevel,
		PriceTier:           r.PriceTier,
	}
}

// RecommendationsResponse is the assembled pipeline result. Degraded is true
// whenever any non-fatal stage fell back.
type RecommendationsResponse struct {
	Restaurants []ScoredRestaurant `json:"restaurants"`
	MatchScore  float64            `json:"matchScore"`
	Degraded    bool               `json:"degraded"`
}

// InteractionRecord is the append-only digest of one recommendation request,
// handed to the history writer after assembly. Never mutated after handoff.
type InteractionRecord struct {
	SessionID  string
	UserID     string
	Timestamp  time.Time
	Location   string
	Preference string
	ResultIDs  []string
	MatchScore float64
	Degraded   bool
}
