package model

// FoodItem represents a menu item of a restaurant
type FoodItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ImageURL    *string  `json:"imageUrl,omitempty"`
}

// RestaurantCandidate is a restaurant as returned by the candidate source,
// before scoring. DistanceKm is always derived from the query coordinates,
// never trusted from the source payload.
type RestaurantCandidate struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Address      string            `json:"address"`
	Coordinates  Coordinates       `json:"coordinates"`
	CuisineTypes []string          `json:"cuisineTypes"`
	Rating       float64           `json:"rating"`
	PriceRange   string            `json:"priceRange"`
	Hours        map[string]string `json:"hours,omitempty"`
	OpenNow      *bool             `json:"openNow,omitempty"`
	GofoodURL    string            `json:"gofoodUrl,omitempty"`
	PopularItems []FoodItem        `json:"popularItems,omitempty"`
	DistanceKm   float64           `json:"distance"`
	Raw          map[string]any    `json:"-"`
}

// ScoredRestaurant is a candidate after the scoring stage. AIDescription is
// empty when the score came from the heuristic fallback.
type ScoredRestaurant struct {
	RestaurantCandidate
	MatchScore    float64 `json:"matchScore"`
	AIDescription string  `json:"aiDescription"`
}
