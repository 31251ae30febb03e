package service

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// defaultSuggestions is served whenever the model is unavailable
var defaultSuggestions = []string{
	"I feel like eating something spicy and cheap",
	"Recommend a healthy lunch option",
	"What's a good vegetarian restaurant nearby?",
	"I want something quick and filling",
	"Show me the best-rated restaurants",
}

// PreferenceHistory looks up past preference texts for personalization
type PreferenceHistory interface {
	// SimilarPreferences returns preference texts from other users whose
	// interests are close to the given user's most recent query.
	SimilarPreferences(ctx context.Context, userID string, limit int) ([]string, error)
}

// SuggestionService generates food preference suggestions, optionally seeded
// with preferences similar to the user's own history.
type SuggestionService struct {
	ai      AIClient
	history PreferenceHistory
}

// NewSuggestionService creates a suggestion service. history may be nil.
func NewSuggestionService(ai AIClient, history PreferenceHistory) *SuggestionService {
	return &SuggestionService{ai: ai, history: history}
}

// Suggest returns up to count preference suggestions. Failures degrade to a
// static list; this endpoint never errors.
func (s *SuggestionService) Suggest(ctx context.Context, userID string, count int) []string {
	if count <= 0 || count > 10 {
		count = 5
	}

	if s.ai == nil || !s.ai.IsEnabled() {
		return defaultSuggestions[:min(count, len(defaultSuggestions))]
	}

	prompt := fmt.Sprintf(`Generate %d diverse and interesting food preferences or cuisines that someone might be interested in.
Each suggestion should be a single line with no numbering or bullet points.
Be creative and include a mix of specific dishes, cuisine types, and dietary preferences.`, count)

	if userID != "" && s.history != nil {
		if similar, err := s.history.SimilarPreferences(ctx, userID, 3); err == nil && len(similar) > 0 {
			prompt += fmt.Sprintf("\n\nPeople with similar taste recently asked for:\n%s\nLean the suggestions toward these interests.",
				strings.Join(similar, "\n"))
		} else if err != nil {
			log.Printf("Warning: could not load similar preferences for user %s: %v", userID, err)
		}
	}

	resp, err := s.ai.ChatCompletion(ctx, ChatCompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil || len(resp.Choices) == 0 {
		log.Printf("Warning: suggestion generation failed, using defaults: %v", err)
		return defaultSuggestions[:min(count, len(defaultSuggestions))]
	}

	var suggestions []string
	for _, line := range strings.Split(resp.Choices[0].Message.Content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789. "))
		if line != "" {
			suggestions = append(suggestions, line)
		}
		if len(suggestions) == count {
			break
		}
	}
	if len(suggestions) == 0 {
		return defaultSuggestions[:min(count, len(defaultSuggestions))]
	}
	return suggestions
}
