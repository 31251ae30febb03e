package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"gourmet/internal/config"
	"gourmet/internal/model"
	"gourmet/internal/utils"
)

// ScoreEntry is the scoring outcome for one candidate
type ScoreEntry struct {
	MatchScore    float64
	AIDescription string
}

// ScoreResult maps candidate ids to their scores. Degraded is true when any
// entry came from the heuristic fallback instead of the model.
type ScoreResult struct {
	Scores   map[string]ScoreEntry
	Overall  float64
	Degraded bool
}

// Scorer calls the model endpoint to score prompt candidates, validating the
// structured output strictly and falling back to a deterministic heuristic
// per candidate or for the whole batch.
type Scorer struct {
	ai             AIClient
	weightRating   float64
	weightDistance float64
	retryBackoff   time.Duration
}

// NewScorer creates a scorer with the configured fallback weights
func NewScorer(ai AIClient, cfg *config.PipelineConfig) *Scorer {
	return &Scorer{
		ai:             ai,
		weightRating:   cfg.FallbackWeightRating,
		weightDistance: cfg.FallbackWeightDistance,
		retryBackoff:   500 * time.Millisecond,
	}
}

// aiScoreResponse is the JSON shape requested from the model
type aiScoreResponse struct {
	Restaurants []struct {
		ID          string  `json:"id"`
		Score       float64 `json:"score"`
		Description string  `json:"description"`
	} `json:"restaurants"`
	OverallScore float64 `json:"overall_score"`
}

// Score scores every prompt candidate. It never fails: on model timeout or
// malformed output it retries once, then degrades to the heuristic. Entries
// referencing unknown ids or carrying out-of-range scores are dropped and the
// affected candidates get heuristic scores individually.
func (s *Scorer) Score(ctx context.Context, prompt *Prompt) *ScoreResult {
	if s.ai == nil || !s.ai.IsEnabled() {
		return s.heuristicResult(prompt)
	}

	parsed, err := s.callModel(ctx, prompt)
	if err != nil {
		// One retry with backoff, then whole-batch fallback
		select {
		case <-ctx.Done():
			log.Printf("Warning: scoring cancelled, using heuristic fallback: %v", ctx.Err())
			return s.heuristicResult(prompt)
		case <-time.After(s.retryBackoff):
		}
		parsed, err = s.callModel(ctx, prompt)
		if err != nil {
			log.Printf("Warning: model scoring failed twice, using heuristic fallback: %v", err)
			return s.heuristicResult(prompt)
		}
	}

	return s.validate(prompt, parsed)
}

func (s *Scorer) callModel(ctx context.Context, prompt *Prompt) (*aiScoreResponse, error) {
	resp, err := s.ai.ChatCompletion(ctx, ChatCompletionRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in model response")
	}

	var parsed aiScoreResponse
	content := resp.Choices[0].Message.Content
	if err := utils.ParseAIJSON(content, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}
	if len(parsed.Restaurants) == 0 {
		return nil, fmt.Errorf("model output contains no restaurant entries")
	}
	return &parsed, nil
}

// validate checks every model entry against the prompt. Unknown ids and
// out-of-range scores are rejected; rejected or missing candidates fall back
// to the heuristic score and mark the result degraded.
func (s *Scorer) validate(prompt *Prompt, parsed *aiScoreResponse) *ScoreResult {
	known := prompt.IDs()
	result := &ScoreResult{Scores: make(map[string]ScoreEntry, len(prompt.Candidates))}

	for _, entry := range parsed.Restaurants {
		if !known[entry.ID] {
			log.Printf("Warning: model referenced unknown candidate id %q, dropping", entry.ID)
			continue
		}
		if entry.Score < 0 || entry.Score > 1 {
			log.Printf("Warning: model score %f for %q out of range, dropping", entry.Score, entry.ID)
			continue
		}
		if _, dup := result.Scores[entry.ID]; dup {
			continue
		}
		result.Scores[entry.ID] = ScoreEntry{
			MatchScore:    entry.Score,
			AIDescription: entry.Description,
		}
	}

	// Candidates the model skipped or that were rejected above
	for _, c := range prompt.Candidates {
		if _, ok := result.Scores[c.ID]; !ok {
			result.Scores[c.ID] = ScoreEntry{MatchScore: s.Heuristic(c, prompt.RadiusKm)}
			result.Degraded = true
		}
	}

	if parsed.OverallScore >= 0 && parsed.OverallScore <= 1 {
		result.Overall = parsed.OverallScore
	} else {
		result.Overall = meanScore(result.Scores)
	}
	return result
}

// heuristicResult scores the whole batch with the deterministic formula
func (s *Scorer) heuristicResult(prompt *Prompt) *ScoreResult {
	result := &ScoreResult{
		Scores:   make(map[string]ScoreEntry, len(prompt.Candidates)),
		Degraded: true,
	}
	for _, c := range prompt.Candidates {
		result.Scores[c.ID] = ScoreEntry{MatchScore: s.Heuristic(c, prompt.RadiusKm)}
	}
	result.Overall = meanScore(result.Scores)
	return result
}

// Heuristic is the deterministic fallback score: a weighted mix of rating and
// closeness, clamped to [0,1]. Weights come from configuration.
func (s *Scorer) Heuristic(c model.RestaurantCandidate, radiusKm float64) float64 {
	closeness := 1.0
	if radiusKm > 0 {
		closeness = 1 - c.DistanceKm/radiusKm
	}
	return clamp01(s.weightRating*(c.Rating/5) + s.weightDistance*closeness)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func meanScore(scores map[string]ScoreEntry) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range scores {
		sum += e.MatchScore
	}
	return sum / float64(len(scores))
}
