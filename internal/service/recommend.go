package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"gourmet/internal/config"
	"gourmet/internal/model"

	"github.com/google/uuid"
)

// Stage is a state of the recommendation pipeline
type Stage string

const (
	StageResolvingLocation  Stage = "RESOLVING_LOCATION"
	StageFetchingCandidates Stage = "FETCHING_CANDIDATES"
	StageScoring            Stage = "SCORING"
	StageAssembling         Stage = "ASSEMBLING"
	StageDone               Stage = "DONE"
	StageFailed             Stage = "FAILED"
)

// LocationResolver resolves a free-text address to coordinates
type LocationResolver interface {
	Geocode(ctx context.Context, address string) (*model.GeocodeResult, error)
}

// CandidateSource fetches restaurant candidates around a point
type CandidateSource interface {
	FetchCandidates(ctx context.Context, coords model.Coordinates, radiusKm float64, maxCount int) ([]model.RestaurantCandidate, bool, error)
}

// HistoryRecorder receives interaction records; it must never block beyond
// the enqueue operation.
type HistoryRecorder interface {
	Record(rec model.InteractionRecord)
}

// Orchestrator runs the recommendation pipeline: a fixed sequence of stages
// under one overall deadline, with graceful degradation at every non-fatal
// stage. All intermediate values live on the stack of one Recommend call;
// nothing is shared across concurrent requests.
type Orchestrator struct {
	resolver LocationResolver
	source   CandidateSource
	prompts  *PromptBuilder
	scorer   *Scorer
	history  HistoryRecorder
	cfg      *config.PipelineConfig
}

// NewOrchestrator creates a recommendation orchestrator. All tuning comes
// from the explicit config value; nothing is read from ambient state.
func NewOrchestrator(
	resolver LocationResolver,
	source CandidateSource,
	prompts *PromptBuilder,
	scorer *Scorer,
	history HistoryRecorder,
	cfg *config.PipelineConfig,
) *Orchestrator {
	return &Orchestrator{
		resolver: resolver,
		source:   source,
		prompts:  prompts,
		scorer:   scorer,
		history:  history,
		cfg:      cfg,
	}
}

// Recommend runs the full pipeline for one request
func (o *Orchestrator) Recommend(ctx context.Context, req *model.RecommendationRequest) (*model.RecommendationsResponse, error) {
	if err := o.validate(req); err != nil {
		return nil, err
	}

	radius := req.Radius
	if radius <= 0 {
		radius = o.cfg.DefaultRadiusKm
	}
	limit := req.Limit
	if limit <= 0 {
		limit = o.cfg.DefaultLimit
	}
	if limit > o.cfg.MaxLimit {
		limit = o.cfg.MaxLimit
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.OverallTimeout)
	defer cancel()

	sessionID := uuid.NewString()
	degraded := false
	stage := StageResolvingLocation

	// RESOLVING_LOCATION: skipped entirely when coordinates were supplied.
	// Resolution failure is fatal; there is nothing to fetch without a point.
	var coords model.Coordinates
	if req.Coordinates != nil {
		coords = *req.Coordinates
	} else {
		o.logStage(sessionID, stage)
		resolveCtx, resolveCancel := o.stageContext(ctx, o.cfg.ResolveFraction)
		geocoded, err := o.resolver.Geocode(resolveCtx, req.Location)
		resolveCancel()
		if err != nil {
			o.logStage(sessionID, StageFailed)
			return nil, err
		}
		coords = geocoded.Coords()
	}

	stage = StageFetchingCandidates
	o.logStage(sessionID, stage)
	fetchCtx, fetchCancel := o.stageContext(ctx, o.cfg.FetchFraction)
	candidates, partial, err := o.source.FetchCandidates(fetchCtx, coords, radius, 0)
	fetchCancel()
	if err != nil {
		o.logStage(sessionID, StageFailed)
		return nil, err
	}
	if len(candidates) == 0 {
		o.logStage(sessionID, StageFailed)
		return nil, model.NewPipelineError(model.CodeNoCandidates, "no restaurants found in the search area", nil)
	}
	if partial {
		degraded = true
	}

	stage = StageScoring
	o.logStage(sessionID, stage)
	prompt, err := o.prompts.Build(req.Query(), candidates, radius)
	if err != nil {
		o.logStage(sessionID, StageFailed)
		return nil, model.NewPipelineError(model.CodeInvalidInput, "could not build scoring prompt", err)
	}
	scoreCtx, scoreCancel := o.stageContext(ctx, o.cfg.ScoreFraction)
	scores := o.scorer.Score(scoreCtx, prompt)
	scoreCancel()
	if scores.Degraded {
		degraded = true
	}

	stage = StageAssembling
	o.logStage(sessionID, stage)
	response := o.assemble(candidates, scores, radius, limit, degraded)

	o.recordInteraction(sessionID, req, response)

	o.logStage(sessionID, StageDone)
	return response, nil
}

// validate rejects bad input before the pipeline starts
func (o *Orchestrator) validate(req *model.RecommendationRequest) error {
	hasLocation := strings.TrimSpace(req.Location) != ""
	hasCoords := req.Coordinates != nil

	if hasLocation == hasCoords {
		return model.NewPipelineError(model.CodeInvalidInput,
			"exactly one of location and coordinates must be provided", nil)
	}
	if strings.TrimSpace(req.Preference) == "" {
		return model.NewPipelineError(model.CodeInvalidInput, "preference is required", nil)
	}
	if hasCoords {
		if err := req.Coordinates.Validate(); err != nil {
			return model.NewPipelineError(model.CodeInvalidInput, "invalid coordinates", err)
		}
	}
	if req.Radius < 0 {
		return model.NewPipelineError(model.CodeInvalidInput, "radius must be positive", nil)
	}
	if req.SpiceLevel != 0 && (req.SpiceLevel < 1 || req.SpiceLevel > 5) {
		return model.NewPipelineError(model.CodeInvalidInput, "spiceLevel must be between 1 and 5", nil)
	}
	switch req.PriceTier {
	case "", "$", "$$", "$$$", "$$$$":
	default:
		return model.NewPipelineError(model.CodeInvalidInput, "priceTier must be one of $, $$, $$$, $$$$", nil)
	}
	return nil
}

// stageContext derives a stage sub-deadline as a fraction of the overall
// request budget. The stage deadline never outlives the overall one.
func (o *Orchestrator) stageContext(ctx context.Context, fraction float64) (context.Context, context.CancelFunc) {
	if fraction <= 0 || fraction >= 1 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(float64(o.cfg.OverallTimeout)*fraction))
}

// assemble merges scores over the full deduplicated candidate list, orders by
// matchScore desc / rating desc / distance asc, and truncates to limit.
// Candidates outside the prompt subset carry heuristic scores.
func (o *Orchestrator) assemble(candidates []model.RestaurantCandidate, scores *ScoreResult, radius float64, limit int, degraded bool) *model.RecommendationsResponse {
	scored := make([]model.ScoredRestaurant, 0, len(candidates))
	for _, c := range candidates {
		entry, ok := scores.Scores[c.ID]
		if !ok {
			entry = ScoreEntry{MatchScore: o.scorer.Heuristic(c, radius)}
		}
		scored = append(scored, model.ScoredRestaurant{
			RestaurantCandidate: c,
			MatchScore:          entry.MatchScore,
			AIDescription:       entry.AIDescription,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].MatchScore != scored[j].MatchScore {
			return scored[i].MatchScore > scored[j].MatchScore
		}
		if scored[i].Rating != scored[j].Rating {
			return scored[i].Rating > scored[j].Rating
		}
		return scored[i].DistanceKm < scored[j].DistanceKm
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	return &model.RecommendationsResponse{
		Restaurants: scored,
		MatchScore:  scores.Overall,
		Degraded:    degraded,
	}
}

// recordInteraction hands a digest of the run to the history writer. The
// writer owns the record from here on; failures never reach the caller.
func (o *Orchestrator) recordInteraction(sessionID string, req *model.RecommendationRequest, resp *model.RecommendationsResponse) {
	if o.history == nil {
		return
	}

	location := strings.TrimSpace(req.Location)
	if location == "" && req.Coordinates != nil {
		location = fmt.Sprintf("%f, %f", req.Coordinates.Latitude, req.Coordinates.Longitude)
	}

	ids := make([]string, len(resp.Restaurants))
	for i, r := range resp.Restaurants {
		ids[i] = r.ID
	}

	o.history.Record(model.InteractionRecord{
		SessionID:  sessionID,
		UserID:     req.UserID,
		Timestamp:  time.Now().UTC(),
		Location:   location,
		Preference: req.Preference,
		ResultIDs:  ids,
		MatchScore: resp.MatchScore,
		Degraded:   resp.Degraded,
	})
}

func (o *Orchestrator) logStage(sessionID string, stage Stage) {
	log.Printf("[pipeline] session=%s stage=%s", sessionID, stage)
}
