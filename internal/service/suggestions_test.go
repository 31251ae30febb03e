package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

type fakeHistoryLookup struct {
	similar []string
	err     error
}

func (f *fakeHistoryLookup) SimilarPreferences(ctx context.Context, userID string, limit int) ([]string, error) {
	return f.similar, f.err
}

func TestSuggestDefaultsWhenDisabled(t *testing.T) {
	s := NewSuggestionService(&fakeAIClient{enabled: false}, nil)
	got := s.Suggest(context.Background(), "", 3)
	if len(got) != 3 {
		t.Fatalf("Suggest() returned %d suggestions, want 3", len(got))
	}
	for i, want := range defaultSuggestions[:3] {
		if got[i] != want {
			t.Errorf("Suggest()[%d] = %q, want %q", i, got[i], want)
		}
	}
}

func TestSuggestParsesModelOutput(t *testing.T) {
	ai := &fakeAIClient{enabled: true, replies: []string{
		"1. Spicy Korean fried chicken\n- Fresh poke bowls\n\n* Authentic Neapolitan pizza\nExtra line beyond count",
	}}
	s := NewSuggestionService(ai, nil)
	got := s.Suggest(context.Background(), "", 3)
	want := []string{"Spicy Korean fried chicken", "Fresh poke bowls", "Authentic Neapolitan pizza"}
	if len(got) != 3 {
		t.Fatalf("Suggest() = %v, want 3 entries", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Suggest()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSuggestSeedsPromptFromHistory(t *testing.T) {
	ai := &fakeAIClient{enabled: true, replies: []string{"Laksa\nRendang\nSoto"}}
	s := NewSuggestionService(ai, &fakeHistoryLookup{similar: []string{"spicy noodles", "padang food"}})
	s.Suggest(context.Background(), "user-7", 3)

	if ai.calls != 1 {
		t.Fatalf("model called %d times, want 1", ai.calls)
	}
	if !strings.Contains(ai.lastPrompt, "spicy noodles") || !strings.Contains(ai.lastPrompt, "padang food") {
		t.Errorf("prompt missing history seed: %q", ai.lastPrompt)
	}
}

func TestSuggestFallsBackOnModelFailure(t *testing.T) {
	ai := &fakeAIClient{enabled: true, errs: []error{fmt.Errorf("model down")}}
	s := NewSuggestionService(ai, &fakeHistoryLookup{err: fmt.Errorf("db down")})
	got := s.Suggest(context.Background(), "user-7", 5)
	if len(got) != 5 {
		t.Fatalf("Suggest() returned %d suggestions, want the 5 defaults", len(got))
	}
	if got[0] != defaultSuggestions[0] {
		t.Errorf("Suggest()[0] = %q, want default", got[0])
	}
}

func TestSuggestClampsCount(t *testing.T) {
	s := NewSuggestionService(&fakeAIClient{enabled: false}, nil)
	if got := s.Suggest(context.Background(), "", 99); len(got) != 5 {
		t.Errorf("Suggest(99) returned %d suggestions, want 5", len(got))
	}
	if got := s.Suggest(context.Background(), "", -1); len(got) != 5 {
		t.Errorf("Suggest(-1) returned %d suggestions, want 5", len(got))
	}
}
