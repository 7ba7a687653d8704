package resolve

import (
	"context"
	"testing"
)

func suggestedIDs(suggestions []Suggestion) []string {
	ids := make([]string, len(suggestions))
	for i, s := range suggestions {
		ids[i] = s.Service.ID()
	}
	return ids
}

func TestSuggestOptionalDependency(t *testing.T) {
	r := newTestResolver(t)

	suggestions, err := r.Suggest(context.Background(), refs("auth/clerk"), Options{})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(suggestions) == 0 {
		t.Fatal("expected suggestions for auth/clerk")
	}

	// email/resend is both clerk's optional dependency and a saas-starter
	// co-member, so the accumulated score puts it first.
	top := suggestions[0]
	if top.Service.ID() != "email/resend" {
		t.Errorf("top suggestion = %s, want email/resend", top.Service.ID())
	}
	if !top.Optional {
		t.Error("optional-dependency suggestions should be flagged optional")
	}
	if top.Score <= 0.5 || top.Score > 1 {
		t.Errorf("accumulated score = %v, want in (0.5, 1]", top.Score)
	}
	if top.Reason == "" {
		t.Error("suggestion should explain itself")
	}

	// payments/stripe arrives through the bundle signal alone.
	ids := suggestedIDs(suggestions)
	found := false
	for i, id := range ids {
		if id == "payments/stripe" {
			found = true
			if suggestions[i].Score >= top.Score {
				t.Error("bundle-only signal should rank below the combined signal")
			}
		}
	}
	if !found {
		t.Errorf("bundle co-member missing from %v", ids)
	}
}

func TestSuggestSkipsCoveredTypes(t *testing.T) {
	r := newTestResolver(t)

	suggestions, err := r.Suggest(context.Background(), refs("auth/clerk", "payments/stripe"), Options{})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	for _, s := range suggestions {
		if s.Service.Type == "auth" {
			t.Errorf("suggested %s for a selection that already has an auth provider", s.Service.ID())
		}
	}
}

func TestSuggestFiltersConflicts(t *testing.T) {
	r := newTestResolver(t)

	// The observability bundle pairs sentry with posthog, but they declare
	// a conflict, so the co-member signal must be discarded.
	suggestions, err := r.Suggest(context.Background(), refs("monitoring/sentry"), Options{})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	for _, s := range suggestions {
		if s.Service.ID() == "analytics/posthog" {
			t.Error("conflicting service suggested")
		}
	}
}

func TestSuggestFrameworkFilter(t *testing.T) {
	r := newTestResolver(t)

	suggestions, err := r.Suggest(context.Background(), refs("payments/stripe"), Options{Framework: "remix"})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	for _, s := range suggestions {
		switch s.Service.ID() {
		case "auth/clerk", "auth/lucia":
			t.Errorf("%s does not support remix and should not be suggested", s.Service.ID())
		}
	}
}

func TestSuggestSortedByScore(t *testing.T) {
	r := newTestResolver(t)

	suggestions, err := r.Suggest(context.Background(), refs("auth/clerk"), Options{})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	for i := 1; i < len(suggestions); i++ {
		prev, cur := suggestions[i-1], suggestions[i]
		if cur.Score > prev.Score {
			t.Fatalf("not sorted by score: %v before %v", prev.Score, cur.Score)
		}
		if cur.Score == prev.Score && cur.Service.ID() < prev.Service.ID() {
			t.Fatalf("equal scores not sorted by ID: %s before %s", prev.Service.ID(), cur.Service.ID())
		}
	}
}

func TestSuggestNothingForCompleteSelection(t *testing.T) {
	r := newTestResolver(t)

	// cache/redis sits in no bundle and nothing declares it optional, so
	// selecting it alone yields no signals.
	suggestions, err := r.Suggest(context.Background(), refs("cache/redis"), Options{})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(suggestions) != 0 {
		t.Errorf("suggestions = %v, want none", suggestedIDs(suggestions))
	}
}
