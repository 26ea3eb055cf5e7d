package analyze

import (
	"context"
	"testing"

	"github.com/opennarrative/opennarrative/internal/config"
	"github.com/opennarrative/opennarrative/internal/database"
)

func TestRunRecordsHistoryAndSteps(t *testing.T) {
	db := openTestDB(t)
	cfg := &config.Config{
		Countries: map[string]string{"Moldova": "MD"},
		History:   config.History{Max: 20},
		// Both sources disabled: the collect step is a structural no-op.
	}

	runner := NewWithProvider(cfg, db, &mockProvider{response: `{"narratives": []}`})
	input := database.AnalysisInput{
		Country:   "Moldova",
		TimeFrame: database.TimeFrame{Start: "2026-08-14", End: "2026-08-21"},
		Sources:   []string{"Google News / Search"},
	}

	res, err := runner.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.RunID == 0 {
		t.Error("expected a run id")
	}
	if len(res.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(res.Steps))
	}
	for _, s := range []string{"Collect", "Enrich", "Score"} {
		found := false
		for _, step := range res.Steps {
			if step.Name == s {
				found = true
			}
		}
		if !found {
			t.Errorf("missing step %s", s)
		}
	}

	history, err := db.GetHistory()
	if err != nil {
		t.Fatalf("get history failed: %v", err)
	}
	if len(history) != 1 || history[0].Inputs.Country != "Moldova" {
		t.Errorf("expected run recorded in history, got %v", history)
	}
}
