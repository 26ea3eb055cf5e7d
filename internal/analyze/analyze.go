// Package analyze runs the narrative analysis pipeline: record the run,
// collect posts, enrich news content, then score posts into narratives.
// Steps run sequentially and each is attempted once; a failed step is
// reported, never retried.
package analyze

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/opennarrative/opennarrative/internal/collect"
	"github.com/opennarrative/opennarrative/internal/config"
	"github.com/opennarrative/opennarrative/internal/database"
	"github.com/opennarrative/opennarrative/internal/fetch"
	"github.com/opennarrative/opennarrative/internal/llm"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full analysis run.
type Result struct {
	RunID int64
	Steps []StepResult
}

// Runner orchestrates the 3-step analysis pipeline.
type Runner struct {
	cfg      *config.Config
	db       *database.DB
	provider llm.Provider
}

// New creates an analysis runner, resolving the LLM provider from
// config.
func New(cfg *config.Config, db *database.DB) *Runner {
	sc := cfg.Scoring
	provider := llm.CreateProvider(sc.Provider, sc.Model, sc.OllamaURL, sc.OpenAIModel, sc.APIKeyEnv)
	return &Runner{cfg: cfg, db: db, provider: provider}
}

// NewWithProvider creates a runner with an explicit provider.
func NewWithProvider(cfg *config.Config, db *database.DB, provider llm.Provider) *Runner {
	return &Runner{cfg: cfg, db: db, provider: provider}
}

// Provider exposes the resolved LLM provider for brief composition.
func (r *Runner) Provider() llm.Provider {
	return r.provider
}

// Run executes a full analysis for the given inputs. The run is
// recorded in history first so its posts and narratives always have a
// run to hang off, even when later steps fail.
func (r *Runner) Run(ctx context.Context, input database.AnalysisInput) (*Result, error) {
	runID, err := r.db.InsertHistory(input, r.cfg.History.Max)
	if err != nil {
		return nil, fmt.Errorf("recording analysis run: %w", err)
	}
	res := &Result{RunID: runID}

	log.Println("Step 1/3: Collecting posts...")
	collector := collect.NewCollector(r.cfg, r.db)
	cr := collector.Collect(ctx, runID, input)
	res.Steps = append(res.Steps, StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("Found %d new posts (%d total, %d duplicates)", cr.NewPosts, cr.TotalFound, cr.Duplicates),
	})

	log.Println("Step 2/3: Enriching news content...")
	fetcher := fetch.NewContentFetcher(r.db, 15*time.Second)
	fr := fetcher.EnrichRun(runID)
	res.Steps = append(res.Steps, StepResult{
		Name:    "Enrich",
		Summary: fmt.Sprintf("Fetched %d articles, %d failed", fr.Fetched, fr.Failed),
	})

	log.Println("Step 3/3: Scoring narratives...")
	scorer := NewScorer(r.db, r.provider)
	sr := scorer.ScoreRun(ctx, runID, input)
	step := StepResult{
		Name:    "Score",
		Summary: fmt.Sprintf("Created %d narratives from %d posts", sr.NarrativesCreated, sr.PostsAttached),
	}
	if sr.Errors > 0 && sr.NarrativesCreated == 0 {
		step.Err = fmt.Errorf("scoring produced no narratives (%d errors)", sr.Errors)
	}
	res.Steps = append(res.Steps, step)

	return res, nil
}
