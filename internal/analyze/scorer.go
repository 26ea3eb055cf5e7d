package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/opennarrative/opennarrative/internal/database"
	"github.com/opennarrative/opennarrative/internal/llm"
)

const scoringPrompt = `You are an information-operations analyst monitoring the media space of %s between %s and %s.

Group the posts below into distinct narratives: recurring claims or storylines pushed across posts. For each narrative, assess it with the DMMI framework (intent, veracity, harm) and map it to the DISARM phase it is most likely executing.

Posts:
%s

Respond with ONLY this JSON:
{
    "narratives": [
        {
            "title": "Short narrative title",
            "summary": "2-3 sentence summary of the claim and how it spreads",
            "risk_score": 0.0-10.0,
            "post_ids": ["ids of the posts carrying this narrative"],
            "dmmi_report": {
                "classification": "Disinformation" | "Misinformation" | "Malinformation" | "Information",
                "veracity_score": 0-10,
                "harm_score": 0-10,
                "probability_score": 0-10,
                "intent": "Deliberate" | "Unintentional" | "Unclear",
                "veracity": "False" | "Misleading" | "Unverified" | "True",
                "success_probability": 0-100,
                "rationale": "One paragraph explaining the assessment"
            },
            "disarm_analysis": {
                "phase": "Plan" | "Prepare" | "Execute" | "Assess",
                "confidence": "High" | "Medium" | "Low",
                "tactics": ["TA.. codes"],
                "techniques": ["T.. codes"]
            },
            "counter_opportunities": [
                {"tactic": "Counter tactic name", "rationale": "Why it applies here"}
            ]
        }
    ]
}

risk_score: 10 = active, coordinated, high-harm operation; 0 = benign coverage.`

// maxPostsInPrompt caps the prompt size for small local models.
const maxPostsInPrompt = 40

// Scorer groups an analysis run's posts into risk-scored narratives.
type Scorer struct {
	db       *database.DB
	provider llm.Provider
}

// NewScorer creates a narrative scorer.
func NewScorer(db *database.DB, provider llm.Provider) *Scorer {
	return &Scorer{db: db, provider: provider}
}

// ScoreResult holds the outcome of a scoring run.
type ScoreResult struct {
	NarrativesCreated int
	PostsAttached     int
	Errors            int
}

// ScoreRun turns the run's unattached posts into scored narratives.
func (s *Scorer) ScoreRun(ctx context.Context, runID int64, input database.AnalysisInput) *ScoreResult {
	if s.provider == nil {
		log.Println("No LLM provider available for scoring")
		return &ScoreResult{Errors: 1}
	}

	posts, err := s.db.GetPostsForRun(runID)
	if err != nil {
		log.Printf("Error getting posts for run %d: %v", runID, err)
		return &ScoreResult{Errors: 1}
	}
	if len(posts) == 0 {
		log.Println("No posts to score")
		return &ScoreResult{}
	}
	if len(posts) > maxPostsInPrompt {
		posts = posts[:maxPostsInPrompt]
	}

	prompt := fmt.Sprintf(scoringPrompt,
		input.Country, input.TimeFrame.Start, input.TimeFrame.End, formatPosts(posts))

	responseText, err := s.provider.Generate(ctx, prompt, 4096)
	if err != nil {
		log.Printf("Scoring LLM call failed: %v", err)
		return &ScoreResult{Errors: 1}
	}

	parsed := llm.ParseJSONResponse(responseText)
	if parsed == nil {
		log.Println("Scoring response could not be parsed")
		return &ScoreResult{Errors: 1}
	}

	byID := make(map[string]database.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	r := &ScoreResult{}
	for i, raw := range getSlice(parsed, "narratives") {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		n := buildNarrative(obj, runID, i+1)
		attached := resolvePosts(obj, byID)
		n.TrendData = buildTrend(attached)

		if err := s.db.InsertNarrative(n); err != nil {
			log.Printf("Error storing narrative %s: %v", n.ID, err)
			r.Errors++
			continue
		}
		for _, p := range attached {
			if err := s.db.AttachPostToNarrative(p.ID, n.ID); err != nil {
				log.Printf("Error attaching post %s: %v", p.ID, err)
				continue
			}
			r.PostsAttached++
		}
		r.NarrativesCreated++
		log.Printf("Scored narrative [%.1f]: %s", n.RiskScore, n.Title)
	}

	log.Printf("Scoring complete: %d narratives, %d posts attached, %d errors",
		r.NarrativesCreated, r.PostsAttached, r.Errors)
	return r
}

func buildNarrative(obj map[string]any, runID int64, ordinal int) *database.Narrative {
	n := &database.Narrative{
		ID:        fmt.Sprintf("narr_%d_%d", runID, ordinal),
		Title:     getString(obj, "title", "Untitled narrative"),
		Summary:   getString(obj, "summary", ""),
		RiskScore: clampScore(getFloat(obj, "risk_score", 0)),
		Status:    database.StatusComplete,
		RunID:     &runID,
	}

	if rep, ok := obj["dmmi_report"].(map[string]any); ok {
		n.DMMIReport = &database.DMMIReport{
			Classification:     getString(rep, "classification", "N/A"),
			VeracityScore:      clampScore(getFloat(rep, "veracity_score", 0)),
			HarmScore:          clampScore(getFloat(rep, "harm_score", 0)),
			ProbabilityScore:   clampScore(getFloat(rep, "probability_score", 0)),
			Intent:             getString(rep, "intent", "Unclear"),
			Veracity:           getString(rep, "veracity", "Unverified"),
			SuccessProbability: clampPercent(getFloat(rep, "success_probability", 0)),
			Rationale:          getString(rep, "rationale", ""),
		}
	}

	if da, ok := obj["disarm_analysis"].(map[string]any); ok {
		n.DisarmAnalysis = &database.DisarmAnalysis{
			Phase:      getString(da, "phase", ""),
			Confidence: getString(da, "confidence", "Low"),
			Tactics:    getStrings(da, "tactics"),
			Techniques: getStrings(da, "techniques"),
		}
	}

	for _, raw := range getSlice(obj, "counter_opportunities") {
		co, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		n.CounterOpportunities = append(n.CounterOpportunities, database.CounterOpportunity{
			Tactic:    getString(co, "tactic", ""),
			Rationale: getString(co, "rationale", ""),
		})
	}

	return n
}

func resolvePosts(obj map[string]any, byID map[string]database.Post) []database.Post {
	var out []database.Post
	for _, raw := range getSlice(obj, "post_ids") {
		id, ok := raw.(string)
		if !ok {
			continue
		}
		if p, found := byID[id]; found {
			out = append(out, p)
		}
	}
	return out
}

// buildTrend counts posts per day, sorted ascending by date.
func buildTrend(posts []database.Post) []database.TrendPoint {
	counts := make(map[string]int)
	for _, p := range posts {
		if p.Timestamp != "" {
			counts[p.Timestamp]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	dates := make([]string, 0, len(counts))
	for d := range counts {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	trend := make([]database.TrendPoint, len(dates))
	for i, d := range dates {
		trend[i] = database.TrendPoint{Date: d, Volume: counts[d]}
	}
	return trend
}

func formatPosts(posts []database.Post) string {
	var parts []string
	for _, p := range posts {
		content := p.Content
		if runes := []rune(content); len(runes) > 600 {
			content = string(runes[:600]) + "..."
		}
		parts = append(parts, fmt.Sprintf("[%s] %s | %s (%s)\n  %s",
			p.ID, p.Source, p.Author, p.Timestamp, content))
	}
	return strings.Join(parts, "\n\n")
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func getString(m map[string]any, key, fallback string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

func getFloat(m map[string]any, key string, fallback float64) float64 {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
	}
	return fallback
}

func getStrings(m map[string]any, key string) []string {
	var out []string
	for _, raw := range getSlice(m, key) {
		if s, ok := raw.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func getSlice(m map[string]any, key string) []any {
	if v, ok := m[key]; ok {
		if arr, ok := v.([]any); ok {
			return arr
		}
	}
	return nil
}
