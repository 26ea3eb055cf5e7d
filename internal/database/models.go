package database

// Narrative statuses.
const (
	StatusPending  = "pending"
	StatusComplete = "complete"
	StatusError    = "error"
)

// Narrative is a tracked unit of information-operations content.
// Mutated only by campaign assignment; never deleted by this layer.
type Narrative struct {
	ID                   string               `json:"id"`
	Title                string               `json:"title"`
	Summary              string               `json:"summary"`
	RiskScore            float64              `json:"riskScore"`
	Status               string               `json:"status"`
	Campaign             *string              `json:"campaign,omitempty"`
	DMMIReport           *DMMIReport          `json:"dmmiReport,omitempty"`
	DisarmAnalysis       *DisarmAnalysis      `json:"disarmAnalysis,omitempty"`
	TrendData            []TrendPoint         `json:"trendData,omitempty"`
	CounterOpportunities []CounterOpportunity `json:"counterOpportunities,omitempty"`
	Posts                []Post               `json:"posts,omitempty"`
	RunID                *int64               `json:"-"`
	CreatedAt            *string              `json:"-"`
}

// DMMIReport is a structured assessment attached to a narrative.
type DMMIReport struct {
	Classification     string  `json:"classification"`
	VeracityScore      float64 `json:"veracityScore"`
	HarmScore          float64 `json:"harmScore"`
	ProbabilityScore   float64 `json:"probabilityScore"`
	Intent             string  `json:"intent"`
	Veracity           string  `json:"veracity"`
	SuccessProbability float64 `json:"successProbability"`
	Rationale          string  `json:"rationale"`
}

// DisarmAnalysis is a DISARM tactic/technique breakdown.
type DisarmAnalysis struct {
	Phase      string   `json:"phase"`
	Confidence string   `json:"confidence"`
	Tactics    []string `json:"tactics"`
	Techniques []string `json:"techniques"`
}

// TrendPoint is one day of post volume.
type TrendPoint struct {
	Date   string `json:"date"`
	Volume int    `json:"volume"`
}

// CounterOpportunity is a suggested response tactic.
type CounterOpportunity struct {
	Tactic    string `json:"tactic"`
	Rationale string `json:"rationale"`
}

// Post is a single social/news post. Immutable once fetched.
type Post struct {
	ID          string  `json:"id"`
	NarrativeID *string `json:"-"`
	RunID       *int64  `json:"-"`
	Source      string  `json:"source"`
	Author      string  `json:"author"`
	Content     string  `json:"content"`
	Timestamp   string  `json:"timestamp"`
	Link        string  `json:"link"`
	ImageURL    *string `json:"imageUrl,omitempty"`
	VideoURL    *string `json:"videoUrl,omitempty"`
}

// SearchSource is a provenance record shown to the analyst.
type SearchSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// TimeFrame is an inclusive date range (YYYY-MM-DD).
type TimeFrame struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// AnalysisInput carries the parameters of one analysis run.
type AnalysisInput struct {
	Country   string    `json:"country"`
	TimeFrame TimeFrame `json:"timeFrame"`
	Sources   []string  `json:"sources"`
}

// AnalysisHistoryItem is one entry of the append-only run log.
type AnalysisHistoryItem struct {
	ID        int64         `json:"id"`
	Timestamp string        `json:"timestamp"`
	Inputs    AnalysisInput `json:"inputs"`
}

// TaskforceItem is a narrative assigned for response action.
// Never mutated after creation.
type TaskforceItem struct {
	ID              string  `json:"id"`
	NarrativeID     string  `json:"narrativeId"`
	NarrativeTitle  string  `json:"narrativeTitle"`
	AssignmentBrief string  `json:"assignmentBrief"`
	Posts           []Post  `json:"posts"`
	CreatedAt       *string `json:"-"`
}

// Stats contains aggregate database statistics.
type Stats struct {
	Narratives         int
	ScoredNarratives   int
	CriticalNarratives int
	Posts              int
	TaskforceItems     int
	HistoryEntries     int
}
