// Package server exposes the dashboard JSON API, the taskforce brief
// pages, the export downloads, and the X search proxy.
package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/opennarrative/opennarrative/internal/analyze"
	"github.com/opennarrative/opennarrative/internal/config"
	"github.com/opennarrative/opennarrative/internal/dashboard"
	"github.com/opennarrative/opennarrative/internal/database"
	"github.com/opennarrative/opennarrative/internal/media"
	"github.com/opennarrative/opennarrative/internal/report"
)

//go:embed templates/*.html
var templateFS embed.FS

var md = goldmark.New()

// bearerTokenEnv holds the X API token used by the search proxy. The
// browser-facing API never sees it.
const bearerTokenEnv = "TWITTER_BEARER_TOKEN"

const twitterAPIBase = "https://api.twitter.com"

// Server is the HTTP server backing the dashboard.
type Server struct {
	db          *database.DB
	cfg         *config.Config
	composer    *analyze.Composer
	reports     *report.Generator
	briefPage   *template.Template
	mux         *http.ServeMux
	twitterBase string
	client      *http.Client
}

// New creates a server. The composer drafts assignment briefs on
// taskforce handover.
func New(db *database.DB, cfg *config.Config, composer *analyze.Composer) (*Server, error) {
	page, err := template.ParseFS(templateFS, "templates/brief.html")
	if err != nil {
		return nil, fmt.Errorf("parsing brief template: %w", err)
	}

	s := &Server{
		db:          db,
		cfg:         cfg,
		composer:    composer,
		reports:     report.NewGenerator(media.NewFetcher(0)),
		briefPage:   page,
		mux:         http.NewServeMux(),
		twitterBase: twitterAPIBase,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/narratives", s.handleNarratives)
	s.mux.HandleFunc("/api/narratives/", s.handleNarrativeAction)
	s.mux.HandleFunc("/api/taskforce", s.handleTaskforce)
	s.mux.HandleFunc("/api/metrics", s.handleMetrics)
	s.mux.HandleFunc("/api/history", s.handleHistory)
	s.mux.HandleFunc("/api/export/csv", s.handleExportCSV)
	s.mux.HandleFunc("/api/twitter-search", s.handleTwitterSearch)
	s.mux.HandleFunc("/brief/", s.handleBriefPage)
}

// GET /api/narratives?q=&risk=&sort=&dir=
func (s *Server) handleNarratives(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	narratives, err := s.db.GetNarratives()
	if err != nil {
		log.Printf("Error loading narratives: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	filtered := dashboard.Apply(narratives,
		q.Get("q"),
		dashboard.ParseBand(q.Get("risk")),
		dashboard.ParseSortKey(q.Get("sort")),
		dashboard.ParseDirection(q.Get("dir")),
	)
	if filtered == nil {
		filtered = []database.Narrative{}
	}
	writeJSON(w, filtered)
}

// Dispatches /api/narratives/{id}, /{id}/campaign, /{id}/assign and
// /{id}/report.pdf.
func (s *Server) handleNarrativeAction(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/narratives/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		http.NotFound(w, r)
		return
	}

	n, err := s.db.GetNarrative(id)
	if err != nil {
		log.Printf("Error loading narrative %s: %v", id, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if n == nil {
		http.Error(w, "narrative not found", http.StatusNotFound)
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, n)
	case "campaign":
		s.handleCampaign(w, r, n)
	case "assign":
		s.handleAssign(w, r, n)
	case "report.pdf":
		s.handleReportPDF(w, r, n)
	default:
		http.NotFound(w, r)
	}
}

// POST /api/narratives/{id}/campaign with {"campaign": "..."}
func (s *Server) handleCampaign(w http.ResponseWriter, r *http.Request, n *database.Narrative) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Campaign string `json:"campaign"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.Campaign) == "" {
		http.Error(w, "campaign is required", http.StatusBadRequest)
		return
	}

	if err := s.db.SetCampaign(n.ID, body.Campaign); err != nil {
		log.Printf("Error tagging campaign on %s: %v", n.ID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	n.Campaign = &body.Campaign
	writeJSON(w, n)
}

// POST /api/narratives/{id}/assign hands the narrative to the
// taskforce. Idempotent: a second assignment returns the existing item.
func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request, n *database.Narrative) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	itemID := "tf_" + n.ID

	// An already-assigned narrative keeps its original brief; skip the
	// provider call entirely.
	assigned, err := s.db.HasTaskforceItemForNarrative(n.ID)
	if err != nil {
		log.Printf("Error checking assignment for %s: %v", n.ID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if assigned {
		existing, err := s.db.GetTaskforceItem(itemID)
		if err != nil || existing == nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, existing)
		return
	}

	item := &database.TaskforceItem{
		ID:              itemID,
		NarrativeID:     n.ID,
		NarrativeTitle:  n.Title,
		AssignmentBrief: s.composer.ComposeBrief(r.Context(), n),
	}

	inserted, err := s.db.InsertTaskforceItem(item)
	if err != nil {
		log.Printf("Error assigning narrative %s: %v", n.ID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !inserted {
		existing, err := s.db.GetTaskforceItem(item.ID)
		if err != nil || existing == nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, existing)
		return
	}

	item.Posts = n.Posts
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, item)
}

// GET /api/narratives/{id}/report.pdf
func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request, n *database.Narrative) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := s.reports.Build(r.Context(), n)
	if err != nil {
		log.Printf("Error building report for %s: %v", n.ID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(n.Title)))
	w.Write(data)
}

// GET /api/taskforce
func (s *Server) handleTaskforce(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	items, err := s.db.GetTaskforceItems()
	if err != nil {
		log.Printf("Error loading taskforce items: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []database.TaskforceItem{}
	}
	writeJSON(w, items)
}

// GET /api/metrics: per-band counts, mean risk, and the number of
// distinct campaign tags in play.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	narratives, err := s.db.GetNarratives()
	if err != nil {
		log.Printf("Error loading narratives: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	metrics := map[string]any{"total": len(narratives), "critical": 0, "high": 0, "medium": 0, "low": 0}
	var riskSum float64
	campaigns := make(map[string]struct{})
	for _, n := range narratives {
		band := string(dashboard.Classify(n.RiskScore))
		metrics[band] = metrics[band].(int) + 1
		riskSum += n.RiskScore
		if n.Campaign != nil && strings.TrimSpace(*n.Campaign) != "" {
			campaigns[*n.Campaign] = struct{}{}
		}
	}

	avgRisk := 0.0
	if len(narratives) > 0 {
		avgRisk = math.Round(riskSum/float64(len(narratives))*10) / 10
	}
	metrics["avgRisk"] = avgRisk
	metrics["activeCampaigns"] = len(campaigns)
	writeJSON(w, metrics)
}

// GET /api/history lists past runs; DELETE clears them.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.db.GetHistory()
		if err != nil {
			log.Printf("Error loading history: %v", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if items == nil {
			items = []database.AnalysisHistoryItem{}
		}
		writeJSON(w, items)
	case http.MethodDelete:
		if err := s.db.ClearHistory(); err != nil {
			log.Printf("Error clearing history: %v", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET /api/export/csv downloads the current filtered view.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	narratives, err := s.db.GetNarratives()
	if err != nil {
		log.Printf("Error loading narratives: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	filtered := dashboard.Apply(narratives,
		q.Get("q"),
		dashboard.ParseBand(q.Get("risk")),
		dashboard.ParseSortKey(q.Get("sort")),
		dashboard.ParseDirection(q.Get("dir")),
	)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dashboard.ExportFilename))
	w.Write(dashboard.ExportCSV(filtered))
}

// GET /brief/{taskforceID} serves the human-readable assignment brief.
func (s *Server) handleBriefPage(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/brief/")
	if id == "" || r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	item, err := s.db.GetTaskforceItem(id)
	if err != nil {
		log.Printf("Error loading taskforce item %s: %v", id, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if item == nil {
		http.Error(w, "assignment not found", http.StatusNotFound)
		return
	}

	created := ""
	if item.CreatedAt != nil {
		created = *item.CreatedAt
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = s.briefPage.Execute(w, map[string]any{
		"Title":     item.NarrativeTitle,
		"Brief":     renderMarkdown(item.AssignmentBrief),
		"CreatedAt": created,
		"PostCount": len(item.Posts),
	})
	if err != nil {
		log.Printf("Error rendering brief %s: %v", id, err)
	}
}

// GET /api/twitter-search forwards searches to the X API with the
// server-held bearer token, scoping the query to the requested country.
func (s *Server) handleTwitterSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	query := q.Get("query")
	if query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	token := os.Getenv(bearerTokenEnv)
	if token == "" {
		log.Printf("%s not set; cannot reach the X API", bearerTokenEnv)
		http.Error(w, "search backend not configured", http.StatusInternalServerError)
		return
	}

	if country := q.Get("country"); country != "" {
		query += " place_country:" + country
	}

	upstream := fmt.Sprintf("%s/2/tweets/search/recent?query=%s&max_results=50",
		s.twitterBase, url.QueryEscape(query))
	if fields := q.Get("fields"); fields != "" {
		upstream += "&" + fields
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, upstream, nil)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("X API unreachable: %v", err)
		http.Error(w, "search backend unreachable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(ctx context.Context, db *database.DB, cfg *config.Config, composer *analyze.Composer) error {
	srv, err := New(db, cfg, composer)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	log.Printf("Server listening on http://%s", addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
