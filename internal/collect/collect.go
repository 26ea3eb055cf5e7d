// Package collect gathers raw posts for an analysis run from the
// configured sources: the Google News RSS search feed and the X search
// proxy. Collection is best effort: a failing source logs and
// contributes nothing, it never aborts the run.
package collect

import (
	"context"
	"log"

	"github.com/opennarrative/opennarrative/internal/config"
	"github.com/opennarrative/opennarrative/internal/database"
)

// Source labels as they appear in analysis inputs and history.
const (
	SourceNews    = "Google News / Search"
	SourceTwitter = "X / Twitter"
)

// Result holds the outcome of a collection run.
type Result struct {
	TotalFound int
	NewPosts   int
	Duplicates int
	Sources    map[string]int
}

// Collector orchestrates post collection from all enabled sources.
type Collector struct {
	db      *database.DB
	cfg     *config.Config
	news    *NewsCollector
	twitter *ProxyClient
}

// NewCollector wires collectors for the sources enabled in config.
func NewCollector(cfg *config.Config, db *database.DB) *Collector {
	c := &Collector{db: db, cfg: cfg}
	if cfg.Sources.News.Enabled {
		c.news = NewNewsCollector(cfg.Sources.News.Query)
	}
	if cfg.Sources.Proxy.Enabled {
		c.twitter = NewProxyClient(cfg.Sources.Proxy.BaseURL)
	}
	return c
}

// Collect fetches posts for the run's country and window from every
// source the input requests, stores them, and records the grounding
// sources.
func (c *Collector) Collect(ctx context.Context, runID int64, input database.AnalysisInput) *Result {
	r := &Result{Sources: make(map[string]int)}
	countryCode := c.cfg.CountryCode(input.Country)
	requested := make(map[string]bool, len(input.Sources))
	for _, s := range input.Sources {
		requested[s] = true
	}

	if c.news != nil && requested[SourceNews] {
		log.Printf("Collecting news for %s...", input.Country)
		posts, sources := c.news.FetchPosts(countryCode, input.TimeFrame)
		c.store(runID, posts, sources, r, SourceNews)
	}

	if c.twitter != nil && requested[SourceTwitter] {
		log.Printf("Collecting X posts for %s...", input.Country)
		posts, sources := c.twitter.FetchPosts(ctx, countryCode)
		c.store(runID, posts, sources, r, SourceTwitter)
	}

	log.Printf("Collection complete: %d found, %d new, %d duplicates", r.TotalFound, r.NewPosts, r.Duplicates)
	return r
}

func (c *Collector) store(runID int64, posts []database.Post, sources []database.SearchSource, r *Result, label string) {
	r.TotalFound += len(posts)
	for i := range posts {
		posts[i].RunID = &runID
		inserted, err := c.db.InsertPost(&posts[i])
		if err != nil {
			log.Printf("Failed to store post %s: %v", posts[i].ID, err)
			continue
		}
		if inserted {
			r.NewPosts++
			r.Sources[label]++
		} else {
			r.Duplicates++
		}
	}
	for _, s := range sources {
		if err := c.db.InsertSearchSource(runID, s); err != nil {
			log.Printf("Failed to store search source %s: %v", s.URI, err)
		}
	}
}
