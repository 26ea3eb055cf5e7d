package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/opennarrative/opennarrative/internal/config"
	"github.com/opennarrative/opennarrative/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCollectStoresPostsAndSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rss/search":
			fmt.Fprint(w, newsFeed)
		case "/api/twitter-search":
			fmt.Fprint(w, proxyPayload)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	db := openTestDB(t)
	cfg := &config.Config{
		Countries: map[string]string{"Moldova": "MD"},
		Sources: config.Sources{
			Proxy: config.ProxyConfig{Enabled: true, BaseURL: srv.URL},
			News:  config.NewsConfig{Enabled: true, Query: "disinformation"},
		},
	}

	c := NewCollector(cfg, db)
	c.news.baseURL = srv.URL

	input := database.AnalysisInput{
		Country:   "Moldova",
		TimeFrame: database.TimeFrame{Start: "2026-08-14", End: "2026-08-22"},
		Sources:   []string{SourceNews, SourceTwitter},
	}
	runID, err := db.InsertHistory(input, 20)
	if err != nil {
		t.Fatalf("insert history failed: %v", err)
	}

	r := c.Collect(context.Background(), runID, input)
	if r.NewPosts != 4 {
		t.Fatalf("expected 1 news + 3 twitter posts, got %d new", r.NewPosts)
	}
	if r.Sources[SourceNews] != 1 || r.Sources[SourceTwitter] != 3 {
		t.Errorf("unexpected per-source counts: %v", r.Sources)
	}

	stored, err := db.GetPostsForRun(runID)
	if err != nil {
		t.Fatalf("get posts failed: %v", err)
	}
	if len(stored) != 4 {
		t.Errorf("expected 4 stored posts, got %d", len(stored))
	}

	sources, _ := db.GetSearchSourcesForRun(runID)
	if len(sources) != 4 {
		t.Errorf("expected 4 grounding sources, got %d", len(sources))
	}

	// A second collection of the same feeds counts duplicates.
	r = c.Collect(context.Background(), runID, input)
	if r.NewPosts != 0 || r.Duplicates != 4 {
		t.Errorf("expected all duplicates on recollect, got %+v", r)
	}
}

func TestCollectSkipsUnrequestedSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/twitter-search" {
			t.Error("twitter source must not be queried when not requested")
		}
		fmt.Fprint(w, newsFeed)
	}))
	defer srv.Close()

	db := openTestDB(t)
	cfg := &config.Config{
		Countries: map[string]string{"Moldova": "MD"},
		Sources: config.Sources{
			Proxy: config.ProxyConfig{Enabled: true, BaseURL: srv.URL},
			News:  config.NewsConfig{Enabled: true},
		},
	}

	c := NewCollector(cfg, db)
	c.news.baseURL = srv.URL

	input := database.AnalysisInput{Country: "Moldova", Sources: []string{SourceNews}}
	r := c.Collect(context.Background(), 1, input)
	if r.Sources[SourceTwitter] != 0 {
		t.Error("expected no twitter posts")
	}
}
