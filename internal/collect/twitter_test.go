package collect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const proxyPayload = `{
  "data": [
    {"id": "100", "text": "Breaking news about the election", "created_at": "2026-08-21T14:03:00.000Z", "author_id": "u1",
     "attachments": {"media_keys": ["m1"]}},
    {"id": "101", "text": "Another headline", "created_at": "2026-08-22T09:00:00.000Z", "author_id": "u2",
     "attachments": {"media_keys": ["m2"]}},
    {"id": "102", "text": "Post from a deleted account", "created_at": "2026-08-22T10:00:00.000Z", "author_id": "ghost"}
  ],
  "includes": {
    "users": [
      {"id": "u1", "name": "Jane Doe", "username": "janedoe"},
      {"id": "u2", "name": "News Desk", "username": "newsdesk"}
    ],
    "media": [
      {"media_key": "m1", "type": "photo", "url": "https://pbs.example/img.jpg"},
      {"media_key": "m2", "type": "video", "preview_image_url": "https://pbs.example/preview.jpg"}
    ]
  }
}`

func TestFetchPostsMapsTweets(t *testing.T) {
	var gotQuery, gotCountry, gotFields string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/twitter-search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("query")
		gotCountry = r.URL.Query().Get("country")
		gotFields = r.URL.Query().Get("fields")
		w.Write([]byte(proxyPayload))
	}))
	defer srv.Close()

	posts, sources := NewProxyClient(srv.URL).FetchPosts(context.Background(), "MD")

	if gotQuery != broadQuery {
		t.Errorf("unexpected query forwarded: %q", gotQuery)
	}
	if gotCountry != "MD" {
		t.Errorf("expected country MD, got %q", gotCountry)
	}
	if gotFields != twitterFields {
		t.Errorf("unexpected fields: %q", gotFields)
	}

	if len(posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(posts))
	}

	p := posts[0]
	if p.ID != "twitter_100" || p.Source != "Twitter" {
		t.Errorf("unexpected identity: %+v", p)
	}
	if p.Author != "Jane Doe (@janedoe)" {
		t.Errorf("unexpected author: %q", p.Author)
	}
	if p.Link != "https://twitter.com/janedoe/status/100" {
		t.Errorf("unexpected link: %q", p.Link)
	}
	if p.Timestamp != "2026-08-21" {
		t.Errorf("expected date-only timestamp, got %q", p.Timestamp)
	}
	if p.ImageURL == nil || *p.ImageURL != "https://pbs.example/img.jpg" {
		t.Error("expected photo url as image")
	}
	if p.VideoURL != nil {
		t.Error("photo attachment must not set a video url")
	}

	// Video attachments surface the preview image and link back to the tweet.
	v := posts[1]
	if v.ImageURL == nil || *v.ImageURL != "https://pbs.example/preview.jpg" {
		t.Error("expected video preview as image")
	}
	if v.VideoURL == nil || *v.VideoURL != "https://twitter.com/newsdesk/status/101" {
		t.Error("expected tweet url as video link")
	}

	// Unresolvable authors fall back without breaking the link.
	g := posts[2]
	if g.Author != "Unknown User" {
		t.Errorf("expected Unknown User, got %q", g.Author)
	}
	if g.Link != "https://twitter.com/anyuser/status/102" {
		t.Errorf("unexpected fallback link: %q", g.Link)
	}

	if len(sources) != 3 {
		t.Fatalf("expected a source per tweet, got %d", len(sources))
	}
	if sources[0].URI != posts[0].Link {
		t.Error("source uri must match the tweet link")
	}
	if sources[0].Title != `Tweet by Jane Doe (@janedoe): "Breaking news about the election..."` {
		t.Errorf("unexpected source title: %q", sources[0].Title)
	}
}

func TestFetchPostsOnlyFirstAttachmentCounts(t *testing.T) {
	payload := `{
	  "data": [
	    {"id": "200", "text": "Two attachments", "created_at": "2026-08-23T08:00:00.000Z", "author_id": "u1",
	     "attachments": {"media_keys": ["gone", "m1"]}}
	  ],
	  "includes": {
	    "users": [{"id": "u1", "name": "Jane Doe", "username": "janedoe"}],
	    "media": [{"media_key": "m1", "type": "photo", "url": "https://pbs.example/second.jpg"}]
	  }
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	posts, _ := NewProxyClient(srv.URL).FetchPosts(context.Background(), "US")
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	// The first key does not resolve, so the post carries no image even
	// though a later key would.
	if posts[0].ImageURL != nil {
		t.Errorf("expected no image from a secondary attachment, got %q", *posts[0].ImageURL)
	}
}

func TestFetchPostsProxyNotRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	posts, sources := NewProxyClient(srv.URL).FetchPosts(context.Background(), "US")
	if posts != nil || sources != nil {
		t.Error("404 must degrade to an empty result")
	}
}

func TestFetchPostsAPIErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors": [{"title": "Unauthorized", "detail": "bad token"}]}`))
	}))
	defer srv.Close()

	posts, _ := NewProxyClient(srv.URL).FetchPosts(context.Background(), "US")
	if posts != nil {
		t.Error("API error payload must degrade to an empty result")
	}
}

func TestFetchPostsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	posts, _ := NewProxyClient(srv.URL).FetchPosts(context.Background(), "US")
	if posts != nil {
		t.Error("5xx must degrade to an empty result")
	}
}

func TestFetchPostsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	posts, _ := NewProxyClient(srv.URL).FetchPosts(context.Background(), "US")
	if posts != nil {
		t.Error("connection failure must degrade to an empty result")
	}
}
