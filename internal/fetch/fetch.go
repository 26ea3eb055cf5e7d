// Package fetch enriches news posts with full article text extracted
// from their linked pages.
package fetch

import (
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/opennarrative/opennarrative/internal/database"
)

// minContentLength is the threshold below which a post is considered to
// have only a headline-sized snippet worth enriching, and above which
// an extraction is considered to have found real article text.
const minContentLength = 100

// Result holds the results of a content fetch run.
type Result struct {
	Fetched int
	Failed  int
}

// ContentFetcher fetches full article text via HTTP + readability
// extraction.
type ContentFetcher struct {
	db     *database.DB
	client *http.Client
}

// NewContentFetcher creates a content fetcher.
func NewContentFetcher(db *database.DB, timeout time.Duration) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ContentFetcher{
		db: db,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// EnrichRun fetches article text for the run's news posts that carry
// only snippets. A domain that fails once is skipped for the rest of
// the run.
func (f *ContentFetcher) EnrichRun(runID int64) *Result {
	posts, err := f.db.GetPostsNeedingContent(runID, minContentLength)
	if err != nil {
		log.Printf("Error listing posts needing content: %v", err)
		return &Result{}
	}
	if len(posts) == 0 {
		log.Println("No posts need content fetching")
		return &Result{}
	}

	result := &Result{}
	failedDomains := make(map[string]struct{})

	for _, post := range posts {
		u, _ := url.Parse(post.Link)
		domain := ""
		if u != nil {
			domain = strings.ToLower(u.Host)
		}

		if _, failed := failedDomains[domain]; failed {
			f.db.MarkPostFetchAttempted(post.ID)
			result.Failed++
			continue
		}

		content, httpErr := f.fetchContent(post.Link)
		if httpErr != nil {
			f.db.MarkPostFetchAttempted(post.ID)
			result.Failed++
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			log.Printf("HTTP error for %s, skipping remaining from %s", post.Link, domain)
			continue
		}

		if content != "" {
			f.db.UpdatePostContent(post.ID, content)
			result.Fetched++
			log.Printf("Fetched content for post %s", post.ID)
		} else {
			f.db.MarkPostFetchAttempted(post.ID)
			result.Failed++
			log.Printf("No extractable content from: %s", post.Link)
		}
	}

	log.Printf("Content fetch complete: %d fetched, %d failed", result.Fetched, result.Failed)
	return result
}

func (f *ContentFetcher) fetchContent(pageURL string) (string, error) {
	req, err := http.NewRequest("GET", pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "OpenNarrative/1.0 (narrative monitor)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil // connection error, not HTTP error
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil
	}

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(string(bodyBytes)), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) > minContentLength {
		return text, nil
	}
	return "", nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
