package collect

import (
	"crypto/sha1"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/opennarrative/opennarrative/internal/database"
)

const maxNewsItems = 20

// NewsCollector pulls headlines from the Google News RSS search feed
// for a country and time window.
type NewsCollector struct {
	parser  *gofeed.Parser
	query   string
	baseURL string
}

// NewNewsCollector creates a collector with the configured search
// query. An empty query falls back to general information-space terms.
func NewNewsCollector(query string) *NewsCollector {
	if query == "" {
		query = "disinformation OR propaganda OR \"influence operation\""
	}
	return &NewsCollector{
		parser:  gofeed.NewParser(),
		query:   query,
		baseURL: "https://news.google.com",
	}
}

// FetchPosts parses the country feed and returns posts inside the time
// window. Feed failures are logged and yield an empty slice.
func (n *NewsCollector) FetchPosts(countryCode string, window database.TimeFrame) ([]database.Post, []database.SearchSource) {
	feedURL := fmt.Sprintf(
		"%s/rss/search?q=%s&hl=en&gl=%s&ceid=%s:en",
		n.baseURL, url.QueryEscape(n.query), countryCode, countryCode,
	)

	feed, err := n.parser.ParseURL(feedURL)
	if err != nil {
		log.Printf("Failed to parse Google News feed for %s: %v", countryCode, err)
		return nil, nil
	}

	start, startErr := time.Parse("2006-01-02", window.Start)
	end, endErr := time.Parse("2006-01-02", window.End)
	hasWindow := startErr == nil && endErr == nil
	end = end.AddDate(0, 0, 1) // window end is inclusive

	var posts []database.Post
	var sources []database.SearchSource
	for _, item := range feed.Items {
		if len(posts) >= maxNewsItems {
			break
		}
		post := parseNewsItem(item)
		if post == nil {
			continue
		}
		if hasWindow && !withinWindow(post.Timestamp, start, end) {
			continue
		}
		posts = append(posts, *post)
		sources = append(sources, database.SearchSource{URI: post.Link, Title: post.Content})
	}

	log.Printf("Parsed %d news posts for %s (window %s to %s)", len(posts), countryCode, window.Start, window.End)
	return posts, sources
}

func parseNewsItem(item *gofeed.Item) *database.Post {
	link := item.Link
	if link == "" {
		link = item.GUID
	}
	title := strings.TrimSpace(item.Title)
	if link == "" || title == "" {
		return nil
	}

	var published string
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.Format("2006-01-02")
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed.Format("2006-01-02")
	}

	author := "Google News"
	// Google News appends " - Publisher" to titles.
	if idx := strings.LastIndex(title, " - "); idx > 0 {
		author = title[idx+3:]
		title = title[:idx]
	}

	summary := stripHTML(item.Description)
	content := title
	if summary != "" && summary != title {
		content = title + ". " + summary
	}

	return &database.Post{
		ID:        "news_" + shortHash(link),
		Source:    "News",
		Author:    author,
		Content:   content,
		Timestamp: published,
		Link:      link,
	}
}

func withinWindow(published string, start, end time.Time) bool {
	if published == "" {
		return true // benefit of the doubt
	}
	pub, err := time.Parse("2006-01-02", published)
	if err != nil {
		return true
	}
	return !pub.Before(start) && pub.Before(end)
}

func shortHash(s string) string {
	sum := sha1.Sum([]byte(s))
	return fmt.Sprintf("%x", sum[:8])
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
