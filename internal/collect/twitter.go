package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/opennarrative/opennarrative/internal/database"
)

// broadQuery casts a wide net over general discourse. Country targeting
// is applied server-side by the proxy, which appends a place_country
// operator.
const broadQuery = `("top stories" OR "breaking news" OR "headlines" OR "public debate") lang:en -is:retweet`

// twitterFields is the exact field selection the proxy forwards to the
// X API: timestamps and attachments on tweets, author expansion for
// display names, and media expansion for image/video URLs.
const twitterFields = "tweet.fields=created_at,attachments&expansions=author_id,attachments.media_keys&user.fields=name,username&media.fields=type,url,preview_image_url"

// ProxyClient fetches posts from X via the local search proxy, which
// holds the bearer token. Fetch degrades to an empty result on every
// failure: a dead proxy must not sink an analysis run.
type ProxyClient struct {
	baseURL string
	client  *http.Client
}

// NewProxyClient creates a client against the proxy base URL.
func NewProxyClient(baseURL string) *ProxyClient {
	return &ProxyClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type twitterResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Text        string `json:"text"`
		CreatedAt   string `json:"created_at"`
		AuthorID    string `json:"author_id"`
		Attachments *struct {
			MediaKeys []string `json:"media_keys"`
		} `json:"attachments"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Username string `json:"username"`
		} `json:"users"`
		Media []struct {
			MediaKey        string `json:"media_key"`
			Type            string `json:"type"`
			URL             string `json:"url"`
			PreviewImageURL string `json:"preview_image_url"`
		} `json:"media"`
	} `json:"includes"`
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// FetchPosts queries the proxy for recent posts in the given country.
// It never returns an error: any failure is logged and yields an empty
// slice so the remaining sources still contribute.
func (p *ProxyClient) FetchPosts(ctx context.Context, countryCode string) ([]database.Post, []database.SearchSource) {
	u := fmt.Sprintf("%s/api/twitter-search?query=%s&country=%s&fields=%s",
		p.baseURL,
		url.QueryEscape(broadQuery),
		url.QueryEscape(countryCode),
		url.QueryEscape(twitterFields),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		log.Printf("Twitter proxy request build failed: %v", err)
		return nil, nil
	}

	resp, err := p.client.Do(req)
	if err != nil {
		log.Printf("Twitter proxy unreachable: %v", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		log.Println("Twitter proxy not running; skipping X source")
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("Twitter proxy returned status %d", resp.StatusCode)
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("Twitter proxy read failed: %v", err)
		return nil, nil
	}

	var tr twitterResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		log.Printf("Twitter proxy returned malformed JSON: %v", err)
		return nil, nil
	}
	if len(tr.Errors) > 0 {
		log.Printf("Twitter API error: %s - %s", tr.Errors[0].Title, tr.Errors[0].Detail)
		return nil, nil
	}

	users := make(map[string]struct{ name, username string }, len(tr.Includes.Users))
	for _, u := range tr.Includes.Users {
		users[u.ID] = struct{ name, username string }{u.Name, u.Username}
	}
	media := make(map[string]struct{ kind, url, preview string }, len(tr.Includes.Media))
	for _, m := range tr.Includes.Media {
		media[m.MediaKey] = struct{ kind, url, preview string }{m.Type, m.URL, m.PreviewImageURL}
	}

	var posts []database.Post
	var sources []database.SearchSource
	for _, tweet := range tr.Data {
		author := "Unknown User"
		username := "anyuser"
		if u, ok := users[tweet.AuthorID]; ok {
			author = fmt.Sprintf("%s (@%s)", u.name, u.username)
			username = u.username
		}
		link := fmt.Sprintf("https://twitter.com/%s/status/%s", username, tweet.ID)

		post := database.Post{
			ID:        "twitter_" + tweet.ID,
			Source:    "Twitter",
			Author:    author,
			Content:   tweet.Text,
			Timestamp: dateOf(tweet.CreatedAt),
			Link:      link,
		}

		// Only the first attachment is considered; later keys never
		// contribute, resolvable or not.
		if tweet.Attachments != nil && len(tweet.Attachments.MediaKeys) > 0 {
			if m, ok := media[tweet.Attachments.MediaKeys[0]]; ok {
				switch m.kind {
				case "photo":
					if m.url != "" {
						u := m.url
						post.ImageURL = &u
					}
				case "video", "animated_gif":
					if m.preview != "" {
						preview := m.preview
						tweetURL := link
						post.ImageURL = &preview
						post.VideoURL = &tweetURL
					}
				}
			}
		}

		posts = append(posts, post)
		sources = append(sources, database.SearchSource{
			URI:   link,
			Title: fmt.Sprintf("Tweet by %s: \"%s...\"", author, truncate(tweet.Text, 50)),
		})
	}

	log.Printf("Fetched %d posts from X proxy", len(posts))
	return posts, sources
}

// dateOf keeps only the calendar date of an RFC 3339 timestamp.
func dateOf(createdAt string) string {
	if len(createdAt) >= 10 {
		return createdAt[:10]
	}
	return createdAt
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
