// Package media downloads post images for inclusion in AI scoring
// prompts and PDF briefings.
package media

import (
	"context"
	"encoding/base64"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// maxImageBytes caps downloads; anything larger is not a post image.
const maxImageBytes = 10 << 20

// EncodedImage is a downloaded image ready for embedding.
type EncodedImage struct {
	Base64   string
	MimeType string
}

// Fetcher downloads and encodes remote images.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates an image fetcher.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch downloads an image and returns it base64-encoded with its mime
// type. Any failure returns nil: images are an enrichment, never a
// requirement.
func (f *Fetcher) Fetch(ctx context.Context, imageURL string) *EncodedImage {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		log.Printf("Bad image url %s: %v", imageURL, err)
		return nil
	}

	resp, err := f.client.Do(req)
	if err != nil {
		log.Printf("Image fetch failed for %s: %v", imageURL, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("Image fetch for %s returned status %d", imageURL, resp.StatusCode)
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil || len(data) == 0 {
		return nil
	}

	mime := resp.Header.Get("Content-Type")
	if idx := strings.Index(mime, ";"); idx != -1 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}

	return &EncodedImage{
		Base64:   base64.StdEncoding.EncodeToString(data),
		MimeType: mime,
	}
}
