// Package report renders narrative briefings as PDF documents.
package report

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/opennarrative/opennarrative/internal/database"
	"github.com/opennarrative/opennarrative/internal/media"
	"github.com/opennarrative/opennarrative/internal/render"
)

var nonWord = regexp.MustCompile(`[^\w\s]`)
var spaces = regexp.MustCompile(`\s+`)

// Filename derives the download name for a narrative report: the title
// lowercased, punctuation stripped, spaces collapsed to hyphens.
func Filename(title string) string {
	name := strings.ToLower(title)
	name = nonWord.ReplaceAllString(name, "")
	name = spaces.ReplaceAllString(strings.TrimSpace(name), "-")
	return name + "-report.pdf"
}

// Generator builds narrative report PDFs, optionally embedding post
// images.
type Generator struct {
	images *media.Fetcher
}

// NewGenerator creates a report generator. A nil fetcher disables image
// embedding.
func NewGenerator(images *media.Fetcher) *Generator {
	return &Generator{images: images}
}

// Build renders the full briefing PDF for a narrative.
func (g *Generator) Build(ctx context.Context, n *database.Narrative) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("OpenNarrative Report: "+n.Title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, "OpenNarrative Briefing", "", "L", false)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 7, n.Title, "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, fmt.Sprintf("Risk score: %.1f / 10    Status: %s", n.RiskScore, n.Status), "", "L", false)
	if n.Campaign != nil && *n.Campaign != "" {
		pdf.MultiCell(0, 5, "Campaign: "+*n.Campaign, "", "L", false)
	}
	pdf.Ln(3)

	section(pdf, "Summary")
	body(pdf, n.Summary)

	if n.DMMIReport != nil {
		rep := n.DMMIReport
		section(pdf, "DMMI Assessment")
		body(pdf, fmt.Sprintf("Classification: %s (intent: %s, veracity: %s)", rep.Classification, rep.Intent, rep.Veracity))
		body(pdf, fmt.Sprintf("Veracity %.0f / 10, harm %.0f / 10, probability %.0f / 10, success probability %.0f%%",
			rep.VeracityScore, rep.HarmScore, rep.ProbabilityScore, rep.SuccessProbability))
		for _, line := range render.PlainText(render.ParseBlocks(rep.Rationale)) {
			body(pdf, line)
		}
	}

	if n.DisarmAnalysis != nil {
		da := n.DisarmAnalysis
		section(pdf, "DISARM Mapping")
		body(pdf, fmt.Sprintf("Phase: %s (confidence: %s)", da.Phase, da.Confidence))
		if len(da.Tactics) > 0 {
			body(pdf, "Tactics: "+strings.Join(da.Tactics, ", "))
		}
		if len(da.Techniques) > 0 {
			body(pdf, "Techniques: "+strings.Join(da.Techniques, ", "))
		}
	}

	if len(n.TrendData) > 0 {
		section(pdf, "Volume Trend")
		for _, p := range n.TrendData {
			body(pdf, fmt.Sprintf("%s  %s (%d posts)", p.Date, strings.Repeat("|", p.Volume), p.Volume))
		}
	}

	if len(n.CounterOpportunities) > 0 {
		section(pdf, "Counter Opportunities")
		for _, co := range n.CounterOpportunities {
			body(pdf, fmt.Sprintf("- %s: %s", co.Tactic, co.Rationale))
		}
	}

	if len(n.Posts) > 0 {
		section(pdf, fmt.Sprintf("Posts (%d)", len(n.Posts)))
		for _, p := range n.Posts {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.MultiCell(0, 5, fmt.Sprintf("%s - %s (%s)", p.Source, p.Author, p.Timestamp), "", "L", false)
			body(pdf, p.Content)
			pdf.SetFont("Helvetica", "I", 8)
			pdf.MultiCell(0, 4, p.Link, "", "L", false)
			pdf.Ln(2)
		}
		g.embedFirstImage(ctx, pdf, n.Posts)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// embedFirstImage attaches the first fetchable post image. Failures are
// logged and skipped.
func (g *Generator) embedFirstImage(ctx context.Context, pdf *gofpdf.Fpdf, posts []database.Post) {
	if g.images == nil {
		return
	}
	for _, p := range posts {
		if p.ImageURL == nil {
			continue
		}
		img := g.images.Fetch(ctx, *p.ImageURL)
		if img == nil {
			continue
		}
		kind := strings.TrimPrefix(img.MimeType, "image/")
		data, err := decodeBase64(img.Base64)
		if err != nil {
			log.Printf("Skipping image %s: %v", *p.ImageURL, err)
			continue
		}
		opts := gofpdf.ImageOptions{ImageType: kind, ReadDpi: true}
		pdf.RegisterImageOptionsReader("post-image", opts, bytes.NewReader(data))
		if pdf.Err() {
			log.Printf("Skipping unembeddable image %s", *p.ImageURL)
			pdf.ClearError()
			return
		}
		pdf.ImageOptions("post-image", 15, pdf.GetY()+4, 80, 0, true, opts, 0, "")
		return
	}
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.MultiCell(0, 6, title, "", "L", false)
}

func body(pdf *gofpdf.Fpdf, text string) {
	if text == "" {
		return
	}
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, text, "", "L", false)
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
