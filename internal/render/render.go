// Package render converts the constrained markdown-like text used by
// assignment briefs and AI rationales into typed display blocks.
//
// The grammar is deliberately small: ** pairs for emphasis, **Header**
// lines, **Label:** value lines, "-"/"*"/"1." list items, and plain
// paragraphs. It is not CommonMark and must not be parsed as such; the
// block and run shapes below are what the detail and taskforce views
// consume directly.
package render

import (
	"regexp"
	"strings"
)

// BlockKind identifies the type of a rendered block.
type BlockKind int

const (
	Header BlockKind = iota
	LabeledParagraph
	Paragraph
	List
)

// Run is a span of text with an emphasis flag. Runs preserve original
// order, including empty spans between adjacent emphasis markers.
type Run struct {
	Text string
	Bold bool
}

// Item is one list entry.
type Item struct {
	Runs []Run
}

// Block is one rendered unit of brief text.
type Block struct {
	Kind  BlockKind
	Text  string // Header only
	Label []Run  // LabeledParagraph only, marker pair included in source
	Runs  []Run  // LabeledParagraph trailing content and Paragraph
	Items []Item // List only
}

const marker = "**"

var (
	numberedItem = regexp.MustCompile(`^\d+\.\s`)
	inlineBold   = regexp.MustCompile(`\*\*.*?\*\*`)
)

// ParseBlocks splits text into display blocks. Empty input yields no
// blocks. Blank lines separate blocks and close any open list.
func ParseBlocks(text string) []Block {
	if text == "" {
		return nil
	}

	var blocks []Block
	var listItems []Item
	inList := false

	endList := func() {
		if inList {
			blocks = append(blocks, Block{Kind: List, Items: listItems})
			listItems = nil
			inList = false
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, marker):
			if isHeader(trimmed) {
				endList()
				blocks = append(blocks, Block{
					Kind: Header,
					Text: strings.ReplaceAll(trimmed, marker, ""),
				})
				break
			}
			// **Label:** value: split at the first closing marker
			// past the opening one.
			closing := strings.Index(trimmed[2:], marker)
			if closing != -1 {
				endList()
				cut := closing + 2 + len(marker)
				blocks = append(blocks, Block{
					Kind:  LabeledParagraph,
					Label: ParseInline(trimmed[:cut]),
					Runs:  ParseInline(trimmed[cut:]),
				})
			} else {
				// No closing marker: fall back to a plain paragraph.
				endList()
				blocks = append(blocks, Block{Kind: Paragraph, Runs: ParseInline(trimmed)})
			}

		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
			inList = true
			listItems = append(listItems, Item{Runs: ParseInline(trimmed[2:])})

		case numberedItem.MatchString(trimmed):
			inList = true
			content := numberedItem.ReplaceAllString(trimmed, "")
			listItems = append(listItems, Item{Runs: ParseInline(content)})

		default:
			endList()
			blocks = append(blocks, Block{Kind: Paragraph, Runs: ParseInline(trimmed)})
		}
	}
	endList()

	return blocks
}

// isHeader reports whether a line is a standalone **Header**: wrapped in
// markers, longer than a bare marker pair, and without a colon anywhere
// past the opening marker.
func isHeader(line string) bool {
	return strings.HasSuffix(line, marker) &&
		len(line) > 4 &&
		!strings.Contains(line[2:], ":")
}

// ParseInline splits a text segment into plain and emphasized runs.
// Every run is preserved in original order, including empty runs between
// adjacent matches. A bare marker pair with no inner text ("****") stays
// plain.
func ParseInline(text string) []Run {
	var runs []Run
	last := 0
	for _, loc := range inlineBold.FindAllStringIndex(text, -1) {
		runs = append(runs, Run{Text: text[last:loc[0]]})
		match := text[loc[0]:loc[1]]
		if len(match) > 4 {
			runs = append(runs, Run{Text: match[2 : len(match)-2], Bold: true})
		} else {
			runs = append(runs, Run{Text: match})
		}
		last = loc[1]
	}
	runs = append(runs, Run{Text: text[last:]})
	return runs
}

// PlainText flattens blocks back into unstyled text, one line per block
// and one line per list item. Used by the PDF layout.
func PlainText(blocks []Block) []string {
	var lines []string
	for _, b := range blocks {
		switch b.Kind {
		case Header:
			lines = append(lines, b.Text)
		case LabeledParagraph:
			lines = append(lines, flattenRuns(b.Label)+flattenRuns(b.Runs))
		case Paragraph:
			lines = append(lines, flattenRuns(b.Runs))
		case List:
			for _, item := range b.Items {
				lines = append(lines, "- "+flattenRuns(item.Runs))
			}
		}
	}
	return lines
}

func flattenRuns(runs []Run) string {
	var sb strings.Builder
	for _, r := range runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}
