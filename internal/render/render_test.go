package render

import (
	"reflect"
	"testing"
)

func TestEmptyInput(t *testing.T) {
	if got := ParseBlocks(""); got != nil {
		t.Errorf("expected no blocks for empty input, got %v", got)
	}
	if got := ParseBlocks("\n\n\n"); got != nil {
		t.Errorf("expected no blocks for blank lines, got %v", got)
	}
}

func TestStandaloneHeader(t *testing.T) {
	blocks := ParseBlocks("**Header**")
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].Kind != Header || blocks[0].Text != "Header" {
		t.Errorf("expected Header 'Header', got %+v", blocks[0])
	}
}

func TestBareMarkerPairIsNotHeader(t *testing.T) {
	// "****" fails the length guard for headers and for emphasis: it
	// lands in the labeled path but every run stays plain.
	blocks := ParseBlocks("****")
	if len(blocks) != 1 || blocks[0].Kind == Header {
		t.Fatalf("expected non-header block for '****', got %+v", blocks)
	}
	for _, r := range append(blocks[0].Label, blocks[0].Runs...) {
		if r.Bold {
			t.Errorf("expected no bold runs for '****', got %+v", blocks[0])
		}
	}
}

func TestHeaderWithColonIsLabel(t *testing.T) {
	blocks := ParseBlocks("**Status:**")
	if len(blocks) != 1 || blocks[0].Kind != LabeledParagraph {
		t.Fatalf("expected labeled paragraph for '**Status:**', got %+v", blocks)
	}
}

func TestLabeledParagraph(t *testing.T) {
	blocks := ParseBlocks("**Label:** value")
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	b := blocks[0]
	if b.Kind != LabeledParagraph {
		t.Fatalf("expected LabeledParagraph, got %v", b.Kind)
	}

	// Label segment carries the emphasized "Label:" run.
	var bold []string
	for _, r := range b.Label {
		if r.Bold {
			bold = append(bold, r.Text)
		}
	}
	if !reflect.DeepEqual(bold, []string{"Label:"}) {
		t.Errorf("expected bold run 'Label:', got %v", bold)
	}

	// Content segment is plain.
	if len(b.Runs) != 1 || b.Runs[0].Bold || b.Runs[0].Text != " value" {
		t.Errorf("expected plain ' value' content, got %v", b.Runs)
	}
}

func TestUnterminatedMarkerFallsBackToParagraph(t *testing.T) {
	blocks := ParseBlocks("**broken line")
	if len(blocks) != 1 || blocks[0].Kind != Paragraph {
		t.Fatalf("expected paragraph fallback, got %+v", blocks)
	}
}

func TestBulletList(t *testing.T) {
	blocks := ParseBlocks("- a\n- b")
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	b := blocks[0]
	if b.Kind != List || len(b.Items) != 2 {
		t.Fatalf("expected list with 2 items, got %+v", b)
	}
	if flattenRuns(b.Items[0].Runs) != "a" || flattenRuns(b.Items[1].Runs) != "b" {
		t.Errorf("expected items 'a','b' in order, got %+v", b.Items)
	}
}

func TestMixedListMarkers(t *testing.T) {
	blocks := ParseBlocks("- one\n* two\n3. three")
	if len(blocks) != 1 || blocks[0].Kind != List {
		t.Fatalf("expected single list, got %+v", blocks)
	}
	if len(blocks[0].Items) != 3 {
		t.Errorf("expected 3 items, got %d", len(blocks[0].Items))
	}
	if flattenRuns(blocks[0].Items[2].Runs) != "three" {
		t.Errorf("expected numbered prefix stripped, got %q", flattenRuns(blocks[0].Items[2].Runs))
	}
}

func TestListClosedByParagraph(t *testing.T) {
	blocks := ParseBlocks("- a\n- b\nplain text\n- c")
	if len(blocks) != 3 {
		t.Fatalf("expected list, paragraph, list; got %d blocks", len(blocks))
	}
	if blocks[0].Kind != List || blocks[1].Kind != Paragraph || blocks[2].Kind != List {
		t.Errorf("unexpected block kinds: %v %v %v", blocks[0].Kind, blocks[1].Kind, blocks[2].Kind)
	}
	if len(blocks[0].Items) != 2 || len(blocks[2].Items) != 1 {
		t.Error("expected list split around the paragraph")
	}
}

func TestBlankLinesSkipped(t *testing.T) {
	blocks := ParseBlocks("**Header**\n\nparagraph one\n\n\nparagraph two")
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
}

func TestParseInlinePreservesRuns(t *testing.T) {
	runs := ParseInline("a **b** c **d** e")
	want := []Run{
		{Text: "a "},
		{Text: "b", Bold: true},
		{Text: " c "},
		{Text: "d", Bold: true},
		{Text: " e"},
	}
	if !reflect.DeepEqual(runs, want) {
		t.Errorf("got %v, want %v", runs, want)
	}
}

func TestParseInlineAdjacentMatchesKeepEmptyRuns(t *testing.T) {
	runs := ParseInline("**a****b**")
	want := []Run{
		{Text: ""},
		{Text: "a", Bold: true},
		{Text: ""},
		{Text: "b", Bold: true},
		{Text: ""},
	}
	if !reflect.DeepEqual(runs, want) {
		t.Errorf("got %v, want %v", runs, want)
	}
}

func TestParseInlineBareMarkerPairStaysPlain(t *testing.T) {
	runs := ParseInline("x **** y")
	for _, r := range runs {
		if r.Bold {
			t.Errorf("expected no bold runs for bare marker pair, got %v", runs)
		}
	}
}

func TestPlainText(t *testing.T) {
	blocks := ParseBlocks("**Brief**\n**Risk:** high\n- watch\n- report")
	lines := PlainText(blocks)
	want := []string{"Brief", "Risk: high", "- watch", "- report"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("got %v, want %v", lines, want)
	}
}
