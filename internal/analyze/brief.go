package analyze

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/opennarrative/opennarrative/internal/dashboard"
	"github.com/opennarrative/opennarrative/internal/database"
	"github.com/opennarrative/opennarrative/internal/llm"
)

const briefPrompt = `You are drafting an assignment brief for a counter-disinformation taskforce taking over a monitored narrative.

Narrative: %s
Summary: %s
Risk score: %.1f / 10
Classification: %s
DISARM phase: %s

Write a concise brief with exactly these sections, using ** for headers and labels:

**Taskforce Assignment Brief**
**Narrative:** <title>
**Risk Level:** <critical/high/medium/low>
**Situation**
<one short paragraph>
**Objectives**
- <3-4 action bullets>
**Constraints**
<one short paragraph>

Respond with ONLY the brief text, no JSON and no code fences.`

// Composer drafts assignment briefs for taskforce handover.
type Composer struct {
	provider llm.Provider
}

// NewComposer creates a brief composer.
func NewComposer(provider llm.Provider) *Composer {
	return &Composer{provider: provider}
}

// ComposeBrief produces the assignment brief for a narrative. When no
// provider is available or the call fails, it falls back to a
// deterministic template so assignment always succeeds.
func (c *Composer) ComposeBrief(ctx context.Context, n *database.Narrative) string {
	if c.provider != nil {
		prompt := fmt.Sprintf(briefPrompt,
			n.Title, n.Summary, n.RiskScore, classificationOf(n), phaseOf(n))

		text, err := c.provider.Generate(ctx, prompt, 1024)
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		if err != nil {
			log.Printf("Brief generation failed, using fallback: %v", err)
		}
	}
	return fallbackBrief(n)
}

func fallbackBrief(n *database.Narrative) string {
	level := string(dashboard.Classify(n.RiskScore))

	var sb strings.Builder
	sb.WriteString("**Taskforce Assignment Brief**\n")
	fmt.Fprintf(&sb, "**Narrative:** %s\n", n.Title)
	fmt.Fprintf(&sb, "**Risk Level:** %s (%.1f / 10)\n", level, n.RiskScore)
	sb.WriteString("**Situation**\n")
	if n.Summary != "" {
		sb.WriteString(n.Summary + "\n")
	} else {
		sb.WriteString("No automated summary is available for this narrative.\n")
	}
	sb.WriteString("**Objectives**\n")
	sb.WriteString("- Verify the central claims against primary sources\n")
	sb.WriteString("- Map the accounts and outlets amplifying the narrative\n")
	if len(n.CounterOpportunities) > 0 {
		fmt.Fprintf(&sb, "- Evaluate the suggested counter tactic: %s\n", n.CounterOpportunities[0].Tactic)
	} else {
		sb.WriteString("- Identify viable counter-messaging opportunities\n")
	}
	sb.WriteString("- Report escalation or decay within 48 hours\n")
	sb.WriteString("**Constraints**\n")
	sb.WriteString("Engage through official channels only. Do not amplify the narrative by direct quotation in public responses.")
	return sb.String()
}

func classificationOf(n *database.Narrative) string {
	if n.DMMIReport != nil {
		return n.DMMIReport.Classification
	}
	return "N/A"
}

func phaseOf(n *database.Narrative) string {
	if n.DisarmAnalysis != nil {
		return n.DisarmAnalysis.Phase
	}
	return "Unknown"
}
