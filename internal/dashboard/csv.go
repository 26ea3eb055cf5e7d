package dashboard

import (
	"fmt"
	"strings"

	"github.com/opennarrative/opennarrative/internal/database"
)

// ExportFilename is the download name for the CSV export.
const ExportFilename = "open_narrative_export.csv"

var csvHeader = "ID,Title,Summary,Risk Score,Classification,Veracity Score,Harm Score,Prob Score,Status,Post Count"

// ExportCSV renders narratives as a CSV document. Title and Summary are
// always quoted with inner quotes doubled; the remaining fields are
// numeric or controlled vocabulary and stay bare. The column set is a
// published contract for downstream analysts, so it is assembled by
// hand rather than through encoding/csv, which only quotes on demand.
func ExportCSV(narratives []database.Narrative) []byte {
	var sb strings.Builder
	sb.WriteString(csvHeader)
	sb.WriteByte('\n')

	for _, n := range narratives {
		classification := "N/A"
		var veracity, harm, prob float64
		if n.DMMIReport != nil {
			classification = n.DMMIReport.Classification
			veracity = n.DMMIReport.VeracityScore
			harm = n.DMMIReport.HarmScore
			prob = n.DMMIReport.ProbabilityScore
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%g,%s,%g,%g,%g,%s,%d\n",
			n.ID,
			quoteField(n.Title),
			quoteField(n.Summary),
			n.RiskScore,
			classification,
			veracity,
			harm,
			prob,
			n.Status,
			len(n.Posts),
		))
	}
	return []byte(sb.String())
}

func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
