package onboarding

import (
	"fmt"
	"strings"

	"aisetup/internal/domain"
)

// SummaryRow is the display form of one platform record. Tokens are masked.
type SummaryRow struct {
	Platform string
	Enabled  bool
	Token    string
	Model    string
}

// SummaryRows lists every platform in declaration order.
func SummaryRows(snap Snapshot) []SummaryRow {
	rows := make([]SummaryRow, 0, len(snap.platforms))
	for _, cfg := range snap.platforms {
		row := SummaryRow{
			Platform: cfg.Name.DisplayName(),
			Enabled:  cfg.Selected,
			Token:    "-",
			Model:    "-",
		}
		if cfg.Token != nil {
			row.Token = domain.MaskSecret(*cfg.Token)
		}
		if cfg.Model != nil {
			row.Model = *cfg.Model
		}
		rows = append(rows, row)
	}
	return rows
}

// SummaryMarkdown renders the snapshot as a Markdown table.
func SummaryMarkdown(snap Snapshot) string {
	var b strings.Builder
	b.WriteString("## Configured platforms\n\n")
	b.WriteString("| Platform | Enabled | Token | Model |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, r := range SummaryRows(snap) {
		enabled := "no"
		if r.Enabled {
			enabled = "yes"
		}
		fmt.Fprintf(&b, "| %s | %s | `%s` | %s |\n", r.Platform, enabled, r.Token, r.Model)
	}
	if len(snap.Enabled()) == 0 {
		b.WriteString("\nNo platform was enabled. Run setup again to add one.\n")
	}
	return b.String()
}
