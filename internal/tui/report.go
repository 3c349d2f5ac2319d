package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/evanschultz/pdwatch/internal/app"
	"github.com/evanschultz/pdwatch/internal/domain"
)

// minWrapWidth keeps rendered reports readable in narrow terminals.
const minWrapWidth = 24

// ReportMarkdown renders one check report as markdown.
func ReportMarkdown(report app.Report) string {
	eval := report.Evaluation
	var b strings.Builder

	fmt.Fprintf(&b, "# %s · %s\n\n", eval.Category.Label, domain.CountryLabel(eval.CountryKey))
	fmt.Fprintf(&b, "%s · priority date **%s**", eval.Family.Label(), domain.FormatDay(eval.PriorityDate))
	if !report.BulletinMonth.IsZero() {
		fmt.Fprintf(&b, " · bulletin %s", domain.FormatMonth(report.BulletinMonth))
	}
	b.WriteString("\n\n")

	b.WriteString("| Chart | Cutoff | Status |\n|---|---|---|\n")
	for _, dim := range domain.Dimensions {
		v := eval.Verdict(dim)
		fmt.Fprintf(&b, "| %s | %s | %s |\n", dim.Label(), v.Text(), verdictStatus(v))
	}
	b.WriteString("\n")

	timeline := report.Timeline
	if len(timeline.Stages) > 0 {
		b.WriteString("## Timeline\n\n")
		for _, stage := range timeline.Stages {
			fmt.Fprintf(&b, "- %s **%s**: %s\n", stageMarker(stage.State), stage.Label, stage.Display)
		}
		b.WriteString("\n")
	}
	if !timeline.EarliestActionMonth.IsZero() {
		fmt.Fprintf(&b, "Earliest action: **%s**\n\n", domain.FormatMonth(timeline.EarliestActionMonth))
	}
	if timeline.AverageMonthlyAdvanceDays > 0 {
		fmt.Fprintf(&b, "Average bulletin advance: %.1f days per month\n\n", timeline.AverageMonthlyAdvanceDays)
	}
	if report.PermDays > 0 {
		fmt.Fprintf(&b, "PERM processing: %d days\n\n", report.PermDays)
	}
	if timeline.Advisory != "" {
		fmt.Fprintf(&b, "> %s\n\n", timeline.Advisory)
	}
	if timeline.Note != "" {
		fmt.Fprintf(&b, "_%s_\n", timeline.Note)
	}
	return strings.TrimSpace(b.String()) + "\n"
}

// verdictStatus describes whether one chart lets the applicant act.
func verdictStatus(v domain.Verdict) string {
	switch v.Outcome {
	case domain.OutcomeNoData:
		return "no data"
	case domain.OutcomeMalformed:
		return "source error"
	case domain.OutcomeUnavailable:
		return "unavailable"
	}
	if v.IsCurrent() {
		return "current"
	}
	return "not yet current"
}

// stageMarker returns the list marker for one stage state.
func stageMarker(state domain.StageState) string {
	switch state {
	case domain.StateCompleted:
		return "[x]"
	case domain.StateCurrent:
		return "[>]"
	case domain.StateUnavailable:
		return "[-]"
	default:
		return "[ ]"
	}
}

// RenderMarkdown renders markdown for a terminal of the given width. Rendering
// failures fall back to the raw markdown.
func RenderMarkdown(markdown string, width int) string {
	var r markdownRenderer
	return r.render(markdown, width)
}

// markdownRenderer renders markdown for terminal views and recreates the renderer when wrap width changes.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

// render converts markdown input into ANSI-styled terminal text with the requested wrap width.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}
	wrapWidth := max(width, minWrapWidth)
	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}
	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}
