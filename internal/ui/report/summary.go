// Package report renders run summaries and exports mappings.
package report

import (
	"fmt"
	"strings"

	"mangle/internal/core/app"
	"mangle/internal/core/errors"
	"mangle/internal/data/history"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Width(20)

	valueStyle = lipgloss.NewStyle().Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#334155")).
			Padding(0, 1)
)

// Summary renders the counts of a finished run.
func Summary(res app.Result) string {
	rows := [][2]string{
		{"run", res.RunID},
		{"seed", fmt.Sprintf("%d", res.Seed)},
		{"classes", fmt.Sprintf("%d", res.Classes)},
		{"renamed", fmt.Sprintf("%d classes, %d fields, %d methods", res.ClassesRenamed, res.FieldsRenamed, res.MethodsRenamed)},
		{"relocated", fmt.Sprintf("%d fields (%d folded), %d methods", res.FieldsRelocated, res.ConstantsFolded, res.MethodsRelocated)},
		{"references", fmt.Sprintf("%d rewritten", res.References)},
		{"shuffled", fmt.Sprintf("%d classes", res.ClassesShuffled)},
		{"duration", res.Duration.String()},
	}
	if res.Output != "" {
		rows = append(rows, [2]string{"output", res.Output})
	}

	lines := []string{titleStyle.Render("mangle") + " " + successStyle.Render("done")}
	for _, row := range rows {
		lines = append(lines, labelStyle.Render(row[0])+valueStyle.Render(row[1]))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// Failure renders a failed run, naming the stage that stopped it when known.
func Failure(err error) string {
	lines := []string{titleStyle.Render("mangle") + " " + errorStyle.Render("failed")}
	if stage, ok := errors.ContextValue(err, errors.CtxStage); ok {
		lines = append(lines, labelStyle.Render("stage")+valueStyle.Render(fmt.Sprint(stage)))
	}
	if code := errors.CodeOf(err); code != "" {
		lines = append(lines, labelStyle.Render("code")+valueStyle.Render(string(code)))
	}
	lines = append(lines, err.Error())
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// RunList renders stored run headers, one line each.
func RunList(runs []history.Run) string {
	if len(runs) == 0 {
		return statusStyle.Render("no runs recorded")
	}
	var b strings.Builder
	for _, r := range runs {
		fmt.Fprintf(&b, "%s  %s  seed=%d  renamed=%d relocated=%d\n",
			valueStyle.Render(r.ID),
			r.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			r.Seed, r.Renamed, r.Relocated)
	}
	return b.String()
}
