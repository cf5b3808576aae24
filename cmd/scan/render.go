// render.go - Report card rendering with lipgloss

package main

import (
	"fmt"
	"strings"

	"github.com/bosocmputer/biometric_scan_gemini/internal/analysis"
	"github.com/bosocmputer/biometric_scan_gemini/internal/report"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"}
	colorAccent  = lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#FBBF24"}
	colorError   = lipgloss.AdaptiveColor{Light: "#EF4444", Dark: "#F87171"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#94A3B8", Dark: "#64748B"}
	colorBorder  = lipgloss.AdaptiveColor{Light: "#CBD5E1", Dark: "#334155"}

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	matchStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError)

	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#000000")).
			Background(colorAccent).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(1, 2).
			MarginTop(1).
			Width(64)

	errorBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorError).
			Padding(1, 2).
			MarginTop(1)
)

// barWidth is the number of cells a score of 100 fills.
const barWidth = 20

func bar(score report.Score) string {
	filled := int(score) * barWidth / 100
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

var attributeLabels = map[report.Language][5]string{
	report.LangEnglish: {"Intelligence", "Dominance", "Creativity", "Resilience", "Charisma"},
	report.LangTurkish: {"Zeka", "Baskınlık", "Yaratıcılık", "Dayanıklılık", "Karizma"},
}

func renderResult(result *analysis.Result, lang report.Language) string {
	rep := result.Report
	var b strings.Builder

	if result.Simulated {
		b.WriteString(bannerStyle.Render(result.Notice))
		b.WriteString("\n\n")
	}

	b.WriteString(labelStyle.Render("PRIMARY MATCH") + "\n")
	b.WriteString(matchStyle.Render(fmt.Sprintf("%s  %d%%", rep.PrimaryMatch.Name, rep.PrimaryMatch.Percentage)) + "\n")
	if rep.PrimaryMatch.Reason != "" {
		b.WriteString(rep.PrimaryMatch.Reason + "\n")
	}

	if len(rep.Alternatives) > 0 {
		b.WriteString("\n" + labelStyle.Render("ALTERNATIVES") + "\n")
		for _, alt := range rep.Alternatives {
			b.WriteString(fmt.Sprintf("  %-28s %3d%%\n", alt.Name, alt.Percentage))
		}
	}

	b.WriteString("\n" + labelStyle.Render("METRICS") + "\n")
	b.WriteString(fmt.Sprintf("  Cheekbones: %s\n  Eyes: %s\n  Jawline: %s\n",
		rep.Metrics.Cheekbones, rep.Metrics.Eyes, rep.Metrics.Jawline))

	labels, ok := attributeLabels[lang]
	if !ok {
		labels = attributeLabels[report.LangEnglish]
	}
	scores := [5]report.Score{
		rep.Attributes.Intelligence,
		rep.Attributes.Dominance,
		rep.Attributes.Creativity,
		rep.Attributes.Resilience,
		rep.Attributes.Charisma,
	}
	b.WriteString("\n" + labelStyle.Render("ATTRIBUTES") + "\n")
	for i, label := range labels {
		b.WriteString(fmt.Sprintf("  %-13s %s %3d\n", label, bar(scores[i]), scores[i]))
	}

	b.WriteString("\n" + labelStyle.Render("NARRATIVE") + "\n")
	b.WriteString(rep.Narrative)

	var footer string
	if result.Model != "" {
		footer = fmt.Sprintf("model %s · %d attempt(s)", result.Model, result.Attempts)
	}

	out := boxStyle.Render(b.String())
	if footer != "" {
		out += "\n" + mutedStyle.Render(footer)
	}
	out += "\n\n" + mutedStyle.Render(rep.ShareText(lang))
	return out
}

func renderError(err error, lang report.Language) string {
	return errorBoxStyle.Render(errorStyle.Render("SCAN FAILED") + "\n\n" + errorMessage(err, lang))
}
