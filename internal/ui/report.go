package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
	"github.com/eliteGoblin/focusd/chronos/internal/usecase"
)

const (
	appColumn      = 24
	categoryColumn = 16
	titleColumn    = 40
	timeLayout     = "15:04:05"
)

// RenderStats renders a stats report headed by title.
func RenderStats(title string, stats *domain.Stats) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s  %s - %s", title,
		stats.Start.Format("Jan 2"), stats.End.Format("Jan 2, 2006"))))
	b.WriteString("\n\n")

	active := stats.TotalTime - stats.IdleTime
	row(&b, "Tracked", usecase.FormatDuration(stats.TotalTime))
	row(&b, "Active", usecase.FormatDuration(active))
	row(&b, "Idle", idleStyle.Render(usecase.FormatDuration(stats.IdleTime)))
	row(&b, "Productive", productiveStyle.Render(usecase.FormatDuration(stats.ProductiveTime)))
	row(&b, "Goal", goalLine(stats))
	b.WriteString("\n")

	if len(stats.TopApplications) == 0 {
		b.WriteString(mutedStyle.Render("No activity recorded."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(headerCell.Render("Top applications"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%-*s %-*s %10s %10s\n",
		appColumn, "APPLICATION", categoryColumn, "CATEGORY", "TIME", "IDLE")
	for _, app := range stats.TopApplications {
		category := mutedStyle.Render(padRight("uncategorized", categoryColumn))
		if app.Category != nil {
			category = padRight(truncate(app.Category.Name, categoryColumn), categoryColumn)
			if app.Category.IsProductive {
				category = productiveStyle.Render(category)
			}
		}
		fmt.Fprintf(&b, "%-*s %s %10s %10s\n",
			appColumn, truncate(app.Application, appColumn),
			category,
			usecase.FormatDuration(app.TotalDuration),
			usecase.FormatDuration(app.IdleDuration))
	}
	return b.String()
}

func goalLine(stats *domain.Stats) string {
	if stats.DailyGoalMinutes <= 0 {
		return mutedStyle.Render("no daily goal set")
	}
	return fmt.Sprintf("%s of %s",
		goalStyle.Render(usecase.ProgressBar(stats.GoalPercentage)),
		usecase.FormatDuration(stats.DailyGoalMinutes*60))
}

// RenderSummary renders the tray-style today summary.
func RenderSummary(s domain.TodaySummary) string {
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		goalStyle.Render(s.Title),
		s.TrackedLabel,
		productiveStyle.Render(s.ProductiveLabel),
		s.ProgressBar,
	))
}

// RenderActivities renders intervals as a table, in the given order.
func RenderActivities(activities []domain.Activity) string {
	if len(activities) == 0 {
		return mutedStyle.Render("No activity recorded.") + "\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-10s %8s  %-*s %s\n",
		"START", "END", "LENGTH", appColumn, "APPLICATION", "TITLE")
	for _, a := range activities {
		app := padRight(truncate(a.Application, appColumn), appColumn)
		if a.IsIdle {
			app = idleStyle.Render(padRight(truncate(a.Application+" (idle)", appColumn), appColumn))
		}
		fmt.Fprintf(&b, "%-10s %-10s %8s  %s %s\n",
			a.StartTime.Format(timeLayout),
			a.EndTime.Format(timeLayout),
			usecase.FormatDuration(a.DurationSeconds()),
			app,
			truncate(a.Title, titleColumn))
	}
	return b.String()
}

// RenderCategories lists categories with the applications mapped to each.
func RenderCategories(categories []domain.Category, mappings []domain.AppCategory) string {
	apps := make(map[string][]string)
	for _, m := range mappings {
		apps[m.CategoryID] = append(apps[m.CategoryID], m.AppName)
	}

	var b strings.Builder
	for _, c := range categories {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color)).Render("●")
		kind := mutedStyle.Render("unproductive")
		if c.IsProductive {
			kind = productiveStyle.Render("productive")
		}
		fmt.Fprintf(&b, "%s %s  %s  %s\n", swatch, c.Name, kind, mutedStyle.Render(c.ID))

		members := apps[c.ID]
		sort.Strings(members)
		for _, app := range members {
			fmt.Fprintf(&b, "    %s\n", app)
		}
	}
	return b.String()
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label))
	b.WriteString(value)
	b.WriteString("\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func padRight(s string, n int) string {
	if w := lipgloss.Width(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}
