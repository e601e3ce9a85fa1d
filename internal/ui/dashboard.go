package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
	"github.com/eliteGoblin/focusd/chronos/internal/usecase"
)

// DashboardSource supplies the dashboard's data.
type DashboardSource interface {
	TodaySummary(ctx context.Context) (domain.TodaySummary, error)
	DailyStats(ctx context.Context, date time.Time) (*domain.Stats, error)
}

type tickMsg time.Time

type dataMsg struct {
	summary domain.TodaySummary
	stats   *domain.Stats
	err     error
}

// Dashboard is a bubbletea model showing today's progress, refreshed on
// an interval or with 'r'.
type Dashboard struct {
	source   DashboardSource
	interval time.Duration
	now      func() time.Time

	summary *domain.TodaySummary
	stats   *domain.Stats
	err     error
	width   int
	height  int
}

// NewDashboard creates the dashboard model.
func NewDashboard(source DashboardSource, interval time.Duration) Dashboard {
	return Dashboard{
		source:   source,
		interval: interval,
		now:      time.Now,
	}
}

func (m Dashboard) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Dashboard) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		summary, err := m.source.TodaySummary(ctx)
		if err != nil {
			return dataMsg{err: err}
		}
		stats, err := m.source.DailyStats(ctx, m.now())
		if err != nil {
			return dataMsg{err: err}
		}
		return dataMsg{summary: summary, stats: stats}
	}
}

func (m Dashboard) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), m.tickCmd())
}

func (m Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.fetchCmd()
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		return m, tea.Batch(m.fetchCmd(), m.tickCmd())
	case dataMsg:
		// Keep showing the last good data when a refresh fails.
		m.err = msg.err
		if msg.err == nil {
			m.summary = &msg.summary
			m.stats = msg.stats
		}
	}
	return m, nil
}

func (m Dashboard) View() string {
	if m.summary == nil && m.err == nil {
		return "Loading..."
	}

	width := m.width
	if width <= 0 {
		width = 80
	}

	header := titleStyle.Width(width).Render(
		fmt.Sprintf("chronos - %s", m.now().Format("Mon Jan 2, 2006 15:04")))

	sections := []string{header}
	if m.summary != nil {
		sections = append(sections, m.goalBox(width))
	}
	if m.stats != nil {
		sections = append(sections, m.appsBox(width))
	}
	if m.err != nil {
		sections = append(sections, idleStyle.Render("refresh failed: "+m.err.Error()))
	}

	footer := mutedStyle.Width(width).Render(
		fmt.Sprintf("q quit • r refresh • updates every %s", m.interval))
	sections = append(sections, footer)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Dashboard) goalBox(width int) string {
	s := m.summary
	body := lipgloss.JoinVertical(lipgloss.Left,
		goalStyle.Render("TODAY "+s.Title),
		"",
		s.TrackedLabel,
		productiveStyle.Render(s.ProductiveLabel),
		s.ProgressBar,
	)
	return boxStyle.Width(width - 2).Render(body)
}

func (m Dashboard) appsBox(width int) string {
	var b strings.Builder
	b.WriteString(headerCell.Render("TOP APPLICATIONS"))
	b.WriteString("\n\n")

	if len(m.stats.TopApplications) == 0 {
		b.WriteString(mutedStyle.Render("No activity recorded yet."))
		return boxStyle.Width(width - 2).Render(b.String())
	}

	top := m.stats.TopApplications[0].TotalDuration
	barWidth := width - appColumn - 20
	if barWidth < 10 {
		barWidth = 10
	}
	for _, app := range m.stats.TopApplications {
		filled := 0
		if top > 0 {
			filled = int(app.TotalDuration * int64(barWidth) / top)
		}
		style := mutedStyle
		if app.Category != nil && app.Category.IsProductive {
			style = productiveStyle
		}
		fmt.Fprintf(&b, "%s %s %s\n",
			padRight(truncate(app.Application, appColumn), appColumn),
			style.Render(strings.Repeat("█", filled)+strings.Repeat("░", barWidth-filled)),
			usecase.FormatDuration(app.TotalDuration))
	}
	return boxStyle.Width(width - 2).Render(strings.TrimRight(b.String(), "\n"))
}
