package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/devpulse/internal/metrics"
	"github.com/valter-silva-au/devpulse/internal/perf"
	"github.com/valter-silva-au/devpulse/pkg/models"
)

// Dashboard panel indices.
const (
	panelSummary = iota
	panelAlerts
	panelPerf
	panelCount
)

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	summary  *models.MetricsSummary
	alerts   []models.Alert
	perfData *perf.Metrics

	// State.
	loading bool
	err     error
}

// dashDataMsg carries loaded data back to the model.
type dashDataMsg struct {
	summary  *models.MetricsSummary
	alerts   []models.Alert
	perfData *perf.Metrics
	err      error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	levelCritical = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	levelError    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	levelWarning  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	levelInfo     = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	rateGood = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	rateBad  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelSummary,
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadDashData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadDashData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dashDataMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.summary = msg.summary
		m.alerts = msg.alerts
		m.perfData = msg.perfData
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" DevPulse Dashboard ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	summaryPanel := m.renderSummaryPanel()
	alertsPanel := m.renderAlertsPanel()
	perfPanel := m.renderPerfPanel()

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		// Horizontal layout: three columns.
		colWidth := availableWidth / 3
		summaryPanel = m.applyPanelStyle(panelSummary, summaryPanel, colWidth-4)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, colWidth-4)
		perfPanel = m.applyPanelStyle(panelPerf, perfPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, summaryPanel, alertsPanel, perfPanel)
	} else {
		// Vertical layout: stacked.
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		summaryPanel = m.applyPanelStyle(panelSummary, summaryPanel, panelWidth)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, panelWidth)
		perfPanel = m.applyPanelStyle(panelPerf, perfPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, summaryPanel, alertsPanel, perfPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderSummaryPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Summary (24h)"))
	b.WriteString("\n")

	if m.summary == nil || m.summary.TotalTasks == 0 {
		b.WriteString("  No task events recorded.")
		return b.String()
	}

	s := m.summary
	rateStyle := rateGood
	if s.SuccessRate < 80 {
		rateStyle = rateBad
	}
	b.WriteString(fmt.Sprintf("  %-14s %d\n", "Tasks", s.TotalTasks))
	b.WriteString(fmt.Sprintf("  %-14s %s\n", "Success", rateStyle.Render(fmt.Sprintf("%.1f%%", s.SuccessRate))))
	b.WriteString(fmt.Sprintf("  %-14s %.1fms (p95 %.1f)\n", "Duration", s.AvgDurationMS, s.P95DurationMS))
	b.WriteString(fmt.Sprintf("  %-14s $%.4f\n", "Cost", s.TotalCostUSD))
	b.WriteString(fmt.Sprintf("  %-14s %d\n", "Tokens", s.TotalTokens))
	if s.TopModel != "" {
		b.WriteString(fmt.Sprintf("  %-14s %s\n", "Top model", s.TopModel))
	}
	if s.TotalErrors > 0 {
		b.WriteString(fmt.Sprintf("  %-14s %d (%.1f%%)\n", "Errors", s.TotalErrors, s.ErrorRate))
	}
	if s.SecurityViolations > 0 {
		b.WriteString(levelCritical.Render(fmt.Sprintf("  %-14s %d", "Violations", s.SecurityViolations)))
		b.WriteString("\n")
	}

	return b.String()
}

func (m dashboardModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Alerts"))
	b.WriteString("\n")

	if len(m.alerts) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}

	for _, a := range m.alerts {
		lvl := styleForLevel(a.Level).Render(fmt.Sprintf("[%s]", strings.ToUpper(string(a.Level))))
		b.WriteString(fmt.Sprintf("  %s %s\n", lvl, a.Message))
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d alert(s)", len(m.alerts)))

	return b.String()
}

func (m dashboardModel) renderPerfPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Performance (24h)"))
	b.WriteString("\n")

	if m.perfData == nil || m.perfData.Count == 0 {
		b.WriteString("  No measurements recorded.")
		return b.String()
	}

	p := m.perfData
	lines := []struct {
		label string
		value string
	}{
		{"Operations", fmt.Sprintf("%d", p.Count)},
		{"Avg", fmt.Sprintf("%.1fms", p.AvgDurationMS)},
		{"p95", fmt.Sprintf("%.1fms", p.P95DurationMS)},
		{"p99", fmt.Sprintf("%.1fms", p.P99DurationMS)},
		{"Throughput", fmt.Sprintf("%.2f/sec", p.ThroughputPerSec)},
	}
	if p.AvgMemoryMB > 0 {
		lines = append(lines, struct {
			label string
			value string
		}{"Memory", fmt.Sprintf("%.1fMB", p.AvgMemoryMB)})
	}

	for _, l := range lines {
		b.WriteString(fmt.Sprintf("  %-14s %s\n", l.label, l.value))
	}

	return b.String()
}

func styleForLevel(level models.AlertLevel) lipgloss.Style {
	switch level {
	case models.AlertCritical:
		return levelCritical
	case models.AlertError:
		return levelError
	case models.AlertWarning:
		return levelWarning
	case models.AlertInfo:
		return levelInfo
	default:
		return lipgloss.NewStyle()
	}
}

func loadDashData() tea.Msg {
	var result dashDataMsg

	if Analyzer != nil {
		result.summary = Analyzer.CalculateSummary(metrics.PeriodDay, nil, nil)
	}

	if Monitor != nil && result.summary != nil {
		result.alerts = Monitor.CheckThresholds(result.summary)
	}

	if Tracker != nil {
		m := Tracker.GetMetrics("", 24)
		result.perfData = &m
	}

	return result
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for metrics, alerts, and performance",
	Long: `Launch an interactive terminal dashboard showing the daily metrics
summary, raised threshold alerts, and operation performance in a
live-updating view.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Analyzer == nil {
			return fmt.Errorf("analyzer not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
