package presenter

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxRecent bounds the recent results list
const maxRecent = 50

type recentResult struct {
	domain entity.Domain
	result entity.ClassificationResult
	at     time.Time
}

// Dashboard is a TUI dashboard of the coordinator
type Dashboard struct {
	metrics   *entity.Metrics
	recent    []recentResult
	hitRatio  progress.Model
	width     int
	height    int
	startTime time.Time
	mu        sync.RWMutex
}

type tickMsg time.Time

// NewDashboard creates a new TUI dashboard
func NewDashboard() *Dashboard {
	return &Dashboard{
		metrics:   &entity.Metrics{},
		hitRatio:  progress.New(progress.WithDefaultGradient()),
		startTime: time.Now(),
	}
}

// Init initializes the dashboard
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

// Update handles dashboard updates
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c":
			return d, tea.Quit
		}

	case tea.WindowSizeMsg:
		d.mu.Lock()
		d.width = msg.Width
		d.height = msg.Height
		d.hitRatio.Width = msg.Width/2 - 10
		d.mu.Unlock()
		return d, nil

	case tickMsg:
		return d, tickCmd()
	}

	return d, nil
}

// View renders the dashboard
func (d *Dashboard) View() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.width == 0 {
		return "Initializing..."
	}

	header := d.renderHeader()
	footer := d.renderFooter()

	availableHeight := d.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if availableHeight < 0 {
		availableHeight = 0
	}
	halfHeight := availableHeight / 2
	remainingHeight := availableHeight - halfHeight

	leftWidth := d.width / 2
	rightWidth := d.width - leftWidth

	// Row 1: Events | Cache
	row1 := lipgloss.JoinHorizontal(
		lipgloss.Top,
		d.renderEventStats(leftWidth, halfHeight),
		d.renderCacheStats(rightWidth, halfHeight),
	)

	// Row 2: Service and deliveries | Recent results
	row2 := lipgloss.JoinHorizontal(
		lipgloss.Top,
		d.renderDeliveryStats(leftWidth, remainingHeight),
		d.renderRecentResults(rightWidth, remainingHeight),
	)

	return lipgloss.JoinVertical(lipgloss.Left, header, row1, row2, footer)
}

// OnMetricsUpdate implements application.MetricsObserver
func (d *Dashboard) OnMetricsUpdate(metrics *entity.Metrics) {
	d.mu.Lock()
	d.metrics = metrics
	d.mu.Unlock()
}

// AddResult implements application.MetricsObserver
func (d *Dashboard) AddResult(domain entity.Domain, result entity.ClassificationResult) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.recent = append(d.recent, recentResult{domain: domain, result: result, at: time.Now()})
	if len(d.recent) > maxRecent {
		d.recent = d.recent[len(d.recent)-maxRecent:]
	}
}

func boxStyle(color string, width, height int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(color)).
		Padding(1, 2).
		Width(width - 2).  // Adjust for border
		Height(height - 2) // Adjust for border
}

func (d *Dashboard) renderHeader() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7D56F4")).
		Padding(0, 1)

	timeStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#999999"))

	elapsed := time.Since(d.startTime).Round(time.Second)
	now := time.Now().Format("15:04:05")

	title := titleStyle.Render("🛍  Storefront Detector")
	timeInfo := timeStyle.Render(fmt.Sprintf(" Running: %s | Time: %s", elapsed, now))

	return title + timeInfo
}

func (d *Dashboard) renderEventStats(width, height int) string {
	m := d.metrics
	stats := []string{
		"📡 Tab Events",
		"",
		fmt.Sprintf("Events Received:   %d", m.EventsReceived),
		fmt.Sprintf("Events Ignored:    %d", m.EventsIgnored),
		fmt.Sprintf("Flows Started:     %d", m.FlowsStarted),
		fmt.Sprintf("Flows Completed:   %d", m.FlowsCompleted),
		fmt.Sprintf("Ready Tabs:        %d", m.ReadyDestinations),
	}

	if elapsed := time.Since(d.startTime).Seconds(); elapsed > 0 {
		stats = append(stats,
			"",
			fmt.Sprintf("Flow Rate:         %.1f flows/s", float64(m.FlowsCompleted)/elapsed),
		)
	}

	return boxStyle("#874BFD", width, height).Render(strings.Join(stats, "\n"))
}

func (d *Dashboard) renderCacheStats(width, height int) string {
	m := d.metrics
	lookups := m.CacheHits + m.CacheMisses

	stats := []string{
		"🗄  Cache & Service",
		"",
		fmt.Sprintf("Cache Hits:        %d", m.CacheHits),
		fmt.Sprintf("Cache Misses:      %d", m.CacheMisses),
		fmt.Sprintf("Checks:            %d", m.Checks),
		fmt.Sprintf("Check Errors:      %d", m.CheckErrors),
		fmt.Sprintf("Still In Progress: %d", m.InProgressResults),
		fmt.Sprintf("Poll Attempts:     %d", m.PollAttempts),
	}

	if lookups > 0 {
		ratio := float64(m.CacheHits) / float64(lookups)
		stats = append(stats,
			"",
			fmt.Sprintf("Hit Ratio:         %.1f%%", ratio*100),
			d.hitRatio.ViewAs(ratio),
		)
	}

	return boxStyle("#FF6B6B", width, height).Render(strings.Join(stats, "\n"))
}

func (d *Dashboard) renderDeliveryStats(width, height int) string {
	m := d.metrics
	stats := []string{
		"📬 Deliveries",
		"",
		fmt.Sprintf("Delivered:         %d", m.Delivered),
		fmt.Sprintf("Queued:            %d", m.Queued),
		fmt.Sprintf("Pending Now:       %d", m.PendingMessages),
		fmt.Sprintf("Failed:            %d", m.DeliveryFailures),
		fmt.Sprintf("Discarded:         %d", m.Discarded),
	}

	return boxStyle("#4ECDC4", width, height).Render(strings.Join(stats, "\n"))
}

func (d *Dashboard) renderRecentResults(width, height int) string {
	matchStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))

	lines := []string{
		fmt.Sprintf("🔍 Recent Results (Total: %d)", len(d.recent)),
		"",
	}

	if len(d.recent) == 0 {
		lines = append(lines, "No results yet...")
	} else {
		// Height - 2 (border) - 2 (padding) - 2 (title + empty line)
		maxShow := height - 6
		if maxShow < 0 {
			maxShow = 0
		}
		start := 0
		if len(d.recent) > maxShow {
			start = len(d.recent) - maxShow
		}

		for _, r := range d.recent[start:] {
			lines = append(lines, fmt.Sprintf("  %s %s", resultBadge(r.result, matchStyle, errorStyle, dimStyle), r.domain))
		}
	}

	return boxStyle("#04B575", width, height).Render(strings.Join(lines, "\n"))
}

func resultBadge(r entity.ClassificationResult, match, failure, dim lipgloss.Style) string {
	switch {
	case r.Status == entity.StatusError:
		return failure.Render("✗ error  ")
	case r.Status == entity.StatusInProgress:
		return dim.Render("… pending")
	case r.IsMatch:
		return match.Render("✓ match  ")
	default:
		return dim.Render("· other  ")
	}
}

func (d *Dashboard) renderFooter() string {
	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#626262")).
		Padding(1, 0)

	return footerStyle.Render("Press 'q' or 'Ctrl+C' to quit")
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*500, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run starts the dashboard
func (d *Dashboard) Run() error {
	p := tea.NewProgram(d, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
