package cmd

import (
	"context"
	"fmt"
	"strings"

	"moddb-curator/logger"
	"moddb-curator/ui"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

const (
	visibleLogLines = 8
	barWidth        = 30
)

// UpdateModel controls the UI for the update command
type UpdateModel struct {
	spinner      spinner.Model
	scanBar      progress.Model
	fetchBar     progress.Model
	progressChan chan UpdateProgressMsg
	job          updateJob

	// State
	status     string
	logs       []string
	errors     []string
	summary    string
	done       bool
	scanDone   int
	scanTotal  int
	fetchDone  int
	fetchTotal int
}

func initialUpdateModel(job updateJob) UpdateModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	progressCh := make(chan UpdateProgressMsg, 100)
	job.progress = progressCh

	return UpdateModel{
		spinner:      s,
		scanBar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth)),
		fetchBar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth)),
		progressChan: progressCh,
		job:          job,
		status:       "Initializing...",
		logs:         []string{},
		errors:       []string{},
	}
}

func (m UpdateModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.startUpdate(),
		m.waitForActivity(),
	)
}

func (m UpdateModel) startUpdate() tea.Cmd {
	return func() tea.Msg {
		go func() {
			defer close(m.progressChan)
			if _, err := m.job.run(context.Background()); err != nil {
				logger.Log.Errorw("Update failed", zap.Error(err))
				m.progressChan <- UpdateProgressMsg{Type: msgError, Message: err.Error()}
			}
		}()
		return nil
	}
}

func (m UpdateModel) waitForActivity() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.progressChan
		if !ok {
			return UpdateProgressMsg{Type: msgDone}
		}
		return msg
	}
}

func (m UpdateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.done {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case UpdateProgressMsg:
		switch msg.Type {
		case msgDone:
			m.done = true
			m.status = "Finished"
			return m, tea.Quit

		case msgStatus:
			m.status = msg.Message

		case msgLog:
			m.logs = append(m.logs, ui.Colorize(msg.Message, ui.LevelColor(msg.Level)))

		case msgScanProgress:
			m.scanDone, m.scanTotal = msg.Done, msg.Total
			m.status = fmt.Sprintf("Scanning local mods %d/%d", msg.Done, msg.Total)

		case msgFetchStart:
			m.fetchDone, m.fetchTotal = 0, msg.Total
			m.status = fmt.Sprintf("Fetching details for %d new mods...", msg.Total)

		case msgFetchProgress:
			m.fetchDone, m.fetchTotal = msg.Done, msg.Total
			m.status = fmt.Sprintf("Fetching details %d/%d", msg.Done, msg.Total)

		case msgError:
			m.errors = append(m.errors, msg.Message)

		case msgSummary:
			m.summary = msg.Message
		}

		return m, m.waitForActivity()
	}

	return m, nil
}

// fraction converts a done/total pair into a bar position in [0, 1].
func fraction(done, total int) float64 {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 1
	}
	return float64(done) / float64(total)
}

func (m UpdateModel) View() string {
	var symbol string
	if m.done {
		symbol = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("✓")
	} else {
		symbol = m.spinner.View()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n %s %s\n\n", symbol, m.status)

	fmt.Fprintf(&b, "  Local scan   %s %d/%d\n", m.scanBar.ViewAs(fraction(m.scanDone, m.scanTotal)), m.scanDone, m.scanTotal)
	fmt.Fprintf(&b, "  Remote fetch %s %d/%d\n\n", m.fetchBar.ViewAs(fraction(m.fetchDone, m.fetchTotal)), m.fetchDone, m.fetchTotal)

	if len(m.logs) > 0 {
		start := 0
		if len(m.logs) > visibleLogLines && !m.done {
			start = len(m.logs) - visibleLogLines
		}
		for _, line := range m.logs[start:] {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		b.WriteString("\n")
	}

	if len(m.errors) > 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("Errors:") + "\n")
		for _, e := range m.errors {
			fmt.Fprintf(&b, "  • %s\n", e)
		}
		b.WriteString("\n")
	}

	if m.done {
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(m.summary) + "\n")
	}

	return b.String()
}

func runUpdateTUI(job updateJob) {
	p := tea.NewProgram(initialUpdateModel(job))
	if _, err := p.Run(); err != nil {
		logger.Log.Fatalw("Update view failed", zap.Error(err))
	}
}
