package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")).
			Width(16)

	numberStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const (
	tickInterval = 50 * time.Millisecond
	stepsPerTick = 25
)

type stressModel struct {
	w         *workload
	strongBar progress.Model
	weakBar   progress.Model
	err       error
	paused    bool
	done      bool
}

type tickMsg time.Time

func newStressModel(chunkSize int, seed int64) *stressModel {
	newBar := func() progress.Model {
		b := progress.New(progress.WithDefaultGradient())
		b.Width = 40
		return b
	}
	return &stressModel{
		// the workload collects only when told to, so the monitor can
		// show queues filling up between manual collections
		w:         newWorkload(chunkSize, seed, 0),
		strongBar: newBar(),
		weakBar:   newBar(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *stressModel) Init() tea.Cmd {
	return tick()
}

func (m *stressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !m.done {
				if err := m.w.close(); err != nil && m.err == nil {
					m.err = err
				}
				m.done = true
			}
			return m, tea.Quit

		case " ":
			m.paused = !m.paused

		case "c":
			m.w.collect()

		case "f":
			if err := m.w.env.RunFinalizers(); err != nil && m.err == nil {
				m.err = err
			}
		}

	case tickMsg:
		if m.err != nil {
			return m, nil
		}
		if !m.paused {
			for i := 0; i < stepsPerTick; i++ {
				if err := m.w.step(); err != nil {
					m.err = err
					return m, nil
				}
			}
		}
		return m, tick()
	}

	return m, nil
}

func (m *stressModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	st := m.w.env.Stats()
	var b strings.Builder

	b.WriteString(titleStyle.Render("Reference Stress"))
	if m.paused {
		b.WriteString(" ")
		b.WriteString(pausedStyle.Render("[paused]"))
	}
	b.WriteString("\n\n")

	row := func(label string, format string, args ...any) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(numberStyle.Render(fmt.Sprintf(format, args...)))
		b.WriteString("\n")
	}

	row("steps", "%d", m.w.steps)
	row("live objects", "%d (peak %d)", m.w.heap.Live(), m.w.peakLive)
	row("collections", "%d (reclaimed %d)", m.w.heap.Collections(), m.w.collected)
	row("finalizers", "%d run, %d queued", m.w.finalized, st.References.Queued)
	row("references", "%d plain, %d finalizing, %d dangling",
		st.References.Plain, st.References.Finalizing, st.References.Dangling)
	row("locals", "%d across %d chunks", st.Locals.Size, st.Locals.Chunks)
	b.WriteString("\n")

	occupancy := func(occupied, capacity int) float64 {
		if capacity == 0 {
			return 0
		}
		return float64(occupied) / float64(capacity)
	}
	b.WriteString(labelStyle.Render("strong pool"))
	b.WriteString(m.strongBar.ViewAs(occupancy(st.StrongHandles.Occupied, st.StrongHandles.Capacity)))
	b.WriteString(fmt.Sprintf("  %d/%d\n", st.StrongHandles.Occupied, st.StrongHandles.Capacity))
	b.WriteString(labelStyle.Render("weak pool"))
	b.WriteString(m.weakBar.ViewAs(occupancy(st.WeakHandles.Occupied, st.WeakHandles.Capacity)))
	b.WriteString(fmt.Sprintf("  %d/%d\n", st.WeakHandles.Occupied, st.WeakHandles.Capacity))

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("space pause • c collect • f run finalizers • q quit"))
	return b.String()
}

func runInteractive(chunkSize int, seed int64) error {
	p := tea.NewProgram(newStressModel(chunkSize, seed), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
