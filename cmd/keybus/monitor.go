package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	keybus "github.com/cskzoli/dscKeybusInterface"
	"github.com/spf13/cobra"
)

func monitorCommand() *cobra.Command {
	return &cobra.Command{
		Use:  "monitor",
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg Config
			if err := env.Parse(&cfg); err != nil {
				return err
			}
			return runMonitor(cfg)
		},
	}
}

func runMonitor(cfg Config) error {
	bus, err := cfg.openBus()
	if err != nil {
		return err
	}

	iface := keybus.New(cfg.interfaceConfig())
	if err := iface.Begin(bus); err != nil {
		return err
	}
	defer iface.Stop()
	iface.ResetStatus()

	p := tea.NewProgram(newMonitorModel(iface), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

type statusTickMsg time.Time

type monitorModel struct {
	iface    *keybus.Interface
	status   keybus.Status
	spin     spinner.Model
	quitting bool
}

func newMonitorModel(iface *keybus.Interface) monitorModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return monitorModel{iface: iface, spin: s}
}

func statusTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(statusTick(), m.spin.Tick)
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case statusTickMsg:
		for i := 0; i < 50 && m.iface.Loop(); i++ {
		}
		m.status = m.iface.Snapshot()
		return m, statusTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	alarmStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	boxStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("KEYBUS MONITOR"))
	s.WriteString("\n\n")

	if !m.status.KeybusConnected {
		s.WriteString(m.spin.View())
		s.WriteString(warnStyle.Render(" waiting for keybus..."))
		s.WriteString("\n")
		return boxStyle.Render(s.String())
	}

	line := func(label string, on bool) string {
		style := labelStyle
		mark := "off"
		if on {
			style = okStyle
			mark = "on"
		}
		return fmt.Sprintf("%-16s %s\n", label+":", style.Render(mark))
	}

	s.WriteString(line("Ready", m.status.Ready))
	s.WriteString(line("Armed", m.status.Armed))
	if m.status.Armed {
		mode := "away"
		if m.status.ArmedStay {
			mode = "stay"
		}
		s.WriteString(fmt.Sprintf("%-16s %s\n", "Mode:", labelStyle.Render(mode)))
	}
	s.WriteString(line("Exit delay", m.status.ExitDelay))
	s.WriteString(line("Trouble", m.status.Trouble))
	s.WriteString(line("Fire", m.status.Fire))

	if m.status.Alarm {
		s.WriteString(alarmStyle.Render("*** ALARM ***"))
		s.WriteString("\n")
	}

	var open []string
	for grp, b := range m.status.OpenZones {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<bit) != 0 {
				open = append(open, fmt.Sprintf("%d", grp*8+bit+1))
			}
		}
	}
	if len(open) > 0 {
		s.WriteString(fmt.Sprintf("%-16s %s\n", "Open zones:", warnStyle.Render(strings.Join(open, " "))))
	}

	s.WriteString("\n")
	s.WriteString(labelStyle.Render(fmt.Sprintf("status code %#02x | press q to quit", m.status.StatusCode)))

	return boxStyle.Render(s.String())
}
