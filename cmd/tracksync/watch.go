package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"tracksync/store"
	"tracksync/syncer"
)

func newWatchCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live view of cached tasks, updating as the cache changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(flagConfig)
			if err != nil {
				return err
			}
			defer app.Close()

			sub, err := app.store.Subscribe(cmd.Context(), store.TypeTask, store.Filter{OwnerKey: projectID})
			if err != nil {
				return err
			}
			defer sub.Close()

			m := newWatchModel(app.coord, sub)
			_, err = tea.NewProgram(m).Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "filter by owning project id")
	return cmd
}

type snapshotMsg []store.Record

type subClosedMsg struct{}

type syncDoneMsg struct {
	report *syncer.Report
	err    error
}

type watchModel struct {
	coord   *syncer.Coordinator
	sub     *store.Subscription
	spinner spinner.Model

	records []store.Record
	syncing bool
	status  string
}

func newWatchModel(coord *syncer.Coordinator, sub *store.Subscription) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	return watchModel{coord: coord, sub: sub, spinner: sp}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForSnapshot(m.sub))
}

func waitForSnapshot(sub *store.Subscription) tea.Cmd {
	return func() tea.Msg {
		records, ok := <-sub.Updates()
		if !ok {
			return subClosedMsg{}
		}
		return snapshotMsg(records)
	}
}

func runSync(coord *syncer.Coordinator) tea.Cmd {
	return func() tea.Msg {
		report, err := coord.SyncType(context.Background(), store.TypeTask)
		return syncDoneMsg{report: report, err: err}
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			if m.syncing {
				return m, nil
			}
			m.syncing = true
			m.status = ""
			return m, runSync(m.coord)
		}

	case snapshotMsg:
		m.records = []store.Record(msg)
		return m, waitForSnapshot(m.sub)

	case subClosedMsg:
		return m, tea.Quit

	case syncDoneMsg:
		m.syncing = false
		switch {
		case msg.err != nil:
			m.status = failStyle.Render(fmt.Sprintf("sync failed: %v", msg.err))
		case msg.report != nil && len(msg.report.Failed) > 0:
			m.status = pendingStyle.Render(fmt.Sprintf("%d record(s) still pending", len(msg.report.Failed)))
		default:
			m.status = okStyle.Render("in sync")
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(headStyle.Render("tasks"))
	if m.syncing {
		b.WriteString("  " + m.spinner.View() + "syncing")
	} else if m.status != "" {
		b.WriteString("  " + m.status)
	}
	b.WriteString("\n\n")

	if len(m.records) == 0 {
		b.WriteString(dimStyle.Render("no tasks") + "\n")
	}
	for _, rec := range m.records {
		b.WriteString(renderTaskLine(rec) + "\n")
	}

	b.WriteString("\n" + dimStyle.Render("r: sync now  q: quit") + "\n")
	return b.String()
}
