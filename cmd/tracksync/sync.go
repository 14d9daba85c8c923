package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"tracksync/internal/utils"
	"tracksync/store"
	"tracksync/syncer"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headStyle = lipgloss.NewStyle().Bold(true)
)

func newSyncCmd() *cobra.Command {
	var entityType string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a push+pull cycle now",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(flagConfig)
			if err != nil {
				return err
			}
			defer app.Close()

			var reports []*syncer.Report
			if entityType != "" {
				t, err := parseEntityType(entityType)
				if err != nil {
					return err
				}
				report, err := app.coord.SyncType(cmd.Context(), t)
				if errors.Is(err, syncer.ErrUnauthorized) {
					return utils.ErrSessionExpired()
				}
				if err != nil {
					printReport(report)
					return err
				}
				reports = append(reports, report)
			} else {
				var err error
				reports, err = app.coord.SyncAll(cmd.Context())
				if errors.Is(err, syncer.ErrUnauthorized) {
					return utils.ErrSessionExpired()
				}
				if err != nil {
					return err
				}
			}

			for _, report := range reports {
				printReport(report)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&entityType, "type", "t", "", "sync a single entity type (task, project, user, notification)")
	return cmd
}

func printReport(r *syncer.Report) {
	if r == nil {
		return
	}

	fmt.Println(headStyle.Render(string(r.Type)))
	fmt.Printf("  pushed: %s  pulled: %s  %s\n",
		okStyle.Render(fmt.Sprintf("%d", len(r.Succeeded))),
		okStyle.Render(fmt.Sprintf("%d", r.Pulled)),
		dimStyle.Render(r.Duration.Round(time.Millisecond).String()),
	)
	for _, f := range r.Failed {
		fmt.Printf("  %s %s: %v\n", failStyle.Render("✗"), f.LocalKey, f.Err)
	}
	if r.PullErr != nil {
		fmt.Printf("  %s pull failed: %v\n", failStyle.Render("✗"), r.PullErr)
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cache and pending-sync statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(flagConfig)
			if err != nil {
				return err
			}
			defer app.Close()

			for _, t := range store.AllTypes() {
				stats, err := app.store.Stats(cmd.Context(), t)
				if err != nil {
					return err
				}
				line := fmt.Sprintf("%-13s total: %-4d pending: %-4d deleting: %d",
					t, stats.Total, stats.Pending, stats.Deleted)
				if stats.Pending+stats.Deleted > 0 {
					line = pendingStyle.Render(line)
				}
				fmt.Println(line)
			}
			fmt.Println(dimStyle.Render("cache: " + app.db.Path()))
			return nil
		},
	}
}
