package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"tracksync/internal/utils"
	"tracksync/model"
	"tracksync/store"
)

var (
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	syncedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	deletedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Strikethrough(true)
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func newTaskCmd() *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Create and manage tasks in the local cache",
	}
	taskCmd.AddCommand(newTaskAddCmd(), newTaskListCmd(), newTaskDoneCmd(), newTaskRmCmd())
	return taskCmd
}

func newTaskAddCmd() *cobra.Command {
	var (
		description string
		projectID   string
		priority    int
		dueStr      string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task locally and push it when the network allows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(flagConfig)
			if err != nil {
				return err
			}
			defer app.Close()

			now := time.Now().UTC()
			task := model.Task{
				Title:       args[0],
				Description: description,
				Status:      model.StatusTodo,
				Priority:    priority,
				ProjectID:   projectID,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := utils.ValidatePriority(priority); err != nil {
				return err
			}
			due, err := utils.ParseDateFlag(dueStr)
			if err != nil {
				return err
			}
			task.DueDate = due
			if err := model.Validate(task); err != nil {
				return err
			}

			payload, err := model.Encode(task)
			if err != nil {
				return err
			}

			rec := store.NewRecord(store.TypeTask, payload)
			rec.OwnerKey = projectID
			if err := app.store.Upsert(cmd.Context(), rec); err != nil {
				return err
			}
			fmt.Printf("Created task %s\n", keyStyle.Render(rec.LocalKey))

			pushBestEffort(app, store.TypeTask)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "desc", "d", "", "task description")
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "owning project id")
	cmd.Flags().IntVar(&priority, "priority", 0, "priority 1 (highest) to 9, 0 unset")
	cmd.Flags().StringVar(&dueStr, "due", "", "due date (YYYY-MM-DD)")
	return cmd
}

func newTaskListCmd() *cobra.Command {
	var (
		projectID   string
		pendingOnly bool
		output      string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(flagConfig)
			if err != nil {
				return err
			}
			defer app.Close()

			filter := store.Filter{OwnerKey: projectID}
			if pendingOnly {
				filter.States = []store.State{store.StatePending, store.StateDeleted}
			}

			records, err := app.store.List(cmd.Context(), store.TypeTask, filter)
			if err != nil {
				return err
			}
			switch output {
			case "json":
				return utils.OutputJSON(taskListing(records))
			case "yaml":
				return utils.OutputYAML(taskListing(records))
			case "":
			default:
				return fmt.Errorf("unknown output format %q (use json or yaml)", output)
			}

			if len(records) == 0 {
				fmt.Println("No tasks.")
				return nil
			}

			for _, rec := range records {
				fmt.Println(renderTaskLine(rec))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "filter by owning project id")
	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "only tasks awaiting sync")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output format (json or yaml)")
	return cmd
}

// taskEntry is the machine-readable listing shape for -o json/yaml
type taskEntry struct {
	LocalKey    string     `json:"local_key" yaml:"local_key"`
	CanonicalID string     `json:"canonical_id,omitempty" yaml:"canonical_id,omitempty"`
	SyncState   string     `json:"sync_state" yaml:"sync_state"`
	Task        model.Task `json:"task" yaml:"task"`
}

func taskListing(records []store.Record) []taskEntry {
	entries := make([]taskEntry, 0, len(records))
	for _, rec := range records {
		entry := taskEntry{
			LocalKey:    rec.LocalKey,
			CanonicalID: rec.CanonicalID,
			SyncState:   string(rec.State),
		}
		_ = model.Decode(rec.Payload, &entry.Task)
		entries = append(entries, entry)
	}
	return entries
}

func newTaskDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <local-key>",
		Short: "Mark a task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(flagConfig)
			if err != nil {
				return err
			}
			defer app.Close()

			rec, err := app.store.Get(cmd.Context(), store.TypeTask, args[0])
			if errors.Is(err, store.ErrNotFound) {
				return utils.ErrRecordNotFound(args[0])
			}
			if err != nil {
				return err
			}

			var task model.Task
			if err := model.Decode(rec.Payload, &task); err != nil {
				return err
			}
			task.Status = model.StatusDone
			task.UpdatedAt = time.Now().UTC()

			payload, err := model.Encode(task)
			if err != nil {
				return err
			}
			rec.Payload = payload
			rec.Touch()

			if err := app.store.Upsert(cmd.Context(), *rec); err != nil {
				return err
			}
			fmt.Printf("Task %s marked done\n", keyStyle.Render(rec.LocalKey))

			pushBestEffort(app, store.TypeTask)
			return nil
		},
	}
}

func newTaskRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <local-key>",
		Short: "Delete a task (synced to the server on the next push)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(flagConfig)
			if err != nil {
				return err
			}
			defer app.Close()

			err = app.store.MarkDeleted(cmd.Context(), store.TypeTask, args[0])
			if errors.Is(err, store.ErrNotFound) {
				return utils.ErrRecordNotFound(args[0])
			}
			if err != nil {
				return err
			}
			fmt.Printf("Task %s deleted\n", keyStyle.Render(args[0]))

			pushBestEffort(app, store.TypeTask)
			return nil
		},
	}
}

// pushBestEffort runs an immediate push+pull cycle after a local write.
// Failures are expected offline and only logged: the record stays pending
// and the daemon (or the next manual sync) retries it.
func pushBestEffort(app *App, t store.EntityType) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	report, err := app.coord.SyncType(ctx, t)
	if err != nil {
		utils.Debugf("immediate sync skipped: %v", err)
		return
	}
	for _, f := range report.Failed {
		utils.Debugf("record %s not pushed: %v", f.LocalKey, f.Err)
	}
	if len(report.Succeeded) > 0 {
		utils.Infof("pushed %d record(s)", len(report.Succeeded))
	}
}

func renderTaskLine(rec store.Record) string {
	var task model.Task
	title := "(unreadable payload)"
	status := ""
	if err := model.Decode(rec.Payload, &task); err == nil {
		title = task.Title
		status = string(task.Status)
	}

	var marker string
	switch rec.State {
	case store.StatePending:
		marker = pendingStyle.Render("●")
	case store.StateSynced:
		marker = syncedStyle.Render("●")
	case store.StateDeleted:
		marker = deletedStyle.Render("●")
		title = deletedStyle.Render(title)
	}

	return fmt.Sprintf("%s %s  %s %s", marker, keyStyle.Render(shortKey(rec.LocalKey)), title, keyStyle.Render("["+status+"]"))
}

// shortKey abbreviates a local key for display. Keys are UUIDs in practice,
// but anything shorter is shown whole.
func shortKey(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
