package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trueedits/internal/queue"
)

type runView struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Total     int       `json:"total"`
	Processed int       `json:"processed"`
	Failed    int       `json:"failed"`
	Cancelled int       `json:"cancelled"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Message   string    `json:"message,omitempty"`
}

type jobView struct {
	Position int    `json:"position"`
	Video    string `json:"video"`
	Status   string `json:"status"`
	Stage    string `json:"stage,omitempty"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			views := make([]runView, 0, len(runs))
			for _, run := range runs {
				views = append(views, newRunView(run))
			}
			if asJSON {
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No batches recorded")
				return nil
			}
			fmt.Fprint(out, renderRunsTable(views))
			fmt.Fprintln(out)
			return nil
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of batches to show")
	historyCmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the videos of one batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runID, err := resolveRunID(cmd, store, args[0])
			if err != nil {
				return err
			}
			jobs, err := store.JobsForRun(cmd.Context(), runID)
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}
			views := make([]jobView, 0, len(jobs))
			for _, job := range jobs {
				views = append(views, newJobView(job))
			}
			if asJSON {
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintf(out, "No videos recorded for %s\n", runID)
				return nil
			}
			fmt.Fprint(out, renderJobsTable(views))
			fmt.Fprintln(out)
			return nil
		},
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	historyCmd.AddCommand(showCmd)

	return historyCmd
}

// resolveRunID accepts a full run ID or a unique prefix of a recent one.
func resolveRunID(cmd *cobra.Command, store *queue.Store, value string) (string, error) {
	value = strings.TrimSpace(value)
	if run, err := store.GetRun(cmd.Context(), value); err == nil && run != nil {
		return run.ID, nil
	}
	runs, err := store.ListRuns(cmd.Context(), 200)
	if err != nil {
		return "", fmt.Errorf("list runs: %w", err)
	}
	var match string
	for _, run := range runs {
		if strings.HasPrefix(run.ID, value) {
			if match != "" {
				return "", fmt.Errorf("run id prefix %q is ambiguous", value)
			}
			match = run.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("run %q not found", value)
	}
	return match, nil
}

func newRunView(run *queue.Run) runView {
	return runView{
		ID:        run.ID,
		Status:    string(run.Status),
		Total:     run.Total,
		Processed: run.Processed,
		Failed:    run.Failed,
		Cancelled: run.Cancelled,
		StartedAt: run.StartedAt,
		Duration:  run.Duration().Round(time.Second).String(),
		Message:   run.Message,
	}
}

func newJobView(job *queue.Job) jobView {
	return jobView{
		Position: job.Position + 1,
		Video:    filepath.Base(job.VideoPath),
		Status:   string(job.Status),
		Stage:    job.Stage,
		Output:   job.OutputPath,
		Error:    job.ErrorMessage,
	}
}

func renderRunsTable(views []runView) string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		id := v.ID
		if len(id) > 8 {
			id = id[:8]
		}
		rows = append(rows, []string{
			id,
			v.StartedAt.Local().Format("2006-01-02 15:04"),
			v.Status,
			fmt.Sprintf("%d/%d", v.Processed, v.Total),
			strconv.Itoa(v.Failed),
			v.Duration,
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Status", "Edited", "Failed", "Duration"},
		rows, 3, 4, 5,
	)
}

func renderJobsTable(views []jobView) string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		detail := v.Output
		if v.Error != "" {
			detail = v.Error
		}
		rows = append(rows, []string{strconv.Itoa(v.Position), v.Video, v.Status, v.Stage, detail})
	}
	return renderTable(
		[]string{"#", "Video", "Status", "Last Stage", "Output / Error"},
		rows, 0,
	)
}
