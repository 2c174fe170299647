package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"trueedits/internal/config"
	"trueedits/internal/deps"
	"trueedits/internal/logging"
	"trueedits/internal/preflight"
	"trueedits/internal/queue"
	"trueedits/internal/stage"
	"trueedits/internal/stageexec"
	"trueedits/internal/workflow"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show tool, path and history status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			section(stdout, "System Status", colorize)
			fmt.Fprintln(stdout, renderStatusLine("Config", statusInfo, ctx.configPath, colorize))
			fmt.Fprintln(stdout, resultLine(preflight.CheckTranscriptionFromConfig(cfg), statusWarn, colorize))
			fmt.Fprintln(stdout, gpuStatusLine(preflight.ProbeGPU(), cfg, colorize))
			fmt.Fprintln(stdout, resultLine(preflight.CheckEndCardsFromConfig(cfg), statusWarn, colorize))
			fmt.Fprintln(stdout, notificationStatusLine(cfg, colorize))
			fmt.Fprintln(stdout)

			section(stdout, "Dependencies", colorize)
			for _, line := range dependencyLines(preflight.CheckSystemDeps(cmd.Context(), cfg), colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			section(stdout, "Paths", colorize)
			for _, r := range preflight.RunAll(cfg) {
				fmt.Fprintln(stdout, resultLine(r, statusError, colorize))
			}
			fmt.Fprintln(stdout)

			section(stdout, "Stages", colorize)
			manager := workflow.NewManager(cfg, nil, logging.NewNop())
			health, err := manager.StageHealth(cmd.Context(), workflow.Request{})
			if err != nil {
				fmt.Fprintln(stdout, renderStatusLine("Pipeline", statusError, err.Error(), colorize))
			}
			for _, line := range stageHealthLines(health, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			section(stdout, "History", colorize)
			return writeHistoryStatus(cmd.Context(), stdout, cfg, colorize)
		},
	}
}

func section(out io.Writer, title string, colorize bool) {
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
}

func resultLine(r preflight.Result, failKind statusKind, colorize bool) string {
	if r.Passed {
		return renderStatusLine(r.Name, statusOK, r.Detail, colorize)
	}
	return renderStatusLine(r.Name, failKind, r.Detail, colorize)
}

func gpuStatusLine(probe preflight.GPUProbe, cfg *config.Config, colorize bool) string {
	switch {
	case probe.Detected:
		return renderStatusLine("GPU", statusOK, probe.GPUDetail(), colorize)
	case cfg.Transcription.CUDAEnabled:
		return renderStatusLine("GPU", statusWarn, "CUDA enabled but no device detected", colorize)
	default:
		return renderStatusLine("GPU", statusInfo, probe.GPUDetail(), colorize)
	}
}

func notificationStatusLine(cfg *config.Config, colorize bool) string {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return renderStatusLine("Notifications", statusInfo, "Disabled", colorize)
	}
	return renderStatusLine("Notifications", statusOK, topic, colorize)
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	missing, optional := deps.Summarize(statuses)
	summary := renderStatusLine("Summary", statusOK, "All dependencies available", colorize)
	switch {
	case len(missing) > 0:
		summary = renderStatusLine("Summary", statusError, "Missing "+strings.Join(missing, ", "), colorize)
	case len(optional) > 0:
		summary = renderStatusLine("Summary", statusWarn, "Optional missing: "+strings.Join(optional, ", "), colorize)
	}

	lines := []string{summary}
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	return lines
}

func stageHealthLines(health []stage.Health, colorize bool) []string {
	lines := make([]string, 0, len(health))
	for _, h := range health {
		label := stageexec.DeriveStageLabel(h.Name)
		if h.Ready {
			detail := h.Detail
			if detail == "" {
				detail = "Ready"
			}
			lines = append(lines, renderStatusLine(label, statusOK, detail, colorize))
			continue
		}
		lines = append(lines, renderStatusLine(label, statusError, h.Detail, colorize))
	}
	return lines
}

func writeHistoryStatus(ctx context.Context, out io.Writer, cfg *config.Config, colorize bool) error {
	store, err := queue.Open(cfg)
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Database", statusError, err.Error(), colorize))
		return nil
	}
	defer store.Close()

	health, err := store.CheckHealth(ctx)
	if err != nil || !health.IntegrityCheck || len(health.MissingTables) > 0 {
		detail := health.Error
		if err != nil {
			detail = err.Error()
		} else if len(health.MissingTables) > 0 {
			detail = "missing tables: " + strings.Join(health.MissingTables, ", ")
		}
		fmt.Fprintln(out, renderStatusLine("Database", statusError, detail, colorize))
		return nil
	}
	fmt.Fprintln(out, renderStatusLine("Database", statusOK, health.DBPath, colorize))

	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("history stats: %w", err)
	}
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		if count := stats[status]; count > 0 {
			rows = append(rows, []string{string(status), strconv.Itoa(count)})
		}
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No jobs recorded")
		return nil
	}
	fmt.Fprint(out, renderTable([]string{"Status", "Jobs"}, rows, 1))
	fmt.Fprintln(out)
	return nil
}
