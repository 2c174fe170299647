package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"trueedits/internal/config"
	"trueedits/internal/workflow"
)

type buildFlags struct {
	model          string
	language       string
	cleanup        string
	platform       string
	music          string
	musicVolume    float64
	voiceIsolation bool
	endCard        string
	captions       bool
	position       string
	anchor         string
	karaoke        bool
	lengthMode     string
	forceCaptions  bool
}

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var flags buildFlags

	cmd := &cobra.Command{
		Use:   "build <video>...",
		Short: "Caption and finish one or more videos",
		Long: "Run the caption, end card and audio pipeline over each video in order.\n" +
			"Finished files are written as <name>_Edited.mp4. Press Ctrl+C to stop;\n" +
			"the current video is abandoned and its temp files are removed.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req, err := requestFromFlags(cmd, flags, args, cfg.Captions)
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			stdout := cmd.OutOrStdout()
			printer := newProgressPrinter(stdout, shouldColorize(stdout))
			manager := workflow.NewManager(cfg, store, logger)
			summary, err := manager.RunBatch(runCtx, req, printer.print)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout)
			fmt.Fprint(stdout, renderSummary(summary, len(req.Videos)))
			fmt.Fprintln(stdout)
			if len(summary.Errors) > 0 {
				fmt.Fprintln(stdout, "Errors:")
				for _, entry := range summary.Errors {
					fmt.Fprintf(stdout, "  - %s\n", entry)
				}
			}
			switch {
			case runCtx.Err() != nil:
				return context.Canceled
			case !summary.Success:
				return fmt.Errorf("%d of %d videos failed", summary.Failed, len(req.Videos))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.model, "model", "", "WhisperX model (e.g. large-v3)")
	f.StringVar(&flags.language, "language", "", "Spoken language code, or auto")
	f.StringVar(&flags.cleanup, "cleanup", "", "Voice cleanup level: off, light or full")
	f.StringVar(&flags.platform, "platform", "", "Loudness target: instagram, facebook, youtube, tiktok, podcast or generic")
	f.StringVar(&flags.music, "music", "", "Background music track")
	f.Float64Var(&flags.musicVolume, "music-volume", 0, "Music gain before ducking (0-2)")
	f.BoolVar(&flags.voiceIsolation, "voice-isolation", false, "Isolate the voice with DeepFilterNet")
	f.StringVar(&flags.endCard, "end-card", "", "End card clip appended to every video")
	f.BoolVar(&flags.captions, "captions", true, "Generate and burn in captions")
	f.StringVar(&flags.position, "position", "", "Caption position as x,y fractions of the frame")
	f.StringVar(&flags.anchor, "anchor", "", "Caption anchor: auto, top, middle or bottom")
	f.BoolVar(&flags.karaoke, "karaoke", false, "Highlight each word as it is spoken")
	f.StringVar(&flags.lengthMode, "length-mode", "", "Caption length: line, single_word or movie")
	f.BoolVar(&flags.forceCaptions, "force-captions", false, "Regenerate captions even when a cached script exists")
	return cmd
}

// requestFromFlags maps explicitly set flags onto a request. Unset flags keep
// the configured values.
func requestFromFlags(cmd *cobra.Command, flags buildFlags, videos []string, captions config.CaptionConfig) (workflow.Request, error) {
	changed := func(name string) bool { return cmd.Flags().Changed(name) }
	req := workflow.Request{
		Videos:        videos,
		Model:         flags.model,
		Language:      flags.language,
		Cleanup:       flags.cleanup,
		Platform:      flags.platform,
		Music:         flags.music,
		EndCard:       flags.endCard,
		LengthMode:    flags.lengthMode,
		ForceCaptions: flags.forceCaptions,
	}
	if changed("music-volume") {
		v := flags.musicVolume
		req.MusicVolume = &v
	}
	if changed("voice-isolation") {
		v := flags.voiceIsolation
		req.VoiceIsolation = &v
	}
	if changed("captions") {
		v := flags.captions
		req.Captions = &v
	}
	if changed("karaoke") {
		v := flags.karaoke
		req.Karaoke = &v
	}
	if changed("position") || changed("anchor") {
		anchor := captions.Anchor
		if changed("anchor") {
			anchor = flags.anchor
		}
		current := workflow.Position{X: captions.PositionX, Y: captions.PositionY, Anchor: anchor}
		pos, err := parsePosition(flags.position, current)
		if err != nil {
			return workflow.Request{}, err
		}
		req.Position = &pos
	}
	return req, nil
}

// parsePosition reads "x,y" over current. An empty value keeps current.
func parsePosition(value string, current workflow.Position) (workflow.Position, error) {
	pos := current
	pos.Anchor = strings.TrimSpace(pos.Anchor)
	value = strings.TrimSpace(value)
	if value == "" {
		return pos, nil
	}
	xs, ys, ok := strings.Cut(value, ",")
	if !ok {
		return workflow.Position{}, fmt.Errorf("--position must be x,y, got %q", value)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return workflow.Position{}, fmt.Errorf("--position x: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return workflow.Position{}, fmt.Errorf("--position y: %w", err)
	}
	if x < 0 || x > 1 || y < 0 || y > 1 {
		return workflow.Position{}, fmt.Errorf("--position values must be between 0 and 1, got %q", value)
	}
	pos.X, pos.Y = x, y
	return pos, nil
}

func renderSummary(summary workflow.Summary, total int) string {
	rows := [][]string{
		{"Videos", strconv.Itoa(total)},
		{"Edited", strconv.Itoa(summary.Processed)},
		{"Failed", strconv.Itoa(summary.Failed)},
		{"Stopped", strconv.Itoa(summary.Cancelled)},
		{"Success", yesNo(summary.Success)},
	}
	return renderTable([]string{"Result", "Count"}, rows, 1)
}

type progressPrinter struct {
	out      io.Writer
	colorize bool
}

func newProgressPrinter(out io.Writer, colorize bool) *progressPrinter {
	return &progressPrinter{out: out, colorize: colorize}
}

func (p *progressPrinter) print(percent int, message string) {
	line := fmt.Sprintf("[%3d%%] %s", percent, message)
	switch {
	case strings.Contains(message, "✓"), strings.HasPrefix(message, "Batch complete!"):
		line = paint(line, ansiGreen, p.colorize)
	case strings.Contains(message, "✗"):
		line = paint(line, ansiRed, p.colorize)
	}
	fmt.Fprintln(p.out, line)
}
