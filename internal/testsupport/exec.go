package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"trueedits/internal/media/ffprobe"
	"trueedits/internal/process"
	"trueedits/internal/services"
)

// FakeExecutor records commands instead of running them. Unless Fail
// rejects a command, the last argument is treated as the output path and
// written with placeholder bytes, and ProgressLines are fed to OnLine.
type FakeExecutor struct {
	mu       sync.Mutex
	commands []process.Command

	ProgressLines []string
	// Fail, when set, may return an error for a command.
	Fail func(process.Command) error
	// Before runs ahead of everything else, e.g. to cancel a context.
	Before func(process.Command)
}

// Exec implements process.Executor.
func (f *FakeExecutor) Exec(ctx context.Context, cmd process.Command) (process.Result, error) {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()
	if f.Before != nil {
		f.Before(cmd)
	}
	if err := ctx.Err(); err != nil {
		return process.Result{ExitCode: -1}, services.Cancelled(cmd.Name, err)
	}
	if f.Fail != nil {
		if err := f.Fail(cmd); err != nil {
			return process.Result{ExitCode: 1}, err
		}
	}
	if cmd.OnLine != nil {
		for _, line := range f.ProgressLines {
			cmd.OnLine(line)
		}
	}
	if n := len(cmd.Args); n > 0 {
		out := cmd.Args[n-1]
		if !strings.HasPrefix(out, "-") && filepath.IsAbs(out) {
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return process.Result{ExitCode: 1}, err
			}
			if err := os.WriteFile(out, []byte("media"), 0o644); err != nil {
				return process.Result{ExitCode: 1}, err
			}
		}
	}
	return process.Result{}, nil
}

// Commands returns a copy of the recorded commands.
func (f *FakeExecutor) Commands() []process.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]process.Command(nil), f.commands...)
}

// Joined renders recorded command i as a single string.
func (f *FakeExecutor) Joined(i int) string {
	cmds := f.Commands()
	if i < 0 || i >= len(cmds) {
		return ""
	}
	return cmds[i].Name + " " + strings.Join(cmds[i].Args, " ")
}

// ExitFailure builds the error a runner returns for a non-zero exit.
func ExitFailure(cmd process.Command, output string) error {
	return &process.ExitError{Command: cmd.Name, Args: cmd.Args, ExitCode: 1, Output: output}
}

// ProbeResult builds an ffprobe result for a video of the given geometry
// and duration, with an AAC track when audio is set.
func ProbeResult(width, height int, seconds float64, audio bool) ffprobe.Result {
	streams := []ffprobe.Stream{{
		Index:        0,
		CodecType:    "video",
		CodecName:    "h264",
		Width:        width,
		Height:       height,
		PixFmt:       "yuv420p",
		RFrameRate:   "30/1",
		AvgFrameRate: "30/1",
	}}
	if audio {
		streams = append(streams, ffprobe.Stream{Index: 1, CodecType: "audio", CodecName: "aac", Channels: 2})
	}
	return ffprobe.Result{
		Streams: streams,
		Format:  ffprobe.Format{Duration: strconv.FormatFloat(seconds, 'f', -1, 64)},
	}
}

// StaticProbe returns a probe function that answers every path with result.
func StaticProbe(result ffprobe.Result) func(context.Context, string, string) (ffprobe.Result, error) {
	return func(context.Context, string, string) (ffprobe.Result, error) {
		return result, nil
	}
}
