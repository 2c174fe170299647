package deps

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// RequiredFilters lists the ffmpeg filters the build pipeline emits.
// "subtitles" is only present when ffmpeg was built with libass.
var RequiredFilters = []string{
	"subtitles",
	"loudnorm",
	"sidechaincompress",
	"afftdn",
	"dynaudnorm",
	"amix",
	"asplit",
	"concat",
	"anullsrc",
	"highpass",
	"agate",
}

// CheckFFmpegFilters lists the filters compiled into the ffmpeg binary and
// reports which of the required ones are missing.
func CheckFFmpegFilters(ctx context.Context, ffmpegBinary string, required []string) Status {
	status := Status{
		Name:        "FFmpeg filters",
		Command:     strings.TrimSpace(ffmpegBinary),
		Description: "Filters used for burn-in, end cards and audio finishing",
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	out, err := exec.CommandContext(ctx, status.Command, "-hide_banner", "-filters").Output() //nolint:gosec
	if err != nil {
		status.Detail = fmt.Sprintf("list filters: %v", err)
		return status
	}
	available := ParseFilterList(string(out))
	var missing []string
	for _, name := range required {
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		status.Detail = "missing filters: " + strings.Join(missing, ", ")
		return status
	}
	status.Available = true
	return status
}

// ParseFilterList extracts filter names from `ffmpeg -filters` output.
func ParseFilterList(output string) map[string]struct{} {
	filters := make(map[string]struct{})
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || len(fields[0]) != 3 || !strings.Contains(fields[2], "->") {
			continue
		}
		if strings.Trim(fields[0], "TSC.") != "" {
			continue
		}
		filters[fields[1]] = struct{}{}
	}
	return filters
}
