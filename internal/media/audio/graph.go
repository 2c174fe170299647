package audio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	outputFormat = "aresample=48000,aformat=sample_fmts=fltp:channel_layouts=stereo"
	bandPass     = "highpass=f=80,lowpass=f=12000"
	denoise      = "afftdn,dynaudnorm"
	ducking      = "sidechaincompress=threshold=0.15:ratio=6:attack=20:release=400"

	// OutputLabel is the pad carrying the finished soundtrack.
	OutputLabel = "aout"
)

// Music is a background track mixed under the voice.
type Music struct {
	Path   string
	Volume float64
}

// GraphSpec describes one audio finishing pass. VideoPath is always input
// 0; IsolatedVoice, when set, replaces the video's own audio as the voice.
type GraphSpec struct {
	VideoPath     string
	Cleanup       CleanupLevel
	IsolatedVoice string
	Music         *Music
	Target        LoudnessTarget
}

// Graph is a rendered filter_complex plus the inputs it expects, in order.
type Graph struct {
	Filter string
	Output string
	Inputs []string
}

// BuildGraph renders the filter graph for spec.
func BuildGraph(spec GraphSpec) (Graph, error) {
	if strings.TrimSpace(spec.VideoPath) == "" {
		return Graph{}, errors.New("audio graph: video path is required")
	}
	chain, err := voiceChain(spec.Cleanup)
	if err != nil {
		return Graph{}, err
	}

	inputs := []string{spec.VideoPath}
	voiceIn := "0:a"
	if strings.TrimSpace(spec.IsolatedVoice) != "" {
		inputs = append(inputs, spec.IsolatedVoice)
		voiceIn = fmt.Sprintf("%d:a", len(inputs)-1)
	}

	clauses := []string{fmt.Sprintf("[%s]%s[voice]", voiceIn, chain)}

	if spec.Music != nil && strings.TrimSpace(spec.Music.Path) != "" {
		if spec.Music.Volume < 0 {
			return Graph{}, fmt.Errorf("audio graph: music volume %v is negative", spec.Music.Volume)
		}
		inputs = append(inputs, spec.Music.Path)
		musicIn := fmt.Sprintf("%d:a", len(inputs)-1)
		clauses = append(clauses,
			fmt.Sprintf("[%s]volume=%s,%s[music]", musicIn, formatNumber(spec.Music.Volume), outputFormat),
			"[voice]asplit=2[voice_mix][voice_key]",
			"[music][voice_key]"+ducking+"[ducked]",
			"[voice_mix][ducked]amix=inputs=2:duration=first:normalize=0[mixed]",
		)
	} else {
		clauses = append(clauses, "[voice]anull[mixed]")
	}

	clauses = append(clauses, fmt.Sprintf("[mixed]%s[%s]", loudnorm(spec.Target), OutputLabel))

	return Graph{
		Filter: strings.Join(clauses, ";"),
		Output: OutputLabel,
		Inputs: inputs,
	}, nil
}

func voiceChain(level CleanupLevel) (string, error) {
	switch level {
	case CleanupOff:
		return outputFormat, nil
	case CleanupLight:
		return bandPass + "," + outputFormat, nil
	case CleanupFull, "":
		return bandPass + "," + denoise + "," + outputFormat, nil
	default:
		return "", fmt.Errorf("audio graph: unknown cleanup level %q", level)
	}
}

func loudnorm(t LoudnessTarget) string {
	return fmt.Sprintf("loudnorm=I=%s:TP=%s:LRA=%s", formatNumber(t.Integrated), formatNumber(t.TruePeak), formatNumber(t.Range))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Args returns the ffmpeg arguments that run the graph, copy the video
// stream and write an AAC soundtrack to output.
func (g Graph) Args(output string) []string {
	args := []string{"-y", "-hide_banner", "-nostdin"}
	for _, in := range g.Inputs {
		args = append(args, "-i", in)
	}
	return append(args,
		"-filter_complex", g.Filter,
		"-map", "0:v",
		"-map", "["+g.Output+"]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-ar", "48000",
		"-ac", "2",
		"-movflags", "+faststart",
		output,
	)
}
