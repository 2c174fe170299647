package encoding

import (
	"context"

	"trueedits/internal/media/ffprobe"
)

// ProbeFunc inspects a media file with the given ffprobe binary.
type ProbeFunc func(ctx context.Context, ffprobeBinary, path string) (ffprobe.Result, error)

// probeMedia inspects end cards and stage outputs.
var probeMedia ProbeFunc = ffprobe.Inspect

// SetProbeForTests swaps the prober used for end cards and output
// validation and returns a func that restores the previous one.
func SetProbeForTests(fn ProbeFunc) func() {
	previous := probeMedia
	probeMedia = fn
	return func() { probeMedia = previous }
}
