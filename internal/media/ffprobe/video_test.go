package ffprobe

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

const phoneProbe = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "h264",
      "codec_type": "video",
      "width": 1920,
      "height": 1080,
      "pix_fmt": "yuv420p",
      "r_frame_rate": "30000/1001",
      "avg_frame_rate": "30000/1001",
      "side_data_list": [
        {"side_data_type": "Display Matrix", "rotation": -90}
      ]
    },
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "channels": 2}
  ],
  "format": {"duration": "12.5"}
}`

func TestVideoInfoFromDisplayMatrix(t *testing.T) {
	var result Result
	if err := json.Unmarshal([]byte(phoneProbe), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	info, err := result.VideoInfo(false)
	if err != nil {
		t.Fatalf("VideoInfo: %v", err)
	}
	if info.Rotation != 270 {
		t.Fatalf("expected rotation 270, got %d", info.Rotation)
	}
	if info.Width != 1080 || info.Height != 1920 || !info.Portrait() {
		t.Fatalf("expected rotated 1080x1920, got %dx%d", info.Width, info.Height)
	}
	if math.Abs(info.FrameRate-29.97) > 0.01 || info.FrameRateRaw != "30000/1001" {
		t.Fatalf("unexpected frame rate %v (%s)", info.FrameRate, info.FrameRateRaw)
	}
	if info.Codec != "h264" || info.PixFmt != "yuv420p" {
		t.Fatalf("unexpected format %+v", info)
	}
	if !result.HasAudio() {
		t.Fatal("expected audio stream")
	}
}

func TestVideoInfoRotateTagAndPortrait(t *testing.T) {
	result := Result{Streams: []Stream{
		{CodecType: "audio"},
		{CodecType: "video", Width: 1280, Height: 720, Tags: map[string]string{"rotate": "180"}, AvgFrameRate: "25"},
	}}
	info, err := result.VideoInfo(false)
	if err != nil {
		t.Fatalf("VideoInfo: %v", err)
	}
	if info.Rotation != 180 || info.Width != 1280 || info.Height != 720 {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.FrameRate != 25 {
		t.Fatalf("expected avg frame rate fallback, got %v", info.FrameRate)
	}

	portrait, err := result.VideoInfo(true)
	if err != nil {
		t.Fatalf("VideoInfo: %v", err)
	}
	if portrait.Width != 720 || portrait.Height != 1280 {
		t.Fatalf("portrait should swap to 720x1280, got %dx%d", portrait.Width, portrait.Height)
	}
}

func TestVideoInfoNoVideo(t *testing.T) {
	_, err := Result{Streams: []Stream{{CodecType: "audio"}}}.VideoInfo(false)
	if !errors.Is(err, ErrNoVideoStream) {
		t.Fatalf("expected ErrNoVideoStream, got %v", err)
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := map[string]float64{
		"30/1":       30,
		"24000/1001": 24000.0 / 1001.0,
		"0/0":        0,
		"":           0,
		"59.94":      59.94,
		"x/1":        0,
	}
	for in, want := range tests {
		if got := ParseFrameRate(in); math.Abs(got-want) > 1e-9 {
			t.Fatalf("ParseFrameRate(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNormalizeRotation(t *testing.T) {
	tests := map[float64]int{0: 0, 90: 90, -90: 270, 180: 180, -180: 180, 270: 270, 360: 0, 89.6: 90, -270: 90}
	for in, want := range tests {
		if got := normalizeRotation(in); got != want {
			t.Fatalf("normalizeRotation(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestPlanEndCard(t *testing.T) {
	main := VideoInfo{Width: 1080, Height: 1920, PixFmt: "yuv420p", Codec: "hevc", FrameRate: 30, FrameRateRaw: "30/1"}
	card := VideoInfo{Width: 720, Height: 1280, FrameRate: 25, FrameRateRaw: "25/1"}

	plan := PlanEndCard(main, card, false)
	if !plan.NeedsScale || !plan.NeedsFrameRate || !plan.AddSilentAudio {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if plan.Encoder != "libx265" {
		t.Fatalf("expected hevc main to select libx265, got %s", plan.Encoder)
	}
	want := "scale=1080:1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=30/1,format=yuv420p"
	if got := plan.VideoFilter(); got != want {
		t.Fatalf("VideoFilter = %s", got)
	}

	same := PlanEndCard(main, main, true)
	if same.NeedsScale || same.NeedsFrameRate || same.AddSilentAudio {
		t.Fatalf("identical card should need nothing, got %+v", same)
	}

	defaults := PlanEndCard(VideoInfo{Width: 10, Height: 20, Codec: "vp9"}, card, true)
	if defaults.PixFmt != "yuv420p" || defaults.FrameRate != "30" || defaults.Encoder != "libx264" {
		t.Fatalf("unexpected defaults %+v", defaults)
	}
}
