package ffprobe

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// VideoInfo is the normalized geometry and format of the first video stream.
type VideoInfo struct {
	Width     int
	Height    int
	PixFmt    string
	Codec     string
	FrameRate float64
	// FrameRateRaw keeps ffprobe's rational form (e.g. "30000/1001") for
	// passing back to ffmpeg without rounding.
	FrameRateRaw string
	Rotation     int
}

// ErrNoVideoStream is returned when a file has no video stream.
var ErrNoVideoStream = errors.New("no video stream")

// VideoInfo extracts the first video stream. Width and height are swapped
// for 90/270 degree rotations so they describe the displayed frame. With
// portrait set, the result is forced to be at least as tall as it is wide.
func (r Result) VideoInfo(portrait bool) (VideoInfo, error) {
	for _, stream := range r.Streams {
		if !strings.EqualFold(stream.CodecType, "video") {
			continue
		}
		if stream.Width <= 0 || stream.Height <= 0 {
			return VideoInfo{}, fmt.Errorf("video stream %d has no dimensions", stream.Index)
		}
		info := VideoInfo{
			Width:    stream.Width,
			Height:   stream.Height,
			PixFmt:   stream.PixFmt,
			Codec:    strings.ToLower(stream.CodecName),
			Rotation: streamRotation(stream),
		}
		info.FrameRateRaw = firstRate(stream.RFrameRate, stream.AvgFrameRate)
		info.FrameRate = ParseFrameRate(info.FrameRateRaw)
		if info.Rotation == 90 || info.Rotation == 270 {
			info.Width, info.Height = info.Height, info.Width
		}
		if portrait && info.Width > info.Height {
			info.Width, info.Height = info.Height, info.Width
		}
		return info, nil
	}
	return VideoInfo{}, ErrNoVideoStream
}

// Portrait reports whether the frame is taller than it is wide.
func (v VideoInfo) Portrait() bool {
	return v.Height > v.Width
}

func firstRate(values ...string) string {
	for _, v := range values {
		if ParseFrameRate(v) > 0 {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// ParseFrameRate parses "num/den" or a decimal rate. Invalid or zero
// denominators yield 0.
func ParseFrameRate(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	num, den, ok := strings.Cut(value, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// streamRotation prefers the display matrix side data and falls back to the
// legacy rotate tag. The result is one of 0, 90, 180 or 270.
func streamRotation(stream Stream) int {
	for _, sd := range stream.SideDataList {
		if strings.EqualFold(sd.SideDataType, "Display Matrix") && sd.Rotation != 0 {
			return normalizeRotation(sd.Rotation)
		}
	}
	if raw, ok := stream.Tags["rotate"]; ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return normalizeRotation(v)
		}
	}
	return 0
}

func normalizeRotation(deg float64) int {
	r := int(math.Round(deg/90)) * 90
	r %= 360
	if r < 0 {
		r += 360
	}
	return r
}

// EndCardPlan describes how an end card must be conformed before it can be
// concatenated onto the main timeline.
type EndCardPlan struct {
	Width          int
	Height         int
	FrameRate      string
	PixFmt         string
	Encoder        string
	NeedsScale     bool
	NeedsFrameRate bool
	AddSilentAudio bool
}

// PlanEndCard matches the end card to the main video's frame size, rate,
// pixel format and codec family.
func PlanEndCard(main, card VideoInfo, cardHasAudio bool) EndCardPlan {
	plan := EndCardPlan{
		Width:          main.Width,
		Height:         main.Height,
		FrameRate:      main.FrameRateRaw,
		PixFmt:         main.PixFmt,
		Encoder:        encoderFor(main.Codec),
		NeedsScale:     card.Width != main.Width || card.Height != main.Height,
		AddSilentAudio: !cardHasAudio,
	}
	if plan.FrameRate == "" {
		plan.FrameRate = "30"
	}
	if plan.PixFmt == "" {
		plan.PixFmt = "yuv420p"
	}
	plan.NeedsFrameRate = math.Abs(ParseFrameRate(plan.FrameRate)-card.FrameRate) > 0.01
	return plan
}

// VideoFilter scales and pads the card into the main frame, then fixes SAR,
// frame rate and pixel format so the concat filter accepts it.
func (p EndCardPlan) VideoFilter() string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%s,format=%s",
		p.Width, p.Height, p.Width, p.Height, p.FrameRate, p.PixFmt,
	)
}

func encoderFor(codec string) string {
	switch strings.ToLower(codec) {
	case "hevc", "h265":
		return "libx265"
	default:
		return "libx264"
	}
}
