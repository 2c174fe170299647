package audio

import (
	"fmt"
	"strings"
)

// LoudnessTarget is an EBU R128 style loudnorm preset.
type LoudnessTarget struct {
	Integrated float64 // LUFS
	TruePeak   float64 // dBTP
	Range      float64 // LU
}

// Platform names a delivery destination with its own loudness preset.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformPodcast   Platform = "podcast"
	PlatformGeneric   Platform = "generic"
)

var socialTarget = LoudnessTarget{Integrated: -14, TruePeak: -1.0, Range: 11}

var loudnessTargets = map[Platform]LoudnessTarget{
	PlatformInstagram: socialTarget,
	PlatformFacebook:  socialTarget,
	PlatformYouTube:   socialTarget,
	PlatformTikTok:    socialTarget,
	PlatformPodcast:   {Integrated: -16, TruePeak: -1.5, Range: 9},
	PlatformGeneric:   socialTarget,
}

// Platforms lists the supported platforms in display order.
func Platforms() []Platform {
	return []Platform{PlatformInstagram, PlatformFacebook, PlatformYouTube, PlatformTikTok, PlatformPodcast, PlatformGeneric}
}

// ParsePlatform normalizes a platform name. Empty selects generic.
func ParsePlatform(value string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(value)))
	if p == "" {
		return PlatformGeneric, nil
	}
	if _, ok := loudnessTargets[p]; !ok {
		return "", fmt.Errorf("unknown platform %q", value)
	}
	return p, nil
}

// Target returns the loudness preset for the platform, falling back to the
// generic preset for unknown values.
func (p Platform) Target() LoudnessTarget {
	if t, ok := loudnessTargets[p]; ok {
		return t
	}
	return loudnessTargets[PlatformGeneric]
}

// CleanupLevel selects how hard the voice chain works.
type CleanupLevel string

const (
	CleanupOff   CleanupLevel = "off"
	CleanupLight CleanupLevel = "light"
	CleanupFull  CleanupLevel = "full"
)

// ParseCleanupLevel normalizes a cleanup level. Empty selects full.
func ParseCleanupLevel(value string) (CleanupLevel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "full":
		return CleanupFull, nil
	case "light":
		return CleanupLight, nil
	case "off", "none":
		return CleanupOff, nil
	default:
		return "", fmt.Errorf("unknown cleanup level %q (want off, light or full)", value)
	}
}
