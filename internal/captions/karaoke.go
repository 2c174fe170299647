package captions

import (
	"sort"
	"strings"
	"unicode"
)

// DefaultKaraokeFloor is the shortest highlight any word receives.
const DefaultKaraokeFloor = 0.03

// WordTiming is one karaoke highlight interval.
type WordTiming struct {
	Text  string
	Start float64
	End   float64
}

// DistributeKaraoke splits the segment duration across its words in
// proportion to their alphanumeric length. Words below floor are raised to
// it and the resulting drift is absorbed by the first longest word, so the
// intervals tile [seg.Start, seg.End] exactly.
func DistributeKaraoke(seg Segment, floor float64) []WordTiming {
	texts := segmentWordTexts(seg)
	n := len(texts)
	if n == 0 {
		return nil
	}
	if floor < 0 {
		floor = 0
	}
	dur := seg.Duration()
	if dur < 0 {
		dur = 0
	}

	alloc := allocate(texts, dur, floor)

	timings := make([]WordTiming, n)
	cursor := seg.Start
	for i, text := range texts {
		end := cursor + alloc[i]
		if i == n-1 {
			end = seg.End
		}
		timings[i] = WordTiming{Text: text, Start: cursor, End: end}
		cursor = end
	}
	return timings
}

func allocate(texts []string, dur, floor float64) []float64 {
	n := len(texts)
	alloc := make([]float64, n)
	if dur < float64(n)*floor {
		for i := range alloc {
			alloc[i] = dur / float64(n)
		}
		return alloc
	}

	weights := make([]float64, n)
	total := 0.0
	for i, t := range texts {
		weights[i] = float64(wordWeight(t))
		total += weights[i]
	}

	sum := 0.0
	for i := range alloc {
		alloc[i] = dur * weights[i] / total
		if alloc[i] < floor {
			alloc[i] = floor
		}
		sum += alloc[i]
	}

	drift := dur - sum
	longest := 0
	for i := 1; i < n; i++ {
		if alloc[i] > alloc[longest] {
			longest = i
		}
	}
	if drift >= 0 || alloc[longest]+drift >= floor {
		alloc[longest] += drift
		return alloc
	}
	spillDeficit(alloc, -drift, floor)
	return alloc
}

// spillDeficit removes deficit from the longest words in turn without taking
// any of them below floor. Only reached when many floor-raised words
// outweigh the surplus of the single longest word.
func spillDeficit(alloc []float64, deficit, floor float64) {
	order := make([]int, len(alloc))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return alloc[order[a]] > alloc[order[b]] })
	for _, i := range order {
		if deficit <= 0 {
			return
		}
		take := alloc[i] - floor
		if take > deficit {
			take = deficit
		}
		if take > 0 {
			alloc[i] -= take
			deficit -= take
		}
	}
}

func wordWeight(text string) int {
	count := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			count++
		}
	}
	if count < 1 {
		return 1
	}
	return count
}

func segmentWordTexts(seg Segment) []string {
	if len(seg.Words) > 0 {
		texts := make([]string, 0, len(seg.Words))
		for _, w := range seg.Words {
			if t := strings.TrimSpace(w.Text); t != "" {
				texts = append(texts, t)
			}
		}
		return texts
	}
	return strings.Fields(seg.Text)
}
