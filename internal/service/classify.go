package service

import (
	"regexp"
	"sort"
	"strconv"

	"mergeanddown/internal/core/domain"
)

var firstInteger = regexp.MustCompile(`\d+`)

// Classify partitions a catalog into video-only, audio-only and combined
// encodings, each sorted best first. Encodings with neither stream are
// dropped.
func Classify(catalog *domain.Catalog) domain.Classified {
	out := domain.Classified{
		VideoOnly: []domain.Encoding{},
		AudioOnly: []domain.Encoding{},
		Combined:  []domain.Encoding{},
	}
	if catalog == nil {
		return out
	}
	out.Title = catalog.Title

	for _, e := range catalog.Encodings {
		switch e.Kind() {
		case domain.KindVideoOnly:
			out.VideoOnly = append(out.VideoOnly, e)
		case domain.KindAudioOnly:
			out.AudioOnly = append(out.AudioOnly, e)
		case domain.KindCombined:
			out.Combined = append(out.Combined, e)
		}
	}

	sortByQuality(out.VideoOnly)
	sortByQuality(out.Combined)
	sort.SliceStable(out.AudioOnly, func(i, j int) bool {
		return rankDesc(out.AudioOnly[i].AudioBitrate, out.AudioOnly[i].AudioBitrate > 0,
			out.AudioOnly[j].AudioBitrate, out.AudioOnly[j].AudioBitrate > 0)
	})
	return out
}

// QualityValue extracts the first integer of a quality label ("1080p60" is
// 1080). ok is false when the label carries no digits.
func QualityValue(label string) (value int, ok bool) {
	m := firstInteger.FindString(label)
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return v, true
}

func sortByQuality(encs []domain.Encoding) {
	sort.SliceStable(encs, func(i, j int) bool {
		vi, oki := QualityValue(encs[i].QualityLabel)
		vj, okj := QualityValue(encs[j].QualityLabel)
		return rankDesc(vi, oki, vj, okj)
	})
}

// rankDesc orders known values descending and unknown values after them.
func rankDesc(a int, aKnown bool, b int, bKnown bool) bool {
	switch {
	case aKnown && bKnown:
		return a > b
	default:
		return aKnown && !bKnown
	}
}
