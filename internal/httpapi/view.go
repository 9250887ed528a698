package httpapi

import (
	"fmt"

	"mergeanddown/internal/core/domain"
)

const unknown = "unknown"

// QualityView is the /quality response.
type QualityView struct {
	Title     string         `json:"title"`
	VideoOnly []EncodingView `json:"videoOnly"`
	AudioOnly []EncodingView `json:"audioOnly"`
	Combined  []EncodingView `json:"combined"`
}

// EncodingView is one selectable encoding with display strings alongside the
// raw values. Display strings read "unknown" when the source did not say.
type EncodingView struct {
	ID           string  `json:"id"`
	QualityLabel string  `json:"qualityLabel,omitempty"`
	Container    string  `json:"container,omitempty"`
	FPS          float64 `json:"fps,omitempty"`
	Bitrate      int64   `json:"bitrate,omitempty"`
	BitrateText  string  `json:"bitrateText,omitempty"`
	SizeBytes    int64   `json:"sizeBytes,omitempty"`
	SizeText     string  `json:"sizeText,omitempty"`
	AudioBitrate int     `json:"audioBitrate,omitempty"`
	AudioQuality string  `json:"audioQuality,omitempty"`
}

// NewQualityView renders a classified catalog.
func NewQualityView(c domain.Classified) QualityView {
	v := QualityView{
		Title:     c.Title,
		VideoOnly: make([]EncodingView, 0, len(c.VideoOnly)),
		AudioOnly: make([]EncodingView, 0, len(c.AudioOnly)),
		Combined:  make([]EncodingView, 0, len(c.Combined)),
	}
	for _, e := range c.VideoOnly {
		v.VideoOnly = append(v.VideoOnly, EncodingView{
			ID:           e.ID,
			QualityLabel: e.QualityLabel,
			Container:    e.Container,
			FPS:          e.FPS,
			Bitrate:      e.Bitrate,
			BitrateText:  FormatBitrate(e.Bitrate),
		})
	}
	for _, e := range c.AudioOnly {
		v.AudioOnly = append(v.AudioOnly, EncodingView{
			ID:           e.ID,
			Container:    e.Container,
			AudioBitrate: e.AudioBitrate,
			AudioQuality: orUnknown(e.AudioQuality),
		})
	}
	for _, e := range c.Combined {
		v.Combined = append(v.Combined, EncodingView{
			ID:           e.ID,
			QualityLabel: e.QualityLabel,
			Container:    e.Container,
			FPS:          e.FPS,
			Bitrate:      e.Bitrate,
			BitrateText:  FormatBitrate(e.Bitrate),
			SizeBytes:    e.SizeBytes,
			SizeText:     FormatSize(e.SizeBytes),
			AudioQuality: orUnknown(e.AudioQuality),
		})
	}
	return v
}

// FormatBitrate renders bits per second as binary megabits.
func FormatBitrate(bps int64) string {
	if bps <= 0 {
		return unknown
	}
	return fmt.Sprintf("%.2f Mbps", float64(bps)/1024/1024)
}

// FormatSize renders a byte count as binary megabytes.
func FormatSize(n int64) string {
	if n <= 0 {
		return unknown
	}
	return fmt.Sprintf("%.2f MB", float64(n)/1024/1024)
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
