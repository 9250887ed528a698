package domain

import (
	"io"
	"time"
)

// MediaID is a source locator (a video page URL) accepted by the media source.
type MediaID string

// EncodingKind is the class an encoding falls into.
type EncodingKind string

const (
	KindVideoOnly EncodingKind = "video"
	KindAudioOnly EncodingKind = "audio"
	KindCombined  EncodingKind = "combined"
	KindNone      EncodingKind = "none"
)

// Encoding is one row of a catalog. Zero numeric fields and empty strings mean
// the source did not report the value.
type Encoding struct {
	ID           string  `json:"id"`
	HasVideo     bool    `json:"has_video"`
	HasAudio     bool    `json:"has_audio"`
	Container    string  `json:"container"`
	QualityLabel string  `json:"quality_label,omitempty"`
	FPS          float64 `json:"fps,omitempty"`
	Bitrate      int64   `json:"bitrate,omitempty"`       // bits per second
	AudioBitrate int     `json:"audio_bitrate,omitempty"` // kbps
	AudioQuality string  `json:"audio_quality,omitempty"`
	SizeBytes    int64   `json:"size_bytes,omitempty"`
}

// Kind derives the classification from the video/audio flags.
func (e Encoding) Kind() EncodingKind {
	switch {
	case e.HasVideo && e.HasAudio:
		return KindCombined
	case e.HasVideo:
		return KindVideoOnly
	case e.HasAudio:
		return KindAudioOnly
	default:
		return KindNone
	}
}

// Catalog is the live answer of the media source for one MediaID.
type Catalog struct {
	Title     string     `json:"title"`
	Encodings []Encoding `json:"encodings"`
}

// Find returns the first encoding whose ID matches. yt-dlp never repeats a
// format_id within one response, but other sources might.
func (c *Catalog) Find(id string) (Encoding, bool) {
	for _, e := range c.Encodings {
		if e.ID == id {
			return e, true
		}
	}
	return Encoding{}, false
}

// Classified is a catalog partitioned by kind, each slice ordered best first.
type Classified struct {
	Title     string     `json:"title"`
	VideoOnly []Encoding `json:"video_only"`
	AudioOnly []Encoding `json:"audio_only"`
	Combined  []Encoding `json:"combined"`
}

// FetchJob asks for one encoding of one media item to be written to Sink.
type FetchJob struct {
	Media      MediaID
	EncodingID string
	Sink       io.Writer
}

// MergeRequest selects a video-only and an audio-only encoding to be muxed.
type MergeRequest struct {
	Media           MediaID
	VideoEncodingID string
	AudioEncodingID string
}

// DirectRequest selects a single, already combined encoding.
type DirectRequest struct {
	Media      MediaID
	EncodingID string
}

// MergeJob is the per-request context of the mux pipeline. Everything it
// references is owned by this job alone.
type MergeJob struct {
	Token     string
	Seq       uint64
	Request   MergeRequest
	Stem      string
	CreatedAt time.Time
}

// MuxSpec describes one invocation of the muxing process.
type MuxSpec struct {
	VideoPath  string
	AudioPath  string
	OutputPath string
}

// MuxResult is the completion signal of the muxing process.
type MuxResult struct {
	Command     []string
	ExitCode    int
	Diagnostics string
	Duration    time.Duration
}
