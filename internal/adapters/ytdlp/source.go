package ytdlp

import (
	"context"
	"io"
	"net/url"
	"regexp"
	"strings"

	"mergeanddown/internal/core/domain"
	"mergeanddown/internal/core/ports"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Source implements ports.MediaSource: yt-dlp answers catalog and format
// questions, the downloader moves the bytes.
type Source struct {
	client     *Client
	downloader ports.Downloader
}

// NewSource creates a new Source.
func NewSource(client *Client, downloader ports.Downloader) *Source {
	return &Source{client: client, downloader: downloader}
}

// Validate accepts YouTube watch, shorts, embed, live and youtu.be URLs that
// carry a well-formed video id.
func (s *Source) Validate(raw string) bool {
	return ExtractVideoID(raw) != ""
}

// Info implements ports.MediaSource.
func (s *Source) Info(ctx context.Context, id domain.MediaID) (*domain.Catalog, error) {
	return s.client.Info(ctx, string(id))
}

// OpenStream resolves the format's direct URL and starts downloading it.
func (s *Source) OpenStream(ctx context.Context, id domain.MediaID, encodingID string) (io.ReadCloser, error) {
	resolved, err := s.client.ResolveFormat(ctx, string(id), encodingID)
	if err != nil {
		return nil, err
	}
	body, err := s.downloader.Download(ctx, resolved.URL, resolved.Headers)
	if err != nil {
		return nil, domain.E(domain.TransferError, "open stream "+encodingID, err)
	}
	return body, nil
}

// ExtractVideoID returns the 11 character video id of a YouTube URL, or ""
// when raw is not one.
func ExtractVideoID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}

	host := strings.ToLower(u.Hostname())
	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com", "www.youtube-nocookie.com":
		path := strings.Trim(u.Path, "/")
		switch {
		case path == "watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(path, "shorts/"), strings.HasPrefix(path, "embed/"),
			strings.HasPrefix(path, "live/"), strings.HasPrefix(path, "v/"):
			id = path[strings.Index(path, "/")+1:]
		}
	}

	if !videoIDPattern.MatchString(id) {
		return ""
	}
	return id
}

// IsVideoURL reports whether raw points at a YouTube video.
func IsVideoURL(raw string) bool {
	return ExtractVideoID(raw) != ""
}

// CanonicalURL rewrites any recognised YouTube URL (embed, shorts, youtu.be)
// to its watch form. It returns "" for anything else.
func CanonicalURL(raw string) string {
	id := ExtractVideoID(raw)
	if id == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + id
}
