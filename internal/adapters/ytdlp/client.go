package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"mergeanddown/internal/core/domain"
)

const (
	DefaultInfoTimeout    = 2 * time.Minute
	DefaultResolveTimeout = time.Minute
)

var formatIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Client runs the local yt-dlp binary.
type Client struct {
	binaryPath     string
	infoTimeout    time.Duration
	resolveTimeout time.Duration
}

// NewClient creates a client for binaryPath. An empty path looks for
// yt-dlp.exe in the working directory and falls back to yt-dlp on PATH.
func NewClient(binaryPath string) *Client {
	if binaryPath == "" {
		binaryPath = "yt-dlp" // Assumes yt-dlp is in PATH
		if _, err := os.Stat("yt-dlp.exe"); err == nil {
			binaryPath = ".\\yt-dlp.exe"
		}
	}
	return &Client{
		binaryPath:     binaryPath,
		infoTimeout:    DefaultInfoTimeout,
		resolveTimeout: DefaultResolveTimeout,
	}
}

// SetTimeouts overrides the per-call deadlines. Zero keeps the current value.
func (c *Client) SetTimeouts(info, resolve time.Duration) {
	if info > 0 {
		c.infoTimeout = info
	}
	if resolve > 0 {
		c.resolveTimeout = resolve
	}
}

// BinaryPath returns the yt-dlp executable in use.
func (c *Client) BinaryPath() string { return c.binaryPath }

// Available reports whether the binary can be found.
func (c *Client) Available() bool {
	_, err := exec.LookPath(c.binaryPath)
	return err == nil
}

// rawFormat is the subset of a yt-dlp format dict we read.
type rawFormat struct {
	FormatID       string            `json:"format_id"`
	Ext            string            `json:"ext"`
	VCodec         string            `json:"vcodec"`
	ACodec         string            `json:"acodec"`
	FormatNote     string            `json:"format_note"`
	Height         int               `json:"height"`
	FPS            float64           `json:"fps"`
	TBR            float64           `json:"tbr"`
	ABR            float64           `json:"abr"`
	Filesize       int64             `json:"filesize"`
	FilesizeApprox int64             `json:"filesize_approx"`
	URL            string            `json:"url"`
	HTTPHeaders    map[string]string `json:"http_headers"`
}

type rawInfo struct {
	Title   string      `json:"title"`
	Formats []rawFormat `json:"formats"`
	rawFormat
}

// ResolvedFormat is a single format with the URL to stream it from.
type ResolvedFormat struct {
	FormatID string
	URL      string
	Headers  map[string]string
}

// Info dumps the catalog for videoURL with yt-dlp -J.
func (c *Client) Info(ctx context.Context, videoURL string) (*domain.Catalog, error) {
	ctx, cancel := context.WithTimeout(ctx, c.infoTimeout)
	defer cancel()

	out, err := c.run(ctx, "-J", "--no-playlist", "--no-warnings", videoURL)
	if err != nil {
		return nil, classify(err, domain.SourceUnavailable, "yt-dlp info")
	}
	return parseInfo(out)
}

// ResolveFormat asks yt-dlp for the direct URL of exactly one format.
func (c *Client) ResolveFormat(ctx context.Context, videoURL, formatID string) (*ResolvedFormat, error) {
	if !formatIDPattern.MatchString(formatID) {
		return nil, domain.Errorf(domain.EncodingNotFound, "yt-dlp resolve", "malformed format id %q", formatID)
	}

	ctx, cancel := context.WithTimeout(ctx, c.resolveTimeout)
	defer cancel()

	// -f best or -f b would also match the pattern; the id check below keeps
	// only exact selections.
	out, err := c.run(ctx, "-f", formatID, "-j", "--no-playlist", "--no-warnings", videoURL)
	if err != nil {
		return nil, classify(err, domain.TransferError, "yt-dlp resolve")
	}

	var info rawInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, domain.E(domain.TransferError, "yt-dlp resolve", errors.Wrap(err, "failed to decode yt-dlp output"))
	}
	if info.rawFormat.FormatID != formatID {
		return nil, domain.Errorf(domain.EncodingNotFound, "yt-dlp resolve", "format %q resolved to %q", formatID, info.rawFormat.FormatID)
	}
	if info.rawFormat.URL == "" {
		return nil, domain.Errorf(domain.TransferError, "yt-dlp resolve", "yt-dlp returned empty URL for format %s", formatID)
	}
	return &ResolvedFormat{
		FormatID: formatID,
		URL:      info.rawFormat.URL,
		Headers:  info.rawFormat.HTTPHeaders,
	}, nil
}

type commandError struct {
	err    error
	stderr string
}

func (e *commandError) Error() string {
	return fmt.Sprintf("yt-dlp failed: %v, stderr: %s", e.err, e.stderr)
}

func (e *commandError) Unwrap() error { return e.err }

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.binaryPath, args...)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, &commandError{err: err, stderr: strings.TrimSpace(stderr.String())}
	}
	if out.Len() == 0 {
		return nil, &commandError{err: errors.New("yt-dlp returned empty output")}
	}
	return out.Bytes(), nil
}

// classify maps yt-dlp's stderr onto the error taxonomy. fallback applies
// when nothing more specific is recognised.
func classify(err error, fallback domain.ErrorKind, op string) error {
	var cmdErr *commandError
	if errors.As(err, &cmdErr) {
		msg := strings.ToLower(cmdErr.stderr)
		switch {
		case strings.Contains(msg, "requested format is not available"):
			return domain.E(domain.EncodingNotFound, op, err)
		case strings.Contains(msg, "unsupported url"),
			strings.Contains(msg, "is not a valid url"),
			strings.Contains(msg, "incomplete youtube id"):
			return domain.E(domain.InvalidIdentifier, op, err)
		}
	}
	return domain.E(fallback, op, err)
}

func parseInfo(data []byte) (*domain.Catalog, error) {
	var info rawInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, domain.E(domain.SourceUnavailable, "yt-dlp info", errors.Wrap(err, "failed to decode yt-dlp output"))
	}

	catalog := &domain.Catalog{
		Title:     info.Title,
		Encodings: make([]domain.Encoding, 0, len(info.Formats)),
	}
	for _, f := range info.Formats {
		catalog.Encodings = append(catalog.Encodings, toEncoding(f))
	}
	return catalog, nil
}

func toEncoding(f rawFormat) domain.Encoding {
	e := domain.Encoding{
		ID:        f.FormatID,
		HasVideo:  hasCodec(f.VCodec),
		HasAudio:  hasCodec(f.ACodec),
		Container: f.Ext,
		FPS:       f.FPS,
		Bitrate:   int64(math.Round(f.TBR * 1000)),
		SizeBytes: f.Filesize,
	}
	if e.SizeBytes == 0 {
		e.SizeBytes = f.FilesizeApprox
	}
	if e.HasVideo {
		e.QualityLabel = qualityLabel(f)
	}
	if e.HasAudio {
		e.AudioBitrate = int(math.Round(f.ABR))
		if !e.HasVideo {
			e.AudioQuality = f.FormatNote
		}
	}
	return e
}

func hasCodec(codec string) bool {
	return codec != "" && codec != "none"
}

// qualityLabel prefers the source's own note ("1080p60") and falls back to
// the frame height.
func qualityLabel(f rawFormat) string {
	if strings.ContainsAny(f.FormatNote, "0123456789") {
		return f.FormatNote
	}
	if f.Height > 0 {
		return fmt.Sprintf("%dp", f.Height)
	}
	return f.FormatNote
}
