package service

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"mergeanddown/internal/core/domain"
	"mergeanddown/internal/core/ports"
)

const sniffLen = 3072

// Direct streams a single encoding straight from the source to the
// requester without touching disk.
type Direct struct {
	catalog *CatalogService
	fetcher *Fetcher
	logger  zerolog.Logger
}

// NewDirect creates a new Direct.
func NewDirect(catalog *CatalogService, fetcher *Fetcher, logger zerolog.Logger) *Direct {
	return &Direct{catalog: catalog, fetcher: fetcher, logger: logger}
}

// Download writes encoding req.EncodingID of req.Media to dst. The stream is
// opened before dst.Attach, so a failure to open leaves dst untouched.
func (d *Direct) Download(ctx context.Context, req domain.DirectRequest, dst ports.Delivery) error {
	token, _ := newJobToken()
	logger := d.logger.With().Str("job", token).Logger()

	catalog, err := d.catalog.Get(ctx, req.Media)
	if err != nil {
		return err
	}
	enc, ok := catalog.Find(req.EncodingID)
	if !ok {
		return domain.Errorf(domain.EncodingNotFound, "download", "encoding %q is not offered for this media", req.EncodingID)
	}

	rc, err := d.fetcher.Open(ctx, req.Media, req.EncodingID)
	if err != nil {
		logger.Error().Err(err).Str("encoding", req.EncodingID).Msg("failed to open stream")
		return err
	}
	defer rc.Close()

	br := bufio.NewReaderSize(rc, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return domain.E(domain.TransferError, "download", errors.Wrap(err, "failed to read stream head"))
	}

	filename := SanitizeTitle(catalog.Title) + "." + containerExt(enc)
	// Catalog sizes can be estimates, so the length stays unknown.
	dst.Attach(filename, mediaType(mimetype.Detect(head), fallbackType(enc)), -1)

	n, err := io.Copy(dst, br)
	if err != nil {
		logger.Error().Err(err).Int64("bytes", n).Msg("direct download interrupted")
		return domain.E(domain.TransferError, "download", errors.Wrapf(err, "copied %d bytes", n))
	}
	logger.Info().Str("encoding", req.EncodingID).Int64("bytes", n).Msg("direct download completed")
	return nil
}

func containerExt(enc domain.Encoding) string {
	ext := strings.ToLower(strings.TrimPrefix(enc.Container, "."))
	if ext == "" || strings.ContainsAny(ext, `/\ `) {
		return "mp4"
	}
	return ext
}

func fallbackType(enc domain.Encoding) string {
	ext := containerExt(enc)
	if enc.Kind() == domain.KindAudioOnly {
		if ext == "m4a" {
			ext = "mp4"
		}
		return "audio/" + ext
	}
	return "video/" + ext
}
