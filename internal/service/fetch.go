package service

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"mergeanddown/internal/core/domain"
	"mergeanddown/internal/core/ports"
)

// Fetcher copies one encoding of one media item into a sink.
type Fetcher struct {
	source ports.MediaSource
}

// NewFetcher creates a new Fetcher.
func NewFetcher(source ports.MediaSource) *Fetcher {
	return &Fetcher{source: source}
}

// Open starts the stream for encodingID. Errors are EncodingNotFound when the
// source no longer lists the id and TransferError otherwise.
func (f *Fetcher) Open(ctx context.Context, id domain.MediaID, encodingID string) (io.ReadCloser, error) {
	rc, err := f.source.OpenStream(ctx, id, encodingID)
	if err != nil {
		if domain.KindOf(err) == domain.EncodingNotFound {
			return nil, err
		}
		return nil, domain.E(domain.TransferError, "open "+encodingID, err)
	}
	return rc, nil
}

// Fetch writes the whole stream to job.Sink and returns the byte count. On
// failure the sink may hold partial data; cleaning it is the caller's job.
func (f *Fetcher) Fetch(ctx context.Context, job domain.FetchJob) (int64, error) {
	rc, err := f.Open(ctx, job.Media, job.EncodingID)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	n, err := io.Copy(job.Sink, rc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Wrap(ctxErr, err.Error())
		}
		return n, domain.E(domain.TransferError, "fetch "+job.EncodingID, errors.Wrapf(err, "copied %d bytes", n))
	}
	return n, nil
}
