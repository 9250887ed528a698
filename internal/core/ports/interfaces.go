package ports

import (
	"context"
	"io"

	"mergeanddown/internal/core/domain"
)

// MediaSource defines the contract for the remote media catalog and streams.
type MediaSource interface {
	// Validate reports whether raw is a locator this source can serve.
	Validate(raw string) bool

	// Info queries the live catalog for the media item.
	Info(ctx context.Context, id domain.MediaID) (*domain.Catalog, error)

	// OpenStream opens the byte stream of exactly one encoding.
	// The caller must close the returned reader.
	OpenStream(ctx context.Context, id domain.MediaID, encodingID string) (io.ReadCloser, error)
}

// Downloader fetches a resolved stream URL.
type Downloader interface {
	// Download returns a ReadCloser that the caller must close.
	Download(ctx context.Context, streamURL string, headers map[string]string) (io.ReadCloser, error)
}

// Muxer combines a video-only and an audio-only file into one container.
type Muxer interface {
	// Mux blocks until the process exits. A non-nil error means the output
	// must not be used.
	Mux(ctx context.Context, spec domain.MuxSpec) (*domain.MuxResult, error)
}

// ArtifactStore hands out collision-free ephemeral files.
type ArtifactStore interface {
	// Allocate reserves a uniquely named file for the job token and role.
	Allocate(ctx context.Context, token, role, ext string) (*domain.Artifact, error)

	// Create opens an allocated artifact for writing, truncating it.
	Create(a *domain.Artifact) (io.WriteCloser, error)

	// Open opens an artifact for reading and reports its size.
	Open(a *domain.Artifact) (io.ReadCloser, int64, error)
}

// LinkFinder discovers candidate media locators on an arbitrary page.
type LinkFinder interface {
	FindLinks(ctx context.Context, pageURL string) ([]string, error)
}

// Delivery is the receiving end of a download. Attach must be called before
// the first Write.
type Delivery interface {
	io.Writer
	Attach(filename, contentType string, size int64)
}
