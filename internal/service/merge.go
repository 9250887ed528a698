package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mergeanddown/internal/core/domain"
	"mergeanddown/internal/core/ports"
)

const (
	roleVideo  = "video"
	roleAudio  = "audio"
	roleOutput = "output"

	mergedExt         = ".mp4"
	mergedContentType = "video/mp4"
)

// Merger is the fetch-and-mux pipeline: two concurrent fetches into scratch
// files, one ffmpeg run, one copy to the requester, and removal of every
// scratch file on the way out.
type Merger struct {
	catalog *CatalogService
	fetcher *Fetcher
	muxer   ports.Muxer
	store   ports.ArtifactStore
	logger  zerolog.Logger
}

// NewMerger creates a new Merger.
func NewMerger(
	catalog *CatalogService,
	fetcher *Fetcher,
	muxer ports.Muxer,
	store ports.ArtifactStore,
	logger zerolog.Logger,
) *Merger {
	return &Merger{
		catalog: catalog,
		fetcher: fetcher,
		muxer:   muxer,
		store:   store,
		logger:  logger,
	}
}

// workspace holds the scratch files of one job.
type workspace struct {
	video  *domain.Artifact
	audio  *domain.Artifact
	output *domain.Artifact
}

// release deletes whatever was allocated. Failures are logged and dropped so
// they never replace the error that led here.
func (w *workspace) release(logger zerolog.Logger) {
	for _, a := range []*domain.Artifact{w.video, w.audio, w.output} {
		if a == nil {
			continue
		}
		if err := a.Release(); err != nil {
			logger.Warn().Err(err).Str("artifact", a.Path).Msg("failed to remove artifact")
			continue
		}
		logger.Debug().Str("artifact", a.Path).Msg("artifact removed")
	}
}

// MuxDownload fetches the selected video-only and audio-only encodings,
// muxes them into MP4 and writes the result to dst. Nothing is written to
// dst unless ffmpeg reported success.
func (m *Merger) MuxDownload(ctx context.Context, req domain.MergeRequest, dst ports.Delivery) error {
	job := newMergeJob(req)
	logger := m.logger.With().Str("job", job.Token).Logger()
	logger.Info().
		Str("url", string(req.Media)).
		Str("video", req.VideoEncodingID).
		Str("audio", req.AudioEncodingID).
		Msg("merge job started")

	catalog, err := m.catalog.Get(ctx, req.Media)
	if err != nil {
		logger.Error().Err(err).Msg("merge job rejected")
		return err
	}
	for _, id := range []string{req.VideoEncodingID, req.AudioEncodingID} {
		if _, ok := catalog.Find(id); !ok {
			err := domain.Errorf(domain.EncodingNotFound, "merge", "encoding %q is not offered for this media", id)
			logger.Error().Err(err).Msg("merge job rejected")
			return err
		}
	}
	job.Stem = SanitizeStem(catalog.Title)

	ws := &workspace{}
	defer ws.release(logger)

	if err := m.run(ctx, job, ws, dst, logger); err != nil {
		logger.Error().Err(err).Msg("merge job failed")
		return domain.E(domain.MuxFailure, "merge", err)
	}

	logger.Info().
		Dur("elapsed", time.Since(job.CreatedAt)).
		Msg("merge job completed")
	return nil
}

func (m *Merger) run(ctx context.Context, job *domain.MergeJob, ws *workspace, dst ports.Delivery, logger zerolog.Logger) error {
	var err error
	if ws.video, err = m.store.Allocate(ctx, job.Token, roleVideo, ".part"); err != nil {
		return err
	}
	if ws.audio, err = m.store.Allocate(ctx, job.Token, roleAudio, ".part"); err != nil {
		return err
	}
	if ws.output, err = m.store.Allocate(ctx, job.Token, roleOutput, mergedExt); err != nil {
		return err
	}

	if err := m.fetchBoth(ctx, job, ws, logger); err != nil {
		return err
	}

	res, err := m.muxer.Mux(ctx, domain.MuxSpec{
		VideoPath:  ws.video.Path,
		AudioPath:  ws.audio.Path,
		OutputPath: ws.output.Path,
	})
	if err != nil {
		return err
	}
	logger.Info().Dur("mux_duration", res.Duration).Msg("mux completed")

	return m.deliver(job, ws.output, dst, logger)
}

// fetchBoth runs the two fetches concurrently and waits for both. The first
// failure cancels the other.
func (m *Merger) fetchBoth(ctx context.Context, job *domain.MergeJob, ws *workspace, logger zerolog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.fetchInto(gctx, job.Request.Media, job.Request.VideoEncodingID, ws.video, logger)
	})
	g.Go(func() error {
		return m.fetchInto(gctx, job.Request.Media, job.Request.AudioEncodingID, ws.audio, logger)
	})
	return g.Wait()
}

func (m *Merger) fetchInto(ctx context.Context, id domain.MediaID, encodingID string, a *domain.Artifact, logger zerolog.Logger) error {
	sink, err := m.store.Create(a)
	if err != nil {
		return domain.E(domain.TransferError, "fetch "+a.Role, err)
	}

	n, err := m.fetcher.Fetch(ctx, domain.FetchJob{Media: id, EncodingID: encodingID, Sink: sink})
	closeErr := sink.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return domain.E(domain.TransferError, "fetch "+a.Role, errors.Wrap(closeErr, "failed to flush artifact"))
	}

	logger.Info().Str("role", a.Role).Str("encoding", encodingID).Int64("bytes", n).Msg("fetch completed")
	return nil
}

func (m *Merger) deliver(job *domain.MergeJob, output *domain.Artifact, dst ports.Delivery, logger zerolog.Logger) error {
	r, size, err := m.store.Open(output)
	if err != nil {
		return err
	}
	defer r.Close()

	dst.Attach(job.Stem+mergedExt, detectContentType(output.Path, mergedContentType), size)
	n, err := io.Copy(dst, r)
	if err != nil {
		return domain.E(domain.TransferError, "deliver", errors.Wrapf(err, "copied %d of %d bytes", n, size))
	}
	if n != size {
		return domain.Errorf(domain.TransferError, "deliver", "copied %d of %d bytes", n, size)
	}

	logger.Info().Int64("bytes", n).Msg("response delivered")
	return nil
}

// detectContentType sniffs the type of the file at path.
func detectContentType(path, fallback string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return fallback
	}
	return mediaType(mt, fallback)
}

// mediaType returns the most specific video/* or audio/* type in mt's
// ancestry, or fallback when there is none.
func mediaType(mt *mimetype.MIME, fallback string) string {
	for ; mt != nil; mt = mt.Parent() {
		if t := mt.String(); strings.HasPrefix(t, "video/") || strings.HasPrefix(t, "audio/") {
			return t
		}
	}
	return fallback
}
