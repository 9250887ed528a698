package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mergeanddown/internal/adapters/localstorage"
	"mergeanddown/internal/core/domain"
)

func sampleCatalog() *domain.Catalog {
	return &domain.Catalog{
		Title: "Déjà Vu!! (Official)",
		Encodings: []domain.Encoding{
			{ID: "A", HasVideo: true, QualityLabel: "1080p", Container: "mp4"},
			{ID: "B", HasAudio: true, AudioBitrate: 128, Container: "m4a"},
			{ID: "18", HasVideo: true, HasAudio: true, QualityLabel: "360p", Container: "mp4"},
		},
	}
}

type mergeFixture struct {
	source *fakeSource
	muxer  *recordingMuxer
	store  *tokenStore
	merger *Merger
	events *eventLog
}

func newMergeFixture(t *testing.T) *mergeFixture {
	t.Helper()
	events := &eventLog{}
	f := &mergeFixture{
		source: &fakeSource{
			catalog: sampleCatalog(),
			streams: map[string]string{"A": "VIDEO", "B": "AUDIO", "18": "BOTH"},
			events:  events,
		},
		muxer:  &recordingMuxer{events: events},
		store:  &tokenStore{LocalStorage: localstorage.NewLocalStorage(t.TempDir())},
		events: events,
	}
	require.NoError(t, f.store.Init())

	catalog := NewCatalogService(f.source)
	f.merger = NewMerger(catalog, NewFetcher(f.source), f.muxer, f.store, testLogger())
	return f
}

func (f *mergeFixture) assertClean(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.store.BaseDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch directory must be empty after the job")
}

func TestMuxDownloadSuccess(t *testing.T) {
	f := newMergeFixture(t)
	dst := &recorder{}

	err := f.merger.MuxDownload(context.Background(), domain.MergeRequest{
		Media: "V1", VideoEncodingID: "A", AudioEncodingID: "B",
	}, dst)
	require.NoError(t, err)

	assert.Equal(t, 1, f.muxer.calls())
	assert.Equal(t, 1, dst.attached)
	assert.Equal(t, "D_j_Vu_Official.mp4", dst.filename)
	assert.Equal(t, `attachment; filename="D_j_Vu_Official.mp4"`, AttachmentHeader(dst.filename))
	assert.Equal(t, "video/mp4", dst.contentType)
	assert.Equal(t, int64(len("VIDEOAUDIO")), dst.size)
	assert.Equal(t, "VIDEOAUDIO", dst.String())

	spec := f.muxer.specs[0]
	require.Len(t, f.store.tokens(), 1)
	for _, p := range []string{spec.VideoPath, spec.AudioPath, spec.OutputPath} {
		assert.Contains(t, p, f.store.tokens()[0])
	}
	f.assertClean(t)
}

func TestMuxDownloadMuxesAfterBothFetches(t *testing.T) {
	f := newMergeFixture(t)
	require.NoError(t, f.merger.MuxDownload(context.Background(), domain.MergeRequest{
		Media: "V1", VideoEncodingID: "A", AudioEncodingID: "B",
	}, &recorder{}))

	events := f.events.list()
	require.Len(t, events, 3)
	assert.ElementsMatch(t, []string{"fetched A", "fetched B"}, events[:2])
	assert.Equal(t, "mux", events[2])
}

func TestMuxDownloadRejectsBeforeAllocating(t *testing.T) {
	tests := []struct {
		name string
		req  domain.MergeRequest
		kind domain.ErrorKind
	}{
		{
			name: "invalid identifier",
			req:  domain.MergeRequest{Media: "bad-id", VideoEncodingID: "A", AudioEncodingID: "B"},
			kind: domain.InvalidIdentifier,
		},
		{
			name: "unknown video encoding",
			req:  domain.MergeRequest{Media: "V1", VideoEncodingID: "999", AudioEncodingID: "B"},
			kind: domain.EncodingNotFound,
		},
		{
			name: "unknown audio encoding",
			req:  domain.MergeRequest{Media: "V1", VideoEncodingID: "A", AudioEncodingID: "999"},
			kind: domain.EncodingNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMergeFixture(t)
			dst := &recorder{}
			err := f.merger.MuxDownload(context.Background(), tt.req, dst)
			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
			assert.Empty(t, f.source.opened)
			assert.Zero(t, f.muxer.calls())
			assert.Zero(t, dst.attached)
			f.assertClean(t)
		})
	}
}

func TestMuxDownloadCatalogFailure(t *testing.T) {
	f := newMergeFixture(t)
	f.source.infoErr = errors.New("network unreachable")

	err := f.merger.MuxDownload(context.Background(), domain.MergeRequest{
		Media: "V1", VideoEncodingID: "A", AudioEncodingID: "B",
	}, &recorder{})
	require.Error(t, err)
	assert.Equal(t, domain.SourceUnavailable, domain.KindOf(err))
	f.assertClean(t)
}

func TestMuxDownloadCleansUpOnEveryFailure(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *mergeFixture, dst *recorder)
		wantMuxes int
		wantKind  domain.ErrorKind
	}{
		{
			name: "video fetch fails",
			setup: func(f *mergeFixture, _ *recorder) {
				f.source.failAfter = map[string]string{"A": "VID"}
			},
			wantKind: domain.TransferError,
		},
		{
			name: "audio fetch fails",
			setup: func(f *mergeFixture, _ *recorder) {
				f.source.failAfter = map[string]string{"B": "AU"}
			},
			wantKind: domain.TransferError,
		},
		{
			name: "audio stream cannot be opened",
			setup: func(f *mergeFixture, _ *recorder) {
				f.source.openErr = map[string]error{"B": errors.New("403 forbidden")}
			},
			wantKind: domain.TransferError,
		},
		{
			name: "mux fails",
			setup: func(f *mergeFixture, _ *recorder) {
				f.muxer.err = domain.Errorf(domain.MuxFailure, "mux", "exit status 1")
			},
			wantMuxes: 1,
			wantKind:  domain.MuxFailure,
		},
		{
			name: "response copy fails",
			setup: func(_ *mergeFixture, dst *recorder) {
				dst.writeErr = errors.New("broken pipe")
			},
			wantMuxes: 1,
			wantKind:  domain.TransferError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMergeFixture(t)
			dst := &recorder{}
			tt.setup(f, dst)

			err := f.merger.MuxDownload(context.Background(), domain.MergeRequest{
				Media: "V1", VideoEncodingID: "A", AudioEncodingID: "B",
			}, dst)
			require.Error(t, err)
			assert.Equal(t, domain.MuxFailure, domain.KindOf(err))
			assert.True(t, domain.HasKind(err, tt.wantKind), "error %v should carry %s", err, tt.wantKind)
			assert.Equal(t, tt.wantMuxes, f.muxer.calls())
			if tt.wantMuxes == 0 || f.muxer.err != nil {
				assert.Zero(t, dst.attached, "nothing may be delivered before a clean mux")
			}

			require.Len(t, f.store.tokens(), 1)
			left, err := filepath.Glob(filepath.Join(f.store.BaseDir, "*"+f.store.tokens()[0]+"*"))
			require.NoError(t, err)
			assert.Empty(t, left)
			f.assertClean(t)
		})
	}
}

func TestMuxDownloadCancelsSiblingFetch(t *testing.T) {
	f := newMergeFixture(t)
	f.source.openErr = map[string]error{"A": errors.New("403 forbidden")}
	// B only returns once A's failure cancels the group.
	f.source.block = map[string]bool{"B": true}

	err := f.merger.MuxDownload(context.Background(), domain.MergeRequest{
		Media: "V1", VideoEncodingID: "A", AudioEncodingID: "B",
	}, &recorder{})
	require.Error(t, err)
	assert.Equal(t, domain.MuxFailure, domain.KindOf(err))
	assert.Zero(t, f.muxer.calls())
	f.assertClean(t)
}

func TestMuxDownloadConcurrentJobsNeverShareArtifacts(t *testing.T) {
	f := newMergeFixture(t)
	const jobs = 16

	var wg sync.WaitGroup
	errs := make([]error, jobs)
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.merger.MuxDownload(context.Background(), domain.MergeRequest{
				Media: "V1", VideoEncodingID: "A", AudioEncodingID: "B",
			}, &recorder{})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	for _, tok := range f.store.tokens() {
		assert.False(t, seen[tok], "token %s reused", tok)
		seen[tok] = true
	}
	assert.Len(t, seen, jobs)

	paths := map[string]bool{}
	for _, spec := range f.muxer.specs {
		for _, p := range []string{spec.VideoPath, spec.AudioPath, spec.OutputPath} {
			assert.False(t, paths[p], "path %s shared between jobs", p)
			paths[p] = true
		}
	}
	assert.Len(t, paths, 3*jobs)
	f.assertClean(t)
}

func TestNewJobTokenIsUnique(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, seq := newJobToken()
			assert.NotZero(t, seq)
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[tok])
			seen[tok] = true
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 64)
}
