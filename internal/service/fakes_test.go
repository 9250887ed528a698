package service

import (
	"bytes"
	"context"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"mergeanddown/internal/adapters/localstorage"
	"mergeanddown/internal/core/domain"
)

// fakeSource serves canned streams per encoding id.
type fakeSource struct {
	catalog *domain.Catalog
	infoErr error
	streams map[string]string
	// failAfter makes the stream for an id fail after the given bytes.
	failAfter map[string]string
	openErr   map[string]error
	// block holds OpenStream for an id until the context is done.
	block map[string]bool
	// hold delays OpenStream for an id until the channel is closed.
	hold map[string]chan struct{}
	// fetched, if set, receives each id whose stream reached EOF.
	fetched chan string

	mu     sync.Mutex
	opened []string
	events *eventLog
}

func (s *fakeSource) Validate(raw string) bool {
	return raw != "" && !strings.HasPrefix(raw, "bad")
}

func (s *fakeSource) Info(ctx context.Context, id domain.MediaID) (*domain.Catalog, error) {
	if s.infoErr != nil {
		return nil, s.infoErr
	}
	return s.catalog, nil
}

func (s *fakeSource) OpenStream(ctx context.Context, id domain.MediaID, encodingID string) (io.ReadCloser, error) {
	s.mu.Lock()
	s.opened = append(s.opened, encodingID)
	s.mu.Unlock()

	if s.block[encodingID] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if ch, ok := s.hold[encodingID]; ok {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := s.openErr[encodingID]; err != nil {
		return nil, err
	}
	if partial, ok := s.failAfter[encodingID]; ok {
		return io.NopCloser(io.MultiReader(strings.NewReader(partial), errReader{errors.New("connection reset")})), nil
	}
	body, ok := s.streams[encodingID]
	if !ok {
		return nil, domain.Errorf(domain.EncodingNotFound, "open", "no stream for %s", encodingID)
	}
	return &trackedReader{Reader: strings.NewReader(body), onEOF: func() {
		s.events.add("fetched " + encodingID)
		if s.fetched != nil {
			s.fetched <- encodingID
		}
	}}, nil
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

type trackedReader struct {
	io.Reader
	onEOF func()
	once  sync.Once
}

func (r *trackedReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	if err == io.EOF && r.onEOF != nil {
		r.once.Do(r.onEOF)
	}
	return n, err
}

func (r *trackedReader) Close() error { return nil }

// eventLog records the order things happened in across goroutines.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// recordingMuxer concatenates its inputs into the output file.
type recordingMuxer struct {
	err    error
	events *eventLog

	mu    sync.Mutex
	specs []domain.MuxSpec
}

func (m *recordingMuxer) Mux(ctx context.Context, spec domain.MuxSpec) (*domain.MuxResult, error) {
	m.mu.Lock()
	m.specs = append(m.specs, spec)
	m.mu.Unlock()
	m.events.add("mux")

	if m.err != nil {
		return &domain.MuxResult{ExitCode: 1, Diagnostics: m.err.Error()}, m.err
	}
	video, err := os.ReadFile(spec.VideoPath)
	if err != nil {
		return nil, err
	}
	audio, err := os.ReadFile(spec.AudioPath)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(spec.OutputPath, append(video, audio...), 0644); err != nil {
		return nil, err
	}
	return &domain.MuxResult{Duration: time.Millisecond}, nil
}

func (m *recordingMuxer) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.specs)
}

// recorder is an in-memory Delivery. The buffer is a named field so io.Copy
// cannot bypass Write through a promoted ReadFrom.
type recorder struct {
	buf         bytes.Buffer
	filename    string
	contentType string
	size        int64
	attached    int
	// writeErr fails every Write once set.
	writeErr error
}

func (r *recorder) Attach(filename, contentType string, size int64) {
	r.filename = filename
	r.contentType = contentType
	r.size = size
	r.attached++
}

func (r *recorder) Write(p []byte) (int, error) {
	if r.writeErr != nil {
		return 0, r.writeErr
	}
	return r.buf.Write(p)
}

func (r *recorder) String() string { return r.buf.String() }

func (r *recorder) Len() int { return r.buf.Len() }

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// tokenStore records the job tokens artifacts are allocated for.
type tokenStore struct {
	*localstorage.LocalStorage

	mu   sync.Mutex
	seen []string
}

func (s *tokenStore) Allocate(ctx context.Context, token, role, ext string) (*domain.Artifact, error) {
	s.mu.Lock()
	if !slices.Contains(s.seen, token) {
		s.seen = append(s.seen, token)
	}
	s.mu.Unlock()
	return s.LocalStorage.Allocate(ctx, token, role, ext)
}

func (s *tokenStore) tokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seen...)
}
