package ffmpeg

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"mergeanddown/internal/core/domain"
)

const (
	DefaultBinary       = "ffmpeg"
	DefaultAudioBitrate = "192k"

	AudioCodec    = "aac"
	VideoCodec    = "copy"
	OutputFormat  = "mp4"
	FastStartFlag = "+faststart"

	stderrTailBytes = 16 * 1024
)

// Muxer implements ports.Muxer with the ffmpeg command line tool.
type Muxer struct {
	Path         string
	AudioBitrate string
	logger       zerolog.Logger
}

// NewMuxer returns a Muxer. An empty path looks for ffmpeg in PATH.
func NewMuxer(path string, logger zerolog.Logger) *Muxer {
	if path == "" {
		path = DefaultBinary
	}
	return &Muxer{Path: path, AudioBitrate: DefaultAudioBitrate, logger: logger}
}

// Available checks if ffmpeg is executable.
func (m *Muxer) Available() bool {
	_, err := exec.LookPath(m.Path)
	return err == nil
}

// BuildArgs copies the first video stream of input #1 untouched and encodes
// the first audio stream of input #2 to AAC, into an MP4 container.
func (m *Muxer) BuildArgs(spec domain.MuxSpec) []string {
	args := []string{
		"-nostats", "-hide_banner", "-loglevel", "error",
		"-y",
		"-i", spec.VideoPath,
		"-i", spec.AudioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", VideoCodec,
		"-c:a", AudioCodec,
	}
	if m.AudioBitrate != "" {
		args = append(args, "-b:a", m.AudioBitrate)
	}
	return append(args,
		"-movflags", FastStartFlag,
		"-f", OutputFormat,
		spec.OutputPath,
	)
}

// Mux runs ffmpeg to completion. The returned result is populated on both
// success and failure.
func (m *Muxer) Mux(ctx context.Context, spec domain.MuxSpec) (*domain.MuxResult, error) {
	args := m.BuildArgs(spec)
	result := &domain.MuxResult{Command: append([]string{m.Path}, args...)}

	cmd := exec.CommandContext(ctx, m.Path, args...)
	tail := newTailBuffer(stderrTailBytes)
	cmd.Stderr = tail

	started := time.Now()
	if err := cmd.Start(); err != nil {
		result.ExitCode = -1
		m.logger.Error().Err(err).Str("event", "ffmpeg.start_failed").Msg("ffmpeg process failed to start")
		return result, domain.E(domain.MuxFailure, "ffmpeg start", err)
	}
	m.logger.Info().
		Str("event", "ffmpeg.started").
		Int("pid", cmd.Process.Pid).
		Str("cmd", strings.Join(result.Command, " ")).
		Msg("ffmpeg process started")

	err := cmd.Wait()
	result.Duration = time.Since(started)
	result.Diagnostics = tail.String()
	result.ExitCode = cmd.ProcessState.ExitCode()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Wrap(ctxErr, err.Error())
		}
		m.logger.Error().
			Err(err).
			Str("event", "ffmpeg.failed").
			Int("exit_code", result.ExitCode).
			Str("stderr_tail", result.Diagnostics).
			Msg("ffmpeg process failed")
		return result, domain.E(domain.MuxFailure, "ffmpeg", errors.Wrapf(err, "exit code %d: %s", result.ExitCode, result.Diagnostics))
	}

	m.logger.Info().
		Str("event", "ffmpeg.completed").
		Dur("duration", result.Duration).
		Msg("ffmpeg process completed")
	return result, nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}
