package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mergeanddown/internal/core/domain"
)

func TestBuildArgs(t *testing.T) {
	m := NewMuxer("", zerolog.Nop())
	args := m.BuildArgs(domain.MuxSpec{VideoPath: "v.part", AudioPath: "a.part", OutputPath: "out.mp4"})
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "-i v.part -i a.part")
	assert.Contains(t, joined, "-map 0:v:0 -map 1:a:0")
	assert.Contains(t, joined, "-c:v copy")
	assert.Contains(t, joined, "-c:a aac -b:a 192k")
	assert.Contains(t, joined, "-f mp4")
	assert.Equal(t, "out.mp4", args[len(args)-1])
	assert.Equal(t, DefaultBinary, m.Path)
}

func TestBuildArgsWithoutBitrate(t *testing.T) {
	m := NewMuxer("ffmpeg", zerolog.Nop())
	m.AudioBitrate = ""
	joined := strings.Join(m.BuildArgs(domain.MuxSpec{VideoPath: "v", AudioPath: "a", OutputPath: "o"}), " ")
	assert.NotContains(t, joined, "-b:a")
}

func fakeFFmpeg(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

func TestMuxSuccessWritesOutput(t *testing.T) {
	// The last argument is the output path.
	bin := fakeFFmpeg(t, `for last; do :; done; printf muxed > "$last"`)
	out := filepath.Join(t.TempDir(), "out.mp4")

	res, err := NewMuxer(bin, zerolog.Nop()).Mux(context.Background(), domain.MuxSpec{
		VideoPath: "v", AudioPath: "a", OutputPath: out,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "muxed", string(data))
}

func TestMuxFailureCarriesDiagnostics(t *testing.T) {
	bin := fakeFFmpeg(t, `echo "Invalid data found when processing input" >&2; exit 1`)

	res, err := NewMuxer(bin, zerolog.Nop()).Mux(context.Background(), domain.MuxSpec{
		VideoPath: "v", AudioPath: "a", OutputPath: "o",
	})
	require.Error(t, err)
	assert.Equal(t, domain.MuxFailure, domain.KindOf(err))
	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, res.Diagnostics, "Invalid data found")
}

func TestMuxMissingBinary(t *testing.T) {
	m := NewMuxer(filepath.Join(t.TempDir(), "nope"), zerolog.Nop())
	assert.False(t, m.Available())
	_, err := m.Mux(context.Background(), domain.MuxSpec{})
	assert.Equal(t, domain.MuxFailure, domain.KindOf(err))
}

func TestTailBufferKeepsLastBytes(t *testing.T) {
	b := newTailBuffer(4)
	b.Write([]byte("abc"))
	b.Write([]byte("defg"))
	assert.Equal(t, "defg", b.String())
}
