package service

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var stemPattern = regexp.MustCompile(`^[A-Za-z0-9]+(_[A-Za-z0-9]+)*$`)

func TestSanitizeStem(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Déjà Vu!! (Official)", "D_j_Vu_Official"},
		{"plain_title", "plain_title"},
		{"__leading and trailing__", "leading_and_trailing"},
		{"a///b", "a_b"},
		{"!!!", "video"},
		{"", "video"},
	}
	for _, tt := range tests {
		got := SanitizeStem(tt.title)
		assert.Equal(t, tt.want, got, tt.title)
		assert.Regexp(t, stemPattern, got)
	}
}

func TestSanitizeStemTruncates(t *testing.T) {
	title := strings.Repeat("ab ", 80)
	got := SanitizeStem(title)
	assert.LessOrEqual(t, len(got), 100)
	assert.Regexp(t, stemPattern, got)
	assert.False(t, strings.HasSuffix(got, "_"))
}

func TestSanitizeTitle(t *testing.T) {
	assert.Equal(t, "Dj Vu Official", SanitizeTitle("Déjà Vu!! (Official)"))
	assert.Equal(t, "tab sep", SanitizeTitle("tab\tsep"))
	assert.Equal(t, "video", SanitizeTitle("???"))
	long := strings.Repeat("x", 300)
	assert.Equal(t, long, SanitizeTitle(long))
}

func TestAttachmentHeader(t *testing.T) {
	assert.Equal(t, `attachment; filename="clip.mp4"`, AttachmentHeader("clip.mp4"))
}
