package service

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	maxStemLength = 100
	fallbackStem  = "video"
)

// SanitizeStem turns a title into a filename stem of ASCII letters, digits
// and single underscores, at most 100 characters long.
func SanitizeStem(title string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range title {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	stem := strings.Trim(b.String(), "_")
	if len(stem) > maxStemLength {
		stem = strings.TrimRight(stem[:maxStemLength], "_")
	}
	if stem == "" {
		return fallbackStem
	}
	return stem
}

// SanitizeTitle is the looser rule of the direct path: drop everything but
// ASCII word characters and whitespace, flatten whitespace to spaces.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	title = strings.TrimSpace(b.String())
	if title == "" {
		return fallbackStem
	}
	return title
}

// AttachmentHeader renders a Content-Disposition value for filename.
func AttachmentHeader(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}
