package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"mergeanddown/internal/httpapi"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// renderQuality prints the encodings grouped the way a user picks them: a
// video-only id plus an audio-only id for merge, or a combined id for
// download.
func renderQuality(w io.Writer, v httpapi.QualityView) {
	var b strings.Builder
	b.WriteString(titleStyle.Render(v.Title))
	b.WriteString("\n\n")

	section(&b, "Video only (merge --video)", v.VideoOnly, func(e httpapi.EncodingView) string {
		return fmt.Sprintf("%-8s %-6s fps %-5s %s", e.QualityLabel, e.Container, fps(e.FPS), e.BitrateText)
	})
	section(&b, "Audio only (merge --audio)", v.AudioOnly, func(e httpapi.EncodingView) string {
		return fmt.Sprintf("%-6s %4d kbps  %s", e.Container, e.AudioBitrate, e.AudioQuality)
	})
	section(&b, "Combined (download --itag)", v.Combined, func(e httpapi.EncodingView) string {
		return fmt.Sprintf("%-8s %-6s fps %-5s %-12s %-12s audio %s",
			e.QualityLabel, e.Container, fps(e.FPS), e.BitrateText, e.SizeText, e.AudioQuality)
	})

	fmt.Fprint(w, b.String())
}

func section(b *strings.Builder, heading string, encs []httpapi.EncodingView, line func(httpapi.EncodingView) string) {
	b.WriteString(headingStyle.Render(heading))
	b.WriteString("\n")
	if len(encs) == 0 {
		b.WriteString(mutedStyle.Render("  none"))
		b.WriteString("\n\n")
		return
	}
	width := 0
	for _, e := range encs {
		width = max(width, lipgloss.Width(e.ID))
	}
	for _, e := range encs {
		id := idStyle.Render(e.ID) + strings.Repeat(" ", width-lipgloss.Width(e.ID))
		fmt.Fprintf(b, "  %s  %s\n", id, line(e))
	}
	b.WriteString("\n")
}

func fps(v float64) string {
	if v <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%g", v)
}
