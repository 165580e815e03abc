package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/UTD-JLA/karaoke-bot/internal/playback"
	"github.com/UTD-JLA/karaoke-bot/internal/queue"
)

const (
	playingSymbol = "\u25B6" // ▶
	minWidth      = 40
)

var (
	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255"))

	songStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	playingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")). // cyan/blue
			Bold(true)

	dimmedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e06c75"))
)

func (m Model) View() string {
	width := max(m.width, minWidth)
	inner := width - 2

	var b strings.Builder
	b.WriteString(headerStyle.Render(truncate(m.header(), inner)))
	b.WriteString("\n")
	b.WriteString(m.nowPlaying(inner))
	b.WriteString("\n")
	b.WriteString(dimmedStyle.Render(strings.Repeat("─", inner)))
	b.WriteString("\n")
	b.WriteString(m.songList(inner, m.listHeight()))

	status := ""
	if m.status != "" {
		style := songStyle
		if m.statusErr {
			style = errorStyle
		}
		status = style.Render(truncate(m.status, inner))
	}

	return panelStyle.Width(inner).Render(b.String()) + "\n" + status + "\n" + m.input.View()
}

func (m Model) header() string {
	loop := "running"
	if !m.snapshot.Running {
		loop = "paused"
	}
	if m.queue.Name == "" {
		return fmt.Sprintf("No active queue · %s · %s", m.snapshot.State, loop)
	}
	return fmt.Sprintf("Queue %s (%d/%d) · %s · %s",
		m.queue.Name, m.queue.CurrentPosition, m.queue.MaxPosition, m.snapshot.State, loop)
}

func (m Model) nowPlaying(width int) string {
	song := m.snapshot.Current
	if song == nil || !m.snapshot.State.IsActive() {
		return dimmedStyle.Render("Nothing playing")
	}
	line := fmt.Sprintf("%s %s  <@%s>", playingSymbol, song.Title, song.SubmitterID)
	if m.snapshot.State == playback.StateWaitingToPlay {
		line += "  (announcing)"
	}
	return playingStyle.Render(truncate(line, width))
}

// listHeight is the number of rows left for songs.
func (m Model) listHeight() int {
	// border (2) + header + now playing + separator + status + input
	h := m.height - 7
	if h < 1 {
		return 10
	}
	return h
}

func (m Model) songList(width, height int) string {
	if len(m.songs) == 0 {
		return dimmedStyle.Render("No songs")
	}

	lines := make([]string, 0, min(len(m.songs), height))
	for i, s := range m.songs {
		if i == height {
			break
		}
		lines = append(lines, m.songLine(s, width))
	}
	return strings.Join(lines, "\n")
}

func (m Model) songLine(s queue.Song, width int) string {
	right := formatDuration(s.Duration)
	switch {
	case s.Revoked:
		right = "revoked"
	case s.CompletedAt != nil:
		right = "sung " + humanize.Time(*s.CompletedAt)
	}

	left := fmt.Sprintf("%3d  %s", s.Position, s.Title)
	if s.Title == "" {
		left = fmt.Sprintf("%3d  %s", s.Position, s.URL)
	}
	avail := max(width-runewidth.StringWidth(right)-1, 1)
	text := runewidth.FillRight(truncate(left, avail), avail) + " " + right

	switch {
	case m.snapshot.Current != nil && m.snapshot.Current.Position == s.Position && m.snapshot.Current.Queue == s.Queue:
		return playingStyle.Render(text)
	case !s.Active():
		return dimmedStyle.Render(text)
	default:
		return songStyle.Render(text)
	}
}

// truncate shortens s to width display cells.
func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}

func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	m := int(d / time.Minute)
	s := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%d:%02d", m, s)
}
