package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"story-studio/shared/models"
	"story-studio/story-client/internal/domain"
	"story-studio/story-client/internal/playback"

	"github.com/charmbracelet/lipgloss"
)

const dateLayout = "2006-01-02 15:04"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	pendingStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("214"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	commentStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("252"))
	contentStyle = lipgloss.NewStyle().Width(80)

	statusStyles = map[domain.Status]lipgloss.Style{
		domain.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		domain.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
)

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render(domain.UserMessage(err)))
}

func printPending(w io.Writer, msg string) {
	fmt.Fprintln(w, pendingStyle.Render(msg))
}

func printOK(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, okStyle.Render(fmt.Sprintf(format, args...)))
}

func renderStatus(s domain.Status) string {
	if st, ok := statusStyles[s]; ok {
		return st.Render(string(s))
	}
	return string(s)
}

// printStoryLine - одна строка списка.
func printStoryLine(w io.Writer, s domain.Story) {
	fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
		metaStyle.Render(fmt.Sprintf("%d", s.ID)),
		titleStyle.Render(s.Title),
		metaStyle.Render(string(s.Style)),
		renderStatus(s.Status),
		metaStyle.Render(fmt.Sprintf("%s, %d comments", s.DateCreated.Local().Format(dateLayout), len(s.Comments))),
	)
}

func printStoryList(w io.Writer, stories []domain.Story) {
	if len(stories) == 0 {
		fmt.Fprintln(w, metaStyle.Render("No stories yet."))
		return
	}
	for _, s := range stories {
		printStoryLine(w, s)
	}
}

// printStory - история целиком с комментариями.
func printStory(w io.Writer, s domain.Story) {
	fmt.Fprintln(w, titleStyle.Render(s.Title))
	fmt.Fprintln(w, metaStyle.Render(fmt.Sprintf("#%d · %s · created %s · modified %s",
		s.ID, s.Style, s.DateCreated.Local().Format(dateLayout), s.LastModified.Local().Format(dateLayout))), renderStatus(s.Status))
	fmt.Fprintln(w)
	fmt.Fprintln(w, contentStyle.Render(s.Content))
	if len(s.Comments) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, metaStyle.Render("Comments:"))
	for _, c := range s.Comments {
		fmt.Fprintln(w, commentStyle.Render(fmt.Sprintf("%s  %s", c.Timestamp.Local().Format(dateLayout), c.Text)))
	}
}

func printRemoteStory(w io.Writer, r models.StoryRecord) {
	fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
		metaStyle.Render(fmt.Sprintf("%d", r.ID)),
		titleStyle.Render(r.Title),
		metaStyle.Render(string(r.Style)),
		renderStatus(r.Status),
		metaStyle.Render(fmt.Sprintf("%s, %d comments", r.DateCreated.Local().Format(dateLayout), len(r.Comments))),
	)
}

// playbackLabel - подпись состояния озвучки.
func playbackLabel(s playback.State) string {
	switch s {
	case playback.Loading:
		return "Loading audio…"
	case playback.ReadyPlaying:
		return "Playing"
	case playback.ReadyPaused:
		return "Paused"
	case playback.Failed:
		return "Audio failed"
	default:
		return "Stopped"
	}
}

func formatElapsed(d time.Duration) string {
	return d.Round(100 * time.Millisecond).String()
}

// recordToStory переводит историю бэкенда в локальную модель.
func recordToStory(r models.StoryRecord) domain.Story {
	s := domain.Story{
		ID:           r.ID,
		Title:        strings.TrimSpace(r.Title),
		Style:        r.Style,
		Content:      r.Content,
		Status:       r.Status,
		DateCreated:  r.DateCreated,
		LastModified: r.LastModified,
		Comments:     make([]domain.Comment, 0, len(r.Comments)),
	}
	for _, c := range r.Comments {
		s.Comments = append(s.Comments, domain.Comment{ID: c.ID, Text: c.Text, Timestamp: c.Timestamp})
	}
	return s
}
