package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"story-studio/shared/models"
	"story-studio/story-client/internal/domain"
	"story-studio/story-client/internal/playback"
	"story-studio/story-client/internal/session"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

const shellHelp = `Commands:
  generate <title> [/ <style>]  generate a story in the background
  wait                          wait for the running generation
  list                          list stories, newest first
  select <id>                   make a story active
  show [id]                     show a story (default: active)
  play | pause                  control narration of the active story
  save [id]                     mark a story as completed
  delete [id]                   delete a story
  comment <text>                comment on the active story
  status                        show the active story and playback state
  styles                        list genres
  quit                          leave the shell`

var promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))

func newShellCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session: selection and playback persist between commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sh := &shell{app: app, out: app.Out}
			return withSession(ctx, app, func(sess *session.Session) error {
				sh.sess = sess
				return sh.run(ctx, app.In)
			}, session.WithPendingObserver(sh.onPending), session.WithPlaybackObserver(sh.onPlayback))
		},
	}
}

type shell struct {
	app  *App
	sess *session.Session
	out  io.Writer
}

func (sh *shell) onPending(on bool) {
	if on {
		printPending(sh.out, "Generating…")
	}
}

func (sh *shell) onPlayback(id int64, st playback.State) {
	if st == playback.Failed {
		fmt.Fprintln(sh.out, errorStyle.Render(domain.UserMessage(sh.sess.PlaybackErr(id))))
		return
	}
	fmt.Fprintln(sh.out, metaStyle.Render(fmt.Sprintf("[%d] %s", id, playbackLabel(st))))
}

func (sh *shell) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(sh.out, metaStyle.Render("Type 'help' for commands."))
	for {
		fmt.Fprint(sh.out, promptStyle.Render("story> "))
		select {
		case <-ctx.Done():
			fmt.Fprintln(sh.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(sh.out)
				return nil
			}
			if quit := sh.exec(ctx, line); quit {
				return nil
			}
		}
	}
}

// exec выполняет одну строку; true - выход из shell.
func (sh *shell) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	var err error
	switch name {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(sh.out, shellHelp)
	case "styles":
		for _, s := range models.Styles() {
			fmt.Fprintln(sh.out, string(s))
		}
	case "list":
		printStoryList(sh.out, sh.sess.Stories())
	case "generate":
		err = sh.generate(ctx, rest)
	case "wait":
		sh.waitGeneration(ctx)
	case "select":
		err = sh.selectStory(args)
	case "show":
		var story domain.Story
		if story, err = sh.target(args); err == nil {
			printStory(sh.out, story)
		}
	case "play":
		err = sh.sess.Play(ctx)
	case "pause":
		err = sh.sess.Pause()
	case "save":
		var story domain.Story
		if story, err = sh.target(args); err == nil {
			if story, err = sh.sess.Save(story.ID); err == nil {
				printOK(sh.out, "Saved %q as %s", story.Title, story.Status)
			}
		}
	case "delete":
		var story domain.Story
		if story, err = sh.target(args); err == nil {
			sh.sess.Delete(story.ID)
			printOK(sh.out, "Deleted story %d", story.ID)
		}
	case "comment":
		err = sh.comment(rest)
	case "status":
		sh.status()
	default:
		err = domain.Errorf(domain.ErrValidation, "unknown command %q, type 'help'", name)
	}
	if err != nil {
		printError(sh.out, err)
	}
	return false
}

func (sh *shell) generate(ctx context.Context, rest string) error {
	title, rawStyle, found := strings.Cut(rest, "/")
	style := models.StyleFantasy
	if found {
		st, err := domain.ParseStyle(rawStyle)
		if err != nil {
			return err
		}
		style = st
	}
	return sh.sess.GenerateAsync(ctx, title, style, func(story domain.Story, err error) {
		if err != nil {
			printError(sh.out, err)
			return
		}
		printOK(sh.out, "Generated story %d", story.ID)
		printStoryLine(sh.out, story)
	})
}

func (sh *shell) waitGeneration(ctx context.Context) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for sh.sess.Pending() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (sh *shell) selectStory(args []string) error {
	if len(args) != 1 {
		return domain.Errorf(domain.ErrValidation, "usage: select <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := sh.sess.Select(id); err != nil {
		return err
	}
	story, _ := sh.sess.Active()
	printStoryLine(sh.out, story)
	return nil
}

// target - история из аргумента или активная.
func (sh *shell) target(args []string) (domain.Story, error) {
	if len(args) == 0 {
		story, ok := sh.sess.Active()
		if !ok {
			return domain.Story{}, fmt.Errorf("%w: no story selected", domain.ErrNotFound)
		}
		return story, nil
	}
	id, err := parseID(args[0])
	if err != nil {
		return domain.Story{}, err
	}
	story, ok := sh.sess.Get(id)
	if !ok {
		return domain.Story{}, fmt.Errorf("%w: %d", domain.ErrNotFound, id)
	}
	return story, nil
}

func (sh *shell) comment(text string) error {
	story, ok := sh.sess.Active()
	if !ok {
		return fmt.Errorf("%w: no story selected", domain.ErrNotFound)
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	updated, err := sh.sess.Comment(story.ID, text)
	if err != nil {
		return err
	}
	printOK(sh.out, "Comment added (%d total)", len(updated.Comments))
	return nil
}

func (sh *shell) status() {
	if sh.sess.Pending() {
		printPending(sh.out, "Generating…")
	}
	story, ok := sh.sess.Active()
	if !ok {
		fmt.Fprintln(sh.out, metaStyle.Render("No story selected."))
		return
	}
	printStoryLine(sh.out, story)
	fmt.Fprintln(sh.out, metaStyle.Render("Narration: "+playbackLabel(sh.sess.PlaybackState(story.ID))))
}
