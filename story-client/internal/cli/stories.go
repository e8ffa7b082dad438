package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"story-studio/shared/models"
	"story-studio/story-client/internal/domain"
	"story-studio/story-client/internal/session"

	"github.com/spf13/cobra"
)

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, domain.Errorf(domain.ErrValidation, "invalid story id %q", raw)
	}
	return id, nil
}

// withSession открывает сессию на время команды; коллекция сбрасывается в хранилище при закрытии.
func withSession(ctx context.Context, app *App, fn func(*session.Session) error, opts ...session.Option) error {
	sess := app.openSession(ctx, opts...)
	err := fn(sess)
	if closeErr := sess.Close(context.WithoutCancel(ctx)); closeErr != nil {
		printError(app.ErrOut, closeErr)
		if err == nil {
			err = NewExitError(1)
		}
	}
	return err
}

func newGenerateCommand(app *App) *cobra.Command {
	var style string
	cmd := &cobra.Command{
		Use:   "generate <title>",
		Short: "Generate a new story",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := domain.ParseStyle(style)
			if err != nil {
				return fail(app.ErrOut, err)
			}
			title := strings.Join(args, " ")

			pending := session.WithPendingObserver(func(on bool) {
				if on {
					printPending(app.Out, "Generating…")
				}
			})
			return withSession(cmd.Context(), app, func(sess *session.Session) error {
				story, err := sess.Generate(cmd.Context(), title, st)
				if err != nil {
					return fail(app.ErrOut, err)
				}
				printStory(app.Out, story)
				return nil
			}, pending)
		},
	}
	cmd.Flags().StringVarP(&style, "style", "s", string(models.StyleFantasy), "story genre (see 'storyctl styles')")
	return cmd
}

func newListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stories, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), app, func(sess *session.Session) error {
				printStoryList(app.Out, sess.Stories())
				return nil
			})
		},
	}
}

func newShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a story with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return fail(app.ErrOut, err)
			}
			return withSession(cmd.Context(), app, func(sess *session.Session) error {
				story, ok := sess.Get(id)
				if !ok {
					return fail(app.ErrOut, domain.ErrNotFound)
				}
				printStory(app.Out, story)
				return nil
			})
		},
	}
}

func newSaveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "save <id>",
		Short: "Mark a story as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return fail(app.ErrOut, err)
			}
			return withSession(cmd.Context(), app, func(sess *session.Session) error {
				story, err := sess.Save(id)
				if err != nil {
					return fail(app.ErrOut, err)
				}
				printOK(app.Out, "Saved %q as %s", story.Title, story.Status)
				return nil
			})
		},
	}
}

func newDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return fail(app.ErrOut, err)
			}
			return withSession(cmd.Context(), app, func(sess *session.Session) error {
				// удаление отсутствующей истории для пользователя тоже успех
				sess.Delete(id)
				printOK(app.Out, "Deleted story %d", id)
				return nil
			})
		},
	}
}

func newCommentCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <id> <text>",
		Short: "Add a comment to a story",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return fail(app.ErrOut, err)
			}
			text := strings.TrimSpace(strings.Join(args[1:], " "))
			if text == "" {
				return nil
			}
			return withSession(cmd.Context(), app, func(sess *session.Session) error {
				story, err := sess.Comment(id, text)
				if err != nil {
					return fail(app.ErrOut, err)
				}
				printOK(app.Out, "Comment added to %q (%d total)", story.Title, len(story.Comments))
				return nil
			})
		},
	}
}

func newStylesCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "styles",
		Short: "List available story genres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range models.Styles() {
				fmt.Fprintln(app.Out, string(s))
			}
			return nil
		},
	}
}

func newChatCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.TrimSpace(strings.Join(args, " "))
			if message == "" {
				return fail(app.ErrOut, domain.Errorf(domain.ErrValidation, "message must not be empty"))
			}
			printPending(app.Out, "Thinking…")
			answer, err := app.API.Chat(cmd.Context(), message)
			if err != nil {
				return fail(app.ErrOut, err)
			}
			fmt.Fprintln(app.Out, contentStyle.Render(answer))
			return nil
		},
	}
}
