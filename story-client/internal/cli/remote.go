package cli

import (
	"fmt"
	"strings"

	"story-studio/shared/models"
	"story-studio/story-client/internal/domain"
	"story-studio/story-client/internal/session"

	"github.com/spf13/cobra"
)

// newRemoteCommand - операции с хранилищем историй на бэкенде.
func newRemoteCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Work with stories stored by the story service",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stories stored by the service",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				records, err := app.API.ListStories(cmd.Context())
				if err != nil {
					return fail(app.ErrOut, err)
				}
				if len(records) == 0 {
					fmt.Fprintln(app.Out, metaStyle.Render("No stories on the server."))
				}
				for _, r := range records {
					printRemoteStory(app.Out, r)
				}
				return nil
			},
		},
		newRemoteCreateCommand(app),
		&cobra.Command{
			Use:   "complete <id>",
			Short: "Mark a stored story as completed",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return fail(app.ErrOut, err)
				}
				status := models.StatusCompleted
				rec, err := app.API.UpdateRemoteStory(cmd.Context(), id, models.UpdateStoryRequest{Status: &status})
				if err != nil {
					return fail(app.ErrOut, err)
				}
				printOK(app.Out, "Saved %q as %s", rec.Title, rec.Status)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a stored story",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return fail(app.ErrOut, err)
				}
				if err := app.API.DeleteRemoteStory(cmd.Context(), id); err != nil {
					return fail(app.ErrOut, err)
				}
				printOK(app.Out, "Deleted story %d on the server", id)
				return nil
			},
		},
		&cobra.Command{
			Use:   "import",
			Short: "Copy server stories missing from the local library",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				records, err := app.API.ListStories(cmd.Context())
				if err != nil {
					return fail(app.ErrOut, err)
				}
				return withSession(cmd.Context(), app, func(sess *session.Session) error {
					imported, err := importMissing(sess, records)
					if err != nil {
						return fail(app.ErrOut, err)
					}
					printOK(app.Out, "Imported %d of %d stories", imported, len(records))
					return nil
				})
			},
		},
	)
	return cmd
}

func newRemoteCreateCommand(app *App) *cobra.Command {
	var style string
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Generate and store a story on the service",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := domain.ParseStyle(style)
			if err != nil {
				return fail(app.ErrOut, err)
			}
			title, err := domain.ValidateTitle(strings.Join(args, " "))
			if err != nil {
				return fail(app.ErrOut, err)
			}
			printPending(app.Out, "Generating…")
			rec, err := app.API.CreateRemoteStory(cmd.Context(), title, st)
			if err != nil {
				return fail(app.ErrOut, err)
			}
			printStory(app.Out, recordToStory(*rec))
			return nil
		},
	}
	cmd.Flags().StringVarP(&style, "style", "s", string(models.StyleFantasy), "story genre (see 'storyctl styles')")
	return cmd
}

// importMissing добавляет истории, которых нет локально (совпадение по заголовку и дате создания).
func importMissing(sess *session.Session, records []models.StoryRecord) (int, error) {
	local := sess.Stories()
	exists := func(r models.StoryRecord) bool {
		for _, s := range local {
			if s.Title == strings.TrimSpace(r.Title) && s.DateCreated.Equal(r.DateCreated) {
				return true
			}
		}
		return false
	}

	imported := 0
	for _, r := range records {
		// пустые истории локальная коллекция не принимает
		if exists(r) || strings.TrimSpace(r.Content) == "" {
			continue
		}
		if _, err := sess.Import(recordToStory(r)); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
