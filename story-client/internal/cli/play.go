package cli

import (
	"fmt"
	"time"

	"story-studio/story-client/internal/domain"
	"story-studio/story-client/internal/playback"
	"story-studio/story-client/internal/session"

	"github.com/spf13/cobra"
)

func newPlayCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "play <id>",
		Short: "Narrate a story and wait until it ends (Ctrl+C stops)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return fail(app.ErrOut, err)
			}
			ctx := cmd.Context()

			states := make(chan playback.State, 16)
			observer := session.WithPlaybackObserver(func(storyID int64, st playback.State) {
				if storyID != id {
					return
				}
				select {
				case states <- st:
				default:
				}
			})

			return withSession(ctx, app, func(sess *session.Session) error {
				if err := sess.Select(id); err != nil {
					return fail(app.ErrOut, err)
				}
				story, _ := sess.Active()

				if err := sess.Play(ctx); err != nil {
					return fail(app.ErrOut, err)
				}
				var started time.Time
				for {
					select {
					case st := <-states:
						switch st {
						case playback.Loading:
							printPending(app.Out, playbackLabel(st))
						case playback.ReadyPlaying:
							started = time.Now()
							printOK(app.Out, "Playing %q", story.Title)
						case playback.ReadyPaused:
							printOK(app.Out, "Finished after %s", formatElapsed(time.Since(started)))
							return nil
						case playback.Failed:
							err := sess.PlaybackErr(id)
							if err == nil {
								err = domain.ErrNarrationFailed
							}
							return fail(app.ErrOut, err)
						}
					case <-ctx.Done():
						fmt.Fprintln(app.Out, metaStyle.Render(playbackLabel(playback.Idle)))
						return nil
					}
				}
			}, observer)
		},
	}
}
