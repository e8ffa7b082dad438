package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// ExitError - команда завершилась с ненулевым кодом; сообщение уже выведено.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

// IsExitError извлекает код из ExitError.
func IsExitError(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

// NewRootCommand собирает дерево команд storyctl.
func NewRootCommand(app *App) *cobra.Command {
	if app.In == nil {
		app.In = os.Stdin
	}
	if app.Out == nil {
		app.Out = os.Stdout
	}
	if app.ErrOut == nil {
		app.ErrOut = os.Stderr
	}
	app.Out = &lockedWriter{w: app.Out}

	root := &cobra.Command{
		Use:           "storyctl",
		Short:         "Generate, read and listen to short stories",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.prepare()
		},
	}
	root.SetIn(app.In)
	root.SetOut(app.Out)
	root.SetErr(app.ErrOut)

	root.PersistentFlags().StringVar(&app.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().BoolVar(&app.noAudio, "no-audio", false, "do not play narration through an external player")
	root.PersistentFlags().BoolVar(&app.ephemeral, "ephemeral", false, "keep the library in memory only")

	root.AddCommand(
		newGenerateCommand(app),
		newListCommand(app),
		newShowCommand(app),
		newSaveCommand(app),
		newDeleteCommand(app),
		newCommentCommand(app),
		newPlayCommand(app),
		newStylesCommand(app),
		newChatCommand(app),
		newRemoteCommand(app),
		newShellCommand(app),
	)
	return root
}

// Execute запускает команду и возвращает код выхода.
func Execute(ctx context.Context, app *App, args []string) int {
	root := NewRootCommand(app)
	root.SetArgs(args)
	defer app.close()

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if code, ok := IsExitError(err); ok {
		return code
	}
	printError(app.ErrOut, err)
	return 1
}

// fail печатает ошибку для пользователя и возвращает ExitError(1).
func fail(w io.Writer, err error) error {
	printError(w, err)
	return NewExitError(1)
}
