package playback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"story-studio/story-client/internal/domain"

	"go.uber.org/zap"
)

// DefaultCommand и DefaultArgs - ffplay без окна, завершается в конце файла.
const DefaultCommand = "ffplay"

var DefaultArgs = []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}

// ErrPauseUnsupported - платформа не умеет приостанавливать внешний процесс.
var ErrPauseUnsupported = errors.New("pause is not supported on this platform")

// ExecPlayer проигрывает аудио внешней командой: данные пишутся во временный файл,
// путь к нему передается последним аргументом.
type ExecPlayer struct {
	command string
	args    []string
	logger  *zap.Logger
}

var _ Player = (*ExecPlayer)(nil)

func NewExecPlayer(command string, args []string, logger *zap.Logger) *ExecPlayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if command == "" {
		command = DefaultCommand
		if args == nil {
			args = DefaultArgs
		}
	}
	return &ExecPlayer{command: command, args: args, logger: logger.Named("ExecPlayer")}
}

func (p *ExecPlayer) Start(ctx context.Context, audio domain.Audio) (Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.CreateTemp("", "story-narration-*"+audio.Extension())
	if err != nil {
		return nil, fmt.Errorf("create audio file: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(audio.Data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close audio file: %w", err)
	}

	args := append(append([]string{}, p.args...), path)
	cmd := exec.Command(p.command, args...)
	if err := cmd.Start(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("start %s: %w", p.command, err)
	}
	p.logger.Debug("Player started", zap.String("command", p.command), zap.Int("pid", cmd.Process.Pid), zap.String("file", path))

	t := &execTrack{cmd: cmd, path: path, logger: p.logger, done: make(chan error, 1)}
	go t.wait()
	return t, nil
}

type execTrack struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	path    string
	paused  bool
	stopped bool
	exited  bool
	logger  *zap.Logger
	done    chan error
}

func (t *execTrack) wait() {
	err := t.cmd.Wait()
	if rmErr := os.Remove(t.path); rmErr != nil && !os.IsNotExist(rmErr) {
		t.logger.Warn("Failed to remove audio file", zap.String("file", t.path), zap.Error(rmErr))
	}

	t.mu.Lock()
	t.exited = true
	stopped := t.stopped
	t.mu.Unlock()
	switch {
	case stopped:
		err = ErrTrackStopped
	case err != nil:
		err = fmt.Errorf("player exited: %w", err)
	}
	t.done <- err
	close(t.done)
}

func (t *execTrack) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused || t.stopped {
		return nil
	}
	if t.exited {
		return ErrTrackEnded
	}
	if err := suspendProcess(t.cmd.Process); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return ErrTrackEnded
		}
		return err
	}
	t.paused = true
	return nil
}

func (t *execTrack) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.paused || t.stopped {
		return nil
	}
	if t.exited {
		return ErrTrackEnded
	}
	if err := resumeProcess(t.cmd.Process); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return ErrTrackEnded
		}
		return err
	}
	t.paused = false
	return nil
}

func (t *execTrack) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return nil
	}
	t.stopped = true
	if err := t.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill player: %w", err)
	}
	return nil
}

func (t *execTrack) Done() <-chan error { return t.done }
