package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"story-studio/story-client/internal/domain"
)

// ErrTrackStopped приходит в Done, если дорожку остановили через Stop.
var ErrTrackStopped = errors.New("track stopped")

// ErrTrackEnded возвращают Pause и Resume, если дорожка уже закончилась.
var ErrTrackEnded = errors.New("track already ended")

// Player запускает воспроизведение аудио. ctx ограничивает только запуск,
// дальше временем жизни дорожки управляет Track.Stop.
type Player interface {
	Start(ctx context.Context, audio domain.Audio) (Track, error)
}

// Track - одна запущенная дорожка.
// Done отдает ровно одно значение: nil при штатном окончании, ошибку при сбое или ErrTrackStopped.
type Track interface {
	Pause() error
	Resume() error
	Stop() error
	Done() <-chan error
}

// defaultBytesPerSecond соответствует linear16, 24 кГц, моно.
const defaultBytesPerSecond = 48000

// DiscardPlayer ничего не воспроизводит: дорожка "играет" столько,
// сколько длилось бы аудио такого размера. Используется с --no-audio.
type DiscardPlayer struct {
	bytesPerSecond int
}

var _ Player = (*DiscardPlayer)(nil)

func NewDiscardPlayer(bytesPerSecond int) *DiscardPlayer {
	if bytesPerSecond <= 0 {
		bytesPerSecond = defaultBytesPerSecond
	}
	return &DiscardPlayer{bytesPerSecond: bytesPerSecond}
}

func (p *DiscardPlayer) Start(ctx context.Context, audio domain.Audio) (Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d := time.Duration(len(audio.Data)) * time.Second / time.Duration(p.bytesPerSecond)
	t := &discardTrack{remaining: d, done: make(chan error, 1)}
	t.startTimerLocked()
	return t, nil
}

type discardTrack struct {
	mu        sync.Mutex
	remaining time.Duration
	startedAt time.Time
	timer     *time.Timer
	paused    bool
	finished  bool
	done      chan error
}

func (t *discardTrack) startTimerLocked() {
	t.startedAt = time.Now()
	t.timer = time.AfterFunc(t.remaining, func() { t.finish(nil) })
}

func (t *discardTrack) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished || t.paused {
		return nil
	}
	if t.timer.Stop() {
		t.remaining -= time.Since(t.startedAt)
		if t.remaining < 0 {
			t.remaining = 0
		}
	}
	t.paused = true
	return nil
}

func (t *discardTrack) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished || !t.paused {
		return nil
	}
	t.paused = false
	t.startTimerLocked()
	return nil
}

func (t *discardTrack) Stop() error {
	t.mu.Lock()
	t.timer.Stop()
	t.mu.Unlock()
	t.finish(ErrTrackStopped)
	return nil
}

func (t *discardTrack) Done() <-chan error { return t.done }

func (t *discardTrack) finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return
	}
	t.finished = true
	t.done <- err
	close(t.done)
}
