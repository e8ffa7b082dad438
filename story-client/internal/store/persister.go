package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Persister пишет снимки в Adapter в фоне.
// Save не блокирует вызывающего; если запись еще идет, хранится только последний снимок,
// поэтому серия быстрых изменений может схлопнуться в меньшее число записей.
// Последний записанный снимок всегда совпадает с последним переданным.
type Persister struct {
	adapter Adapter
	logger  *zap.Logger
	timeout time.Duration

	mu        sync.Mutex
	pending   []byte
	submitted uint64 // номер последнего переданного снимка
	written   uint64 // номер последнего обработанного снимка (записан или ошибка)
	changed   chan struct{}
	closed    bool

	wake    chan struct{}
	stop    chan struct{}
	stopped chan struct{}
}

// NewPersister запускает фоновую запись. timeout ограничивает одну запись.
func NewPersister(adapter Adapter, timeout time.Duration, logger *zap.Logger) *Persister {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	p := &Persister{
		adapter: adapter,
		logger:  logger.Named("Persister"),
		timeout: timeout,
		changed: make(chan struct{}),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go p.loop()
	return p
}

// Save ставит снимок в очередь на запись.
func (p *Persister) Save(snapshot []byte) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn("Snapshot dropped: persister is closed", zap.Int("bytes", len(snapshot)))
		return
	}
	p.pending = snapshot
	p.submitted++
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Flush ждет, пока будет обработан последний переданный снимок.
func (p *Persister) Flush(ctx context.Context) error {
	p.mu.Lock()
	target := p.submitted
	p.mu.Unlock()

	for {
		p.mu.Lock()
		if p.written >= target {
			p.mu.Unlock()
			return nil
		}
		ch := p.changed
		p.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close дописывает оставшийся снимок и останавливает фоновую горутину.
func (p *Persister) Close(ctx context.Context) error {
	err := p.Flush(ctx)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return err
	}
	p.closed = true
	p.mu.Unlock()

	close(p.stop)
	select {
	case <-p.stopped:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

func (p *Persister) loop() {
	defer close(p.stopped)
	for {
		select {
		case <-p.wake:
			p.drain()
		case <-p.stop:
			p.drain()
			return
		}
	}
}

func (p *Persister) drain() {
	for {
		p.mu.Lock()
		if p.written >= p.submitted {
			p.mu.Unlock()
			return
		}
		snapshot, seq := p.pending, p.submitted
		p.pending = nil
		p.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.adapter.Save(ctx, snapshot)
		cancel()
		if err != nil {
			// Не повторяем: следующее изменение запишет полный снимок заново
			p.logger.Error("Failed to persist snapshot", zap.Uint64("seq", seq), zap.Error(err))
		} else {
			p.logger.Debug("Snapshot persisted", zap.Uint64("seq", seq), zap.Int("bytes", len(snapshot)))
		}

		p.mu.Lock()
		p.written = seq
		close(p.changed)
		p.changed = make(chan struct{})
		p.mu.Unlock()
	}
}
