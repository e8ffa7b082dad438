// Package cli - интерфейс командной строки storyctl.
package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"story-studio/shared/logger"
	"story-studio/shared/models"
	"story-studio/story-client/internal/config"
	"story-studio/story-client/internal/domain"
	"story-studio/story-client/internal/genclient"
	"story-studio/story-client/internal/orchestrator"
	"story-studio/story-client/internal/playback"
	"story-studio/story-client/internal/session"
	"story-studio/story-client/internal/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// API - то, что CLI использует из story-service (genclient.Client).
type API interface {
	orchestrator.StoryGenerator
	playback.Narrator
	Chat(ctx context.Context, message string) (string, error)
	ListStories(ctx context.Context) ([]models.StoryRecord, error)
	CreateRemoteStory(ctx context.Context, title string, style domain.Style) (*models.StoryRecord, error)
	UpdateRemoteStory(ctx context.Context, id int64, req models.UpdateStoryRequest) (*models.StoryRecord, error)
	DeleteRemoteStory(ctx context.Context, id int64) error
}

var _ API = (*genclient.Client)(nil)

// App - зависимости команд. Незаданные поля собираются из конфигурации
// перед выполнением команды; тесты подставляют свои.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	API    API
	Store  store.Adapter
	Player playback.Player

	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer

	configPath string
	noAudio    bool
	ephemeral  bool

	redis *redis.Client
}

// prepare достраивает недостающие зависимости.
func (a *App) prepare() error {
	if a.Config == nil {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.Config = cfg
	}
	if a.Logger == nil {
		l, err := logger.New(a.Config.LoggerConfig())
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		a.Logger = l
	}
	if a.API == nil {
		client, err := genclient.New(a.Config.API.BaseURL, a.Config.API.Timeout, a.Logger)
		if err != nil {
			return err
		}
		a.API = client
	}
	if a.Store == nil || a.ephemeral {
		s, err := a.buildStore()
		if err != nil {
			return err
		}
		a.Store = s
	}
	if a.Player == nil || a.noAudio {
		if a.noAudio {
			a.Player = playback.NewDiscardPlayer(0)
		} else {
			a.Player = playback.NewExecPlayer(a.Config.Player.Command, a.Config.Player.Args, a.Logger)
		}
	}
	return nil
}

func (a *App) buildStore() (store.Adapter, error) {
	driver := a.Config.Store.Driver
	if a.ephemeral {
		driver = config.StoreMemory
	}
	switch driver {
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	case config.StoreRedis:
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		return store.NewRedisStore(a.redis, a.Config.Store.Namespace), nil
	default:
		return store.NewFileStore(a.Config.Store.Dir, a.Config.Store.Namespace)
	}
}

func (a *App) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && a.Logger != nil {
			a.Logger.Warn("Failed to close redis client", zap.Error(err))
		}
		a.redis = nil
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}

// openSession открывает сессию над хранилищем приложения.
func (a *App) openSession(ctx context.Context, opts ...session.Option) *session.Session {
	return session.Open(ctx, session.Config{
		MaxTasks:    a.Config.Tasks.Max,
		SaveTimeout: a.Config.Store.SaveTimeout,
	}, session.Deps{
		Generator: a.API,
		Narrator:  a.API,
		Player:    a.Player,
		Store:     a.Store,
	}, a.Logger, opts...)
}

// lockedWriter сериализует вывод из фоновых горутин (коллбэки генерации и озвучки).
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
