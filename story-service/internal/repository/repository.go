package repository

import (
	"context"
	"embed"

	"story-studio/shared/models"
)

// MigrationsFS - SQL-миграции схемы историй.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS

const (
	// MigrationsPath - каталог миграций внутри MigrationsFS.
	MigrationsPath = "migrations"
	// MigrationsTable - таблица версий golang-migrate для схемы историй.
	MigrationsTable = "story_schema_migrations"
)

// StoryRepository определяет методы для работы с хранилищем историй.
type StoryRepository interface {
	// List возвращает истории с комментариями, новые первыми.
	List(ctx context.Context) ([]models.StoryRecord, error)
	Get(ctx context.Context, id int64) (*models.StoryRecord, error)
	// Create сохраняет историю и заполняет ID и даты.
	Create(ctx context.Context, story *models.StoryRecord) error
	// Update меняет только переданные поля и обновляет last_modified.
	Update(ctx context.Context, id int64, req models.UpdateStoryRequest) (*models.StoryRecord, error)
	Delete(ctx context.Context, id int64) error
	AddComment(ctx context.Context, storyID int64, text string) (*models.CommentRecord, error)
}
