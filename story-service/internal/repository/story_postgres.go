package repository

import (
	"context"
	"errors"
	"fmt"

	"story-studio/pkg/database"
	"story-studio/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	storyColumns = `id, title, style, content, status, date_created, last_modified`

	listStoriesQuery = `SELECT ` + storyColumns + ` FROM stories ORDER BY date_created DESC, id DESC`
	getStoryQuery    = `SELECT ` + storyColumns + ` FROM stories WHERE id = $1`

	listCommentsQuery = `
        SELECT id, story_id, text, timestamp FROM comments
        WHERE story_id = ANY($1)
        ORDER BY timestamp, id`

	createStoryQuery = `
        INSERT INTO stories (title, style, content, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, date_created, last_modified`

	// NULL = поле не меняется
	updateStoryQuery = `
        UPDATE stories SET
            title         = COALESCE($2, title),
            style         = COALESCE($3, style),
            content       = COALESCE($4, content),
            status        = COALESCE($5, status),
            last_modified = now()
        WHERE id = $1
        RETURNING ` + storyColumns

	deleteStoryQuery = `DELETE FROM stories WHERE id = $1`

	touchStoryQuery = `UPDATE stories SET last_modified = now() WHERE id = $1`
	addCommentQuery = `
        INSERT INTO comments (story_id, text)
        VALUES ($1, $2)
        RETURNING id, story_id, text, timestamp`
)

type pgStoryRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPgStoryRepository создает репозиторий историй поверх пула PostgreSQL.
func NewPgStoryRepository(db *pgxpool.Pool, logger *zap.Logger) StoryRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &pgStoryRepository{
		db:     db,
		logger: logger.Named("PgStoryRepo"),
	}
}

func (r *pgStoryRepository) List(ctx context.Context) ([]models.StoryRecord, error) {
	var stories []models.StoryRecord
	if err := pgxscan.Select(ctx, r.db, &stories, listStoriesQuery); err != nil {
		r.logger.Error("Error listing stories", zap.Error(err))
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	if stories == nil {
		return []models.StoryRecord{}, nil
	}
	if err := r.attachComments(ctx, stories); err != nil {
		return nil, err
	}
	return stories, nil
}

func (r *pgStoryRepository) Get(ctx context.Context, id int64) (*models.StoryRecord, error) {
	var story models.StoryRecord
	if err := pgxscan.Get(ctx, r.db, &story, getStoryQuery, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: story %d", models.ErrNotFound, id)
		}
		r.logger.Error("Error getting story", zap.Int64("storyID", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get story %d: %w", id, err)
	}
	stories := []models.StoryRecord{story}
	if err := r.attachComments(ctx, stories); err != nil {
		return nil, err
	}
	return &stories[0], nil
}

// attachComments загружает комментарии одним запросом и раскладывает их по историям.
func (r *pgStoryRepository) attachComments(ctx context.Context, stories []models.StoryRecord) error {
	ids := make([]int64, len(stories))
	index := make(map[int64]int, len(stories))
	for i := range stories {
		ids[i] = stories[i].ID
		index[stories[i].ID] = i
		stories[i].Comments = []models.CommentRecord{}
	}

	var comments []models.CommentRecord
	if err := pgxscan.Select(ctx, r.db, &comments, listCommentsQuery, ids); err != nil {
		r.logger.Error("Error listing comments", zap.Int("stories", len(ids)), zap.Error(err))
		return fmt.Errorf("failed to list comments: %w", err)
	}
	for _, c := range comments {
		if i, ok := index[c.StoryID]; ok {
			stories[i].Comments = append(stories[i].Comments, c)
		}
	}
	return nil
}

func (r *pgStoryRepository) Create(ctx context.Context, story *models.StoryRecord) error {
	if story.Status == "" {
		story.Status = models.StatusInProgress
	}
	err := r.db.QueryRow(ctx, createStoryQuery, story.Title, string(story.Style), story.Content, string(story.Status)).
		Scan(&story.ID, &story.DateCreated, &story.LastModified)
	if err != nil {
		r.logger.Error("Error creating story", zap.String("title", story.Title), zap.Error(err))
		return fmt.Errorf("failed to create story: %w", err)
	}
	if story.Comments == nil {
		story.Comments = []models.CommentRecord{}
	}
	r.logger.Info("Story created", zap.Int64("storyID", story.ID))
	return nil
}

func (r *pgStoryRepository) Update(ctx context.Context, id int64, req models.UpdateStoryRequest) (*models.StoryRecord, error) {
	var style, status *string
	if req.Style != nil {
		s := string(*req.Style)
		style = &s
	}
	if req.Status != nil {
		s := string(*req.Status)
		status = &s
	}

	var story models.StoryRecord
	err := pgxscan.Get(ctx, r.db, &story, updateStoryQuery, id, req.Title, style, req.Content, status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: story %d", models.ErrNotFound, id)
		}
		r.logger.Error("Error updating story", zap.Int64("storyID", id), zap.Error(err))
		return nil, fmt.Errorf("failed to update story %d: %w", id, err)
	}

	stories := []models.StoryRecord{story}
	if err := r.attachComments(ctx, stories); err != nil {
		return nil, err
	}
	return &stories[0], nil
}

func (r *pgStoryRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, deleteStoryQuery, id)
	if err != nil {
		r.logger.Error("Error deleting story", zap.Int64("storyID", id), zap.Error(err))
		return fmt.Errorf("failed to delete story %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: story %d", models.ErrNotFound, id)
	}
	r.logger.Info("Story deleted", zap.Int64("storyID", id))
	return nil
}

// AddComment добавляет комментарий и обновляет last_modified истории в одной транзакции.
func (r *pgStoryRepository) AddComment(ctx context.Context, storyID int64, text string) (*models.CommentRecord, error) {
	var comment models.CommentRecord
	err := database.ExecuteInTransaction(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, touchStoryQuery, storyID)
		if err != nil {
			return fmt.Errorf("failed to touch story %d: %w", storyID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: story %d", models.ErrNotFound, storyID)
		}
		if err := pgxscan.Get(ctx, tx, &comment, addCommentQuery, storyID, text); err != nil {
			return fmt.Errorf("failed to insert comment: %w", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			r.logger.Error("Error adding comment", zap.Int64("storyID", storyID), zap.Error(err))
		}
		return nil, err
	}
	return &comment, nil
}
