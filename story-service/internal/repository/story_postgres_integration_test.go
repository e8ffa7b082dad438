package repository_test

import (
	"context"
	"testing"
	"time"

	"story-studio/pkg/migration"
	"story-studio/shared/models"
	"story-studio/story-service/internal/repository"

	"github.com/docker/docker/client"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type StoryRepositorySuite struct {
	suite.Suite
	ctx         context.Context
	pgContainer *postgres.PostgresContainer
	pgPool      *pgxpool.Pool
	repo        repository.StoryRepository
}

func (s *StoryRepositorySuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	s.pgPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err)

	migrator := migration.NewMigrator(migration.Config{
		MigrationsFS:    repository.MigrationsFS,
		MigrationsPath:  repository.MigrationsPath,
		MigrationsTable: repository.MigrationsTable,
	}, s.pgPool, nil)
	require.NoError(s.T(), migrator.Up(), "Failed to run migrations")

	version, dirty, err := migrator.Version()
	require.NoError(s.T(), err)
	require.False(s.T(), dirty)
	require.Equal(s.T(), uint(1), version)

	s.repo = repository.NewPgStoryRepository(s.pgPool, nil)
}

func (s *StoryRepositorySuite) TearDownSuite() {
	if s.pgPool != nil {
		s.pgPool.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(s.ctx)
	}
}

func (s *StoryRepositorySuite) SetupTest() {
	_, err := s.pgPool.Exec(s.ctx, "TRUNCATE comments, stories RESTART IDENTITY CASCADE")
	require.NoError(s.T(), err)
}

func (s *StoryRepositorySuite) create(title string, style models.Style) *models.StoryRecord {
	story := &models.StoryRecord{Title: title, Style: style, Content: "Prose for " + title}
	s.Require().NoError(s.repo.Create(s.ctx, story))
	return story
}

func (s *StoryRepositorySuite) TestCreateAndGet() {
	story := s.create("The Lighthouse", models.StyleMystery)
	s.NotZero(story.ID)
	s.Equal(models.StatusInProgress, story.Status)
	s.False(story.DateCreated.IsZero())

	got, err := s.repo.Get(s.ctx, story.ID)
	s.Require().NoError(err)
	s.Equal("The Lighthouse", got.Title)
	s.Equal(models.StyleMystery, got.Style)
	s.Empty(got.Comments)
	s.NotNil(got.Comments)

	_, err = s.repo.Get(s.ctx, story.ID+100)
	s.ErrorIs(err, models.ErrNotFound)
}

func (s *StoryRepositorySuite) TestListNewestFirstWithComments() {
	first := s.create("First", models.StyleFantasy)
	second := s.create("Second", models.StyleHorror)

	_, err := s.repo.AddComment(s.ctx, first.ID, "one")
	s.Require().NoError(err)
	_, err = s.repo.AddComment(s.ctx, first.ID, "two")
	s.Require().NoError(err)

	stories, err := s.repo.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(stories, 2)
	s.Equal(second.ID, stories[0].ID)
	s.Empty(stories[0].Comments)
	s.Require().Len(stories[1].Comments, 2)
	s.Equal("one", stories[1].Comments[0].Text)
	s.Equal("two", stories[1].Comments[1].Text)
}

func (s *StoryRepositorySuite) TestListEmpty() {
	stories, err := s.repo.List(s.ctx)
	s.Require().NoError(err)
	s.NotNil(stories)
	s.Empty(stories)
}

func (s *StoryRepositorySuite) TestUpdatePartial() {
	story := s.create("Draft", models.StyleComedy)
	status := models.StatusCompleted

	updated, err := s.repo.Update(s.ctx, story.ID, models.UpdateStoryRequest{Status: &status})
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, updated.Status)
	s.Equal("Draft", updated.Title)
	s.Equal(story.Content, updated.Content)
	s.False(updated.LastModified.Before(story.LastModified))

	_, err = s.repo.Update(s.ctx, story.ID+100, models.UpdateStoryRequest{Status: &status})
	s.ErrorIs(err, models.ErrNotFound)
}

func (s *StoryRepositorySuite) TestDeleteCascadesComments() {
	story := s.create("Doomed", models.StyleRomance)
	_, err := s.repo.AddComment(s.ctx, story.ID, "bye")
	s.Require().NoError(err)

	s.Require().NoError(s.repo.Delete(s.ctx, story.ID))
	s.ErrorIs(s.repo.Delete(s.ctx, story.ID), models.ErrNotFound)

	var comments int
	s.Require().NoError(s.pgPool.QueryRow(s.ctx, "SELECT count(*) FROM comments").Scan(&comments))
	s.Zero(comments)
}

func (s *StoryRepositorySuite) TestAddCommentToMissingStory() {
	_, err := s.repo.AddComment(s.ctx, 424242, "hello")
	s.ErrorIs(err, models.ErrNotFound)
}

func TestStoryRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		t.Skipf("Docker client init error: %v", err)
	}
	if _, err := cli.Ping(context.Background()); err != nil {
		cli.Close()
		t.Skipf("Docker daemon is not running or accessible: %v", err)
	}
	cli.Close()

	suite.Run(t, new(StoryRepositorySuite))
}
