package mocks

import (
	"context"

	"story-studio/shared/models"
	"story-studio/story-service/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockStoryRepository is a mock type for the StoryRepository type
type MockStoryRepository struct {
	mock.Mock
}

// List provides a mock function with given fields: ctx
func (_m *MockStoryRepository) List(ctx context.Context) ([]models.StoryRecord, error) {
	ret := _m.Called(ctx)

	var r0 []models.StoryRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.StoryRecord)
	}

	return r0, ret.Error(1)
}

// Get provides a mock function with given fields: ctx, id
func (_m *MockStoryRepository) Get(ctx context.Context, id int64) (*models.StoryRecord, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.StoryRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.StoryRecord)
	}

	return r0, ret.Error(1)
}

// Create provides a mock function with given fields: ctx, story
func (_m *MockStoryRepository) Create(ctx context.Context, story *models.StoryRecord) error {
	ret := _m.Called(ctx, story)

	if rf, ok := ret.Get(0).(func(context.Context, *models.StoryRecord) error); ok {
		return rf(ctx, story)
	}
	return ret.Error(0)
}

// Update provides a mock function with given fields: ctx, id, req
func (_m *MockStoryRepository) Update(ctx context.Context, id int64, req models.UpdateStoryRequest) (*models.StoryRecord, error) {
	ret := _m.Called(ctx, id, req)

	var r0 *models.StoryRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.StoryRecord)
	}

	return r0, ret.Error(1)
}

// Delete provides a mock function with given fields: ctx, id
func (_m *MockStoryRepository) Delete(ctx context.Context, id int64) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

// AddComment provides a mock function with given fields: ctx, storyID, text
func (_m *MockStoryRepository) AddComment(ctx context.Context, storyID int64, text string) (*models.CommentRecord, error) {
	ret := _m.Called(ctx, storyID, text)

	var r0 *models.CommentRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.CommentRecord)
	}

	return r0, ret.Error(1)
}

// NewMockStoryRepository creates a new instance of MockStoryRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockStoryRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStoryRepository {
	m := &MockStoryRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ repository.StoryRepository = (*MockStoryRepository)(nil)
