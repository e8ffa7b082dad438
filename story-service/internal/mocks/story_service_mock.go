package mocks

import (
	"context"

	"story-studio/shared/models"
	"story-studio/story-service/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockStoryService is a mock type for the StoryService type
type MockStoryService struct {
	mock.Mock
}

// GenerateStory provides a mock function with given fields: ctx, title, style
func (_m *MockStoryService) GenerateStory(ctx context.Context, title string, style models.Style) (*models.GenerateStoryResponse, error) {
	ret := _m.Called(ctx, title, style)

	var r0 *models.GenerateStoryResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.GenerateStoryResponse)
	}

	return r0, ret.Error(1)
}

// Narrate provides a mock function with given fields: ctx, text
func (_m *MockStoryService) Narrate(ctx context.Context, text string) (string, error) {
	ret := _m.Called(ctx, text)
	return ret.String(0), ret.Error(1)
}

// Chat provides a mock function with given fields: ctx, message
func (_m *MockStoryService) Chat(ctx context.Context, message string) (string, error) {
	ret := _m.Called(ctx, message)
	return ret.String(0), ret.Error(1)
}

// ListStories provides a mock function with given fields: ctx
func (_m *MockStoryService) ListStories(ctx context.Context) ([]models.StoryRecord, error) {
	ret := _m.Called(ctx)

	var r0 []models.StoryRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.StoryRecord)
	}

	return r0, ret.Error(1)
}

// CreateStory provides a mock function with given fields: ctx, title, style
func (_m *MockStoryService) CreateStory(ctx context.Context, title string, style models.Style) (*models.StoryRecord, error) {
	ret := _m.Called(ctx, title, style)

	var r0 *models.StoryRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.StoryRecord)
	}

	return r0, ret.Error(1)
}

// UpdateStory provides a mock function with given fields: ctx, id, req
func (_m *MockStoryService) UpdateStory(ctx context.Context, id int64, req models.UpdateStoryRequest) (*models.StoryRecord, error) {
	ret := _m.Called(ctx, id, req)

	var r0 *models.StoryRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.StoryRecord)
	}

	return r0, ret.Error(1)
}

// DeleteStory provides a mock function with given fields: ctx, id
func (_m *MockStoryService) DeleteStory(ctx context.Context, id int64) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

// AddComment provides a mock function with given fields: ctx, storyID, text
func (_m *MockStoryService) AddComment(ctx context.Context, storyID int64, text string) (*models.CommentRecord, error) {
	ret := _m.Called(ctx, storyID, text)

	var r0 *models.CommentRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.CommentRecord)
	}

	return r0, ret.Error(1)
}

// NewMockStoryService creates a new instance of MockStoryService. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockStoryService(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStoryService {
	m := &MockStoryService{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ service.StoryService = (*MockStoryService)(nil)
