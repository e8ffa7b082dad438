package mocks

import (
	"context"

	"story-studio/shared/models"
	"story-studio/story-client/internal/domain"
	"story-studio/story-client/internal/orchestrator"

	"github.com/stretchr/testify/mock"
)

// MockStoryGenerator is a mock type for the StoryGenerator type
type MockStoryGenerator struct {
	mock.Mock
}

// GenerateStory provides a mock function with given fields: ctx, title, style
func (_m *MockStoryGenerator) GenerateStory(ctx context.Context, title string, style domain.Style) (*models.GenerateStoryResponse, error) {
	ret := _m.Called(ctx, title, style)

	var r0 *models.GenerateStoryResponse
	if rf, ok := ret.Get(0).(func(context.Context, string, domain.Style) *models.GenerateStoryResponse); ok {
		r0 = rf(ctx, title, style)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*models.GenerateStoryResponse)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, domain.Style) error); ok {
		r1 = rf(ctx, title, style)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockStoryGenerator creates a new instance of MockStoryGenerator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockStoryGenerator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStoryGenerator {
	m := &MockStoryGenerator{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ orchestrator.StoryGenerator = (*MockStoryGenerator)(nil)
