package mocks

import (
	"context"

	"story-studio/story-client/internal/domain"
	"story-studio/story-client/internal/playback"

	"github.com/stretchr/testify/mock"
)

// MockNarrator is a mock type for the Narrator type
type MockNarrator struct {
	mock.Mock
}

// Narrate provides a mock function with given fields: ctx, text
func (_m *MockNarrator) Narrate(ctx context.Context, text string) (*domain.Audio, error) {
	ret := _m.Called(ctx, text)

	var r0 *domain.Audio
	if rf, ok := ret.Get(0).(func(context.Context, string) *domain.Audio); ok {
		r0 = rf(ctx, text)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*domain.Audio)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, text)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockNarrator creates a new instance of MockNarrator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockNarrator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockNarrator {
	m := &MockNarrator{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ playback.Narrator = (*MockNarrator)(nil)
