package mocks

import (
	"context"

	"story-studio/story-service/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockNarrationCache is a mock type for the NarrationCache type
type MockNarrationCache struct {
	mock.Mock
}

// Get provides a mock function with given fields: ctx, text
func (_m *MockNarrationCache) Get(ctx context.Context, text string) (service.Audio, bool, error) {
	ret := _m.Called(ctx, text)

	var r0 service.Audio
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(service.Audio)
	}

	return r0, ret.Bool(1), ret.Error(2)
}

// Set provides a mock function with given fields: ctx, text, audio
func (_m *MockNarrationCache) Set(ctx context.Context, text string, audio service.Audio) error {
	ret := _m.Called(ctx, text, audio)
	return ret.Error(0)
}

// NewMockNarrationCache creates a new instance of MockNarrationCache. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockNarrationCache(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockNarrationCache {
	m := &MockNarrationCache{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ service.NarrationCache = (*MockNarrationCache)(nil)
