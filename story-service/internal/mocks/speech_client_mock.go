package mocks

import (
	"context"

	"story-studio/story-service/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockSpeechClient is a mock type for the SpeechClient type
type MockSpeechClient struct {
	mock.Mock
}

// Synthesize provides a mock function with given fields: ctx, text
func (_m *MockSpeechClient) Synthesize(ctx context.Context, text string) (service.Audio, error) {
	ret := _m.Called(ctx, text)

	var r0 service.Audio
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(service.Audio)
	}

	return r0, ret.Error(1)
}

// NewMockSpeechClient creates a new instance of MockSpeechClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockSpeechClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSpeechClient {
	m := &MockSpeechClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ service.SpeechClient = (*MockSpeechClient)(nil)
